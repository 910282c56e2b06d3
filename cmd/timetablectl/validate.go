package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/noah-isme/timetable-api/internal/dto"
	"github.com/noah-isme/timetable-api/internal/timetable"
)

func newValidateCmd(root *rootOptions) *cobra.Command {
	var schedulePath string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Audit a schedule document against every invariant",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := loadSchedule(schedulePath)
			if err != nil {
				return err
			}
			violations := store.Validate()
			if violations == nil {
				violations = []timetable.Violation{}
			}
			if err := root.writeJSON(cmd, dto.ValidateResponse{Valid: len(violations) == 0, Violations: violations}); err != nil {
				return err
			}
			if len(violations) > 0 {
				return fmt.Errorf("%d invariant violation(s)", len(violations))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&schedulePath, "schedule", "s", "", "schedule document JSON")
	_ = cmd.MarkFlagRequired("schedule")
	return cmd
}
