package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/noah-isme/timetable-api/internal/dto"
	"github.com/noah-isme/timetable-api/internal/timetable"
)

func newCheckCmd(root *rootOptions) *cobra.Command {
	var (
		schedulePath string
		section      string
		day          string
		slot         string
		subject      string
		faculty      string
		room         string
		kind         string
	)
	cmd := &cobra.Command{
		Use:   "check",
		Short: "List the conflicts a candidate session would introduce",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := loadSchedule(schedulePath)
			if err != nil {
				return err
			}
			weekday, err := timetable.ParseWeekday(day)
			if err != nil {
				return err
			}
			sessionKind, err := timetable.ParseKind(kind)
			if err != nil {
				return err
			}
			conflicts, err := timetable.CheckPlacement(store, timetable.Candidate{
				Section: section,
				Day:     weekday,
				Slot:    slot,
				Subject: subject,
				Faculty: faculty,
				Room:    room,
				Kind:    sessionKind,
			})
			if err != nil {
				return err
			}
			if conflicts == nil {
				conflicts = []timetable.Conflict{}
			}
			if err := root.writeJSON(cmd, dto.CheckPlacementResponse{Clear: len(conflicts) == 0, Conflicts: conflicts}); err != nil {
				return err
			}
			if len(conflicts) > 0 {
				return fmt.Errorf("%d conflict(s)", len(conflicts))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&schedulePath, "schedule", "s", "", "schedule document JSON")
	cmd.Flags().StringVar(&section, "section", "", "section id")
	cmd.Flags().StringVar(&day, "day", "", "weekday, e.g. Mon or Monday")
	cmd.Flags().StringVar(&slot, "slot", "", "time slot label")
	cmd.Flags().StringVar(&subject, "subject", "", "subject name")
	cmd.Flags().StringVar(&faculty, "faculty", "", "faculty name")
	cmd.Flags().StringVar(&room, "room", "", "room name")
	cmd.Flags().StringVar(&kind, "kind", "Theory", "Theory or Practical")
	for _, name := range []string{"schedule", "section", "day", "slot", "subject"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}
