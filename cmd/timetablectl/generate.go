package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"

	"github.com/noah-isme/timetable-api/internal/dto"
	"github.com/noah-isme/timetable-api/internal/service"
	"github.com/noah-isme/timetable-api/internal/timetable"
)

type generateOutput struct {
	dto.ScheduleDocument
	Stats timetable.GenerateStats `json:"stats"`
}

type infeasibleOutput struct {
	Error   string              `json:"error"`
	Gap     *timetable.Gap      `json:"gap,omitempty"`
	Partial []timetable.Session `json:"partial,omitempty"`
}

func newGenerateCmd(root *rootOptions) *cobra.Command {
	var (
		requestPath  string
		schedulePath string
		timeout      time.Duration
		maxSteps     int
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Fill a timetable from a catalog",
		Long: "Reads a generation request (sections, catalog, days, time slots). With --schedule the " +
			"sessions of that document stay pinned and its grid is used.",
		RunE: func(cmd *cobra.Command, args []string) error {
			logr := root.logger()
			var req dto.GenerateRequest
			if err := readJSON(requestPath, &req); err != nil {
				return err
			}
			if err := validator.New().Struct(req); err != nil {
				return fmt.Errorf("invalid request: %w", err)
			}
			if req.Catalog == nil {
				return errors.New("request must carry a catalog")
			}
			catalog, err := service.ToCatalog(*req.Catalog)
			if err != nil {
				return err
			}
			days, err := timetable.ParseWeekdays(req.Days)
			if err != nil {
				return err
			}

			engineReq := timetable.GenerateRequest{Catalog: catalog, Days: days, MaxSteps: maxSteps, TimeSlots: req.TimeSlots}
			var existing []timetable.Section
			if schedulePath != "" {
				if len(req.TimeSlots) > 0 {
					return errors.New("timeSlots cannot be combined with --schedule")
				}
				pinned, err := loadSchedule(schedulePath)
				if err != nil {
					return err
				}
				if !req.PinnedEnabled() {
					fresh := timetable.NewStore(pinned.TimeSlots())
					for _, sec := range pinned.Sections() {
						if _, err := fresh.AddSection(sec.ID, sec.Track); err != nil {
							return err
						}
					}
					pinned = fresh
				}
				engineReq.Pinned = pinned
				engineReq.TimeSlots = nil
				existing = pinned.Sections()
			}
			plans, err := service.SectionPlans(req.Sections, existing)
			if err != nil {
				return err
			}
			if len(plans) == 0 {
				return errors.New("no sections to generate for")
			}
			engineReq.Sections = plans

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			started := time.Now()
			result, err := timetable.Generate(ctx, engineReq)
			if err != nil {
				var engineErr *timetable.Error
				if errors.As(err, &engineErr) && errors.Is(err, timetable.ErrInfeasible) {
					_ = root.writeJSON(cmd, infeasibleOutput{Error: engineErr.Error(), Gap: engineErr.Gap, Partial: engineErr.Partial})
				}
				return err
			}
			logr.Sugar().Infow("generation finished",
				"placed", len(result.Placed),
				"nodes", result.Stats.Nodes,
				"backtracks", result.Stats.Backtracks,
				"duration", time.Since(started),
			)
			return root.writeJSON(cmd, generateOutput{
				ScheduleDocument: service.SnapshotToDocument(result.Store.Snapshot(), nil),
				Stats:            result.Stats,
			})
		},
	}
	cmd.Flags().StringVarP(&requestPath, "request", "r", "", "generation request JSON")
	cmd.Flags().StringVarP(&schedulePath, "schedule", "s", "", "schedule document whose sessions stay pinned")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "abort the search after this long")
	cmd.Flags().IntVar(&maxSteps, "max-steps", timetable.DefaultMaxSteps, "search node budget")
	_ = cmd.MarkFlagRequired("request")
	return cmd
}
