package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/timetable-api/internal/dto"
	"github.com/noah-isme/timetable-api/internal/service"
	"github.com/noah-isme/timetable-api/internal/timetable"
)

type rootOptions struct {
	output  string
	verbose bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "timetablectl",
		Short:         "Run the timetable engine on JSON files",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	cmd.PersistentFlags().StringVarP(&opts.output, "output", "o", "", "write the result to this file instead of stdout")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log progress to stderr")

	cmd.AddCommand(
		newGenerateCmd(opts),
		newValidateCmd(opts),
		newCheckCmd(opts),
		newMigrateCmd(opts),
		newTokenCmd(opts),
	)
	return cmd
}

func (o *rootOptions) logger() *zap.Logger {
	if !o.verbose {
		return zap.NewNop()
	}
	l, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return l
}

// writeJSON renders v as indented JSON to --output or the command's stdout.
func (o *rootOptions) writeJSON(cmd *cobra.Command, v interface{}) error {
	var w io.Writer = cmd.OutOrStdout()
	if o.output != "" {
		f, err := os.Create(o.output)
		if err != nil {
			return fmt.Errorf("create %s: %w", o.output, err)
		}
		defer f.Close() //nolint:errcheck
		w = f
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func readJSON(path string, dest interface{}) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// loadSchedule reads a schedule document and builds a store from it.
func loadSchedule(path string) (*timetable.Store, error) {
	var doc dto.ScheduleDocument
	if err := readJSON(path, &doc); err != nil {
		return nil, err
	}
	if err := validator.New().Struct(doc); err != nil {
		return nil, fmt.Errorf("invalid schedule %s: %w", path, err)
	}
	snap, err := service.DocumentToSnapshot(doc)
	if err != nil {
		return nil, fmt.Errorf("invalid schedule %s: %w", path, err)
	}
	return timetable.FromSnapshot(snap), nil
}
