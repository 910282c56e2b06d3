package main

import (
	"github.com/spf13/cobra"

	"github.com/noah-isme/timetable-api/pkg/config"
	"github.com/noah-isme/timetable-api/pkg/database"
	"github.com/noah-isme/timetable-api/scripts/migrations"
)

func newMigrateCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending PostgreSQL migrations using the DB_* settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			db, err := database.NewPostgres(cmd.Context(), cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close() //nolint:errcheck

			applied, err := database.Migrate(cmd.Context(), db, migrations.Files)
			if err != nil {
				return err
			}
			root.logger().Sugar().Infow("migrations applied", "count", len(applied))
			return root.writeJSON(cmd, map[string]interface{}{"applied": applied})
		},
	}
}
