package main

import (
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/noah-isme/timetable-api/internal/models"
	"github.com/noah-isme/timetable-api/internal/service"
	"github.com/noah-isme/timetable-api/pkg/config"
)

func newTokenCmd(root *rootOptions) *cobra.Command {
	var (
		subject string
		role    string
		name    string
		expiry  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an operator bearer token signed with JWT_SECRET",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if expiry <= 0 {
				expiry = cfg.JWT.Expiration
			}
			tokens := service.NewTokenService(service.TokenConfig{Secret: cfg.JWT.Secret, Expiry: expiry})
			signed, expiresAt, err := tokens.Issue(subject, models.UserRole(strings.ToUpper(role)), name)
			if err != nil {
				return err
			}
			return root.writeJSON(cmd, map[string]interface{}{"token": signed, "expiresAt": expiresAt})
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "", "token subject (user id)")
	cmd.Flags().StringVar(&role, "role", string(models.RoleAdmin), "SUPERADMIN, ADMIN or VIEWER")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().DurationVar(&expiry, "expiry", 0, "token lifetime, defaults to JWT_EXPIRATION")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}
