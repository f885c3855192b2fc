package main

import (
	"errors"

	"github.com/spf13/cobra"
)

func newBootstrapAdminCommand(c *cli) *cobra.Command {
	var username, email string

	cmd := &cobra.Command{
		Use:   "bootstrap-admin",
		Short: "Create the first admin account if none exists",
		Long: "Creates an admin from ADMIN_USERNAME, ADMIN_EMAIL and ADMIN_PASSWORD.\n" +
			"Does nothing when an admin is already present.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if c.cfg.Admin.Password == "" {
				return errors.New("ADMIN_PASSWORD must be set")
			}
			if !cmd.Flags().Changed("username") {
				username = c.cfg.Admin.Username
			}
			if !cmd.Flags().Changed("email") {
				email = c.cfg.Admin.Email
			}

			a, err := newApp(cmd.Context(), c.cfg, c.log)
			if err != nil {
				return err
			}
			defer a.Close()
			return a.bootstrapAdmin(cmd.Context(), username, email, c.cfg.Admin.Password)
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "admin username (default ADMIN_USERNAME)")
	cmd.Flags().StringVar(&email, "email", "", "admin email (default ADMIN_EMAIL)")
	return cmd
}
