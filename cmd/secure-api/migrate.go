package main

import (
	"github.com/spf13/cobra"

	"github.com/programacion-segura/secure-api/internal/infrastructure/db/sqlstore"
)

func newMigrateCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := openStore(cmd.Context(), c.cfg)
			if err != nil {
				return err
			}
			defer db.Close()
			return sqlstore.Migrate(cmd.Context(), db, c.log)
		},
	}
}
