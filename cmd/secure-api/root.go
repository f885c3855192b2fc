package main

import (
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/programacion-segura/secure-api/internal/pkg/config"
	"github.com/programacion-segura/secure-api/pkg/logger"
)

const serviceName = "secure-api"

// cli carries what every subcommand needs once the root pre-run has loaded
// the environment.
type cli struct {
	cfg *config.Config
	log zerolog.Logger
}

func newRootCommand() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:           serviceName,
		Short:         "Authenticated user and vulnerability catalog API",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// .env is optional; real environment variables win.
			_ = godotenv.Load()

			cfg, err := config.Load(cmd.Context())
			if err != nil {
				return err
			}
			c.cfg = cfg
			c.log = logger.Init(logger.Options{
				Level:   cfg.LogLevel,
				Pretty:  cfg.LogPretty,
				Service: serviceName,
				Env:     cfg.Env,
			})
			return nil
		},
	}

	serve := newServeCommand(c)
	root.AddCommand(serve, newMigrateCommand(c), newBootstrapAdminCommand(c))
	// Running the binary without a subcommand starts the server.
	root.RunE = serve.RunE
	return root
}
