package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/programacion-segura/secure-api/internal/api"
)

func newServeCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, c)
		},
	}
}

func serve(ctx context.Context, c *cli) error {
	a, err := newApp(ctx, c.cfg, c.log)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.bootstrapAdmin(ctx, c.cfg.Admin.Username, c.cfg.Admin.Email, c.cfg.Admin.Password); err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              net.JoinHostPort("", c.cfg.Port),
		Handler:           api.NewRouter(a.routerDeps()),
		ReadTimeout:       c.cfg.HTTP.ReadTimeout,
		ReadHeaderTimeout: c.cfg.HTTP.ReadTimeout,
		WriteTimeout:      c.cfg.HTTP.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		c.log.Info().Str("addr", srv.Addr).Str("db", c.cfg.DB.Driver).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	c.log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), c.cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		c.log.Warn().Err(err).Msg("http server shutdown failed")
		return err
	}
	c.log.Info().Msg("goodbye")
	return nil
}
