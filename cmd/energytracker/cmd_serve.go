package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/varunrout/energy-market-tracker/internal/httpapi"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the read-only JSON API",
		Long: `Serve exposes health, Prometheus metrics, day-ahead prices and the
analysis endpoints over HTTP. The server binds to localhost by default.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			server := httpapi.NewServer(
				httpapi.DefaultServerConfig(a.cfg.HTTP),
				a.sources, a.prices, a.cfg.Analysis, a.metrics,
			)
			return runUntilSignal(server)
		},
	}
	return cmd
}

// runUntilSignal serves until SIGINT/SIGTERM, then drains for up to 10s.
func runUntilSignal(server *httpapi.Server) error {
	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(ctx)
}
