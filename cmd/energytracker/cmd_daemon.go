package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/varunrout/energy-market-tracker/internal/httpapi"
	"github.com/varunrout/energy-market-tracker/internal/scheduler"
)

func newDaemonCmd() *cobra.Command {
	var flagNoHTTP bool

	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run the scheduled pull jobs (and the API server)",
		Long: `Daemon registers the jobs from the config file with the cron runner
and keeps pulling on schedule. Unless --no-http is given it also serves
the JSON API so metrics and stored data stay inspectable.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			if a.elexon == nil {
				return fmt.Errorf("daemon requires ELEXON_API_KEY for scheduled pulls")
			}

			sched := scheduler.New(a.cfg.Jobs, a.elexon, a.tables, a.metrics)
			if err := sched.Start(ctx); err != nil {
				return err
			}
			defer sched.Stop()

			var server *httpapi.Server
			errCh := make(chan error, 1)
			if !flagNoHTTP {
				server = httpapi.NewServer(
					httpapi.DefaultServerConfig(a.cfg.HTTP),
					a.sources, a.prices, a.cfg.Analysis, a.metrics,
				)
				go func() { errCh <- server.Start() }()
			}

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

			select {
			case err := <-errCh:
				return err
			case sig := <-sigCh:
				log.Info().Str("signal", sig.String()).Msg("daemon shutting down")
			}

			if server != nil {
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer shutdownCancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&flagNoHTTP, "no-http", false, "Run jobs only, without the API server")
	return cmd
}
