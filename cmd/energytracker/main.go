package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const (
	appName = "energytracker"
	version = "1.0.0"
)

var (
	flagConfig  string
	flagVerbose bool
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	rootCmd := &cobra.Command{
		Use:     appName,
		Short:   "Energy market data tracker and analyzer",
		Version: version,
		Long: `Energy market tracker pulls day-ahead electricity prices and grid data
from ENTSO-E, Elexon Insights, EIA and Nord Pool, normalizes the payloads
into consistent tables and serves analytics over a read-only JSON API.`,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			if flagVerbose {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
				cmd.Flags().VisitAll(func(f *pflag.Flag) {
					if f.Changed {
						log.Debug().Str("flag", f.Name).Str("value", f.Value.String()).Msg("flag set")
					}
				})
			} else {
				zerolog.SetGlobalLevel(zerolog.InfoLevel)
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "Path to config YAML (default: built-in defaults)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(newFetchCmd())
	rootCmd.AddCommand(newAnalyzeCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newDaemonCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
