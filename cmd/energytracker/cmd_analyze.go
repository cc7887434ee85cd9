package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/varunrout/energy-market-tracker/internal/analysis"
	"github.com/varunrout/energy-market-tracker/internal/market"
)

func newAnalyzeCmd() *cobra.Command {
	var (
		flagFrom string
		flagTo   string
		flagDays int
	)

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Run price analytics over stored data",
		Long: `Analyze loads stored day-ahead prices and prints volatility,
anomaly, peak/off-peak and seasonal summaries as JSON.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			to := time.Now().UTC()
			from := to.AddDate(0, 0, -flagDays)
			if flagFrom != "" {
				if from, err = time.Parse("2006-01-02", flagFrom); err != nil {
					return fmt.Errorf("--from must be YYYY-MM-DD: %w", err)
				}
			}
			if flagTo != "" {
				if to, err = time.Parse("2006-01-02", flagTo); err != nil {
					return fmt.Errorf("--to must be YYYY-MM-DD: %w", err)
				}
			}

			points, err := a.prices.PricesBetween(ctx, from, to)
			if err != nil {
				return err
			}
			if len(points) == 0 {
				return fmt.Errorf("no stored prices between %s and %s, run fetch first",
					from.Format("2006-01-02"), to.Format("2006-01-02"))
			}

			cfg := a.cfg.Analysis
			vol, err := analysis.Volatility(points, cfg.VolatilityWindow)
			if err != nil {
				return err
			}
			ratio, err := analysis.PeakOffPeakRatio(points, cfg.PeakHourStart, cfg.PeakHourEnd)
			if err != nil {
				return err
			}

			scored := analysis.DetectAnomalies(points, cfg.AnomalyZScore)
			var anomalies []analysis.AnomalyPoint
			for _, p := range scored {
				if p.IsAnomaly {
					anomalies = append(anomalies, p)
				}
			}

			report := map[string]any{
				"from":             from.Format("2006-01-02"),
				"to":               to.Format("2006-01-02"),
				"points":           len(points),
				"volatility":       vol[len(vol)-1],
				"anomalies":        anomalies,
				"peak_offpeak":     ratio,
				"seasonal":         analysis.SeasonalPatterns(points),
				"features_preview": previewFeatures(points),
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		},
	}

	cmd.Flags().StringVar(&flagFrom, "from", "", "Range start, YYYY-MM-DD")
	cmd.Flags().StringVar(&flagTo, "to", "", "Range end, YYYY-MM-DD")
	cmd.Flags().IntVar(&flagDays, "days", 7, "Days back from now when --from is not given")
	return cmd
}

// previewFeatures returns the last few engineered feature rows so the
// report shows what a downstream consumer would receive.
func previewFeatures(points []market.PricePoint) []analysis.FeatureRow {
	rows := analysis.BuildFeatures(points, analysis.DefaultLags, analysis.DefaultWindows)
	if len(rows) > 3 {
		rows = rows[len(rows)-3:]
	}
	return rows
}
