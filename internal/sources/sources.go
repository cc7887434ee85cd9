// Package sources fetches day-ahead electricity prices from multiple
// upstream APIs with a configured preference order, falling back source by
// source and finally to synthetic data.
package sources

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/varunrout/energy-market-tracker/internal/breakers"
	"github.com/varunrout/energy-market-tracker/internal/config"
	"github.com/varunrout/energy-market-tracker/internal/market"
	"github.com/varunrout/energy-market-tracker/internal/metrics"
	"github.com/varunrout/energy-market-tracker/internal/mockdata"
)

// Fetcher pulls one day of day-ahead prices from a single upstream source.
type Fetcher interface {
	Name() string
	// Available reports whether the source can be queried (API key present).
	Available() bool
	Fetch(ctx context.Context, date time.Time) ([]market.PricePoint, error)
}

// Registry resolves the source preference chain.
type Registry struct {
	fetchers map[string]Fetcher
	order    []string
	mode     string
	mock     *mockdata.Generator
	breakers *breakers.Registry
	metrics  *metrics.Registry
}

// NewRegistry builds a registry from configuration. Fetchers are supplied
// by the caller so tests can inject fakes.
func NewRegistry(cfg config.SourcesConfig, mock *mockdata.Generator, m *metrics.Registry, fetchers ...Fetcher) *Registry {
	r := &Registry{
		fetchers: make(map[string]Fetcher, len(fetchers)),
		order:    cfg.Preferred,
		mode:     cfg.Mode,
		mock:     mock,
		breakers: breakers.NewRegistry(),
		metrics:  m,
	}
	for _, f := range fetchers {
		r.fetchers[f.Name()] = f
	}
	return r
}

// DayAheadPrices fetches prices for the given date, walking the preference
// chain until a source returns data. The returned series records which
// source answered and any sources that were tried and failed.
func (r *Registry) DayAheadPrices(ctx context.Context, date time.Time) (market.PriceSeries, error) {
	if r.mode == "mock" {
		log.Info().Msg("using mock prices (explicitly configured)")
		return r.mockSeries(date, nil), nil
	}

	candidates := r.order
	if r.mode != "" && r.mode != "auto" && r.mode != "all" {
		candidates = []string{r.mode}
	}

	var tried []string
	for _, name := range candidates {
		f, ok := r.fetchers[name]
		if !ok {
			log.Warn().Str("source", name).Msg("preferred source not registered")
			continue
		}
		if !f.Available() {
			log.Debug().Str("source", name).Msg("source skipped, no API key configured")
			continue
		}

		points, err := r.fetchGuarded(ctx, f, date)
		if err != nil {
			log.Warn().Err(err).Str("source", name).Msg("price source failed, trying next")
			r.countFallback(name)
			tried = append(tried, name)
			continue
		}
		if len(points) == 0 {
			log.Info().Str("source", name).Time("date", date).Msg("source returned no data")
			tried = append(tried, name)
			continue
		}

		return market.PriceSeries{
			Source:        name,
			FallbackChain: tried,
			FetchedAt:     time.Now().UTC(),
			Points:        points,
		}, nil
	}

	if r.mock == nil {
		return market.PriceSeries{}, fmt.Errorf("all price sources failed or returned no data (tried %v)", tried)
	}
	log.Warn().Strs("tried", tried).Msg("all price sources exhausted, falling back to mock data")
	return r.mockSeries(date, tried), nil
}

func (r *Registry) fetchGuarded(ctx context.Context, f Fetcher, date time.Time) ([]market.PricePoint, error) {
	res, err := r.breakers.For(f.Name()).Execute(func() (any, error) {
		return f.Fetch(ctx, date)
	})
	if err != nil {
		if r.metrics != nil {
			r.metrics.FetchErrors.WithLabelValues(f.Name(), "fetch").Inc()
		}
		return nil, err
	}
	return res.([]market.PricePoint), nil
}

func (r *Registry) mockSeries(date time.Time, tried []string) market.PriceSeries {
	return market.PriceSeries{
		Source:        "mock",
		FallbackChain: tried,
		FetchedAt:     time.Now().UTC(),
		Points:        r.mock.DayAheadPrices(date),
	}
}

func (r *Registry) countFallback(failed string) {
	if r.metrics == nil {
		return
	}
	r.metrics.SourceFallbacks.WithLabelValues(failed, "next").Inc()
}
