package main

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/varunrout/energy-market-tracker/internal/breakers"
	"github.com/varunrout/energy-market-tracker/internal/cache"
	"github.com/varunrout/energy-market-tracker/internal/config"
	"github.com/varunrout/energy-market-tracker/internal/elexon"
	"github.com/varunrout/energy-market-tracker/internal/metrics"
	"github.com/varunrout/energy-market-tracker/internal/mockdata"
	"github.com/varunrout/energy-market-tracker/internal/ratelimit"
	"github.com/varunrout/energy-market-tracker/internal/sources"
	"github.com/varunrout/energy-market-tracker/internal/store"
	"github.com/varunrout/energy-market-tracker/internal/store/postgres"
)

// app holds the wired collaborators shared by all subcommands.
type app struct {
	cfg     *config.Config
	metrics *metrics.Registry
	cache   cache.Cache
	elexon  *elexon.Client
	sources *sources.Registry
	tables  store.TableStore
	prices  store.PriceStore

	pg *postgres.PricesRepo
}

// newApp loads configuration and builds the pipeline. Collaborators that
// cannot be built (missing API key, unreachable Postgres) are left nil and
// callers degrade accordingly.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:     cfg,
		metrics: metrics.New(),
		cache:   cache.NewAuto(cfg.RedisAddr),
	}

	limiter := ratelimit.New(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
	brks := breakers.NewRegistry()

	if key := config.APIKey("elexon"); key != "" {
		client, err := elexon.NewClient(elexon.Config{
			BaseURL: cfg.Sources.Elexon.BaseURL,
			APIKey:  key,
			Timeout: time.Duration(cfg.Sources.Elexon.TimeoutSecs) * time.Second,
			Limiter: limiter,
			Breaker: brks.For("elexon"),
			Cache:   a.cache,
			Metrics: a.metrics,
		})
		if err != nil {
			return nil, err
		}
		a.elexon = client
	} else {
		log.Warn().Msg("ELEXON_API_KEY not set, elexon source disabled")
	}

	mock := mockdata.New(cfg.Mock.PriceMin, cfg.Mock.PriceMax)
	a.sources = sources.NewRegistry(cfg.Sources, mock, a.metrics,
		sources.NewENTSOE(cfg.Sources.ENTSOE),
		sources.NewElexon(a.elexon),
		sources.NewEIA(cfg.Sources.EIA),
		sources.NewNordPool(cfg.Sources.NordPool),
	)

	csvStore, err := store.NewCSVStore(cfg.DataDir)
	if err != nil {
		return nil, err
	}
	a.tables = csvStore
	a.prices = csvStore

	if cfg.PostgresDSN != "" {
		repo, err := postgres.Connect(ctx, cfg.PostgresDSN, 10*time.Second)
		if err != nil {
			log.Warn().Err(err).Msg("postgres unavailable, falling back to csv store")
		} else {
			a.pg = repo
			a.prices = repo
		}
	}

	return a, nil
}

// close releases long-lived resources.
func (a *app) close() {
	if a.pg != nil {
		if err := a.pg.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close postgres")
		}
	}
}
