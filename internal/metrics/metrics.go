// Package metrics exposes Prometheus instrumentation for the fetch,
// normalize and cache paths.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// Registry holds all tracker metrics.
type Registry struct {
	FetchDuration   *prometheus.HistogramVec
	FetchErrors     *prometheus.CounterVec
	NormalizeErrors *prometheus.CounterVec
	CacheHits       *prometheus.CounterVec
	CacheMisses     *prometheus.CounterVec
	SourceFallbacks *prometheus.CounterVec
	RowsStored      *prometheus.CounterVec
	ScheduledRuns   *prometheus.CounterVec

	reg *prometheus.Registry
}

// New creates a registry with all tracker metrics registered.
func New() *Registry {
	r := &Registry{
		FetchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "energytracker_fetch_duration_seconds",
				Help:    "Duration of upstream API fetches in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
			},
			[]string{"source", "endpoint"},
		),
		FetchErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "energytracker_fetch_errors_total",
				Help: "Total upstream fetch failures by source and error kind",
			},
			[]string{"source", "kind"},
		),
		NormalizeErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "energytracker_normalize_errors_total",
				Help: "Total payload normalization failures by error kind",
			},
			[]string{"kind"},
		),
		CacheHits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "energytracker_cache_hits_total",
				Help: "Total cache hits by data category",
			},
			[]string{"category"},
		),
		CacheMisses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "energytracker_cache_misses_total",
				Help: "Total cache misses by data category",
			},
			[]string{"category"},
		),
		SourceFallbacks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "energytracker_source_fallbacks_total",
				Help: "Total fallbacks from one price source to the next",
			},
			[]string{"from", "to"},
		),
		RowsStored: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "energytracker_rows_stored_total",
				Help: "Total rows written to persistent storage by backend",
			},
			[]string{"backend"},
		),
		ScheduledRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "energytracker_scheduled_runs_total",
				Help: "Total scheduled job executions by job and result",
			},
			[]string{"job", "result"},
		),
		reg: prometheus.NewRegistry(),
	}

	r.reg.MustRegister(
		r.FetchDuration,
		r.FetchErrors,
		r.NormalizeErrors,
		r.CacheHits,
		r.CacheMisses,
		r.SourceFallbacks,
		r.RowsStored,
		r.ScheduledRuns,
	)
	return r
}

// Prometheus returns the underlying registry for the /metrics handler.
func (r *Registry) Prometheus() *prometheus.Registry {
	return r.reg
}

// Snapshot gathers all metric families and returns sample counts per
// family, used by the health endpoint.
func (r *Registry) Snapshot() (map[string]int, error) {
	families, err := r.reg.Gather()
	if err != nil {
		return nil, fmt.Errorf("failed to gather metrics: %w", err)
	}

	counts := make(map[string]int, len(families))
	for _, mf := range families {
		counts[mf.GetName()] = countSamples(mf)
	}
	return counts, nil
}

func countSamples(mf *dto.MetricFamily) int {
	return len(mf.GetMetric())
}
