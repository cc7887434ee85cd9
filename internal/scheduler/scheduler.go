// Package scheduler runs the configured pull jobs on cron schedules: fetch
// an endpoint, canonicalize the table and persist it.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/varunrout/energy-market-tracker/internal/config"
	"github.com/varunrout/energy-market-tracker/internal/elexon"
	"github.com/varunrout/energy-market-tracker/internal/market"
	"github.com/varunrout/energy-market-tracker/internal/metrics"
	"github.com/varunrout/energy-market-tracker/internal/normalize"
	"github.com/varunrout/energy-market-tracker/internal/store"
	"github.com/varunrout/energy-market-tracker/internal/transform"
)

// Fetcher pulls one endpoint's table. Satisfied by *elexon.Client.
type Fetcher interface {
	Get(ctx context.Context, endpointKey string, params map[string]string) (normalize.Table, error)
}

// JobResult records one job execution for the status log.
type JobResult struct {
	Job      string
	Rows     int
	Path     string
	Duration time.Duration
	Err      error
}

// Scheduler owns the cron runner and the job pipeline.
type Scheduler struct {
	cron    *cron.Cron
	fetcher Fetcher
	tables  store.TableStore
	metrics *metrics.Registry
	jobs    []config.JobConfig

	// results receives every completed run; nil unless a listener asked.
	results chan JobResult
}

// New builds a scheduler for the enabled jobs. metrics may be nil.
func New(jobs []config.JobConfig, fetcher Fetcher, tables store.TableStore, m *metrics.Registry) *Scheduler {
	return &Scheduler{
		cron:    cron.New(cron.WithSeconds()),
		fetcher: fetcher,
		tables:  tables,
		metrics: m,
		jobs:    jobs,
	}
}

// Results returns a channel carrying completed runs. Must be called before
// Start; the channel is never closed.
func (s *Scheduler) Results() <-chan JobResult {
	if s.results == nil {
		s.results = make(chan JobResult, 16)
	}
	return s.results
}

// Start registers all enabled jobs and begins the cron loop.
func (s *Scheduler) Start(ctx context.Context) error {
	registered := 0
	for _, job := range s.jobs {
		if !job.Enabled {
			continue
		}
		job := job
		_, err := s.cron.AddFunc(job.Schedule, func() {
			s.runJob(ctx, job)
		})
		if err != nil {
			return fmt.Errorf("job %s: bad schedule %q: %w", job.Name, job.Schedule, err)
		}
		registered++
		log.Info().Str("job", job.Name).Str("schedule", job.Schedule).Msg("job registered")
	}
	if registered == 0 {
		return fmt.Errorf("no enabled jobs configured")
	}

	s.cron.Start()
	log.Info().Int("jobs", registered).Msg("scheduler started")
	return nil
}

// Stop halts the cron loop and waits for running jobs.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Info().Msg("scheduler stopped")
}

// RunOnce executes a single job immediately, outside the cron loop.
func (s *Scheduler) RunOnce(ctx context.Context, name string) (JobResult, error) {
	for _, job := range s.jobs {
		if job.Name == name {
			return s.runJob(ctx, job), nil
		}
	}
	return JobResult{}, fmt.Errorf("unknown job %q", name)
}

func (s *Scheduler) runJob(ctx context.Context, job config.JobConfig) JobResult {
	start := time.Now()
	result := JobResult{Job: job.Name}

	table, err := s.fetcher.Get(ctx, job.Endpoint, s.resolveParams(job.Params))
	if err == nil {
		var canonical normalize.Table
		canonical, err = transform.Canonicalize(table, market.SettlementPeriodDuration)
		if err == nil {
			result.Rows = len(canonical.Rows)
			result.Path, err = s.tables.SaveTable(ctx, job.Name, canonical)
		}
	}

	result.Err = err
	result.Duration = time.Since(start)
	s.finish(result)
	return result
}

func (s *Scheduler) finish(r JobResult) {
	outcome := "ok"
	if r.Err != nil {
		outcome = "error"
		var apiErr *elexon.APIError
		if errors.As(r.Err, &apiErr) {
			outcome = fmt.Sprintf("http_%d", apiErr.StatusCode)
		}
		log.Error().Err(r.Err).Str("job", r.Job).Dur("duration", r.Duration).Msg("job failed")
	} else {
		log.Info().Str("job", r.Job).Int("rows", r.Rows).Str("path", r.Path).
			Dur("duration", r.Duration).Msg("job completed")
	}

	if s.metrics != nil {
		s.metrics.ScheduledRuns.WithLabelValues(r.Job, outcome).Inc()
		if r.Err == nil {
			s.metrics.RowsStored.WithLabelValues("csv").Add(float64(r.Rows))
		}
	}

	if s.results != nil {
		select {
		case s.results <- r:
		default: // listener fell behind, drop
		}
	}
}

// resolveParams expands the placeholders {today}, {yesterday} and {tomorrow}
// so job configs can express rolling windows.
func (s *Scheduler) resolveParams(params map[string]string) map[string]string {
	if len(params) == 0 {
		return nil
	}
	now := time.Now().UTC()
	dates := map[string]string{
		"{today}":     now.Format("2006-01-02"),
		"{yesterday}": now.AddDate(0, 0, -1).Format("2006-01-02"),
		"{tomorrow}":  now.AddDate(0, 0, 1).Format("2006-01-02"),
	}
	out := make(map[string]string, len(params))
	for k, v := range params {
		if expanded, ok := dates[v]; ok {
			v = expanded
		}
		out[k] = v
	}
	return out
}
