// Package httpapi serves the read-only JSON API: health, Prometheus metrics,
// day-ahead prices and the analysis endpoints.
package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/varunrout/energy-market-tracker/internal/config"
	"github.com/varunrout/energy-market-tracker/internal/market"
	"github.com/varunrout/energy-market-tracker/internal/metrics"
)

// PriceProvider fetches the day-ahead series for a date, falling back across
// sources as configured.
type PriceProvider interface {
	DayAheadPrices(ctx context.Context, date time.Time) (market.PriceSeries, error)
}

// PriceReader queries stored historical prices.
type PriceReader interface {
	PricesBetween(ctx context.Context, from, to time.Time) ([]market.PricePoint, error)
}

// ServerConfig holds the HTTP server settings.
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DefaultServerConfig binds to localhost with conservative timeouts.
func DefaultServerConfig(cfg config.HTTPConfig) ServerConfig {
	return ServerConfig{
		Host:         cfg.Host,
		Port:         cfg.Port,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// Server is the read-only API server.
type Server struct {
	router   *mux.Router
	server   *http.Server
	config   ServerConfig
	provider PriceProvider
	store    PriceReader
	analysis config.AnalysisConfig
	metrics  *metrics.Registry
	started  time.Time
}

// NewServer wires routes and middleware. provider and store may be nil; the
// corresponding endpoints then answer 503.
func NewServer(cfg ServerConfig, provider PriceProvider, store PriceReader, analysisCfg config.AnalysisConfig, m *metrics.Registry) *Server {
	s := &Server{
		router:   mux.NewRouter(),
		config:   cfg,
		provider: provider,
		store:    store,
		analysis: analysisCfg,
		metrics:  m,
		started:  time.Now().UTC(),
	}
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(s.requestIDMiddleware)
	s.router.Use(s.loggingMiddleware)

	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	if s.metrics != nil {
		s.router.Handle("/metrics", promhttp.HandlerFor(s.metrics.Prometheus(), promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}

	api := s.router.PathPrefix("/api/v1").Subrouter()
	api.Use(jsonContentTypeMiddleware)
	api.HandleFunc("/prices", s.handlePrices).Methods(http.MethodGet)
	api.HandleFunc("/prices/history", s.handlePriceHistory).Methods(http.MethodGet)
	api.HandleFunc("/analysis/volatility", s.handleVolatility).Methods(http.MethodGet)
	api.HandleFunc("/analysis/anomalies", s.handleAnomalies).Methods(http.MethodGet)
	api.HandleFunc("/analysis/seasonal", s.handleSeasonal).Methods(http.MethodGet)
	api.HandleFunc("/analysis/peak-offpeak", s.handlePeakOffPeak).Methods(http.MethodGet)

	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler { return s.router }

// Start blocks serving requests until the listener fails or Shutdown runs.
func (s *Server) Start() error {
	log.Info().Str("addr", s.server.Addr).Msg("http server listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("http server shutting down")
	return s.server.Shutdown(ctx)
}

func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.New().String()[:8]
		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapper := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapper, r)

		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", wrapper.status).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

func jsonContentTypeMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
