// Package elexon is a client for the Elexon Insights (BMRS) REST API. All
// responses flow through the payload normalizer so callers always receive
// uniform tables regardless of the endpoint's envelope shape.
package elexon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/varunrout/energy-market-tracker/internal/breakers"
	"github.com/varunrout/energy-market-tracker/internal/cache"
	"github.com/varunrout/energy-market-tracker/internal/metrics"
	"github.com/varunrout/energy-market-tracker/internal/normalize"
	"github.com/varunrout/energy-market-tracker/internal/ratelimit"
)

const sourceName = "elexon"

// APIError is a non-2xx response from the Insights API, detected at the
// transport layer before normalization runs.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("elexon API error: HTTP %d: %s", e.StatusCode, e.Message)
}

// Config parameterizes the client.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration

	// Optional collaborators; nil disables the concern.
	Limiter *ratelimit.Limiter
	Breaker *breakers.Breaker
	Cache   cache.Cache
	Metrics *metrics.Registry
}

// Client issues GET requests against the Insights API.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	limiter *ratelimit.Limiter
	breaker *breakers.Breaker
	cache   cache.Cache
	metrics *metrics.Registry
}

// NewClient creates an Insights API client. The API key is sent in the
// apiKey header on every request.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("elexon API key must be provided")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://data.elexon.co.uk/bmrs/api/v1"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: cfg.Limiter,
		breaker: cfg.Breaker,
		cache:   cfg.Cache,
		metrics: cfg.Metrics,
	}, nil
}

// Get fetches an endpoint by catalog key and returns the normalized table.
// Results are cached per endpoint and parameter set.
func (c *Client) Get(ctx context.Context, endpointKey string, params map[string]string) (normalize.Table, error) {
	ep, err := ResolveEndpoint(endpointKey)
	if err != nil {
		return normalize.Table{}, err
	}
	return c.GetEndpoint(ctx, ep, params)
}

// GetEndpoint fetches a resolved endpoint.
func (c *Client) GetEndpoint(ctx context.Context, ep Endpoint, params map[string]string) (normalize.Table, error) {
	key := cache.Key(sourceName, ep.Path, params)
	if c.cache != nil {
		var table normalize.Table
		if cache.GetJSON(ctx, c.cache, key, &table) {
			c.countCache(ep.Category, true)
			return table, nil
		}
		c.countCache(ep.Category, false)
	}

	body, err := c.get(ctx, ep.Path, params)
	if err != nil {
		return normalize.Table{}, err
	}

	table, err := normalize.Normalize(body, ep.Options)
	if err != nil {
		c.countNormalizeError(err)
		return normalize.Table{}, fmt.Errorf("normalize %s: %w", ep.Path, err)
	}

	if c.cache != nil {
		cache.SetJSON(ctx, c.cache, key, table, cache.TTLFor(ep.Category))
	}
	return table, nil
}

// get performs the rate-limited, breaker-guarded HTTP GET and returns the
// raw body. Error envelopes are rejected here, before normalization.
func (c *Client) get(ctx context.Context, path string, params map[string]string) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx, sourceName); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	do := func() (any, error) {
		return c.doGet(ctx, path, params)
	}

	var (
		body any
		err  error
	)
	if c.breaker != nil {
		body, err = c.breaker.Execute(do)
	} else {
		body, err = do()
	}
	if err != nil {
		c.countFetchError(err)
		return nil, err
	}
	return body.([]byte), nil
}

func (c *Client) doGet(ctx context.Context, path string, params map[string]string) ([]byte, error) {
	u := c.baseURL + path
	if len(params) > 0 {
		q := url.Values{}
		for k, v := range params {
			q.Set(k, v)
		}
		u += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("apiKey", c.apiKey)
	req.Header.Set("Accept", "application/json")

	requestID := uuid.NewString()
	start := time.Now()
	resp, err := c.http.Do(req)
	duration := time.Since(start)

	if c.metrics != nil {
		c.metrics.FetchDuration.WithLabelValues(sourceName, path).Observe(duration.Seconds())
	}

	if err != nil {
		log.Error().Err(err).Str("url", u).Str("request_id", requestID).Msg("elexon request failed")
		return nil, fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body from %s: %w", path, err)
	}

	if resp.StatusCode >= 400 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: resp.Status}
		var envelope struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(body, &envelope) == nil && envelope.Message != "" {
			apiErr.Message = envelope.Message
		}
		log.Warn().
			Int("status", resp.StatusCode).
			Str("path", path).
			Str("request_id", requestID).
			Msg("elexon API returned error status")
		return nil, apiErr
	}

	log.Debug().
		Str("path", path).
		Str("request_id", requestID).
		Dur("duration", duration).
		Int("bytes", len(body)).
		Msg("elexon response received")

	return body, nil
}

// GetRange fetches a catalog endpoint for a date range, using the range
// parameter names the endpoint's catalog entry declares.
func (c *Client) GetRange(ctx context.Context, endpointKey string, from, to time.Time) (normalize.Table, error) {
	ep, err := ResolveEndpoint(endpointKey)
	if err != nil {
		return normalize.Table{}, err
	}
	return c.GetEndpoint(ctx, ep, ep.RangeParams(from, to))
}

// Timestamped convenience wrappers for the endpoints the dashboards use.

// DemandActualTotal returns actual total load per settlement period.
func (c *Client) DemandActualTotal(ctx context.Context, from, to time.Time) (normalize.Table, error) {
	return c.GetRange(ctx, "demand/actual/total", from, to)
}

// GenerationPerType returns generation by fuel type, flattened and with
// psrType renamed to fuelType.
func (c *Client) GenerationPerType(ctx context.Context, from, to time.Time) (normalize.Table, error) {
	return c.GetRange(ctx, "generation/actual/per-type", from, to)
}

// WindAndSolar returns day-ahead wind and solar generation.
func (c *Client) WindAndSolar(ctx context.Context, from, to time.Time) (normalize.Table, error) {
	return c.GetRange(ctx, "generation/actual/per-type/wind-and-solar", from, to)
}

// AverageSystemPrices returns average system prices per settlement date.
func (c *Client) AverageSystemPrices(ctx context.Context, from, to time.Time) (normalize.Table, error) {
	ep, err := ResolveEndpoint("balancing/system-prices/average")
	if err != nil {
		return normalize.Table{}, err
	}
	params := ep.RangeParams(from, to)
	params["settlementPeriod"] = "*"
	return c.GetEndpoint(ctx, ep, params)
}

// Dataset fetches a raw BMRS dataset by code.
func (c *Client) Dataset(ctx context.Context, code string, stream bool, params map[string]string) (normalize.Table, error) {
	return c.GetEndpoint(ctx, DatasetEndpoint(code, stream), params)
}

func (c *Client) countCache(category string, hit bool) {
	if c.metrics == nil {
		return
	}
	if hit {
		c.metrics.CacheHits.WithLabelValues(category).Inc()
	} else {
		c.metrics.CacheMisses.WithLabelValues(category).Inc()
	}
}

func (c *Client) countFetchError(err error) {
	if c.metrics == nil {
		return
	}
	kind := "transport"
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		kind = fmt.Sprintf("http_%d", apiErr.StatusCode)
	}
	c.metrics.FetchErrors.WithLabelValues(sourceName, kind).Inc()
}

func (c *Client) countNormalizeError(err error) {
	if c.metrics == nil {
		return
	}
	kind := "malformed"
	var statusErr *normalize.UnexpectedStatusError
	if errors.As(err, &statusErr) {
		kind = "unexpected_status"
	}
	c.metrics.NormalizeErrors.WithLabelValues(kind).Inc()
}
