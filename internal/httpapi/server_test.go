package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/varunrout/energy-market-tracker/internal/config"
	"github.com/varunrout/energy-market-tracker/internal/market"
	"github.com/varunrout/energy-market-tracker/internal/metrics"
)

type fakeProvider struct {
	series market.PriceSeries
	err    error
	gotDay time.Time
}

func (f *fakeProvider) DayAheadPrices(_ context.Context, date time.Time) (market.PriceSeries, error) {
	f.gotDay = date
	return f.series, f.err
}

type fakeReader struct {
	points []market.PricePoint
	err    error
}

func (f *fakeReader) PricesBetween(_ context.Context, _, _ time.Time) ([]market.PricePoint, error) {
	return f.points, f.err
}

func hourlyPoints(n int) []market.PricePoint {
	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]market.PricePoint, n)
	for i := range out {
		out[i] = market.PricePoint{Time: day.Add(time.Duration(i) * time.Hour), Price: 40 + float64(i%10)}
	}
	return out
}

func newTestServer(provider PriceProvider, store PriceReader) *Server {
	cfg := DefaultServerConfig(config.HTTPConfig{Host: "127.0.0.1", Port: 8080})
	analysisCfg := config.Default().Analysis
	return NewServer(cfg, provider, store, analysisCfg, metrics.New())
}

func doGet(t *testing.T, s *Server, path string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	var body map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func TestHealth(t *testing.T) {
	s := newTestServer(nil, nil)
	rec, body := doGet(t, s, "/health")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.Contains(t, body, "metrics")
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestPrices(t *testing.T) {
	provider := &fakeProvider{series: market.PriceSeries{Source: "entsoe", Points: hourlyPoints(24)}}
	s := newTestServer(provider, nil)

	rec, body := doGet(t, s, "/api/v1/prices?date=2024-01-02")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "entsoe", body["source"])
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), provider.gotDay)
}

func TestPrices_BadDate(t *testing.T) {
	s := newTestServer(&fakeProvider{}, nil)
	rec, body := doGet(t, s, "/api/v1/prices?date=tomorrow")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, float64(http.StatusBadRequest), body["statusCode"])
	assert.Contains(t, body["message"], "YYYY-MM-DD")
}

func TestPrices_UpstreamFailure(t *testing.T) {
	s := newTestServer(&fakeProvider{err: fmt.Errorf("all price sources failed")}, nil)
	rec, _ := doGet(t, s, "/api/v1/prices")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestPrices_NoProvider(t *testing.T) {
	s := newTestServer(nil, nil)
	rec, _ := doGet(t, s, "/api/v1/prices")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestPriceHistory(t *testing.T) {
	s := newTestServer(nil, &fakeReader{points: hourlyPoints(48)})
	rec, body := doGet(t, s, "/api/v1/prices/history?from=2024-01-01&to=2024-01-03")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(48), body["count"])
}

func TestPriceHistory_FromAfterTo(t *testing.T) {
	s := newTestServer(nil, &fakeReader{})
	rec, _ := doGet(t, s, "/api/v1/prices/history?from=2024-02-01&to=2024-01-01")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestVolatility(t *testing.T) {
	s := newTestServer(nil, &fakeReader{points: hourlyPoints(48)})
	rec, body := doGet(t, s, "/api/v1/analysis/volatility?window=12")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(12), body["window"])
	assert.Len(t, body["points"], 48)
}

func TestVolatility_BadWindow(t *testing.T) {
	s := newTestServer(nil, &fakeReader{points: hourlyPoints(48)})
	rec, _ := doGet(t, s, "/api/v1/analysis/volatility?window=0")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnomalies(t *testing.T) {
	points := hourlyPoints(48)
	points[10].Price = 500 // spike
	s := newTestServer(nil, &fakeReader{points: points})

	rec, body := doGet(t, s, "/api/v1/analysis/anomalies")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), body["flagged"])
	assert.Len(t, body["points"], 48)
}

func TestSeasonal(t *testing.T) {
	s := newTestServer(nil, &fakeReader{points: hourlyPoints(7 * 24)})
	rec, body := doGet(t, s, "/api/v1/analysis/seasonal")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, body, "hourly_mean")
}

func TestPeakOffPeak(t *testing.T) {
	s := newTestServer(nil, &fakeReader{points: hourlyPoints(24)})
	rec, body := doGet(t, s, "/api/v1/analysis/peak-offpeak")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, body, "ratio")
}

func TestAnalysis_NoStore(t *testing.T) {
	s := newTestServer(nil, nil)
	rec, _ := doGet(t, s, "/api/v1/analysis/seasonal")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestNotFound(t *testing.T) {
	s := newTestServer(nil, nil)
	rec, body := doGet(t, s, "/api/v1/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not found", body["message"])
}
