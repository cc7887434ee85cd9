package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/varunrout/energy-market-tracker/internal/config"
	"github.com/varunrout/energy-market-tracker/internal/market"
)

// EIA fetches US regional electricity prices from the EIA series API,
// converted to EUR/MWh with the configured rate.
type EIA struct {
	cfg    config.EIAConfig
	apiKey string
	http   *http.Client
}

// NewEIA creates the EIA source. The key comes from EIA_API_KEY.
func NewEIA(cfg config.EIAConfig) *EIA {
	return &EIA{
		cfg:    cfg,
		apiKey: config.APIKey("eia"),
		http:   &http.Client{Timeout: 30 * time.Second},
	}
}

func (e *EIA) Name() string { return "eia" }

func (e *EIA) Available() bool { return e.apiKey != "" }

func (e *EIA) Fetch(ctx context.Context, date time.Time) ([]market.PricePoint, error) {
	q := url.Values{}
	q.Set("api_key", e.apiKey)
	q.Set("series_id", e.cfg.SeriesID)
	q.Set("start", date.UTC().Format("20060102T00"))
	q.Set("end", date.UTC().Format("20060102T23"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.cfg.APIURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := e.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("eia request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("eia returned HTTP %d", resp.StatusCode)
	}

	var payload struct {
		Series []struct {
			Data [][]any `json:"data"`
		} `json:"series"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("eia payload parse: %w", err)
	}
	if len(payload.Series) == 0 {
		return nil, nil
	}

	var points []market.PricePoint
	for _, pair := range payload.Series[0].Data {
		if len(pair) != 2 {
			return nil, fmt.Errorf("eia data pair has %d elements, want 2", len(pair))
		}
		stamp, ok := pair[0].(string)
		if !ok {
			return nil, fmt.Errorf("eia timestamp %v is not a string", pair[0])
		}
		ts, err := time.Parse("20060102T15Z", stamp)
		if err != nil {
			return nil, fmt.Errorf("eia timestamp %q: %w", stamp, err)
		}
		price, err := cellFloat(pair[1])
		if err != nil {
			return nil, fmt.Errorf("eia price at %s: %w", stamp, err)
		}
		points = append(points, market.PricePoint{
			Time:  ts.UTC(),
			Price: price * e.cfg.USDToEUR,
		})
	}
	return points, nil
}
