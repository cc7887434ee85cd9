package sources

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/varunrout/energy-market-tracker/internal/config"
	"github.com/varunrout/energy-market-tracker/internal/market"
)

// ENTSOE fetches GB day-ahead prices from the ENTSO-E transparency
// platform. Responses are IEC 62325 publication documents (XML).
type ENTSOE struct {
	cfg    config.ENTSOEConfig
	apiKey string
	http   *http.Client
}

// NewENTSOE creates the ENTSO-E source. The security token comes from the
// ENTSOE_API_KEY environment variable.
func NewENTSOE(cfg config.ENTSOEConfig) *ENTSOE {
	return &ENTSOE{
		cfg:    cfg,
		apiKey: config.APIKey("entsoe"),
		http:   &http.Client{Timeout: 30 * time.Second},
	}
}

func (e *ENTSOE) Name() string { return "entsoe" }

func (e *ENTSOE) Available() bool { return e.apiKey != "" }

// publicationDocument is the slice of the A44 price document we consume.
type publicationDocument struct {
	TimeSeries []struct {
		Period []struct {
			TimeInterval struct {
				Start string `xml:"start"`
			} `xml:"timeInterval"`
			Resolution string `xml:"resolution"`
			Point      []struct {
				Position int     `xml:"position"`
				Price    float64 `xml:"price.amount"`
			} `xml:"Point"`
		} `xml:"Period"`
	} `xml:"TimeSeries"`
}

func (e *ENTSOE) Fetch(ctx context.Context, date time.Time) ([]market.PricePoint, error) {
	day := date.UTC().Format("20060102")
	q := url.Values{}
	q.Set("documentType", e.cfg.DocType)
	q.Set("processType", e.cfg.ProcessType)
	q.Set("in_Domain", e.cfg.InDomain)
	q.Set("out_Domain", e.cfg.OutDomain)
	q.Set("periodStart", day+"0000")
	q.Set("periodEnd", day+"2359")
	q.Set("securityToken", e.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.cfg.APIURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := e.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("entsoe request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("entsoe returned HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var doc publicationDocument
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("entsoe document parse: %w", err)
	}

	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	var points []market.PricePoint
	for _, ts := range doc.TimeSeries {
		for _, period := range ts.Period {
			step := resolutionStep(period.Resolution)
			for _, pt := range period.Point {
				points = append(points, market.PricePoint{
					Time:  dayStart.Add(time.Duration(pt.Position-1) * step),
					Price: pt.Price,
				})
			}
		}
	}
	return points, nil
}

// resolutionStep maps an ISO 8601 duration resolution to the point spacing.
func resolutionStep(resolution string) time.Duration {
	switch resolution {
	case "PT30M":
		return 30 * time.Minute
	case "PT15M":
		return 15 * time.Minute
	default: // PT60M and anything unrecognized
		return time.Hour
	}
}
