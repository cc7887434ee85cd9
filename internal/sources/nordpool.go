package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/varunrout/energy-market-tracker/internal/config"
	"github.com/varunrout/energy-market-tracker/internal/market"
)

// NordPool fetches Nordic day-ahead prices from the Nord Pool market-data
// page endpoint. The endpoint is public; an API key is not required.
type NordPool struct {
	cfg  config.NordPoolConfig
	http *http.Client
}

// NewNordPool creates the Nord Pool source.
func NewNordPool(cfg config.NordPoolConfig) *NordPool {
	return &NordPool{cfg: cfg, http: &http.Client{Timeout: 30 * time.Second}}
}

func (n *NordPool) Name() string { return "nordpool" }

// Available is always true: the market-data page needs no key.
func (n *NordPool) Available() bool { return true }

func (n *NordPool) Fetch(ctx context.Context, date time.Time) ([]market.PricePoint, error) {
	q := url.Values{}
	q.Set("currency", n.cfg.Currency)
	q.Set("endDate", date.UTC().Format("02-01-2006"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.cfg.APIURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "energy-market-tracker/1.0")

	resp, err := n.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("nordpool request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("nordpool returned HTTP %d", resp.StatusCode)
	}

	var payload struct {
		Data struct {
			Rows []struct {
				IsExtraRow bool   `json:"IsExtraRow"`
				Name       string `json:"Name"`
				Columns    []struct {
					Name  string `json:"Name"`
					Value string `json:"Value"`
				} `json:"Columns"`
			} `json:"Rows"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("nordpool payload parse: %w", err)
	}

	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	var points []market.PricePoint
	for _, row := range payload.Data.Rows {
		if row.IsExtraRow {
			continue
		}
		hour, err := parseRowHour(row.Name)
		if err != nil {
			continue // non-hourly summary rows ("Min", "Max", ...)
		}
		for _, col := range row.Columns {
			if col.Name != n.cfg.Area {
				continue
			}
			price, err := parseNordicDecimal(col.Value)
			if err != nil {
				return nil, fmt.Errorf("nordpool price for hour %d: %w", hour, err)
			}
			points = append(points, market.PricePoint{
				Time:  dayStart.Add(time.Duration(hour) * time.Hour),
				Price: price,
			})
			break
		}
	}
	return points, nil
}

// parseRowHour extracts the hour from row labels like "00 - 01" or "08:00".
func parseRowHour(name string) (int, error) {
	head := strings.Split(name, " - ")[0]
	head = strings.Split(head, ":")[0]
	hour, err := strconv.Atoi(strings.TrimSpace(head))
	if err != nil || hour < 0 || hour > 23 {
		return 0, fmt.Errorf("row label %q has no hour", name)
	}
	return hour, nil
}

// parseNordicDecimal handles comma decimal separators and space grouping.
func parseNordicDecimal(s string) (float64, error) {
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, "\u00a0", "")
	s = strings.ReplaceAll(s, ",", ".")
	return strconv.ParseFloat(s, 64)
}
