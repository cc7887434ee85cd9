package sources

import (
	"context"
	"fmt"
	"time"

	"github.com/varunrout/energy-market-tracker/internal/config"
	"github.com/varunrout/energy-market-tracker/internal/elexon"
	"github.com/varunrout/energy-market-tracker/internal/market"
	"github.com/varunrout/energy-market-tracker/internal/normalize"
)

// Elexon fetches GB day-ahead auction prices through the Insights client,
// so the payload goes through the same normalization path as every other
// Elexon pull.
type Elexon struct {
	client *elexon.Client
	apiKey string
}

// NewElexon creates the Elexon price source. Returns a source that reports
// unavailable when no API key is configured.
func NewElexon(client *elexon.Client) *Elexon {
	return &Elexon{client: client, apiKey: config.APIKey("elexon")}
}

func (e *Elexon) Name() string { return "elexon" }

func (e *Elexon) Available() bool { return e.apiKey != "" && e.client != nil }

func (e *Elexon) Fetch(ctx context.Context, date time.Time) ([]market.PricePoint, error) {
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	table, err := e.client.Dataset(ctx, "DayAheadAuction", true, map[string]string{
		"publishDateTimeFrom": day.Format(time.RFC3339),
		"publishDateTimeTo":   day.AddDate(0, 0, 1).Format(time.RFC3339),
	})
	if err != nil {
		return nil, err
	}
	return PointsFromTable(table, day)
}

// PointsFromTable converts a normalized auction table into price points.
// Rows missing a settlement period or price are rejected; the table's
// column consistency guarantee means one bad row fails the batch.
func PointsFromTable(table normalize.Table, day time.Time) ([]market.PricePoint, error) {
	if table.Empty() {
		return nil, nil
	}
	if !table.HasColumn("settlementPeriod") || !table.HasColumn("price") {
		return nil, fmt.Errorf("auction table lacks settlementPeriod/price columns, got %v", table.Columns)
	}

	points := make([]market.PricePoint, 0, len(table.Rows))
	for i, row := range table.Rows {
		period, err := cellInt(row["settlementPeriod"])
		if err != nil {
			return nil, fmt.Errorf("row %d settlementPeriod: %w", i, err)
		}
		price, err := cellFloat(row["price"])
		if err != nil {
			return nil, fmt.Errorf("row %d price: %w", i, err)
		}

		settlementDay := day
		if s, ok := row["settlementDate"].(string); ok {
			if parsed, err := time.Parse("2006-01-02", s); err == nil {
				settlementDay = parsed.UTC()
			}
		}

		points = append(points, market.PricePoint{
			Time:  market.SettlementPeriodStart(settlementDay, period),
			Price: price,
		})
	}
	return points, nil
}
