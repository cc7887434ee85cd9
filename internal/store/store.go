// Package store persists normalized tables and price series. The CSV store
// is the default file-based backend; a Postgres repository is available for
// durable, queryable storage.
package store

import (
	"context"
	"time"

	"github.com/varunrout/energy-market-tracker/internal/market"
	"github.com/varunrout/energy-market-tracker/internal/normalize"
)

// TableStore persists normalized tables under a logical dataset name.
type TableStore interface {
	// SaveTable merges the table into the dataset's current file,
	// deduplicating on the time column, and returns the written path.
	SaveTable(ctx context.Context, name string, table normalize.Table) (string, error)
}

// PriceStore persists and queries the day-ahead price series.
type PriceStore interface {
	SavePrices(ctx context.Context, series market.PriceSeries) (int, error)
	PricesBetween(ctx context.Context, from, to time.Time) ([]market.PricePoint, error)
}
