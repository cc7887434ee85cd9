package store

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/varunrout/energy-market-tracker/internal/market"
	"github.com/varunrout/energy-market-tracker/internal/normalize"
)

func priceTable(times []string, prices []string) normalize.Table {
	t := normalize.Table{Columns: []string{"startTime", "price"}}
	for i := range times {
		t.Rows = append(t.Rows, normalize.Record{"startTime": times[i], "price": prices[i]})
	}
	return t
}

func TestCSVStore_SaveAndReadBack(t *testing.T) {
	s, err := NewCSVStore(t.TempDir())
	require.NoError(t, err)

	table := priceTable(
		[]string{"2024-01-01T00:00:00Z", "2024-01-01T00:30:00Z"},
		[]string{"50.5", "48"},
	)
	path, err := s.SaveTable(context.Background(), "system-prices", table)
	require.NoError(t, err)
	require.NotEmpty(t, path)
	assert.Contains(t, filepath.Base(path), "system-prices_")

	got, err := ReadTable(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"startTime", "price"}, got.Columns)
	require.Len(t, got.Rows, 2)
	assert.Equal(t, "50.5", got.Rows[0]["price"])
}

func TestCSVStore_MergeDeduplicatesOnTime(t *testing.T) {
	s, err := NewCSVStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	first := priceTable([]string{"2024-01-01T00:00:00Z"}, []string{"50"})
	_, err = s.SaveTable(ctx, "prices-raw", first)
	require.NoError(t, err)

	// Second pull overlaps on the first timestamp with a revised value.
	second := priceTable(
		[]string{"2024-01-01T00:00:00Z", "2024-01-01T00:30:00Z"},
		[]string{"99", "48"},
	)
	path, err := s.SaveTable(ctx, "prices-raw", second)
	require.NoError(t, err)

	got, err := ReadTable(path)
	require.NoError(t, err)
	require.Len(t, got.Rows, 2)
	// Existing row wins on collision.
	assert.Equal(t, "50", got.Rows[0]["price"])
	assert.Equal(t, "48", got.Rows[1]["price"])
}

func TestCSVStore_MergeUnionsColumns(t *testing.T) {
	s, err := NewCSVStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	first := normalize.Table{
		Columns: []string{"startTime", "price"},
		Rows:    []normalize.Record{{"startTime": "2024-01-01T00:00:00Z", "price": "50"}},
	}
	_, err = s.SaveTable(ctx, "mixed", first)
	require.NoError(t, err)

	second := normalize.Table{
		Columns: []string{"startTime", "volume"},
		Rows:    []normalize.Record{{"startTime": "2024-01-01T00:30:00Z", "volume": "12"}},
	}
	path, err := s.SaveTable(ctx, "mixed", second)
	require.NoError(t, err)

	got, err := ReadTable(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"startTime", "price", "volume"}, got.Columns)
	require.Len(t, got.Rows, 2)
	assert.Nil(t, got.Rows[0]["volume"])
	assert.Equal(t, "12", got.Rows[1]["volume"])
}

func TestCSVStore_EmptyTableIsNoOp(t *testing.T) {
	s, err := NewCSVStore(t.TempDir())
	require.NoError(t, err)

	path, err := s.SaveTable(context.Background(), "nothing", normalize.Table{})
	require.NoError(t, err)
	assert.Empty(t, path)
}

func TestCSVStore_PricesRoundTrip(t *testing.T) {
	s, err := NewCSVStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	series := market.PriceSeries{Source: "entsoe", FetchedAt: time.Now()}
	for i := 0; i < 4; i++ {
		series.Points = append(series.Points, market.PricePoint{
			Time:  day.Add(time.Duration(i) * time.Hour),
			Price: 40 + float64(i),
		})
	}

	n, err := s.SavePrices(ctx, series)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	points, err := s.PricesBetween(ctx, day.Add(time.Hour), day.Add(3*time.Hour))
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, day.Add(time.Hour), points[0].Time)
	assert.Equal(t, 41.0, points[0].Price)
	assert.Equal(t, 42.0, points[1].Price)
}

func TestCSVStore_PricesBetweenDeduplicates(t *testing.T) {
	s, err := NewCSVStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	series := market.PriceSeries{Source: "entsoe", Points: []market.PricePoint{{Time: day, Price: 40}}}
	_, err = s.SavePrices(ctx, series)
	require.NoError(t, err)
	_, err = s.SavePrices(ctx, series)
	require.NoError(t, err)

	points, err := s.PricesBetween(ctx, day, day.Add(time.Hour))
	require.NoError(t, err)
	assert.Len(t, points, 1)
}

func TestFormatCell(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{"wind", "wind"},
		{true, "true"},
		{42.5, "42.5"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatCell(tt.in), fmt.Sprintf("input %v", tt.in))
	}
}
