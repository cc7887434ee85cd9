package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/varunrout/energy-market-tracker/internal/config"
	"github.com/varunrout/energy-market-tracker/internal/market"
	"github.com/varunrout/energy-market-tracker/internal/mockdata"
	"github.com/varunrout/energy-market-tracker/internal/normalize"
)

type fakeFetcher struct {
	name      string
	available bool
	points    []market.PricePoint
	err       error
	calls     int
}

func (f *fakeFetcher) Name() string    { return f.name }
func (f *fakeFetcher) Available() bool { return f.available }
func (f *fakeFetcher) Fetch(_ context.Context, _ time.Time) ([]market.PricePoint, error) {
	f.calls++
	return f.points, f.err
}

func jsonNumber(s string) json.Number { return json.Number(s) }

func somePoints() []market.PricePoint {
	return []market.PricePoint{{Time: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Price: 42}}
}

func testConfig(mode string, preferred ...string) config.SourcesConfig {
	return config.SourcesConfig{Mode: mode, Preferred: preferred}
}

func TestRegistry_FirstAvailableSourceWins(t *testing.T) {
	first := &fakeFetcher{name: "entsoe", available: true, points: somePoints()}
	second := &fakeFetcher{name: "elexon", available: true, points: somePoints()}
	r := NewRegistry(testConfig("auto", "entsoe", "elexon"), nil, nil, first, second)

	series, err := r.DayAheadPrices(context.Background(), time.Now())
	require.NoError(t, err)

	assert.Equal(t, "entsoe", series.Source)
	assert.Empty(t, series.FallbackChain)
	assert.Equal(t, 0, second.calls)
}

func TestRegistry_FallsBackOnFailure(t *testing.T) {
	failing := &fakeFetcher{name: "entsoe", available: true, err: fmt.Errorf("boom")}
	working := &fakeFetcher{name: "elexon", available: true, points: somePoints()}
	r := NewRegistry(testConfig("auto", "entsoe", "elexon"), nil, nil, failing, working)

	series, err := r.DayAheadPrices(context.Background(), time.Now())
	require.NoError(t, err)

	assert.Equal(t, "elexon", series.Source)
	assert.Equal(t, []string{"entsoe"}, series.FallbackChain)
}

func TestRegistry_SkipsUnavailableSources(t *testing.T) {
	noKey := &fakeFetcher{name: "entsoe", available: false, points: somePoints()}
	working := &fakeFetcher{name: "elexon", available: true, points: somePoints()}
	r := NewRegistry(testConfig("auto", "entsoe", "elexon"), nil, nil, noKey, working)

	series, err := r.DayAheadPrices(context.Background(), time.Now())
	require.NoError(t, err)

	assert.Equal(t, "elexon", series.Source)
	assert.Equal(t, 0, noKey.calls)
}

func TestRegistry_EmptyResultTriesNext(t *testing.T) {
	empty := &fakeFetcher{name: "entsoe", available: true}
	working := &fakeFetcher{name: "elexon", available: true, points: somePoints()}
	r := NewRegistry(testConfig("auto", "entsoe", "elexon"), nil, nil, empty, working)

	series, err := r.DayAheadPrices(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, "elexon", series.Source)
	assert.Equal(t, []string{"entsoe"}, series.FallbackChain)
}

func TestRegistry_MockModeBypassesSources(t *testing.T) {
	real := &fakeFetcher{name: "entsoe", available: true, points: somePoints()}
	r := NewRegistry(testConfig("mock", "entsoe"), mockdata.New(30, 70), nil, real)

	series, err := r.DayAheadPrices(context.Background(), time.Now())
	require.NoError(t, err)

	assert.Equal(t, "mock", series.Source)
	assert.Len(t, series.Points, 24)
	assert.Equal(t, 0, real.calls)
}

func TestRegistry_PinnedSourceMode(t *testing.T) {
	entsoe := &fakeFetcher{name: "entsoe", available: true, points: somePoints()}
	elexonSrc := &fakeFetcher{name: "elexon", available: true, points: somePoints()}
	r := NewRegistry(testConfig("elexon", "entsoe", "elexon"), nil, nil, entsoe, elexonSrc)

	series, err := r.DayAheadPrices(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, "elexon", series.Source)
	assert.Equal(t, 0, entsoe.calls)
}

func TestRegistry_AllFailedFallsBackToMock(t *testing.T) {
	failing := &fakeFetcher{name: "entsoe", available: true, err: fmt.Errorf("down")}
	r := NewRegistry(testConfig("auto", "entsoe"), mockdata.New(30, 70), nil, failing)

	series, err := r.DayAheadPrices(context.Background(), time.Now())
	require.NoError(t, err)

	assert.Equal(t, "mock", series.Source)
	assert.Equal(t, []string{"entsoe"}, series.FallbackChain)
}

func TestRegistry_AllFailedWithoutMockErrors(t *testing.T) {
	failing := &fakeFetcher{name: "entsoe", available: true, err: fmt.Errorf("down")}
	r := NewRegistry(testConfig("auto", "entsoe"), nil, nil, failing)

	_, err := r.DayAheadPrices(context.Background(), time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all price sources failed")
}

func TestPointsFromTable(t *testing.T) {
	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	table := normalize.Table{
		Columns: []string{"settlementDate", "settlementPeriod", "price"},
		Rows: []normalize.Record{
			{"settlementDate": "2024-01-01", "settlementPeriod": jsonNumber("1"), "price": jsonNumber("55.5")},
			{"settlementDate": "2024-01-01", "settlementPeriod": jsonNumber("3"), "price": jsonNumber("60")},
		},
	}

	points, err := PointsFromTable(table, day)
	require.NoError(t, err)
	require.Len(t, points, 2)

	assert.Equal(t, day, points[0].Time)
	assert.Equal(t, 55.5, points[0].Price)
	// Period 3 starts one hour into the day.
	assert.Equal(t, day.Add(time.Hour), points[1].Time)
}

func TestPointsFromTable_MissingColumns(t *testing.T) {
	table := normalize.Table{
		Columns: []string{"price"},
		Rows:    []normalize.Record{{"price": jsonNumber("55.5")}},
	}
	_, err := PointsFromTable(table, time.Now())
	require.Error(t, err)
}

func TestPointsFromTable_EmptyTable(t *testing.T) {
	points, err := PointsFromTable(normalize.Table{}, time.Now())
	require.NoError(t, err)
	assert.Nil(t, points)
}

func TestParseNordicDecimal(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"42,15", 42.15},
		{"1 024,50", 1024.5},
		{"99.9", 99.9},
	}
	for _, tt := range tests {
		got, err := parseNordicDecimal(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestParseRowHour(t *testing.T) {
	hour, err := parseRowHour("08 - 09")
	require.NoError(t, err)
	assert.Equal(t, 8, hour)

	hour, err = parseRowHour("23:00")
	require.NoError(t, err)
	assert.Equal(t, 23, hour)

	_, err = parseRowHour("Min")
	require.Error(t, err)
}
