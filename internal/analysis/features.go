package analysis

import (
	"math"
	"time"

	"github.com/varunrout/energy-market-tracker/internal/market"
)

// FeatureRow is one observation enriched with lag, rolling and calendar
// features for downstream modelling.
type FeatureRow struct {
	Time      time.Time           `json:"time"`
	Price     float64             `json:"price"`
	Lags      map[int]float64     `json:"lags"`      // lag offset -> price (NaN if unavailable)
	RollMean  map[int]float64     `json:"roll_mean"` // window -> trailing mean
	RollStd   map[int]float64     `json:"roll_std"`  // window -> trailing sample std
	Hour      int                 `json:"hour"`
	Weekday   time.Weekday        `json:"weekday"`
	Month     time.Month          `json:"month"`
	IsWeekend bool                `json:"is_weekend"`
}

// DefaultLags and DefaultWindows mirror the day-ahead cadence: previous
// period and same period yesterday / two days back for hourly data.
var (
	DefaultLags    = []int{1, 24}
	DefaultWindows = []int{24, 48}
)

// BuildFeatures computes lag, rolling and calendar features for each point.
// Lags that reach before the start of the series are NaN.
func BuildFeatures(points []market.PricePoint, lags, windows []int) []FeatureRow {
	if len(lags) == 0 {
		lags = DefaultLags
	}
	if len(windows) == 0 {
		windows = DefaultWindows
	}

	out := make([]FeatureRow, len(points))
	for i, p := range points {
		ts := p.Time.UTC()
		row := FeatureRow{
			Time:      p.Time,
			Price:     p.Price,
			Lags:      make(map[int]float64, len(lags)),
			RollMean:  make(map[int]float64, len(windows)),
			RollStd:   make(map[int]float64, len(windows)),
			Hour:      ts.Hour(),
			Weekday:   ts.Weekday(),
			Month:     ts.Month(),
			IsWeekend: ts.Weekday() == time.Saturday || ts.Weekday() == time.Sunday,
		}

		for _, lag := range lags {
			if i-lag >= 0 {
				row.Lags[lag] = points[i-lag].Price
			} else {
				row.Lags[lag] = math.NaN()
			}
		}

		for _, w := range windows {
			start := i - w + 1
			if start < 0 {
				start = 0
			}
			slice := points[start : i+1]
			mean := priceMean(slice)
			row.RollMean[w] = mean
			row.RollStd[w] = priceStd(slice, mean)
		}

		out[i] = row
	}
	return out
}
