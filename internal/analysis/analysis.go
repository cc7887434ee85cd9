// Package analysis computes descriptive statistics over day-ahead price
// series: rolling volatility, z-score anomalies, peak/off-peak ratios and
// seasonal patterns.
package analysis

import (
	"fmt"
	"math"
	"time"

	"github.com/varunrout/energy-market-tracker/internal/market"
)

// VolatilityPoint carries rolling volatility metrics for one observation.
type VolatilityPoint struct {
	Time            time.Time `json:"time"`
	Price           float64   `json:"price"`
	RollingStd      float64   `json:"rolling_std"`
	RollingRange    float64   `json:"rolling_range"`
	VolatilityRatio float64   `json:"volatility_ratio"`
}

// AnomalyPoint flags one observation against the whole-series distribution.
type AnomalyPoint struct {
	Time      time.Time `json:"time"`
	Price     float64   `json:"price"`
	ZScore    float64   `json:"z_score"`
	IsAnomaly bool      `json:"is_anomaly"`
}

// SeasonalSummary aggregates mean prices by hour, weekday and weekend flag.
type SeasonalSummary struct {
	HourlyMean          map[int]float64          `json:"hourly_mean"`
	WeekdayMean         map[time.Weekday]float64 `json:"weekday_mean"`
	WeekendAvg          float64                  `json:"weekend_avg"`
	WeekdayAvg          float64                  `json:"weekday_avg"`
	WeekendWeekdayRatio float64                  `json:"weekend_weekday_ratio"`
}

// Volatility computes rolling std, range and std/mean ratio over a trailing
// window. The window shrinks at the start of the series so every point gets
// a value. Windows with fewer than two observations report zero std.
func Volatility(points []market.PricePoint, window int) ([]VolatilityPoint, error) {
	if window < 1 {
		return nil, fmt.Errorf("volatility window must be positive, got %d", window)
	}

	out := make([]VolatilityPoint, len(points))
	for i, p := range points {
		start := i - window + 1
		if start < 0 {
			start = 0
		}
		slice := points[start : i+1]

		mean := priceMean(slice)
		std := priceStd(slice, mean)
		lo, hi := slice[0].Price, slice[0].Price
		for _, q := range slice {
			if q.Price < lo {
				lo = q.Price
			}
			if q.Price > hi {
				hi = q.Price
			}
		}

		ratio := 0.0
		if mean != 0 {
			ratio = std / mean
		}

		out[i] = VolatilityPoint{
			Time:            p.Time,
			Price:           p.Price,
			RollingStd:      std,
			RollingRange:    hi - lo,
			VolatilityRatio: ratio,
		}
	}
	return out, nil
}

// DetectAnomalies flags points whose z-score against the whole series
// exceeds the threshold. Series with fewer than two points, or with zero
// spread, produce no anomalies.
func DetectAnomalies(points []market.PricePoint, zScoreThreshold float64) []AnomalyPoint {
	out := make([]AnomalyPoint, len(points))
	for i, p := range points {
		out[i] = AnomalyPoint{Time: p.Time, Price: p.Price}
	}
	if len(points) < 2 {
		return out
	}

	mean := priceMean(points)
	std := priceStd(points, mean)
	if std == 0 {
		return out
	}

	for i, p := range points {
		z := (p.Price - mean) / std
		out[i].ZScore = z
		out[i].IsAnomaly = math.Abs(z) > zScoreThreshold
	}
	return out
}

// PeakOffPeakRatio returns mean(peak)/mean(off-peak), where peak hours are
// [startHour, endHour). Errors when either bucket is empty.
func PeakOffPeakRatio(points []market.PricePoint, startHour, endHour int) (float64, error) {
	var peakSum, offSum float64
	var peakN, offN int
	for _, p := range points {
		h := p.Time.UTC().Hour()
		if h >= startHour && h < endHour {
			peakSum += p.Price
			peakN++
		} else {
			offSum += p.Price
			offN++
		}
	}

	if peakN == 0 || offN == 0 {
		return 0, fmt.Errorf("need observations in both peak and off-peak hours (peak=%d, off-peak=%d)", peakN, offN)
	}

	offMean := offSum / float64(offN)
	if offMean == 0 {
		return math.Inf(1), nil
	}
	return (peakSum / float64(peakN)) / offMean, nil
}

// SeasonalPatterns computes hourly and weekday mean prices plus the weekend
// versus weekday split.
func SeasonalPatterns(points []market.PricePoint) SeasonalSummary {
	summary := SeasonalSummary{
		HourlyMean:          make(map[int]float64),
		WeekdayMean:         make(map[time.Weekday]float64),
		WeekendWeekdayRatio: math.NaN(),
	}
	if len(points) == 0 {
		summary.WeekendAvg = math.NaN()
		summary.WeekdayAvg = math.NaN()
		return summary
	}

	hourSum := make(map[int]float64)
	hourN := make(map[int]int)
	daySum := make(map[time.Weekday]float64)
	dayN := make(map[time.Weekday]int)
	var weekendSum, weekdaySum float64
	var weekendN, weekdayN int

	for _, p := range points {
		ts := p.Time.UTC()
		hourSum[ts.Hour()] += p.Price
		hourN[ts.Hour()]++
		daySum[ts.Weekday()] += p.Price
		dayN[ts.Weekday()]++
		if ts.Weekday() == time.Saturday || ts.Weekday() == time.Sunday {
			weekendSum += p.Price
			weekendN++
		} else {
			weekdaySum += p.Price
			weekdayN++
		}
	}

	for h, sum := range hourSum {
		summary.HourlyMean[h] = sum / float64(hourN[h])
	}
	for d, sum := range daySum {
		summary.WeekdayMean[d] = sum / float64(dayN[d])
	}

	summary.WeekendAvg = math.NaN()
	summary.WeekdayAvg = math.NaN()
	if weekendN > 0 {
		summary.WeekendAvg = weekendSum / float64(weekendN)
	}
	if weekdayN > 0 {
		summary.WeekdayAvg = weekdaySum / float64(weekdayN)
	}
	if weekendN > 0 && weekdayN > 0 && summary.WeekdayAvg != 0 {
		summary.WeekendWeekdayRatio = summary.WeekendAvg / summary.WeekdayAvg
	}
	return summary
}

func priceMean(points []market.PricePoint) float64 {
	if len(points) == 0 {
		return 0
	}
	var sum float64
	for _, p := range points {
		sum += p.Price
	}
	return sum / float64(len(points))
}

// priceStd is the sample standard deviation; zero for fewer than two points.
func priceStd(points []market.PricePoint, mean float64) float64 {
	if len(points) < 2 {
		return 0
	}
	var sq float64
	for _, p := range points {
		d := p.Price - mean
		sq += d * d
	}
	return math.Sqrt(sq / float64(len(points)-1))
}
