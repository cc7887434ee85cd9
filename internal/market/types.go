// Package market holds the domain types shared by the fetch, analysis and
// persistence layers.
package market

import "time"

// PricePoint is one observation of the day-ahead price series.
type PricePoint struct {
	Time  time.Time `json:"time"`
	Price float64   `json:"price"` // EUR/MWh
}

// PriceSeries is an ordered day-ahead price series with provenance.
type PriceSeries struct {
	Source        string       `json:"source"`
	FallbackChain []string     `json:"fallback_chain,omitempty"`
	FetchedAt     time.Time    `json:"fetched_at"`
	Points        []PricePoint `json:"points"`
}

// Empty reports whether the series carries no observations.
func (s PriceSeries) Empty() bool {
	return len(s.Points) == 0
}

// SettlementPeriodDuration is the GB market metering interval.
const SettlementPeriodDuration = 30 * time.Minute

// SettlementPeriodStart maps a 1-based settlement period to its start time
// on the given settlement date.
func SettlementPeriodStart(date time.Time, period int) time.Time {
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	return day.Add(time.Duration(period-1) * SettlementPeriodDuration)
}
