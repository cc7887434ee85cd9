// Package mockdata generates synthetic day-ahead prices for development and
// as the terminal fallback when every real source fails.
package mockdata

import (
	"math/rand"
	"time"

	"github.com/varunrout/energy-market-tracker/internal/market"
)

// Generator produces 24 hourly prices uniformly distributed in
// [PriceMin, PriceMax). Seeded by the requested date so repeated calls for
// the same day agree.
type Generator struct {
	PriceMin float64
	PriceMax float64
}

// New creates a generator with the given price bounds.
func New(priceMin, priceMax float64) *Generator {
	return &Generator{PriceMin: priceMin, PriceMax: priceMax}
}

// DayAheadPrices returns one synthetic day of hourly prices.
func (g *Generator) DayAheadPrices(date time.Time) []market.PricePoint {
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	rng := rand.New(rand.NewSource(day.Unix()))

	points := make([]market.PricePoint, 24)
	for h := 0; h < 24; h++ {
		points[h] = market.PricePoint{
			Time:  day.Add(time.Duration(h) * time.Hour),
			Price: g.PriceMin + rng.Float64()*(g.PriceMax-g.PriceMin),
		}
	}
	return points
}
