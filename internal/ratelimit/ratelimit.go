// Package ratelimit provides per-source token-bucket rate limiting for the
// upstream market-data APIs.
package ratelimit

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// Limiter rate-limits requests per data source using token buckets. Sources
// are registered lazily with the default rate unless configured explicitly.
type Limiter struct {
	mu       sync.RWMutex
	limiters map[string]*rate.Limiter
	rps      float64
	burst    int
}

// New creates a limiter with a default requests-per-second and burst for
// sources without an explicit configuration.
func New(rps float64, burst int) *Limiter {
	return &Limiter{
		limiters: make(map[string]*rate.Limiter),
		rps:      rps,
		burst:    burst,
	}
}

// Configure sets a source-specific rate, replacing any existing bucket.
func (l *Limiter) Configure(source string, rps float64, burst int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.limiters[source] = rate.NewLimiter(rate.Limit(rps), burst)
}

func (l *Limiter) get(source string) *rate.Limiter {
	l.mu.RLock()
	limiter, ok := l.limiters[source]
	l.mu.RUnlock()
	if ok {
		return limiter
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if limiter, ok := l.limiters[source]; ok {
		return limiter
	}
	limiter = rate.NewLimiter(rate.Limit(l.rps), l.burst)
	l.limiters[source] = limiter
	return limiter
}

// Wait blocks until a request for the source is allowed or ctx is done.
func (l *Limiter) Wait(ctx context.Context, source string) error {
	return l.get(source).Wait(ctx)
}

// Allow reports whether a request for the source may proceed now.
func (l *Limiter) Allow(source string) bool {
	return l.get(source).Allow()
}

// Tokens returns the tokens currently available for the source.
func (l *Limiter) Tokens(source string) float64 {
	return l.get(source).Tokens()
}
