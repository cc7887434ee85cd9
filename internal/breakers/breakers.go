// Package breakers wraps sony/gobreaker with the trip policy used for all
// upstream market-data calls.
package breakers

import (
	"sync"
	"time"

	cb "github.com/sony/gobreaker"
)

// Breaker guards calls against a single upstream source.
type Breaker struct {
	cb *cb.CircuitBreaker
}

// New creates a breaker that opens after 3 consecutive failures, or a >5%
// failure rate once 20 requests have been observed in the rolling interval.
func New(name string) *Breaker {
	st := cb.Settings{Name: name}
	st.Interval = 60 * time.Second
	st.Timeout = 60 * time.Second
	st.ReadyToTrip = func(counts cb.Counts) bool {
		if counts.ConsecutiveFailures >= 3 {
			return true
		}
		total := counts.Requests
		if total < 20 {
			return false
		}
		return float64(counts.TotalFailures)/float64(total) > 0.05
	}
	return &Breaker{cb: cb.NewCircuitBreaker(st)}
}

// Execute runs fn under the breaker.
func (b *Breaker) Execute(fn func() (any, error)) (any, error) {
	return b.cb.Execute(fn)
}

// State returns the current breaker state name.
func (b *Breaker) State() string {
	return b.cb.State().String()
}

// Registry hands out one breaker per source.
type Registry struct {
	mu       sync.Mutex
	breakers map[string]*Breaker
}

// NewRegistry creates an empty breaker registry.
func NewRegistry() *Registry {
	return &Registry{breakers: make(map[string]*Breaker)}
}

// For returns the breaker for a source, creating it on first use.
func (r *Registry) For(source string) *Breaker {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.breakers[source]; ok {
		return b
	}
	b := New(source)
	r.breakers[source] = b
	return b
}
