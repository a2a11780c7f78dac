package cache

import (
	"context"
	"errors"
	"time"

	"discipline-journal/internal/resilience"
)

// Guarded puts a circuit breaker in front of a remote cache. While the circuit
// is open reads miss and writes are skipped, so callers fall back to
// computing from the store.
type Guarded struct {
	next    Service
	breaker *resilience.CircuitBreaker
}

// NewGuarded wraps next with breaker.
func NewGuarded(next Service, breaker *resilience.CircuitBreaker) *Guarded {
	return &Guarded{next: next, breaker: breaker}
}

func isMiss(err error) bool {
	return errors.Is(err, ErrCacheMiss)
}

// Set stores value unless the circuit is open.
func (g *Guarded) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return g.skipOpen(g.breaker.Execute(func() error {
		return g.next.Set(ctx, key, value, expiration)
	}, nil))
}

// Get reads key. An open circuit reads as a miss.
func (g *Guarded) Get(ctx context.Context, key string, dest interface{}) error {
	err := g.breaker.Execute(func() error {
		return g.next.Get(ctx, key, dest)
	}, isMiss)
	if errors.Is(err, resilience.ErrCircuitOpen) {
		return ErrCacheMiss
	}
	return err
}

// Delete removes keys unless the circuit is open.
func (g *Guarded) Delete(ctx context.Context, keys ...string) error {
	return g.skipOpen(g.breaker.Execute(func() error {
		return g.next.Delete(ctx, keys...)
	}, nil))
}

// DeleteByPattern removes matching keys unless the circuit is open. Entries
// missed this way expire with their TTL.
func (g *Guarded) DeleteByPattern(ctx context.Context, pattern string) error {
	return g.skipOpen(g.breaker.Execute(func() error {
		return g.next.DeleteByPattern(ctx, pattern)
	}, nil))
}

// Close closes the wrapped cache.
func (g *Guarded) Close() error {
	return g.next.Close()
}

func (g *Guarded) skipOpen(err error) error {
	if errors.Is(err, resilience.ErrCircuitOpen) {
		return nil
	}
	return err
}
