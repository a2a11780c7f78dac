// Package ratelimit provides token bucket limiters keyed by caller.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter implements a token bucket rate limiter.
type Limiter struct {
	rate       float64 // tokens per second
	burst      int     // max tokens
	tokens     float64
	lastUpdate time.Time
	now        func() time.Time
	mu         sync.Mutex
}

// New creates a limiter that starts with a full bucket.
func New(rate float64, burst int) *Limiter {
	return newLimiter(rate, burst, time.Now)
}

func newLimiter(rate float64, burst int, now func() time.Time) *Limiter {
	return &Limiter{
		rate:       rate,
		burst:      burst,
		tokens:     float64(burst),
		lastUpdate: now(),
		now:        now,
	}
}

// Allow checks if a request is allowed under the rate limit.
func (r *Limiter) Allow() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	elapsed := now.Sub(r.lastUpdate).Seconds()
	r.lastUpdate = now

	// Add tokens based on elapsed time
	r.tokens += elapsed * r.rate
	if r.tokens > float64(r.burst) {
		r.tokens = float64(r.burst)
	}

	if r.tokens >= 1 {
		r.tokens--
		return true
	}
	return false
}

// Wait waits until a request is allowed.
func (r *Limiter) Wait(ctx context.Context) error {
	for {
		if r.Allow() {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func (r *Limiter) idleSince() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastUpdate
}

// Set holds one limiter per key. Limiters idle for longer than the idle
// timeout are dropped on the next sweep.
type Set struct {
	rate     float64
	burst    int
	idle     time.Duration
	now      func() time.Time
	mu       sync.Mutex
	limiters map[string]*Limiter
	lastScan time.Time
}

// SetOption configures a Set.
type SetOption func(*Set)

// WithIdleTimeout sets how long an unused limiter is kept.
func WithIdleTimeout(d time.Duration) SetOption {
	return func(s *Set) { s.idle = d }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) SetOption {
	return func(s *Set) { s.now = now }
}

// NewSet creates a keyed limiter set.
func NewSet(rate float64, burst int, opts ...SetOption) *Set {
	s := &Set{
		rate:     rate,
		burst:    burst,
		idle:     10 * time.Minute,
		now:      time.Now,
		limiters: make(map[string]*Limiter),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.lastScan = s.now()
	return s
}

// Allow reports whether key may make another request now.
func (s *Set) Allow(key string) bool {
	return s.get(key).Allow()
}

// Len returns the number of tracked keys.
func (s *Set) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.limiters)
}

func (s *Set) get(key string) *Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if now.Sub(s.lastScan) >= s.idle {
		for k, l := range s.limiters {
			if now.Sub(l.idleSince()) >= s.idle {
				delete(s.limiters, k)
			}
		}
		s.lastScan = now
	}

	l, ok := s.limiters[key]
	if !ok {
		l = newLimiter(s.rate, s.burst, s.now)
		s.limiters[key] = l
	}
	return l
}
