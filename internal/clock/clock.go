// Package clock provides injectable time and identifier sources.
package clock

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Clock reports the current time.
type Clock interface {
	Now() time.Time
}

// IDSource produces unique record identifiers.
type IDSource interface {
	NewID() string
}

// System is the wall clock, truncated to whole seconds since records are
// persisted with second precision.
type System struct{}

// Now returns the current time.
func (System) Now() time.Time {
	return time.Now().Truncate(time.Second)
}

// Fixed is a settable clock for tests and replay.
type Fixed struct {
	mu sync.Mutex
	t  time.Time
}

// NewFixed returns a clock stopped at t.
func NewFixed(t time.Time) *Fixed {
	return &Fixed{t: t}
}

// Now returns the stored time.
func (f *Fixed) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

// Set moves the clock to t.
func (f *Fixed) Set(t time.Time) {
	f.mu.Lock()
	f.t = t
	f.mu.Unlock()
}

// Advance moves the clock forward by d.
func (f *Fixed) Advance(d time.Duration) {
	f.mu.Lock()
	f.t = f.t.Add(d)
	f.mu.Unlock()
}

// UUIDSource issues random v4 UUIDs.
type UUIDSource struct{}

// NewID returns a new UUID string.
func (UUIDSource) NewID() string {
	return uuid.NewString()
}

// Sequence issues predictable identifiers of the form prefix-N.
type Sequence struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequence returns a sequence starting at prefix-1.
func NewSequence(prefix string) *Sequence {
	return &Sequence{prefix: prefix}
}

// NewID returns the next identifier.
func (s *Sequence) NewID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return fmt.Sprintf("%s-%d", s.prefix, s.n)
}
