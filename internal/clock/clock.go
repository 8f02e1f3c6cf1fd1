// Package clock abstracts wall time so the scheduling engine's rolling
// windows can be driven deterministically in tests.
package clock

import (
	"sync"
	"time"
)

// Clock provides the current time. Engine components depend on this rather
// than time.Now directly.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// System returns a Clock backed by wall time in UTC.
func System() Clock { return systemClock{} }

// Manual is a hand-driven Clock for tests.
type Manual struct {
	mu  sync.RWMutex
	now time.Time
}

// NewManual constructs a manual clock starting at the given instant.
func NewManual(start time.Time) *Manual {
	return &Manual{now: start.UTC()}
}

// Now returns the current manual time.
func (m *Manual) Now() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.now
}

// Advance moves the clock forward by d.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
}

// Set jumps the clock to t.
func (m *Manual) Set(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = t.UTC()
}
