// Package clock provides the time source used by all scheduling decisions.
// Components never call time.Now directly so that backoff and due-target
// computations stay deterministic under test.
package clock

import (
	"sync"
	"time"
)

// Clock is the source of "now" for scheduling decisions.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
}

// Real returns wall-clock time.
type Real struct{}

// NewReal creates a wall-clock backed Clock.
func NewReal() *Real {
	return &Real{}
}

// Now returns the current wall-clock time.
func (r *Real) Now() time.Time {
	return time.Now()
}

// Fake is a settable Clock for tests. It is safe for concurrent use.
type Fake struct {
	mu  sync.RWMutex
	now time.Time
}

// NewFake creates a Fake clock frozen at the given time.
func NewFake(now time.Time) *Fake {
	return &Fake{now: now}
}

// Now returns the currently configured time.
func (f *Fake) Now() time.Time {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.now
}

// Set moves the clock to the given time.
func (f *Fake) Set(now time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = now
}

// Advance moves the clock forward by d.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}
