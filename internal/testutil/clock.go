package testutil

import (
	"sync"
	"time"
)

// Clock is a controllable wall clock for tests. Components take a
// now func() time.Time; pass clock.Now and advance it explicitly to
// exercise TTL expiry and retention purging without sleeping.
type Clock struct {
	mu sync.Mutex
	t  time.Time
}

// NewClock creates a clock frozen at the given instant.
func NewClock(t time.Time) *Clock {
	return &Clock{t: t}
}

// Now returns the current instant.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// Set moves the clock to an absolute instant.
func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}
