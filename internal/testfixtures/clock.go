package testfixtures

import (
	"sync"
	"time"
)

// Clock is a manual time source. With a non-zero step every reading moves
// the clock forward, so rows written in sequence get distinct timestamps.
type Clock struct {
	mu      sync.Mutex
	current time.Time
	step    time.Duration
}

// NewClock starts a clock at start, or at ReferenceTime when start is zero.
func NewClock(start time.Time) *Clock {
	if start.IsZero() {
		start = ReferenceTime()
	}
	return &Clock{current: start}
}

// Now returns the clock reading and applies the step.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.current
	c.current = c.current.Add(c.step)
	return now
}

// Peek returns the reading without stepping.
func (c *Clock) Peek() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// NowFunc adapts the clock to the func() time.Time services accept. A nil
// clock falls back to time.Now.
func (c *Clock) NowFunc() func() time.Time {
	if c == nil {
		return time.Now
	}
	return c.Now
}

// Step sets the automatic advance applied after each reading.
func (c *Clock) Step(d time.Duration) *Clock {
	c.mu.Lock()
	c.step = d
	c.mu.Unlock()
	return c
}

// Advance moves the clock forward by d and returns the new reading.
func (c *Clock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(d)
	return c.current
}

// InLedgerZone returns the current reading in the ledger's +09:00 zone.
func (c *Clock) InLedgerZone() time.Time {
	return c.Peek().In(Tokyo())
}
