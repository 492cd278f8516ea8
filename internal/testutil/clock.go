package testutil

import "time"

// Clock is a manually advanced clock for tick-based tests. Its Now method
// plugs into combat.EngineConfig.Clock.
type Clock struct {
	now time.Time
}

// NewClock creates a Clock starting at t.
func NewClock(t time.Time) *Clock {
	return &Clock{now: t}
}

// Now returns the current fake time.
func (c *Clock) Now() time.Time { return c.now }

// Advance moves the clock forward by d.
//
// Precondition: d >= 0; the clock never moves backward.
func (c *Clock) Advance(d time.Duration) {
	if d < 0 {
		panic("testutil: Clock.Advance called with negative duration")
	}
	c.now = c.now.Add(d)
}

// Set jumps the clock to t.
//
// Precondition: t must not be before the current fake time.
func (c *Clock) Set(t time.Time) {
	if t.Before(c.now) {
		panic("testutil: Clock.Set would move time backward")
	}
	c.now = t
}
