package runner

import (
	"sync"
	"time"
)

// Epoch is where every playthrough clock starts.
var Epoch = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

// Clock is a manually advanced time source. The engine and the procedural rooms of a
// playthrough read the same clock, so a step's wait is seen by both.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock creates a clock stopped at start
func NewClock(start time.Time) *Clock {
	return &Clock{now: start}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward. Negative durations are ignored.
func (c *Clock) Advance(d time.Duration) {
	if d <= 0 {
		return
	}
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// seconds converts a step's fractional wait to a duration
func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
