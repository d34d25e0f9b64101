package session

import (
	"math"
	"sync"
	"time"
)

// Clock measures whole seconds spent on the current route or request.
// Safe for concurrent use.
type Clock struct {
	mu      sync.Mutex
	now     func() time.Time
	started time.Time
}

// ClockOption configures a Clock.
type ClockOption func(*Clock)

// WithNow overrides the time source, used by tests to simulate transitions.
func WithNow(now func() time.Time) ClockOption {
	return func(c *Clock) {
		if now != nil {
			c.now = now
		}
	}
}

// NewClock starts measuring immediately.
func NewClock(opts ...ClockOption) *Clock {
	c := &Clock{now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	c.started = c.now()
	return c
}

// Elapsed returns the rounded whole seconds since the last (re)start,
// clamped to zero when the time source skews backwards.
func (c *Clock) Elapsed() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	secs := int(math.Round(c.now().Sub(c.started).Seconds()))
	if secs < 0 {
		return 0
	}
	return secs
}

// Restart resets the measurement start to now, rolling over to the next transition.
func (c *Clock) Restart() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.started = c.now()
}
