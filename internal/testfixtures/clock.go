package testfixtures

import (
	"sync"
	"time"

	"github.com/example/meeting-finder/internal/scheduler"
)

// Clock is a settable time source. Services read it through NowFunc so a test
// can move "today" and watch the slot search window follow.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock starts the clock at start, or at ReferenceTime when start is zero.
func NewClock(start time.Time) *Clock {
	if start.IsZero() {
		start = ReferenceTime()
	}
	return &Clock{now: start}
}

// Now reports the clock's time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// NowFunc returns Now for injection into services. A nil clock yields time.Now.
func (c *Clock) NowFunc() func() time.Time {
	if c == nil {
		return time.Now
	}
	return c.Now
}

// Set jumps to t.
func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// Advance moves the clock forward by d and returns the new time.
func (c *Clock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}

// AdvanceBusinessDays moves to the same wall-clock time n business days later
// in the organisation's zone, skipping weekends.
func (c *Clock) AdvanceBusinessDays(n int) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	days := scheduler.BusinessDays(c.now, n, scheduler.DefaultLocation)
	if len(days) == 0 {
		return c.now
	}
	local := c.now.In(scheduler.DefaultLocation)
	target := days[len(days)-1]
	c.now = time.Date(target.Year(), target.Month(), target.Day(),
		local.Hour(), local.Minute(), local.Second(), local.Nanosecond(), scheduler.DefaultLocation)
	return c.now
}
