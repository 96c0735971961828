package testfixtures

import (
	"sync"
	"time"
)

// Clock is a manually driven time source. Engine tasks, the notifier and the
// services all read it through NowFunc, so a test moves every component by
// moving the clock.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock starts at start, or at ReferenceTime when start is zero.
func NewClock(start time.Time) *Clock {
	if start.IsZero() {
		start = ReferenceTime()
	}
	return &Clock{now: start}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// NowFunc returns time.Now for a nil clock.
func (c *Clock) NowFunc() func() time.Time {
	if c == nil {
		return time.Now
	}
	return c.Now
}

func (c *Clock) Set(t time.Time) {
	c.shift(func(time.Time) time.Time { return t })
}

func (c *Clock) Advance(d time.Duration) time.Time {
	return c.shift(func(now time.Time) time.Time { return now.Add(d) })
}

// AdvanceDays keeps the time of day.
func (c *Clock) AdvanceDays(days int) time.Time {
	return c.shift(func(now time.Time) time.Time { return now.AddDate(0, 0, days) })
}

// Today is midnight of the current day in the clock's location, the value
// maintenance dates are compared against.
func (c *Clock) Today() time.Time {
	now := c.Now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
}

// DaysFromToday returns the calendar date offset from Today.
func (c *Clock) DaysFromToday(days int) time.Time {
	return c.Today().AddDate(0, 0, days)
}

func (c *Clock) shift(next func(time.Time) time.Time) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = next(c.now)
	return c.now
}
