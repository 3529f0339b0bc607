package clock

import (
	"sync"
	"time"
)

// Clock gives the engine its notion of now in unix nanoseconds.
type Clock interface {
	Now() time.Time
	NowNs() int64
}

// Live reads the wall clock.
type Live struct{}

func (Live) Now() time.Time { return time.Now().UTC() }
func (Live) NowNs() int64   { return time.Now().UnixNano() }

// Test is a manually advanced clock.
type Test struct {
	mu  sync.Mutex
	now time.Time
}

func NewTest(start time.Time) *Test {
	return &Test{now: start.UTC()}
}

func (c *Test) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Test) NowNs() int64 {
	return c.Now().UnixNano()
}

func (c *Test) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func (c *Test) Set(t time.Time) {
	c.mu.Lock()
	c.now = t.UTC()
	c.mu.Unlock()
}
