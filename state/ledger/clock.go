package ledger

import (
	"time"

	"github.com/sasha-s/go-deadlock"
)

// Clock is the ledger's time oracle. Now returns unix seconds.
type Clock interface {
	Now() (int64, error)
}

type ClockFunc func() (int64, error)

func (f ClockFunc) Now() (int64, error) {
	return f()
}

// ManualClock only moves when told to.
type ManualClock struct {
	now int64
	mu  *deadlock.Mutex
}

func NewManualClock(now int64) *ManualClock {
	return &ManualClock{now: now, mu: &deadlock.Mutex{}}
}

func (c *ManualClock) Now() (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now, nil
}

func (c *ManualClock) Set(now int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now += int64(d / time.Second)
}
