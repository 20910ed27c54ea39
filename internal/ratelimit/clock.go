package ratelimit

import (
	"context"
	"sync/atomic"
	"time"
)

// Clock is the time source used by a Limiter.
type Clock interface {
	Now() time.Time
}

// SystemClock reads time.Now on every call.
type SystemClock struct{}

// Now returns the current time.
func (SystemClock) Now() time.Time { return time.Now() }

// CoarseClock caches the current time and refreshes it on a fixed interval, so
// hot paths read an atomic instead of the system clock. Readings may lag real
// time by up to the interval.
type CoarseClock struct {
	interval time.Duration
	now      atomic.Int64
}

// NewCoarseClock creates a CoarseClock. Call Start to keep it moving.
func NewCoarseClock(interval time.Duration) *CoarseClock {
	if interval <= 0 {
		interval = 10 * time.Millisecond
	}
	c := &CoarseClock{interval: interval}
	c.now.Store(time.Now().UnixNano())
	return c
}

// Now returns the cached time.
func (c *CoarseClock) Now() time.Time {
	return time.Unix(0, c.now.Load())
}

// Start refreshes the cached time until ctx is cancelled.
func (c *CoarseClock) Start(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case t := <-ticker.C:
			c.now.Store(t.UnixNano())
		}
	}
}
