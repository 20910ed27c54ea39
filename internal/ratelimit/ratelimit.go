// Package ratelimit implements a keyed token-bucket limiter. Every key gets its
// own bucket with the same quota; buckets are created on first use.
package ratelimit

import (
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Quota describes how many requests a key may make per period and how many
// may be made back to back.
type Quota struct {
	Requests int
	Period   time.Duration
	Burst    int
}

// PerMinute returns a quota of n requests per minute with a burst of n.
func PerMinute(n int) Quota {
	return Quota{Requests: n, Period: time.Minute, Burst: n}
}

// Interval returns the time it takes to earn back a single token.
func (q Quota) Interval() time.Duration {
	return q.Period / time.Duration(q.Requests)
}

func (q Quota) validate() error {
	if q.Requests <= 0 {
		return fmt.Errorf("requests must be positive, got %d", q.Requests)
	}
	if q.Period <= 0 {
		return fmt.Errorf("period must be positive, got %s", q.Period)
	}
	if q.Burst <= 0 {
		return fmt.Errorf("burst must be positive, got %d", q.Burst)
	}
	return nil
}

// Decision is the outcome of a Check. RetryAfter is zero when Allowed.
type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
}

// Limiter holds one token bucket per key.
type Limiter[K comparable] struct {
	quota   Quota
	limit   rate.Limit
	clock   Clock
	buckets sync.Map // K -> *rate.Limiter
}

// New creates a Limiter. A nil clock uses the system clock.
func New[K comparable](q Quota, clock Clock) (*Limiter[K], error) {
	if err := q.validate(); err != nil {
		return nil, fmt.Errorf("invalid quota: %w", err)
	}
	if clock == nil {
		clock = SystemClock{}
	}
	return &Limiter[K]{
		quota: q,
		limit: rate.Every(q.Interval()),
		clock: clock,
	}, nil
}

// Check consumes one token from key's bucket if one is available. Otherwise
// nothing is consumed and the decision carries the wait until the next token.
func (l *Limiter[K]) Check(key K) Decision {
	now := l.clock.Now()
	r := l.bucket(key).ReserveN(now, 1)
	if !r.OK() {
		return Decision{RetryAfter: l.quota.Period}
	}
	delay := r.DelayFrom(now)
	if delay == 0 {
		return Decision{Allowed: true}
	}
	r.CancelAt(now)
	return Decision{RetryAfter: delay}
}

// Prune drops every bucket that is full at the current time and returns how
// many it dropped. A full bucket admits exactly what a new one would, so the
// next Check for that key is unaffected. A Check racing with Prune on the same
// key can be admitted against the dropped bucket, which grants at most one
// token over the quota.
func (l *Limiter[K]) Prune() int {
	now := l.clock.Now()
	burst := float64(l.quota.Burst)
	n := 0
	l.buckets.Range(func(k, v any) bool {
		if v.(*rate.Limiter).TokensAt(now) >= burst && l.buckets.CompareAndDelete(k, v) {
			n++
		}
		return true
	})
	return n
}

// Len returns the number of keys with a bucket.
func (l *Limiter[K]) Len() int {
	n := 0
	l.buckets.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

func (l *Limiter[K]) bucket(key K) *rate.Limiter {
	if b, ok := l.buckets.Load(key); ok {
		return b.(*rate.Limiter)
	}
	b, _ := l.buckets.LoadOrStore(key, rate.NewLimiter(l.limit, l.quota.Burst))
	return b.(*rate.Limiter)
}
