package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// window is an immutable snapshot; counters swap whole snapshots so the
// reset and the increment happen in one compare-and-swap.
type window struct {
	start time.Time
	count int
}

type counter struct {
	state atomic.Pointer[window]
}

// MemoryLimiter keeps counters in process memory. Counters live until Sweep
// removes the ones whose window has elapsed.
type MemoryLimiter struct {
	counters sync.Map // key -> *counter
	now      func() time.Time
}

// MemoryOption customizes a MemoryLimiter.
type MemoryOption func(*MemoryLimiter)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) MemoryOption {
	return func(l *MemoryLimiter) { l.now = now }
}

func NewMemoryLimiter(opts ...MemoryOption) *MemoryLimiter {
	l := &MemoryLimiter{now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *MemoryLimiter) TryConsume(_ context.Context, key string, max int, win time.Duration) (bool, error) {
	if max <= 0 {
		return false, nil
	}
	c := l.counter(key)
	for {
		now := l.now()
		cur := c.state.Load()

		var next *window
		switch {
		case cur == nil || now.After(cur.start.Add(win)):
			next = &window{start: now, count: 1}
		case cur.count >= max:
			return false, nil
		default:
			next = &window{start: cur.start, count: cur.count + 1}
		}
		if c.state.CompareAndSwap(cur, next) {
			return true, nil
		}
	}
}

func (l *MemoryLimiter) counter(key string) *counter {
	if v, ok := l.counters.Load(key); ok {
		return v.(*counter)
	}
	v, _ := l.counters.LoadOrStore(key, &counter{})
	return v.(*counter)
}

// Sweep drops counters idle for longer than maxWindow and returns how many were removed.
func (l *MemoryLimiter) Sweep(maxWindow time.Duration) int {
	cutoff := l.now().Add(-maxWindow)
	removed := 0
	l.counters.Range(func(key, value any) bool {
		st := value.(*counter).state.Load()
		if st == nil || st.start.Before(cutoff) {
			l.counters.Delete(key)
			removed++
		}
		return true
	})
	return removed
}

// Len returns the number of tracked keys.
func (l *MemoryLimiter) Len() int {
	n := 0
	l.counters.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
