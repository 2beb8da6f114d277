// Package lockout tracks failed authentications per client IP and
// temporarily locks addresses that fail too often.
package lockout

import (
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Policy configures a Tracker.
type Policy struct {
	MaxAttempts     int
	LockDuration    time.Duration
	CleanupInterval time.Duration
}

var (
	// APIPolicy applies to the public application.
	APIPolicy = Policy{MaxAttempts: 5, LockDuration: 30 * time.Minute, CleanupInterval: 60 * time.Minute}
	// AdminPolicy is stricter and applies to the admin application.
	AdminPolicy = Policy{MaxAttempts: 3, LockDuration: 60 * time.Minute, CleanupInterval: 30 * time.Minute}
)

// Recorder observes failures and locks.
type Recorder interface {
	AuthFailed()
	Locked()
}

// Tracker counts failures and holds locks. All map mutations happen under
// the write lock; counters are atomics so increments only need the read lock.
type Tracker struct {
	mu       sync.RWMutex
	attempts map[string]*atomic.Int32
	locks    map[string]time.Time

	policy  Policy
	now     func() time.Time
	logger  *zap.Logger
	metrics Recorder
	onLock  func(ip string, until time.Time)
}

// Option customizes a Tracker.
type Option func(*Tracker)

func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

func WithRecorder(rec Recorder) Option {
	return func(t *Tracker) { t.metrics = rec }
}

// WithLockHook registers fn to run after an IP gets locked. fn is called
// without holding the tracker lock.
func WithLockHook(fn func(ip string, until time.Time)) Option {
	return func(t *Tracker) { t.onLock = fn }
}

func NewTracker(policy Policy, logger *zap.Logger, opts ...Option) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	t := &Tracker{
		attempts: make(map[string]*atomic.Int32),
		locks:    make(map[string]time.Time),
		policy:   policy,
		now:      time.Now,
		logger:   logger.Named("FailedAuthTracker"),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Tracker) Policy() Policy { return t.policy }

// IsLocked reports whether ip is locked. An expired lock is cleared along
// with its counter.
func (t *Tracker) IsLocked(ip string) bool {
	t.mu.RLock()
	lockedAt, ok := t.locks[ip]
	if !ok {
		t.mu.RUnlock()
		return false
	}
	if t.now().Sub(lockedAt) < t.policy.LockDuration {
		t.mu.RUnlock()
		return true
	}
	t.mu.RUnlock()

	t.mu.Lock()
	if cur, ok := t.locks[ip]; ok && cur.Equal(lockedAt) {
		delete(t.locks, ip)
		delete(t.attempts, ip)
		t.logger.Info("ip unlocked", zap.String("ip", ip))
	}
	t.mu.Unlock()
	return false
}

// Remaining returns the time left on ip's lock, zero when unlocked.
func (t *Tracker) Remaining(ip string) time.Duration {
	t.mu.RLock()
	defer t.mu.RUnlock()
	lockedAt, ok := t.locks[ip]
	if !ok {
		return 0
	}
	left := t.policy.LockDuration - t.now().Sub(lockedAt)
	if left < 0 {
		return 0
	}
	return left
}

// RecordFailure counts a failure and reports whether this one locked ip.
// An existing lock keeps its original timestamp.
func (t *Tracker) RecordFailure(ip string) bool {
	if t.IsLocked(ip) {
		return false
	}

	t.mu.RLock()
	counter, ok := t.attempts[ip]
	t.mu.RUnlock()
	if !ok {
		t.mu.Lock()
		if counter, ok = t.attempts[ip]; !ok {
			counter = new(atomic.Int32)
			t.attempts[ip] = counter
		}
		t.mu.Unlock()
	}

	n := counter.Add(1)
	if t.metrics != nil {
		t.metrics.AuthFailed()
	}
	t.logger.Warn("authentication failed", zap.String("ip", ip), zap.Int32("attempts", n))
	if int(n) < t.policy.MaxAttempts {
		return false
	}

	t.mu.Lock()
	if _, locked := t.locks[ip]; locked {
		t.mu.Unlock()
		return false
	}
	lockedAt := t.now()
	t.locks[ip] = lockedAt
	t.mu.Unlock()

	if t.metrics != nil {
		t.metrics.Locked()
	}
	t.logger.Warn("ip locked",
		zap.String("ip", ip),
		zap.Int32("attempts", n),
		zap.Duration("duration", t.policy.LockDuration),
	)
	if t.onLock != nil {
		t.onLock(ip, lockedAt.Add(t.policy.LockDuration))
	}
	return true
}

// Attempts returns the current failure count of ip.
func (t *Tracker) Attempts(ip string) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if c, ok := t.attempts[ip]; ok {
		return int(c.Load())
	}
	return 0
}

// Cleanup drops expired locks and the counters of unlocked IPs. It returns
// the number of locks removed.
func (t *Tracker) Cleanup() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	removed := 0
	for ip, lockedAt := range t.locks {
		if now.Sub(lockedAt) >= t.policy.LockDuration {
			delete(t.locks, ip)
			removed++
		}
	}
	for ip := range t.attempts {
		if _, locked := t.locks[ip]; !locked {
			delete(t.attempts, ip)
		}
	}
	if removed > 0 {
		t.logger.Info("expired locks removed", zap.Int("count", removed))
	}
	return removed
}
