package lockout

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type countingRecorder struct {
	failures atomic.Int32
	locks    atomic.Int32
}

func (r *countingRecorder) AuthFailed() { r.failures.Add(1) }
func (r *countingRecorder) Locked()     { r.locks.Add(1) }

func newTracker(t *testing.T, policy Policy) (*Tracker, *clock, *countingRecorder) {
	t.Helper()
	clk := &clock{t: time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)}
	rec := &countingRecorder{}
	return NewTracker(policy, zaptest.NewLogger(t), WithClock(clk.Now), WithRecorder(rec)), clk, rec
}

func TestLocksAtThreshold(t *testing.T) {
	tr, _, rec := newTracker(t, APIPolicy)

	for i := 0; i < 4; i++ {
		assert.False(t, tr.RecordFailure("1.1.1.1"))
		assert.False(t, tr.IsLocked("1.1.1.1"))
	}
	assert.True(t, tr.RecordFailure("1.1.1.1"))
	assert.True(t, tr.IsLocked("1.1.1.1"))
	assert.False(t, tr.IsLocked("2.2.2.2"))
	assert.Equal(t, 30*time.Minute, tr.Remaining("1.1.1.1"))
	assert.Equal(t, int32(5), rec.failures.Load())
	assert.Equal(t, int32(1), rec.locks.Load())
}

func TestInterleavedFailuresCountPerIP(t *testing.T) {
	tr, _, rec := newTracker(t, APIPolicy)

	for i := 0; i < 4; i++ {
		assert.False(t, tr.RecordFailure("1.1.1.1"))
		assert.False(t, tr.RecordFailure("2.2.2.2"))
	}
	assert.Equal(t, 4, tr.Attempts("1.1.1.1"))
	assert.Equal(t, 4, tr.Attempts("2.2.2.2"))
	assert.False(t, tr.IsLocked("1.1.1.1"))

	assert.True(t, tr.RecordFailure("1.1.1.1"), "fifth failure of the first IP locks it")
	assert.True(t, tr.IsLocked("1.1.1.1"))
	assert.False(t, tr.IsLocked("2.2.2.2"))
	assert.Equal(t, int32(1), rec.locks.Load())
}

func TestLockKeepsFirstTimestamp(t *testing.T) {
	tr, clk, _ := newTracker(t, AdminPolicy)
	for i := 0; i < 3; i++ {
		tr.RecordFailure("ip")
	}
	clk.Advance(20 * time.Minute)
	assert.False(t, tr.RecordFailure("ip"), "failures while locked do not relock")
	assert.Equal(t, 40*time.Minute, tr.Remaining("ip"))
}

func TestLockExpiryResetsCounter(t *testing.T) {
	tr, clk, _ := newTracker(t, AdminPolicy)
	for i := 0; i < 3; i++ {
		tr.RecordFailure("ip")
	}
	clk.Advance(60 * time.Minute)
	assert.False(t, tr.IsLocked("ip"))
	assert.Equal(t, 0, tr.Attempts("ip"))
	assert.Equal(t, time.Duration(0), tr.Remaining("ip"))

	assert.False(t, tr.RecordFailure("ip"))
	assert.Equal(t, 1, tr.Attempts("ip"), "next failure counts as the first")
}

func TestCleanup(t *testing.T) {
	tr, clk, _ := newTracker(t, AdminPolicy)
	for i := 0; i < 3; i++ {
		tr.RecordFailure("locked")
	}
	tr.RecordFailure("counted")

	assert.Equal(t, 0, tr.Cleanup())
	assert.True(t, tr.IsLocked("locked"))
	assert.Equal(t, 3, tr.Attempts("locked"))
	assert.Equal(t, 0, tr.Attempts("counted"))

	clk.Advance(time.Hour)
	assert.Equal(t, 1, tr.Cleanup())
	assert.Equal(t, 0, tr.Attempts("locked"))
	assert.Equal(t, 0, tr.Cleanup(), "idempotent")
}

func TestConcurrentFailuresLockOnce(t *testing.T) {
	tr, _, rec := newTracker(t, Policy{MaxAttempts: 10, LockDuration: time.Hour, CleanupInterval: time.Hour})

	var wg sync.WaitGroup
	var locks atomic.Int32
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if tr.RecordFailure("ip") {
				locks.Add(1)
			}
			tr.IsLocked("ip")
			tr.Cleanup()
		}()
	}
	wg.Wait()
	require.LessOrEqual(t, locks.Load(), int32(1))
	assert.Equal(t, locks.Load(), rec.locks.Load())
}

func TestLockHookRunsOncePerLock(t *testing.T) {
	clk := &clock{t: time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)}
	var calls []time.Time
	tr := NewTracker(AdminPolicy, zaptest.NewLogger(t), WithClock(clk.Now), WithLockHook(func(ip string, until time.Time) {
		assert.Equal(t, "9.9.9.9", ip)
		calls = append(calls, until)
	}))

	for i := 0; i < 5; i++ {
		tr.RecordFailure("9.9.9.9")
	}
	require.Len(t, calls, 1)
	assert.Equal(t, clk.Now().Add(time.Hour), calls[0])
}
