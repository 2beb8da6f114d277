package cron

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestSchedulerRunsUntilCancelled(t *testing.T) {
	s := New(zaptest.NewLogger(t))
	var runs atomic.Int32
	require.NoError(t, s.Register(Job{
		Name:     "sweep",
		Interval: 10 * time.Millisecond,
		Fn: func(ctx context.Context) error {
			runs.Add(1)
			return nil
		},
	}))

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	s.Start(ctx)

	assert.Eventually(t, func() bool { return runs.Load() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()
	s.Wait()

	after := runs.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, runs.Load(), "no runs after cancellation")
}

func TestRegisterValidation(t *testing.T) {
	s := New(nil)
	noop := func(context.Context) error { return nil }

	assert.Error(t, s.Register(Job{Name: "bad", Interval: 0, Fn: noop}))
	assert.Error(t, s.Register(Job{Name: "nil", Interval: time.Second}))
	require.NoError(t, s.Register(Job{Name: "ok", Interval: time.Second, Fn: noop}))
	assert.Error(t, s.Register(Job{Name: "ok", Interval: time.Second, Fn: noop}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)
	assert.Error(t, s.Register(Job{Name: "late", Interval: time.Second, Fn: noop}))
}

func TestRunRecordsStatus(t *testing.T) {
	s := New(zaptest.NewLogger(t))
	require.NoError(t, s.Register(Job{
		Name:     "fails",
		Interval: time.Hour,
		Fn:       func(context.Context) error { return errors.New("boom") },
	}))
	require.NoError(t, s.Register(Job{
		Name:     "panics",
		Interval: time.Hour,
		Fn:       func(context.Context) error { panic("bad state") },
	}))

	require.NoError(t, s.Run(context.Background(), "fails"))
	require.NoError(t, s.Run(context.Background(), "panics"))
	assert.Error(t, s.Run(context.Background(), "missing"))

	items := s.List()
	require.Len(t, items, 2)
	assert.Equal(t, "fails", items[0].Name)
	assert.Equal(t, StatusReject, items[0].Status)
	assert.Equal(t, 1, items[0].Runs)
	assert.Equal(t, StatusReject, items[1].Status)
}
