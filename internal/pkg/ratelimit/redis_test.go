package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisLimiterWindow(t *testing.T) {
	mr, client := newTestRedis(t)
	l := NewRedisLimiter(client, "")
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		ok, err := l.TryConsume(ctx, EmailKey("A@x.com"), 5, time.Hour)
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, err := l.TryConsume(ctx, EmailKey("a@x.com"), 5, time.Hour)
	require.NoError(t, err)
	assert.False(t, ok)

	val, err := mr.Get("routepick:rate:email:a@x.com")
	require.NoError(t, err)
	assert.Equal(t, "5", val, "refusal does not increment")

	mr.FastForward(time.Hour + time.Second)
	ok, err = l.TryConsume(ctx, EmailKey("a@x.com"), 5, time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisLimiterBackendDown(t *testing.T) {
	mr, client := newTestRedis(t)
	l := NewRedisLimiter(client, "test:")
	mr.Close()

	_, err := l.TryConsume(context.Background(), GlobalKey, 1, time.Second)
	assert.ErrorIs(t, err, ErrBackendUnavailable)
}
