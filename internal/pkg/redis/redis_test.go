package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Email string `json:"email"`
	Count int    `json:"count"`
}

func TestConnectAndJSONRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	c, err := Connect(&goredis.Options{Addr: mr.Addr()}, "routepick:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	ctx := context.Background()
	key := c.Key("signup", "abc")
	assert.Equal(t, "routepick:signup:abc", key)

	require.NoError(t, c.SetJSON(ctx, key, payload{Email: "a@x.com", Count: 2}, time.Minute))
	assert.Equal(t, time.Minute, mr.TTL(key))

	var got payload
	found, err := c.GetJSON(ctx, key, &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, payload{Email: "a@x.com", Count: 2}, got)

	require.NoError(t, c.Del(ctx, key))
	found, err = c.GetJSON(ctx, key, &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestConnectFailsWhenUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := Connect(&goredis.Options{Addr: addr, MaxRetries: -1}, "")
	assert.Error(t, err)
}

func TestUpdateJSONKeepsTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	c := Wrap(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}), "")
	t.Cleanup(func() { _ = c.Close() })
	ctx := context.Background()

	ok, err := c.UpdateJSON(ctx, "missing", payload{Count: 1})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, mr.Exists("missing"))

	require.NoError(t, c.SetJSON(ctx, "k", payload{Count: 1}, time.Minute))
	mr.FastForward(20 * time.Second)
	ok, err = c.UpdateJSON(ctx, "k", payload{Count: 2})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 40*time.Second, mr.TTL("k"))

	var got payload
	_, err = c.GetJSON(ctx, "k", &got)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Count)
}
