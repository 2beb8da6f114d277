package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// consumeScript refuses without touching the key once the ceiling is reached;
// otherwise it increments and starts the window on the first hit.
var consumeScript = redis.NewScript(`
local current = tonumber(redis.call("GET", KEYS[1]) or "0")
if current >= tonumber(ARGV[1]) then
	return 0
end
current = redis.call("INCR", KEYS[1])
if current == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 1
`)

// RedisLimiter shares counters between instances through Redis.
type RedisLimiter struct {
	rdb    redis.UniversalClient
	prefix string
}

func NewRedisLimiter(rdb redis.UniversalClient, prefix string) *RedisLimiter {
	if prefix == "" {
		prefix = "routepick:rate:"
	}
	return &RedisLimiter{rdb: rdb, prefix: prefix}
}

func (l *RedisLimiter) TryConsume(ctx context.Context, key string, max int, win time.Duration) (bool, error) {
	if max <= 0 {
		return false, nil
	}
	ms := win.Milliseconds()
	if ms < 1 {
		ms = 1
	}
	res, err := consumeScript.Run(ctx, l.rdb, []string{l.prefix + key}, max, ms).Int()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return res == 1, nil
}
