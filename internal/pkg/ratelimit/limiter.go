// Package ratelimit provides fixed-window request counters keyed by
// client IP, by email and globally.
package ratelimit

import (
	"context"
	"errors"
	"strings"
	"time"
)

// ErrBackendUnavailable wraps failures of an external counter store.
var ErrBackendUnavailable = errors.New("ratelimit: backend unavailable")

// Limiter admits or refuses a request for key within a fixed window.
type Limiter interface {
	// TryConsume reserves one slot when fewer than max requests were admitted
	// in the current window. Refusals do not change the counter.
	TryConsume(ctx context.Context, key string, max int, window time.Duration) (bool, error)
}

// Limit is one fixed-window policy.
type Limit struct {
	Max    int
	Window time.Duration
}

func IPKey(ip string) string {
	return "ip:" + strings.TrimSpace(ip)
}

func EmailKey(email string) string {
	return "email:" + strings.ToLower(strings.TrimSpace(email))
}

const GlobalKey = "global"
