// Package session stores the short-lived signup sessions that back email
// verification codes.
package session

import (
	"context"
	"errors"
	"strings"
	"time"
)

// DefaultTTL is how long a freshly created session accepts its code.
const DefaultTTL = 5 * time.Minute

var ErrClosed = errors.New("session: store closed")

// Session is one signup verification attempt.
type Session struct {
	ID               string    `json:"id"`
	Email            string    `json:"email"`
	VerificationCode string    `json:"verificationCode"`
	CreatedAt        time.Time `json:"createdAt"`
	ExpiresAt        time.Time `json:"expiresAt"`
	Verified         bool      `json:"verified"`
}

// Expired reports whether the session is gone at now. ExpiresAt itself is
// already expired, which is when a Redis key with the same TTL disappears.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Store keeps signup sessions. Mutations on missing sessions are no-ops.
type Store interface {
	Create(ctx context.Context, email string) (*Session, error)
	SetVerificationCode(ctx context.Context, id, code string) error
	// Get returns nil when the session is absent or expired.
	Get(ctx context.Context, id string) (*Session, error)
	MarkVerified(ctx context.Context, id string) error
	// Extend moves the expiry to until.
	Extend(ctx context.Context, id string, until time.Time) error
	Delete(ctx context.Context, id string) error
	// Sweep removes expired sessions and returns how many were dropped.
	Sweep(ctx context.Context) (int, error)
	Close() error
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
