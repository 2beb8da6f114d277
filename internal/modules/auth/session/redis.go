package session

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	redispkg "github.com/routepick/backend/internal/pkg/redis"
)

// RedisStore keeps sessions as JSON values whose key TTL tracks ExpiresAt,
// so expired sessions disappear without a sweep.
type RedisStore struct {
	client *redispkg.Client
	ttl    time.Duration
	now    func() time.Time
}

func NewRedisStore(client *redispkg.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{client: client, ttl: ttl, now: time.Now}
}

func (s *RedisStore) key(id string) string {
	return s.client.Key("signup", id)
}

func (s *RedisStore) Create(ctx context.Context, email string) (*Session, error) {
	now := s.now()
	sess := &Session{
		ID:        uuid.NewString(),
		Email:     normalizeEmail(email),
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.client.SetJSON(ctx, s.key(sess.ID), sess, s.ttl); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return sess, nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (*Session, error) {
	var sess Session
	found, err := s.client.GetJSON(ctx, s.key(id), &sess)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if !found {
		return nil, nil
	}
	if sess.Expired(s.now()) {
		_ = s.client.Del(ctx, s.key(id))
		return nil, nil
	}
	return &sess, nil
}

func (s *RedisStore) SetVerificationCode(ctx context.Context, id, code string) error {
	return s.update(ctx, id, func(sess *Session) { sess.VerificationCode = code })
}

func (s *RedisStore) MarkVerified(ctx context.Context, id string) error {
	return s.update(ctx, id, func(sess *Session) { sess.Verified = true })
}

func (s *RedisStore) update(ctx context.Context, id string, fn func(*Session)) error {
	sess, err := s.Get(ctx, id)
	if err != nil || sess == nil {
		return err
	}
	fn(sess)
	if _, err := s.client.UpdateJSON(ctx, s.key(id), sess); err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	return nil
}

func (s *RedisStore) Extend(ctx context.Context, id string, until time.Time) error {
	sess, err := s.Get(ctx, id)
	if err != nil || sess == nil {
		return err
	}
	ttl := until.Sub(s.now())
	if ttl <= 0 {
		return s.Delete(ctx, id)
	}
	sess.ExpiresAt = until
	if err := s.client.SetJSON(ctx, s.key(id), sess, ttl); err != nil {
		return fmt.Errorf("extend session: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, s.key(id)); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// Sweep is a no-op; key expiry removes sessions.
func (s *RedisStore) Sweep(context.Context) (int, error) {
	return 0, nil
}

// Close leaves the shared client open; the application closes it.
func (s *RedisStore) Close() error {
	return nil
}
