// Package bark sends iOS push notifications through the Bark API.
package bark

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

const defaultServer = "https://api.day.app"

var ErrNotConfigured = errors.New("bark: device key not configured")

// Config holds the Bark settings.
type Config struct {
	Key       string
	ServerURL string
	// Title prefixes every notification title and groups them on the device.
	Title string
	// Throttle is the minimum gap between two pushes with the same key.
	Throttle time.Duration
}

// Service pushes notifications and throttles repeated alerts.
type Service struct {
	cfg        Config
	httpClient *http.Client
	logger     *zap.Logger
	now        func() time.Time

	mu         sync.Mutex
	lastPushAt map[string]time.Time
}

func New(cfg Config, logger *zap.Logger) *Service {
	if cfg.ServerURL == "" {
		cfg.ServerURL = defaultServer
	}
	cfg.ServerURL = strings.TrimRight(cfg.ServerURL, "/")
	if cfg.Throttle <= 0 {
		cfg.Throttle = 10 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger.Named("Bark"),
		now:        time.Now,
		lastPushAt: make(map[string]time.Time),
	}
}

// Enabled reports whether a device key is set.
func (s *Service) Enabled() bool { return s != nil && s.cfg.Key != "" }

type pushPayload struct {
	DeviceKey string `json:"device_key"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	Group     string `json:"group,omitempty"`
}

// Push sends a notification immediately.
func (s *Service) Push(ctx context.Context, title, body string) error {
	if !s.Enabled() {
		return ErrNotConfigured
	}
	if s.cfg.Title != "" {
		title = fmt.Sprintf("[%s] %s", s.cfg.Title, title)
	}
	b, err := json.Marshal(pushPayload{
		DeviceKey: s.cfg.Key,
		Title:     title,
		Body:      body,
		Group:     s.cfg.Title,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.ServerURL+"/push", bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("bark push: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("bark push: status %d", resp.StatusCode)
	}
	return nil
}

// ThrottlePush pushes unless a notification with the same key was sent
// within the throttle window. It reports whether a push was attempted.
func (s *Service) ThrottlePush(ctx context.Context, key, title, body string) bool {
	if !s.Enabled() {
		return false
	}
	now := s.now()

	s.mu.Lock()
	if last, ok := s.lastPushAt[key]; ok && now.Sub(last) < s.cfg.Throttle {
		s.mu.Unlock()
		return false
	}
	s.lastPushAt[key] = now
	for k, at := range s.lastPushAt {
		if now.Sub(at) >= s.cfg.Throttle {
			delete(s.lastPushAt, k)
		}
	}
	s.mu.Unlock()

	if err := s.Push(ctx, title, body); err != nil {
		s.logger.Warn("push failed", zap.String("key", key), zap.Error(err))
	}
	return true
}
