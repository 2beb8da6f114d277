package bark

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type recordingServer struct {
	mu       sync.Mutex
	payloads []pushPayload
}

func (r *recordingServer) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, "/push", req.URL.Path)
		var p pushPayload
		require.NoError(t, json.NewDecoder(req.Body).Decode(&p))
		r.mu.Lock()
		r.payloads = append(r.payloads, p)
		r.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}
}

func TestPushSendsPayload(t *testing.T) {
	rec := &recordingServer{}
	srv := httptest.NewServer(rec.handler(t))
	defer srv.Close()

	s := New(Config{Key: "device", ServerURL: srv.URL + "/", Title: "RoutePick"}, zaptest.NewLogger(t))
	require.NoError(t, s.Push(context.Background(), "IP locked", "203.0.113.9"))

	require.Len(t, rec.payloads, 1)
	assert.Equal(t, "device", rec.payloads[0].DeviceKey)
	assert.Equal(t, "[RoutePick] IP locked", rec.payloads[0].Title)
	assert.Equal(t, "RoutePick", rec.payloads[0].Group)
}

func TestPushReportsServerErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	s := New(Config{Key: "device", ServerURL: srv.URL}, zaptest.NewLogger(t))
	assert.Error(t, s.Push(context.Background(), "t", "b"))
}

func TestDisabledWithoutKey(t *testing.T) {
	s := New(Config{}, nil)
	assert.False(t, s.Enabled())
	assert.ErrorIs(t, s.Push(context.Background(), "t", "b"), ErrNotConfigured)
	assert.False(t, s.ThrottlePush(context.Background(), "k", "t", "b"))
}

func TestThrottlePush(t *testing.T) {
	rec := &recordingServer{}
	srv := httptest.NewServer(rec.handler(t))
	defer srv.Close()

	now := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	s := New(Config{Key: "device", ServerURL: srv.URL, Throttle: 10 * time.Minute}, zaptest.NewLogger(t))
	s.now = func() time.Time { return now }
	ctx := context.Background()

	assert.True(t, s.ThrottlePush(ctx, "1.2.3.4", "locked", "1.2.3.4"))
	assert.False(t, s.ThrottlePush(ctx, "1.2.3.4", "locked", "1.2.3.4"))
	assert.True(t, s.ThrottlePush(ctx, "5.6.7.8", "locked", "5.6.7.8"))

	now = now.Add(11 * time.Minute)
	assert.True(t, s.ThrottlePush(ctx, "1.2.3.4", "locked", "1.2.3.4"))
	assert.Len(t, rec.payloads, 3)
}
