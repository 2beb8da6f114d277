package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMetrics(t *testing.T) *Metrics {
	t.Helper()
	m, err := New(Options{Registerer: prometheus.NewRegistry(), App: "api"})
	require.NoError(t, err)
	return m
}

func TestMiddlewareRecordsRequests(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := newTestMetrics(t)

	router := gin.New()
	router.Use(m.Middleware())
	router.GET("/ping", func(c *gin.Context) { c.Status(http.StatusCreated) })

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/ping", nil))
	require.Equal(t, http.StatusCreated, rr.Code)

	labels := prometheus.Labels{"method": http.MethodGet, "route": "/ping", "status": "201"}
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Requests.With(labels)))
	assert.Equal(t, float64(0), testutil.ToFloat64(m.InFlight))

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/missing", nil))
	unmatched := prometheus.Labels{"method": http.MethodGet, "route": "unmatched", "status": "404"}
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Requests.With(unmatched)))
}

func TestSecurityCounters(t *testing.T) {
	m := newTestMetrics(t)
	m.AuthFailed()
	m.AuthFailed()
	m.Locked()
	m.RateLimited("ip")

	assert.Equal(t, float64(2), testutil.ToFloat64(m.AuthFailures.WithLabelValues("api")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Lockouts.WithLabelValues("api")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.RateLimits.WithLabelValues("api", "ip")))

	var nilMetrics *Metrics
	assert.NotPanics(t, func() {
		nilMetrics.AuthFailed()
		nilMetrics.Locked()
		nilMetrics.RateLimited("global")
	})
}

func TestNewReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	a, err := New(Options{Registerer: reg, App: "api"})
	require.NoError(t, err)
	b, err := New(Options{Registerer: reg, App: "admin"})
	require.NoError(t, err)
	assert.Same(t, a.Requests, b.Requests)

	a.AuthFailed()
	b.AuthFailed()
	assert.Equal(t, float64(1), testutil.ToFloat64(a.AuthFailures.WithLabelValues("admin")))
}

func TestHandlerExposesCollectors(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := newTestMetrics(t)
	m.Locked()

	router := gin.New()
	router.GET("/metrics", m.Handler())
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, strings.Contains(rr.Body.String(), "routepick_auth_lockouts_total"))
}
