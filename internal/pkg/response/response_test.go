package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/routepick/backend/internal/pkg/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(t *testing.T, handler gin.HandlerFunc) (*httptest.ResponseRecorder, APIError) {
	t.Helper()
	router := gin.New()
	router.GET("/api/auth/login", handler)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/auth/login", nil))

	var body APIError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec, body
}

func TestErrorMapsKinds(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{apperr.Validation(apperr.CodeInvalidPassword, "weak"), http.StatusBadRequest, apperr.CodeInvalidPassword},
		{apperr.Duplicate(apperr.CodeDuplicateEmail, "taken"), http.StatusConflict, apperr.CodeDuplicateEmail},
		{apperr.NotFound("gone"), http.StatusNotFound, apperr.CodeNotFound},
		{apperr.Authentication(apperr.CodeInvalidCredentials, "user missing"), http.StatusUnauthorized, apperr.CodeInvalidCredentials},
		{apperr.Authentication(apperr.CodeAccessDenied, "no"), http.StatusForbidden, apperr.CodeAccessDenied},
		{apperr.RateLimited("slow"), http.StatusTooManyRequests, apperr.CodeRateLimited},
		{apperr.Locked("locked"), http.StatusTooManyRequests, apperr.CodeLocked},
		{apperr.Upstream("mail", errors.New("smtp")), http.StatusServiceUnavailable, apperr.CodeUpstream},
		{errors.New("boom"), http.StatusInternalServerError, apperr.CodeInternal},
	}
	for _, tc := range cases {
		rec, body := serve(t, func(c *gin.Context) { Error(c, tc.err) })
		assert.Equal(t, tc.status, rec.Code)
		assert.Equal(t, tc.status, body.StatusCode)
		assert.Equal(t, tc.code, body.ErrorCode)
		assert.Equal(t, "/api/auth/login", body.Path)
		assert.WithinDuration(t, time.Now(), body.Timestamp, 5*time.Second)
	}
}

func TestAuthenticationMessagesAreGeneric(t *testing.T) {
	_, notFound := serve(t, func(c *gin.Context) {
		Error(c, apperr.Authentication(apperr.CodeInvalidCredentials, "no user with that email"))
	})
	_, mismatch := serve(t, func(c *gin.Context) {
		Error(c, apperr.Authentication(apperr.CodeInvalidCredentials, "password mismatch"))
	})
	assert.Equal(t, notFound.Message, mismatch.Message)
	assert.Equal(t, "invalid email or password", notFound.Message)
}

func TestDetailsOnlyWhenExposed(t *testing.T) {
	SetExposeDetails(false)
	_, hidden := serve(t, func(c *gin.Context) { Error(c, errors.New("db exploded")) })
	assert.Empty(t, hidden.Details)
	assert.Equal(t, "internal server error", hidden.Message)

	SetExposeDetails(true)
	defer SetExposeDetails(false)
	_, shown := serve(t, func(c *gin.Context) { Error(c, errors.New("db exploded")) })
	assert.Contains(t, shown.Details, "db exploded")
}

func TestTooManyRequestsSetsRetryAfter(t *testing.T) {
	rec, body := serve(t, func(c *gin.Context) {
		TooManyRequests(c, apperr.Locked("try again in 30 minutes"), 30*time.Minute)
	})
	assert.Equal(t, "1800", rec.Header().Get("Retry-After"))
	assert.Equal(t, "try again in 30 minutes", body.Message)
}

func TestIsAuthFailure(t *testing.T) {
	router := gin.New()
	var seen bool
	router.Use(func(c *gin.Context) {
		c.Next()
		seen = IsAuthFailure(c)
	})
	router.GET("/x", func(c *gin.Context) {
		Error(c, apperr.Authentication(apperr.CodeInvalidCredentials, "bad"))
	})
	router.GET("/denied", func(c *gin.Context) {
		Error(c, apperr.Authentication(apperr.CodeAccessDenied, "access denied"))
	})

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.True(t, seen)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/denied", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.False(t, seen)
}
