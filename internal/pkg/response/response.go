package response

import (
	"errors"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/routepick/backend/internal/pkg/apperr"
)

var exposeDetails atomic.Bool

// SetExposeDetails toggles the details field of error bodies. Enabled outside production.
func SetExposeDetails(enabled bool) {
	exposeDetails.Store(enabled)
}

// APIError is the error body returned by every endpoint.
type APIError struct {
	Path       string    `json:"path"`
	Message    string    `json:"message"`
	StatusCode int       `json:"statusCode"`
	ErrorCode  string    `json:"errorCode"`
	Timestamp  time.Time `json:"timestamp"`
	Details    string    `json:"details,omitempty"`
}

// OK sends a 200 response.
func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

// Created sends a 201 response.
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, data)
}

// NoContent sends a 204 response.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Error classifies err and writes the matching error body. The error is
// also attached to the gin context so middleware can observe it.
func Error(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)

	appErr, ok := apperr.As(err)
	if !ok {
		appErr = apperr.Internal(err)
	}
	body := APIError{
		Path:       c.Request.URL.Path,
		Message:    PublicMessage(appErr),
		StatusCode: StatusFor(appErr),
		ErrorCode:  appErr.Code,
		Timestamp:  time.Now(),
	}
	if exposeDetails.Load() {
		body.Details = appErr.Error()
	}
	c.AbortWithStatusJSON(body.StatusCode, body)
}

// BadRequest sends a 400 validation error.
func BadRequest(c *gin.Context, message string) {
	Error(c, apperr.Validation(apperr.CodeInvalidRequest, message))
}

// Unauthorized sends a 401 error.
func Unauthorized(c *gin.Context) {
	Error(c, apperr.Authentication(apperr.CodeUnauthorized, "authentication required"))
}

// NotFound sends a 404 error.
func NotFound(c *gin.Context) {
	Error(c, apperr.NotFound("resource not found"))
}

// TooManyRequests sends a 429 error with a Retry-After header.
func TooManyRequests(c *gin.Context, err error, retryAfter time.Duration) {
	if retryAfter > 0 {
		secs := int(retryAfter.Round(time.Second) / time.Second)
		if secs < 1 {
			secs = 1
		}
		c.Header("Retry-After", strconv.Itoa(secs))
	}
	Error(c, err)
}

// StatusFor maps an error kind to its HTTP status.
func StatusFor(err *apperr.Error) int {
	switch err.Kind {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindDuplicate:
		return http.StatusConflict
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindAuthentication:
		if err.Code == apperr.CodeAccessDenied {
			return http.StatusForbidden
		}
		return http.StatusUnauthorized
	case apperr.KindRateLimited, apperr.KindLocked:
		return http.StatusTooManyRequests
	case apperr.KindUpstream:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage is the externally visible message. Authentication failures
// always use a fixed wording per code so callers cannot tell which check failed.
func PublicMessage(err *apperr.Error) string {
	switch err.Kind {
	case apperr.KindAuthentication:
		switch err.Code {
		case apperr.CodeInvalidCredentials:
			return "invalid email or password"
		case apperr.CodeInvalidToken, apperr.CodeExpiredToken:
			return "invalid or expired token"
		case apperr.CodeAccountInactive:
			return "account is not active"
		case apperr.CodeAccessDenied:
			return "access denied"
		default:
			return "authentication required"
		}
	case apperr.KindInternal:
		return "internal server error"
	}
	return err.Message
}

// IsAuthFailure reports whether any error recorded on c is an authentication
// failure. ACCESS_DENIED is an authorization outcome and does not count.
func IsAuthFailure(c *gin.Context) bool {
	for _, ginErr := range c.Errors {
		var appErr *apperr.Error
		if errors.As(ginErr.Err, &appErr) && appErr.Kind == apperr.KindAuthentication &&
			appErr.Code != apperr.CodeAccessDenied {
			return true
		}
	}
	return false
}
