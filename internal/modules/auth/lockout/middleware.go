package lockout

import (
	"fmt"
	"math"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/routepick/backend/internal/middleware"
	"github.com/routepick/backend/internal/pkg/apperr"
	"github.com/routepick/backend/internal/pkg/response"
)

// Middleware rejects locked IPs with 429 and records a failure whenever a
// downstream handler ends in an authentication error.
func Middleware(t *Tracker) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := middleware.ClientIP(c)
		if t.IsLocked(ip) {
			left := t.Remaining(ip)
			minutes := int(math.Ceil(left.Minutes()))
			if minutes < 1 {
				minutes = 1
			}
			response.TooManyRequests(c,
				apperr.Locked(fmt.Sprintf("too many failed attempts, try again in %d minutes", minutes)),
				left,
			)
			return
		}

		c.Next()

		if response.IsAuthFailure(c) || c.Writer.Status() == http.StatusUnauthorized {
			t.RecordFailure(ip)
		}
	}
}
