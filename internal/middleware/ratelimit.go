package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/routepick/backend/internal/pkg/apperr"
	"github.com/routepick/backend/internal/pkg/ratelimit"
	"github.com/routepick/backend/internal/pkg/response"
	"go.uber.org/zap"
)

// RateLimit limits requests per client IP under the given key namespace.
// A failing limiter lets the request through.
func RateLimit(limiter ratelimit.Limiter, limit ratelimit.Limit, namespace string, log *zap.Logger, rec ratelimit.Recorder) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	return func(c *gin.Context) {
		ip := ClientIP(c)
		if ip == "" {
			c.Next()
			return
		}

		ok, err := limiter.TryConsume(c.Request.Context(), namespace+":"+ratelimit.IPKey(ip), limit.Max, limit.Window)
		if err != nil {
			log.Warn("rate limiter unavailable, allowing request", zap.String("namespace", namespace), zap.Error(err))
			c.Next()
			return
		}
		if !ok {
			log.Warn("rate limit exceeded",
				zap.String("namespace", namespace),
				zap.String("ip", ip),
				zap.String("path", c.Request.URL.Path),
			)
			if rec != nil {
				rec.RateLimited(namespace)
			}
			response.TooManyRequests(c, apperr.RateLimited("too many requests, please try again later"), limit.Window)
			return
		}
		c.Next()
	}
}
