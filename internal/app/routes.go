package app

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/routepick/backend/internal/middleware"
	"github.com/routepick/backend/internal/models"
	"github.com/routepick/backend/internal/modules/auth/auth"
	"github.com/routepick/backend/internal/modules/auth/lockout"
	"github.com/routepick/backend/internal/modules/auth/user"
	"github.com/routepick/backend/internal/modules/auth/verification"
	"github.com/routepick/backend/internal/pkg/apperr"
	"github.com/routepick/backend/internal/pkg/ratelimit"
	"github.com/routepick/backend/internal/pkg/response"
)

var startedAt = time.Now()

func (a *App) registerRoutes(s *services) {
	r := a.router
	cfg := a.cfg

	r.NoRoute(response.NotFound)
	r.NoMethod(response.NotFound)

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"application": string(a.kind),
			"uptime":      time.Since(startedAt).Truncate(time.Second).String(),
		})
	})
	r.GET("/metrics", a.metrics.Handler())

	authMW := middleware.Auth(s.jwt, s.tokens)
	root := r.Group(a.kind.Prefix(), lockout.Middleware(a.tracker))

	entryLimit := cfg.RateLimit.AuthAPI
	if a.kind == KindAdmin {
		entryLimit = cfg.RateLimit.AuthAdmin
	}
	entry := middleware.RateLimit(s.limiter, limit(entryLimit), "auth:"+string(a.kind), a.logger, a.metrics)
	authHandler := auth.NewHandler(s.auth)
	authHandler.RegisterRoutes(root, authMW, entry)

	switch a.kind {
	case KindAPI:
		guard := ratelimit.NewGuard(s.limiter, ratelimit.Policy{
			IP:     limit(cfg.RateLimit.IP),
			Email:  limit(cfg.RateLimit.Email),
			Global: limit(cfg.RateLimit.Global),
		}, a.logger, a.metrics)
		verification.NewHandler(s.verification, guard).RegisterRoutes(root, entry)
		authHandler.RegisterSignup(root, entry)
		if s.local != nil {
			a.registerFileRoutes(s)
		}

	case KindAdmin:
		adminOnly := []gin.HandlerFunc{authMW, middleware.RequireUserType(models.UserTypeAdmin)}
		user.NewHandler(s.users, s.tokens, s.consents, a.logger).RegisterRoutes(root, adminOnly...)
		cronGroup := root.Group("/cron", adminOnly...)
		cronGroup.GET("", func(c *gin.Context) {
			response.OK(c, a.sched.List())
		})
		cronGroup.POST("/run/:name", func(c *gin.Context) {
			if err := a.sched.Run(c.Request.Context(), c.Param("name")); err != nil {
				response.Error(c, apperr.NotFound(err.Error()))
				return
			}
			response.OK(c, gin.H{"message": "job triggered"})
		})
	}
}

// registerFileRoutes serves locally stored profile images under their public prefix.
func (a *App) registerFileRoutes(s *services) {
	prefix := strings.TrimRight(a.cfg.Storage.Local.PublicPrefix, "/")
	if !strings.HasPrefix(prefix, "/") {
		return
	}
	a.router.GET(prefix+"/:filename", func(c *gin.Context) {
		path, err := s.local.Path(c.Param("filename"))
		if err != nil {
			response.NotFound(c)
			return
		}
		c.Header("Cache-Control", "public, max-age=86400")
		c.File(path)
	})
}
