package ratelimit

import (
	"context"
	"strings"

	"github.com/routepick/backend/internal/pkg/apperr"
	"go.uber.org/zap"
)

// Scope names the counter that refused a request.
type Scope string

const (
	ScopeGlobal Scope = "global"
	ScopeIP     Scope = "ip"
	ScopeEmail  Scope = "email"
)

// Policy groups the signup-flow limits.
type Policy struct {
	IP     Limit
	Email  Limit
	Global Limit
}

// Guard applies the per-IP, per-email and global limits in that order. The
// global counter is only charged for requests both narrower scopes admit.
type Guard struct {
	limiter Limiter
	policy  Policy
	logger  *zap.Logger
	metrics Recorder
}

// Recorder receives refusals; satisfied by the metrics package.
type Recorder interface {
	RateLimited(scope string)
}

func NewGuard(limiter Limiter, policy Policy, logger *zap.Logger, rec Recorder) *Guard {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Guard{limiter: limiter, policy: policy, logger: logger, metrics: rec}
}

// Allow returns a RateLimited error naming the first exhausted scope. A
// failing backend is logged and the request is let through.
func (g *Guard) Allow(ctx context.Context, ip, email string) error {
	checks := []struct {
		scope Scope
		key   string
		limit Limit
	}{
		{ScopeIP, IPKey(ip), g.policy.IP},
		{ScopeEmail, EmailKey(email), g.policy.Email},
		{ScopeGlobal, GlobalKey, g.policy.Global},
	}
	for _, check := range checks {
		if check.scope == ScopeIP && strings.TrimSpace(ip) == "" {
			continue
		}
		if check.scope == ScopeEmail && strings.TrimSpace(email) == "" {
			continue
		}
		ok, err := g.limiter.TryConsume(ctx, check.key, check.limit.Max, check.limit.Window)
		if err != nil {
			g.logger.Warn("rate limiter unavailable, allowing request", zap.String("scope", string(check.scope)), zap.Error(err))
			continue
		}
		if !ok {
			g.logger.Warn("rate limit exceeded",
				zap.String("scope", string(check.scope)),
				zap.String("ip", ip),
				zap.String("email", email),
			)
			if g.metrics != nil {
				g.metrics.RateLimited(string(check.scope))
			}
			return apperr.RateLimited(refusalMessage(check.scope))
		}
	}
	return nil
}

func refusalMessage(scope Scope) string {
	switch scope {
	case ScopeGlobal:
		return "the service is busy, please try again shortly"
	case ScopeEmail:
		return "too many requests for this email, please try again later"
	default:
		return "too many requests, please try again later"
	}
}
