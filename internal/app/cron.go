package app

import (
	"context"
	"time"

	pkgcron "github.com/routepick/backend/internal/pkg/cron"
	"go.uber.org/zap"
)

const (
	rateCounterSweepInterval = 10 * time.Minute
	tokenPurgeInterval       = 24 * time.Hour
)

// registerCronJobs registers the store maintenance jobs of the application.
func (a *App) registerCronJobs(s *services) error {
	cronLogger := a.logger.Named("CronService")
	jobs := []pkgcron.Job{
		{
			Name:        "cleanup_failed_auth",
			Description: "Drop expired IP locks and stale failure counters",
			Interval:    a.tracker.Policy().CleanupInterval,
			Fn: func(context.Context) error {
				if n := a.tracker.Cleanup(); n > 0 {
					cronLogger.Info("failed-auth entries cleaned", zap.Int("removed", n))
				}
				return nil
			},
		},
		{
			Name:        "purge_expired_tokens",
			Description: "Delete persisted tokens past their expiry",
			Interval:    tokenPurgeInterval,
			Fn: func(ctx context.Context) error {
				n, err := s.tokens.DeleteExpired(ctx, time.Now())
				if err != nil {
					cronLogger.Warn("purge expired tokens failed", zap.Error(err))
					return err
				}
				cronLogger.Info("expired tokens purged", zap.Int64("deleted", n))
				return nil
			},
		},
	}

	if a.sessions != nil {
		jobs = append(jobs, pkgcron.Job{
			Name:        "sweep_signup_sessions",
			Description: "Evict expired signup verification sessions",
			Interval:    a.cfg.Session.SweepInterval(),
			Fn: func(ctx context.Context) error {
				n, err := a.sessions.Sweep(ctx)
				if err != nil {
					return err
				}
				if n > 0 {
					cronLogger.Info("signup sessions swept", zap.Int("removed", n))
				}
				return nil
			},
		})
	}

	if s.memLimit != nil {
		maxWindow := longestWindow(a)
		jobs = append(jobs, pkgcron.Job{
			Name:        "sweep_rate_counters",
			Description: "Drop rate-limit counters whose window has passed",
			Interval:    rateCounterSweepInterval,
			Fn: func(context.Context) error {
				s.memLimit.Sweep(maxWindow)
				return nil
			},
		})
	}

	for _, job := range jobs {
		if err := a.sched.Register(job); err != nil {
			return err
		}
	}
	return nil
}

func longestWindow(a *App) time.Duration {
	rl := a.cfg.RateLimit
	longest := time.Duration(0)
	for _, l := range []time.Duration{rl.IP.Window(), rl.Email.Window(), rl.Global.Window(), rl.AuthAPI.Window(), rl.AuthAdmin.Window(), a.cfg.Session.TTL()} {
		if l > longest {
			longest = l
		}
	}
	return longest
}
