// Package app assembles one HTTP application (public api or admin) from
// configuration: stores, services, middleware, routes and background jobs.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/routepick/backend/internal/config"
	"github.com/routepick/backend/internal/database"
	"github.com/routepick/backend/internal/middleware"
	"github.com/routepick/backend/internal/modules/auth/lockout"
	"github.com/routepick/backend/internal/modules/auth/session"
	pkgcron "github.com/routepick/backend/internal/pkg/cron"
	"github.com/routepick/backend/internal/pkg/metrics"
	pkgredis "github.com/routepick/backend/internal/pkg/redis"
	"github.com/routepick/backend/internal/pkg/response"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Kind selects which application is built.
type Kind string

const (
	KindAPI   Kind = "api"
	KindAdmin Kind = "admin"
)

func (k Kind) Valid() bool { return k == KindAPI || k == KindAdmin }

// Prefix is the route prefix of the application.
func (k Kind) Prefix() string { return "/" + string(k) }

// App holds all application dependencies.
type App struct {
	kind     Kind
	cfg      *config.AppConfig
	router   *gin.Engine
	db       *gorm.DB
	rc       *pkgredis.Client
	sessions session.Store
	tracker  *lockout.Tracker
	metrics  *metrics.Metrics
	logger   *zap.Logger
	cancel   context.CancelFunc
	sched    *pkgcron.Scheduler
}

// New initializes the application: config → DB → Redis → stores → routes → cron.
func New(kind Kind, logger *zap.Logger, cfg *config.AppConfig) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown application %q", kind)
	}
	if err := applyRuntimeSettings(cfg); err != nil {
		return nil, err
	}

	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}

	var rc *pkgredis.Client
	if usesRedis(cfg) {
		opts, err := cfg.Redis.Options()
		if err != nil {
			_ = database.Close(db)
			return nil, fmt.Errorf("redis options: %w", err)
		}
		rc, err = pkgredis.Connect(opts, redisPrefix)
		if err != nil {
			_ = database.Close(db)
			return nil, fmt.Errorf("redis: %w", err)
		}
	}

	a, err := build(kind, logger, cfg, db, rc, prometheus.NewRegistry())
	if err != nil {
		if rc != nil {
			_ = rc.Close()
		}
		_ = database.Close(db)
		return nil, err
	}
	return a, nil
}

// build wires an App around already opened connections.
func build(kind Kind, logger *zap.Logger, cfg *config.AppConfig, db *gorm.DB, rc *pkgredis.Client, reg *prometheus.Registry) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("application", string(kind)))

	if cfg.IsDev() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	response.SetExposeDetails(!cfg.IsProduction())

	m, err := metrics.New(metrics.Options{Registerer: reg, Gatherer: reg, App: string(kind)})
	if err != nil {
		return nil, fmt.Errorf("metrics: %w", err)
	}

	policy := lockoutPolicy(kind, cfg)
	trackerOpts := []lockout.Option{lockout.WithRecorder(m)}
	if alerts := newAlerts(cfg, logger); alerts.Enabled() {
		trackerOpts = append(trackerOpts, lockout.WithLockHook(lockAlert(alerts, kind)))
	}
	tracker := lockout.NewTracker(policy, logger, trackerOpts...)

	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(logger))
	router.Use(m.Middleware())
	router.Use(newCORS(cfg))

	ctx, cancel := context.WithCancel(context.Background())
	a := &App{
		kind:    kind,
		cfg:     cfg,
		router:  router,
		db:      db,
		rc:      rc,
		tracker: tracker,
		metrics: m,
		logger:  logger,
		cancel:  cancel,
		sched:   pkgcron.New(logger.Named("CronService")),
	}

	svc, err := a.wireServices()
	if err != nil {
		cancel()
		return nil, err
	}
	a.registerRoutes(svc)
	if err := a.registerCronJobs(svc); err != nil {
		cancel()
		return nil, err
	}
	a.sched.Start(ctx)
	return a, nil
}

// Addr returns the listen address.
func (a *App) Addr() string {
	port := a.cfg.Port
	if a.kind == KindAdmin {
		port = a.cfg.AdminPort
	}
	return fmt.Sprintf(":%d", port)
}

// Router returns the HTTP handler.
func (a *App) Router() http.Handler { return a.router }

// Shutdown stops background jobs and releases every store and connection.
func (a *App) Shutdown() error {
	a.cancel()
	a.sched.Wait()

	var errs []error
	if a.sessions != nil {
		if err := a.sessions.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close sessions: %w", err))
		}
	}
	if a.rc != nil {
		if err := a.rc.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	if a.db != nil {
		if err := database.Close(a.db); err != nil {
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
	}
	return errors.Join(errs...)
}
