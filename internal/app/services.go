package app

import (
	"fmt"
	"strings"

	"github.com/routepick/backend/internal/config"
	"github.com/routepick/backend/internal/database"
	"github.com/routepick/backend/internal/models"
	"github.com/routepick/backend/internal/modules/auth/auth"
	"github.com/routepick/backend/internal/modules/auth/lockout"
	"github.com/routepick/backend/internal/modules/auth/session"
	"github.com/routepick/backend/internal/modules/auth/user"
	"github.com/routepick/backend/internal/modules/auth/verification"
	jwtpkg "github.com/routepick/backend/internal/pkg/jwt"
	"github.com/routepick/backend/internal/pkg/mail"
	"github.com/routepick/backend/internal/pkg/password"
	"github.com/routepick/backend/internal/pkg/ratelimit"
	"github.com/routepick/backend/internal/pkg/storage"
	"golang.org/x/crypto/bcrypt"
)

const redisPrefix = "routepick:"

// services are the wired components routes and jobs draw from.
type services struct {
	jwt      *jwtpkg.Manager
	users    *user.Users
	tokens   *user.Tokens
	consents *user.Agreements
	limiter  ratelimit.Limiter
	memLimit *ratelimit.MemoryLimiter
	images   storage.Store
	local    *storage.LocalStore

	auth         *auth.Service
	verification *verification.Service
}

func usesRedis(cfg *config.AppConfig) bool {
	return cfg.RateLimit.Backend == config.BackendRedis || cfg.Session.Backend == config.BackendRedis
}

func lockoutPolicy(kind Kind, cfg *config.AppConfig) lockout.Policy {
	p := cfg.Security.API
	if kind == KindAdmin {
		p = cfg.Security.Admin
	}
	return lockout.Policy{
		MaxAttempts:     p.MaxFailedAttempts,
		LockDuration:    p.LockDuration(),
		CleanupInterval: p.CleanupInterval(),
	}
}

func limit(l config.LimitConfig) ratelimit.Limit {
	return ratelimit.Limit{Max: l.MaxRequests, Window: l.Window()}
}

func (a *App) wireServices() (*services, error) {
	cfg := a.cfg
	jwtManager, err := jwtpkg.NewManager(jwtpkg.Config{
		Secret:     cfg.JWT.Secret,
		Issuer:     cfg.JWT.Issuer,
		AccessTTL:  cfg.JWT.AccessTokenTTL(),
		RefreshTTL: cfg.JWT.RefreshTokenTTL(),
	})
	if err != nil {
		return nil, fmt.Errorf("jwt: %w", err)
	}

	s := &services{
		jwt:      jwtManager,
		users:    user.NewUsers(a.db),
		tokens:   user.NewTokens(a.db),
		consents: user.NewAgreements(a.db),
	}

	if cfg.RateLimit.Backend == config.BackendRedis {
		s.limiter = ratelimit.NewRedisLimiter(a.rc.Raw(), a.rc.Key("rate")+":")
	} else {
		s.memLimit = ratelimit.NewMemoryLimiter()
		s.limiter = s.memLimit
	}

	if s.images, s.local, err = newImageStore(cfg); err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}

	if a.kind == KindAPI {
		if cfg.Session.Backend == config.BackendRedis {
			a.sessions = session.NewRedisStore(a.rc, cfg.Session.TTL())
		} else {
			a.sessions = session.NewMemoryStore(session.WithTTL(cfg.Session.TTL()))
		}
		mailer := mail.New(mail.Config{
			Enable:    cfg.Mail.Enable,
			Host:      cfg.Mail.Host,
			Port:      cfg.Mail.Port,
			User:      cfg.Mail.User,
			Pass:      cfg.Mail.Pass,
			From:      cfg.Mail.From,
			ReplyTo:   cfg.Mail.ReplyTo,
			UseResend: cfg.Mail.UseResend,
			ResendKey: cfg.Mail.ResendKey,
		}, a.logger)
		s.verification = verification.NewService(s.users, a.sessions, mailer, jwtManager, verification.Options{
			SessionTTL:  cfg.Session.TTL(),
			TokenTTL:    cfg.Session.RegistrationTokenTTL(),
			MailSubject: cfg.Mail.Subject,
			ExposeCode:  cfg.IsDev(),
			Attempts:    s.limiter,
		}, a.logger)
	}

	var allowed []models.UserType
	if a.kind == KindAdmin {
		allowed = []models.UserType{models.UserTypeAdmin, models.UserTypeGymAdmin}
	}
	s.auth = auth.NewService(auth.Deps{
		Users:        s.users,
		Tokens:       s.tokens,
		Agreements:   s.consents,
		Tx:           database.NewTransactor(a.db),
		Registration: registrationOrDeny(s.verification),
		Issuer:       jwtManager,
		Hasher:       password.NewHasher(bcrypt.DefaultCost),
		Images:       s.images,
	}, auth.Options{
		AllowedUserTypes: allowed,
		MaxImageBytes:    cfg.Storage.MaxSizeBytes(),
	}, a.logger)
	return s, nil
}

// registrationOrDeny returns the verification service, or a stand-in that
// rejects every registration token when the application has no signup flow.
func registrationOrDeny(v *verification.Service) auth.Registration {
	if v == nil {
		return denyRegistration{}
	}
	return v
}

func newImageStore(cfg *config.AppConfig) (storage.Store, *storage.LocalStore, error) {
	if cfg.Storage.Driver == config.StorageS3 {
		s3cfg := cfg.Storage.S3
		st, err := storage.NewS3Store(storage.S3Config{
			Endpoint:        s3cfg.Endpoint,
			Region:          s3cfg.Region,
			Bucket:          s3cfg.Bucket,
			AccessKeyID:     s3cfg.AccessKeyID,
			SecretAccessKey: s3cfg.SecretAccessKey,
			PathStyle:       s3cfg.PathStyle,
			Prefix:          s3cfg.Prefix,
			PublicBaseURL:   s3cfg.PublicBaseURL,
		})
		return st, nil, err
	}
	local, err := storage.NewLocalStore(cfg.UploadDir(), strings.TrimRight(cfg.Storage.Local.PublicPrefix, "/"))
	if err != nil {
		return nil, nil, err
	}
	return local, local, nil
}
