// Package verification runs the signup email verification flow: availability
// checks, code dispatch, code checks and registration tokens.
package verification

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"io"
	"math/big"
	"strings"
	"time"

	"github.com/routepick/backend/internal/modules/auth/session"
	"github.com/routepick/backend/internal/pkg/apperr"
	jwtpkg "github.com/routepick/backend/internal/pkg/jwt"
	"github.com/routepick/backend/internal/pkg/mail"
	"go.uber.org/zap"
)

const (
	DefaultTokenTTL    = 10 * time.Minute
	DefaultMaxAttempts = 5
	codeDigits         = 6
)

var codeSpace = big.NewInt(1_000_000)

// EmailChecker reports whether an email is already registered.
type EmailChecker interface {
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}

// RegistrationTokens mints and parses registration tokens.
type RegistrationTokens interface {
	GenerateRegistrationToken(email, sessionID string, ttl time.Duration) (jwtpkg.Issued, error)
	ParseRegistrationToken(token string) (*jwtpkg.RegistrationClaims, error)
}

// AttemptLimiter caps code checks per session.
type AttemptLimiter interface {
	TryConsume(ctx context.Context, key string, max int, window time.Duration) (bool, error)
}

// Options tunes a Service.
type Options struct {
	// Attempts caps code checks per session at MaxAttempts; nil disables the cap.
	Attempts    AttemptLimiter
	MaxAttempts int
	SessionTTL  time.Duration
	TokenTTL    time.Duration
	MailSubject string
	// ExposeCode returns the code in SendResult; never enable in production.
	ExposeCode bool
	Now        func() time.Time
	Rand       io.Reader
}

type Service struct {
	users    EmailChecker
	sessions session.Store
	mailer   mail.Mailer
	tokens   RegistrationTokens
	opts     Options
	logger   *zap.Logger
}

func NewService(users EmailChecker, sessions session.Store, mailer mail.Mailer, tokens RegistrationTokens, opts Options, logger *zap.Logger) *Service {
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = session.DefaultTTL
	}
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = DefaultTokenTTL
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.MailSubject == "" {
		opts.MailSubject = "[RoutePick] Email verification code"
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Rand == nil {
		opts.Rand = rand.Reader
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		users:    users,
		sessions: sessions,
		mailer:   mailer,
		tokens:   tokens,
		opts:     opts,
		logger:   logger.Named("EmailVerificationService"),
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Service) CheckEmailAvailability(ctx context.Context, email string) (AvailabilityResult, error) {
	exists, err := s.users.ExistsByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return AvailabilityResult{}, apperr.Internal(fmt.Errorf("check email: %w", err))
	}
	if exists {
		return AvailabilityResult{Available: false, Message: "email is already in use"}, nil
	}
	return AvailabilityResult{Available: true, Message: "email is available", VerificationRequired: true}, nil
}

// SendVerificationCode creates a session holding a fresh code and mails it.
// A mail failure drops the session and yields an unsent result, not an error.
func (s *Service) SendVerificationCode(ctx context.Context, email string) (SendResult, error) {
	email = normalizeEmail(email)
	exists, err := s.users.ExistsByEmail(ctx, email)
	if err != nil {
		return SendResult{}, apperr.Internal(fmt.Errorf("check email: %w", err))
	}
	if exists {
		s.logger.Warn("verification code requested for registered email", zap.String("email", email))
		return SendResult{}, apperr.Duplicate(apperr.CodeDuplicateEmail, "email is already in use")
	}

	code, err := s.generateCode()
	if err != nil {
		return SendResult{}, apperr.Internal(err)
	}
	sess, err := s.sessions.Create(ctx, email)
	if err != nil {
		return SendResult{}, apperr.Internal(err)
	}
	if err := s.sessions.SetVerificationCode(ctx, sess.ID, code); err != nil {
		_ = s.sessions.Delete(ctx, sess.ID)
		return SendResult{}, apperr.Internal(err)
	}

	if err := s.dispatch(ctx, email, code); err != nil {
		s.logger.Error("verification mail failed", zap.String("email", email), zap.Error(err))
		if delErr := s.sessions.Delete(ctx, sess.ID); delErr != nil {
			s.logger.Warn("drop session after mail failure", zap.String("session", sess.ID), zap.Error(delErr))
		}
		return SendResult{Sent: false, Message: "failed to send the verification code, please try again later"}, nil
	}
	s.logger.Info("verification code sent", zap.String("email", email))

	expiresAt := sess.ExpiresAt
	res := SendResult{
		Sent:         true,
		Message:      "verification code sent",
		SessionToken: sess.ID,
		ExpiresAt:    &expiresAt,
	}
	if s.opts.ExposeCode {
		res.VerificationCode = code
	}
	return res, nil
}

func (s *Service) dispatch(ctx context.Context, email, code string) error {
	msg, err := mail.VerificationMessage(email, s.opts.MailSubject, code, s.opts.SessionTTL)
	if err != nil {
		return err
	}
	return s.mailer.Send(ctx, msg)
}

// generateCode returns a uniformly random zero-padded six digit code.
func (s *Service) generateCode() (string, error) {
	n, err := rand.Int(s.opts.Rand, codeSpace)
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return fmt.Sprintf("%0*d", codeDigits, n.Int64()), nil
}

func (s *Service) VerifyCode(ctx context.Context, email, code, sessionID string) (VerifyResult, error) {
	email = normalizeEmail(email)
	sess, err := s.sessions.Get(ctx, strings.TrimSpace(sessionID))
	if err != nil {
		return VerifyResult{}, apperr.Internal(err)
	}
	if sess == nil {
		s.logger.Warn("verification against invalid session", zap.String("session", sessionID))
		return failed(OutcomeSessionInvalid), nil
	}
	if !s.attemptAllowed(ctx, sess.ID) {
		s.logger.Warn("verification attempts exhausted, dropping session", zap.String("session", sess.ID))
		if err := s.sessions.Delete(ctx, sess.ID); err != nil {
			return VerifyResult{}, apperr.Internal(err)
		}
		return failed(OutcomeSessionInvalid), nil
	}
	if sess.Email != email {
		s.logger.Warn("verification email mismatch", zap.String("session", sess.ID), zap.String("email", email))
		return failed(OutcomeEmailMismatch), nil
	}
	if sess.VerificationCode == "" ||
		subtle.ConstantTimeCompare([]byte(sess.VerificationCode), []byte(strings.TrimSpace(code))) != 1 {
		s.logger.Warn("verification code mismatch", zap.String("session", sess.ID))
		return failed(OutcomeCodeMismatch), nil
	}

	if err := s.sessions.MarkVerified(ctx, sess.ID); err != nil {
		return VerifyResult{}, apperr.Internal(err)
	}
	issued, err := s.tokens.GenerateRegistrationToken(sess.Email, sess.ID, s.opts.TokenTTL)
	if err != nil {
		return VerifyResult{}, apperr.Internal(err)
	}
	if err := s.sessions.Extend(ctx, sess.ID, issued.ExpiresAt); err != nil {
		return VerifyResult{}, apperr.Internal(err)
	}
	s.logger.Info("email verified", zap.String("email", sess.Email))

	expiresAt := issued.ExpiresAt
	return VerifyResult{
		Outcome:           OutcomeVerified,
		Message:           "email verified",
		VerifiedEmail:     sess.Email,
		RegistrationToken: issued.Token,
		TokenExpiresAt:    &expiresAt,
	}, nil
}

// attemptAllowed takes one code check from the session's budget. A failing
// limiter lets the check through.
func (s *Service) attemptAllowed(ctx context.Context, sessionID string) bool {
	if s.opts.Attempts == nil {
		return true
	}
	ok, err := s.opts.Attempts.TryConsume(ctx, "verify:"+sessionID, s.opts.MaxAttempts, s.opts.SessionTTL)
	if err != nil {
		s.logger.Warn("attempt limiter unavailable, allowing check", zap.Error(err))
		return true
	}
	return ok
}

func failed(o Outcome) VerifyResult {
	res := VerifyResult{Outcome: o}
	if err, ok := apperr.As(o.Err()); ok {
		res.Message = err.Message
	}
	return res
}

// ValidateRegistrationToken reports whether token is bound to a live,
// verified session for email.
func (s *Service) ValidateRegistrationToken(ctx context.Context, token, email string) bool {
	claims, err := s.tokens.ParseRegistrationToken(token)
	if err != nil {
		return false
	}
	sess, err := s.sessions.Get(ctx, claims.SessionID)
	if err != nil {
		s.logger.Warn("registration session lookup failed", zap.Error(err))
		return false
	}
	if sess == nil || !sess.Verified || sess.Expired(s.opts.Now()) {
		return false
	}
	email = normalizeEmail(email)
	return sess.Email == email && normalizeEmail(claims.Email) == email
}

// ConsumeRegistrationToken ends the session behind token so it cannot be reused.
func (s *Service) ConsumeRegistrationToken(ctx context.Context, token string) error {
	claims, err := s.tokens.ParseRegistrationToken(token)
	if err != nil {
		return apperr.Authentication(apperr.CodeInvalidToken, "invalid registration token").Wrap(err)
	}
	if err := s.sessions.Delete(ctx, claims.SessionID); err != nil {
		return apperr.Internal(err)
	}
	return nil
}
