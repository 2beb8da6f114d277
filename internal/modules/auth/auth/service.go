// Package auth implements signup, login, token refresh and logout.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/routepick/backend/internal/models"
	"github.com/routepick/backend/internal/modules/auth/user"
	"github.com/routepick/backend/internal/pkg/apperr"
	jwtpkg "github.com/routepick/backend/internal/pkg/jwt"
	"github.com/routepick/backend/internal/pkg/password"
	"github.com/routepick/backend/internal/pkg/storage"
	"go.uber.org/zap"
)

type UserStore interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Insert(ctx context.Context, u *models.User) error
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error
}

type TokenStore interface {
	Insert(ctx context.Context, t *models.APIToken) error
	FindByToken(ctx context.Context, raw string) (*models.APIToken, error)
	Revoke(ctx context.Context, id string) (bool, error)
	RevokeAllByUserID(ctx context.Context, userID string) (int64, error)
}

type AgreementStore interface {
	InsertAll(ctx context.Context, rows []models.UserAgreement) error
}

// Transactor runs fn in one database transaction.
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Registration checks and consumes registration tokens.
type Registration interface {
	ValidateRegistrationToken(ctx context.Context, token, email string) bool
	ConsumeRegistrationToken(ctx context.Context, token string) error
}

type TokenIssuer interface {
	GenerateAccessToken(sub jwtpkg.Subject) (jwtpkg.Issued, error)
	GenerateRefreshToken(sub jwtpkg.Subject) (jwtpkg.Issued, error)
	Parse(token string) (*jwtpkg.Claims, error)
	AccessTTL() time.Duration
}

type PasswordHasher interface {
	Hash(pw string) (string, error)
	Verify(hash, pw string) error
	Burn(pw string)
}

// Deps groups the collaborators of a Service.
type Deps struct {
	Users        UserStore
	Tokens       TokenStore
	Agreements   AgreementStore
	Tx           Transactor
	Registration Registration
	Issuer       TokenIssuer
	Hasher       PasswordHasher
	Images       storage.Store
}

// Options tunes a Service.
type Options struct {
	// AllowedUserTypes restricts login; empty allows every type.
	AllowedUserTypes []models.UserType
	MaxImageBytes    int64
	Now              func() time.Time
}

var (
	errUserNotFound       = errors.New("user not found")
	errRefreshSpent       = errors.New("refresh token already used")
	errInvalidCredentials = apperr.Authentication(apperr.CodeInvalidCredentials, "invalid email or password")
	errInvalidToken       = apperr.Authentication(apperr.CodeInvalidToken, "invalid refresh token")
	errAccountInactive    = apperr.Authentication(apperr.CodeAccountInactive, "account is not active")
)

type Service struct {
	deps   Deps
	opts   Options
	logger *zap.Logger
}

func NewService(deps Deps, opts Options, logger *zap.Logger) *Service {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{deps: deps, opts: opts, logger: logger.Named("AuthService")}
}

// Signup creates an ACTIVE, NORMAL user. Every validation runs before the
// first side effect; the user and its agreements are written atomically.
func (s *Service) Signup(ctx context.Context, req SignupRequest, image *storage.Upload) (*models.User, error) {
	if !s.deps.Registration.ValidateRegistrationToken(ctx, req.RegistrationToken, req.Email) {
		return nil, apperr.Validation(apperr.CodeInvalidToken, "email verification is missing or expired")
	}
	exists, err := s.deps.Users.ExistsByEmail(ctx, req.Email)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if exists {
		return nil, apperr.Duplicate(apperr.CodeDuplicateEmail, "email is already registered")
	}
	if err := password.Validate(req.Password); err != nil {
		return nil, apperr.Validation(apperr.CodeInvalidPassword, err.Error())
	}
	if !req.RequiredAgreementsAccepted() {
		return nil, apperr.Validation(apperr.CodeAgreementRequired, "terms and privacy agreements are required")
	}
	if image != nil {
		if err := storage.Validate(image.Filename, image.Size, s.opts.MaxImageBytes); err != nil {
			return nil, err
		}
	}

	hash, err := s.deps.Hasher.Hash(req.Password)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	var imageName, imageURL string
	if image != nil {
		imageName, imageURL, err = storage.Save(ctx, s.deps.Images, *image, s.opts.MaxImageBytes)
		if err != nil {
			if _, ok := apperr.As(err); ok {
				return nil, err
			}
			return nil, apperr.Upstream("failed to store profile image", err)
		}
	}

	now := s.opts.Now()
	u := &models.User{
		Email:           req.Email,
		PasswordHash:    hash,
		UserName:        req.UserName,
		Phone:           req.Phone,
		ProfileImageURL: imageURL,
		UserType:        models.UserTypeNormal,
		Status:          models.UserStatusActive,
	}
	err = s.deps.Tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.deps.Users.Insert(ctx, u); err != nil {
			return err
		}
		return s.deps.Agreements.InsertAll(ctx, []models.UserAgreement{
			models.NewAgreement(u.ID, models.AgreementTerms, isTrue(req.AgreeTerms), now),
			models.NewAgreement(u.ID, models.AgreementPrivacy, isTrue(req.AgreePrivacy), now),
			models.NewAgreement(u.ID, models.AgreementMarketing, isTrue(req.AgreeMarketing), now),
			models.NewAgreement(u.ID, models.AgreementLocation, isTrue(req.AgreeLocation), now),
		})
	})
	if err != nil {
		if imageName != "" {
			if delErr := s.deps.Images.Delete(ctx, imageName); delErr != nil {
				s.logger.Warn("remove orphaned profile image", zap.String("file", imageName), zap.Error(delErr))
			}
		}
		if _, ok := apperr.As(err); ok {
			return nil, err
		}
		return nil, apperr.Internal(fmt.Errorf("persist signup: %w", err))
	}

	if err := s.deps.Registration.ConsumeRegistrationToken(ctx, req.RegistrationToken); err != nil {
		s.logger.Warn("consume registration token", zap.String("email", u.Email), zap.Error(err))
	}
	s.logger.Info("user signed up", zap.String("user", u.ID), zap.String("email", u.Email))
	return u, nil
}

// Login checks credentials, revokes the user's earlier tokens and issues a
// new pair. Unknown emails and wrong passwords fail identically.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	u, err := s.deps.Users.FindByEmail(ctx, req.Email)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if u == nil {
		s.deps.Hasher.Burn(req.Password)
		return nil, errInvalidCredentials.Wrap(errUserNotFound)
	}
	if err := s.deps.Hasher.Verify(u.PasswordHash, req.Password); err != nil {
		return nil, errInvalidCredentials.Wrap(err)
	}
	if !u.IsActive() {
		return nil, errAccountInactive
	}
	if !s.allowed(u.UserType) {
		s.logger.Warn("login with disallowed user type", zap.String("user", u.ID), zap.String("type", string(u.UserType)))
		return nil, apperr.Authentication(apperr.CodeAccessDenied, "access denied")
	}

	pair, err := s.issuePair(ctx, u, "")
	if err != nil {
		return nil, err
	}
	now := s.opts.Now()
	if err := s.deps.Users.UpdateLastLogin(ctx, u.ID, now); err != nil {
		s.logger.Warn("update last login", zap.String("user", u.ID), zap.Error(err))
	}
	u.LastLoginAt = &now
	s.logger.Info("user logged in", zap.String("user", u.ID))
	return &LoginResponse{TokenPair: *pair, User: user.ToInfo(u)}, nil
}

func (s *Service) allowed(t models.UserType) bool {
	if len(s.opts.AllowedUserTypes) == 0 {
		return true
	}
	for _, a := range s.opts.AllowedUserTypes {
		if a == t {
			return true
		}
	}
	return false
}

// Refresh rotates a refresh token. Each refresh token works once; replaying
// a revoked one revokes every token of the user.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.deps.Issuer.Parse(refreshToken)
	if err != nil {
		if errors.Is(err, jwtpkg.ErrExpiredToken) {
			return nil, apperr.Authentication(apperr.CodeExpiredToken, "refresh token expired").Wrap(err)
		}
		return nil, errInvalidToken.Wrap(err)
	}
	if claims.TokenType != jwtpkg.TypeRefresh {
		return nil, errInvalidToken
	}
	if claims.ExpiresAt == nil || !s.opts.Now().Before(claims.ExpiresAt.Time) {
		return nil, apperr.Authentication(apperr.CodeExpiredToken, "refresh token expired")
	}

	u, err := s.deps.Users.FindByID(ctx, claims.UserID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if u == nil {
		return nil, errInvalidToken.Wrap(errUserNotFound)
	}
	if !u.IsActive() {
		return nil, errAccountInactive
	}

	row, err := s.deps.Tokens.FindByToken(ctx, refreshToken)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if row == nil {
		return nil, errInvalidToken
	}
	if row.Revoked {
		return nil, s.replayed(ctx, u.ID)
	}

	pair, err := s.issuePair(ctx, u, row.ID)
	if errors.Is(err, errRefreshSpent) {
		return nil, s.replayed(ctx, u.ID)
	}
	return pair, err
}

// replayed handles a refresh token presented after it was spent.
func (s *Service) replayed(ctx context.Context, userID string) error {
	s.logger.Warn("revoked refresh token presented", zap.String("user", userID))
	if _, err := s.deps.Tokens.RevokeAllByUserID(ctx, userID); err != nil {
		s.logger.Error("revoke tokens after replay", zap.String("user", userID), zap.Error(err))
	}
	return errInvalidToken
}

// issuePair revokes every token of u and persists a fresh pair. A non-empty
// spentID is revoked first and must still be live, so a refresh token is
// exchanged at most once.
func (s *Service) issuePair(ctx context.Context, u *models.User, spentID string) (*TokenPair, error) {
	sub := jwtpkg.Subject{UserID: u.ID, Email: u.Email, UserType: string(u.UserType)}
	access, err := s.deps.Issuer.GenerateAccessToken(sub)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	refresh, err := s.deps.Issuer.GenerateRefreshToken(sub)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	err = s.deps.Tx.InTx(ctx, func(ctx context.Context) error {
		if spentID != "" {
			ok, err := s.deps.Tokens.Revoke(ctx, spentID)
			if err != nil {
				return err
			}
			if !ok {
				return errRefreshSpent
			}
		}
		if _, err := s.deps.Tokens.RevokeAllByUserID(ctx, u.ID); err != nil {
			return err
		}
		if err := s.deps.Tokens.Insert(ctx, &models.APIToken{
			UserID: u.ID, Token: access.Token, TokenType: models.TokenTypeAccess, ExpiresAt: access.ExpiresAt,
		}); err != nil {
			return err
		}
		return s.deps.Tokens.Insert(ctx, &models.APIToken{
			UserID: u.ID, Token: refresh.Token, TokenType: models.TokenTypeRefresh, ExpiresAt: refresh.ExpiresAt,
		})
	})
	if errors.Is(err, errRefreshSpent) {
		return nil, err
	}
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("persist tokens: %w", err))
	}

	return &TokenPair{
		AccessToken:  access.Token,
		RefreshToken: refresh.Token,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.deps.Issuer.AccessTTL() / time.Second),
	}, nil
}

// Logout revokes every token of the user.
func (s *Service) Logout(ctx context.Context, userID string) error {
	n, err := s.deps.Tokens.RevokeAllByUserID(ctx, userID)
	if err != nil {
		return apperr.Internal(err)
	}
	s.logger.Info("user logged out", zap.String("user", userID), zap.Int64("revoked", n))
	return nil
}

// Me returns the projection of the authenticated user.
func (s *Service) Me(ctx context.Context, userID string) (user.Info, error) {
	u, err := s.deps.Users.FindByID(ctx, userID)
	if err != nil {
		return user.Info{}, apperr.Internal(err)
	}
	if u == nil {
		return user.Info{}, apperr.NotFound("user not found")
	}
	return user.ToInfo(u), nil
}
