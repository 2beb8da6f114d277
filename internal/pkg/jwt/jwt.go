package jwt

import (
	"errors"
	"fmt"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token types carried in the tokenType claim.
const (
	TypeAccess       = "ACCESS"
	TypeRefresh      = "REFRESH"
	TypeRegistration = "REGISTRATION"
)

const minSecretLength = 32

var (
	ErrInvalidToken = errors.New("jwt: invalid token")
	ErrExpiredToken = errors.New("jwt: token expired")
)

// Config configures a Manager.
type Config struct {
	Secret     string
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	// Now overrides the clock; nil means time.Now.
	Now func() time.Time
}

// Subject identifies the user a token is issued for.
type Subject struct {
	UserID   string
	Email    string
	UserType string
}

// Claims is the payload of access and refresh tokens. The subject is the email.
type Claims struct {
	UserID    string `json:"userId"`
	Email     string `json:"email"`
	UserType  string `json:"userType"`
	TokenType string `json:"tokenType"`
	jwtlib.RegisteredClaims
}

// RegistrationClaims binds a verified signup session to an email.
type RegistrationClaims struct {
	Email     string `json:"email"`
	SessionID string `json:"sid"`
	TokenType string `json:"tokenType"`
	jwtlib.RegisteredClaims
}

// Issued is a freshly signed token.
type Issued struct {
	Token     string
	ExpiresAt time.Time
}

// Manager signs and verifies HS256 tokens.
type Manager struct {
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewManager(cfg Config) (*Manager, error) {
	if len(cfg.Secret) < minSecretLength {
		return nil, fmt.Errorf("jwt secret must be at least %d bytes", minSecretLength)
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Manager{
		secret:     []byte(cfg.Secret),
		issuer:     strings.TrimSpace(cfg.Issuer),
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		now:        now,
	}, nil
}

func (m *Manager) AccessTTL() time.Duration  { return m.accessTTL }
func (m *Manager) RefreshTTL() time.Duration { return m.refreshTTL }

func (m *Manager) GenerateAccessToken(sub Subject) (Issued, error) {
	return m.generate(sub, TypeAccess, m.accessTTL)
}

func (m *Manager) GenerateRefreshToken(sub Subject) (Issued, error) {
	return m.generate(sub, TypeRefresh, m.refreshTTL)
}

func (m *Manager) generate(sub Subject, tokenType string, ttl time.Duration) (Issued, error) {
	if sub.UserID == "" || sub.Email == "" {
		return Issued{}, errors.New("jwt: subject requires user id and email")
	}
	now := m.now()
	exp := now.Add(ttl)
	claims := Claims{
		UserID:    sub.UserID,
		Email:     sub.Email,
		UserType:  sub.UserType,
		TokenType: tokenType,
		RegisteredClaims: m.registered(sub.Email, now, exp),
	}
	return m.sign(claims, exp)
}

// GenerateRegistrationToken issues the token handed out after a successful code check.
func (m *Manager) GenerateRegistrationToken(email, sessionID string, ttl time.Duration) (Issued, error) {
	if email == "" || sessionID == "" || ttl <= 0 {
		return Issued{}, errors.New("jwt: invalid registration token input")
	}
	now := m.now()
	exp := now.Add(ttl)
	claims := RegistrationClaims{
		Email:            email,
		SessionID:        sessionID,
		TokenType:        TypeRegistration,
		RegisteredClaims: m.registered(email, now, exp),
	}
	return m.sign(claims, exp)
}

func (m *Manager) registered(subject string, now, exp time.Time) jwtlib.RegisteredClaims {
	return jwtlib.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   subject,
		Issuer:    m.issuer,
		IssuedAt:  jwtlib.NewNumericDate(now),
		ExpiresAt: jwtlib.NewNumericDate(exp),
	}
}

func (m *Manager) sign(claims jwtlib.Claims, exp time.Time) (Issued, error) {
	signed, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return Issued{}, fmt.Errorf("sign token: %w", err)
	}
	return Issued{Token: signed, ExpiresAt: exp.Truncate(time.Second)}, nil
}

func (m *Manager) parser(extra ...jwtlib.ParserOption) *jwtlib.Parser {
	opts := []jwtlib.ParserOption{
		jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}),
		jwtlib.WithTimeFunc(m.now),
	}
	if m.issuer != "" {
		opts = append(opts, jwtlib.WithIssuer(m.issuer))
	}
	return jwtlib.NewParser(append(opts, extra...)...)
}

func (m *Manager) keyFunc(t *jwtlib.Token) (interface{}, error) {
	if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
	}
	return m.secret, nil
}

// Parse verifies signature, issuer and expiry of an access or refresh token.
func (m *Manager) Parse(tokenStr string) (*Claims, error) {
	tokenStr = strings.TrimSpace(tokenStr)
	if tokenStr == "" {
		return nil, ErrInvalidToken
	}
	claims := &Claims{}
	token, err := m.parser(jwtlib.WithExpirationRequired()).ParseWithClaims(tokenStr, claims, m.keyFunc)
	if err != nil {
		if errors.Is(err, jwtlib.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.UserID == "" || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	if claims.TokenType != TypeAccess && claims.TokenType != TypeRefresh {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ParseRegistrationToken verifies a registration token.
func (m *Manager) ParseRegistrationToken(tokenStr string) (*RegistrationClaims, error) {
	tokenStr = strings.TrimSpace(tokenStr)
	if tokenStr == "" {
		return nil, ErrInvalidToken
	}
	claims := &RegistrationClaims{}
	token, err := m.parser(jwtlib.WithExpirationRequired()).ParseWithClaims(tokenStr, claims, m.keyFunc)
	if err != nil {
		if errors.Is(err, jwtlib.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.TokenType != TypeRegistration || claims.SessionID == "" || claims.Email == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ValidateToken reports whether tokenStr is a well-formed, correctly signed,
// unexpired access or refresh token. It never returns an error.
func (m *Manager) ValidateToken(tokenStr string) bool {
	_, err := m.Parse(tokenStr)
	return err == nil
}

// UserID returns the userId claim of a valid token.
func (m *Manager) UserID(tokenStr string) (string, error) {
	claims, err := m.Parse(tokenStr)
	if err != nil {
		return "", err
	}
	return claims.UserID, nil
}

// Email returns the subject of a valid token.
func (m *Manager) Email(tokenStr string) (string, error) {
	claims, err := m.Parse(tokenStr)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// TokenType returns the tokenType claim of a valid token.
func (m *Manager) TokenType(tokenStr string) (string, error) {
	claims, err := m.Parse(tokenStr)
	if err != nil {
		return "", err
	}
	return claims.TokenType, nil
}

// IsTokenExpired reports true when the token is expired or cannot be parsed.
func (m *Manager) IsTokenExpired(tokenStr string) bool {
	claims := &Claims{}
	_, err := m.parser(jwtlib.WithoutClaimsValidation()).ParseWithClaims(strings.TrimSpace(tokenStr), claims, m.keyFunc)
	if err != nil || claims.ExpiresAt == nil {
		return true
	}
	return !m.now().Before(claims.ExpiresAt.Time)
}
