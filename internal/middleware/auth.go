package middleware

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/routepick/backend/internal/models"
	"github.com/routepick/backend/internal/pkg/apperr"
	"github.com/routepick/backend/internal/pkg/jwt"
	"github.com/routepick/backend/internal/pkg/response"
)

const (
	ContextKeyUserID   = "user_id"
	ContextKeyEmail    = "user_email"
	ContextKeyUserType = "user_type"
)

// TokenParser verifies access and refresh JWTs.
type TokenParser interface {
	Parse(token string) (*jwt.Claims, error)
}

// TokenLookup finds the persisted row of an issued token.
type TokenLookup interface {
	FindByToken(ctx context.Context, raw string) (*models.APIToken, error)
}

var (
	errInvalidToken = apperr.Authentication(apperr.CodeInvalidToken, "invalid token")
	errExpiredToken = apperr.Authentication(apperr.CodeExpiredToken, "token expired")
)

// Auth requires a valid, unrevoked access token in the Authorization header.
func Auth(parser TokenParser, lookup TokenLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := ValidateAccessToken(c.Request.Context(), parser, lookup, extractToken(c))
		if err != nil {
			response.Error(c, err)
			return
		}
		c.Set(ContextKeyUserID, claims.UserID)
		c.Set(ContextKeyEmail, claims.Subject)
		c.Set(ContextKeyUserType, claims.UserType)
		c.Next()
	}
}

// ValidateAccessToken checks signature, expiry, token type and the persisted
// row of rawToken.
func ValidateAccessToken(ctx context.Context, parser TokenParser, lookup TokenLookup, rawToken string) (*jwt.Claims, error) {
	token := NormalizeToken(rawToken)
	if token == "" {
		return nil, apperr.Authentication(apperr.CodeUnauthorized, "authentication required")
	}
	claims, err := parser.Parse(token)
	if err != nil {
		if errors.Is(err, jwt.ErrExpiredToken) {
			return nil, errExpiredToken.Wrap(err)
		}
		return nil, errInvalidToken.Wrap(err)
	}
	if claims.TokenType != jwt.TypeAccess {
		return nil, errInvalidToken
	}
	row, err := lookup.FindByToken(ctx, token)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if row == nil || !row.Usable(time.Now()) {
		return nil, errInvalidToken
	}
	return claims, nil
}

// RequireUserType rejects authenticated users whose type is not allowed.
func RequireUserType(allowed ...models.UserType) gin.HandlerFunc {
	return func(c *gin.Context) {
		userType := models.UserType(c.GetString(ContextKeyUserType))
		for _, t := range allowed {
			if t == userType {
				c.Next()
				return
			}
		}
		response.Error(c, apperr.Authentication(apperr.CodeAccessDenied, "access denied"))
	}
}

// CurrentUserID extracts the authenticated user ID from context.
func CurrentUserID(c *gin.Context) string {
	return c.GetString(ContextKeyUserID)
}

func extractToken(c *gin.Context) string {
	return NormalizeToken(c.GetHeader("Authorization"))
}

// NormalizeToken trims spaces and strips optional Bearer prefix.
func NormalizeToken(raw string) string {
	token := strings.TrimSpace(raw)
	if token == "" {
		return ""
	}
	if strings.HasPrefix(strings.ToLower(token), "bearer ") {
		return strings.TrimSpace(token[7:])
	}
	return token
}
