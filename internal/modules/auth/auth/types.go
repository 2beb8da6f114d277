package auth

import (
	"github.com/routepick/backend/internal/modules/auth/user"
)

// SignupRequest is the userData part of a signup request.
type SignupRequest struct {
	Email             string `json:"email"             binding:"required,email,max=100"`
	Password          string `json:"password"          binding:"required,max=72"`
	UserName          string `json:"userName"          binding:"required,min=2,max=20"`
	Phone             string `json:"phone"             binding:"required,max=20"`
	RegistrationToken string `json:"registrationToken" binding:"required"`
	AgreeTerms        *bool  `json:"agreeTerms"        binding:"required"`
	AgreePrivacy      *bool  `json:"agreePrivacy"      binding:"required"`
	AgreeMarketing    *bool  `json:"agreeMarketing"`
	AgreeLocation     *bool  `json:"agreeLocation"`
}

func isTrue(b *bool) bool { return b != nil && *b }

// RequiredAgreementsAccepted reports whether terms and privacy were accepted.
func (r *SignupRequest) RequiredAgreementsAccepted() bool {
	return isTrue(r.AgreeTerms) && isTrue(r.AgreePrivacy)
}

type LoginRequest struct {
	Email    string `json:"email"    binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// TokenPair is returned by login and refresh.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	TokenType    string `json:"tokenType"`
	ExpiresIn    int64  `json:"expiresIn"`
}

type LoginResponse struct {
	TokenPair
	User user.Info `json:"userInfo"`
}
