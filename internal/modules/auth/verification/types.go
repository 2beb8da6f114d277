package verification

import (
	"time"

	"github.com/routepick/backend/internal/pkg/apperr"
)

type EmailDTO struct {
	Email string `json:"email" binding:"required,email"`
}

type VerifyCodeDTO struct {
	Email            string `json:"email"            binding:"required,email"`
	VerificationCode string `json:"verificationCode" binding:"required,len=6,numeric"`
	SessionToken     string `json:"sessionToken"     binding:"required"`
}

// AvailabilityResult answers an email availability check.
type AvailabilityResult struct {
	Available            bool   `json:"available"`
	Message              string `json:"message"`
	VerificationRequired bool   `json:"verificationRequired"`
}

// SendResult reports a verification code dispatch. Code is only filled
// outside production.
type SendResult struct {
	Sent             bool       `json:"sent"`
	Message          string     `json:"message"`
	VerificationCode string     `json:"verificationCode,omitempty"`
	SessionToken     string     `json:"sessionToken,omitempty"`
	ExpiresAt        *time.Time `json:"expiresAt,omitempty"`
}

// Outcome is the result kind of a code verification.
type Outcome int

const (
	OutcomeVerified Outcome = iota
	OutcomeSessionInvalid
	OutcomeEmailMismatch
	OutcomeCodeMismatch
)

func (o Outcome) String() string {
	switch o {
	case OutcomeVerified:
		return "VERIFIED"
	case OutcomeSessionInvalid:
		return "SESSION_INVALID"
	case OutcomeEmailMismatch:
		return "EMAIL_MISMATCH"
	case OutcomeCodeMismatch:
		return "CODE_MISMATCH"
	default:
		return "UNKNOWN"
	}
}

// Err converts a failed outcome to its validation error; nil when verified.
func (o Outcome) Err() error {
	switch o {
	case OutcomeVerified:
		return nil
	case OutcomeSessionInvalid:
		return apperr.Validation(apperr.CodeSessionInvalid, "verification session is invalid or expired")
	case OutcomeEmailMismatch:
		return apperr.Validation(apperr.CodeEmailMismatch, "email does not match the verification session")
	default:
		return apperr.Validation(apperr.CodeCodeMismatch, "verification code does not match")
	}
}

// VerifyResult reports a code verification. The token fields are set only
// for OutcomeVerified.
type VerifyResult struct {
	Outcome           Outcome    `json:"-"`
	Message           string     `json:"message"`
	VerifiedEmail     string     `json:"verifiedEmail,omitempty"`
	RegistrationToken string     `json:"registrationToken,omitempty"`
	TokenExpiresAt    *time.Time `json:"tokenExpiresAt,omitempty"`
}
