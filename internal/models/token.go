package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TokenType distinguishes persisted tokens.
type TokenType string

const (
	TokenTypeAccess            TokenType = "ACCESS"
	TokenTypeRefresh           TokenType = "REFRESH"
	TokenTypeResetPassword     TokenType = "RESET_PASSWORD"
	TokenTypeEmailVerification TokenType = "EMAIL_VERIFICATION"
)

// APIToken is an issued JWT kept so it can be revoked. Rows are revoked,
// not deleted, until they expire.
type APIToken struct {
	ID        string    `json:"id"         gorm:"type:char(36);primaryKey"`
	UserID    string    `json:"user_id"    gorm:"type:char(36);index;not null"`
	Token     string    `json:"-"          gorm:"type:varchar(1024);not null"`
	TokenHash string    `json:"-"          gorm:"type:char(64);uniqueIndex;not null"`
	TokenType TokenType `json:"token_type" gorm:"size:30;not null"`
	ExpiresAt time.Time `json:"expires_at" gorm:"index;not null"`
	Revoked   bool      `json:"revoked"    gorm:"not null;default:false"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (APIToken) TableName() string { return "api_tokens" }

func (t *APIToken) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

func (t *APIToken) Touch(now time.Time) {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now
}

// Usable reports whether the token is neither revoked nor expired at now.
func (t *APIToken) Usable(now time.Time) bool {
	return !t.Revoked && now.Before(t.ExpiresAt)
}
