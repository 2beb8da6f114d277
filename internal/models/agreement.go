package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AgreementType string

const (
	AgreementTerms     AgreementType = "TERMS"
	AgreementPrivacy   AgreementType = "PRIVACY"
	AgreementMarketing AgreementType = "MARKETING"
	AgreementLocation  AgreementType = "LOCATION"
)

// UserAgreement records a user's answer to one consent item at signup.
type UserAgreement struct {
	ID            string        `json:"id"             gorm:"type:char(36);primaryKey"`
	UserID        string        `json:"user_id"        gorm:"type:char(36);uniqueIndex:idx_user_agreement;not null"`
	AgreementType AgreementType `json:"agreement_type" gorm:"size:20;uniqueIndex:idx_user_agreement;not null"`
	Agreed        bool          `json:"agreed"         gorm:"not null"`
	AgreedAt      *time.Time    `json:"agreed_at"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

func (UserAgreement) TableName() string { return "user_agreements" }

func (a *UserAgreement) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

func (a *UserAgreement) Touch(now time.Time) {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now
}

// NewAgreement builds an agreement row; AgreedAt is set only when agreed.
func NewAgreement(userID string, kind AgreementType, agreed bool, now time.Time) UserAgreement {
	a := UserAgreement{UserID: userID, AgreementType: kind, Agreed: agreed}
	if agreed {
		at := now
		a.AgreedAt = &at
	}
	a.Touch(now)
	return a
}
