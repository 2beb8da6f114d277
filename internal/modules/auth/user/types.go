package user

import (
	"time"

	"github.com/routepick/backend/internal/models"
)

type UpdateStatusDTO struct {
	Status models.UserStatus `json:"status" binding:"required,oneof=ACTIVE SUSPENDED DELETED"`
}

// Info is the public projection of a user.
type Info struct {
	ID              string            `json:"id"`
	Email           string            `json:"email"`
	UserName        string            `json:"userName"`
	Phone           string            `json:"phone,omitempty"`
	ProfileImageURL string            `json:"profileImageUrl,omitempty"`
	UserType        models.UserType   `json:"userType"`
	Status          models.UserStatus `json:"status"`
	LastLoginAt     *time.Time        `json:"lastLoginAt,omitempty"`
	CreatedAt       time.Time         `json:"createdAt"`
}

func ToInfo(u *models.User) Info {
	return Info{
		ID: u.ID, Email: u.Email, UserName: u.UserName, Phone: u.Phone,
		ProfileImageURL: u.ProfileImageURL, UserType: u.UserType, Status: u.Status,
		LastLoginAt: u.LastLoginAt, CreatedAt: u.CreatedAt,
	}
}

// AgreementInfo is one consent answer given at signup.
type AgreementInfo struct {
	Type     models.AgreementType `json:"agreementType"`
	Agreed   bool                 `json:"agreed"`
	AgreedAt *time.Time           `json:"agreedAt,omitempty"`
}
