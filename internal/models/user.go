package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserType is the role of an account.
type UserType string

const (
	UserTypeAdmin    UserType = "ADMIN"
	UserTypeGymAdmin UserType = "GYM_ADMIN"
	UserTypeNormal   UserType = "NORMAL"
)

// IsAdmin reports whether the type may sign in to the admin application.
func (t UserType) IsAdmin() bool {
	return t == UserTypeAdmin || t == UserTypeGymAdmin
}

// UserStatus is the lifecycle state of an account. Accounts are never
// hard-deleted; deletion moves them to UserStatusDeleted.
type UserStatus string

const (
	UserStatusActive    UserStatus = "ACTIVE"
	UserStatusSuspended UserStatus = "SUSPENDED"
	UserStatusDeleted   UserStatus = "DELETED"
)

func (s UserStatus) Valid() bool {
	switch s {
	case UserStatusActive, UserStatusSuspended, UserStatusDeleted:
		return true
	}
	return false
}

// User is a registered account.
type User struct {
	ID              string     `json:"id"               gorm:"type:char(36);primaryKey"`
	Email           string     `json:"email"            gorm:"size:191;uniqueIndex;not null"`
	PasswordHash    string     `json:"-"                gorm:"size:100;not null"`
	UserName        string     `json:"user_name"        gorm:"size:50"`
	Phone           string     `json:"phone"            gorm:"size:20"`
	ProfileImageURL string     `json:"profile_image_url" gorm:"size:500"`
	UserType        UserType   `json:"user_type"        gorm:"size:20;not null;default:NORMAL"`
	Status          UserStatus `json:"status"           gorm:"size:20;not null;default:ACTIVE;index"`
	LastLoginAt     *time.Time `json:"last_login_at"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func (User) TableName() string { return "users" }

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// Touch stamps the audit timestamps. CreatedAt is only set once.
func (u *User) Touch(now time.Time) {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
}

// IsActive reports whether the account may authenticate.
func (u *User) IsActive() bool {
	return u.Status == UserStatusActive
}
