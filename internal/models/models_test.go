package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTouchKeepsCreatedAt(t *testing.T) {
	first := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	later := first.Add(time.Hour)

	u := &User{}
	u.Touch(first)
	u.Touch(later)

	assert.Equal(t, first, u.CreatedAt)
	assert.Equal(t, later, u.UpdatedAt)
}

func TestAPITokenUsable(t *testing.T) {
	now := time.Now()
	tok := &APIToken{ExpiresAt: now.Add(time.Minute)}
	assert.True(t, tok.Usable(now))

	tok.Revoked = true
	assert.False(t, tok.Usable(now))

	tok.Revoked = false
	assert.False(t, tok.Usable(now.Add(2*time.Minute)))
}

func TestNewAgreement(t *testing.T) {
	now := time.Now()

	agreed := NewAgreement("u1", AgreementTerms, true, now)
	assert.True(t, agreed.Agreed)
	if assert.NotNil(t, agreed.AgreedAt) {
		assert.Equal(t, now, *agreed.AgreedAt)
	}
	assert.Equal(t, now, agreed.CreatedAt)

	declined := NewAgreement("u1", AgreementMarketing, false, now)
	assert.False(t, declined.Agreed)
	assert.Nil(t, declined.AgreedAt)
}

func TestUserTypeAndStatus(t *testing.T) {
	assert.True(t, UserTypeAdmin.IsAdmin())
	assert.True(t, UserTypeGymAdmin.IsAdmin())
	assert.False(t, UserTypeNormal.IsAdmin())

	assert.True(t, UserStatusSuspended.Valid())
	assert.False(t, UserStatus("BANNED").Valid())
	assert.True(t, (&User{Status: UserStatusActive}).IsActive())
	assert.False(t, (&User{Status: UserStatusDeleted}).IsActive())
}
