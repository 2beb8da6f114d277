package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	err := fmt.Errorf("signup: %w", Duplicate(CodeDuplicateEmail, "email already registered"))
	assert.Equal(t, KindDuplicate, KindOf(err))
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
	assert.Equal(t, KindInternal, KindOf(nil))
}

func TestIsMatchesKindAndCode(t *testing.T) {
	sentinel := Authentication(CodeInvalidCredentials, "invalid email or password")
	cause := errors.New("user not found")
	wrapped := sentinel.Wrap(cause)

	assert.ErrorIs(t, wrapped, sentinel)
	assert.ErrorIs(t, wrapped, cause)
	assert.NotErrorIs(t, wrapped, Authentication(CodeAccountInactive, "x"))
	assert.Nil(t, sentinel.Err, "Wrap must not mutate the sentinel")
}

func TestErrorString(t *testing.T) {
	assert.Equal(t, "RATE_LIMITED: slow down", RateLimited("slow down").Error())
	assert.Equal(t, "UPSTREAM_FAILURE: mail: smtp down", Upstream("mail", errors.New("smtp down")).Error())
	assert.Equal(t, "authentication", KindAuthentication.String())
}
