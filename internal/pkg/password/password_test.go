package password

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestValidate(t *testing.T) {
	cases := map[string]error{
		"Abcdefg1":   nil,
		"Climb2Top!": nil,
		"Ab1":        ErrTooShort,
		"abcdefg1":   ErrMissingUpper,
		"ABCDEFG1":   ErrMissingLower,
		"Abcdefgh":   ErrMissingDigit,
		"":           ErrTooShort,
	}
	for pw, want := range cases {
		assert.Equal(t, want, Validate(pw), pw)
	}
}

func TestValidateCountsBytesForUpperBound(t *testing.T) {
	// 43 characters, 83 bytes.
	assert.Equal(t, ErrTooLong, Validate(strings.Repeat("Ж", 40)+"ab1"))
	assert.NoError(t, Validate(strings.Repeat("a", 70)+"B1"))
	assert.Equal(t, ErrTooLong, Validate(strings.Repeat("a", 71)+"B1"))
}

func TestHashAndVerify(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)

	hash, err := h.Hash("Abcdefg1")
	require.NoError(t, err)
	assert.NotEqual(t, "Abcdefg1", hash)

	other, err := h.Hash("Abcdefg1")
	require.NoError(t, err)
	assert.NotEqual(t, hash, other, "hashes are salted")

	assert.NoError(t, h.Verify(hash, "Abcdefg1"))
	assert.ErrorIs(t, h.Verify(hash, "Abcdefg2"), ErrHashMismatch)
	assert.ErrorIs(t, h.Verify("not-a-hash", "Abcdefg1"), ErrHashMismatch)

	h.Burn("anything")
}

func TestHashRejectsOverlongInput(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)
	long := make([]byte, 73)
	for i := range long {
		long[i] = 'a'
	}
	_, err := h.Hash(string(long))
	assert.Error(t, err)
}
