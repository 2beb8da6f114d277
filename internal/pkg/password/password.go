// Package password hashes credentials with bcrypt and enforces the signup password policy.
package password

import (
	"errors"
	"fmt"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

const (
	MinLength = 8
	// MaxBytes is the longest input bcrypt accepts.
	MaxBytes = 72
)

var (
	ErrTooShort      = fmt.Errorf("password must be at least %d characters", MinLength)
	ErrTooLong       = fmt.Errorf("password must be at most %d bytes", MaxBytes)
	ErrMissingUpper  = errors.New("password must contain an uppercase letter")
	ErrMissingLower  = errors.New("password must contain a lowercase letter")
	ErrMissingDigit  = errors.New("password must contain a digit")
	ErrHashMismatch  = errors.New("password does not match")
	errTooLongToHash = fmt.Errorf("password exceeds %d bytes", MaxBytes)
)

// Validate checks length >= 8 characters, at most 72 bytes and presence of
// an upper-case letter, a lower-case letter and a digit. The first
// violation is returned.
func Validate(pw string) error {
	if len([]rune(pw)) < MinLength {
		return ErrTooShort
	}
	if len(pw) > MaxBytes {
		return ErrTooLong
	}
	var upper, lower, digit bool
	for _, r := range pw {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	switch {
	case !upper:
		return ErrMissingUpper
	case !lower:
		return ErrMissingLower
	case !digit:
		return ErrMissingDigit
	}
	return nil
}

// Hasher wraps bcrypt with a configurable cost.
type Hasher struct {
	cost  int
	dummy []byte
}

func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	dummy, _ := bcrypt.GenerateFromPassword([]byte("routepick-timing-equalizer"), cost)
	return &Hasher{cost: cost, dummy: dummy}
}

// Hash returns a salted bcrypt hash.
func (h *Hasher) Hash(pw string) (string, error) {
	if len(pw) > MaxBytes {
		return "", errTooLongToHash
	}
	out, err := bcrypt.GenerateFromPassword([]byte(pw), h.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(out), nil
}

// Verify returns nil when pw matches hash.
func (h *Hasher) Verify(hash, pw string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)); err != nil {
		return ErrHashMismatch
	}
	return nil
}

// Burn performs a comparison against a fixed hash so lookups for unknown
// accounts take as long as real ones.
func (h *Hasher) Burn(pw string) {
	_ = bcrypt.CompareHashAndPassword(h.dummy, []byte(pw))
}
