// Package apperr defines the closed set of failure kinds shared by the
// services and the HTTP boundary.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error. The set is closed; callers switch on it exhaustively.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindDuplicate
	KindNotFound
	KindAuthentication
	KindRateLimited
	KindLocked
	KindUpstream
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindDuplicate:
		return "duplicate"
	case KindNotFound:
		return "not_found"
	case KindAuthentication:
		return "authentication"
	case KindRateLimited:
		return "rate_limited"
	case KindLocked:
		return "locked"
	case KindUpstream:
		return "upstream"
	default:
		return "internal"
	}
}

// Stable error codes exposed in the response body.
const (
	CodeInvalidRequest     = "INVALID_REQUEST"
	CodeInvalidPassword    = "INVALID_PASSWORD_FORMAT"
	CodeInvalidToken       = "INVALID_TOKEN"
	CodeExpiredToken       = "EXPIRED_TOKEN"
	CodeAgreementRequired  = "AGREEMENT_REQUIRED"
	CodeInvalidFile        = "INVALID_FILE"
	CodeSessionInvalid     = "INVALID_SESSION"
	CodeEmailMismatch      = "EMAIL_MISMATCH"
	CodeCodeMismatch       = "CODE_MISMATCH"
	CodeDuplicateEmail     = "DUPLICATE_EMAIL"
	CodeDuplicateResource  = "DUPLICATE_RESOURCE"
	CodeNotFound           = "RESOURCE_NOT_FOUND"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeAccountInactive    = "ACCOUNT_INACTIVE"
	CodeAccessDenied       = "ACCESS_DENIED"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeRateLimited        = "RATE_LIMITED"
	CodeLocked             = "IP_LOCKED"
	CodeUpstream           = "UPSTREAM_FAILURE"
	CodeInternal           = "INTERNAL_ERROR"
)

// Error is a classified application error.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by kind and code, so sentinel values work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Code == t.Code
}

// Wrap returns a copy of e carrying cause.
func (e *Error) Wrap(cause error) *Error {
	cp := *e
	cp.Err = cause
	return &cp
}

func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

func Validation(code, message string) *Error {
	return New(KindValidation, code, message)
}

func Duplicate(code, message string) *Error {
	return New(KindDuplicate, code, message)
}

func NotFound(message string) *Error {
	return New(KindNotFound, CodeNotFound, message)
}

func Authentication(code, message string) *Error {
	return New(KindAuthentication, code, message)
}

func RateLimited(message string) *Error {
	return New(KindRateLimited, CodeRateLimited, message)
}

func Locked(message string) *Error {
	return New(KindLocked, CodeLocked, message)
}

func Upstream(message string, cause error) *Error {
	return &Error{Kind: KindUpstream, Code: CodeUpstream, Message: message, Err: cause}
}

func Internal(cause error) *Error {
	return &Error{Kind: KindInternal, Code: CodeInternal, Message: "internal server error", Err: cause}
}

// As extracts the *Error from err's chain.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// KindOf returns the kind of err, KindInternal for unclassified errors.
func KindOf(err error) Kind {
	if appErr, ok := As(err); ok {
		return appErr.Kind
	}
	return KindInternal
}
