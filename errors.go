package auth

import (
	"time"

	"github.com/goliatone/go-errors"
)

const (
	TextCodeDuplicateEmail       = "duplicate_email"
	TextCodeInvalidCredentials   = "invalid_credentials"
	TextCodeOTPInvalidOrExpired  = "otp_invalid_or_expired"
	TextCodeAccountLocked        = "account_locked"
	TextCodeAccountSuspended     = "account_suspended"
	TextCodeVerificationRequired = "verification_required"
	TextCodeUnauthorized         = "unauthorized"
	TextCodeAccountNotFound      = "account_not_found"
	TextCodeSelfDelete           = "self_delete_forbidden"
)

// ErrDuplicateEmail is returned when registering an email that already exists.
var ErrDuplicateEmail = errors.New("email already registered", errors.CategoryConflict).
	WithTextCode(TextCodeDuplicateEmail).
	WithCode(errors.CodeConflict)

// ErrInvalidCredentials is the generic login failure. It is deliberately
// identical for unknown email and wrong password so callers cannot
// enumerate accounts.
var ErrInvalidCredentials = errors.New("invalid email or password", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredentials).
	WithCode(errors.CodeUnauthorized)

// ErrOTPInvalidOrExpired is returned for a mismatched or expired OTP,
// without distinguishing which.
var ErrOTPInvalidOrExpired = errors.New("invalid or expired code", errors.CategoryAuth).
	WithTextCode(TextCodeOTPInvalidOrExpired).
	WithCode(errors.CodeUnauthorized)

// ErrAccountLocked is returned while a lockout window is in effect.
// Use LockedUntil to attach the unlock time.
var ErrAccountLocked = errors.New("account temporarily locked", errors.CategoryAuth).
	WithTextCode(TextCodeAccountLocked).
	WithCode(errors.CodeForbidden)

// ErrVerificationRequired is returned on login against an unverified
// account, after a fresh verification code has been dispatched.
var ErrVerificationRequired = errors.New("email verification required", errors.CategoryAuth).
	WithTextCode(TextCodeVerificationRequired).
	WithCode(errors.CodeForbidden)

// ErrAccountSuspended is returned when login hits a suspended account.
var ErrAccountSuspended = errors.New("account suspended", errors.CategoryAuth).
	WithTextCode(TextCodeAccountSuspended).
	WithCode(errors.CodeForbidden)

// ErrUnauthorized is returned for a bad, expired or revoked token.
var ErrUnauthorized = errors.New("invalid or expired token", errors.CategoryAuth).
	WithTextCode(TextCodeUnauthorized).
	WithCode(errors.CodeUnauthorized)

// ErrAccountNotFound is returned when a token references an account
// that no longer exists.
var ErrAccountNotFound = errors.New("account not found", errors.CategoryNotFound).
	WithTextCode(TextCodeAccountNotFound).
	WithCode(errors.CodeNotFound)

// ErrSelfDelete is returned when an administrator tries to deactivate
// their own account.
var ErrSelfDelete = errors.New("cannot deactivate own account", errors.CategoryValidation).
	WithTextCode(TextCodeSelfDelete).
	WithCode(errors.CodeBadRequest)

// LockedUntil decorates ErrAccountLocked with the unlock time.
func LockedUntil(until time.Time) *errors.Error {
	return ErrAccountLocked.Clone().WithMetadata(map[string]any{
		"locked_until": until.UTC().Format(time.RFC3339),
	})
}

// IsTextCode reports whether err carries the given text code.
func IsTextCode(err error, code string) bool {
	var rich *errors.Error
	if !errors.As(err, &rich) {
		return false
	}
	return rich.TextCode == code
}
