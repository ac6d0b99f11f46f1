package auth

import (
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// Machine readable codes surfaced alongside errors. The rest of the platform
// branches on these, never on messages.
const (
	TextCodeAccountNotFound  = "ACCOUNT_NOT_FOUND"
	TextCodeResetNotFound    = "RESET_REQUEST_NOT_FOUND"
	TextCodeEmailTaken       = "EMAIL_TAKEN"
	TextCodeInvalidCode      = "INVALID_CODE"
	TextCodeCodeExpired      = "CODE_EXPIRED"
	TextCodeAccountDeleted   = "ACCOUNT_DELETED"
	TextCodeQuotaExceeded    = "OTP_QUOTA_EXCEEDED"
	TextCodeResetConsumed    = "RESET_ALREADY_USED"
	TextCodeTokenExpired     = "TOKEN_EXPIRED"
	TextCodeTokenMalformed   = "TOKEN_MALFORMED"
	TextCodeTokenSignature   = "TOKEN_SIGNATURE_INVALID"
	TextCodeLoginCooldown    = "LOGIN_COOLDOWN"
	TextCodeAccountInactive  = "ACCOUNT_NOT_ACTIVE"
	TextCodeInvalidRole      = "INVALID_ROLE"
	TextCodeBadCredentials   = "BAD_CREDENTIALS"
	TextCodeUnauthenticated  = "UNAUTHENTICATED"
	TextCodeForbidden        = "FORBIDDEN"
	TextCodeUnknownPurpose   = "UNKNOWN_OTP_PURPOSE"
)

// ErrAccountNotFound is returned when no account exists for an identifier
var ErrAccountNotFound = goerrors.New("account not found", goerrors.CategoryNotFound).
	WithTextCode(TextCodeAccountNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrResetRequestNotFound is returned when no live reset request exists for an email
var ErrResetRequestNotFound = goerrors.New("password reset request not found", goerrors.CategoryNotFound).
	WithTextCode(TextCodeResetNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrDuplicateEmail is returned when signup collides with an existing normalized email
var ErrDuplicateEmail = goerrors.New("an account already exists for this email", goerrors.CategoryConflict).
	WithTextCode(TextCodeEmailTaken).
	WithCode(goerrors.CodeConflict)

// ErrInvalidCode is returned for a code mismatch on either verification track
var ErrInvalidCode = goerrors.New("submitted code does not match", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidCode).
	WithCode(goerrors.CodeUnauthorized)

// ErrCodeExpired is returned when a submitted code is past its expiry window
var ErrCodeExpired = goerrors.New("submitted code has expired", goerrors.CategoryAuth).
	WithTextCode(TextCodeCodeExpired).
	WithCode(goerrors.CodeUnauthorized)

// ErrAccountDeleted flags the terminal abuse outcome. Never retryable, never
// conflated with an ordinary invalid code.
var ErrAccountDeleted = goerrors.New("account deleted after exceeding verification attempts", goerrors.CategoryConflict).
	WithTextCode(TextCodeAccountDeleted).
	WithCode(goerrors.CodeConflict)

// ErrQuotaExceeded is returned once the resend allowance is exhausted
var ErrQuotaExceeded = goerrors.New("verification code resend quota exceeded", goerrors.CategoryOperation).
	WithTextCode(TextCodeQuotaExceeded)

// ErrResetConsumed is returned when a reset code is replayed after a successful change
var ErrResetConsumed = goerrors.New("password reset request already used", goerrors.CategoryConflict).
	WithTextCode(TextCodeResetConsumed).
	WithCode(goerrors.CodeConflict)

// ErrTokenExpired is returned for structurally valid tokens past their expiry
var ErrTokenExpired = goerrors.New("session token has expired", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenMalformed is returned for input that does not parse as a token
var ErrTokenMalformed = goerrors.New("session token is malformed", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenSignature is returned when the signature does not verify against the server key
var ErrTokenSignature = goerrors.New("session token signature is invalid", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenSignature).
	WithCode(goerrors.CodeUnauthorized)

// ErrMismatchedHashAndPassword is the uniform bad-credentials error. Lookup
// misses and password mismatches collapse into it so responses do not reveal
// which emails hold accounts.
var ErrMismatchedHashAndPassword = goerrors.New("invalid credentials", goerrors.CategoryAuth).
	WithTextCode(TextCodeBadCredentials).
	WithCode(goerrors.CodeUnauthorized)

// ErrTooManyLoginAttempts is returned while the login cooldown is in force
var ErrTooManyLoginAttempts = goerrors.New("too many login attempts, try again later", goerrors.CategoryOperation).
	WithTextCode(TextCodeLoginCooldown)

// ErrAccountNotActive is returned when a non-active account attempts to log in
var ErrAccountNotActive = goerrors.New("account is not active", goerrors.CategoryAuth).
	WithTextCode(TextCodeAccountInactive).
	WithCode(goerrors.CodeUnauthorized)

// ErrNoEmptyString guards hashing and normalization entry points
var ErrNoEmptyString = goerrors.New("value must not be empty", goerrors.CategoryValidation).
	WithCode(goerrors.CodeBadRequest)

// ErrUnknownPurpose is returned for an OTP purpose with no configured policy
var ErrUnknownPurpose = goerrors.New("unknown verification code purpose", goerrors.CategoryBadInput).
	WithTextCode(TextCodeUnknownPurpose).
	WithCode(goerrors.CodeBadRequest)

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	var rich *goerrors.Error
	if goerrors.As(err, &rich) && rich.TextCode == TextCodeTokenExpired {
		return true
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	var rich *goerrors.Error
	if goerrors.As(err, &rich) && rich.TextCode == TextCodeTokenMalformed {
		return true
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}

// statusAuthError maps a non-active account status to its login rejection.
func statusAuthError(status AccountStatus) error {
	switch status {
	case AccountStatusActive:
		return nil
	case AccountStatusUnverified:
		return ErrAccountNotActive.Clone().WithMetadata(map[string]any{"status": status, "hint": "verify email"})
	case AccountStatusSuspended, AccountStatusPending:
		return ErrAccountNotActive.Clone().WithMetadata(map[string]any{"status": status})
	default:
		return ErrAccountNotActive.Clone().WithMetadata(map[string]any{"status": status})
	}
}
