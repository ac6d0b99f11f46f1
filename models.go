package auth

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// AccountStatus is the account's lifecycle status
type AccountStatus = string

const (
	// AccountStatusUnverified is the status at signup, before the email is proven
	AccountStatusUnverified AccountStatus = "unverified"
	// AccountStatusActive is a verified, usable account
	AccountStatusActive AccountStatus = "active"
	// AccountStatusSuspended is a temporarily blocked account
	AccountStatusSuspended AccountStatus = "suspended"
	// AccountStatusPending is an account awaiting manual review
	AccountStatusPending AccountStatus = "pending"
)

// MaxVerifyAttempts bounds failed code submissions per account. Exceeding it
// deletes the account, so no surviving account ever holds a higher count.
const MaxVerifyAttempts = 15

// MaxResendAttempts caps signup verification code resends per account.
const MaxResendAttempts = 3

// Account is the credential record behind an identity
type Account struct {
	bun.BaseModel    `bun:"table:accounts,alias:acc"`
	ID               uuid.UUID     `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Email            string        `bun:"email,notnull,unique" json:"email,omitempty"`
	DisplayName      string        `bun:"display_name" json:"display_name,omitempty"`
	Role             Role          `bun:"role,notnull" json:"role,omitempty"`
	Status           AccountStatus `bun:"status,notnull" json:"status,omitempty"`
	PasswordHash     string        `bun:"password_hash" json:"-"`
	VerificationCode *string       `bun:"verification_code,nullzero" json:"-"`
	CodeExpiresAt    *time.Time    `bun:"code_expires_at,nullzero" json:"-"`
	FailedAttempts   int           `bun:"failed_attempts" json:"-"`
	ResendAttempts   int           `bun:"resend_attempts" json:"-"`
	LoginAttempts    int           `bun:"login_attempts" json:"-"`
	LoginAttemptAt   *time.Time    `bun:"login_attempt_at,nullzero" json:"-"`
	LoggedInAt       *time.Time    `bun:"loggedin_at,nullzero" json:"loggedin_at,omitempty"`
	CreatedAt        *time.Time    `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt        *time.Time    `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// EnsureStatus backfills the zero value for records created before the
// status column existed.
func (a *Account) EnsureStatus() {
	if a.Status == "" {
		a.Status = AccountStatusUnverified
	}
}

// HasLiveCode reports whether the account holds a verification code that has
// not yet expired at the given instant.
func (a *Account) HasLiveCode(now time.Time) bool {
	return a.VerificationCode != nil && a.CodeExpiresAt != nil && !now.After(*a.CodeExpiresAt)
}

// PasswordResetRequest is the single live reset record for an email.
// Issuing a new request overwrites any prior one; a successful password
// change deletes it.
type PasswordResetRequest struct {
	bun.BaseModel  `bun:"table:password_reset_requests,alias:prr"`
	ID             uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Email          string     `bun:"email,notnull,unique" json:"email,omitempty"`
	Code           string     `bun:"code,notnull" json:"-"`
	ExpiresAt      time.Time  `bun:"expires_at,notnull" json:"expires_at,omitempty"`
	FailedAttempts int        `bun:"failed_attempts" json:"-"`
	CreatedAt      *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt      *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// Expired reports whether the request is past its expiry at the given instant.
func (r *PasswordResetRequest) Expired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

// NormalizeEmail canonicalizes an email for storage and lookup. Uniqueness
// and every store access go through this form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
