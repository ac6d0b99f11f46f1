package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the identity payload carried by a session token.
//
// The identity claim historically shipped under two names: the canonical
// "uid" and the legacy "user_id" written by an earlier token minter. New
// tokens carry "uid" only; the legacy field is read, never written, and
// callers always go through UserID() so they never branch on claim naming.
// Drop LegacyUID once every token minted before the cutover has expired.
type Claims struct {
	jwt.RegisteredClaims
	UID         string `json:"uid,omitempty"`
	LegacyUID   string `json:"user_id,omitempty"`
	DisplayName string `json:"name,omitempty"`
	Email       string `json:"email,omitempty"`
	AccountRole string `json:"role,omitempty"`
}

// UserID returns the canonical subject id regardless of which claim name the
// token used.
func (c *Claims) UserID() string {
	if c.UID != "" {
		return c.UID
	}
	if c.LegacyUID != "" {
		return c.LegacyUID
	}
	return c.RegisteredClaims.Subject
}

// Name returns the display name
func (c *Claims) Name() string {
	return c.DisplayName
}

// Role returns the account role
func (c *Claims) Role() Role {
	return Role(c.AccountRole)
}

// HasRole checks if the claims carry a specific role
func (c *Claims) HasRole(role Role) bool {
	return Role(c.AccountRole) == role
}

// IsAtLeast checks if the claims' role is at least the minimum required role
func (c *Claims) IsAtLeast(minRole Role) bool {
	return Role(c.AccountRole).IsAtLeast(minRole)
}

// Expires returns the expiration time
func (c *Claims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// IssuedAt returns the issued at time
func (c *Claims) IssuedAt() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}
