package auth

import (
	"context"
	"fmt"
	"time"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Identity holds the attributes of an authenticated principal
type Identity interface {
	ID() string
	Name() string
	Email() string
	Role() string
}

// Mailer delivers notification email. Implementations must treat delivery as
// fire-and-forget: a failed send is logged by the caller, never propagated as
// a failure of the operation that issued the message.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// TokenIssuer mints signed session tokens for an identity.
type TokenIssuer interface {
	Generate(identity Identity) (string, error)
}

// TokenValidator validates raw tokens and extracts normalized claims without
// tying callers to a specific signing implementation.
type TokenValidator interface {
	Validate(tokenString string) (*Claims, error)
}

// TokenService mints and validates signed session tokens. Stateless: validity
// is signature plus clock, no store lookups.
type TokenService interface {
	TokenIssuer
	TokenValidator
}

// IsWithinThresholdPeriod checks if the given time is within the threshold
func IsWithinThresholdPeriod(t time.Time, pattern string) (bool, error) {
	duration, err := time.ParseDuration(pattern)
	if err != nil {
		return false, err
	}

	threshold := time.Now().Add(-duration)
	if t.After(threshold) {
		return true, nil
	}

	return false, nil
}

// IsOutsideThresholdPeriod is the negation of IsWithinThresholdPeriod
func IsOutsideThresholdPeriod(t time.Time, pattern string) (bool, error) {
	valid, err := IsWithinThresholdPeriod(t, pattern)
	if err != nil {
		return false, err
	}

	return !valid, nil
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] AUTH "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] AUTH "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] AUTH "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] AUTH "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
