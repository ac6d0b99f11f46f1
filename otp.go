package auth

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// Purpose identifies which verification track a code belongs to.
type Purpose string

const (
	// PurposeSignup proves control of the email given at signup
	PurposeSignup Purpose = "signup"
	// PurposeReset authorizes a password change
	PurposeReset Purpose = "password_reset"
)

// PurposePolicy parameterizes the engine per track. Both tracks run the same
// code path; the differences are configuration, not divergent logic.
type PurposePolicy struct {
	TTL        time.Duration
	ResendCap  int
	AttemptCap int
	Subject    string
}

// DefaultPolicies derives the per-purpose policies from configuration.
func DefaultPolicies(cfg *Config) map[Purpose]PurposePolicy {
	return map[Purpose]PurposePolicy{
		PurposeSignup: {
			TTL:        cfg.CodeTTL(PurposeSignup),
			ResendCap:  MaxResendAttempts,
			AttemptCap: MaxVerifyAttempts,
			Subject:    "Verify your email address",
		},
		PurposeReset: {
			TTL:        cfg.CodeTTL(PurposeReset),
			AttemptCap: MaxVerifyAttempts,
			Subject:    "Your password reset code",
		},
	}
}

// IssuedCode reports a committed code to the caller.
type IssuedCode struct {
	Code        string
	ExpiresAt   time.Time
	ResendsLeft int
}

// CodeIssuer generates, persists, and delivers one-time codes. Persistence is
// upsert-on-issue: a fresh code immediately invalidates any code issued
// before it for the same email and purpose.
type CodeIssuer struct {
	repo     RepositoryManager
	mailer   Mailer
	policies map[Purpose]PurposePolicy
	logger   Logger
	now      func() time.Time
}

// NewCodeIssuer wires the engine with the default per-purpose policies.
func NewCodeIssuer(repo RepositoryManager, mailer Mailer, cfg *Config) *CodeIssuer {
	return &CodeIssuer{
		repo:     repo,
		mailer:   mailer,
		policies: DefaultPolicies(cfg),
		logger:   defLogger{},
		now:      time.Now,
	}
}

// WithLogger overrides the logger used for delivery failures.
func (ci *CodeIssuer) WithLogger(logger Logger) *CodeIssuer {
	if logger != nil {
		ci.logger = logger
	}
	return ci
}

// WithClock injects a custom clock (useful for tests).
func (ci *CodeIssuer) WithClock(clock func() time.Time) *CodeIssuer {
	if clock != nil {
		ci.now = clock
	}
	return ci
}

// Policy returns the policy configured for a purpose.
func (ci *CodeIssuer) Policy(purpose Purpose) (PurposePolicy, bool) {
	p, ok := ci.policies[purpose]
	return p, ok
}

// Issue persists a fresh code for the email on the given track and hands
// delivery to the mailer. Requires an existing account: unverified for the
// signup track, any status for the reset track.
func (ci *CodeIssuer) Issue(ctx context.Context, email string, purpose Purpose) (*IssuedCode, error) {
	policy, ok := ci.policies[purpose]
	if !ok {
		return nil, ErrUnknownPurpose.Clone().WithMetadata(map[string]any{"purpose": purpose})
	}

	email = NormalizeEmail(email)

	code, err := GenerateCode()
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to generate verification code")
	}

	issued := &IssuedCode{
		Code:        code,
		ExpiresAt:   ci.now().Add(policy.TTL),
		ResendsLeft: policy.ResendCap,
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err = ci.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		account, err := ci.repo.Accounts().GetByEmailTx(ctx, tx, email)
		if err != nil {
			return err
		}

		switch purpose {
		case PurposeSignup:
			if account.Status != AccountStatusUnverified {
				return goerrors.New("account is already verified", goerrors.CategoryConflict).
					WithCode(goerrors.CodeConflict).
					WithMetadata(map[string]any{"status": account.Status})
			}
			return ci.repo.Accounts().SetVerificationCodeTx(ctx, tx, account.ID, code, issued.ExpiresAt)
		case PurposeReset:
			return ci.repo.PasswordResets().UpsertByEmailTx(ctx, tx, email, code, issued.ExpiresAt)
		default:
			return ErrUnknownPurpose
		}
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, richErr
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to persist verification code")
	}

	// Delivery happens after commit and never rolls the code back: the code
	// stays valid even when the send fails, so the user can retry delivery.
	ci.deliver(email, purpose, issued)

	return issued, nil
}

// Resend reissues a signup code, enforcing the resend quota. Returns
// ErrQuotaExceeded once the allowance is exhausted; the quota denial leaves
// the previously committed code untouched.
func (ci *CodeIssuer) Resend(ctx context.Context, email string) (*IssuedCode, error) {
	policy := ci.policies[PurposeSignup]
	email = NormalizeEmail(email)

	code, err := GenerateCode()
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to generate verification code")
	}

	issued := &IssuedCode{
		Code:      code,
		ExpiresAt: ci.now().Add(policy.TTL),
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err = ci.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		account, err := ci.repo.Accounts().GetByEmailTx(ctx, tx, email)
		if err != nil {
			return err
		}

		if account.Status != AccountStatusUnverified {
			return goerrors.New("account is already verified", goerrors.CategoryConflict).
				WithCode(goerrors.CodeConflict).
				WithMetadata(map[string]any{"status": account.Status})
		}

		count, err := ci.repo.Accounts().IncrementResendAttemptsTx(ctx, tx, account.ID)
		if err != nil {
			return err
		}

		if count > policy.ResendCap {
			// returning an error rolls the increment back: the counter stays
			// pinned at the cap instead of growing without bound
			return ErrQuotaExceeded.Clone().WithMetadata(map[string]any{
				"resend_cap": policy.ResendCap,
			})
		}

		issued.ResendsLeft = policy.ResendCap - count

		return ci.repo.Accounts().SetVerificationCodeTx(ctx, tx, account.ID, code, issued.ExpiresAt)
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, richErr
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to reissue verification code")
	}

	ci.deliver(email, PurposeSignup, issued)

	return issued, nil
}

func (ci *CodeIssuer) deliver(email string, purpose Purpose, issued *IssuedCode) {
	policy := ci.policies[purpose]
	body := fmt.Sprintf(
		"Your verification code is %s. It expires at %s.",
		issued.Code,
		issued.ExpiresAt.Format(time.RFC1123),
	)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second*15)
		defer cancel()

		if err := ci.mailer.Send(ctx, email, policy.Subject, body); err != nil {
			ci.logger.Warn("code delivery failed: purpose=%s email=%s error=%v", purpose, email, err)
		}
	}()
}

// codeSpan is the size of the uniform draw; codes land in [10000, 99999].
var codeSpan = big.NewInt(90000)

// GenerateCode draws a fixed-width numeric code uniformly from 10000-99999.
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, codeSpan)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%05d", n.Int64()+10000), nil
}
