package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// VerificationStatus is the outcome of a code submission.
type VerificationStatus string

const (
	// VerificationOK means the code matched inside its window
	VerificationOK VerificationStatus = "verified"
	// VerificationInvalid means the code did not match
	VerificationInvalid VerificationStatus = "invalid_code"
	// VerificationExpired means the code was past its window
	VerificationExpired VerificationStatus = "expired"
	// VerificationDeleted is the abuse terminal: the record under
	// verification was destroyed (the account on the signup track, the reset
	// request on the reset track). Non-retryable.
	VerificationDeleted VerificationStatus = "deleted"
	// VerificationNotFound means no account or live request exists
	VerificationNotFound VerificationStatus = "not_found"
)

// VerificationResult reports a submission outcome. AttemptsRemaining is only
// meaningful for VerificationInvalid and VerificationExpired; callers should
// warn the user before the final attempt.
type VerificationResult struct {
	Status            VerificationStatus
	AttemptsRemaining int
}

// Verified is true for the success outcome.
func (r *VerificationResult) Verified() bool {
	return r != nil && r.Status == VerificationOK
}

// Verifier consumes submitted codes and drives the security state
// transitions: Unverified to Active on a match, destruction on abuse. Both
// tracks share one code path; attempt caps come from the purpose policy.
type Verifier struct {
	repo     RepositoryManager
	policies map[Purpose]PurposePolicy
	logger   Logger
	now      func() time.Time
}

// NewVerifier builds a Verifier using the same policies as the CodeIssuer.
func NewVerifier(repo RepositoryManager, cfg *Config) *Verifier {
	return &Verifier{
		repo:     repo,
		policies: DefaultPolicies(cfg),
		logger:   defLogger{},
		now:      time.Now,
	}
}

// WithLogger overrides the logger.
func (v *Verifier) WithLogger(logger Logger) *Verifier {
	if logger != nil {
		v.logger = logger
	}
	return v
}

// WithClock injects a custom clock (useful for tests).
func (v *Verifier) WithClock(clock func() time.Time) *Verifier {
	if clock != nil {
		v.now = clock
	}
	return v
}

// VerifySignup submits a code on the signup track. The attempt counter is
// incremented atomically in the same transaction that checks the threshold
// and, at the bound, deletes the account; two racing submissions cannot
// produce more than the allowed failures or a double delete.
func (v *Verifier) VerifySignup(ctx context.Context, email, submittedCode string) (*VerificationResult, error) {
	policy := v.policies[PurposeSignup]
	result := &VerificationResult{}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := v.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		account, err := v.repo.Accounts().GetByEmailTx(ctx, tx, email)
		if err != nil {
			if goerrors.IsNotFound(err) {
				result.Status = VerificationNotFound
				return nil
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve account for verification")
		}

		if account.Status != AccountStatusUnverified {
			return goerrors.New("account is not awaiting verification", goerrors.CategoryConflict).
				WithCode(goerrors.CodeConflict).
				WithMetadata(map[string]any{"status": account.Status})
		}

		now := v.now()
		expired := !account.HasLiveCode(now)
		matched := account.VerificationCode != nil && *account.VerificationCode == submittedCode

		if !matched || expired {
			count, err := v.repo.Accounts().IncrementFailedAttemptsTx(ctx, tx, account.ID)
			if err != nil {
				return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to track verification attempt")
			}

			if count >= policy.AttemptCap {
				if err := v.repo.Accounts().PurgeTx(ctx, tx, account.ID); err != nil {
					return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to delete account at attempt bound")
				}
				v.logger.Warn("account deleted after %d failed verification attempts: %s", count, account.Email)
				result.Status = VerificationDeleted
				return nil
			}

			result.AttemptsRemaining = policy.AttemptCap - count
			if expired {
				result.Status = VerificationExpired
			} else {
				result.Status = VerificationInvalid
			}
			return nil
		}

		if err := v.repo.Accounts().MarkVerifiedTx(ctx, tx, account.ID); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to activate account")
		}

		result.Status = VerificationOK
		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, richErr
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "signup verification failed")
	}

	return result, nil
}

// VerifyReset submits a code on the reset track. Same engine, same cap: at
// the bound the reset request is consumed rather than the account deleted,
// so guessing at a reset form cannot destroy someone else's account.
func (v *Verifier) VerifyReset(ctx context.Context, email, submittedCode string) (*VerificationResult, error) {
	result := &VerificationResult{}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := v.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return v.checkReset(ctx, tx, email, submittedCode, result)
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, richErr
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "reset verification failed")
	}

	return result, nil
}

// ConfirmAndResetPassword verifies the code and changes the password as one
// logical operation. The reset request is consumed in the same transaction
// that installs the new digest, so the code can never be replayed.
func (v *Verifier) ConfirmAndResetPassword(ctx context.Context, email, submittedCode, newPassword string) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := v.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		account, err := v.repo.Accounts().GetByEmailTx(ctx, tx, email)
		if err != nil {
			return err
		}

		result := &VerificationResult{}
		if err := v.checkReset(ctx, tx, email, submittedCode, result); err != nil {
			return err
		}

		switch result.Status {
		case VerificationOK:
		case VerificationNotFound, VerificationDeleted:
			return ErrResetRequestNotFound.Clone().WithMetadata(map[string]any{"email": NormalizeEmail(email)})
		case VerificationExpired:
			return ErrCodeExpired.Clone().WithMetadata(map[string]any{"email": NormalizeEmail(email)})
		default:
			return ErrInvalidCode.Clone().WithMetadata(map[string]any{
				"attempts_remaining": result.AttemptsRemaining,
			})
		}

		passwordHash, err := HashPassword(newPassword)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid new password provided")
		}

		if err := v.repo.Accounts().UpdatePasswordTx(ctx, tx, account.ID, passwordHash); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update password")
		}

		// completing a reset proves control of the email; activate accounts
		// that never finished signup verification
		if account.Status == AccountStatusUnverified {
			if err := v.repo.Accounts().MarkVerifiedTx(ctx, tx, account.ID); err != nil {
				return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to activate account")
			}
		}

		return v.repo.PasswordResets().ConsumeTx(ctx, tx, email)
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to confirm password reset")
	}

	return nil
}

func (v *Verifier) checkReset(ctx context.Context, tx bun.Tx, email, submittedCode string, result *VerificationResult) error {
	policy := v.policies[PurposeReset]

	request, err := v.repo.PasswordResets().GetByEmailTx(ctx, tx, email)
	if err != nil {
		if goerrors.IsNotFound(err) {
			result.Status = VerificationNotFound
			return nil
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve reset request")
	}

	now := v.now()
	expired := request.Expired(now)
	matched := request.Code == submittedCode

	if !matched || expired {
		count, err := v.repo.PasswordResets().IncrementFailedAttemptsTx(ctx, tx, email)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to track reset attempt")
		}

		if count >= policy.AttemptCap {
			if err := v.repo.PasswordResets().ConsumeTx(ctx, tx, email); err != nil {
				return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to consume reset request at attempt bound")
			}
			v.logger.Warn("reset request consumed after %d failed attempts: %s", count, NormalizeEmail(email))
			result.Status = VerificationDeleted
			return nil
		}

		result.AttemptsRemaining = policy.AttemptCap - count
		if expired {
			result.Status = VerificationExpired
		} else {
			result.Status = VerificationInvalid
		}
		return nil
	}

	result.Status = VerificationOK
	return nil
}
