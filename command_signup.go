package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

type SignupMessage struct {
	Email       string `json:"email" example:"pepe.rone@example.com" doc:"Account email."`
	DisplayName string `json:"display_name" example:"Pepe Rone" doc:"Name shown on shared documents."`
	Password    string `json:"password" example:"some_secret_word" doc:"Password."`
	Role        string `json:"role" example:"user" doc:"Requested role, defaults to user."`
	OnResponse  func(resp *SignupResponse)
}

func (m SignupMessage) Type() string { return "account.signup" }

type SignupResponse struct {
	Account       *Account
	CodeExpiresAt time.Time
}

// SignupHandler creates an unverified account and issues its first
// verification code.
type SignupHandler struct {
	repo   RepositoryManager
	issuer *CodeIssuer
}

func NewSignupHandler(repo RepositoryManager, issuer *CodeIssuer) *SignupHandler {
	return &SignupHandler{repo: repo, issuer: issuer}
}

func (h *SignupHandler) Execute(ctx context.Context, event SignupMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "context cancelled during signup")
	default:
		return h.execute(ctx, event)
	}
}

func (h *SignupHandler) execute(ctx context.Context, event SignupMessage) error {
	account := &Account{}
	resp := &SignupResponse{}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := h.repo.Accounts().GetByEmailTx(ctx, tx, event.Email); err == nil {
			return ErrDuplicateEmail.Clone().WithMetadata(map[string]any{
				"email": NormalizeEmail(event.Email),
			})
		} else if !goerrors.IsNotFound(err) {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check for existing account")
		}

		hash, err := HashPassword(event.Password)
		if err != nil {
			var richErr *goerrors.Error
			if goerrors.As(err, &richErr) {
				return goerrors.Wrap(richErr, goerrors.CategoryValidation, "invalid password provided")
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
		}

		account.Email = event.Email
		account.DisplayName = event.DisplayName
		account.PasswordHash = hash
		account.Status = AccountStatusUnverified
		if role, ok := ParseRole(event.Role); ok {
			account.Role = role
		}

		if account, err = h.repo.Accounts().RegisterTx(ctx, tx, account); err != nil {
			// the unique index backstops the pre-check under concurrency
			return goerrors.Wrap(err, goerrors.CategoryConflict, "could not create account").
				WithTextCode(TextCodeEmailTaken)
		}

		resp.Account = account
		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "signup transaction failed")
	}

	// issued after commit so the code always references a persisted account
	issued, err := h.issuer.Issue(ctx, account.Email, PurposeSignup)
	if err != nil {
		return err
	}
	resp.CodeExpiresAt = issued.ExpiresAt

	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}
