package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// MaxLoginAttempts is the number of failed logins tolerated before the
// cooldown kicks in.
var MaxLoginAttempts = 5

// CoolDownPeriod is how long an account stays locked after exhausting
// its login attempts.
var CoolDownPeriod = "24h"

type LoginMessage struct {
	Email      string `json:"email" example:"pepe.rone@example.com" doc:"Account email."`
	Password   string `json:"password" example:"some_secret_word" doc:"Password."`
	OnResponse func(resp *LoginResponse)
}

func (m LoginMessage) Type() string { return "account.login" }

type LoginResponse struct {
	Token    string
	Identity Identity
}

// LoginHandler checks credentials, enforces the login cooldown, and
// mints a session token on success.
type LoginHandler struct {
	repo   RepositoryManager
	tokens TokenIssuer
	logger Logger
}

func NewLoginHandler(repo RepositoryManager, tokens TokenIssuer) *LoginHandler {
	return &LoginHandler{
		repo:   repo,
		tokens: tokens,
		logger: &defLogger{},
	}
}

func (h *LoginHandler) WithLogger(logger Logger) *LoginHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *LoginHandler) Execute(ctx context.Context, event LoginMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "context cancelled during login")
	default:
		return h.execute(ctx, event)
	}
}

func (h *LoginHandler) execute(ctx context.Context, event LoginMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	account, err := h.repo.Accounts().GetByEmail(ctx, event.Email)
	if err != nil {
		if goerrors.IsNotFound(err) {
			// burn a comparison so absent accounts take as long as bad passwords
			_ = ComparePasswordAndHash(event.Password, RandomPasswordHash())
			return ErrMismatchedHashAndPassword
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load account")
	}

	if err := h.checkCooldown(ctx, account); err != nil {
		return err
	}

	if err := ComparePasswordAndHash(event.Password, account.PasswordHash); err != nil {
		if terr := h.repo.Accounts().TrackAttemptedLogin(ctx, account); terr != nil {
			h.logger.Error("failed to track login attempt: %v", terr)
		}
		return ErrMismatchedHashAndPassword
	}

	if err := statusAuthError(account.Status); err != nil {
		return err
	}

	if err := h.repo.Accounts().TrackSuccessfulLogin(ctx, account); err != nil {
		h.logger.Error("failed to track successful login: %v", err)
	}

	identity := NewIdentityFromAccount(account)
	token, err := h.tokens.Generate(identity)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to generate session token")
	}

	if event.OnResponse != nil {
		event.OnResponse(&LoginResponse{Token: token, Identity: identity})
	}

	return nil
}

// checkCooldown rejects the login while the account is inside its lockout
// window, and resets the counter once the window has lapsed.
func (h *LoginHandler) checkCooldown(ctx context.Context, account *Account) error {
	if account.LoginAttempts <= MaxLoginAttempts || account.LoginAttemptAt == nil {
		return nil
	}

	expired, err := IsOutsideThresholdPeriod(*account.LoginAttemptAt, CoolDownPeriod)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to evaluate cooldown period")
	}

	if !expired {
		return ErrTooManyLoginAttempts.Clone().WithMetadata(map[string]any{
			"cooldown": CoolDownPeriod,
		})
	}

	account.LoginAttempts = 0
	if err := h.repo.Accounts().ResetLoginAttempts(ctx, account); err != nil {
		h.logger.Error("failed to reset login attempts: %v", err)
	}
	return nil
}
