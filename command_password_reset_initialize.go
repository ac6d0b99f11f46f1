package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

type InitializePasswordResetMessage struct {
	Email      string `json:"email" example:"pepe.rone@example.com" doc:"Account email."`
	OnResponse func(resp *InitializePasswordResetResponse)
}

func (p InitializePasswordResetMessage) Type() string { return "account.password_reset" }

type InitializePasswordResetResponse struct {
	// Found is whether an account exists for the email. Callers should not
	// surface it to the requester.
	Found     bool
	ExpiresAt time.Time
}

// InitializePasswordResetHandler issues a reset code for the account. A
// missing account is concealed from the response given to the requester so
// the endpoint cannot be used to enumerate emails.
type InitializePasswordResetHandler struct {
	issuer *CodeIssuer
	logger Logger
}

func NewInitializePasswordResetHandler(issuer *CodeIssuer) *InitializePasswordResetHandler {
	return &InitializePasswordResetHandler{
		issuer: issuer,
		logger: &defLogger{},
	}
}

func (h *InitializePasswordResetHandler) WithLogger(logger Logger) *InitializePasswordResetHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *InitializePasswordResetHandler) Execute(ctx context.Context, event InitializePasswordResetMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password reset initialization",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *InitializePasswordResetHandler) execute(ctx context.Context, event InitializePasswordResetMessage) error {
	resp := &InitializePasswordResetResponse{}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	issued, err := h.issuer.Issue(ctx, event.Email, PurposeReset)
	if err != nil {
		if goerrors.IsNotFound(err) {
			h.logger.Debug("password reset requested for unknown email: %s", NormalizeEmail(event.Email))
			if event.OnResponse != nil {
				event.OnResponse(resp)
			}
			return nil
		}

		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to initialize password reset")
	}

	resp.Found = true
	resp.ExpiresAt = issued.ExpiresAt

	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}
