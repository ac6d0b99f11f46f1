package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

type FinalizePasswordResetMessage struct {
	Email      string `json:"email" example:"pepe.rone@example.com" doc:"Account email."`
	Code       string `json:"code" example:"48213" doc:"Five digit reset code."`
	Password   string `json:"password" example:"some_secret_word" doc:"New password."`
	OnResponse func()
}

func (p FinalizePasswordResetMessage) Type() string { return "account.password_reset_finalize" }

// FinalizePasswordResetHandler checks the reset code and replaces the
// account password in one transaction. The reset request is consumed on
// success, so a code only works once.
type FinalizePasswordResetHandler struct {
	verifier *Verifier
	logger   Logger
}

func NewFinalizePasswordResetHandler(verifier *Verifier) *FinalizePasswordResetHandler {
	return &FinalizePasswordResetHandler{
		verifier: verifier,
		logger:   &defLogger{},
	}
}

// WithLogger overrides the logger used by the handler.
func (h *FinalizePasswordResetHandler) WithLogger(logger Logger) *FinalizePasswordResetHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *FinalizePasswordResetHandler) Execute(ctx context.Context, event FinalizePasswordResetMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password reset finalization",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *FinalizePasswordResetHandler) execute(ctx context.Context, event FinalizePasswordResetMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	if err := h.verifier.ConfirmAndResetPassword(ctx, event.Email, event.Code, event.Password); err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to finalize password reset")
	}

	h.logger.Info("password reset completed for %s", NormalizeEmail(event.Email))

	if event.OnResponse != nil {
		event.OnResponse()
	}

	return nil
}
