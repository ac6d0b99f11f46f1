package auth

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
)

type VerifySignupMessage struct {
	Email      string `json:"email" example:"pepe.rone@example.com" doc:"Account email."`
	Code       string `json:"code" example:"48213" doc:"Five digit verification code."`
	OnResponse func(resp *VerificationResult)
}

func (m VerifySignupMessage) Type() string { return "account.verify_signup" }

// VerifySignupHandler submits a signup code against the verification
// state machine.
type VerifySignupHandler struct {
	verifier *Verifier
}

func NewVerifySignupHandler(verifier *Verifier) *VerifySignupHandler {
	return &VerifySignupHandler{verifier: verifier}
}

func (h *VerifySignupHandler) Execute(ctx context.Context, event VerifySignupMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "context cancelled during verification")
	default:
		return h.execute(ctx, event)
	}
}

func (h *VerifySignupHandler) execute(ctx context.Context, event VerifySignupMessage) error {
	result, err := h.verifier.VerifySignup(ctx, event.Email, event.Code)
	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "verification failed")
	}

	if event.OnResponse != nil {
		event.OnResponse(result)
	}

	return nil
}
