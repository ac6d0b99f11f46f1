package auth

import (
	"errors"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
)

// RegisterAuthRoutes mounts the identity endpoints on the given router.
func RegisterAuthRoutes[T any](app router.Router[T], opts ...AuthControllerOption) {

	controller := NewAuthController(opts...)

	app.Post(controller.Routes.Signup, controller.SignupPost).
		SetName("signup.post")

	app.Post(controller.Routes.Verify, controller.VerifyPost).
		SetName("verify.post")

	app.Post(controller.Routes.Resend, controller.ResendPost).
		SetName("verify-resend.post")

	app.Post(controller.Routes.Login, controller.LoginPost).
		SetName("sign-in.post")

	app.Get(controller.Routes.Logout, controller.LogOut).
		SetName("sign-out.get")

	app.Post(controller.Routes.PasswordReset, controller.PasswordResetPost).
		SetName("pwd-reset.post")

	app.Post(controller.Routes.PasswordResetConfirm, controller.PasswordResetConfirm).
		SetName("pwd-reset-do.post")
}

type AuthControllerRoutes struct {
	Signup               string
	Verify               string
	Resend               string
	Login                string
	Logout               string
	PasswordReset        string
	PasswordResetConfirm string
}

type AuthController struct {
	Debug        bool
	Logger       Logger
	Repo         RepositoryManager
	Issuer       *CodeIssuer
	Verifier     *Verifier
	Tokens       TokenService
	Routes       *AuthControllerRoutes
	CookieName   string
	SessionTTL   time.Duration
	ErrorHandler router.ErrorHandler
}

type AuthControllerOption func(*AuthController) *AuthController

func NewAuthController(opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger:       defLogger{},
		ErrorHandler: defaultErrHandler,
		CookieName:   "folio_session",
		SessionTTL:   time.Hour * 24,
		Routes: &AuthControllerRoutes{
			Signup:               "/signup",
			Verify:               "/verify",
			Resend:               "/verify/resend",
			Login:                "/login",
			Logout:               "/logout",
			PasswordReset:        "/password-reset",
			PasswordResetConfirm: "/password-reset/confirm",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in auth controller...")
	}

	if c.Issuer == nil || c.Verifier == nil {
		panic("Missing CodeIssuer or Verifier in auth controller...")
	}

	if c.Tokens == nil {
		panic("Missing TokenService in auth controller...")
	}

	return c
}

func WithControllerLogger(logger Logger) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

func WithControllerRepository(repo RepositoryManager) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Repo = repo
		return c
	}
}

func WithControllerIssuer(issuer *CodeIssuer) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Issuer = issuer
		return c
	}
}

func WithControllerVerifier(verifier *Verifier) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Verifier = verifier
		return c
	}
}

func WithControllerTokenService(tokens TokenService) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Tokens = tokens
		return c
	}
}

func WithControllerCookie(name string, ttl time.Duration) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		if name != "" {
			c.CookieName = name
		}
		if ttl > 0 {
			c.SessionTTL = ttl
		}
		return c
	}
}

func WithControllerErrorHandler(handler router.ErrorHandler) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		if handler != nil {
			c.ErrorHandler = handler
		}
		return c
	}
}

// SignupPayload is the registration payload
type SignupPayload struct {
	Email           string `form:"email" json:"email"`
	DisplayName     string `form:"display_name" json:"display_name"`
	Password        string `form:"password" json:"password"`
	ConfirmPassword string `form:"confirm_password" json:"confirm_password"`
}

// Validate will validate the payload
func (r SignupPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.DisplayName, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Password, validation.Required, validation.Length(10, 100)),
		validation.Field(
			&r.ConfirmPassword,
			validation.Required,
			validation.Length(10, 100),
			validation.By(ValidateStringEquals(r.Password)),
		),
	)
}

func (a *AuthController) SignupPost(ctx router.Context) error {
	payload := new(SignupPayload)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("signup parse payload: %v", err)
		return ctx.JSON(fiber.StatusBadRequest, errorBody("failed to parse request body", "BAD_REQUEST"))
	}

	if err := payload.Validate(); err != nil {
		return ctx.JSON(fiber.StatusBadRequest, validationBody(err))
	}

	var res *SignupResponse
	req := SignupMessage{
		Email:       payload.Email,
		DisplayName: payload.DisplayName,
		Password:    payload.Password,
		OnResponse: func(resp *SignupResponse) {
			res = resp
		},
	}

	signup := NewSignupHandler(a.Repo, a.Issuer)
	if err := signup.Execute(ctx.Context(), req); err != nil {
		a.Logger.Error("signup error: %v", err)
		return a.respondError(ctx, err)
	}

	return ctx.JSON(fiber.StatusCreated, map[string]any{
		"success":         true,
		"email":           res.Account.Email,
		"code_expires_at": res.CodeExpiresAt,
	})
}

// VerifyPayload carries a code submission
type VerifyPayload struct {
	Email string `form:"email" json:"email"`
	Code  string `form:"code" json:"code"`
}

// Validate will validate the payload
func (r VerifyPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Code, validation.Required, validation.Length(5, 5), is.Digit),
	)
}

func (a *AuthController) VerifyPost(ctx router.Context) error {
	payload := new(VerifyPayload)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("verify parse payload: %v", err)
		return ctx.JSON(fiber.StatusBadRequest, errorBody("failed to parse request body", "BAD_REQUEST"))
	}

	if err := payload.Validate(); err != nil {
		return ctx.JSON(fiber.StatusBadRequest, validationBody(err))
	}

	var result *VerificationResult
	req := VerifySignupMessage{
		Email: payload.Email,
		Code:  payload.Code,
		OnResponse: func(resp *VerificationResult) {
			result = resp
		},
	}

	verify := NewVerifySignupHandler(a.Verifier)
	if err := verify.Execute(ctx.Context(), req); err != nil {
		a.Logger.Error("verify error: %v", err)
		return a.respondError(ctx, err)
	}

	switch result.Status {
	case VerificationOK:
		return a.startSession(ctx, payload.Email)
	case VerificationNotFound:
		return ctx.JSON(fiber.StatusNotFound, errorBody("no pending verification for this email", TextCodeAccountNotFound))
	case VerificationDeleted:
		return ctx.JSON(fiber.StatusGone, errorBody("account removed after too many failed attempts", TextCodeAccountDeleted))
	case VerificationExpired:
		body := errorBody("verification code has expired", TextCodeCodeExpired)
		body["attempts_remaining"] = result.AttemptsRemaining
		return ctx.JSON(fiber.StatusUnauthorized, body)
	default:
		body := errorBody("verification code does not match", TextCodeInvalidCode)
		body["attempts_remaining"] = result.AttemptsRemaining
		return ctx.JSON(fiber.StatusUnauthorized, body)
	}
}

// ResendPayload asks for a fresh signup code
type ResendPayload struct {
	Email string `form:"email" json:"email"`
}

// Validate will validate the payload
func (r ResendPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
	)
}

func (a *AuthController) ResendPost(ctx router.Context) error {
	payload := new(ResendPayload)

	if err := ctx.Bind(payload); err != nil {
		return ctx.JSON(fiber.StatusBadRequest, errorBody("failed to parse request body", "BAD_REQUEST"))
	}

	if err := payload.Validate(); err != nil {
		return ctx.JSON(fiber.StatusBadRequest, validationBody(err))
	}

	issued, err := a.Issuer.Resend(ctx.Context(), payload.Email)
	if err != nil {
		a.Logger.Error("resend error: %v", err)
		return a.respondError(ctx, err)
	}

	return ctx.JSON(fiber.StatusOK, map[string]any{
		"success":         true,
		"code_expires_at": issued.ExpiresAt,
		"resends_left":    issued.ResendsLeft,
	})
}

// LoginRequest payload
type LoginRequest struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	)
}

func (a *AuthController) LoginPost(ctx router.Context) error {
	payload := new(LoginRequest)

	if err := ctx.Bind(payload); err != nil {
		return ctx.JSON(fiber.StatusBadRequest, errorBody("failed to parse request body", "BAD_REQUEST"))
	}

	if err := payload.Validate(); err != nil {
		return ctx.JSON(fiber.StatusBadRequest, validationBody(err))
	}

	var res *LoginResponse
	req := LoginMessage{
		Email:    payload.Email,
		Password: payload.Password,
		OnResponse: func(resp *LoginResponse) {
			res = resp
		},
	}

	login := NewLoginHandler(a.Repo, a.Tokens).WithLogger(a.Logger)
	if err := login.Execute(ctx.Context(), req); err != nil {
		a.Logger.Info("login rejected for %s: %v", NormalizeEmail(payload.Email), err)
		return a.respondError(ctx, err)
	}

	a.setSessionCookie(ctx, res.Token)

	return ctx.JSON(fiber.StatusOK, map[string]any{
		"success": true,
		"token":   res.Token,
		"identity": map[string]any{
			"id":    res.Identity.ID(),
			"name":  res.Identity.Name(),
			"email": res.Identity.Email(),
			"role":  res.Identity.Role(),
		},
	})
}

func (a *AuthController) LogOut(ctx router.Context) error {
	ctx.Cookie(&router.Cookie{
		Name:     a.CookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Now().Add(-time.Hour),
		HTTPOnly: true,
	})
	return ctx.Redirect("/", router.StatusSeeOther)
}

// PasswordResetRequestPayload holds values for password reset
type PasswordResetRequestPayload struct {
	Email string `form:"email" json:"email"`
}

// Validate will validate the payload
func (r PasswordResetRequestPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
	)
}

func (a *AuthController) PasswordResetPost(ctx router.Context) error {
	payload := new(PasswordResetRequestPayload)

	if err := ctx.Bind(payload); err != nil {
		return ctx.JSON(fiber.StatusBadRequest, errorBody("failed to parse request body", "BAD_REQUEST"))
	}

	if err := payload.Validate(); err != nil {
		return ctx.JSON(fiber.StatusBadRequest, validationBody(err))
	}

	req := InitializePasswordResetMessage{
		Email: payload.Email,
	}

	initPwdReset := NewInitializePasswordResetHandler(a.Issuer).WithLogger(a.Logger)
	if err := initPwdReset.Execute(ctx.Context(), req); err != nil {
		a.Logger.Error("password reset init error: %v", err)
		return a.respondError(ctx, err)
	}

	// uniform response so the endpoint cannot confirm whether an account exists
	return ctx.JSON(fiber.StatusAccepted, map[string]any{
		"success": true,
		"message": "if an account exists for this email, a reset code has been sent",
	})
}

// PasswordResetConfirmPayload holds the code and replacement password
type PasswordResetConfirmPayload struct {
	Email           string `form:"email" json:"email"`
	Code            string `form:"code" json:"code"`
	Password        string `form:"password" json:"password"`
	ConfirmPassword string `form:"confirm_password" json:"confirm_password"`
}

// Validate will validate the payload
func (r PasswordResetConfirmPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Code, validation.Required, validation.Length(5, 5), is.Digit),
		validation.Field(&r.Password, validation.Required, validation.Length(10, 100)),
		validation.Field(
			&r.ConfirmPassword,
			validation.Required,
			validation.Length(10, 100),
			validation.By(ValidateStringEquals(r.Password)),
		),
	)
}

func (a *AuthController) PasswordResetConfirm(ctx router.Context) error {
	payload := new(PasswordResetConfirmPayload)

	if err := ctx.Bind(payload); err != nil {
		return ctx.JSON(fiber.StatusBadRequest, errorBody("failed to parse request body", "BAD_REQUEST"))
	}

	if err := payload.Validate(); err != nil {
		return ctx.JSON(fiber.StatusBadRequest, validationBody(err))
	}

	req := FinalizePasswordResetMessage{
		Email:    payload.Email,
		Code:     payload.Code,
		Password: payload.Password,
	}

	finalizePwdReset := NewFinalizePasswordResetHandler(a.Verifier).WithLogger(a.Logger)
	if err := finalizePwdReset.Execute(ctx.Context(), req); err != nil {
		a.Logger.Error("password reset finalize error: %v", err)
		return a.respondError(ctx, err)
	}

	return ctx.JSON(fiber.StatusOK, map[string]any{
		"success": true,
		"message": "password updated",
	})
}

// startSession mints a fresh token for the just verified account and sets the
// session cookie, so verification logs the user straight in.
func (a *AuthController) startSession(ctx router.Context, email string) error {
	account, err := a.Repo.Accounts().GetByEmail(ctx.Context(), email)
	if err != nil {
		return a.respondError(ctx, err)
	}

	token, err := a.Tokens.Generate(NewIdentityFromAccount(account))
	if err != nil {
		return a.respondError(ctx, err)
	}

	a.setSessionCookie(ctx, token)

	return ctx.JSON(fiber.StatusOK, map[string]any{
		"success": true,
		"token":   token,
	})
}

func (a *AuthController) setSessionCookie(ctx router.Context, token string) {
	ctx.Cookie(&router.Cookie{
		Name:     a.CookieName,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(a.SessionTTL),
		HTTPOnly: true,
		SameSite: "Lax",
	})
}

// respondError maps a rich error onto an HTTP response. Rich errors carry
// their status in Code; quota and cooldown rejections map to 429.
func (a *AuthController) respondError(ctx router.Context, err error) error {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return a.ErrorHandler(ctx, err)
	}

	status := richErr.Code
	switch richErr.TextCode {
	case TextCodeQuotaExceeded, TextCodeLoginCooldown:
		status = fiber.StatusTooManyRequests
	}
	if status == 0 {
		status = fiber.StatusInternalServerError
	}

	body := errorBody(richErr.Message, richErr.TextCode)
	return ctx.JSON(status, body)
}

func errorBody(message, textCode string) map[string]any {
	return map[string]any{
		"success":    false,
		"error":      message,
		"error_code": textCode,
	}
}

func validationBody(err error) map[string]any {
	return map[string]any{
		"success":    false,
		"error":      "validation failed",
		"error_code": "VALIDATION",
		"validation": FormatValidationErrorToMap(err),
	}
}

// FormatValidationErrorToMap flattens ozzo field errors to field:message.
func FormatValidationErrorToMap(err error) map[string]string {
	out := map[string]string{}
	var verrs validation.Errors
	if errors.As(err, &verrs) {
		for field, ferr := range verrs {
			out[field] = ferr.Error()
		}
		return out
	}
	out["payload"] = err.Error()
	return out
}

// ValidateStringEquals will check that both values match
func ValidateStringEquals(str string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if s != str {
			return errors.New("values must match")
		}
		return nil
	}
}

func defaultErrHandler(c router.Context, err error) error {
	return c.JSON(fiber.StatusInternalServerError, errorBody("internal error", "INTERNAL"))
}
