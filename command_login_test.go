package auth_test

import (
	"context"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/foliohq/folio-auth"
)

func TestLoginHandlerSuccess(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	tokens := newTestTokenService()

	account := createTestAccount(t, repo, "login@example.com", "password-12345", auth.AccountStatusActive)

	var res *auth.LoginResponse
	handler := auth.NewLoginHandler(repo, tokens).WithLogger(silentLogger{})

	err := handler.Execute(ctx, auth.LoginMessage{
		Email:    account.Email,
		Password: "password-12345",
		OnResponse: func(resp *auth.LoginResponse) {
			res = resp
		},
	})
	require.NoError(t, err)
	require.NotNil(t, res)
	require.NotEmpty(t, res.Token)

	claims, err := tokens.Validate(res.Token)
	require.NoError(t, err)
	assert.Equal(t, account.ID.String(), claims.UserID())
	assert.Equal(t, auth.RoleUser, claims.Role())

	stored, err := repo.Accounts().GetByEmail(ctx, account.Email)
	require.NoError(t, err)
	assert.NotNil(t, stored.LoggedInAt)
	assert.Equal(t, 0, stored.LoginAttempts)
}

func TestLoginHandlerBadCredentials(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	tokens := newTestTokenService()
	handler := auth.NewLoginHandler(repo, tokens).WithLogger(silentLogger{})

	account := createTestAccount(t, repo, "badpass@example.com", "password-12345", auth.AccountStatusActive)

	t.Run("wrong password", func(t *testing.T) {
		err := handler.Execute(ctx, auth.LoginMessage{
			Email:    account.Email,
			Password: "not-the-password",
		})
		require.Error(t, err)
		assert.Equal(t, auth.ErrMismatchedHashAndPassword, err)

		stored, err := repo.Accounts().GetByEmail(ctx, account.Email)
		require.NoError(t, err)
		assert.Equal(t, 1, stored.LoginAttempts)
	})

	t.Run("unknown email yields the same error", func(t *testing.T) {
		err := handler.Execute(ctx, auth.LoginMessage{
			Email:    "nobody@example.com",
			Password: "password-12345",
		})
		require.Error(t, err)
		assert.Equal(t, auth.ErrMismatchedHashAndPassword, err)
	})
}

func TestLoginHandlerInactiveAccount(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	handler := auth.NewLoginHandler(repo, newTestTokenService()).WithLogger(silentLogger{})

	tests := []struct {
		name   string
		email  string
		status auth.AccountStatus
	}{
		{name: "unverified", email: "unverified@example.com", status: auth.AccountStatusUnverified},
		{name: "suspended", email: "suspended@example.com", status: auth.AccountStatusSuspended},
		{name: "pending", email: "pending@example.com", status: auth.AccountStatusPending},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			createTestAccount(t, repo, tt.email, "password-12345", tt.status)

			err := handler.Execute(ctx, auth.LoginMessage{
				Email:    tt.email,
				Password: "password-12345",
			})
			require.Error(t, err)

			var richErr *goerrors.Error
			require.True(t, goerrors.As(err, &richErr))
			assert.Equal(t, auth.TextCodeAccountInactive, richErr.TextCode)
		})
	}
}

func TestLoginHandlerCooldown(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	handler := auth.NewLoginHandler(repo, newTestTokenService()).WithLogger(silentLogger{})

	account := createTestAccount(t, repo, "locked@example.com", "password-12345", auth.AccountStatusActive)

	// exhaust the allowance plus one
	for i := 0; i <= auth.MaxLoginAttempts; i++ {
		err := handler.Execute(ctx, auth.LoginMessage{
			Email:    account.Email,
			Password: "not-the-password",
		})
		require.Error(t, err)
	}

	// even the right password is rejected while the cooldown holds
	err := handler.Execute(ctx, auth.LoginMessage{
		Email:    account.Email,
		Password: "password-12345",
	})
	require.Error(t, err)

	var richErr *goerrors.Error
	require.True(t, goerrors.As(err, &richErr))
	assert.Equal(t, auth.TextCodeLoginCooldown, richErr.TextCode)
}

func TestSignupHandlerDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	issuer := auth.NewCodeIssuer(repo, &capturingMailer{}, newTestConfig()).WithLogger(silentLogger{})
	handler := auth.NewSignupHandler(repo, issuer)

	err := handler.Execute(ctx, auth.SignupMessage{
		Email:       "taken@example.com",
		DisplayName: "First",
		Password:    "password-12345",
	})
	require.NoError(t, err)

	// same email, different casing: normalization collides
	err = handler.Execute(ctx, auth.SignupMessage{
		Email:       "Taken@Example.com",
		DisplayName: "Second",
		Password:    "password-67890",
	})
	require.Error(t, err)

	var richErr *goerrors.Error
	require.True(t, goerrors.As(err, &richErr))
	assert.Equal(t, auth.TextCodeEmailTaken, richErr.TextCode)
}

func TestSignupHandlerCreatesUnverifiedAccount(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	mailer := &capturingMailer{}
	issuer := auth.NewCodeIssuer(repo, mailer, newTestConfig()).WithLogger(silentLogger{})
	handler := auth.NewSignupHandler(repo, issuer)

	var res *auth.SignupResponse
	err := handler.Execute(ctx, auth.SignupMessage{
		Email:       "New.Account@Example.com",
		DisplayName: "New Account",
		Password:    "password-12345",
		OnResponse: func(resp *auth.SignupResponse) {
			res = resp
		},
	})
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.False(t, res.CodeExpiresAt.IsZero())

	stored, err := repo.Accounts().GetByEmail(ctx, "new.account@example.com")
	require.NoError(t, err)
	assert.Equal(t, auth.AccountStatusUnverified, stored.Status)
	assert.Equal(t, auth.RoleUser, stored.Role, "role defaults to user")
	require.NotNil(t, stored.VerificationCode)

	// password is stored as a digest, never as cleartext
	assert.NotEqual(t, "password-12345", stored.PasswordHash)
	assert.NoError(t, auth.ComparePasswordAndHash("password-12345", stored.PasswordHash))
}
