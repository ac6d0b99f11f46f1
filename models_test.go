package auth_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	auth "github.com/foliohq/folio-auth"
)

func TestNormalizeEmail(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "lowercases", input: "Pepe.Rone@Example.COM", want: "pepe.rone@example.com"},
		{name: "trims whitespace", input: "  user@example.com \n", want: "user@example.com"},
		{name: "already canonical", input: "user@example.com", want: "user@example.com"},
		{name: "empty", input: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, auth.NormalizeEmail(tt.input))
		})
	}
}

func TestAccountEnsureStatus(t *testing.T) {
	account := &auth.Account{}
	account.EnsureStatus()
	assert.Equal(t, auth.AccountStatusUnverified, account.Status)

	account.Status = auth.AccountStatusActive
	account.EnsureStatus()
	assert.Equal(t, auth.AccountStatusActive, account.Status)
}

func TestAccountHasLiveCode(t *testing.T) {
	now := time.Now()
	code := "48213"

	t.Run("live code", func(t *testing.T) {
		expires := now.Add(time.Minute)
		account := &auth.Account{VerificationCode: &code, CodeExpiresAt: &expires}
		assert.True(t, account.HasLiveCode(now))
	})

	t.Run("expired code", func(t *testing.T) {
		expires := now.Add(-time.Second)
		account := &auth.Account{VerificationCode: &code, CodeExpiresAt: &expires}
		assert.False(t, account.HasLiveCode(now))
	})

	t.Run("boundary instant still live", func(t *testing.T) {
		account := &auth.Account{VerificationCode: &code, CodeExpiresAt: &now}
		assert.True(t, account.HasLiveCode(now))
	})

	t.Run("no code", func(t *testing.T) {
		account := &auth.Account{}
		assert.False(t, account.HasLiveCode(now))
	})
}

func TestPasswordResetRequestExpired(t *testing.T) {
	now := time.Now()

	request := &auth.PasswordResetRequest{ExpiresAt: now.Add(time.Minute)}
	assert.False(t, request.Expired(now))

	request.ExpiresAt = now.Add(-time.Second)
	assert.True(t, request.Expired(now))

	request.ExpiresAt = now
	assert.False(t, request.Expired(now), "expiry boundary is inclusive")
}
