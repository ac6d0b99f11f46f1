package auth_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/foliohq/folio-auth"
)

func TestAccountContext(t *testing.T) {
	account := &auth.Account{Email: "ctx@example.com"}

	ctx := auth.WithContext(context.Background(), account)

	got, ok := auth.FromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, account, got)

	_, ok = auth.FromContext(context.Background())
	assert.False(t, ok)
}

func TestClaimsContext(t *testing.T) {
	claims := &auth.Claims{UID: "u-1", AccountRole: "admin"}

	ctx := auth.WithClaimsContext(context.Background(), claims)

	got, ok := auth.GetClaims(ctx)
	require.True(t, ok)
	assert.Equal(t, "u-1", got.UserID())

	role, ok := auth.RoleFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, auth.RoleAdmin, role)

	_, ok = auth.RoleFromContext(context.Background())
	assert.False(t, ok)
}
