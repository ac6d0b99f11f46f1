package auth_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"

	auth "github.com/foliohq/folio-auth"
)

func TestClaimsUserID(t *testing.T) {
	tests := []struct {
		name   string
		claims auth.Claims
		want   string
	}{
		{
			name:   "canonical uid wins",
			claims: auth.Claims{UID: "uid-1", LegacyUID: "legacy-1"},
			want:   "uid-1",
		},
		{
			name:   "legacy claim honored when uid absent",
			claims: auth.Claims{LegacyUID: "legacy-1"},
			want:   "legacy-1",
		},
		{
			name: "falls back to subject",
			claims: auth.Claims{
				RegisteredClaims: jwt.RegisteredClaims{Subject: "sub-1"},
			},
			want: "sub-1",
		},
		{
			name:   "empty claims",
			claims: auth.Claims{},
			want:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.claims.UserID())
		})
	}
}

func TestClaimsRoles(t *testing.T) {
	claims := &auth.Claims{AccountRole: "researcher"}

	assert.Equal(t, auth.RoleResearcher, claims.Role())
	assert.True(t, claims.HasRole(auth.RoleResearcher))
	assert.False(t, claims.HasRole(auth.RoleAdmin))

	assert.True(t, claims.IsAtLeast(auth.RoleUser))
	assert.True(t, claims.IsAtLeast(auth.RoleResearcher))
	assert.False(t, claims.IsAtLeast(auth.RoleAdmin))
}

func TestClaimsTimes(t *testing.T) {
	t.Run("populated", func(t *testing.T) {
		issued := time.Now().Truncate(time.Second)
		expires := issued.Add(time.Hour)

		claims := &auth.Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				IssuedAt:  jwt.NewNumericDate(issued),
				ExpiresAt: jwt.NewNumericDate(expires),
			},
		}

		assert.Equal(t, issued, claims.IssuedAt())
		assert.Equal(t, expires, claims.Expires())
	})

	t.Run("zero values when absent", func(t *testing.T) {
		claims := &auth.Claims{}

		assert.True(t, claims.IssuedAt().IsZero())
		assert.True(t, claims.Expires().IsZero())
	})
}
