package auth_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/foliohq/folio-auth"
)

var (
	testSigningKey = []byte("test-signing-key-0123456789")
	testAudience   = jwt.ClaimStrings{"folio-web"}
)

func newTestTokenService() *auth.TokenServiceImpl {
	return auth.NewTokenService(testSigningKey, time.Hour*24, "folio", testAudience, silentLogger{})
}

func TestTokenServiceGenerateAndValidate(t *testing.T) {
	service := newTestTokenService()

	identity := testIdentity{
		id:    "8d6d6b56-3df6-47a1-9a59-9f7a66e216fc",
		name:  "Test Account",
		email: "test@example.com",
		role:  "researcher",
	}

	token, err := service.Generate(identity)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := service.Validate(token)
	require.NoError(t, err)

	assert.Equal(t, identity.id, claims.UserID())
	assert.Equal(t, identity.id, claims.UID)
	assert.Empty(t, claims.LegacyUID, "new tokens must not carry the legacy claim")
	assert.Equal(t, identity.name, claims.Name())
	assert.Equal(t, identity.email, claims.Email)
	assert.Equal(t, auth.RoleResearcher, claims.Role())
	assert.Equal(t, "folio", claims.RegisteredClaims.Issuer)
	assert.WithinDuration(t, time.Now().Add(time.Hour*24), claims.Expires(), time.Minute)
}

func TestTokenServiceValidateLegacyClaim(t *testing.T) {
	service := newTestTokenService()

	// tokens minted before the claim rename carry user_id instead of uid
	legacy := &auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "folio",
			Subject:   "b0cbd92f-4f7e-49c8-8a36-44a1a5e0e514",
			Audience:  testAudience,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		LegacyUID:   "b0cbd92f-4f7e-49c8-8a36-44a1a5e0e514",
		AccountRole: "user",
	}

	token, err := service.SignClaims(legacy)
	require.NoError(t, err)

	claims, err := service.Validate(token)
	require.NoError(t, err)

	assert.Empty(t, claims.UID)
	assert.Equal(t, "b0cbd92f-4f7e-49c8-8a36-44a1a5e0e514", claims.UserID())
}

func TestTokenServiceValidateExpired(t *testing.T) {
	service := newTestTokenService().WithClock(func() time.Time {
		return time.Now().Add(-48 * time.Hour)
	})

	token, err := service.Generate(testIdentity{id: "id-1", role: "user"})
	require.NoError(t, err)

	_, err = service.Validate(token)
	require.Error(t, err)
	assert.Equal(t, auth.ErrTokenExpired, err)
	assert.True(t, auth.IsTokenExpiredError(err))
}

func TestTokenServiceValidateTampered(t *testing.T) {
	service := newTestTokenService()

	token, err := service.Generate(testIdentity{id: "id-1", role: "user"})
	require.NoError(t, err)

	// flip a character in the signature segment
	tampered := token[:len(token)-2] + flip(token[len(token)-2:])

	_, err = service.Validate(tampered)
	require.Error(t, err)
	assert.Equal(t, auth.ErrTokenSignature, err)
}

func flip(s string) string {
	if s[0] == 'A' {
		return "B" + s[1:]
	}
	return "A" + s[1:]
}

func TestTokenServiceValidateMalformed(t *testing.T) {
	service := newTestTokenService()

	tests := []struct {
		name  string
		token string
	}{
		{name: "empty string", token: ""},
		{name: "whitespace", token: "   "},
		{name: "not a token", token: "this is not a token"},
		{name: "missing segments", token: "abc.def"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.Validate(tt.token)
			require.Error(t, err)
			assert.True(t, auth.IsMalformedError(err))
		})
	}
}

func TestTokenServiceValidateWrongKey(t *testing.T) {
	service := newTestTokenService()
	other := auth.NewTokenService([]byte("a-completely-different-key"), time.Hour, "folio", testAudience, silentLogger{})

	token, err := other.Generate(testIdentity{id: "id-1", role: "user"})
	require.NoError(t, err)

	_, err = service.Validate(token)
	require.Error(t, err)
	assert.Equal(t, auth.ErrTokenSignature, err)
}

func TestTokenServiceValidateWrongIssuer(t *testing.T) {
	service := newTestTokenService()
	other := auth.NewTokenService(testSigningKey, time.Hour, "someone-else", testAudience, silentLogger{})

	token, err := other.Generate(testIdentity{id: "id-1", role: "user"})
	require.NoError(t, err)

	_, err = service.Validate(token)
	require.Error(t, err)
}
