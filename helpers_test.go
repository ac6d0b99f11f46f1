package auth_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	auth "github.com/foliohq/folio-auth"
)

func newTestConfig() *auth.Config {
	return &auth.Config{
		SigningKey:       "test-signing-key-0123456789",
		Issuer:           "folio",
		Audience:         []string{"folio-web"},
		SessionTTL:       time.Hour * 24,
		SignupCodeTTL:    time.Minute * 2,
		ResetCodeTTL:     time.Minute * 15,
		ContextKey:       "session",
		CookieName:       "folio_session",
		SignInPath:       "/login",
		UnauthorizedPath: "/unauthorized",
	}
}

// newTestRepo opens a private in-memory database per test and returns a
// repository manager over it.
func newTestRepo(t *testing.T) auth.RepositoryManager {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := auth.OpenDB(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, auth.CreateSchema(context.Background(), db))

	return auth.NewRepositoryManager(db)
}

// createTestAccount registers an account directly through the repository.
func createTestAccount(t *testing.T, repo auth.RepositoryManager, email, password string, status auth.AccountStatus) *auth.Account {
	t.Helper()

	hash, err := auth.HashPassword(password)
	require.NoError(t, err)

	account, err := repo.Accounts().Register(context.Background(), &auth.Account{
		Email:        email,
		DisplayName:  "Test Account",
		PasswordHash: hash,
		Status:       status,
	})
	require.NoError(t, err)

	return account
}

// capturingMailer records sends so tests can assert on delivery without SMTP.
type capturingMailer struct {
	mu    sync.Mutex
	sends []capturedMail
}

type capturedMail struct {
	To      string
	Subject string
	Body    string
}

func (c *capturingMailer) Send(ctx context.Context, to, subject, body string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sends = append(c.sends, capturedMail{To: to, Subject: subject, Body: body})
	return nil
}

func (c *capturingMailer) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sends)
}

type silentLogger struct{}

func (silentLogger) Debug(format string, args ...any) {}
func (silentLogger) Info(format string, args ...any)  {}
func (silentLogger) Warn(format string, args ...any)  {}
func (silentLogger) Error(format string, args ...any) {}

// stubValidator satisfies auth.TokenValidator with canned responses keyed by
// raw token string.
type stubValidator struct {
	claims map[string]*auth.Claims
	err    error
}

func (s *stubValidator) Validate(tokenString string) (*auth.Claims, error) {
	if s.err != nil {
		return nil, s.err
	}
	if c, ok := s.claims[tokenString]; ok {
		return c, nil
	}
	return nil, auth.ErrTokenMalformed
}

// testIdentity is a minimal auth.Identity for token tests.
type testIdentity struct {
	id    string
	name  string
	email string
	role  string
}

func (i testIdentity) ID() string    { return i.id }
func (i testIdentity) Name() string  { return i.name }
func (i testIdentity) Email() string { return i.email }
func (i testIdentity) Role() string  { return i.role }
