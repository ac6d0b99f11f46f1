package auth

import (
	"time"

	"github.com/caarlos0/env/v11"
	goerrors "github.com/goliatone/go-errors"
)

// Config holds every tunable for the identity subsystem. Loaded once at
// process start and passed by reference; no component reads the environment
// on its own.
type Config struct {
	SigningKey string `env:"AUTH_SIGNING_KEY,notEmpty"`
	Issuer     string `env:"AUTH_ISSUER" envDefault:"folio"`
	Audience   []string `env:"AUTH_AUDIENCE" envDefault:"folio-web"`

	SessionTTL time.Duration `env:"AUTH_SESSION_TTL" envDefault:"24h"`

	SignupCodeTTL time.Duration `env:"AUTH_SIGNUP_CODE_TTL" envDefault:"2m"`
	ResetCodeTTL  time.Duration `env:"AUTH_RESET_CODE_TTL" envDefault:"15m"`

	ContextKey string `env:"AUTH_CONTEXT_KEY" envDefault:"session"`
	CookieName string `env:"AUTH_COOKIE_NAME" envDefault:"folio_session"`

	SignInPath       string `env:"AUTH_SIGNIN_PATH" envDefault:"/login"`
	UnauthorizedPath string `env:"AUTH_UNAUTHORIZED_PATH" envDefault:"/unauthorized"`

	DatabaseDSN string `env:"AUTH_DATABASE_DSN" envDefault:"file::memory:?cache=shared"`

	SMTPHost string `env:"AUTH_SMTP_HOST"`
	SMTPPort int    `env:"AUTH_SMTP_PORT" envDefault:"587"`
	SMTPUser string `env:"AUTH_SMTP_USER"`
	SMTPPass string `env:"AUTH_SMTP_PASS"`
	SMTPFrom string `env:"AUTH_SMTP_FROM"`
}

// LoadConfig parses configuration from environment variables.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to parse auth configuration")
	}
	return cfg, nil
}

// CodeTTL returns the expiry window configured for a purpose.
func (c *Config) CodeTTL(purpose Purpose) time.Duration {
	switch purpose {
	case PurposeReset:
		return c.ResetCodeTTL
	default:
		return c.SignupCodeTTL
	}
}
