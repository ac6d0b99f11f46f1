// Package routegate wires the access gate into the HTTP router. It extracts
// the session token from the request, asks the gate for a verdict on the
// request path, and applies it: pass the request through with claims
// attached, bounce it to another page, or deny it outright.
package routegate

import (
	"context"
	"errors"
	"strings"

	"github.com/goliatone/go-router"

	auth "github.com/foliohq/folio-auth"
)

var ErrTokenMissingOrMalformed = errors.New("missing or malformed session token")

// Gate is the decision engine the middleware consults. It mirrors
// auth.Gate.Decide.
type Gate interface {
	Decide(path, token string) auth.Decision
}

type Config struct {
	Filter       func(router.Context) bool
	ErrorHandler router.ErrorHandler
	Gate         Gate

	// ContextKey is the router locals key the claims are stored under.
	ContextKey string

	// TokenLookup is a comma separated list of sources to probe, e.g.
	// "header:Authorization,cookie:folio_session".
	TokenLookup string
	AuthScheme  string

	// ContextEnricher propagates claims to the standard Go context so code
	// below the router can read them without a router.Context.
	ContextEnricher func(c context.Context, claims *auth.Claims) context.Context
}

// New builds the middleware. The gate decides; the middleware only
// translates its verdict into router operations.
func New(config ...Config) router.MiddlewareFunc {
	cfg := getDefaultConfig(config...)
	extractors := getExtractors(cfg.TokenLookup, cfg.AuthScheme)

	return func(hf router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			if cfg.Filter != nil && cfg.Filter(ctx) {
				return ctx.Next()
			}

			// absent tokens are fine, the gate treats them as anonymous
			token, _ := extractRawToken(ctx, extractors)

			decision := cfg.Gate.Decide(requestPath(ctx), token)

			switch decision.Kind {
			case auth.DecisionRedirect:
				return ctx.Redirect(decision.Location, router.StatusSeeOther)

			case auth.DecisionDeny:
				return cfg.ErrorHandler(ctx, &DeniedError{
					Status:   decision.Status,
					TextCode: decision.TextCode,
				})

			default:
				if decision.Claims != nil {
					ctx.Locals(cfg.ContextKey, decision.Claims)

					if cfg.ContextEnricher != nil {
						ctx.SetContext(cfg.ContextEnricher(ctx.Context(), decision.Claims))
					}
				}
				return ctx.Next()
			}
		}
	}
}

// DeniedError carries the gate's deny verdict to the error handler.
type DeniedError struct {
	Status   int
	TextCode string
}

func (e *DeniedError) Error() string {
	if e.Status == router.StatusForbidden {
		return "access denied"
	}
	return "authentication required"
}

func getDefaultConfig(config ...Config) (cfg Config) {
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.Gate == nil {
		panic("AUTH: route gate middleware configuration: Gate is required.")
	}

	if cfg.ContextKey == "" {
		cfg.ContextKey = "session"
	}

	if cfg.TokenLookup == "" {
		cfg.TokenLookup = "header:" + router.HeaderAuthorization
	}

	if cfg.AuthScheme == "" {
		cfg.AuthScheme = "Bearer"
	}

	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = func(c router.Context, err error) error {
			var denied *DeniedError
			if errors.As(err, &denied) {
				return c.JSON(denied.Status, map[string]any{
					"success":    false,
					"error":      denied.Error(),
					"error_code": denied.TextCode,
				})
			}
			return c.Status(router.StatusUnauthorized).SendString("authentication required")
		}
	}

	return cfg
}

// requestPath strips the query string so rule matching only ever sees the
// path component.
func requestPath(ctx router.Context) string {
	p := ctx.OriginalURL()
	if i := strings.IndexByte(p, '?'); i >= 0 {
		p = p[:i]
	}
	if p == "" {
		p = "/"
	}
	return p
}

type tokenExtractor func(c router.Context) (string, error)

func extractRawToken(ctx router.Context, extractors []tokenExtractor) (string, error) {
	var raw string
	var err error

	for _, extractor := range extractors {
		raw, err = extractor(ctx)
		if raw != "" && err == nil {
			break
		}
	}

	return raw, err
}

// getExtractors parses a lookup spec like
// "header:Authorization,cookie:folio_session,query:token".
func getExtractors(tokenLookup string, authScheme string) []tokenExtractor {
	extractors := make([]tokenExtractor, 0)

	for _, rootPart := range strings.Split(tokenLookup, ",") {
		parts := strings.Split(strings.TrimSpace(rootPart), ":")
		if len(parts) != 2 {
			continue
		}

		for i, el := range parts {
			parts[i] = strings.TrimSpace(el)
		}

		switch parts[0] {
		case "header":
			extractors = append(extractors, tokenFromHeader(parts[1], authScheme))
		case "query":
			extractors = append(extractors, tokenFromQuery(parts[1]))
		case "cookie":
			extractors = append(extractors, tokenFromCookie(parts[1]))
		}
	}

	return extractors
}

func tokenFromHeader(header string, authScheme string) tokenExtractor {
	return func(c router.Context) (string, error) {
		a := c.GetString(header, "")
		l := len(authScheme)
		if l == 0 {
			return "", ErrTokenMissingOrMalformed
		}
		if len(a) > l+1 && strings.EqualFold(a[:l], authScheme) {
			return strings.TrimSpace(a[l:]), nil
		}
		return "", ErrTokenMissingOrMalformed
	}
}

func tokenFromQuery(param string) tokenExtractor {
	return func(c router.Context) (string, error) {
		token := c.Query(param, "")
		if token == "" {
			return "", ErrTokenMissingOrMalformed
		}
		return token, nil
	}
}

func tokenFromCookie(name string) tokenExtractor {
	return func(c router.Context) (string, error) {
		token := c.Cookies(name)
		if token == "" {
			return "", ErrTokenMissingOrMalformed
		}
		return token, nil
	}
}
