package auth

import (
	"net/http"
	"sort"
	"strings"
)

// RouteClass is the sensitivity classification of a path prefix.
type RouteClass int

const (
	// RoutePublic requires nothing
	RoutePublic RouteClass = iota
	// RouteAuthFamily is the signup/login/verify/reset surface: open to
	// anonymous callers, bounced back home for authenticated ones
	RouteAuthFamily
	// RouteAuthenticated requires any valid session
	RouteAuthenticated
	// RouteRole requires a session with at least the rule's role
	RouteRole
)

// RouteRule maps a path prefix to a requirement.
type RouteRule struct {
	Prefix string
	Class  RouteClass
	Role   Role
}

// DecisionKind classifies a gate decision.
type DecisionKind int

const (
	DecisionAllow DecisionKind = iota
	DecisionRedirect
	DecisionDeny
)

// Decision is the gate's verdict for one request. Allow may carry normalized
// claims for the downstream handler; Redirect carries a location; Deny
// carries a status and machine code.
type Decision struct {
	Kind     DecisionKind
	Claims   *Claims
	Location string
	Status   int
	TextCode string
}

// Gate classifies request paths against a static prefix table and enforces
// role-based access using the token verifier. It runs on every inbound
// request: its cost is one signature verification plus one table lookup,
// never store I/O.
type Gate struct {
	rules            []RouteRule
	validator        TokenValidator
	signInPath       string
	unauthorizedPath string
	homes            map[Role]string
	logger           Logger
}

// GateOption customizes gate construction.
type GateOption func(*Gate)

// WithGateLogger overrides the gate logger.
func WithGateLogger(logger Logger) GateOption {
	return func(g *Gate) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithRoleHome overrides the home surface a role is bounced to when it hits
// the auth family while already holding a valid session.
func WithRoleHome(role Role, path string) GateOption {
	return func(g *Gate) {
		g.homes[role] = path
	}
}

// NewGate builds a gate over the given rule table. Rules match by longest
// prefix; paths matching no rule require authentication, so forgetting a
// rule fails closed.
func NewGate(validator TokenValidator, cfg *Config, rules []RouteRule, opts ...GateOption) *Gate {
	sorted := make([]RouteRule, len(rules))
	copy(sorted, rules)
	sort.SliceStable(sorted, func(i, j int) bool {
		return len(sorted[i].Prefix) > len(sorted[j].Prefix)
	})

	g := &Gate{
		rules:            sorted,
		validator:        validator,
		signInPath:       cfg.SignInPath,
		unauthorizedPath: cfg.UnauthorizedPath,
		logger:           defLogger{},
		homes: map[Role]string{
			RoleUser:       "/documents",
			RoleResearcher: "/research",
			RoleAdmin:      "/admin",
		},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}

	return g
}

// DefaultRules is the platform's route table.
func DefaultRules() []RouteRule {
	return []RouteRule{
		{Prefix: "/", Class: RoutePublic},
		{Prefix: "/static/", Class: RoutePublic},
		{Prefix: "/health", Class: RoutePublic},
		{Prefix: "/login", Class: RouteAuthFamily},
		{Prefix: "/signup", Class: RouteAuthFamily},
		{Prefix: "/verify", Class: RouteAuthFamily},
		{Prefix: "/password-reset", Class: RouteAuthFamily},
		{Prefix: "/documents", Class: RouteAuthenticated},
		{Prefix: "/research", Class: RouteRole, Role: RoleResearcher},
		{Prefix: "/admin", Class: RouteRole, Role: RoleAdmin},
		{Prefix: "/api/v1/documents", Class: RouteAuthenticated},
		{Prefix: "/api/v1/research", Class: RouteRole, Role: RoleResearcher},
		{Prefix: "/api/v1/admin", Class: RouteRole, Role: RoleAdmin},
	}
}

// Decide classifies the path and enforces the requirement against the
// caller's token. Pure computation.
func (g *Gate) Decide(path, token string) Decision {
	rule := g.match(path)

	var claims *Claims
	if token != "" {
		validated, err := g.validator.Validate(token)
		if err != nil {
			g.logger.Debug("gate rejected token: path=%s error=%v", path, err)
		} else {
			claims = validated
		}
	}

	switch rule.Class {
	case RoutePublic:
		return Decision{Kind: DecisionAllow, Claims: claims}

	case RouteAuthFamily:
		if claims != nil {
			// an authenticated caller has no business re-authenticating;
			// bounce to their home surface instead of looping them through
			return Decision{Kind: DecisionRedirect, Location: g.home(claims.Role())}
		}
		return Decision{Kind: DecisionAllow}
	}

	if claims == nil {
		if isAPIPath(path) {
			return Decision{
				Kind:     DecisionDeny,
				Status:   http.StatusUnauthorized,
				TextCode: TextCodeUnauthenticated,
			}
		}
		return Decision{Kind: DecisionRedirect, Location: g.signInPath}
	}

	if rule.Class == RouteRole && !claims.IsAtLeast(rule.Role) {
		if isAPIPath(path) {
			return Decision{
				Kind:     DecisionDeny,
				Status:   http.StatusForbidden,
				TextCode: TextCodeForbidden,
			}
		}
		return Decision{Kind: DecisionRedirect, Location: g.unauthorizedPath}
	}

	return Decision{Kind: DecisionAllow, Claims: claims}
}

func (g *Gate) match(path string) RouteRule {
	for _, rule := range g.rules {
		if matchPrefix(path, rule.Prefix) {
			return rule
		}
	}

	// no rule: fail closed
	return RouteRule{Prefix: path, Class: RouteAuthenticated}
}

func (g *Gate) home(role Role) string {
	if home, ok := g.homes[role]; ok {
		return home
	}
	return "/"
}

// matchPrefix treats "/admin" as covering "/admin" and "/admin/...", but not
// "/administrata".
func matchPrefix(path, prefix string) bool {
	if prefix == "/" {
		return path == "/"
	}

	if strings.HasSuffix(prefix, "/") {
		return strings.HasPrefix(path, prefix)
	}

	if !strings.HasPrefix(path, prefix) {
		return false
	}

	return len(path) == len(prefix) || path[len(prefix)] == '/'
}

func isAPIPath(path string) bool {
	return strings.HasPrefix(path, "/api/")
}
