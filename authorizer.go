package auth

import (
	"strings"
)

// Access is the level of protection a route rule grants.
type Access int

const (
	// AccessPublic routes skip authentication entirely.
	AccessPublic Access = iota
	// AccessAuthenticated routes need a valid access token, any role.
	AccessAuthenticated
	// AccessRole routes need a valid access token carrying at least MinRole.
	AccessRole
)

// RouteRule binds a method and path pattern to an access level. Patterns use
// `*` for one path segment and a trailing `**` for the rest of the path, so
// "/api/v1/admins/**" covers the whole admin surface.
type RouteRule struct {
	// Method is an HTTP verb, or "*" for any.
	Method  string
	Pattern string
	Access  Access
	MinRole UserRole
}

// PublicRoute marks a method and pattern as reachable without a token.
func PublicRoute(method, pattern string) RouteRule {
	return RouteRule{Method: method, Pattern: pattern, Access: AccessPublic}
}

// AuthRoute requires any authenticated caller.
func AuthRoute(method, pattern string) RouteRule {
	return RouteRule{Method: method, Pattern: pattern, Access: AccessAuthenticated}
}

// RoleRoute requires an authenticated caller holding at least min.
func RoleRoute(method, pattern string, min UserRole) RouteRule {
	return RouteRule{Method: method, Pattern: pattern, Access: AccessRole, MinRole: min}
}

// AdminRoute requires the ADMIN role.
func AdminRoute(method, pattern string) RouteRule {
	return RoleRoute(method, pattern, RoleAdmin)
}

// RouteAuthorizer evaluates an ordered rule table. The first rule whose
// method and pattern match decides the route, so narrower rules belong above
// broader ones. Routes matching no rule fall back to requiring
// authentication.
type RouteAuthorizer struct {
	rules  []RouteRule
	logger Logger
}

func NewRouteAuthorizer(rules ...RouteRule) *RouteAuthorizer {
	return &RouteAuthorizer{
		rules:  rules,
		logger: defLogger{},
	}
}

func (a *RouteAuthorizer) WithLogger(logger Logger) *RouteAuthorizer {
	if logger != nil {
		a.logger = logger
	}
	return a
}

// Append adds rules below the existing table.
func (a *RouteAuthorizer) Append(rules ...RouteRule) *RouteAuthorizer {
	a.rules = append(a.rules, rules...)
	return a
}

// Match returns the first rule covering the method and path.
func (a *RouteAuthorizer) Match(method, path string) (RouteRule, bool) {
	for _, rule := range a.rules {
		if rule.Method != "*" && !strings.EqualFold(rule.Method, method) {
			continue
		}
		if matchPattern(rule.Pattern, path) {
			return rule, true
		}
	}
	return RouteRule{}, false
}

// IsPublic reports whether the route needs no token at all.
func (a *RouteAuthorizer) IsPublic(method, path string) bool {
	rule, ok := a.Match(method, path)
	return ok && rule.Access == AccessPublic
}

// Authorize decides the route for the given claims. A nil claims value means
// the caller presented no usable token. Missing authentication surfaces as
// UNAUTHENTICATED, an authenticated caller short on role surfaces as
// FORBIDDEN.
func (a *RouteAuthorizer) Authorize(method, path string, claims AuthClaims) error {
	rule, ok := a.Match(method, path)
	if !ok {
		rule = RouteRule{Access: AccessAuthenticated}
	}

	if rule.Access == AccessPublic {
		return nil
	}

	if claims == nil {
		return ErrUnauthenticated
	}

	if rule.Access == AccessRole && !claims.IsAtLeast(rule.MinRole) {
		a.logger.Info(
			"Access denied for sub=%s role=%s on %s %s, requires %s",
			claims.Subject(), claims.Role(), method, path, rule.MinRole,
		)
		return ErrForbidden
	}

	return nil
}

// matchPattern matches a path against a rule pattern. `*` consumes exactly
// one segment, a trailing `**` consumes zero or more.
func matchPattern(pattern, path string) bool {
	if pattern == path || pattern == "/**" || pattern == "**" {
		return true
	}

	pSegs := splitPath(pattern)
	tSegs := splitPath(path)

	for i, seg := range pSegs {
		if seg == "**" {
			// only meaningful as the final segment
			return i == len(pSegs)-1
		}
		if i >= len(tSegs) {
			return false
		}
		if seg != "*" && seg != tSegs[i] {
			return false
		}
	}

	return len(pSegs) == len(tSegs)
}

func splitPath(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}
