package auth

import (
	"context"

	"github.com/goliatone/go-router"
)

var identityCtxKey = &contextKey{"identity"}
var claimsCtxKey = &contextKey{"claims"}

type contextKey struct {
	name string
}

// WithIdentity sets the authenticated Identity in the given context
func WithIdentity(r context.Context, identity Identity) context.Context {
	return context.WithValue(r, identityCtxKey, identity)
}

// IdentityFromContext finds the authenticated identity from the context.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	raw, ok := ctx.Value(identityCtxKey).(Identity)
	return raw, ok
}

// WithClaimsContext sets the AuthClaims in the given context
func WithClaimsContext(r context.Context, claims AuthClaims) context.Context {
	return context.WithValue(r, claimsCtxKey, claims)
}

// GetClaims extracts the AuthClaims from the standard context
func GetClaims(ctx context.Context) (AuthClaims, bool) {
	raw, ok := ctx.Value(claimsCtxKey).(AuthClaims)
	return raw, ok
}

// GetRouterClaims extracts the AuthClaims from the router context
func GetRouterClaims(ctx router.Context, key string) (AuthClaims, bool) {
	if key == "" {
		key = "user" // Default key used by JWT middleware
	}
	raw := ctx.Locals(key)
	if raw == nil {
		return nil, false
	}
	claims, ok := raw.(AuthClaims)
	return claims, ok
}

// SubjectID returns the user id of the authenticated caller, preferring the
// full identity over bare claims when both are present.
func SubjectID(ctx context.Context) (string, bool) {
	if identity, ok := IdentityFromContext(ctx); ok {
		return identity.ID(), true
	}

	if claims, ok := GetClaims(ctx); ok {
		return claims.UserID(), true
	}

	return "", false
}

// MustSubjectID returns the authenticated user id or panics. Handlers behind
// the authentication middleware use it to surface wiring mistakes loudly
// instead of executing with an empty subject.
func MustSubjectID(ctx context.Context) string {
	id, ok := SubjectID(ctx)
	if !ok || id == "" {
		panic("auth: no authenticated subject in context, route is missing authentication middleware")
	}
	return id
}

// SubjectRole returns the caller's role, defaulting to the empty string when
// no authenticated subject is bound to the context.
func SubjectRole(ctx context.Context) (UserRole, bool) {
	if identity, ok := IdentityFromContext(ctx); ok {
		return identity.Role(), true
	}

	if claims, ok := GetClaims(ctx); ok {
		return claims.Role(), true
	}

	return "", false
}

// HasRoleAtLeast checks the caller's role against a minimum from the
// standard context.
func HasRoleAtLeast(ctx context.Context, min UserRole) bool {
	role, ok := SubjectRole(ctx)
	if !ok {
		return false
	}
	return RoleIsAtLeast(role, min)
}
