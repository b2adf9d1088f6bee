package auth

import (
	"context"
	"fmt"
	"time"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// AuthSource identifies which credential path produced an Identity.
type AuthSource string

const (
	// SourceBasic is username/password form authentication
	SourceBasic AuthSource = "BASIC"
	// SourceOAuth2 is social-login federation
	SourceOAuth2 AuthSource = "OAUTH2"
	// SourceToken is bearer-token authentication
	SourceToken AuthSource = "TOKEN"
)

// Identity holds the attributes of the authenticated principal for one
// request. Built once by a credential provider, immutable, discarded when the
// request ends.
type Identity interface {
	ID() string
	SerialID() string
	Nickname() string
	Role() UserRole
	Source() AuthSource
}

// CredentialProvider turns one kind of credential material into an Identity.
// Implementations return typed errors from the taxonomy in errors.go and
// never panic across this boundary.
type CredentialProvider interface {
	Authenticate(ctx context.Context, credential Credential) (Identity, error)
}

// UserRegistry is the opaque, possibly slow user store the core calls into.
// Lookups should be given bounded timeouts by the caller.
type UserRegistry interface {
	FindBySerialID(ctx context.Context, serialID string) (*User, error)
	FindOrCreateByOAuthProfile(ctx context.Context, profile OAuthProfile) (*User, error)
	RolesFor(ctx context.Context, userID string) (UserRole, error)
}

// OAuthProfile is the transient data handed over by an external identity
// provider. The core never persists it; the registry upserts a local user
// from it.
type OAuthProfile struct {
	Provider       string
	ProviderUserID string
	Email          string
	Nickname       string
}

// Complete reports whether the profile carries every field a local account
// needs. Incomplete profiles go through registration completion instead of
// receiving session tokens.
func (p OAuthProfile) Complete() bool {
	return p.ProviderUserID != "" && p.Email != "" && p.Nickname != ""
}

// Config holds auth options
type Config interface {
	GetSigningKey() string
	GetSigningMethod() string
	GetContextKey() string
	GetAccessTokenDuration() time.Duration
	GetRefreshTokenDuration() time.Duration
	GetRegistrationTokenDuration() time.Duration
	GetClockSkewLeeway() time.Duration
	GetTokenLookup() string
	GetAuthScheme() string
	GetIssuer() string
	GetAudience() []string
}

// PasswordAuthenticator authenticates passwords
type PasswordAuthenticator interface {
	HashPassword(password string) (string, error)
	ComparePasswordAndHash(password, hash string) error
}

// DefaultLogger returns the built in printf logger. Collaborating packages
// use it as their fallback.
func DefaultLogger() Logger {
	return defLogger{}
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] AUTH "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] AUTH "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] AUTH "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] AUTH "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
