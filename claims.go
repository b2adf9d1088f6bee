package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenType is the private claim separating the token families. A refresh
// token must never be accepted where an access token is expected and vice
// versa; the codec enforces this on every verification.
type TokenType string

const (
	// TokenTypeAccess is the short-lived credential presented on every request
	TokenTypeAccess TokenType = "access"
	// TokenTypeRefresh is the long-lived credential used solely to mint new
	// access tokens
	TokenTypeRefresh TokenType = "refresh"
	// TokenTypeRegistration is a narrow token handed to OAuth2 users that
	// still have to complete their local profile
	TokenTypeRegistration TokenType = "register"
)

// AuthClaims represents verified token claims
type AuthClaims interface {
	Subject() string
	UserID() string
	Role() UserRole
	TokenUse() TokenType
	TokenID() string
	HasRole(role UserRole) bool
	IsAtLeast(minRole UserRole) bool
	Expires() time.Time
	IssuedAt() time.Time
}

// JWTClaims is the concrete implementation of AuthClaims
type JWTClaims struct {
	jwt.RegisteredClaims
	UID      string    `json:"uid,omitempty"`
	UserRole UserRole  `json:"role,omitempty"`
	Use      TokenType `json:"typ,omitempty"`
	Nick     string    `json:"nickname,omitempty"`
}

// Verify interface compliance
var _ AuthClaims = (*JWTClaims)(nil)

// Subject returns the subject claim
func (c *JWTClaims) Subject() string {
	return c.RegisteredClaims.Subject
}

// UserID returns the user ID
func (c *JWTClaims) UserID() string {
	if c.UID != "" {
		return c.UID
	}
	return c.Subject()
}

// Role returns the global role
func (c *JWTClaims) Role() UserRole {
	return c.UserRole
}

// TokenUse returns the token family this token belongs to
func (c *JWTClaims) TokenUse() TokenType {
	return c.Use
}

// TokenID returns the jti claim, used as the revocation key
func (c *JWTClaims) TokenID() string {
	return c.RegisteredClaims.ID
}

// Nickname returns the display name embedded for client convenience
func (c *JWTClaims) Nickname() string {
	return c.Nick
}

// HasRole checks if the user has a specific role
func (c *JWTClaims) HasRole(role UserRole) bool {
	return c.UserRole == role
}

// IsAtLeast checks if the user's role is at least the minimum required role
func (c *JWTClaims) IsAtLeast(minRole UserRole) bool {
	return RoleIsAtLeast(c.UserRole, minRole)
}

// Expires returns the expiration time
func (c *JWTClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// IssuedAt returns the issued at time
func (c *JWTClaims) IssuedAt() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}

func ensureTokenID(claims *jwt.RegisteredClaims) {
	if claims.ID == "" {
		claims.ID = uuid.NewString()
	}
}
