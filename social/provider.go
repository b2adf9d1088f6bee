package social

import (
	"context"
	"time"
)

// SocialProvider is one external OAuth2 identity provider. Implementations
// live under social/providers and speak the provider's own wire dialect;
// everything above this interface is provider agnostic.
type SocialProvider interface {
	// Name returns the provider identifier, e.g. "kakao" or "google".
	Name() string

	// AuthCodeURL builds the authorization redirect URL. The state parameter
	// must round trip unchanged through the provider.
	AuthCodeURL(state string, opts ...AuthCodeOption) string

	// Exchange trades an authorization code for a token.
	Exchange(ctx context.Context, code string, opts ...ExchangeOption) (*Token, error)

	// UserInfo fetches the subject's profile with the access token.
	UserInfo(ctx context.Context, token *Token) (*SocialProfile, error)

	// ValidateToken reports whether the token is still usable.
	ValidateToken(ctx context.Context, token *Token) error

	// RefreshToken exchanges a refresh token for a fresh access token, when
	// the provider supports it.
	RefreshToken(ctx context.Context, refreshToken string) (*Token, error)
}

// AuthCodeConfig is the normalized result of applying AuthCodeOption values.
// Providers read it instead of walking the option funcs themselves.
type AuthCodeConfig struct {
	Scopes              []string
	CodeChallenge       string
	CodeChallengeMethod string
	Prompt              string
}

// AuthCodeOption configures the authorization URL.
type AuthCodeOption func(*AuthCodeConfig)

// WithScopes adds scopes on top of the provider defaults.
func WithScopes(scopes ...string) AuthCodeOption {
	return func(c *AuthCodeConfig) {
		c.Scopes = append(c.Scopes, scopes...)
	}
}

// WithPKCE enables PKCE with the given code challenge.
func WithPKCE(codeChallenge, method string) AuthCodeOption {
	return func(c *AuthCodeConfig) {
		c.CodeChallenge = codeChallenge
		c.CodeChallengeMethod = method
	}
}

// WithPrompt sets the prompt parameter, e.g. "consent" or "select_account".
func WithPrompt(prompt string) AuthCodeOption {
	return func(c *AuthCodeConfig) {
		c.Prompt = prompt
	}
}

// ApplyAuthCodeOptions folds option funcs over the provider's default scopes.
func ApplyAuthCodeOptions(scopes []string, opts ...AuthCodeOption) AuthCodeConfig {
	cfg := AuthCodeConfig{Scopes: append([]string(nil), scopes...)}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// ExchangeConfig is the normalized result of applying ExchangeOption values.
type ExchangeConfig struct {
	CodeVerifier string
}

// ExchangeOption configures the token exchange.
type ExchangeOption func(*ExchangeConfig)

// WithCodeVerifier sets the PKCE code verifier for the exchange.
func WithCodeVerifier(verifier string) ExchangeOption {
	return func(c *ExchangeConfig) {
		c.CodeVerifier = verifier
	}
}

// ApplyExchangeOptions folds option funcs into one config value.
func ApplyExchangeOptions(opts ...ExchangeOption) ExchangeConfig {
	var cfg ExchangeConfig
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// Token is a provider token response in normalized form.
type Token struct {
	AccessToken  string
	TokenType    string
	RefreshToken string
	ExpiresAt    time.Time
	Scopes       []string
	Raw          map[string]any
}

// SocialProfile is the provider's view of the subject, normalized to the
// fields a local account can be built from.
type SocialProfile struct {
	ProviderUserID string
	Provider       string
	Email          string
	EmailVerified  bool
	Nickname       string
	AvatarURL      string
	Raw            map[string]any
}
