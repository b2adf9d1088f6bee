package social

import (
	"context"
	"errors"
	"fmt"
	"time"

	auth "github.com/goliatone/go-board-auth"
)

// Federation orchestrates OAuth2 sign in against external providers and
// lands the external subject on a local account.
type Federation struct {
	providers    map[string]SocialProvider
	stateManager StateManager
	registry     auth.UserRegistry
	tokens       auth.TokenService
	config       FederationConfig
	logger       auth.Logger
}

// FederationConfig configures the federation orchestrator.
type FederationConfig struct {
	DefaultRedirectURL   string
	StateEncryptionKey   []byte
	StateHMACKey         []byte
	StateTTL             time.Duration
	RegistrationTokenTTL time.Duration
}

// FederationOption configures the federation orchestrator.
type FederationOption func(*Federation)

// NewFederation creates a federation orchestrator over the given registry
// and token service.
func NewFederation(
	registry auth.UserRegistry,
	tokens auth.TokenService,
	config FederationConfig,
	opts ...FederationOption,
) *Federation {
	cfg := config
	if cfg.StateTTL == 0 {
		cfg.StateTTL = 10 * time.Minute
	}
	if cfg.RegistrationTokenTTL == 0 {
		cfg.RegistrationTokenTTL = 30 * time.Minute
	}

	f := &Federation{
		providers: make(map[string]SocialProvider),
		registry:  registry,
		tokens:    tokens,
		config:    cfg,
		logger:    auth.DefaultLogger(),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}

	if f.stateManager == nil {
		f.stateManager = NewEncryptedStateManager(
			cfg.StateEncryptionKey,
			cfg.StateHMACKey,
			cfg.StateTTL,
		)
	}

	return f
}

// WithProvider registers a social provider.
func WithProvider(provider SocialProvider) FederationOption {
	return func(f *Federation) {
		if provider == nil {
			return
		}
		f.providers[provider.Name()] = provider
	}
}

// WithStateManager sets a custom state manager.
func WithStateManager(sm StateManager) FederationOption {
	return func(f *Federation) {
		f.stateManager = sm
	}
}

// WithLogger sets the logger.
func WithLogger(logger auth.Logger) FederationOption {
	return func(f *Federation) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// BeginAuth starts the OAuth flow for a provider.
func (f *Federation) BeginAuth(
	ctx context.Context,
	providerName string,
	opts ...BeginAuthOption,
) (*AuthRedirect, error) {
	provider, ok := f.providers[providerName]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProviderNotFound, providerName)
	}

	if f.stateManager == nil {
		return nil, ErrInvalidState
	}

	cfg := &beginAuthConfig{
		redirectURL: f.config.DefaultRedirectURL,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}

	codeVerifier, err := generateCodeVerifier()
	if err != nil {
		return nil, fmt.Errorf("failed to generate code verifier: %w", err)
	}
	codeChallenge := computeCodeChallenge(codeVerifier)

	state := &OAuthState{
		Nonce:        generateNonce(),
		Provider:     providerName,
		CodeVerifier: codeVerifier,
		RedirectURL:  cfg.redirectURL,
		IssuedAt:     time.Now().Unix(),
		ExpiresAt:    time.Now().Add(f.config.StateTTL).Unix(),
	}

	stateToken, err := f.stateManager.Encode(state)
	if err != nil {
		return nil, fmt.Errorf("failed to encode state: %w", err)
	}

	authURL := provider.AuthCodeURL(stateToken, WithPKCE(codeChallenge, "S256"))

	return &AuthRedirect{
		URL:      authURL,
		State:    stateToken,
		Provider: providerName,
	}, nil
}

// CompleteAuth finishes the OAuth flow after callback. Subjects whose local
// profile is still missing required fields receive a registration scoped
// token instead of a session pair; everything else is a full sign in.
func (f *Federation) CompleteAuth(
	ctx context.Context,
	providerName string,
	code string,
	stateToken string,
) (*FederationResult, error) {
	if f.stateManager == nil {
		return nil, ErrInvalidState
	}

	state, err := f.stateManager.Decode(stateToken)
	if err != nil {
		if errors.Is(err, ErrStateExpired) {
			return nil, ErrStateExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidState, err)
	}

	if state.Provider != providerName {
		return nil, fmt.Errorf("%w: provider mismatch", ErrInvalidState)
	}

	if time.Now().Unix() > state.ExpiresAt {
		return nil, ErrStateExpired
	}

	provider, ok := f.providers[providerName]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProviderNotFound, providerName)
	}

	token, err := provider.Exchange(ctx, code, WithCodeVerifier(state.CodeVerifier))
	if err != nil {
		return nil, wrapProviderError(ErrTokenExchangeFailed, providerName, "exchange", err)
	}

	profile, err := provider.UserInfo(ctx, token)
	if err != nil {
		return nil, wrapProviderError(ErrUserInfoFailed, providerName, "user_info", err)
	}

	user, err := f.registry.FindOrCreateByOAuthProfile(ctx, auth.OAuthProfile{
		Provider:       providerName,
		ProviderUserID: profile.ProviderUserID,
		Email:          profile.Email,
		Nickname:       profile.Nickname,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to resolve local account: %w", err)
	}

	identity := auth.IdentityFromUser(user, auth.SourceOAuth2)
	if identity == nil {
		return nil, auth.ErrIdentityNotFound
	}

	result := &FederationResult{
		Identity:    identity,
		Provider:    providerName,
		Profile:     profile,
		RedirectURL: state.RedirectURL,
	}

	if !user.ProfileComplete() {
		regToken, expires, err := auth.MintRegistrationToken(f.tokens, identity, auth.ScopedTokenOptions{
			TTL: f.config.RegistrationTokenTTL,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to mint registration token: %w", err)
		}

		result.NeedsRegistration = true
		result.RegistrationToken = regToken
		result.RegistrationExpires = expires

		f.logger.Info("Federated subject %s/%s needs registration", providerName, profile.ProviderUserID)

		return result, nil
	}

	pair, err := f.tokens.IssuePair(identity)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token pair: %w", err)
	}

	result.Pair = pair

	return result, nil
}

// ListProviders returns all registered providers.
func (f *Federation) ListProviders() []ProviderInfo {
	var providers []ProviderInfo
	for name, p := range f.providers {
		providers = append(providers, ProviderInfo{
			Name:    name,
			AuthURL: p.AuthCodeURL(""),
		})
	}
	return providers
}

// ProviderInfo describes an available provider.
type ProviderInfo struct {
	Name    string
	AuthURL string
}

// AuthRedirect contains the authorization URL for redirecting users.
type AuthRedirect struct {
	URL      string
	State    string
	Provider string
}

// FederationResult is the outcome of a completed callback.
type FederationResult struct {
	Identity auth.Identity
	Provider string
	Profile  *SocialProfile

	// Pair is set when the local profile is complete and a full session
	// starts.
	Pair *auth.TokenPair

	// NeedsRegistration flags subjects that still have to finish sign up.
	// RegistrationToken is scoped to that single flow.
	NeedsRegistration   bool
	RegistrationToken   string
	RegistrationExpires time.Time

	RedirectURL string
}

// BeginAuthOption configures the auth initiation.
type BeginAuthOption func(*beginAuthConfig)

type beginAuthConfig struct {
	redirectURL string
}

// WithRedirectURL sets the post-auth redirect URL.
func WithRedirectURL(url string) BeginAuthOption {
	return func(c *beginAuthConfig) {
		c.redirectURL = url
	}
}
