package social

import (
	"context"
	"net/http"
	"net/url"
	"testing"
	"time"

	auth "github.com/goliatone/go-board-auth"
	"github.com/goliatone/go-router"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestHTTPControllerBeginAuthRedirects(t *testing.T) {
	stateManager := &stubStateManager{}
	provider := kakaoStubProvider()

	federation := NewFederation(&stubRegistry{}, nil, FederationConfig{},
		WithProvider(provider),
		WithStateManager(stateManager),
	)

	controller := NewHTTPController(federation, nil, HTTPConfig{
		SuccessRedirect: "/fallback",
	})

	ctx := router.NewMockContext()
	ctx.ParamsM["provider"] = "kakao"
	ctx.QueriesM["redirect_url"] = "/after"
	ctx.On("Context").Return(context.Background())

	var redirectURL string
	ctx.On("Redirect", mock.Anything, []int{http.StatusTemporaryRedirect}).Run(func(args mock.Arguments) {
		redirectURL = args.String(0)
	}).Return(nil)

	err := controller.BeginAuth(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, redirectURL)
	require.Equal(t, stateManager.lastToken, provider.lastState)
	require.Equal(t, "/after", stateManager.lastState.RedirectURL)
	require.Equal(t, "kakao", stateManager.lastState.Provider)
}

func TestHTTPControllerBeginAuthUnknownProvider(t *testing.T) {
	federation := NewFederation(&stubRegistry{}, nil, FederationConfig{},
		WithStateManager(&stubStateManager{}),
	)

	controller := NewHTTPController(federation, nil, HTTPConfig{
		ErrorRedirect: "/login?error=auth_failed",
	})

	ctx := router.NewMockContext()
	ctx.ParamsM["provider"] = "naver"
	ctx.On("Context").Return(context.Background())

	var redirectURL string
	ctx.On("Redirect", mock.Anything, []int{http.StatusTemporaryRedirect}).Run(func(args mock.Arguments) {
		redirectURL = args.String(0)
	}).Return(nil)

	err := controller.BeginAuth(ctx)
	require.NoError(t, err)

	parsed, err := url.Parse(redirectURL)
	require.NoError(t, err)
	require.Equal(t, "/login", parsed.Path)
	require.Equal(t, auth.TextCodeOAuthProvider, parsed.Query().Get("code"))
}

func TestHTTPControllerCallbackSignsInAndRedirects(t *testing.T) {
	stateManager := &stubStateManager{}
	provider := kakaoStubProvider()
	registry := &stubRegistry{user: registeredOAuthUser()}
	tokens := auth.NewTokenService(fedConfig{}, nil)

	federation := NewFederation(registry, tokens, FederationConfig{},
		WithProvider(provider),
		WithStateManager(stateManager),
	)
	sessions := auth.NewSessionAuthenticator(tokens, nil, fedConfig{})

	controller := NewHTTPController(federation, sessions, HTTPConfig{
		SuccessRedirect: "/fallback",
	})

	stateToken, err := stateManager.Encode(&OAuthState{
		Provider:    "kakao",
		RedirectURL: "/questions?sort=recent",
		IssuedAt:    time.Now().Unix(),
		ExpiresAt:   time.Now().Add(time.Hour).Unix(),
	})
	require.NoError(t, err)

	ctx := router.NewMockContext()
	ctx.ParamsM["provider"] = "kakao"
	ctx.QueriesM["code"] = "auth-code"
	ctx.QueriesM["state"] = stateToken
	ctx.On("Context").Return(context.Background())

	cookies := map[string]*router.Cookie{}
	ctx.On("Cookie", mock.Anything).Run(func(args mock.Arguments) {
		c := args.Get(0).(*router.Cookie)
		cookies[c.Name] = c
	}).Return()

	var redirectURL string
	ctx.On("Redirect", mock.Anything, []int{http.StatusTemporaryRedirect}).Run(func(args mock.Arguments) {
		redirectURL = args.String(0)
	}).Return(nil)

	err = controller.Callback(ctx)
	require.NoError(t, err)

	parsed, err := url.Parse(redirectURL)
	require.NoError(t, err)
	require.Equal(t, "/questions", parsed.Path)
	require.Equal(t, "recent", parsed.Query().Get("sort"))

	require.Contains(t, cookies, auth.CookieAccessToken)
	require.Contains(t, cookies, auth.CookieRefreshToken)
	require.Contains(t, cookies, auth.CookieNickname)
	require.True(t, cookies[auth.CookieAccessToken].HTTPOnly)

	_, err = tokens.Verify(cookies[auth.CookieAccessToken].Value, auth.TokenTypeAccess)
	require.NoError(t, err)
}

func TestHTTPControllerCallbackNeedsRegistration(t *testing.T) {
	stateManager := &stubStateManager{}
	provider := kakaoStubProvider()
	provider.profile.Email = ""

	user := registeredOAuthUser()
	user.Email = ""
	user.Registered = false
	registry := &stubRegistry{user: user}
	tokens := auth.NewTokenService(fedConfig{}, nil)

	federation := NewFederation(registry, tokens, FederationConfig{},
		WithProvider(provider),
		WithStateManager(stateManager),
	)

	controller := NewHTTPController(federation, nil, HTTPConfig{
		RegisterRedirect: "/sign-up/complete",
	})

	stateToken, err := stateManager.Encode(&OAuthState{
		Provider:  "kakao",
		IssuedAt:  time.Now().Unix(),
		ExpiresAt: time.Now().Add(time.Hour).Unix(),
	})
	require.NoError(t, err)

	ctx := router.NewMockContext()
	ctx.ParamsM["provider"] = "kakao"
	ctx.QueriesM["code"] = "auth-code"
	ctx.QueriesM["state"] = stateToken
	ctx.On("Context").Return(context.Background())

	var regCookie *router.Cookie
	ctx.On("Cookie", mock.MatchedBy(func(c *router.Cookie) bool {
		return c.Name == "registrationToken"
	})).Run(func(args mock.Arguments) {
		regCookie = args.Get(0).(*router.Cookie)
	}).Return()

	var redirectURL string
	ctx.On("Redirect", mock.Anything, []int{http.StatusTemporaryRedirect}).Run(func(args mock.Arguments) {
		redirectURL = args.String(0)
	}).Return(nil)

	err = controller.Callback(ctx)
	require.NoError(t, err)
	require.Equal(t, "/sign-up/complete", redirectURL)

	require.NotNil(t, regCookie)
	require.True(t, regCookie.HTTPOnly)

	_, err = tokens.Verify(regCookie.Value, auth.TokenTypeRegistration)
	require.NoError(t, err)
}

func TestHTTPControllerCallbackProviderDenied(t *testing.T) {
	federation := NewFederation(&stubRegistry{}, nil, FederationConfig{},
		WithProvider(kakaoStubProvider()),
		WithStateManager(&stubStateManager{}),
	)

	controller := NewHTTPController(federation, nil, HTTPConfig{})

	t.Run("error query param", func(t *testing.T) {
		ctx := router.NewMockContext()
		ctx.ParamsM["provider"] = "kakao"
		ctx.QueriesM["error"] = "access_denied"

		var redirectURL string
		ctx.On("Redirect", mock.Anything, []int{http.StatusTemporaryRedirect}).Run(func(args mock.Arguments) {
			redirectURL = args.String(0)
		}).Return(nil)

		err := controller.Callback(ctx)
		require.NoError(t, err)

		parsed, err := url.Parse(redirectURL)
		require.NoError(t, err)
		require.Equal(t, auth.TextCodeOAuthProvider, parsed.Query().Get("code"))
	})

	t.Run("missing code or state", func(t *testing.T) {
		ctx := router.NewMockContext()
		ctx.ParamsM["provider"] = "kakao"

		var redirectURL string
		ctx.On("Redirect", mock.Anything, []int{http.StatusTemporaryRedirect}).Run(func(args mock.Arguments) {
			redirectURL = args.String(0)
		}).Return(nil)

		err := controller.Callback(ctx)
		require.NoError(t, err)

		parsed, err := url.Parse(redirectURL)
		require.NoError(t, err)
		require.Equal(t, auth.TextCodeOAuthProvider, parsed.Query().Get("code"))
	})
}

func TestHTTPControllerListProviders(t *testing.T) {
	federation := NewFederation(&stubRegistry{}, nil, FederationConfig{},
		WithProvider(kakaoStubProvider()),
		WithStateManager(&stubStateManager{}),
	)

	controller := NewHTTPController(federation, nil, HTTPConfig{})

	ctx := router.NewMockContext()

	var payload map[string]any
	ctx.On("JSON", router.StatusOK, mock.Anything).Run(func(args mock.Arguments) {
		payload = args.Get(1).(map[string]any)
	}).Return(nil)

	err := controller.ListProviders(ctx)
	require.NoError(t, err)

	providers := payload["providers"].([]ProviderInfo)
	require.Len(t, providers, 1)
	require.Equal(t, "kakao", providers[0].Name)
}
