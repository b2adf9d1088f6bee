package social

import (
	"net/http"
	"net/url"
	"strings"

	auth "github.com/goliatone/go-board-auth"
	"github.com/goliatone/go-router"
)

// RouteRegistrar captures the router methods used by the controller.
type RouteRegistrar interface {
	Get(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
	Post(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
	Delete(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
}

// HTTPController handles social auth HTTP routes.
type HTTPController struct {
	federation *Federation
	sessions   *auth.SessionAuthenticator
	config     HTTPConfig
	logger     auth.Logger
}

// HTTPConfig configures the HTTP controller.
type HTTPConfig struct {
	// PathPrefix for routes (default: "/auth/social")
	PathPrefix string

	// SuccessRedirect is the default redirect after successful auth
	SuccessRedirect string

	// RegisterRedirect is the page that finishes sign up for incomplete
	// profiles (default: "/register")
	RegisterRedirect string

	// ErrorRedirect is the redirect for auth errors
	ErrorRedirect string

	// RegistrationCookieName carries the registration scoped token to the
	// sign up form (default: "registrationToken")
	RegistrationCookieName string

	// CookieSecure sets the Secure flag on the registration cookie
	CookieSecure bool

	// ErrorHandler handles errors (optional)
	ErrorHandler func(ctx router.Context, err error) error
}

// NewHTTPController creates a new social auth HTTP controller.
func NewHTTPController(federation *Federation, sessions *auth.SessionAuthenticator, cfg HTTPConfig) *HTTPController {
	if cfg.PathPrefix == "" {
		cfg.PathPrefix = "/auth/social"
	}
	if cfg.SuccessRedirect == "" {
		cfg.SuccessRedirect = "/"
	}
	if cfg.RegisterRedirect == "" {
		cfg.RegisterRedirect = "/register"
	}
	if cfg.ErrorRedirect == "" {
		cfg.ErrorRedirect = "/login?error=auth_failed"
	}
	if cfg.RegistrationCookieName == "" {
		cfg.RegistrationCookieName = "registrationToken"
	}

	return &HTTPController{
		federation: federation,
		sessions:   sessions,
		config:     cfg,
		logger:     auth.DefaultLogger(),
	}
}

func (c *HTTPController) WithLogger(logger auth.Logger) *HTTPController {
	if logger != nil {
		c.logger = logger
	}
	return c
}

// RegisterRoutes registers social auth routes.
func (c *HTTPController) RegisterRoutes(group RouteRegistrar) {
	group.Get("/providers", c.ListProviders)
	group.Get("/:provider/callback", c.Callback)
	group.Get("/:provider", c.BeginAuth)
}

// ListProviders returns available social providers.
func (c *HTTPController) ListProviders(ctx router.Context) error {
	providers := c.federation.ListProviders()
	return ctx.JSON(router.StatusOK, map[string]any{
		"providers": providers,
	})
}

// BeginAuth starts the OAuth flow.
func (c *HTTPController) BeginAuth(ctx router.Context) error {
	providerName := ctx.Param("provider")

	redirectURL := ctx.Query("redirect_url", "")
	if redirectURL == "" {
		redirectURL = c.config.SuccessRedirect
	}

	redirect, err := c.federation.BeginAuth(ctx.Context(), providerName, WithRedirectURL(redirectURL))
	if err != nil {
		return c.handleError(ctx, err)
	}

	return ctx.Redirect(redirect.URL, http.StatusTemporaryRedirect)
}

// Callback handles the OAuth callback.
func (c *HTTPController) Callback(ctx router.Context) error {
	providerName := ctx.Param("provider")
	code := ctx.Query("code", "")
	state := ctx.Query("state", "")

	if errCode := ctx.Query("error", ""); errCode != "" {
		c.logger.Info("Provider %s returned error on callback: %s", providerName, errCode)
		return c.redirectOpaqueError(ctx)
	}

	if code == "" || state == "" {
		c.logger.Info("Callback for %s missing code or state", providerName)
		return c.redirectOpaqueError(ctx)
	}

	result, err := c.federation.CompleteAuth(ctx.Context(), providerName, code, state)
	if err != nil {
		return c.handleError(ctx, err)
	}

	if result.NeedsRegistration {
		ctx.Cookie(&router.Cookie{
			Name:     c.config.RegistrationCookieName,
			Value:    result.RegistrationToken,
			Expires:  result.RegistrationExpires,
			HTTPOnly: true,
			Secure:   c.config.CookieSecure,
			SameSite: "Lax",
		})
		return ctx.Redirect(c.config.RegisterRedirect, http.StatusTemporaryRedirect)
	}

	if err := c.sessions.SignInIdentity(ctx, result.Identity); err != nil {
		return c.handleError(ctx, err)
	}

	redirectURL := result.RedirectURL
	if redirectURL == "" {
		redirectURL = c.config.SuccessRedirect
	}

	return ctx.Redirect(redirectURL, http.StatusTemporaryRedirect)
}

// handleError logs the detailed failure and sends the browser an opaque
// redirect. Provider specifics never reach the client.
func (c *HTTPController) handleError(ctx router.Context, err error) error {
	if c.config.ErrorHandler != nil {
		return c.config.ErrorHandler(ctx, err)
	}

	c.logger.Error("Social auth failed: %s", err)

	return c.redirectOpaqueError(ctx)
}

func (c *HTTPController) redirectOpaqueError(ctx router.Context) error {
	redirectURL := appendQueryParam(c.config.ErrorRedirect, "code", auth.TextCodeOAuthProvider)
	return ctx.Redirect(redirectURL, http.StatusTemporaryRedirect)
}

func appendQueryParam(rawURL, key, value string) string {
	if rawURL == "" {
		return ""
	}

	parsed, err := url.Parse(rawURL)
	if err == nil {
		query := parsed.Query()
		query.Set(key, value)
		parsed.RawQuery = query.Encode()
		return parsed.String()
	}

	sep := "?"
	if strings.Contains(rawURL, "?") {
		sep = "&"
	}
	return rawURL + sep + url.QueryEscape(key) + "=" + url.QueryEscape(value)
}
