package auth

import (
	"context"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

// Cookie names the browser client reads. Access and refresh tokens stay
// HTTPOnly, nickname and role are script readable so the front end can
// render without an extra profile call.
const (
	CookieAccessToken  = "accessToken"
	CookieRefreshToken = "refreshToken"
	CookieNickname     = "nickname"
	CookieRole         = "role"
)

// SessionAuthenticator drives the browser facing session lifecycle: sign in,
// sign out, and refresh token reissue, all expressed as cookies.
type SessionAuthenticator struct {
	tokens           TokenService
	basic            CredentialProvider
	users            Users
	revoked          RevocationStore
	cfg              Config
	cookieSecure     bool
	Logger           Logger
	AuthErrorHandler func(c router.Context, err error) error
	ErrorHandler     func(c router.Context, err error) error
}

func NewSessionAuthenticator(tokens TokenService, basic CredentialProvider, cfg Config) *SessionAuthenticator {
	a := &SessionAuthenticator{
		tokens:       tokens,
		basic:        basic,
		revoked:      NewMemoryRevocationStore(),
		cfg:          cfg,
		cookieSecure: true,
		Logger:       defLogger{},
	}

	a.ErrorHandler = a.defaultErrHandler
	a.AuthErrorHandler = a.defaultAuthErrHandler

	return a
}

func (a *SessionAuthenticator) WithLogger(logger Logger) *SessionAuthenticator {
	if logger != nil {
		a.Logger = logger
	}
	return a
}

func (a *SessionAuthenticator) WithRevocationStore(store RevocationStore) *SessionAuthenticator {
	if store != nil {
		a.revoked = store
	}
	return a
}

// WithUsers enables last login tracking on sign in.
func (a *SessionAuthenticator) WithUsers(users Users) *SessionAuthenticator {
	a.users = users
	return a
}

// WithInsecureCookies drops the Secure cookie attribute for local plain HTTP
// development.
func (a *SessionAuthenticator) WithInsecureCookies() *SessionAuthenticator {
	a.cookieSecure = false
	return a
}

// SignIn authenticates the serial id and password pair and, on success,
// binds a fresh token pair to the response cookies.
func (a *SessionAuthenticator) SignIn(ctx router.Context, serialID, password string) (Identity, error) {
	identity, err := a.basic.Authenticate(ctx.Context(), BasicCredential{
		SerialID: serialID,
		Password: password,
	})
	if err != nil {
		a.Logger.Error("Sign in error: %s", err)
		return nil, err
	}

	if err := a.issueSessionCookies(ctx, identity); err != nil {
		return nil, err
	}

	a.trackLogin(ctx.Context(), identity)

	return identity, nil
}

// SignInIdentity starts a session for an already authenticated identity,
// used after a successful federated callback.
func (a *SessionAuthenticator) SignInIdentity(ctx router.Context, identity Identity) error {
	if err := a.issueSessionCookies(ctx, identity); err != nil {
		return err
	}

	a.trackLogin(ctx.Context(), identity)

	return nil
}

// SignOut revokes the presented refresh token and clears every session
// cookie. A request with no cookies, or with an unreadable refresh token,
// still succeeds: signing out twice is not an error.
func (a *SessionAuthenticator) SignOut(ctx router.Context) error {
	raw := ctx.Cookies(CookieRefreshToken)
	if raw != "" {
		claims, err := a.tokens.Verify(raw, TokenTypeRefresh)
		if err != nil {
			a.Logger.Debug("Sign out with unreadable refresh token: %s", err)
		} else if err := a.revoked.Revoke(ctx.Context(), claims.TokenID(), claims.Expires()); err != nil {
			a.Logger.Error("Failed to revoke refresh token %s: %s", claims.TokenID(), err)
			return ErrAuthUnavailable
		}
	}

	a.clearSessionCookies(ctx)

	return nil
}

// Reissue exchanges a valid refresh cookie for a new token pair. The
// presented refresh token is retired in the same step so it cannot be
// replayed.
func (a *SessionAuthenticator) Reissue(ctx router.Context) (Identity, error) {
	raw := ctx.Cookies(CookieRefreshToken)
	if raw == "" {
		return nil, ErrNoSession
	}

	claims, err := a.tokens.Verify(raw, TokenTypeRefresh)
	if err != nil {
		a.Logger.Info("Reissue rejected: %s", err)
		return nil, err
	}

	revoked, err := a.revoked.IsRevoked(ctx.Context(), claims.TokenID())
	if err != nil {
		a.Logger.Error("Revocation lookup failed for jti=%s: %s", claims.TokenID(), err)
		return nil, ErrAuthUnavailable
	}
	if revoked {
		a.Logger.Warn("Reissue with revoked refresh token jti=%s sub=%s", claims.TokenID(), claims.Subject())
		return nil, ErrNoSession
	}

	identity, err := a.identityForReissue(ctx.Context(), claims)
	if err != nil {
		return nil, err
	}

	// retire before minting, a failure here must not leave both tokens live
	if err := a.revoked.Revoke(ctx.Context(), claims.TokenID(), claims.Expires()); err != nil {
		a.Logger.Error("Failed to retire refresh token %s: %s", claims.TokenID(), err)
		return nil, ErrAuthUnavailable
	}

	if err := a.issueSessionCookies(ctx, identity); err != nil {
		return nil, err
	}

	return identity, nil
}

// identityForReissue rebuilds the identity that the fresh pair will carry.
// When a user registry is wired, roles are re-read from the record so a
// demotion takes effect on the next refresh rather than at token expiry.
func (a *SessionAuthenticator) identityForReissue(ctx context.Context, claims AuthClaims) (Identity, error) {
	identity := identityFromClaims(claims)

	if a.users == nil {
		return identity, nil
	}

	user, err := a.users.GetByID(ctx, claims.UserID())
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, ErrNoSession
		}
		a.Logger.Error("Failed to load user %s for reissue: %s", claims.UserID(), err)
		return nil, ErrAuthUnavailable
	}

	return identityFromUser(user, SourceToken), nil
}

func (a *SessionAuthenticator) issueSessionCookies(ctx router.Context, identity Identity) error {
	pair, err := a.tokens.IssuePair(identity)
	if err != nil {
		a.Logger.Error("Failed to issue token pair: %s", err)
		return err
	}

	a.setCookie(ctx, CookieAccessToken, pair.AccessToken, a.cfg.GetAccessTokenDuration(), true)
	a.setCookie(ctx, CookieRefreshToken, pair.RefreshToken, a.cfg.GetRefreshTokenDuration(), true)
	a.setCookie(ctx, CookieNickname, identity.Nickname(), a.cfg.GetRefreshTokenDuration(), false)
	a.setCookie(ctx, CookieRole, string(identity.Role()), a.cfg.GetRefreshTokenDuration(), false)

	return nil
}

func (a *SessionAuthenticator) clearSessionCookies(ctx router.Context) {
	a.cookieDel(ctx, CookieAccessToken)
	a.cookieDel(ctx, CookieRefreshToken)
	a.cookieDel(ctx, CookieNickname)
	a.cookieDel(ctx, CookieRole)
}

func (a *SessionAuthenticator) trackLogin(ctx context.Context, identity Identity) {
	if a.users == nil {
		return
	}

	user, err := a.users.GetByID(ctx, identity.ID())
	if err != nil {
		a.Logger.Debug("Login tracking skipped for %s: %s", identity.ID(), err)
		return
	}

	if err := a.users.TrackSuccessfulLogin(ctx, user); err != nil {
		a.Logger.Warn("Failed to track login for %s: %s", identity.ID(), err)
	}
}

func (a *SessionAuthenticator) setCookie(c router.Context, name, val string, duration time.Duration, httpOnly bool) {
	c.Cookie(&router.Cookie{
		Name:     name,
		Value:    val,
		Expires:  time.Now().Add(duration),
		HTTPOnly: httpOnly,
		Secure:   a.cookieSecure,
		SameSite: "Lax",
	})
}

func (a *SessionAuthenticator) cookieDel(c router.Context, name string) {
	c.Cookie(&router.Cookie{
		Name:     name,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		Secure:   a.cookieSecure,
		SameSite: "Lax",
	})
}

func (a *SessionAuthenticator) defaultAuthErrHandler(c router.Context, err error) error {
	status, body := ResponseFromError(err)

	a.Logger.Info(
		"Authentication error on %s: %s %s",
		c.OriginalURL(), body.Code, body.Message,
	)

	return c.JSON(status, body)
}

func (a *SessionAuthenticator) defaultErrHandler(c router.Context, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryInternal, "An unexpected server error occurred").
			WithCode(errors.CodeInternal)
	}

	a.Logger.Info(
		"Middleware error handler: %s category=%s details=%s",
		richErr.Message,
		richErr.Category,
		print.MaybePrettyJSON(richErr.Metadata),
	)

	switch richErr.Category {
	case errors.CategoryAuth, errors.CategoryAuthz:
		return a.AuthErrorHandler(c, richErr)
	default:
		status := richErr.Code
		if status == 0 {
			status = errors.CodeInternal
		}
		return c.JSON(status, ErrorResponse{
			Code:    string(richErr.TextCode),
			Message: richErr.Message,
		})
	}
}
