package auth

import (
	"context"

	"github.com/goliatone/go-board-auth/middleware/jwtware"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
)

// Pipeline assembles the request authentication chain: public route filter,
// token extraction with the Authorization header winning over the access
// cookie, access token verification, identity binding, and route
// authorization. Every failure funnels through one error handler so clients
// always see the same code and message shape.
type Pipeline struct {
	cfg       Config
	validator TokenValidator
	rules     *RouteAuthorizer
	revoked   RevocationStore
	logger    Logger
	onError   router.ErrorHandler
}

func NewPipeline(cfg Config, tokens TokenService) *Pipeline {
	p := &Pipeline{
		cfg:       cfg,
		validator: AccessTokenValidator(tokens),
		logger:    defLogger{},
	}

	p.onError = p.renderError

	return p
}

func (p *Pipeline) WithLogger(logger Logger) *Pipeline {
	if logger != nil {
		p.logger = logger
	}
	return p
}

// WithAuthorizer attaches the route rule table. Without one every route
// requires authentication and no route is public.
func (p *Pipeline) WithAuthorizer(rules *RouteAuthorizer) *Pipeline {
	p.rules = rules
	return p
}

// WithValidator overrides the default access token validator.
func (p *Pipeline) WithValidator(validator TokenValidator) *Pipeline {
	if validator != nil {
		p.validator = validator
	}
	return p
}

// WithRevocationStore enables a revocation check on presented access tokens.
// Normally only refresh tokens are revocable and this stays unset.
func (p *Pipeline) WithRevocationStore(store RevocationStore) *Pipeline {
	p.revoked = store
	return p
}

// WithErrorHandler replaces the terminal error renderer.
func (p *Pipeline) WithErrorHandler(handler router.ErrorHandler) *Pipeline {
	if handler != nil {
		p.onError = handler
	}
	return p
}

// Middleware builds the chain as a single router middleware.
func (p *Pipeline) Middleware() router.MiddlewareFunc {
	cfg := jwtware.Config{
		TokenValidator: jwtValidator{p.validator},
		SigningKey: jwtware.SigningKey{
			Key:    []byte(p.cfg.GetSigningKey()),
			JWTAlg: p.cfg.GetSigningMethod(),
		},
		ContextKey:   p.cfg.GetContextKey(),
		TokenLookup:  p.cfg.GetTokenLookup(),
		AuthScheme:   p.cfg.GetAuthScheme(),
		ErrorHandler: p.handleError,
		ContextEnricher: func(ctx context.Context, claims jwtware.AuthClaims) context.Context {
			authClaims, ok := claims.(AuthClaims)
			if !ok {
				return ctx
			}
			ctx = WithClaimsContext(ctx, authClaims)
			return WithIdentity(ctx, identityFromClaims(authClaims))
		},
	}

	if p.rules != nil {
		cfg.Filter = func(c router.Context) bool {
			return p.rules.IsPublic(c.Method(), c.Path())
		}
	}

	if p.revoked != nil {
		cfg.ValidationListeners = append(cfg.ValidationListeners, p.rejectRevoked)
	}

	cfg.SuccessHandler = func(c router.Context) error {
		if p.rules != nil {
			claims, _ := GetRouterClaims(c, p.cfg.GetContextKey())
			if err := p.rules.Authorize(c.Method(), c.Path(), claims); err != nil {
				return p.handleError(c, err)
			}
		}
		return c.Next()
	}

	return jwtware.New(cfg)
}

// handleError normalizes middleware failures into the taxonomy before
// rendering. This is the single point where transport errors become client
// visible codes.
func (p *Pipeline) handleError(c router.Context, err error) error {
	if err == jwtware.ErrJWTMissingOrMalformed {
		err = ErrUnauthenticated
	} else if !isRichError(err) {
		err = errors.Wrap(err, errors.CategoryAuth, "Invalid authentication token").
			WithTextCode(TextCodeInvalidToken).
			WithCode(errors.CodeUnauthorized)
	}

	return p.onError(c, err)
}

func (p *Pipeline) renderError(c router.Context, err error) error {
	status, body := ResponseFromError(err)

	p.logger.Info(
		"Request rejected on %s %s: %s %s",
		c.Method(), c.Path(), body.Code, body.Message,
	)

	return c.JSON(status, body)
}

func (p *Pipeline) rejectRevoked(c router.Context, claims jwtware.AuthClaims) error {
	revoked, err := p.revoked.IsRevoked(c.Context(), claims.TokenID())
	if err != nil {
		p.logger.Error("Revocation lookup failed for jti=%s: %s", claims.TokenID(), err)
		return ErrAuthUnavailable
	}
	if revoked {
		return ErrUnauthenticated
	}
	return nil
}

// jwtValidator bridges the package validator to the middleware contract.
type jwtValidator struct {
	validator TokenValidator
}

func (v jwtValidator) Validate(raw string) (jwtware.AuthClaims, error) {
	claims, err := v.validator.Validate(raw)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

func isRichError(err error) bool {
	var richErr *errors.Error
	return errors.As(err, &richErr)
}
