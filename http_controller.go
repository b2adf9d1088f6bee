package auth

import (
	"fmt"
	"net/http"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
)

// RegistrationTokenCookie carries the registration scoped token minted for
// federated subjects with an incomplete profile.
const RegistrationTokenCookie = "registrationToken"

// RegisterAuthRoutes mounts the session lifecycle endpoints.
func RegisterAuthRoutes[T any](app router.Router[T], opts ...AuthControllerOption) {
	controller := NewAuthController(opts...)

	app.
		Post(controller.Routes.SignIn, controller.SignInPost).
		SetName("auth.sign-in")

	app.
		Post(controller.Routes.Reissue, controller.ReissuePost).
		SetName("auth.reissue")

	app.
		Delete(controller.Routes.SignOut, controller.SignOutDelete).
		SetName("auth.sign-out")

	app.
		Post(controller.Routes.SignUp, controller.SignUpPost).
		SetName("auth.sign-up")

	app.
		Post(controller.Routes.CompleteRegistration, controller.CompleteRegistrationPost).
		SetName("auth.register.complete")
}

type AuthControllerRoutes struct {
	SignIn               string
	SignOut              string
	Reissue              string
	SignUp               string
	CompleteRegistration string
}

type AuthController struct {
	Debug        bool
	Logger       Logger
	Repo         RepositoryManager
	Sessions     *SessionAuthenticator
	Tokens       TokenService
	Routes       *AuthControllerRoutes
	ErrorHandler router.ErrorHandler
}

type AuthControllerOption func(*AuthController) *AuthController

func NewAuthController(opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger: defLogger{},
		Routes: &AuthControllerRoutes{
			SignIn:               "/auth/sign-in",
			SignOut:              "/auth/sign-out",
			Reissue:              "/auth/reissue",
			SignUp:               "/auth/sign-up",
			CompleteRegistration: "/auth/register/complete",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Sessions == nil {
		panic("Missing SessionAuthenticator in auth controller...")
	}

	if c.Tokens == nil {
		panic("Missing TokenService in auth controller...")
	}

	if c.ErrorHandler == nil {
		c.ErrorHandler = c.renderError
	}

	return c
}

// WithSessions sets the session authenticator.
func WithSessions(sessions *SessionAuthenticator) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Sessions = sessions
		return c
	}
}

// WithTokens sets the token service.
func WithTokens(tokens TokenService) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Tokens = tokens
		return c
	}
}

// WithRepository sets the repository manager, enabling sign up and
// registration completion.
func WithRepository(repo RepositoryManager) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Repo = repo
		return c
	}
}

// WithControllerLogger sets the logger.
func WithControllerLogger(logger Logger) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

// WithDebug dumps request payloads to stdout.
func WithDebug(debug bool) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Debug = debug
		return c
	}
}

// SignInRequest payload
type SignInRequest struct {
	SerialID string `form:"serial_id" json:"serial_id"`
	Password string `form:"password" json:"password"`
}

// Validate will run validation rules
func (r SignInRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.SerialID,
			validation.Required,
		),
		validation.Field(
			&r.Password,
			validation.Required,
		),
	)
}

func (a *AuthController) SignInPost(ctx router.Context) error {
	payload := new(SignInRequest)

	if err := ctx.Bind(payload); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return ctx.JSON(router.StatusBadRequest, ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: err.Error(),
		})
	}

	if a.Debug {
		fmt.Println("======= AUTH SIGN IN ======")
		fmt.Println(print.MaybePrettyJSON(payload))
		fmt.Println("===========================")
	}

	identity, err := a.Sessions.SignIn(ctx, payload.SerialID, payload.Password)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, identityResponse(identity))
}

func (a *AuthController) ReissuePost(ctx router.Context) error {
	identity, err := a.Sessions.Reissue(ctx)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, identityResponse(identity))
}

func (a *AuthController) SignOutDelete(ctx router.Context) error {
	if err := a.Sessions.SignOut(ctx); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]string{
		"status": "signed_out",
	})
}

// SignUpRequest payload
type SignUpRequest struct {
	SerialID string `form:"serial_id" json:"serial_id"`
	Password string `form:"password" json:"password"`
	Nickname string `form:"nickname" json:"nickname"`
	Email    string `form:"email" json:"email"`
	Phone    string `form:"phone" json:"phone"`
}

// Validate will run validation rules
func (r SignUpRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.SerialID,
			validation.Required,
			validation.Length(4, 64),
		),
		validation.Field(
			&r.Password,
			validation.Required,
			validation.Length(8, 72),
		),
		validation.Field(
			&r.Email,
			is.Email,
		),
	)
}

func (a *AuthController) SignUpPost(ctx router.Context) error {
	if a.Repo == nil {
		return ctx.JSON(http.StatusNotFound, ErrorResponse{
			Code:    "NOT_FOUND",
			Message: "sign up is not enabled",
		})
	}

	payload := new(SignUpRequest)

	if err := ctx.Bind(payload); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return ctx.JSON(router.StatusBadRequest, ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: err.Error(),
		})
	}

	handler := NewRegisterUserHandler(a.Repo)
	err := handler.Execute(ctx.Context(), RegisterUserMessage{
		SerialID:  payload.SerialID,
		Password:  payload.Password,
		Nickname:  payload.Nickname,
		Email:     payload.Email,
		Phone:     payload.Phone,
		UseHashid: true,
	})
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(http.StatusCreated, map[string]string{
		"status": "registered",
	})
}

// CompleteRegistrationRequest payload
type CompleteRegistrationRequest struct {
	Nickname string `form:"nickname" json:"nickname"`
	Email    string `form:"email" json:"email"`
	Phone    string `form:"phone" json:"phone"`
}

// Validate will run validation rules
func (r CompleteRegistrationRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Nickname,
			validation.Required,
			validation.Length(2, 32),
		),
		validation.Field(
			&r.Email,
			validation.Required,
			is.Email,
		),
	)
}

// CompleteRegistrationPost finishes sign up for a federated subject. The
// caller proves ownership of the half-created account with the registration
// scoped token, never with a session token.
func (a *AuthController) CompleteRegistrationPost(ctx router.Context) error {
	if a.Repo == nil {
		return ctx.JSON(http.StatusNotFound, ErrorResponse{
			Code:    "NOT_FOUND",
			Message: "registration is not enabled",
		})
	}

	raw := a.registrationToken(ctx)
	if raw == "" {
		return a.ErrorHandler(ctx, ErrUnauthenticated)
	}

	claims, err := a.Tokens.Verify(raw, TokenTypeRegistration)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	payload := new(CompleteRegistrationRequest)
	if err := ctx.Bind(payload); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return ctx.JSON(router.StatusBadRequest, ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: err.Error(),
		})
	}

	userID, err := uuid.Parse(claims.UserID())
	if err != nil {
		return a.ErrorHandler(ctx, ErrTokenMalformed)
	}

	phone, err := normalizePhone(payload.Phone, "")
	if err != nil {
		return ctx.JSON(router.StatusBadRequest, ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "invalid phone number",
		})
	}

	user, err := a.Repo.Users().CompleteRegistration(
		ctx.Context(), userID, payload.Nickname, payload.Email, phone,
	)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	identity := identityFromUser(user, SourceOAuth2)
	if err := a.Sessions.SignInIdentity(ctx, identity); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	a.Sessions.cookieDel(ctx, RegistrationTokenCookie)

	return ctx.JSON(router.StatusOK, identityResponse(identity))
}

// registrationToken reads the registration token from the cookie set by the
// federation callback, falling back to a bearer header.
func (a *AuthController) registrationToken(ctx router.Context) string {
	if raw := ctx.Cookies(RegistrationTokenCookie); raw != "" {
		return raw
	}

	header := ctx.GetString(router.HeaderAuthorization, "")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}

	return ""
}

func (a *AuthController) renderError(ctx router.Context, err error) error {
	status, body := ResponseFromError(err)

	a.Logger.Info("Auth request failed on %s: %s %s", ctx.Path(), body.Code, body.Message)

	return ctx.JSON(status, body)
}

func identityResponse(identity Identity) map[string]any {
	return map[string]any{
		"id":       identity.ID(),
		"nickname": identity.Nickname(),
		"role":     identity.Role(),
	}
}
