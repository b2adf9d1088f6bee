package auth

import (
	"net/http"
	"strings"

	"github.com/goliatone/go-errors"
)

// Text codes surfaced to clients in structured error bodies.
const (
	TextCodeBadCredentials  = "BAD_CREDENTIALS"
	TextCodeInvalidToken    = "INVALID_TOKEN"
	TextCodeExpiredToken    = "EXPIRED_TOKEN"
	TextCodeWrongTokenType  = "WRONG_TOKEN_TYPE"
	TextCodeUnauthenticated = "UNAUTHENTICATED"
	TextCodeForbidden       = "FORBIDDEN"
	TextCodeAuthUnavailable = "AUTH_UNAVAILABLE"
	TextCodeOAuthProvider   = "OAUTH_PROVIDER_ERROR"
)

// ErrBadCredentials is returned for both unknown identifiers and password
// mismatches so callers cannot enumerate accounts.
var ErrBadCredentials = errors.New("invalid credentials", errors.CategoryAuth).
	WithTextCode(TextCodeBadCredentials).
	WithCode(errors.CodeUnauthorized)

// ErrTokenExpired is returned when a token is past its expiry.
var ErrTokenExpired = errors.New("token is expired", errors.CategoryAuth).
	WithTextCode(TextCodeExpiredToken).
	WithCode(errors.CodeUnauthorized)

// ErrTokenMalformed is returned when a token cannot be parsed.
var ErrTokenMalformed = errors.New("token is malformed", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidToken).
	WithCode(errors.CodeUnauthorized)

// ErrBadSignature is returned when signature verification fails. It shares the
// INVALID_TOKEN text code with ErrTokenMalformed so clients get no hint about
// which part of the token was rejected.
var ErrBadSignature = errors.New("token signature is invalid", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidToken).
	WithCode(errors.CodeUnauthorized)

// ErrWrongTokenType is returned when an access check receives a refresh token
// or vice versa.
var ErrWrongTokenType = errors.New("token type mismatch", errors.CategoryAuth).
	WithTextCode(TextCodeWrongTokenType).
	WithCode(errors.CodeUnauthorized)

// ErrUnauthenticated is returned when a protected route has no identity bound.
var ErrUnauthenticated = errors.New("authentication required", errors.CategoryAuth).
	WithTextCode(TextCodeUnauthenticated).
	WithCode(errors.CodeUnauthorized)

// ErrForbidden is returned when an identity is present but its role does not
// satisfy the route requirement.
var ErrForbidden = errors.New("insufficient role", errors.CategoryAuthz).
	WithTextCode(TextCodeForbidden).
	WithCode(errors.CodeForbidden)

// ErrAuthUnavailable is returned when a collaborator (user registry,
// revocation store) times out or is down. The only retryable class.
var ErrAuthUnavailable = errors.New("authentication backend unavailable", errors.CategoryOperation).
	WithTextCode(TextCodeAuthUnavailable)

// ErrIdentityNotFound is the error we return for non found identities
var ErrIdentityNotFound = errors.New("identity not found", errors.CategoryNotFound).
	WithTextCode(TextCodeBadCredentials).
	WithCode(errors.CodeUnauthorized)

// ErrNoSession is the "not logged in" result for reissue: absent, invalid, and
// revoked refresh credentials all collapse into it.
var ErrNoSession = errors.New("no active session", errors.CategoryAuth).
	WithTextCode(TextCodeUnauthenticated).
	WithCode(errors.CodeUnauthorized)

// ErrNoEmptyString guards hashing helpers against empty input.
var ErrNoEmptyString = errors.New("value must not be empty", errors.CategoryBadInput).
	WithCode(errors.CodeBadRequest)

// ErrMismatchedHashAndPassword is the internal bcrypt mismatch error. It is
// mapped to ErrBadCredentials before leaving the credential provider.
var ErrMismatchedHashAndPassword = errors.New("hash does not match password", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized)

// ErrorResponse is the machine parseable body emitted for every auth failure.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ResponseFromError normalizes any error into an ErrorResponse plus the HTTP
// status to send it with. Unrecognized errors are masked as a generic
// unauthenticated failure so framework internals never reach the client.
func ResponseFromError(err error) (int, ErrorResponse) {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		return http.StatusUnauthorized, ErrorResponse{
			Code:    TextCodeUnauthenticated,
			Message: "authentication failed",
		}
	}

	code := richErr.TextCode
	if code == "" {
		code = TextCodeUnauthenticated
	}

	return statusForTextCode(code, richErr.Code), ErrorResponse{
		Code:    code,
		Message: richErr.Message,
	}
}

func statusForTextCode(textCode string, fallback int) int {
	switch textCode {
	case TextCodeForbidden:
		return http.StatusForbidden
	case TextCodeAuthUnavailable:
		return http.StatusServiceUnavailable
	case TextCodeBadCredentials, TextCodeInvalidToken, TextCodeExpiredToken,
		TextCodeWrongTokenType, TextCodeUnauthenticated:
		return http.StatusUnauthorized
	}

	if fallback > 0 {
		return fallback
	}
	return http.StatusUnauthorized
}

// IsRetryable reports whether the caller may retry with backoff. Only
// AUTH_UNAVAILABLE qualifies; every other failure is terminal for the request.
func IsRetryable(err error) bool {
	var richErr *errors.Error
	if errors.As(err, &richErr) {
		return richErr.TextCode == TextCodeAuthUnavailable
	}
	return false
}

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTokenExpired) {
		return true
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTokenMalformed) {
		return true
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}
