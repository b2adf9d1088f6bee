package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
)

// TokenService issues and verifies the signed session credentials. Validity
// is purely a function of signature, expiry, and token type; nothing is
// stored server side.
type TokenService interface {
	Issue(identity Identity, use TokenType) (string, *JWTClaims, error)
	IssuePair(identity Identity) (*TokenPair, error)
	Verify(raw string, expected TokenType) (AuthClaims, error)
	SignClaims(claims *JWTClaims) (string, error)
}

// TokenPair is the access/refresh couple minted at sign-in, reissue, and
// social-login success.
type TokenPair struct {
	AccessToken   string
	RefreshToken  string
	AccessClaims  *JWTClaims
	RefreshClaims *JWTClaims
}

// TokenServiceImpl implements the TokenService interface
type TokenServiceImpl struct {
	signingKey      []byte
	accessDuration  time.Duration
	refreshDuration time.Duration
	issuer          string
	audience        jwt.ClaimStrings
	leeway          time.Duration
	logger          Logger
}

// NewTokenService creates a new TokenService instance
func NewTokenService(cfg Config, logger Logger) *TokenServiceImpl {
	if logger == nil {
		logger = defLogger{}
	}

	return &TokenServiceImpl{
		signingKey:      []byte(cfg.GetSigningKey()),
		accessDuration:  cfg.GetAccessTokenDuration(),
		refreshDuration: cfg.GetRefreshTokenDuration(),
		issuer:          cfg.GetIssuer(),
		audience:        cfg.GetAudience(),
		leeway:          cfg.GetClockSkewLeeway(),
		logger:          logger,
	}
}

// Issue creates a signed token of the given type for an identity.
func (ts *TokenServiceImpl) Issue(identity Identity, use TokenType) (string, *JWTClaims, error) {
	if identity == nil {
		return "", nil, errors.New("identity must not be nil", errors.CategoryInternal)
	}

	claims := ts.newClaims(identity, use, ts.durationFor(use))

	signed, err := ts.SignClaims(claims)
	if err != nil {
		return "", nil, err
	}

	return signed, claims, nil
}

// IssuePair mints a fresh access/refresh token pair.
func (ts *TokenServiceImpl) IssuePair(identity Identity) (*TokenPair, error) {
	access, accessClaims, err := ts.Issue(identity, TokenTypeAccess)
	if err != nil {
		return nil, err
	}

	refresh, refreshClaims, err := ts.Issue(identity, TokenTypeRefresh)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:   access,
		RefreshToken:  refresh,
		AccessClaims:  accessClaims,
		RefreshClaims: refreshClaims,
	}, nil
}

// SignClaims signs arbitrary JWT claims using the configured signing key.
func (ts *TokenServiceImpl) SignClaims(claims *JWTClaims) (string, error) {
	if claims == nil {
		return "", errors.New("claims must not be nil", errors.CategoryInternal)
	}

	ensureTokenID(&claims.RegisteredClaims)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signedString, err := token.SignedString(ts.signingKey)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to sign JWT")
	}

	return signedString, nil
}

// Verify parses and validates a token string, returning structured claims.
// Failures map onto the taxonomy: ErrTokenExpired past expiry (with the
// configured clock-skew leeway), ErrBadSignature on signature mismatch,
// ErrTokenMalformed for anything unparsable, and ErrWrongTokenType when the
// typ claim does not match the expected token family.
func (ts *TokenServiceImpl) Verify(raw string, expected TokenType) (AuthClaims, error) {
	parserOptions := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	}
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}
	if len(ts.audience) > 0 {
		parserOptions = append(parserOptions, jwt.WithAudience(ts.audience...))
	}
	if ts.leeway > 0 {
		parserOptions = append(parserOptions, jwt.WithLeeway(ts.leeway))
	}

	token, err := jwt.ParseWithClaims(raw, &JWTClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			ts.logger.Error("verify: unexpected signing method: %v", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ts.signingKey, nil
	}, parserOptions...)

	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, ErrBadSignature
		default:
			return nil, errors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).
				WithTextCode(ErrTokenMalformed.TextCode)
		}
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid {
		ts.logger.Error("TokenService verify could not decode or validate claims")
		return nil, ErrTokenMalformed
	}

	if claims.Use != expected {
		ts.logger.Warn("verify: token type mismatch, expected %s got %s", expected, claims.Use)
		return nil, ErrWrongTokenType
	}

	return claims, nil
}

func (ts *TokenServiceImpl) durationFor(use TokenType) time.Duration {
	switch use {
	case TokenTypeRefresh:
		return ts.refreshDuration
	default:
		return ts.accessDuration
	}
}

func (ts *TokenServiceImpl) newClaims(identity Identity, use TokenType, ttl time.Duration) *JWTClaims {
	now := time.Now()

	var aud jwt.ClaimStrings
	if len(ts.audience) > 0 {
		aud = make(jwt.ClaimStrings, len(ts.audience))
		copy(aud, ts.audience)
	}

	claims := &JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ts.issuer,
			Subject:   identity.ID(),
			Audience:  aud,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		UID:      identity.ID(),
		UserRole: identity.Role(),
		Use:      use,
		Nick:     identity.Nickname(),
	}

	ensureTokenID(&claims.RegisteredClaims)

	return claims
}

func (ts *TokenServiceImpl) tokenDefaults() tokenDefaults {
	var aud jwt.ClaimStrings
	if len(ts.audience) > 0 {
		aud = make(jwt.ClaimStrings, len(ts.audience))
		copy(aud, ts.audience)
	}

	return tokenDefaults{
		issuer:   ts.issuer,
		audience: aud,
		ttl:      ts.accessDuration,
	}
}
