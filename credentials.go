package auth

import (
	"context"
	"time"

	"github.com/goliatone/go-errors"
)

// Credential is a tagged variant: exactly one concrete type per source of
// credential material found on a request.
type Credential interface {
	Source() AuthSource
}

// BasicCredential is the (serialId, password) pair posted to the sign-in
// endpoint.
type BasicCredential struct {
	SerialID string
	Password string
}

// Source implements Credential.
func (BasicCredential) Source() AuthSource { return SourceBasic }

// TokenCredential is a raw bearer token taken from the Authorization header
// or the access-token cookie.
type TokenCredential struct {
	Raw string
}

// Source implements Credential.
func (TokenCredential) Source() AuthSource { return SourceToken }

// DefaultRegistryTimeout bounds every user-registry call made while
// authenticating. A timeout surfaces as ErrAuthUnavailable, never as
// ErrBadCredentials.
var DefaultRegistryTimeout = 3 * time.Second

// BasicProvider verifies serialId/password pairs against the user registry.
type BasicProvider struct {
	registry UserRegistry
	timeout  time.Duration
	logger   Logger
}

// NewBasicProvider returns a provider for form credentials.
func NewBasicProvider(registry UserRegistry) *BasicProvider {
	return &BasicProvider{
		registry: registry,
		timeout:  DefaultRegistryTimeout,
		logger:   defLogger{},
	}
}

func (p *BasicProvider) WithLogger(logger Logger) *BasicProvider {
	p.logger = logger
	return p
}

func (p *BasicProvider) WithTimeout(timeout time.Duration) *BasicProvider {
	if timeout > 0 {
		p.timeout = timeout
	}
	return p
}

// Authenticate verifies the pair and returns the Identity. Unknown serial id
// and wrong password produce the identical ErrBadCredentials; a registry
// timeout produces ErrAuthUnavailable.
func (p *BasicProvider) Authenticate(ctx context.Context, credential Credential) (Identity, error) {
	basic, ok := credential.(BasicCredential)
	if !ok {
		return nil, errors.New("basic provider requires form credentials", errors.CategoryInternal)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	user, err := p.registry.FindBySerialID(ctx, basic.SerialID)
	if err != nil {
		if isUnavailable(ctx, err) {
			p.logger.Warn("user registry unavailable during basic auth: %v", err)
			return nil, ErrAuthUnavailable
		}
		if errors.IsNotFound(err) {
			// burn a comparison so unknown ids cost as much as bad passwords
			_ = ComparePasswordAndHash(basic.Password, RandomPasswordHash())
			return nil, ErrBadCredentials
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to retrieve user during verification")
	}

	if user == nil {
		_ = ComparePasswordAndHash(basic.Password, RandomPasswordHash())
		return nil, ErrBadCredentials
	}

	if err := ComparePasswordAndHash(basic.Password, user.PasswordHash); err != nil {
		return nil, ErrBadCredentials
	}

	return identityFromUser(user, SourceBasic), nil
}

// TokenProvider verifies bearer tokens through the token codec.
type TokenProvider struct {
	validator TokenValidator
	logger    Logger
}

// NewTokenProvider returns a provider for bearer credentials. The validator
// is expected to be pinned to the access token family.
func NewTokenProvider(validator TokenValidator) *TokenProvider {
	return &TokenProvider{
		validator: validator,
		logger:    defLogger{},
	}
}

func (p *TokenProvider) WithLogger(logger Logger) *TokenProvider {
	p.logger = logger
	return p
}

// Authenticate maps verified claims onto an Identity. Codec failures pass
// through typed: expired, invalid, and wrong-type keep their own codes.
func (p *TokenProvider) Authenticate(ctx context.Context, credential Credential) (Identity, error) {
	token, ok := credential.(TokenCredential)
	if !ok {
		return nil, errors.New("token provider requires a bearer token", errors.CategoryInternal)
	}

	claims, err := p.validator.Validate(token.Raw)
	if err != nil {
		return nil, err
	}

	return identityFromClaims(claims), nil
}

// SelectProvider picks the credential provider matching the material present
// on the request. Bearer material always selects the token provider.
func SelectProvider(credential Credential, basic *BasicProvider, token *TokenProvider) (CredentialProvider, error) {
	switch credential.(type) {
	case TokenCredential:
		return token, nil
	case BasicCredential:
		return basic, nil
	default:
		return nil, errors.New("no provider for credential", errors.CategoryInternal)
	}
}

func isUnavailable(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	return errors.Is(err, ErrAuthUnavailable)
}

type authIdentity struct {
	id       string
	serialID string
	nickname string
	role     UserRole
	source   AuthSource
}

func (a authIdentity) ID() string         { return a.id }
func (a authIdentity) SerialID() string   { return a.serialID }
func (a authIdentity) Nickname() string   { return a.nickname }
func (a authIdentity) Role() UserRole     { return a.role }
func (a authIdentity) Source() AuthSource { return a.source }

var _ Identity = authIdentity{}

func identityFromUser(user *User, source AuthSource) Identity {
	role := user.Role
	if role == "" {
		role = RoleUser
	}

	return authIdentity{
		id:       user.ID.String(),
		serialID: user.SerialID,
		nickname: user.Nickname,
		role:     role,
		source:   source,
	}
}

func identityFromClaims(claims AuthClaims) Identity {
	id := authIdentity{
		id:     claims.UserID(),
		role:   claims.Role(),
		source: SourceToken,
	}

	if jc, ok := claims.(*JWTClaims); ok {
		id.nickname = jc.Nickname()
	}

	if id.role == "" {
		id.role = RoleUser
	}

	return id
}

// NewIdentity builds an Identity directly; the social federation layer uses
// it after the registry upsert.
func NewIdentity(id, serialID, nickname string, role UserRole, source AuthSource) Identity {
	if role == "" {
		role = RoleUser
	}
	return authIdentity{
		id:       id,
		serialID: serialID,
		nickname: nickname,
		role:     role,
		source:   source,
	}
}

// IdentityFromUser exposes the registry-to-identity mapping for collaborating
// packages.
func IdentityFromUser(user *User, source AuthSource) Identity {
	if user == nil {
		return nil
	}
	return identityFromUser(user, source)
}
