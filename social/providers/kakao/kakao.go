package kakao

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goliatone/go-board-auth/social"
)

const (
	defaultAuthURL     = "https://kauth.kakao.com/oauth/authorize"
	defaultTokenURL    = "https://kauth.kakao.com/oauth/token"
	defaultUserInfoURL = "https://kapi.kakao.com/v2/user/me"
)

// Config holds Kakao OAuth configuration.
type Config struct {
	ClientID     string
	ClientSecret string
	CallbackURL  string
	Scopes       []string

	AuthURL     string
	TokenURL    string
	UserInfoURL string

	HTTPClient *http.Client
}

// DefaultScopes returns the default Kakao scopes.
func DefaultScopes() []string {
	return []string{"profile_nickname", "account_email"}
}

// Provider implements social.SocialProvider for Kakao.
type Provider struct {
	config     Config
	httpClient *http.Client
}

// New creates a new Kakao provider.
func New(cfg Config) *Provider {
	if len(cfg.Scopes) == 0 {
		cfg.Scopes = DefaultScopes()
	}
	if cfg.AuthURL == "" {
		cfg.AuthURL = defaultAuthURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = defaultTokenURL
	}
	if cfg.UserInfoURL == "" {
		cfg.UserInfoURL = defaultUserInfoURL
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	return &Provider{
		config:     cfg,
		httpClient: client,
	}
}

// Name implements social.SocialProvider.
func (p *Provider) Name() string {
	return "kakao"
}

// AuthCodeURL implements social.SocialProvider.
func (p *Provider) AuthCodeURL(state string, opts ...social.AuthCodeOption) string {
	cfg := social.ApplyAuthCodeOptions(p.config.Scopes, opts...)
	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = DefaultScopes()
	}

	params := url.Values{
		"client_id":     {p.config.ClientID},
		"redirect_uri":  {p.config.CallbackURL},
		"response_type": {"code"},
		"scope":         {strings.Join(scopes, " ")},
		"state":         {state},
	}

	if cfg.CodeChallenge != "" {
		method := cfg.CodeChallengeMethod
		if method == "" {
			method = "S256"
		}
		params.Set("code_challenge", cfg.CodeChallenge)
		params.Set("code_challenge_method", method)
	}

	if cfg.Prompt != "" {
		params.Set("prompt", cfg.Prompt)
	}

	return p.config.AuthURL + "?" + params.Encode()
}

// Exchange implements social.SocialProvider.
func (p *Provider) Exchange(ctx context.Context, code string, opts ...social.ExchangeOption) (*social.Token, error) {
	cfg := social.ApplyExchangeOptions(opts...)

	data := url.Values{
		"client_id":    {p.config.ClientID},
		"code":         {code},
		"redirect_uri": {p.config.CallbackURL},
		"grant_type":   {"authorization_code"},
	}

	// Kakao treats the client secret as optional hardening
	if p.config.ClientSecret != "" {
		data.Set("client_secret", p.config.ClientSecret)
	}

	if cfg.CodeVerifier != "" {
		data.Set("code_verifier", cfg.CodeVerifier)
	}

	tokenResp, status, body, err := p.postTokenForm(ctx, data)
	if err != nil {
		return nil, err
	}

	if status != http.StatusOK || tokenResp.Error != "" {
		code, desc, raw := tokenResp.Error, tokenResp.ErrorDesc, tokenResp.errorMetadata()
		if code == "" && desc == "" {
			code, desc, raw = parseKakaoError(body)
		}
		return nil, providerError("exchange", status, code, desc, nil, raw)
	}
	if tokenResp.AccessToken == "" {
		return nil, providerError("exchange", status, "missing_access_token", "missing access token", nil, nil)
	}

	return tokenResp.toToken(), nil
}

// UserInfo implements social.SocialProvider.
func (p *Provider) UserInfo(ctx context.Context, token *social.Token) (*social.SocialProfile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.config.UserInfoURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		code, description, raw := parseKakaoError(body)
		return nil, providerError("user_info", resp.StatusCode, code, description, nil, raw)
	}

	var userInfo kakaoUserInfo
	if err := json.Unmarshal(body, &userInfo); err != nil {
		return nil, providerError("user_info", resp.StatusCode, "invalid_response", "failed to decode userinfo response", err, nil)
	}

	return mapProfile(&userInfo), nil
}

// ValidateToken implements social.SocialProvider.
func (p *Provider) ValidateToken(ctx context.Context, token *social.Token) error {
	if !token.ExpiresAt.IsZero() && time.Now().After(token.ExpiresAt) {
		return fmt.Errorf("kakao: token expired")
	}
	return nil
}

// RefreshToken implements social.SocialProvider.
func (p *Provider) RefreshToken(ctx context.Context, refreshToken string) (*social.Token, error) {
	data := url.Values{
		"client_id":     {p.config.ClientID},
		"refresh_token": {refreshToken},
		"grant_type":    {"refresh_token"},
	}
	if p.config.ClientSecret != "" {
		data.Set("client_secret", p.config.ClientSecret)
	}

	tokenResp, status, body, err := p.postTokenForm(ctx, data)
	if err != nil {
		return nil, err
	}

	if status != http.StatusOK || tokenResp.Error != "" {
		code, desc, raw := tokenResp.Error, tokenResp.ErrorDesc, tokenResp.errorMetadata()
		if code == "" && desc == "" {
			code, desc, raw = parseKakaoError(body)
		}
		return nil, providerError("refresh", status, code, desc, nil, raw)
	}
	if tokenResp.AccessToken == "" {
		return nil, providerError("refresh", status, "missing_access_token", "missing access token", nil, nil)
	}

	token := tokenResp.toToken()
	if token.RefreshToken == "" {
		// Kakao keeps the old refresh token unless close to expiry
		token.RefreshToken = refreshToken
	}

	return token, nil
}

func (p *Provider) postTokenForm(ctx context.Context, data url.Values) (*kakaoTokenResponse, int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.TokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, 0, nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded;charset=utf-8")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, nil, err
	}

	var tokenResp kakaoTokenResponse
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return nil, resp.StatusCode, body, providerError("exchange", resp.StatusCode, "invalid_response", "failed to decode token response", err, nil)
	}

	return &tokenResp, resp.StatusCode, body, nil
}

type kakaoTokenResponse struct {
	AccessToken           string `json:"access_token"`
	TokenType             string `json:"token_type"`
	ExpiresIn             int    `json:"expires_in"`
	RefreshToken          string `json:"refresh_token"`
	RefreshTokenExpiresIn int    `json:"refresh_token_expires_in"`
	Scope                 string `json:"scope"`
	Error                 string `json:"error"`
	ErrorDesc             string `json:"error_description"`
	ErrorCode             string `json:"error_code"`
}

func (r kakaoTokenResponse) toToken() *social.Token {
	expiresAt := time.Time{}
	if r.ExpiresIn > 0 {
		expiresAt = time.Now().Add(time.Duration(r.ExpiresIn) * time.Second)
	}

	return &social.Token{
		AccessToken:  r.AccessToken,
		TokenType:    r.TokenType,
		RefreshToken: r.RefreshToken,
		ExpiresAt:    expiresAt,
		Scopes:       splitSpaceScopes(r.Scope),
	}
}

func (r kakaoTokenResponse) errorMetadata() map[string]any {
	meta := map[string]any{}
	if r.Error != "" {
		meta["error"] = r.Error
	}
	if r.ErrorDesc != "" {
		meta["error_description"] = r.ErrorDesc
	}
	if r.ErrorCode != "" {
		meta["error_code"] = r.ErrorCode
	}
	if r.Scope != "" {
		meta["scope"] = r.Scope
	}
	return meta
}

type kakaoErrorResponse struct {
	Error     string `json:"error"`
	Desc      string `json:"error_description"`
	ErrorCode string `json:"error_code"`
	Msg       string `json:"msg"`
	Code      int    `json:"code"`
}

func parseKakaoError(body []byte) (string, string, map[string]any) {
	var kerr kakaoErrorResponse
	if err := json.Unmarshal(body, &kerr); err == nil {
		if kerr.Error != "" || kerr.Desc != "" {
			return kerr.Error, kerr.Desc, map[string]any{
				"error":             kerr.Error,
				"error_description": kerr.Desc,
				"error_code":        kerr.ErrorCode,
			}
		}
		// kapi.kakao.com error envelope uses msg and a negative code
		if kerr.Msg != "" || kerr.Code != 0 {
			return fmt.Sprintf("%d", kerr.Code), kerr.Msg, map[string]any{
				"msg":  kerr.Msg,
				"code": kerr.Code,
			}
		}
	}

	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = "kakao request failed"
	}

	return "", msg, nil
}

func splitSpaceScopes(scopes string) []string {
	if scopes == "" {
		return nil
	}

	parts := strings.Fields(scopes)
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}

	return out
}

func providerError(operation string, status int, code, description string, err error, raw map[string]any) *social.ProviderError {
	return &social.ProviderError{
		Provider:    "kakao",
		Operation:   operation,
		Status:      status,
		Code:        code,
		Description: description,
		Err:         err,
		Raw:         raw,
	}
}
