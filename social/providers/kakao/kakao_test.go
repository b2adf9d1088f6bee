package kakao

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/goliatone/go-board-auth/social"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProviderAuthCodeURL(t *testing.T) {
	provider := New(Config{
		ClientID:    "client-id",
		CallbackURL: "https://example.com/callback",
	})

	authURL := provider.AuthCodeURL("state-token", social.WithPKCE("challenge", "S256"))

	parsed, err := url.Parse(authURL)
	require.NoError(t, err)

	query := parsed.Query()
	assert.Equal(t, "client-id", query.Get("client_id"))
	assert.Equal(t, "https://example.com/callback", query.Get("redirect_uri"))
	assert.Equal(t, "state-token", query.Get("state"))
	assert.Equal(t, "code", query.Get("response_type"))
	assert.Equal(t, "challenge", query.Get("code_challenge"))
	assert.Equal(t, "S256", query.Get("code_challenge_method"))

	scope := query.Get("scope")
	assert.Contains(t, scope, "profile_nickname")
	assert.Contains(t, scope, "account_email")
}

func TestProviderExchangeUserInfoAndRefresh(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/oauth/token":
			body, err := io.ReadAll(r.Body)
			assert.NoError(t, err)
			values, err := url.ParseQuery(string(body))
			assert.NoError(t, err)

			grantType := values.Get("grant_type")
			w.Header().Set("Content-Type", "application/json")
			if grantType == "authorization_code" {
				assert.Equal(t, "client-id", values.Get("client_id"))
				assert.Equal(t, "auth-code", values.Get("code"))
				assert.Equal(t, "verifier", values.Get("code_verifier"))
				_ = json.NewEncoder(w).Encode(map[string]any{
					"access_token":             "token",
					"token_type":               "bearer",
					"expires_in":               21599,
					"refresh_token":            "refresh-token",
					"refresh_token_expires_in": 5183999,
					"scope":                    "profile_nickname account_email",
				})
				return
			}

			if grantType == "refresh_token" {
				assert.Equal(t, "refresh-token", values.Get("refresh_token"))
				// Kakao omits refresh_token when the old one stays valid
				_ = json.NewEncoder(w).Encode(map[string]any{
					"access_token": "refreshed",
					"token_type":   "bearer",
					"expires_in":   21599,
				})
				return
			}

			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]any{"error": "unsupported_grant"})
		case "/v2/user/me":
			assert.Equal(t, "Bearer token", r.Header.Get("Authorization"))
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]any{
				"id": 123456789,
				"kakao_account": map[string]any{
					"email":             "dana@example.com",
					"is_email_verified": true,
					"is_email_valid":    true,
					"profile": map[string]any{
						"nickname":          "dana",
						"profile_image_url": "https://example.com/avatar.png",
					},
				},
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	provider := New(Config{
		ClientID:    "client-id",
		CallbackURL: "https://example.com/callback",
		TokenURL:    server.URL + "/oauth/token",
		UserInfoURL: server.URL + "/v2/user/me",
	})

	token, err := provider.Exchange(context.Background(), "auth-code", social.WithCodeVerifier("verifier"))
	require.NoError(t, err)
	assert.Equal(t, "token", token.AccessToken)
	assert.Equal(t, "refresh-token", token.RefreshToken)
	assert.True(t, token.ExpiresAt.After(time.Now()))

	profile, err := provider.UserInfo(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "123456789", profile.ProviderUserID)
	assert.Equal(t, "kakao", profile.Provider)
	assert.Equal(t, "dana@example.com", profile.Email)
	assert.True(t, profile.EmailVerified)
	assert.Equal(t, "dana", profile.Nickname)
	assert.Equal(t, "https://example.com/avatar.png", profile.AvatarURL)

	refreshed, err := provider.RefreshToken(context.Background(), "refresh-token")
	require.NoError(t, err)
	assert.Equal(t, "refreshed", refreshed.AccessToken)
	assert.Equal(t, "refresh-token", refreshed.RefreshToken)
}

func TestProviderExchangeErrorNormalized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error":             "invalid_grant",
			"error_description": "authorization code not found",
			"error_code":        "KOE320",
		})
	}))
	defer server.Close()

	provider := New(Config{
		ClientID:    "client-id",
		CallbackURL: "https://example.com/callback",
		TokenURL:    server.URL,
	})

	_, err := provider.Exchange(context.Background(), "stale-code")
	require.Error(t, err)

	var perr *social.ProviderError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "kakao", perr.Provider)
	assert.Equal(t, "exchange", perr.Operation)
	assert.Equal(t, http.StatusBadRequest, perr.Status)
	assert.Equal(t, "invalid_grant", perr.Code)
}

func TestProviderUserInfoErrorNormalized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		// kapi.kakao.com error envelope
		_ = json.NewEncoder(w).Encode(map[string]any{
			"msg":  "this access token does not exist",
			"code": -401,
		})
	}))
	defer server.Close()

	provider := New(Config{
		ClientID:    "client-id",
		CallbackURL: "https://example.com/callback",
		UserInfoURL: server.URL,
	})

	_, err := provider.UserInfo(context.Background(), &social.Token{AccessToken: "bad"})
	require.Error(t, err)

	var perr *social.ProviderError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "kakao", perr.Provider)
	assert.Equal(t, "user_info", perr.Operation)
	assert.Equal(t, http.StatusUnauthorized, perr.Status)
	assert.Equal(t, "-401", perr.Code)
}
