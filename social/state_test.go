package social

import (
	"crypto/sha256"
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStateManager(ttl time.Duration) *EncryptedStateManager {
	return NewEncryptedStateManager(
		[]byte("0123456789abcdef0123456789abcdef"),
		[]byte("fedcba9876543210fedcba9876543210"),
		ttl,
	)
}

func TestStateManager_EncryptDecrypt(t *testing.T) {
	sm := testStateManager(10 * time.Minute)

	state := &OAuthState{
		Provider:     "kakao",
		RedirectURL:  "/questions",
		CodeVerifier: "test-verifier",
	}

	encoded, err := sm.Encode(state)
	require.NoError(t, err)

	decoded, err := sm.Decode(encoded)
	require.NoError(t, err)

	assert.Equal(t, state.Provider, decoded.Provider)
	assert.Equal(t, state.RedirectURL, decoded.RedirectURL)
	assert.Equal(t, state.CodeVerifier, decoded.CodeVerifier)
	assert.NotEmpty(t, decoded.Nonce)
	assert.Greater(t, decoded.ExpiresAt, time.Now().Unix())
}

func TestStateManager_ExpiredState(t *testing.T) {
	sm := testStateManager(-1 * time.Minute)

	state := &OAuthState{Provider: "kakao"}
	encoded, err := sm.Encode(state)
	require.NoError(t, err)

	_, err = sm.Decode(encoded)
	assert.ErrorIs(t, err, ErrStateExpired)
}

func TestStateManager_TamperedToken(t *testing.T) {
	sm := testStateManager(10 * time.Minute)

	encoded, err := sm.Encode(&OAuthState{Provider: "kakao"})
	require.NoError(t, err)

	raw, err := base64.URLEncoding.DecodeString(encoded)
	require.NoError(t, err)

	// flip one ciphertext byte past the signature prefix
	raw[sha256.Size] ^= 0xff
	tampered := base64.URLEncoding.EncodeToString(raw)

	_, err = sm.Decode(tampered)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestStateManager_WrongHMACKey(t *testing.T) {
	sm := testStateManager(10 * time.Minute)

	encoded, err := sm.Encode(&OAuthState{Provider: "kakao"})
	require.NoError(t, err)

	other := NewEncryptedStateManager(
		[]byte("0123456789abcdef0123456789abcdef"),
		[]byte("00000000000000000000000000000000"),
		10*time.Minute,
	)

	_, err = other.Decode(encoded)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestStateManager_TruncatedToken(t *testing.T) {
	sm := testStateManager(10 * time.Minute)

	_, err := sm.Decode(base64.URLEncoding.EncodeToString([]byte("short")))
	assert.ErrorIs(t, err, ErrInvalidState)

	_, err = sm.Decode("%%% not base64 %%%")
	assert.Error(t, err)
}

func TestStateManager_NilState(t *testing.T) {
	sm := testStateManager(10 * time.Minute)

	_, err := sm.Encode(nil)
	assert.ErrorIs(t, err, ErrInvalidState)
}
