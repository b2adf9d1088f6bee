package auth_test

import (
	"testing"

	auth "github.com/goliatone/go-board-auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword(t *testing.T) {
	t.Run("hashes and verifies", func(t *testing.T) {
		hash, err := auth.HashPassword("securePassword123!")
		require.NoError(t, err)
		require.NotEmpty(t, hash)

		assert.NoError(t, auth.ComparePasswordAndHash("securePassword123!", hash))
	})

	t.Run("empty password is rejected", func(t *testing.T) {
		_, err := auth.HashPassword("")
		assert.ErrorIs(t, err, auth.ErrNoEmptyString)
	})

	t.Run("same password hashes differently", func(t *testing.T) {
		first, err := auth.HashPassword("repeat-me")
		require.NoError(t, err)
		second, err := auth.HashPassword("repeat-me")
		require.NoError(t, err)

		assert.NotEqual(t, first, second)
	})
}

func TestComparePasswordAndHash(t *testing.T) {
	hash, err := auth.HashPassword("testPassword123!")
	require.NoError(t, err)

	t.Run("matching password", func(t *testing.T) {
		assert.NoError(t, auth.ComparePasswordAndHash("testPassword123!", hash))
	})

	t.Run("wrong password", func(t *testing.T) {
		err := auth.ComparePasswordAndHash("wrongPassword", hash)
		assert.Equal(t, auth.ErrMismatchedHashAndPassword, err)
	})

	t.Run("garbage hash", func(t *testing.T) {
		assert.Error(t, auth.ComparePasswordAndHash("testPassword123!", "not-a-bcrypt-hash"))
	})
}

func TestRandomPasswordHash(t *testing.T) {
	first := auth.RandomPasswordHash()
	second := auth.RandomPasswordHash()

	assert.NotEmpty(t, first)
	assert.NotEmpty(t, second)
	assert.NotEqual(t, first, second)
}
