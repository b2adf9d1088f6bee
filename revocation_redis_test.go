package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	auth "github.com/goliatone/go-board-auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisStore(t *testing.T) (*auth.RedisRevocationStore, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { client.Close() })

	return auth.NewRedisRevocationStoreWithClient(client, "").WithLogger(quietLogger()), mr
}

func TestRedisRevocationStore(t *testing.T) {
	ctx := context.Background()

	t.Run("revoked token is reported until expiry", func(t *testing.T) {
		store, _ := newRedisStore(t)

		require.NoError(t, store.Revoke(ctx, "jti-1", time.Now().Add(time.Hour)))

		revoked, err := store.IsRevoked(ctx, "jti-1")
		require.NoError(t, err)
		assert.True(t, revoked)
	})

	t.Run("unknown token is not revoked", func(t *testing.T) {
		store, _ := newRedisStore(t)

		revoked, err := store.IsRevoked(ctx, "never-seen")
		require.NoError(t, err)
		assert.False(t, revoked)
	})

	t.Run("entry lapses with the TTL", func(t *testing.T) {
		store, mr := newRedisStore(t)

		require.NoError(t, store.Revoke(ctx, "jti-2", time.Now().Add(time.Minute)))

		mr.FastForward(2 * time.Minute)

		revoked, err := store.IsRevoked(ctx, "jti-2")
		require.NoError(t, err)
		assert.False(t, revoked)
	})

	t.Run("past expiry is not written at all", func(t *testing.T) {
		store, _ := newRedisStore(t)

		require.NoError(t, store.Revoke(ctx, "jti-3", time.Now().Add(-time.Minute)))

		revoked, err := store.IsRevoked(ctx, "jti-3")
		require.NoError(t, err)
		assert.False(t, revoked)
	})

	t.Run("keys carry the configured prefix", func(t *testing.T) {
		mr, err := miniredis.Run()
		require.NoError(t, err)
		t.Cleanup(mr.Close)

		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { client.Close() })

		store := auth.NewRedisRevocationStoreWithClient(client, "board:revoked")
		require.NoError(t, store.Revoke(ctx, "jti-4", time.Now().Add(time.Hour)))

		assert.True(t, mr.Exists("board:revoked:jti-4"))
	})

	t.Run("ping reflects server availability", func(t *testing.T) {
		store, mr := newRedisStore(t)

		require.NoError(t, store.Ping(ctx))

		mr.Close()
		assert.Error(t, store.Ping(ctx))
	})
}
