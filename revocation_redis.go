package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisRevocationStore keeps revoked token ids in Redis so every instance
// behind a load balancer rejects the same retired refresh tokens.
type RedisRevocationStore struct {
	client    *redis.Client
	keyPrefix string
	logger    Logger
}

type RedisRevocationConfig struct {
	URL        string
	Password   string
	DB         int
	MaxRetries int
	PoolSize   int
	KeyPrefix  string
}

// NewRedisRevocationStore connects and pings before returning, a store that
// cannot reach Redis would silently accept revoked tokens.
func NewRedisRevocationStore(config RedisRevocationConfig) (*RedisRevocationStore, error) {
	opts, err := redis.ParseURL(config.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	if config.Password != "" {
		opts.Password = config.Password
	}
	if config.DB >= 0 {
		opts.DB = config.DB
	}
	if config.MaxRetries > 0 {
		opts.MaxRetries = config.MaxRetries
	}
	if config.PoolSize > 0 {
		opts.PoolSize = config.PoolSize
	}

	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second
	opts.PoolTimeout = 4 * time.Second

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewRedisRevocationStoreWithClient(client, config.KeyPrefix), nil
}

// NewRedisRevocationStoreWithClient wraps an existing client, used by tests
// and by applications that share one connection pool.
func NewRedisRevocationStoreWithClient(client *redis.Client, keyPrefix string) *RedisRevocationStore {
	if keyPrefix == "" {
		keyPrefix = "auth:revoked"
	}
	return &RedisRevocationStore{
		client:    client,
		keyPrefix: keyPrefix,
		logger:    defLogger{},
	}
}

func (s *RedisRevocationStore) WithLogger(logger Logger) *RedisRevocationStore {
	if logger != nil {
		s.logger = logger
	}
	return s
}

func (s *RedisRevocationStore) Revoke(ctx context.Context, tokenID string, until time.Time) error {
	if tokenID == "" {
		return nil
	}

	ttl := time.Until(until)
	if ttl <= 0 {
		// already past expiry, nothing left to block
		return nil
	}

	key := s.key(tokenID)
	if err := s.client.Set(ctx, key, "1", ttl).Err(); err != nil {
		s.logger.Error("redis revoke failed for %s: %v", key, err)
		return fmt.Errorf("redis revoke failed: %w", err)
	}

	return nil
}

func (s *RedisRevocationStore) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	if tokenID == "" {
		return false, nil
	}

	_, err := s.client.Get(ctx, s.key(tokenID)).Result()
	if err == redis.Nil {
		return false, nil
	} else if err != nil {
		return false, fmt.Errorf("redis get failed: %w", err)
	}

	return true, nil
}

// Ping checks Redis connectivity
func (s *RedisRevocationStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (s *RedisRevocationStore) Close() error {
	return s.client.Close()
}

func (s *RedisRevocationStore) key(tokenID string) string {
	return fmt.Sprintf("%s:%s", s.keyPrefix, tokenID)
}

var _ RevocationStore = (*RedisRevocationStore)(nil)
var _ RevocationStore = (*MemoryRevocationStore)(nil)
