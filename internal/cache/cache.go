// Package cache provides a Redis-backed read-through cache for badge and
// progress query responses.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/turnomed/badge-engine/internal/config"
	"github.com/turnomed/badge-engine/pkg/logger"
)

// Cache wraps a Redis client. A cache miss is not an error: Get returns an
// empty string so callers fall through to the database.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	log    *logger.Logger
}

// New connects to Redis and verifies the connection.
func New(cfg *config.RedisConfig, ttl time.Duration, log *logger.Logger) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Info().
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Msg("Connected to Redis")

	return &Cache{client: client, ttl: ttl, log: log}, nil
}

// NewWithClient wraps an existing client (used by tests with miniredis).
func NewWithClient(client *redis.Client, ttl time.Duration, log *logger.Logger) *Cache {
	return &Cache{client: client, ttl: ttl, log: log}
}

// BadgesKey is the cache key for a user's badge summary.
func BadgesKey(userID uint) string {
	return fmt.Sprintf("badges:%d", userID)
}

// ProgressKey is the cache key for a user's progress listing.
func ProgressKey(userID uint) string {
	return fmt.Sprintf("progress:%d", userID)
}

// Get retrieves a cached value. Returns "" on a miss.
func (c *Cache) Get(ctx context.Context, key string) (string, error) {
	val, err := c.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("cache get %s: %w", key, err)
	}
	return val, nil
}

// Set stores a value under the configured TTL.
func (c *Cache) Set(ctx context.Context, key, value string) error {
	if err := c.client.Set(ctx, key, value, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	return nil
}

// InvalidateUser drops the cached responses for a user. Called after any
// evaluation writes so the next read sees fresh ledger state.
func (c *Cache) InvalidateUser(ctx context.Context, userID uint) error {
	if err := c.client.Del(ctx, BadgesKey(userID), ProgressKey(userID)).Err(); err != nil {
		return fmt.Errorf("cache invalidate user %d: %w", userID, err)
	}
	return nil
}

// Close releases the Redis connection.
func (c *Cache) Close() error {
	return c.client.Close()
}
