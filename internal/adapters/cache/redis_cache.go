package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mikey/phishguard/internal/core"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const redisKeyPrefix = "phishguard:scan:"

type redisEntry struct {
	LexicalProb    float64   `json:"lexical_prob"`
	SequentialProb float64   `json:"sequential_prob"`
	LastSeen       time.Time `json:"last_seen"`
	ExpiresAt      time.Time `json:"expires_at"`
}

// RedisCache is a Redis implementation of the CacheRepository interface.
// Expiry is delegated to Redis key TTLs.
type RedisCache struct {
	client redis.UniversalClient
	logger *zap.Logger
}

// NewRedisCache creates a new Redis cache and verifies the connection
func NewRedisCache(ctx context.Context, client redis.UniversalClient, logger *zap.Logger) (*RedisCache, error) {
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return &RedisCache{
		client: client,
		logger: logger,
	}, nil
}

// Get retrieves a live entry
func (c *RedisCache) Get(ctx context.Context, key string) (*core.CacheEntry, error) {
	data, err := c.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, core.ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to query cache: %w", err)
	}

	var stored redisEntry
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("failed to decode cache entry: %w", err)
	}
	return &core.CacheEntry{
		Key:            key,
		LexicalProb:    stored.LexicalProb,
		SequentialProb: stored.SequentialProb,
		LastSeen:       stored.LastSeen,
		ExpiresAt:      stored.ExpiresAt,
	}, nil
}

// Set stores a cache entry with a TTL matching its expiry
func (c *RedisCache) Set(ctx context.Context, entry *core.CacheEntry) error {
	ttl := time.Until(entry.ExpiresAt)
	if ttl <= 0 {
		return nil
	}

	data, err := json.Marshal(redisEntry{
		LexicalProb:    entry.LexicalProb,
		SequentialProb: entry.SequentialProb,
		LastSeen:       entry.LastSeen,
		ExpiresAt:      entry.ExpiresAt,
	})
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}

	if err := c.client.Set(ctx, redisKeyPrefix+entry.Key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to insert cache entry: %w", err)
	}
	return nil
}

// Delete removes a cache entry
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, redisKeyPrefix+key).Err(); err != nil {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return nil
}

// Cleanup is a no-op; Redis expires keys itself
func (c *RedisCache) Cleanup(ctx context.Context) error {
	return nil
}

// Stop closes the Redis client
func (c *RedisCache) Stop() {
	if err := c.client.Close(); err != nil {
		c.logger.Error("Failed to close Redis client", zap.Error(err))
	}
}
