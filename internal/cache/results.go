package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "watermark:result:"

// ResultCache keeps successful results in Redis so they can be fetched by
// sequence number after the session has moved on
type ResultCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewResultCache creates a cache on client; entries expire after ttl
func NewResultCache(client *redis.Client, ttl time.Duration) *ResultCache {
	return &ResultCache{client: client, ttl: ttl}
}

// NewClient creates a Redis client for addr
func NewClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

// Key returns the cache key of the result of submission seq of a session
func Key(sessionID string, seq uint64) string {
	return fmt.Sprintf("%s%s:%d", keyPrefix, sessionID, seq)
}

// Put stores data for the submission
func (c *ResultCache) Put(ctx context.Context, sessionID string, seq uint64, data []byte) error {
	if err := c.client.Set(ctx, Key(sessionID, seq), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set error: %w", err)
	}
	return nil
}

// Get returns the stored result, or nil and no error on a miss
func (c *ResultCache) Get(ctx context.Context, sessionID string, seq uint64) ([]byte, error) {
	data, err := c.client.Get(ctx, Key(sessionID, seq)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil // Cache miss
		}
		return nil, fmt.Errorf("cache get error: %w", err)
	}
	return data, nil
}

// Health pings Redis
func (c *ResultCache) Health(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the redis client
func (c *ResultCache) Close() error {
	return c.client.Close()
}
