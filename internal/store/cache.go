package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ResultCache is a read-through cache of rendered run results. A nil
// *ResultCache is valid and caches nothing.
type ResultCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewResultCache connects to Redis; an empty addr disables caching
func NewResultCache(addr, password string, db int, ttl time.Duration) *ResultCache {
	if addr == "" {
		return nil
	}
	return &ResultCache{
		client: redis.NewClient(&redis.Options{
			Addr:         addr,
			Password:     password,
			DB:           db,
			PoolSize:     20,
			MinIdleConns: 2,
		}),
		ttl: ttl,
	}
}

// Get decodes the cached value for runID/view into v. It reports false on a
// miss.
func (c *ResultCache) Get(ctx context.Context, runID, view string, v any) (bool, error) {
	if c == nil {
		return false, nil
	}

	data, err := c.client.Get(ctx, cacheKey(runID, view)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get cached result: %w", err)
	}

	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("unmarshal cached result: %w", err)
	}
	return true, nil
}

// Set stores v for runID/view
func (c *ResultCache) Set(ctx context.Context, runID, view string, v any) error {
	if c == nil {
		return nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}

	if err := c.client.SAdd(ctx, indexKey(runID), view).Err(); err != nil {
		return fmt.Errorf("index cached result: %w", err)
	}
	c.client.Expire(ctx, indexKey(runID), c.ttl)

	return c.client.Set(ctx, cacheKey(runID, view), data, c.ttl).Err()
}

// Invalidate drops every cached view of a run
func (c *ResultCache) Invalidate(ctx context.Context, runID string) error {
	if c == nil {
		return nil
	}

	views, err := c.client.SMembers(ctx, indexKey(runID)).Result()
	if err != nil {
		return fmt.Errorf("list cached views: %w", err)
	}

	keys := []string{indexKey(runID)}
	for _, view := range views {
		keys = append(keys, cacheKey(runID, view))
	}
	return c.client.Del(ctx, keys...).Err()
}

// Ping checks the Redis connection
func (c *ResultCache) Ping(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (c *ResultCache) Close() {
	if c != nil && c.client != nil {
		_ = c.client.Close()
	}
}

func cacheKey(runID, view string) string {
	return fmt.Sprintf("tubecost:run:%s:%s", runID, view)
}

func indexKey(runID string) string {
	return fmt.Sprintf("tubecost:run:%s:views", runID)
}
