package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vaultline/session-engine/internal/domain/views"
)

// ViewCache stores read-views as one Redis hash per ViewKey with the variant as
// field, so invalidating a key drops every page at once.
type ViewCache struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewViewCache creates a view cache. A zero ttl keeps entries until invalidated.
func NewViewCache(client redis.UniversalClient, prefix string, ttl time.Duration) *ViewCache {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &ViewCache{client: client, prefix: prefix + "view:", ttl: ttl}
}

func (c *ViewCache) redisKey(key views.ViewKey) string {
	return c.prefix + string(key)
}

func (c *ViewCache) Get(ctx context.Context, key views.ViewKey, variant string) ([]byte, bool, error) {
	if key == "" {
		return nil, false, errors.New("key cannot be empty")
	}
	val, err := c.client.HGet(ctx, c.redisKey(key), variant).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis hget: %w", err)
	}
	return val, true, nil
}

func (c *ViewCache) Set(ctx context.Context, key views.ViewKey, variant string, value []byte) error {
	if key == "" {
		return errors.New("key cannot be empty")
	}
	rk := c.redisKey(key)
	pipe := c.client.TxPipeline()
	pipe.HSet(ctx, rk, variant, value)
	if c.ttl > 0 {
		pipe.Expire(ctx, rk, c.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis hset: %w", err)
	}
	return nil
}

// Invalidate removes every variant cached under key.
func (c *ViewCache) Invalidate(ctx context.Context, key views.ViewKey) error {
	if err := c.client.Del(ctx, c.redisKey(key)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
