package discounts

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const policyCacheKey = "discounts:policy"

// Cache keeps the policy singleton in Redis so every payment resolution
// does not hit postgres. Concurrent cold loads collapse into one database
// read through the singleflight group.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	group  singleflight.Group
}

// NewCache instantiates the cache helper. A nil client degrades to calling
// the loader directly.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

// Fetch loads the cached policy or populates it using the loader.
func (c *Cache) Fetch(ctx context.Context, loader func(context.Context) (Policy, error)) (Policy, error) {
	if loader == nil {
		return Policy{}, errors.New("discounts: cache loader required")
	}
	if c == nil || c.client == nil {
		return loader(ctx)
	}

	payload, err := c.client.Get(ctx, policyCacheKey).Bytes()
	if err == nil {
		var p Policy
		if err := json.Unmarshal(payload, &p); err == nil {
			return p, nil
		}
		// Corrupt entry: fall through and reload.
	} else if !errors.Is(err, redis.Nil) {
		return Policy{}, err
	}

	value, err, _ := c.group.Do(policyCacheKey, func() (any, error) {
		p, err := loader(ctx)
		if err != nil {
			return Policy{}, err
		}
		raw, err := json.Marshal(p)
		if err != nil {
			return Policy{}, err
		}
		if err := c.client.Set(ctx, policyCacheKey, raw, c.ttl).Err(); err != nil {
			return Policy{}, err
		}
		return p, nil
	})
	if err != nil {
		return Policy{}, err
	}
	return value.(Policy), nil
}

// Invalidate drops the cached policy after an update.
func (c *Cache) Invalidate(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Del(ctx, policyCacheKey).Err()
}
