package stats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const keyPrefix = "stats"

// Cache stores summaries in redis under per-entity versioned keys. Bumping an
// entity's version orphans its previous payloads, which then expire by TTL.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	group  singleflight.Group
}

// NewCache instantiates the cache helper.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Cache{client: client, ttl: ttl}
}

func versionKey(entity string) string {
	return fmt.Sprintf("%s:%s:version", keyPrefix, entity)
}

// Version returns the current version of entity, initialising when missing.
func (c *Cache) Version(ctx context.Context, entity string) (int64, error) {
	if c == nil || c.client == nil {
		return 0, nil
	}
	ver, err := c.client.Get(ctx, versionKey(entity)).Int64()
	if errors.Is(err, redis.Nil) {
		if err := c.client.SetNX(ctx, versionKey(entity), 1, 0).Err(); err != nil {
			return 0, err
		}
		return c.client.Get(ctx, versionKey(entity)).Int64()
	}
	if err != nil {
		return 0, err
	}
	return ver, nil
}

// Fetch returns the cached summary for entity or populates it via loader.
// Concurrent misses for the same key share one loader call.
func (c *Cache) Fetch(ctx context.Context, entity string, loader func(context.Context) (Summary, error)) (Summary, error) {
	if loader == nil {
		return Summary{}, errors.New("stats cache: loader required")
	}
	if c == nil || c.client == nil {
		return loader(ctx)
	}
	ver, err := c.Version(ctx, entity)
	if err != nil {
		return loader(ctx)
	}
	key := fmt.Sprintf("%s:%s:summary:%d", keyPrefix, entity, ver)
	payload, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var sum Summary
		if err := json.Unmarshal(payload, &sum); err == nil {
			return sum, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		return loader(ctx)
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		sum, err := loader(ctx)
		if err != nil {
			return Summary{}, err
		}
		raw, err := json.Marshal(sum)
		if err != nil {
			return Summary{}, err
		}
		_ = c.client.Set(ctx, key, raw, c.ttl).Err()
		return sum, nil
	})
	if err != nil {
		return Summary{}, err
	}
	return v.(Summary), nil
}

// Bump invalidates cached summaries of entity.
func (c *Cache) Bump(ctx context.Context, entity string) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Incr(ctx, versionKey(entity)).Err()
}
