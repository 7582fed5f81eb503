package crosswalk

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/uruley/4HorsemenDFS/pkg/models"
	"github.com/uruley/4HorsemenDFS/pkg/redis"
)

// redisKeyPrefix namespaces alias cache keys so InvalidateAll cannot touch
// unrelated data in a shared Redis.
const redisKeyPrefix = "crosswalk:alias:"

// RedisAliasCache is an AliasCache backed by Redis, for running several
// resolver instances against one shared cache.
type RedisAliasCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisAliasCache creates a RedisAliasCache with the given entry TTL.
func NewRedisAliasCache(client *redis.Client, ttl time.Duration) *RedisAliasCache {
	return &RedisAliasCache{
		client: client,
		ttl:    ttl,
	}
}

func redisKey(sourceName, normalizedName string) string {
	return redisKeyPrefix + sourceName + ":" + normalizedName
}

func (c *RedisAliasCache) Get(ctx context.Context, sourceName, normalizedName string) ([]models.AliasHit, bool, error) {
	raw, err := c.client.Get(ctx, redisKey(sourceName, normalizedName))
	if err != nil {
		if redis.IsNil(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read alias cache: %w", err)
	}

	var hits []models.AliasHit
	if err := json.Unmarshal([]byte(raw), &hits); err != nil {
		// A corrupt entry is treated as a miss; the read-through will
		// rewrite it.
		return nil, false, nil
	}
	return hits, true, nil
}

func (c *RedisAliasCache) Set(ctx context.Context, sourceName, normalizedName string, hits []models.AliasHit) error {
	payload, err := json.Marshal(hits)
	if err != nil {
		return fmt.Errorf("failed to encode alias cache entry: %w", err)
	}
	return c.client.Set(ctx, redisKey(sourceName, normalizedName), payload, c.ttl)
}

func (c *RedisAliasCache) Invalidate(ctx context.Context, sourceName, normalizedName string) error {
	return c.client.Del(ctx, redisKey(sourceName, normalizedName))
}

func (c *RedisAliasCache) InvalidateAll(ctx context.Context) error {
	return c.client.DeleteByPattern(ctx, redisKeyPrefix+"*")
}
