package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stocksync/backend/internal/domain/sku"
	"github.com/stocksync/backend/internal/domain/vendor"
	"go.uber.org/zap"
)

const (
	redisCompositeMapKey = "stocksync:catalog:composite_map"
	redisSuggestionsKey  = "stocksync:catalog:vendor_suggestions"
)

// RedisCompositeMapCache shares a composite map snapshot across instances
// through Redis. A cache miss or decode failure falls through to the
// underlying source and repopulates the key; Redis being down degrades to a
// direct fetch.
type RedisCompositeMapCache struct {
	source sku.CompositeSource
	rdb    redis.UniversalClient
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisCompositeMapCache creates a Redis-backed caching decorator
func NewRedisCompositeMapCache(source sku.CompositeSource, rdb redis.UniversalClient, ttl time.Duration, logger *zap.Logger) *RedisCompositeMapCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisCompositeMapCache{source: source, rdb: rdb, ttl: ttl, logger: logger}
}

// GetCompositeMap returns the shared snapshot, refetching on miss
func (c *RedisCompositeMapCache) GetCompositeMap(ctx context.Context) (*sku.CompositeMap, error) {
	raw, err := c.rdb.Get(ctx, redisCompositeMapKey).Bytes()
	if err == nil {
		var m sku.CompositeMap
		if jsonErr := json.Unmarshal(raw, &m); jsonErr == nil {
			return &m, nil
		}
		c.logger.Warn("discarding undecodable cached composite map")
	} else if err != redis.Nil {
		c.logger.Warn("composite map cache read failed, fetching directly", zap.Error(err))
	}

	m, err := c.source.GetCompositeMap(ctx)
	if err != nil {
		return nil, err
	}

	if raw, jsonErr := json.Marshal(m); jsonErr == nil {
		if setErr := c.rdb.Set(ctx, redisCompositeMapKey, raw, c.ttl).Err(); setErr != nil {
			c.logger.Warn("composite map cache write failed", zap.Error(setErr))
		}
	}
	return m, nil
}

// Invalidate drops the shared snapshot and forwards the invalidation
func (c *RedisCompositeMapCache) Invalidate() {
	if err := c.rdb.Del(context.Background(), redisCompositeMapKey).Err(); err != nil {
		c.logger.Warn("composite map cache invalidation failed", zap.Error(err))
	}
	c.source.Invalidate()
}

var _ sku.CompositeSource = (*RedisCompositeMapCache)(nil)

// RedisSuggestionCache shares the vendor-suggestion table across instances
// through Redis
type RedisSuggestionCache struct {
	source vendor.SuggestionSource
	rdb    redis.UniversalClient
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisSuggestionCache creates a Redis-backed caching decorator
func NewRedisSuggestionCache(source vendor.SuggestionSource, rdb redis.UniversalClient, ttl time.Duration, logger *zap.Logger) *RedisSuggestionCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisSuggestionCache{source: source, rdb: rdb, ttl: ttl, logger: logger}
}

// GetVendorSuggestions returns the shared table, refetching on miss
func (c *RedisSuggestionCache) GetVendorSuggestions(ctx context.Context) (map[string]string, error) {
	raw, err := c.rdb.Get(ctx, redisSuggestionsKey).Bytes()
	if err == nil {
		var table map[string]string
		if jsonErr := json.Unmarshal(raw, &table); jsonErr == nil {
			return table, nil
		}
		c.logger.Warn("discarding undecodable cached suggestion table")
	} else if err != redis.Nil {
		c.logger.Warn("suggestion cache read failed, fetching directly", zap.Error(err))
	}

	table, err := c.source.GetVendorSuggestions(ctx)
	if err != nil {
		return nil, err
	}

	if raw, jsonErr := json.Marshal(table); jsonErr == nil {
		if setErr := c.rdb.Set(ctx, redisSuggestionsKey, raw, c.ttl).Err(); setErr != nil {
			c.logger.Warn("suggestion cache write failed", zap.Error(setErr))
		}
	}
	return table, nil
}

// Invalidate drops the shared table and forwards the invalidation
func (c *RedisSuggestionCache) Invalidate() {
	if err := c.rdb.Del(context.Background(), redisSuggestionsKey).Err(); err != nil {
		c.logger.Warn("suggestion cache invalidation failed", zap.Error(err))
	}
	c.source.Invalidate()
}

var _ vendor.SuggestionSource = (*RedisSuggestionCache)(nil)
