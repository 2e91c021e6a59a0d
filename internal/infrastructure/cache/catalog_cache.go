// Package cache provides TTL caching decorators for the external catalog
// tables (composite SKU map, vendor suggestions). The decorated sources are
// refreshed lazily after the TTL elapses and eagerly after Invalidate.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/stocksync/backend/internal/domain/sku"
	"github.com/stocksync/backend/internal/domain/vendor"
)

// DefaultTTL is how long a catalog snapshot stays fresh
const DefaultTTL = 5 * time.Minute

// CompositeMapCache decorates a sku.CompositeSource with an in-memory TTL
// cache. Safe for concurrent use.
type CompositeMapCache struct {
	source sku.CompositeSource
	ttl    time.Duration

	mu        sync.RWMutex
	snapshot  *sku.CompositeMap
	fetchedAt time.Time
}

// NewCompositeMapCache creates a caching decorator over the given source
func NewCompositeMapCache(source sku.CompositeSource, ttl time.Duration) *CompositeMapCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &CompositeMapCache{source: source, ttl: ttl}
}

// GetCompositeMap returns the cached snapshot, refetching after the TTL.
// When a refetch fails and a stale snapshot exists, the stale snapshot is
// served so expansion can keep degrading gracefully.
func (c *CompositeMapCache) GetCompositeMap(ctx context.Context) (*sku.CompositeMap, error) {
	c.mu.RLock()
	if c.snapshot != nil && time.Since(c.fetchedAt) < c.ttl {
		m := c.snapshot
		c.mu.RUnlock()
		return m, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.snapshot != nil && time.Since(c.fetchedAt) < c.ttl {
		return c.snapshot, nil
	}

	m, err := c.source.GetCompositeMap(ctx)
	if err != nil {
		if c.snapshot != nil {
			return c.snapshot, nil
		}
		return nil, err
	}
	c.snapshot = m
	c.fetchedAt = time.Now()
	return m, nil
}

// Invalidate discards the cached snapshot and forwards the invalidation to
// the underlying source
func (c *CompositeMapCache) Invalidate() {
	c.mu.Lock()
	c.snapshot = nil
	c.fetchedAt = time.Time{}
	c.mu.Unlock()
	c.source.Invalidate()
}

var _ sku.CompositeSource = (*CompositeMapCache)(nil)

// SuggestionCache decorates a vendor.SuggestionSource with an in-memory TTL
// cache. Safe for concurrent use.
type SuggestionCache struct {
	source vendor.SuggestionSource
	ttl    time.Duration

	mu        sync.RWMutex
	table     map[string]string
	fetchedAt time.Time
}

// NewSuggestionCache creates a caching decorator over the given source
func NewSuggestionCache(source vendor.SuggestionSource, ttl time.Duration) *SuggestionCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &SuggestionCache{source: source, ttl: ttl}
}

// GetVendorSuggestions returns the cached table, refetching after the TTL
func (c *SuggestionCache) GetVendorSuggestions(ctx context.Context) (map[string]string, error) {
	c.mu.RLock()
	if c.table != nil && time.Since(c.fetchedAt) < c.ttl {
		t := c.table
		c.mu.RUnlock()
		return t, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.table != nil && time.Since(c.fetchedAt) < c.ttl {
		return c.table, nil
	}

	t, err := c.source.GetVendorSuggestions(ctx)
	if err != nil {
		if c.table != nil {
			return c.table, nil
		}
		return nil, err
	}
	c.table = t
	c.fetchedAt = time.Now()
	return t, nil
}

// Invalidate discards the cached table and forwards the invalidation to the
// underlying source
func (c *SuggestionCache) Invalidate() {
	c.mu.Lock()
	c.table = nil
	c.fetchedAt = time.Time{}
	c.mu.Unlock()
	c.source.Invalidate()
}

var _ vendor.SuggestionSource = (*SuggestionCache)(nil)
