package sku

import "context"

// CompositeSource provides access to the external composite SKU mapping table.
// Implementations are expected to cache the snapshot and refresh it on
// Invalidate; the expander itself never caches.
type CompositeSource interface {
	// GetCompositeMap returns the current composite map snapshot
	GetCompositeMap(ctx context.Context) (*CompositeMap, error)

	// Invalidate discards any cached snapshot so the next read refetches
	Invalidate()
}
