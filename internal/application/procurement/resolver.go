package procurement

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/stocksync/backend/internal/domain/shared"
	"github.com/stocksync/backend/internal/domain/sku"
	"github.com/stocksync/backend/internal/domain/vendor"
)

// ResolverConfig controls how the resolver materializes vendors it has only
// a name for
type ResolverConfig struct {
	// AutoCreateVendors allows the resolver to create a local vendor record
	// for a suggested name with no local match. When disabled the item keeps
	// a pending-suggestion reference instead.
	AutoCreateVendors bool
	// AutoMapSKUs attaches the resolved SKU to a newly created vendor's
	// mappings. Existing vendors always learn the SKU.
	AutoMapSKUs bool
}

// VendorResolver decides which vendor an order item belongs to.
//
// Resolution sources are consulted in a fixed order, first match wins:
// an explicit per-SKU override, the external suggestion table, the composite
// map's vendor hint, local SKU mappings, and finally the same chain over each
// expanded component of a composite SKU. When nothing matches the item gets
// the explicit Unassigned reference.
type VendorResolver struct {
	vendors     vendor.Repository
	suggestions vendor.SuggestionSource
	composites  sku.CompositeSource
	expander    *sku.Expander
	cfg         ResolverConfig
	logger      *zap.Logger
}

// NewVendorResolver creates a new VendorResolver
func NewVendorResolver(
	vendors vendor.Repository,
	suggestions vendor.SuggestionSource,
	composites sku.CompositeSource,
	expander *sku.Expander,
	cfg ResolverConfig,
	logger *zap.Logger,
) *VendorResolver {
	return &VendorResolver{
		vendors:     vendors,
		suggestions: suggestions,
		composites:  composites,
		expander:    expander,
		cfg:         cfg,
		logger:      logger,
	}
}

// Resolve returns the vendor reference for a SKU. External source failures
// degrade to the next resolution step; Resolve itself never fails.
func (r *VendorResolver) Resolve(ctx context.Context, rawSKU string, overrides map[string]string) vendor.Ref {
	primary := sku.Canonical(rawSKU)
	if primary == "" {
		return vendor.Unassigned()
	}

	if name, ok := overrides[primary]; ok && name != "" {
		return r.materializeByName(ctx, name, primary)
	}

	suggestions := r.suggestionTable(ctx)
	composites := r.compositeMap(ctx)

	if ref, ok := r.resolveOne(ctx, primary, suggestions, composites); ok {
		return ref
	}

	if r.expander.Classify(primary) != sku.KindSingle {
		expansion := r.expander.Expand(ctx, primary, 1)
		for _, component := range expansion.Components {
			if component.SKU == primary {
				continue
			}
			if ref, ok := r.resolveOne(ctx, component.SKU, suggestions, composites); ok {
				return ref
			}
		}
	}

	return vendor.Unassigned()
}

// resolveOne runs the suggestion, hint, and local-mapping steps for one SKU
func (r *VendorResolver) resolveOne(ctx context.Context, canonicalSKU string, suggestions map[string]string, composites *sku.CompositeMap) (vendor.Ref, bool) {
	if name, ok := suggestions[canonicalSKU]; ok && name != "" {
		return r.materializeByName(ctx, name, canonicalSKU), true
	}

	if hint := composites.VendorHintFor(canonicalSKU); hint != "" {
		return r.materializeByName(ctx, hint, canonicalSKU), true
	}

	v, err := r.vendors.FindBySKU(ctx, canonicalSKU)
	if err == nil {
		return v.Ref(), true
	}
	if !errors.Is(err, shared.ErrNotFound) {
		r.logger.Warn("vendor lookup by SKU failed",
			zap.String("sku", canonicalSKU),
			zap.Error(err),
		)
	}

	return vendor.Ref{}, false
}

// materializeByName turns a vendor name into a reference. An existing vendor
// always learns the SKU; a missing vendor is created only when auto-creation
// is enabled, and learns the SKU only when auto-mapping is enabled too.
func (r *VendorResolver) materializeByName(ctx context.Context, name, canonicalSKU string) vendor.Ref {
	existing, err := r.vendors.FindByName(ctx, name)
	if err == nil {
		if existing.AttachSKU(canonicalSKU) {
			if saveErr := r.vendors.Save(ctx, existing); saveErr != nil {
				r.logger.Warn("failed to persist SKU mapping",
					zap.String("vendor", existing.Name),
					zap.String("sku", canonicalSKU),
					zap.Error(saveErr),
				)
			}
		}
		return existing.Ref()
	}
	if !errors.Is(err, shared.ErrNotFound) {
		r.logger.Warn("vendor lookup by name failed",
			zap.String("vendor", name),
			zap.Error(err),
		)
		return vendor.PendingSuggestion(name)
	}

	if !r.cfg.AutoCreateVendors {
		return vendor.PendingSuggestion(name)
	}

	created, err := vendor.NewVendor(name)
	if err != nil {
		r.logger.Warn("suggested vendor name is invalid",
			zap.String("vendor", name),
			zap.Error(err),
		)
		return vendor.Unassigned()
	}
	if r.cfg.AutoMapSKUs {
		created.AttachSKU(canonicalSKU)
	}
	if err := r.vendors.Save(ctx, created); err != nil {
		r.logger.Warn("failed to create vendor from suggestion",
			zap.String("vendor", name),
			zap.Error(err),
		)
		return vendor.PendingSuggestion(name)
	}

	r.logger.Info("vendor auto-created from suggestion",
		zap.String("vendor", created.Name),
		zap.String("sku", canonicalSKU),
	)
	return created.Ref()
}

func (r *VendorResolver) suggestionTable(ctx context.Context) map[string]string {
	table, err := r.suggestions.GetVendorSuggestions(ctx)
	if err != nil {
		r.logger.Warn("vendor suggestion table unavailable", zap.Error(err))
		return nil
	}
	return table
}

func (r *VendorResolver) compositeMap(ctx context.Context) *sku.CompositeMap {
	m, err := r.composites.GetCompositeMap(ctx)
	if err != nil {
		r.logger.Warn("composite map unavailable", zap.Error(err))
		return nil
	}
	return m
}
