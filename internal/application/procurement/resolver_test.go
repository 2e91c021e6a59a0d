package procurement

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stocksync/backend/internal/domain/sku"
	"github.com/stocksync/backend/internal/domain/vendor"
)

func TestVendorResolver_OverrideWinsOverEverything(t *testing.T) {
	env := newTestEnv(t, ResolverConfig{AutoCreateVendors: true, AutoMapSKUs: true})
	ctx := context.Background()

	env.suggestions.table = map[string]string{"P100": "Suggested Co"}
	acme, err := vendor.NewVendor("Acme")
	require.NoError(t, err)
	acme.AttachSKU("P100")
	require.NoError(t, env.vendors.Save(ctx, acme))

	ref := env.resolver.Resolve(ctx, "p100", map[string]string{"P100": "Override Co"})
	assert.Equal(t, vendor.RefAssigned, ref.Kind)
	assert.Equal(t, "Override Co", ref.Name)
}

func TestVendorResolver_SuggestionBeatsHintAndMapping(t *testing.T) {
	env := newTestEnv(t, ResolverConfig{AutoCreateVendors: true})
	ctx := context.Background()

	env.suggestions.table = map[string]string{"PK-P100": "Suggested Co"}
	m := sku.NewCompositeMap()
	m.Packs["PK-P100"] = sku.PackDef{PackSize: 5, VendorHint: "Hinted Co"}
	env.composites.m = m

	ref := env.resolver.Resolve(ctx, "PK-P100", nil)
	assert.Equal(t, "Suggested Co", ref.Name)
}

func TestVendorResolver_CompositeHintBeatsLocalMapping(t *testing.T) {
	env := newTestEnv(t, ResolverConfig{AutoCreateVendors: true})
	ctx := context.Background()

	m := sku.NewCompositeMap()
	m.Packs["PK-P100"] = sku.PackDef{PackSize: 5, VendorHint: "Hinted Co"}
	env.composites.m = m

	local, err := vendor.NewVendor("Local Co")
	require.NoError(t, err)
	local.AttachSKU("PK-P100")
	require.NoError(t, env.vendors.Save(ctx, local))

	ref := env.resolver.Resolve(ctx, "PK-P100", nil)
	assert.Equal(t, "Hinted Co", ref.Name)
}

func TestVendorResolver_LocalMappingMatches(t *testing.T) {
	env := newTestEnv(t, ResolverConfig{})
	ctx := context.Background()

	local, err := vendor.NewVendor("Local Co")
	require.NoError(t, err)
	local.AttachSKU("P100")
	require.NoError(t, env.vendors.Save(ctx, local))

	ref := env.resolver.Resolve(ctx, "P100", nil)
	assert.Equal(t, vendor.RefAssigned, ref.Kind)
	assert.Equal(t, local.ID, ref.VendorID)
}

func TestVendorResolver_FallsBackToExpandedComponents(t *testing.T) {
	env := newTestEnv(t, ResolverConfig{})
	ctx := context.Background()

	m := sku.NewCompositeMap()
	m.Combos["CB-C200"] = sku.ComboDef{Components: []string{"S1", "S2"}}
	env.composites.m = m

	// No match for the combo itself; S2 maps to a local vendor
	local, err := vendor.NewVendor("Component Co")
	require.NoError(t, err)
	local.AttachSKU("S2")
	require.NoError(t, env.vendors.Save(ctx, local))

	ref := env.resolver.Resolve(ctx, "CB-C200", nil)
	assert.Equal(t, vendor.RefAssigned, ref.Kind)
	assert.Equal(t, "Component Co", ref.Name)
}

func TestVendorResolver_NoMatchIsExplicitlyUnassigned(t *testing.T) {
	env := newTestEnv(t, ResolverConfig{AutoCreateVendors: true})

	ref := env.resolver.Resolve(context.Background(), "UNKNOWN", nil)
	assert.Equal(t, vendor.RefUnassigned, ref.Kind)
}

func TestVendorResolver_SuggestionWithoutAutoCreateStaysPending(t *testing.T) {
	env := newTestEnv(t, ResolverConfig{AutoCreateVendors: false})
	ctx := context.Background()

	env.suggestions.table = map[string]string{"P100": "Suggested Co"}

	ref := env.resolver.Resolve(ctx, "P100", nil)
	assert.Equal(t, vendor.RefPendingSuggestion, ref.Kind)
	assert.Equal(t, "Suggested Co", ref.Name)

	_, err := env.vendors.FindByName(ctx, "Suggested Co")
	assert.Error(t, err)
}

func TestVendorResolver_AutoCreateRespectsAutoMap(t *testing.T) {
	t.Run("auto map enabled attaches the SKU", func(t *testing.T) {
		env := newTestEnv(t, ResolverConfig{AutoCreateVendors: true, AutoMapSKUs: true})
		ctx := context.Background()
		env.suggestions.table = map[string]string{"P100": "Fresh Co"}

		ref := env.resolver.Resolve(ctx, "P100", nil)
		require.Equal(t, vendor.RefAssigned, ref.Kind)

		created, err := env.vendors.FindByID(ctx, ref.VendorID)
		require.NoError(t, err)
		assert.True(t, created.HasSKU("P100"))
	})

	t.Run("auto map disabled leaves mappings empty", func(t *testing.T) {
		env := newTestEnv(t, ResolverConfig{AutoCreateVendors: true, AutoMapSKUs: false})
		ctx := context.Background()
		env.suggestions.table = map[string]string{"P100": "Fresh Co"}

		ref := env.resolver.Resolve(ctx, "P100", nil)
		require.Equal(t, vendor.RefAssigned, ref.Kind)

		created, err := env.vendors.FindByID(ctx, ref.VendorID)
		require.NoError(t, err)
		assert.Empty(t, created.SKUMappings)
	})
}

func TestVendorResolver_ExistingVendorAlwaysLearnsSKU(t *testing.T) {
	env := newTestEnv(t, ResolverConfig{AutoCreateVendors: false, AutoMapSKUs: false})
	ctx := context.Background()

	existing, err := vendor.NewVendor("Acme")
	require.NoError(t, err)
	require.NoError(t, env.vendors.Save(ctx, existing))
	env.suggestions.table = map[string]string{"P100": "Acme"}

	ref := env.resolver.Resolve(ctx, "P100", nil)
	require.Equal(t, vendor.RefAssigned, ref.Kind)

	got, err := env.vendors.FindByID(ctx, existing.ID)
	require.NoError(t, err)
	assert.True(t, got.HasSKU("P100"))
}

func TestVendorResolver_SourceFailureDegradesToNextStep(t *testing.T) {
	env := newTestEnv(t, ResolverConfig{})
	ctx := context.Background()

	env.suggestions.err = assert.AnError
	env.composites.err = assert.AnError

	local, err := vendor.NewVendor("Local Co")
	require.NoError(t, err)
	local.AttachSKU("P100")
	require.NoError(t, env.vendors.Save(ctx, local))

	ref := env.resolver.Resolve(ctx, "P100", nil)
	assert.Equal(t, vendor.RefAssigned, ref.Kind)
}
