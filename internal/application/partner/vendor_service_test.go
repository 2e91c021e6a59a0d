package partner

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/stocksync/backend/internal/domain/ledger"
	"github.com/stocksync/backend/internal/domain/order"
	"github.com/stocksync/backend/internal/domain/shared"
	"github.com/stocksync/backend/internal/domain/shared/valueobject"
	"github.com/stocksync/backend/internal/domain/vendor"
	"github.com/stocksync/backend/internal/infrastructure/persistence"
	"github.com/stocksync/backend/internal/infrastructure/persistence/models"
)

type testEnv struct {
	orders       *persistence.GormOrderRepository
	vendors      *persistence.GormVendorRepository
	transactions *persistence.GormTransactionRepository
	service      *VendorService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.AllModels()...))

	env := &testEnv{
		orders:       persistence.NewGormOrderRepository(db),
		vendors:      persistence.NewGormVendorRepository(db),
		transactions: persistence.NewGormTransactionRepository(db),
	}
	env.service = NewVendorService(env.vendors, env.orders, env.transactions, zap.NewNop())
	return env
}

func TestVendorService_CreateAndGet(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	created, err := env.service.Create(ctx, CreateVendorRequest{
		Name:        "Acme",
		ContactName: "Jo",
		Email:       "jo@acme.test",
		SKUs:        []string{"p100", "P100", "P200"},
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"P100", "P200"}, created.SKUs)
	assert.False(t, created.Sentinel)

	got, err := env.service.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Acme", got.Name)
	assert.Equal(t, "jo@acme.test", got.Email)
}

func TestVendorService_CreateRejectsDuplicateName(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.service.Create(ctx, CreateVendorRequest{Name: "Acme"})
	require.NoError(t, err)

	_, err = env.service.Create(ctx, CreateVendorRequest{Name: " acme "})
	require.Error(t, err)
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "DUPLICATE_VENDOR_NAME", domainErr.Code)
}

func TestVendorService_UpdateReplacesMappings(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	created, err := env.service.Create(ctx, CreateVendorRequest{Name: "Acme", SKUs: []string{"P100"}})
	require.NoError(t, err)

	phone := "555-0100"
	updated, err := env.service.Update(ctx, created.ID, UpdateVendorRequest{
		Phone: &phone,
		SKUs:  []string{"P300", "P400"},
	})
	require.NoError(t, err)
	assert.Equal(t, "555-0100", updated.Phone)
	assert.ElementsMatch(t, []string{"P300", "P400"}, updated.SKUs)
}

func TestVendorService_MergeRewritesReferences(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	keep, err := env.service.Create(ctx, CreateVendorRequest{Name: "Acme", SKUs: []string{"P100"}})
	require.NoError(t, err)
	dup, err := env.service.Create(ctx, CreateVendorRequest{Name: "Acme Ltd", SKUs: []string{"P200"}})
	require.NoError(t, err)

	o, err := order.NewOrder("ORD-1")
	require.NoError(t, err)
	_, err = o.AddItem("P200", 1, valueobject.LocationA, vendor.Assigned(dup.ID, dup.Name))
	require.NoError(t, err)
	require.NoError(t, env.orders.Save(ctx, o))

	tx, err := ledger.NewTransaction(ledger.TypePurchase, valueobject.LocationA, o.CreatedAt,
		[]ledger.Line{{SKU: "P200", Quantity: 1, OrderID: o.ID, Vendor: vendor.Assigned(dup.ID, dup.Name)}},
		nil, true)
	require.NoError(t, err)
	require.NoError(t, env.transactions.Save(ctx, tx))

	merged, err := env.service.Merge(ctx, dup.ID, MergeVendorRequest{KeepID: keep.ID})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"P100", "P200"}, merged.SKUs)

	_, err = env.service.Get(ctx, dup.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	gotOrder, err := env.orders.FindByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, keep.ID, gotOrder.Items[0].Vendor.VendorID)
	assert.Equal(t, "Acme", gotOrder.Items[0].Vendor.Name)

	gotTx, err := env.transactions.FindByID(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, keep.ID, gotTx.Lines[0].Vendor.VendorID)
}

func TestVendorService_MergeGuards(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	created, err := env.service.Create(ctx, CreateVendorRequest{Name: "Acme"})
	require.NoError(t, err)

	_, err = env.service.Merge(ctx, created.ID, MergeVendorRequest{KeepID: created.ID})
	require.Error(t, err)

	sentinel, err := env.service.EnsureUnassigned(ctx)
	require.NoError(t, err)
	_, err = env.service.Merge(ctx, sentinel.ID, MergeVendorRequest{KeepID: created.ID})
	require.Error(t, err)
}

func TestVendorService_DeleteUnassignsReferences(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	created, err := env.service.Create(ctx, CreateVendorRequest{Name: "Acme"})
	require.NoError(t, err)

	o, err := order.NewOrder("ORD-1")
	require.NoError(t, err)
	_, err = o.AddItem("P100", 1, valueobject.LocationA, vendor.Assigned(created.ID, created.Name))
	require.NoError(t, err)
	require.NoError(t, env.orders.Save(ctx, o))

	require.NoError(t, env.service.Delete(ctx, created.ID))

	gotOrder, err := env.orders.FindByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, vendor.RefUnassigned, gotOrder.Items[0].Vendor.Kind)

	assert.ErrorIs(t, env.service.Delete(ctx, uuid.New()), shared.ErrNotFound)
}

func TestVendorService_EnsureUnassignedIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first, err := env.service.EnsureUnassigned(ctx)
	require.NoError(t, err)
	assert.True(t, first.IsUnassignedSentinel())

	second, err := env.service.EnsureUnassigned(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	assert.Error(t, env.service.Delete(ctx, first.ID))
}
