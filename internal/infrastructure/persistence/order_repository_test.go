package persistence

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/stocksync/backend/internal/domain/order"
	"github.com/stocksync/backend/internal/domain/shared"
	"github.com/stocksync/backend/internal/domain/shared/valueobject"
	"github.com/stocksync/backend/internal/domain/vendor"
	"github.com/stocksync/backend/internal/infrastructure/persistence/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(models.AllModels()...)
	require.NoError(t, err)

	return db
}

func newTestOrder(t *testing.T, number string) *order.Order {
	o, err := order.NewOrder(number)
	require.NoError(t, err)
	return o
}

func TestGormOrderRepository_SaveAndFindByID(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormOrderRepository(db)
	ctx := context.Background()

	vendorID := uuid.New()
	o := newTestOrder(t, "ORD-001")
	_, err := o.AddItem("p100", 5, valueobject.LocationA, vendor.Assigned(vendorID, "Acme"))
	require.NoError(t, err)
	_, err = o.AddItem("P200", 2, valueobject.LocationDirect, vendor.PendingSuggestion("Globex"))
	require.NoError(t, err)
	require.NoError(t, o.MoveToStage(order.StageProcessed, "batch run"))

	require.NoError(t, repo.Save(ctx, o))

	got, err := repo.FindByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, "ORD-001", got.OrderNumber)
	assert.Equal(t, order.StageProcessed, got.Stage)
	require.Len(t, got.Items, 2)
	require.Len(t, got.History, 1)
	assert.Equal(t, order.StageInitial, got.History[0].From)
	assert.Equal(t, order.StageProcessed, got.History[0].To)

	bySKU := map[string]order.OrderItem{}
	for _, item := range got.Items {
		bySKU[item.SKU] = item
	}
	require.Contains(t, bySKU, "P100")
	assert.Equal(t, vendor.RefAssigned, bySKU["P100"].Vendor.Kind)
	assert.Equal(t, vendorID, bySKU["P100"].Vendor.VendorID)
	assert.Equal(t, "Acme", bySKU["P100"].Vendor.Name)
	require.Contains(t, bySKU, "P200")
	assert.Equal(t, vendor.RefPendingSuggestion, bySKU["P200"].Vendor.Kind)
	assert.Equal(t, "Globex", bySKU["P200"].Vendor.Name)
}

func TestGormOrderRepository_FindByIDNotFound(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormOrderRepository(db)

	_, err := repo.FindByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestGormOrderRepository_FindByOrderNumber(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormOrderRepository(db)
	ctx := context.Background()

	o := newTestOrder(t, "ORD-002")
	require.NoError(t, repo.Save(ctx, o))

	got, err := repo.FindByOrderNumber(ctx, "ORD-002")
	require.NoError(t, err)
	assert.Equal(t, o.ID, got.ID)

	_, err = repo.FindByOrderNumber(ctx, "ORD-MISSING")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestGormOrderRepository_SaveRemovesDroppedItems(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormOrderRepository(db)
	ctx := context.Background()

	o := newTestOrder(t, "ORD-003")
	item, err := o.AddItem("P100", 5, valueobject.LocationA, vendor.Unassigned())
	require.NoError(t, err)
	_, err = o.AddItem("P200", 1, valueobject.LocationA, vendor.Unassigned())
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, o))

	_, err = o.RemoveItem(item.ID)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, o))

	got, err := repo.FindByID(ctx, o.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "P200", got.Items[0].SKU)
}

func TestGormOrderRepository_SaveAgainKeepsPersistedHistory(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormOrderRepository(db)
	ctx := context.Background()

	o := newTestOrder(t, "ORD-HIST")
	require.NoError(t, o.MoveToStage(order.StageProcessed, "first"))
	require.NoError(t, repo.Save(ctx, o))

	// Saving again with the first entry already persisted must not fail
	got, err := repo.FindByID(ctx, o.ID)
	require.NoError(t, err)
	require.NoError(t, got.MoveToStage(order.StagePending, "second"))
	require.NoError(t, repo.Save(ctx, got))

	require.NoError(t, got.MoveToStage(order.StageInStock, "third"))
	require.NoError(t, repo.SaveWithLock(ctx, got))

	final, err := repo.FindByID(ctx, o.ID)
	require.NoError(t, err)
	require.Len(t, final.History, 3)
	assert.Equal(t, order.StageProcessed, final.History[0].To)
	assert.Equal(t, order.StagePending, final.History[1].To)
	assert.Equal(t, order.StageInStock, final.History[2].To)
}

func TestGormOrderRepository_FindByStage(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormOrderRepository(db)
	ctx := context.Background()

	a := newTestOrder(t, "ORD-A")
	b := newTestOrder(t, "ORD-B")
	require.NoError(t, b.MoveToStage(order.StagePending, ""))
	require.NoError(t, repo.Save(ctx, a))
	require.NoError(t, repo.Save(ctx, b))

	initial, err := repo.FindByStage(ctx, order.StageInitial, shared.DefaultFilter())
	require.NoError(t, err)
	require.Len(t, initial, 1)
	assert.Equal(t, "ORD-A", initial[0].OrderNumber)

	pending, err := repo.FindByStage(ctx, order.StagePending, shared.DefaultFilter())
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "ORD-B", pending[0].OrderNumber)
}

func TestGormOrderRepository_FindOpenByStageAndVendor(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormOrderRepository(db)
	ctx := context.Background()

	acmeID := uuid.New()
	otherID := uuid.New()

	// All items belong to Acme: qualifies
	pure := newTestOrder(t, "ORD-PURE")
	require.NoError(t, pure.MoveToStage(order.StageProcessed, ""))
	_, err := pure.AddItem("P100", 1, valueobject.LocationA, vendor.Assigned(acmeID, "Acme"))
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, pure))

	// Mixed vendors: excluded
	mixed := newTestOrder(t, "ORD-MIXED")
	require.NoError(t, mixed.MoveToStage(order.StageProcessed, ""))
	_, err = mixed.AddItem("P200", 1, valueobject.LocationA, vendor.Assigned(acmeID, "Acme"))
	require.NoError(t, err)
	_, err = mixed.AddItem("P300", 1, valueobject.LocationA, vendor.Assigned(otherID, "Other"))
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, mixed))

	// Wrong stage: excluded
	wrongStage := newTestOrder(t, "ORD-STAGE")
	_, err = wrongStage.AddItem("P400", 1, valueobject.LocationA, vendor.Assigned(acmeID, "Acme"))
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, wrongStage))

	got, err := repo.FindOpenByStageAndVendor(ctx, order.StageProcessed, acmeID)
	require.NoError(t, err)
	assert.Equal(t, "ORD-PURE", got.OrderNumber)

	_, err = repo.FindOpenByStageAndVendor(ctx, order.StageProcessed, uuid.New())
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestGormOrderRepository_SaveWithLockDetectsConflict(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormOrderRepository(db)
	ctx := context.Background()

	o := newTestOrder(t, "ORD-LOCK")
	require.NoError(t, repo.Save(ctx, o))

	first, err := repo.FindByID(ctx, o.ID)
	require.NoError(t, err)
	second, err := repo.FindByID(ctx, o.ID)
	require.NoError(t, err)

	require.NoError(t, first.MoveToStage(order.StagePending, ""))
	require.NoError(t, repo.SaveWithLock(ctx, first))

	require.NoError(t, second.MoveToStage(order.StageHold, ""))
	err = repo.SaveWithLock(ctx, second)
	assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
}

func TestGormOrderRepository_DeleteCascades(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormOrderRepository(db)
	ctx := context.Background()

	o := newTestOrder(t, "ORD-DEL")
	_, err := o.AddItem("P100", 1, valueobject.LocationA, vendor.Unassigned())
	require.NoError(t, err)
	require.NoError(t, o.MoveToStage(order.StageHold, ""))
	require.NoError(t, repo.Save(ctx, o))

	require.NoError(t, repo.Delete(ctx, o.ID))

	_, err = repo.FindByID(ctx, o.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	var itemCount, historyCount int64
	require.NoError(t, db.Model(&models.OrderItemModel{}).Count(&itemCount).Error)
	require.NoError(t, db.Model(&models.StageChangeModel{}).Count(&historyCount).Error)
	assert.Zero(t, itemCount)
	assert.Zero(t, historyCount)

	assert.ErrorIs(t, repo.Delete(ctx, uuid.New()), shared.ErrNotFound)
}

func TestGormOrderRepository_ReassignVendor(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormOrderRepository(db)
	ctx := context.Background()

	acmeID := uuid.New()
	o := newTestOrder(t, "ORD-MERGE")
	_, err := o.AddItem("P100", 1, valueobject.LocationA, vendor.PendingSuggestion("Acme Ltd"))
	require.NoError(t, err)
	_, err = o.AddItem("P200", 1, valueobject.LocationA, vendor.PendingSuggestion("Someone Else"))
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, o))

	err = repo.ReassignVendor(ctx, vendor.PendingSuggestion("Acme Ltd"), vendor.Assigned(acmeID, "Acme"))
	require.NoError(t, err)

	got, err := repo.FindByID(ctx, o.ID)
	require.NoError(t, err)
	bySKU := map[string]order.OrderItem{}
	for _, item := range got.Items {
		bySKU[item.SKU] = item
	}
	assert.Equal(t, vendor.RefAssigned, bySKU["P100"].Vendor.Kind)
	assert.Equal(t, acmeID, bySKU["P100"].Vendor.VendorID)
	assert.Equal(t, vendor.RefPendingSuggestion, bySKU["P200"].Vendor.Kind)
}

func TestGormOrderRepository_Count(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormOrderRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, newTestOrder(t, "ORD-1")))
	require.NoError(t, repo.Save(ctx, newTestOrder(t, "ORD-2")))

	count, err := repo.Count(ctx, shared.DefaultFilter())
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	filter := shared.DefaultFilter()
	filter.Filters["stage"] = string(order.StageInitial)
	count, err = repo.Count(ctx, filter)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}
