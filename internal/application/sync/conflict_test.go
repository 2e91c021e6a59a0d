package sync

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stocksync/backend/internal/domain/ledger"
	"github.com/stocksync/backend/internal/domain/shared/valueobject"
)

func TestConflictService_CheckConflictsFindsOccupiedDates(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	date := time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC)
	day := ledger.DayOf(date)
	env.external.seedRow(valueobject.LocationA, "X1", "X2")
	env.external.seedCell(valueobject.LocationA, "X1", ledger.TypeSales, date, 10)

	tx := seedTransaction(t, env, ledger.TypeSales, valueobject.LocationA, date,
		ledger.Line{SKU: "X1", Quantity: 5, OrderID: uuid.New()},
		ledger.Line{SKU: "X2", Quantity: 3, OrderID: uuid.New()},
	)

	conflicts, err := env.conflicts.CheckConflicts(ctx, CheckConflictsRequest{
		TransactionIDs: []uuid.UUID{tx.ID},
	})
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	assert.Equal(t, valueobject.LocationA, conflicts[0].Location)
	assert.True(t, conflicts[0].Date.Equal(day))
	// Only the occupied SKU is reported; X2's cell is empty
	assert.Equal(t, []string{"X1"}, conflicts[0].SKUs)
	assert.Equal(t, int64(10), conflicts[0].ExistingValues["X1"].Sales)
}

func TestConflictService_CheckConflictsCleanDate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	date := time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC)
	env.external.seedRow(valueobject.LocationA, "X1")
	tx := seedTransaction(t, env, ledger.TypeSales, valueobject.LocationA, date,
		ledger.Line{SKU: "X1", Quantity: 5, OrderID: uuid.New()})

	conflicts, err := env.conflicts.CheckConflicts(ctx, CheckConflictsRequest{
		TransactionIDs: []uuid.UUID{tx.ID},
	})
	require.NoError(t, err)
	assert.Empty(t, conflicts)
}

func TestConflictService_ResolveWithSumAddsToExisting(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	date := time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC)
	env.external.seedRow(valueobject.LocationA, "X1")
	env.external.seedCell(valueobject.LocationA, "X1", ledger.TypeSales, date, 10)

	tx := seedTransaction(t, env, ledger.TypeSales, valueobject.LocationA, date,
		ledger.Line{SKU: "X1", Quantity: 5, OrderID: uuid.New()})

	result, err := env.conflicts.ResolveDateConflict(ctx, ResolveConflictRequest{
		TransactionIDs: []uuid.UUID{tx.ID},
		Location:       valueobject.LocationA,
		Date:           date,
		Resolution:     ResolutionSum,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.SyncedCount)
	assert.Equal(t, int64(15), env.external.cell(valueobject.LocationA, "X1", ledger.TypeSales, date))

	got, err := env.transactions.FindByID(ctx, tx.ID)
	require.NoError(t, err)
	assert.True(t, got.SyncedToSheets)
}

func TestConflictService_ResolveWithReplaceOverwrites(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	date := time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC)
	env.external.seedRow(valueobject.LocationA, "X1")
	env.external.seedCell(valueobject.LocationA, "X1", ledger.TypeSales, date, 10)

	tx := seedTransaction(t, env, ledger.TypeSales, valueobject.LocationA, date,
		ledger.Line{SKU: "X1", Quantity: 5, OrderID: uuid.New()})

	_, err := env.conflicts.ResolveDateConflict(ctx, ResolveConflictRequest{
		TransactionIDs: []uuid.UUID{tx.ID},
		Location:       valueobject.LocationA,
		Date:           date,
		Resolution:     ResolutionReplace,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(5), env.external.cell(valueobject.LocationA, "X1", ledger.TypeSales, date))
}

func TestConflictService_ManualResolutionScopesToIncludedSKUs(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	date := time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC)
	env.external.seedRow(valueobject.LocationA, "X1", "X2")
	env.external.seedCell(valueobject.LocationA, "X1", ledger.TypeSales, date, 10)
	env.external.seedCell(valueobject.LocationA, "X2", ledger.TypeSales, date, 20)

	tx := seedTransaction(t, env, ledger.TypeSales, valueobject.LocationA, date,
		ledger.Line{SKU: "X1", Quantity: 5, OrderID: uuid.New()},
		ledger.Line{SKU: "X2", Quantity: 7, OrderID: uuid.New()},
	)

	result, err := env.conflicts.ResolveDateConflict(ctx, ResolveConflictRequest{
		TransactionIDs: []uuid.UUID{tx.ID},
		Location:       valueobject.LocationA,
		Date:           date,
		Resolution:     ResolutionManual,
		IncludeSKUs:    []string{"x1"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(15), env.external.cell(valueobject.LocationA, "X1", ledger.TypeSales, date))
	// Excluded SKU is untouched and reported as skipped
	assert.Equal(t, int64(20), env.external.cell(valueobject.LocationA, "X2", ledger.TypeSales, date))

	statuses := map[string]SKUStatus{}
	for _, r := range result.PerSKUResults {
		statuses[r.SKU] = r.Status
	}
	assert.Equal(t, SKUSynced, statuses["X1"])
	assert.Equal(t, SKUSkipped, statuses["X2"])
}

func TestConflictService_ManualResolutionRequiresIncludeList(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.conflicts.ResolveDateConflict(context.Background(), ResolveConflictRequest{
		TransactionIDs: []uuid.UUID{uuid.New()},
		Location:       valueobject.LocationA,
		Date:           time.Now(),
		Resolution:     ResolutionManual,
	})
	require.Error(t, err)
}

func TestConflictService_ResolveScopesToRequestedDate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	target := time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC)
	env.external.seedRow(valueobject.LocationA, "X1")
	env.external.seedRow(valueobject.LocationB, "X1")

	inScope := seedTransaction(t, env, ledger.TypeSales, valueobject.LocationA, target,
		ledger.Line{SKU: "X1", Quantity: 5, OrderID: uuid.New()})
	outOfScope := seedTransaction(t, env, ledger.TypeSales, valueobject.LocationB, target,
		ledger.Line{SKU: "X1", Quantity: 9, OrderID: uuid.New()})

	_, err := env.conflicts.ResolveDateConflict(ctx, ResolveConflictRequest{
		TransactionIDs: []uuid.UUID{inScope.ID, outOfScope.ID},
		Location:       valueobject.LocationA,
		Date:           target,
		Resolution:     ResolutionSum,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(5), env.external.cell(valueobject.LocationA, "X1", ledger.TypeSales, target))
	assert.Zero(t, env.external.cell(valueobject.LocationB, "X1", ledger.TypeSales, target))

	got, err := env.transactions.FindByID(ctx, outOfScope.ID)
	require.NoError(t, err)
	assert.False(t, got.SyncedToSheets)
}
