package sync

import (
	"context"
	stdsync "sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/stocksync/backend/internal/domain/extledger"
	"github.com/stocksync/backend/internal/domain/ledger"
	"github.com/stocksync/backend/internal/domain/shared/valueobject"
	"github.com/stocksync/backend/internal/domain/sku"
	"github.com/stocksync/backend/internal/infrastructure/lock"
	"github.com/stocksync/backend/internal/infrastructure/persistence"
	"github.com/stocksync/backend/internal/infrastructure/persistence/models"
)

// stubComposites serves a fixed composite map snapshot
type stubComposites struct {
	m *sku.CompositeMap
}

func (s *stubComposites) GetCompositeMap(context.Context) (*sku.CompositeMap, error) {
	if s.m == nil {
		return sku.NewCompositeMap(), nil
	}
	return s.m, nil
}

func (s *stubComposites) Invalidate() {}

type cellKey struct {
	location valueobject.Location
	sku      string
	txType   ledger.Type
	column   int
}

// fakeLedger is an in-memory extledger.Ledger. Rows must be seeded; the sync
// engine never creates them.
type fakeLedger struct {
	mu      stdsync.Mutex
	columns map[valueobject.Location][]time.Time
	rows    map[valueobject.Location]map[string]bool
	cells   map[cellKey]int64

	writeCount     int
	provisionCount int
	writeErr       error
	// writeGate, when set, blocks every write until the gate closes or the
	// context is cancelled
	writeGate chan struct{}
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		columns: make(map[valueobject.Location][]time.Time),
		rows:    make(map[valueobject.Location]map[string]bool),
		cells:   make(map[cellKey]int64),
	}
}

func (f *fakeLedger) seedRow(location valueobject.Location, skus ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.rows[location] == nil {
		f.rows[location] = make(map[string]bool)
	}
	for _, s := range skus {
		f.rows[location][s] = true
	}
}

func (f *fakeLedger) seedCell(location valueobject.Location, s string, txType ledger.Type, date time.Time, value int64) {
	column := f.mustColumn(location, date)
	f.mu.Lock()
	f.cells[cellKey{location: location, sku: s, txType: txType, column: column}] = value
	f.mu.Unlock()
}

func (f *fakeLedger) cell(location valueobject.Location, s string, txType ledger.Type, date time.Time) int64 {
	column := f.mustColumn(location, date)
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cells[cellKey{location: location, sku: s, txType: txType, column: column}]
}

func (f *fakeLedger) mustColumn(location valueobject.Location, date time.Time) int {
	column, err := f.FindOrCreateDateColumn(context.Background(), location, date)
	if err != nil {
		panic(err)
	}
	return column
}

func (f *fakeLedger) SpreadsheetID() string { return "fake-sheet" }

func (f *fakeLedger) GetHeaderRow(_ context.Context, location valueobject.Location) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	header := []string{"SKU", "Type"}
	for _, date := range f.columns[location] {
		header = append(header, date.Format("2006-01-02"))
	}
	return header, nil
}

func (f *fakeLedger) FindOrCreateDateColumn(_ context.Context, location valueobject.Location, date time.Time) (int, error) {
	day := ledger.DayOf(date)
	f.mu.Lock()
	defer f.mu.Unlock()
	for idx, existing := range f.columns[location] {
		if existing.Equal(day) {
			return 3 + idx, nil
		}
	}
	f.columns[location] = append(f.columns[location], day)
	f.provisionCount++
	return 2 + len(f.columns[location]), nil
}

func (f *fakeLedger) ReadCell(_ context.Context, location valueobject.Location, s string, txType ledger.Type, column int) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.rows[location][s] {
		return 0, extledger.ErrSKUNotFound
	}
	return f.cells[cellKey{location: location, sku: s, txType: txType, column: column}], nil
}

func (f *fakeLedger) WriteCell(ctx context.Context, location valueobject.Location, s string, txType ledger.Type, column int, value int64) error {
	if f.writeGate != nil {
		select {
		case <-f.writeGate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	if !f.rows[location][s] {
		return extledger.ErrSKUNotFound
	}
	f.cells[cellKey{location: location, sku: s, txType: txType, column: column}] = value
	f.writeCount++
	return nil
}

func (f *fakeLedger) GetExistingValuesForDate(ctx context.Context, location valueobject.Location, date time.Time, skus []string) (map[string]extledger.CellValue, error) {
	column, err := f.FindOrCreateDateColumn(ctx, location, date)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	values := make(map[string]extledger.CellValue)
	for _, s := range skus {
		if !f.rows[location][s] {
			continue
		}
		values[s] = extledger.CellValue{
			Sales:    f.cells[cellKey{location: location, sku: s, txType: ledger.TypeSales, column: column}],
			Purchase: f.cells[cellKey{location: location, sku: s, txType: ledger.TypePurchase, column: column}],
			Return:   f.cells[cellKey{location: location, sku: s, txType: ledger.TypeReturn, column: column}],
		}
	}
	return values, nil
}

var _ extledger.Ledger = (*fakeLedger)(nil)

// testEnv wires the sync services over an in-memory database and fake ledger
type testEnv struct {
	transactions *persistence.GormTransactionRepository
	external     *fakeLedger
	composites   *stubComposites
	syncs        *SyncService
	conflicts    *ConflictService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.AllModels()...))

	logger := zap.NewNop()
	env := &testEnv{
		transactions: persistence.NewGormTransactionRepository(db),
		external:     newFakeLedger(),
		composites:   &stubComposites{},
	}
	expander := sku.NewExpander(env.composites, logger)
	env.syncs = NewSyncService(env.transactions, env.external, expander, lock.NewKeyedMutex(), logger)
	env.conflicts = NewConflictService(env.syncs, logger)
	return env
}
