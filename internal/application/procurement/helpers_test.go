package procurement

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/stocksync/backend/internal/domain/ledger"
	"github.com/stocksync/backend/internal/domain/sku"
	"github.com/stocksync/backend/internal/infrastructure/persistence"
	"github.com/stocksync/backend/internal/infrastructure/persistence/models"
)

// stubComposites serves a fixed composite map snapshot
type stubComposites struct {
	m   *sku.CompositeMap
	err error
}

func (s *stubComposites) GetCompositeMap(context.Context) (*sku.CompositeMap, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.m == nil {
		return sku.NewCompositeMap(), nil
	}
	return s.m, nil
}

func (s *stubComposites) Invalidate() {}

// stubSuggestions serves a fixed suggestion table
type stubSuggestions struct {
	table map[string]string
	err   error
}

func (s *stubSuggestions) GetVendorSuggestions(context.Context) (map[string]string, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.table, nil
}

func (s *stubSuggestions) Invalidate() {}

// testEnv wires the procurement services over an in-memory database
type testEnv struct {
	orders       *persistence.GormOrderRepository
	vendors      *persistence.GormVendorRepository
	transactions *persistence.GormTransactionRepository
	composites   *stubComposites
	suggestions  *stubSuggestions
	expander     *sku.Expander
	resolver     *VendorResolver
	stages       *StageService
	orderService *OrderService
}

func newTestEnv(t *testing.T, cfg ResolverConfig) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.AllModels()...))

	logger := zap.NewNop()
	env := &testEnv{
		orders:       persistence.NewGormOrderRepository(db),
		vendors:      persistence.NewGormVendorRepository(db),
		transactions: persistence.NewGormTransactionRepository(db),
		composites:   &stubComposites{},
		suggestions:  &stubSuggestions{},
	}
	env.expander = sku.NewExpander(env.composites, logger)
	env.resolver = NewVendorResolver(env.vendors, env.suggestions, env.composites, env.expander, cfg, logger)
	guard := ledger.NewGuard(env.transactions, logger)
	env.stages = NewStageService(env.orders, env.vendors, guard, env.expander, env.resolver, logger)
	env.orderService = NewOrderService(env.orders, env.transactions, logger)
	return env
}
