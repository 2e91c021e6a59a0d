package procurement

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stocksync/backend/internal/domain/order"
	"github.com/stocksync/backend/internal/domain/shared"
	"github.com/stocksync/backend/internal/domain/shared/valueobject"
)

func TestOrderService_CreateAndGet(t *testing.T) {
	env := newTestEnv(t, ResolverConfig{})
	ctx := context.Background()

	created, err := env.orderService.Create(ctx, CreateOrderRequest{
		OrderNumber: "ORD-100",
		Remark:      "rush",
		Items: []CreateOrderItemRequest{
			{SKU: "p100", Quantity: 3, Warehouse: string(valueobject.LocationA), UnitCost: decimal.NewFromFloat(2.5)},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, string(order.StageInitial), created.Stage)
	require.Len(t, created.Items, 1)
	assert.Equal(t, "P100", created.Items[0].SKU)
	assert.True(t, decimal.NewFromFloat(7.5).Equal(created.TotalValue))

	got, err := env.orderService.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "ORD-100", got.OrderNumber)
	assert.Equal(t, "rush", got.Remark)
}

func TestOrderService_CreateRejectsDuplicateNumber(t *testing.T) {
	env := newTestEnv(t, ResolverConfig{})
	ctx := context.Background()

	_, err := env.orderService.Create(ctx, CreateOrderRequest{OrderNumber: "ORD-100"})
	require.NoError(t, err)

	_, err = env.orderService.Create(ctx, CreateOrderRequest{OrderNumber: "ORD-100"})
	require.Error(t, err)
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "DUPLICATE_ORDER_NUMBER", domainErr.Code)
}

func TestOrderService_ListByStage(t *testing.T) {
	env := newTestEnv(t, ResolverConfig{})
	ctx := context.Background()

	_, err := env.orderService.Create(ctx, CreateOrderRequest{OrderNumber: "ORD-1"})
	require.NoError(t, err)
	_, err = env.orderService.Create(ctx, CreateOrderRequest{OrderNumber: "ORD-2"})
	require.NoError(t, err)

	all, total, err := env.orderService.List(ctx, "", shared.DefaultFilter())
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Equal(t, int64(2), total)

	initial, _, err := env.orderService.List(ctx, string(order.StageInitial), shared.DefaultFilter())
	require.NoError(t, err)
	assert.Len(t, initial, 2)

	_, _, err = env.orderService.List(ctx, "BOGUS", shared.DefaultFilter())
	require.Error(t, err)
}

func TestOrderService_ItemMutations(t *testing.T) {
	env := newTestEnv(t, ResolverConfig{})
	ctx := context.Background()

	created, err := env.orderService.Create(ctx, CreateOrderRequest{
		OrderNumber: "ORD-MUT",
		Items: []CreateOrderItemRequest{
			{SKU: "P100", Quantity: 3, Warehouse: string(valueobject.LocationA)},
		},
	})
	require.NoError(t, err)

	withExtra, err := env.orderService.AddItem(ctx, created.ID, CreateOrderItemRequest{
		SKU: "P200", Quantity: 1, Warehouse: string(valueobject.LocationB),
	})
	require.NoError(t, err)
	require.Len(t, withExtra.Items, 2)

	updated, err := env.orderService.UpdateItemQuantity(ctx, created.ID, created.Items[0].ID, UpdateItemQuantityRequest{Quantity: 7})
	require.NoError(t, err)
	assert.Equal(t, int64(7), updated.Items[0].Quantity)

	trimmed, err := env.orderService.RemoveItem(ctx, created.ID, created.Items[0].ID)
	require.NoError(t, err)
	require.Len(t, trimmed.Items, 1)
	assert.Equal(t, "P200", trimmed.Items[0].SKU)
}

func TestOrderService_DeleteCascadesSourcedTransactions(t *testing.T) {
	env := newTestEnv(t, ResolverConfig{})
	ctx := context.Background()

	sentinelOrder := seedInitialOrder(t, env, "ORD-DEL", seedItem{SKU: "S1", Quantity: 1, Location: valueobject.LocationA})
	moved, err := env.stages.MoveToStage(ctx, sentinelOrder.ID, MoveStageRequest{Stage: "IN_STOCK"})
	require.NoError(t, err)
	require.Len(t, moved.TransactionIDs, 1)

	require.NoError(t, env.orderService.Delete(ctx, sentinelOrder.ID))

	_, err = env.orderService.Get(ctx, sentinelOrder.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	_, err = env.transactions.FindByID(ctx, moved.TransactionIDs[0])
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
