package procurement

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/stocksync/backend/internal/domain/ledger"
	"github.com/stocksync/backend/internal/domain/order"
	"github.com/stocksync/backend/internal/domain/shared"
	"github.com/stocksync/backend/internal/domain/shared/valueobject"
	"github.com/stocksync/backend/internal/domain/vendor"
)

// OrderService handles order CRUD outside the stage lifecycle
type OrderService struct {
	orders       order.Repository
	transactions ledger.Repository
	logger       *zap.Logger
}

// NewOrderService creates a new OrderService
func NewOrderService(orders order.Repository, transactions ledger.Repository, logger *zap.Logger) *OrderService {
	return &OrderService{orders: orders, transactions: transactions, logger: logger}
}

// Create creates a new order in the Initial stage
func (s *OrderService) Create(ctx context.Context, req CreateOrderRequest) (*OrderResponse, error) {
	if _, err := s.orders.FindByOrderNumber(ctx, req.OrderNumber); err == nil {
		return nil, shared.NewDomainError("DUPLICATE_ORDER_NUMBER",
			fmt.Sprintf("Order number %q already exists", req.OrderNumber))
	} else if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	o, err := order.NewOrder(req.OrderNumber)
	if err != nil {
		return nil, err
	}
	if req.Remark != "" {
		o.SetRemark(req.Remark)
	}

	for _, itemReq := range req.Items {
		item, err := o.AddItem(itemReq.SKU, itemReq.Quantity, valueobject.Location(itemReq.Warehouse), vendor.Unassigned())
		if err != nil {
			return nil, err
		}
		if !itemReq.UnitCost.IsZero() {
			if err := o.GetItem(item.ID).SetUnitCost(itemReq.UnitCost); err != nil {
				return nil, err
			}
		}
	}

	if err := s.orders.Save(ctx, o); err != nil {
		return nil, err
	}

	s.logger.Info("order created",
		zap.String("order_number", o.OrderNumber),
		zap.Int("items", o.ItemCount()),
	)
	resp := ToOrderResponse(o)
	return &resp, nil
}

// Get loads one order by ID
func (s *OrderService) Get(ctx context.Context, id uuid.UUID) (*OrderResponse, error) {
	o, err := s.orders.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToOrderResponse(o)
	return &resp, nil
}

// List lists orders, optionally narrowed to one stage
func (s *OrderService) List(ctx context.Context, stage string, filter shared.Filter) ([]OrderResponse, int64, error) {
	var (
		all []order.Order
		err error
	)
	if stage != "" {
		target := order.Stage(stage)
		if !target.IsValid() {
			return nil, 0, shared.NewDomainError("INVALID_STAGE", fmt.Sprintf("Unknown stage %q", stage))
		}
		all, err = s.orders.FindByStage(ctx, target, filter)
		filter.Filters["stage"] = stage
	} else {
		all, err = s.orders.FindAll(ctx, filter)
	}
	if err != nil {
		return nil, 0, err
	}

	total, err := s.orders.Count(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]OrderResponse, len(all))
	for i := range all {
		responses[i] = ToOrderResponse(&all[i])
	}
	return responses, total, nil
}

// AddItem adds an item to an existing order
func (s *OrderService) AddItem(ctx context.Context, orderID uuid.UUID, req CreateOrderItemRequest) (*OrderResponse, error) {
	o, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	item, err := o.AddItem(req.SKU, req.Quantity, valueobject.Location(req.Warehouse), vendor.Unassigned())
	if err != nil {
		return nil, err
	}
	if !req.UnitCost.IsZero() {
		if err := o.GetItem(item.ID).SetUnitCost(req.UnitCost); err != nil {
			return nil, err
		}
	}

	if err := s.orders.SaveWithLock(ctx, o); err != nil {
		return nil, err
	}
	resp := ToOrderResponse(o)
	return &resp, nil
}

// UpdateItemQuantity changes an item's quantity
func (s *OrderService) UpdateItemQuantity(ctx context.Context, orderID, itemID uuid.UUID, req UpdateItemQuantityRequest) (*OrderResponse, error) {
	o, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := o.UpdateItemQuantity(itemID, req.Quantity); err != nil {
		return nil, err
	}
	if err := s.orders.SaveWithLock(ctx, o); err != nil {
		return nil, err
	}
	resp := ToOrderResponse(o)
	return &resp, nil
}

// RemoveItem removes an item from an order
func (s *OrderService) RemoveItem(ctx context.Context, orderID, itemID uuid.UUID) (*OrderResponse, error) {
	o, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if _, err := o.RemoveItem(itemID); err != nil {
		return nil, err
	}
	if err := s.orders.SaveWithLock(ctx, o); err != nil {
		return nil, err
	}
	resp := ToOrderResponse(o)
	return &resp, nil
}

// Delete removes an order together with the transactions it sourced
func (s *OrderService) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.orders.FindByID(ctx, id); err != nil {
		return err
	}
	if err := s.transactions.DeleteBySourceOrder(ctx, id); err != nil {
		return err
	}
	if err := s.orders.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("order deleted", zap.String("order_id", id.String()))
	return nil
}
