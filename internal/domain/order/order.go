package order

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stocksync/backend/internal/domain/shared"
	"github.com/stocksync/backend/internal/domain/shared/valueobject"
	"github.com/stocksync/backend/internal/domain/sku"
	"github.com/stocksync/backend/internal/domain/vendor"
)

// Stage represents where an order sits in the procurement lifecycle
type Stage string

const (
	StageInitial   Stage = "INITIAL"
	StageProcessed Stage = "PROCESSED"
	StagePending   Stage = "PENDING"
	StageInStock   Stage = "IN_STOCK"
	StageHold      Stage = "HOLD"
	StageCompleted Stage = "COMPLETED"
	StageFulfilled Stage = "FULFILLED"
)

// String returns the string representation of Stage
func (s Stage) String() string {
	return string(s)
}

// IsValid checks if the stage is a known value
func (s Stage) IsValid() bool {
	switch s {
	case StageInitial, StageProcessed, StagePending, StageInStock,
		StageHold, StageCompleted, StageFulfilled:
		return true
	}
	return false
}

// IsTerminal returns true for stages past which no transactional side
// effects are produced. Transitions out of terminal stages remain legal;
// only the ledger side effects stop.
func (s Stage) IsTerminal() bool {
	return s == StageCompleted || s == StageFulfilled
}

// ReceivedStatus tracks receipt progress for purchase-tracked items
type ReceivedStatus string

const (
	ReceivedStatusPending  ReceivedStatus = "PENDING"
	ReceivedStatusPartial  ReceivedStatus = "PARTIAL"
	ReceivedStatusReceived ReceivedStatus = "RECEIVED"
)

// String returns the string representation of ReceivedStatus
func (s ReceivedStatus) String() string {
	return string(s)
}

// StageChange is one immutable entry in an order's transition history
type StageChange struct {
	From   Stage
	To     Stage
	At     time.Time
	Reason string
}

// OrderItem represents a purchasable line on an order
type OrderItem struct {
	ID               uuid.UUID
	OrderID          uuid.UUID
	SKU              string // canonical form
	Quantity         int64  // absolute quantity, never a delta
	Vendor           vendor.Ref
	Warehouse        valueobject.Location
	UnitCost         decimal.Decimal // optional, zero when unknown
	Processed        bool
	ProcessedAt      *time.Time
	ReceivedQuantity int64
	ReceivedStatus   ReceivedStatus
	ReceivedAt       *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// NewOrderItem creates a new order item
func NewOrderItem(orderID uuid.UUID, rawSKU string, quantity int64, warehouse valueobject.Location, vendorRef vendor.Ref) (*OrderItem, error) {
	s := sku.Canonical(rawSKU)
	if s == "" {
		return nil, shared.NewDomainError("INVALID_SKU", "SKU cannot be empty")
	}
	if quantity <= 0 {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	if !warehouse.IsValid() {
		return nil, shared.NewDomainError("INVALID_WAREHOUSE", fmt.Sprintf("Unknown warehouse %q", warehouse))
	}

	now := time.Now()
	return &OrderItem{
		ID:             uuid.New(),
		OrderID:        orderID,
		SKU:            s,
		Quantity:       quantity,
		Vendor:         vendorRef.Normalize(),
		Warehouse:      warehouse,
		UnitCost:       decimal.Zero,
		ReceivedStatus: ReceivedStatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// SetUnitCost sets the purchase cost per unit
func (i *OrderItem) SetUnitCost(cost decimal.Decimal) error {
	if cost.IsNegative() {
		return shared.NewDomainError("INVALID_COST", "Unit cost cannot be negative")
	}
	i.UnitCost = cost
	i.UpdatedAt = time.Now()
	return nil
}

// MarkProcessed stamps the item as moved into a procurement batch
func (i *OrderItem) MarkProcessed(at time.Time) {
	i.Processed = true
	i.ProcessedAt = &at
	i.UpdatedAt = at
}

// Receive records the absolute received quantity for the item.
// The receipt timestamp refreshes only when the received quantity strictly
// increases over the previously stored value; corrections downward keep the
// original timestamp.
func (i *OrderItem) Receive(receivedQty int64) error {
	if receivedQty < 0 {
		return shared.NewDomainError("INVALID_RECEIVED_QUANTITY", "Received quantity cannot be negative")
	}
	if receivedQty > i.Quantity {
		return shared.NewDomainError("INVALID_RECEIVED_QUANTITY",
			fmt.Sprintf("Received quantity %d exceeds ordered quantity %d", receivedQty, i.Quantity))
	}

	previous := i.ReceivedQuantity
	i.ReceivedQuantity = receivedQty
	switch {
	case receivedQty == 0:
		i.ReceivedStatus = ReceivedStatusPending
	case receivedQty < i.Quantity:
		i.ReceivedStatus = ReceivedStatusPartial
	default:
		i.ReceivedStatus = ReceivedStatusReceived
	}

	now := time.Now()
	if receivedQty > previous {
		i.ReceivedAt = &now
	}
	i.UpdatedAt = now
	return nil
}

// LineValue returns quantity times unit cost
func (i *OrderItem) LineValue() decimal.Decimal {
	return decimal.NewFromInt(i.Quantity).Mul(i.UnitCost)
}

// Order is the aggregate root tracking purchasable units through the
// procurement lifecycle. Stage transitions are recorded in an append-only
// history; the transactional side effects of a transition are decided by the
// application-layer stage engine, not here.
type Order struct {
	shared.BaseAggregateRoot
	OrderNumber string
	Stage       Stage
	Items       []OrderItem
	History     []StageChange
	Remark      string
}

// NewOrder creates a new order in the Initial stage
func NewOrder(orderNumber string) (*Order, error) {
	if orderNumber == "" {
		return nil, shared.NewDomainError("INVALID_ORDER_NUMBER", "Order number cannot be empty")
	}
	if len(orderNumber) > 50 {
		return nil, shared.NewDomainError("INVALID_ORDER_NUMBER", "Order number cannot exceed 50 characters")
	}

	o := &Order{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		OrderNumber:       orderNumber,
		Stage:             StageInitial,
		Items:             make([]OrderItem, 0),
		History:           make([]StageChange, 0),
	}

	o.AddDomainEvent(NewOrderCreatedEvent(o))

	return o, nil
}

// AddItem adds a new item to the order. The same SKU may appear on multiple
// lines; batched processing merges lines from different source orders into
// one vendor order.
func (o *Order) AddItem(rawSKU string, quantity int64, warehouse valueobject.Location, vendorRef vendor.Ref) (*OrderItem, error) {
	item, err := NewOrderItem(o.ID, rawSKU, quantity, warehouse, vendorRef)
	if err != nil {
		return nil, err
	}
	o.Items = append(o.Items, *item)
	o.UpdatedAt = time.Now()
	return item, nil
}

// AppendItem re-attaches an existing item to this order, used when a batch
// move pulls items out of their source orders
func (o *Order) AppendItem(item OrderItem) {
	item.OrderID = o.ID
	item.UpdatedAt = time.Now()
	o.Items = append(o.Items, item)
	o.UpdatedAt = item.UpdatedAt
}

// UpdateItemQuantity updates the quantity of an existing item. The received
// quantity invariant is re-checked against the new quantity.
func (o *Order) UpdateItemQuantity(itemID uuid.UUID, quantity int64) error {
	if quantity <= 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	item := o.GetItem(itemID)
	if item == nil {
		return shared.NewDomainError("ITEM_NOT_FOUND", "Order item not found")
	}
	if item.ReceivedQuantity > quantity {
		return shared.NewDomainError("INVALID_QUANTITY",
			fmt.Sprintf("Quantity %d cannot drop below received quantity %d", quantity, item.ReceivedQuantity))
	}
	item.Quantity = quantity
	item.UpdatedAt = time.Now()
	o.UpdatedAt = item.UpdatedAt
	return nil
}

// RemoveItem removes an item from the order and returns it
func (o *Order) RemoveItem(itemID uuid.UUID) (*OrderItem, error) {
	for idx, item := range o.Items {
		if item.ID == itemID {
			removed := item
			o.Items = append(o.Items[:idx], o.Items[idx+1:]...)
			o.UpdatedAt = time.Now()
			return &removed, nil
		}
	}
	return nil, shared.NewDomainError("ITEM_NOT_FOUND", "Order item not found")
}

// GetItem returns an item by its ID
func (o *Order) GetItem(itemID uuid.UUID) *OrderItem {
	for idx := range o.Items {
		if o.Items[idx].ID == itemID {
			return &o.Items[idx]
		}
	}
	return nil
}

// MoveToStage transitions the order to the target stage and appends an
// immutable history entry. Ledger side effects belong to the stage engine
// and are never rolled back by a failed side effect.
func (o *Order) MoveToStage(target Stage, reason string) error {
	if !target.IsValid() {
		return shared.NewDomainError("INVALID_STAGE", fmt.Sprintf("Unknown stage %q", target))
	}
	if target == o.Stage {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Order is already in %s stage", target))
	}

	now := time.Now()
	change := StageChange{
		From:   o.Stage,
		To:     target,
		At:     now,
		Reason: reason,
	}
	o.History = append(o.History, change)
	o.Stage = target
	o.UpdatedAt = now

	o.AddDomainEvent(NewOrderStageChangedEvent(o, change))

	return nil
}

// ReceiveItem records the received quantity for an item
func (o *Order) ReceiveItem(itemID uuid.UUID, receivedQty int64) error {
	item := o.GetItem(itemID)
	if item == nil {
		return shared.NewDomainError("ITEM_NOT_FOUND", "Order item not found")
	}
	if err := item.Receive(receivedQty); err != nil {
		return err
	}
	o.UpdatedAt = time.Now()
	o.AddDomainEvent(NewOrderItemReceivedEvent(o, item))
	return nil
}

// IsEmpty returns true when the order has no items left
func (o *Order) IsEmpty() bool {
	return len(o.Items) == 0
}

// ItemCount returns the number of items on the order
func (o *Order) ItemCount() int {
	return len(o.Items)
}

// TotalValue returns the sum of all line values
func (o *Order) TotalValue() decimal.Decimal {
	total := decimal.Zero
	for idx := range o.Items {
		total = total.Add(o.Items[idx].LineValue())
	}
	return total
}

// SetRemark sets the order remark
func (o *Order) SetRemark(remark string) {
	o.Remark = remark
	o.UpdatedAt = time.Now()
}
