package order

import (
	"time"

	"github.com/google/uuid"
	"github.com/stocksync/backend/internal/domain/shared"
)

// Aggregate type constant
const AggregateTypeOrder = "Order"

// Event type constants
const (
	EventTypeOrderCreated      = "OrderCreated"
	EventTypeOrderStageChanged = "OrderStageChanged"
	EventTypeOrderItemReceived = "OrderItemReceived"
	EventTypeOrderDeleted      = "OrderDeleted"
)

// OrderCreatedEvent is raised when a new order is created
type OrderCreatedEvent struct {
	shared.BaseDomainEvent
	OrderID     uuid.UUID `json:"order_id"`
	OrderNumber string    `json:"order_number"`
}

// NewOrderCreatedEvent creates a new OrderCreatedEvent
func NewOrderCreatedEvent(o *Order) *OrderCreatedEvent {
	return &OrderCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderCreated, AggregateTypeOrder, o.ID),
		OrderID:         o.ID,
		OrderNumber:     o.OrderNumber,
	}
}

// EventType returns the event type name
func (e *OrderCreatedEvent) EventType() string {
	return EventTypeOrderCreated
}

// OrderStageChangedEvent is raised on every stage transition
type OrderStageChangedEvent struct {
	shared.BaseDomainEvent
	OrderID     uuid.UUID `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	FromStage   Stage     `json:"from_stage"`
	ToStage     Stage     `json:"to_stage"`
	Reason      string    `json:"reason"`
	ChangedAt   time.Time `json:"changed_at"`
}

// NewOrderStageChangedEvent creates a new OrderStageChangedEvent
func NewOrderStageChangedEvent(o *Order, change StageChange) *OrderStageChangedEvent {
	return &OrderStageChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderStageChanged, AggregateTypeOrder, o.ID),
		OrderID:         o.ID,
		OrderNumber:     o.OrderNumber,
		FromStage:       change.From,
		ToStage:         change.To,
		Reason:          change.Reason,
		ChangedAt:       change.At,
	}
}

// EventType returns the event type name
func (e *OrderStageChangedEvent) EventType() string {
	return EventTypeOrderStageChanged
}

// OrderItemReceivedEvent is raised when an item's received quantity changes
type OrderItemReceivedEvent struct {
	shared.BaseDomainEvent
	OrderID          uuid.UUID      `json:"order_id"`
	ItemID           uuid.UUID      `json:"item_id"`
	SKU              string         `json:"sku"`
	ReceivedQuantity int64          `json:"received_quantity"`
	ReceivedStatus   ReceivedStatus `json:"received_status"`
}

// NewOrderItemReceivedEvent creates a new OrderItemReceivedEvent
func NewOrderItemReceivedEvent(o *Order, item *OrderItem) *OrderItemReceivedEvent {
	return &OrderItemReceivedEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent(EventTypeOrderItemReceived, AggregateTypeOrder, o.ID),
		OrderID:          o.ID,
		ItemID:           item.ID,
		SKU:              item.SKU,
		ReceivedQuantity: item.ReceivedQuantity,
		ReceivedStatus:   item.ReceivedStatus,
	}
}

// EventType returns the event type name
func (e *OrderItemReceivedEvent) EventType() string {
	return EventTypeOrderItemReceived
}

// OrderDeletedEvent is raised when an order is deleted after a batch move
// emptied it of items
type OrderDeletedEvent struct {
	shared.BaseDomainEvent
	OrderID     uuid.UUID `json:"order_id"`
	OrderNumber string    `json:"order_number"`
}

// NewOrderDeletedEvent creates a new OrderDeletedEvent
func NewOrderDeletedEvent(o *Order) *OrderDeletedEvent {
	return &OrderDeletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderDeleted, AggregateTypeOrder, o.ID),
		OrderID:         o.ID,
		OrderNumber:     o.OrderNumber,
	}
}

// EventType returns the event type name
func (e *OrderDeletedEvent) EventType() string {
	return EventTypeOrderDeleted
}
