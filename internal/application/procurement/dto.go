package procurement

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/stocksync/backend/internal/domain/order"
)

// CreateOrderRequest is the request for creating an order
type CreateOrderRequest struct {
	OrderNumber string                   `json:"order_number" binding:"required,max=50"`
	Remark      string                   `json:"remark" binding:"max=500"`
	Items       []CreateOrderItemRequest `json:"items" binding:"dive"`
}

// CreateOrderItemRequest is one item on an order creation request
type CreateOrderItemRequest struct {
	SKU       string          `json:"sku" binding:"required,max=100"`
	Quantity  int64           `json:"quantity" binding:"required,gt=0"`
	Warehouse string          `json:"warehouse" binding:"required,location"`
	UnitCost  decimal.Decimal `json:"unit_cost"`
}

// UpdateItemQuantityRequest changes the quantity of an order item
type UpdateItemQuantityRequest struct {
	Quantity int64 `json:"quantity" binding:"required,gt=0"`
}

// ItemSelection picks items to process from one source order. An empty
// ItemIDs list selects every unprocessed item on the order.
type ItemSelection struct {
	OrderID uuid.UUID   `json:"order_id" binding:"required"`
	ItemIDs []uuid.UUID `json:"item_ids"`
}

// ProcessItemsRequest is the batch Initial-to-Processed request
type ProcessItemsRequest struct {
	Selections []ItemSelection `json:"selections" binding:"required,min=1,dive"`
	// VendorOverrides maps canonical SKU to an explicit vendor name,
	// consulted before any other resolution source
	VendorOverrides map[string]string `json:"vendor_overrides"`
}

// ItemFailure describes one item a batch operation could not process
type ItemFailure struct {
	OrderID uuid.UUID `json:"order_id"`
	ItemID  uuid.UUID `json:"item_id,omitempty"`
	SKU     string    `json:"sku,omitempty"`
	Reason  string    `json:"reason"`
}

// ProcessItemsResult is the structured summary of a batch process run.
// Partial progress is the expected normal case; failures never abort the
// whole batch.
type ProcessItemsResult struct {
	ProcessedCount  int         `json:"processed_count"`
	CreatedOrders   []uuid.UUID `json:"created_orders"`
	AppendedOrders  []uuid.UUID `json:"appended_orders"`
	DeletedOrders   []uuid.UUID `json:"deleted_orders"`
	TransactionIDs  []uuid.UUID `json:"transaction_ids"`
	SuppressedCount int         `json:"suppressed_count"`
	Failures        []ItemFailure `json:"failures"`
	Warnings        []string      `json:"warnings"`
}

// MoveStageRequest is the direct stage transition request
type MoveStageRequest struct {
	Stage  string `json:"stage" binding:"required,stage"`
	Reason string `json:"reason" binding:"max=500"`
}

// MoveStageResult reports a direct stage transition and its side effects
type MoveStageResult struct {
	Order           OrderResponse `json:"order"`
	TransactionIDs  []uuid.UUID   `json:"transaction_ids"`
	SuppressedCount int           `json:"suppressed_count"`
	Warnings        []string      `json:"warnings"`
}

// ReceiveItemRequest records the absolute received quantity for one item
type ReceiveItemRequest struct {
	ReceivedQuantity int64 `json:"received_quantity" binding:"min=0"`
}

// BulkReceiveEntry is one receipt in a bulk update
type BulkReceiveEntry struct {
	OrderID          uuid.UUID `json:"order_id" binding:"required"`
	ItemID           uuid.UUID `json:"item_id" binding:"required"`
	ReceivedQuantity int64     `json:"received_quantity" binding:"min=0"`
}

// BulkReceiveRequest records received quantities across orders
type BulkReceiveRequest struct {
	Receipts []BulkReceiveEntry `json:"receipts" binding:"required,min=1,dive"`
}

// BulkReceiveResult is the structured summary of a bulk receipt run
type BulkReceiveResult struct {
	UpdatedCount int           `json:"updated_count"`
	Failures     []ItemFailure `json:"failures"`
}

// OrderItemResponse is the API shape of an order item
type OrderItemResponse struct {
	ID               uuid.UUID       `json:"id"`
	SKU              string          `json:"sku"`
	Quantity         int64           `json:"quantity"`
	VendorKind       string          `json:"vendor_kind"`
	VendorID         *uuid.UUID      `json:"vendor_id,omitempty"`
	VendorName       string          `json:"vendor_name,omitempty"`
	Warehouse        string          `json:"warehouse"`
	UnitCost         decimal.Decimal `json:"unit_cost"`
	Processed        bool            `json:"processed"`
	ProcessedAt      *time.Time      `json:"processed_at,omitempty"`
	ReceivedQuantity int64           `json:"received_quantity"`
	ReceivedStatus   string          `json:"received_status"`
	ReceivedAt       *time.Time      `json:"received_at,omitempty"`
}

// StageChangeResponse is the API shape of one history entry
type StageChangeResponse struct {
	From   string    `json:"from"`
	To     string    `json:"to"`
	At     time.Time `json:"at"`
	Reason string    `json:"reason,omitempty"`
}

// OrderResponse is the API shape of an order
type OrderResponse struct {
	ID          uuid.UUID             `json:"id"`
	OrderNumber string                `json:"order_number"`
	Stage       string                `json:"stage"`
	Remark      string                `json:"remark,omitempty"`
	Items       []OrderItemResponse   `json:"items"`
	History     []StageChangeResponse `json:"history"`
	TotalValue  decimal.Decimal       `json:"total_value"`
	CreatedAt   time.Time             `json:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at"`
}

// ToOrderItemResponse maps a domain order item to its API shape
func ToOrderItemResponse(i *order.OrderItem) OrderItemResponse {
	resp := OrderItemResponse{
		ID:               i.ID,
		SKU:              i.SKU,
		Quantity:         i.Quantity,
		VendorKind:       string(i.Vendor.Normalize().Kind),
		VendorName:       i.Vendor.Name,
		Warehouse:        string(i.Warehouse),
		UnitCost:         i.UnitCost,
		Processed:        i.Processed,
		ProcessedAt:      i.ProcessedAt,
		ReceivedQuantity: i.ReceivedQuantity,
		ReceivedStatus:   string(i.ReceivedStatus),
		ReceivedAt:       i.ReceivedAt,
	}
	if i.Vendor.IsAssigned() {
		id := i.Vendor.VendorID
		resp.VendorID = &id
	}
	return resp
}

// ToOrderResponse maps a domain order to its API shape
func ToOrderResponse(o *order.Order) OrderResponse {
	resp := OrderResponse{
		ID:          o.ID,
		OrderNumber: o.OrderNumber,
		Stage:       string(o.Stage),
		Remark:      o.Remark,
		Items:       make([]OrderItemResponse, len(o.Items)),
		History:     make([]StageChangeResponse, len(o.History)),
		TotalValue:  o.TotalValue(),
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
	}
	for i := range o.Items {
		resp.Items[i] = ToOrderItemResponse(&o.Items[i])
	}
	for i, h := range o.History {
		resp.History[i] = StageChangeResponse{
			From:   string(h.From),
			To:     string(h.To),
			At:     h.At,
			Reason: h.Reason,
		}
	}
	return resp
}
