package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/stocksync/backend/internal/domain/order"
	"github.com/stocksync/backend/internal/domain/shared/valueobject"
)

// OrderModel is the persistence model for the Order aggregate root
type OrderModel struct {
	AggregateModel
	OrderNumber string             `gorm:"type:varchar(50);not null;uniqueIndex"`
	Stage       string             `gorm:"type:varchar(20);not null;index"`
	Remark      string             `gorm:"type:text"`
	Items       []OrderItemModel   `gorm:"foreignKey:OrderID;references:ID"`
	History     []StageChangeModel `gorm:"foreignKey:OrderID;references:ID"`
}

// TableName returns the table name for GORM
func (OrderModel) TableName() string {
	return "orders"
}

// ToDomain converts the persistence model to a domain Order
func (m *OrderModel) ToDomain() *order.Order {
	o := &order.Order{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		OrderNumber:       m.OrderNumber,
		Stage:             order.Stage(m.Stage),
		Remark:            m.Remark,
		Items:             make([]order.OrderItem, len(m.Items)),
		History:           make([]order.StageChange, len(m.History)),
	}
	for i := range m.Items {
		o.Items[i] = *m.Items[i].ToDomain()
	}
	for i := range m.History {
		o.History[i] = m.History[i].ToDomain()
	}
	return o
}

// FromDomain populates the persistence model from a domain Order
func (m *OrderModel) FromDomain(o *order.Order) {
	m.FromDomainAggregateRoot(o.BaseAggregateRoot)
	m.OrderNumber = o.OrderNumber
	m.Stage = string(o.Stage)
	m.Remark = o.Remark
	m.Items = make([]OrderItemModel, len(o.Items))
	for i := range o.Items {
		m.Items[i].FromDomain(&o.Items[i])
	}
	m.History = make([]StageChangeModel, len(o.History))
	for i := range o.History {
		m.History[i].FromDomain(o.ID, i, o.History[i])
	}
}

// OrderModelFromDomain creates a new persistence model from a domain Order
func OrderModelFromDomain(o *order.Order) *OrderModel {
	m := &OrderModel{}
	m.FromDomain(o)
	return m
}

// OrderItemModel is the persistence model for the OrderItem entity
type OrderItemModel struct {
	ID      uuid.UUID `gorm:"type:uuid;primary_key"`
	OrderID uuid.UUID `gorm:"type:uuid;not null;index"`
	SKU     string    `gorm:"type:varchar(100);not null;index"`
	VendorRefColumns
	Quantity         int64           `gorm:"not null"`
	Warehouse        string          `gorm:"type:varchar(20);not null"`
	UnitCost         decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Processed        bool            `gorm:"not null;default:false"`
	ProcessedAt      *time.Time
	ReceivedQuantity int64  `gorm:"not null;default:0"`
	ReceivedStatus   string `gorm:"type:varchar(20);not null;default:'PENDING'"`
	ReceivedAt       *time.Time
	CreatedAt        time.Time `gorm:"not null"`
	UpdatedAt        time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (OrderItemModel) TableName() string {
	return "order_items"
}

// ToDomain converts the persistence model to a domain OrderItem
func (m *OrderItemModel) ToDomain() *order.OrderItem {
	return &order.OrderItem{
		ID:               m.ID,
		OrderID:          m.OrderID,
		SKU:              m.SKU,
		Quantity:         m.Quantity,
		Vendor:           m.ToRef(),
		Warehouse:        valueobject.Location(m.Warehouse),
		UnitCost:         m.UnitCost,
		Processed:        m.Processed,
		ProcessedAt:      m.ProcessedAt,
		ReceivedQuantity: m.ReceivedQuantity,
		ReceivedStatus:   order.ReceivedStatus(m.ReceivedStatus),
		ReceivedAt:       m.ReceivedAt,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

// FromDomain populates the persistence model from a domain OrderItem
func (m *OrderItemModel) FromDomain(i *order.OrderItem) {
	m.ID = i.ID
	m.OrderID = i.OrderID
	m.SKU = i.SKU
	m.FromRef(i.Vendor)
	m.Quantity = i.Quantity
	m.Warehouse = string(i.Warehouse)
	m.UnitCost = i.UnitCost
	m.Processed = i.Processed
	m.ProcessedAt = i.ProcessedAt
	m.ReceivedQuantity = i.ReceivedQuantity
	m.ReceivedStatus = string(i.ReceivedStatus)
	m.ReceivedAt = i.ReceivedAt
	m.CreatedAt = i.CreatedAt
	m.UpdatedAt = i.UpdatedAt
}

// StageChangeModel is the persistence model for one stage history entry.
// History is append-only; Seq preserves the order of entries.
type StageChangeModel struct {
	OrderID   uuid.UUID `gorm:"type:uuid;primary_key"`
	Seq       int       `gorm:"primary_key;autoIncrement:false"`
	FromStage string    `gorm:"type:varchar(20);not null"`
	ToStage   string    `gorm:"type:varchar(20);not null"`
	ChangedAt time.Time `gorm:"not null"`
	Reason    string    `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (StageChangeModel) TableName() string {
	return "order_stage_changes"
}

// ToDomain converts the persistence model to a domain StageChange
func (m *StageChangeModel) ToDomain() order.StageChange {
	return order.StageChange{
		From:   order.Stage(m.FromStage),
		To:     order.Stage(m.ToStage),
		At:     m.ChangedAt,
		Reason: m.Reason,
	}
}

// FromDomain populates the persistence model from a domain StageChange
func (m *StageChangeModel) FromDomain(orderID uuid.UUID, seq int, c order.StageChange) {
	m.OrderID = orderID
	m.Seq = seq
	m.FromStage = string(c.From)
	m.ToStage = string(c.To)
	m.ChangedAt = c.At
	m.Reason = c.Reason
}
