package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/stocksync/backend/internal/domain/ledger"
	"github.com/stocksync/backend/internal/domain/shared/valueobject"
)

// TransactionModel is the persistence model for the ledger Transaction
// aggregate root. Day is the UTC-truncated transaction date; the dedup guard
// scans by (type, location, day).
type TransactionModel struct {
	AggregateModel
	Type            string    `gorm:"type:varchar(20);not null;index:idx_tx_type_location_day,priority:1"`
	Location        string    `gorm:"type:varchar(20);not null;index:idx_tx_type_location_day,priority:2"`
	Day             time.Time `gorm:"not null;index:idx_tx_type_location_day,priority:3"`
	TransactionDate time.Time `gorm:"not null;index"`
	SyncedToSheets  bool      `gorm:"not null;default:false;index"`
	SheetsSyncDate  *time.Time
	AutoCreated     bool                   `gorm:"not null;default:false"`
	SourceOrderID   *uuid.UUID             `gorm:"type:uuid;index"`
	Lines           []TransactionLineModel `gorm:"foreignKey:TransactionID;references:ID"`
}

// TableName returns the table name for GORM
func (TransactionModel) TableName() string {
	return "ledger_transactions"
}

// ToDomain converts the persistence model to a domain Transaction
func (m *TransactionModel) ToDomain() *ledger.Transaction {
	t := &ledger.Transaction{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		Type:              ledger.Type(m.Type),
		TransactionDate:   m.TransactionDate,
		Location:          valueobject.Location(m.Location),
		SyncedToSheets:    m.SyncedToSheets,
		SheetsSyncDate:    m.SheetsSyncDate,
		AutoCreated:       m.AutoCreated,
		SourceOrderID:     m.SourceOrderID,
		Lines:             make([]ledger.Line, len(m.Lines)),
	}
	for i := range m.Lines {
		t.Lines[i] = m.Lines[i].ToDomain()
	}
	return t
}

// FromDomain populates the persistence model from a domain Transaction
func (m *TransactionModel) FromDomain(t *ledger.Transaction) {
	m.FromDomainAggregateRoot(t.BaseAggregateRoot)
	m.Type = string(t.Type)
	m.Location = string(t.Location)
	m.Day = t.Day()
	m.TransactionDate = t.TransactionDate
	m.SyncedToSheets = t.SyncedToSheets
	m.SheetsSyncDate = t.SheetsSyncDate
	m.AutoCreated = t.AutoCreated
	m.SourceOrderID = t.SourceOrderID
	m.Lines = make([]TransactionLineModel, len(t.Lines))
	for i := range t.Lines {
		m.Lines[i].FromDomain(t.ID, i, t.Lines[i])
	}
}

// TransactionModelFromDomain creates a new persistence model from a domain
// Transaction
func TransactionModelFromDomain(t *ledger.Transaction) *TransactionModel {
	m := &TransactionModel{}
	m.FromDomain(t)
	return m
}

// TransactionLineModel is the persistence model for one transaction line.
// Lines are immutable after creation; Seq preserves their order.
type TransactionLineModel struct {
	TransactionID uuid.UUID `gorm:"type:uuid;primary_key"`
	Seq           int       `gorm:"primary_key;autoIncrement:false"`
	SKU           string    `gorm:"type:varchar(100);not null;index"`
	Quantity      int64     `gorm:"not null"`
	OrderID       uuid.UUID `gorm:"type:uuid;index"`
	VendorRefColumns
	UnitCost decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
}

// TableName returns the table name for GORM
func (TransactionLineModel) TableName() string {
	return "ledger_transaction_lines"
}

// ToDomain converts the persistence model to a domain Line
func (m *TransactionLineModel) ToDomain() ledger.Line {
	return ledger.Line{
		SKU:      m.SKU,
		Quantity: m.Quantity,
		OrderID:  m.OrderID,
		Vendor:   m.ToRef(),
		UnitCost: m.UnitCost,
	}
}

// FromDomain populates the persistence model from a domain Line
func (m *TransactionLineModel) FromDomain(txID uuid.UUID, seq int, l ledger.Line) {
	m.TransactionID = txID
	m.Seq = seq
	m.SKU = l.SKU
	m.Quantity = l.Quantity
	m.OrderID = l.OrderID
	m.FromRef(l.Vendor)
	m.UnitCost = l.UnitCost
}

// AllModels returns every persistence model for migration
func AllModels() []interface{} {
	return []interface{}{
		&OrderModel{},
		&OrderItemModel{},
		&StageChangeModel{},
		&VendorModel{},
		&VendorSKUModel{},
		&TransactionModel{},
		&TransactionLineModel{},
	}
}
