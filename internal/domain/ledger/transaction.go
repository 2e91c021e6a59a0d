package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stocksync/backend/internal/domain/shared"
	"github.com/stocksync/backend/internal/domain/shared/valueobject"
	"github.com/stocksync/backend/internal/domain/sku"
	"github.com/stocksync/backend/internal/domain/vendor"
)

// Type represents the stock-affecting transaction type
type Type string

const (
	// TypeSales records stock sold out of a location
	TypeSales Type = "SALES"
	// TypePurchase records stock purchased into a location
	TypePurchase Type = "PURCHASE"
	// TypeReturn records stock returned to a location
	TypeReturn Type = "RETURN"
)

// String returns the string representation of Type
func (t Type) String() string {
	return string(t)
}

// IsValid returns true if the transaction type is valid
func (t Type) IsValid() bool {
	switch t {
	case TypeSales, TypePurchase, TypeReturn:
		return true
	}
	return false
}

// Line is one stock-affecting line item. Quantities are post-expansion,
// expressed in purchasable units.
type Line struct {
	SKU      string
	Quantity int64
	OrderID  uuid.UUID
	Vendor   vendor.Ref
	UnitCost decimal.Decimal // optional, zero when unknown
}

// Pair identifies the (source order, SKU) combination a line accounts for.
// The dedup guard operates on sets of pairs.
type Pair struct {
	OrderID uuid.UUID
	SKU     string
}

// Transaction is the authoritative local record of a stock-affecting event.
// It is an exact, auditable event log entry: quantities are never merged
// after creation, and the only permitted mutation is flipping the sync flag.
type Transaction struct {
	shared.BaseAggregateRoot
	Type            Type
	TransactionDate time.Time
	Location        valueobject.Location
	Lines           []Line
	SyncedToSheets  bool
	SheetsSyncDate  *time.Time
	AutoCreated     bool
	SourceOrderID   *uuid.UUID
}

// NewTransaction creates a new ledger transaction
func NewTransaction(txType Type, location valueobject.Location, date time.Time, lines []Line, sourceOrderID *uuid.UUID, autoCreated bool) (*Transaction, error) {
	if !txType.IsValid() {
		return nil, shared.NewDomainError("INVALID_TRANSACTION_TYPE", "Invalid transaction type")
	}
	if !location.IsValid() {
		return nil, shared.NewDomainError("INVALID_LOCATION", "Unknown location")
	}
	if date.IsZero() {
		return nil, shared.NewDomainError("INVALID_DATE", "Transaction date is required")
	}
	if len(lines) == 0 {
		return nil, shared.NewDomainError("NO_LINES", "Transaction must have at least one line")
	}

	normalized := make([]Line, len(lines))
	for i, line := range lines {
		s := sku.Canonical(line.SKU)
		if s == "" {
			return nil, shared.NewDomainError("INVALID_SKU", "Line SKU cannot be empty")
		}
		if line.Quantity <= 0 {
			return nil, shared.NewDomainError("INVALID_QUANTITY", "Line quantity must be positive")
		}
		normalized[i] = Line{
			SKU:      s,
			Quantity: line.Quantity,
			OrderID:  line.OrderID,
			Vendor:   line.Vendor.Normalize(),
			UnitCost: line.UnitCost,
		}
	}

	return &Transaction{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Type:              txType,
		TransactionDate:   date,
		Location:          location,
		Lines:             normalized,
		SourceOrderID:     sourceOrderID,
		AutoCreated:       autoCreated,
	}, nil
}

// MarkSynced flips the sync flag; the only legal mutation after creation
func (t *Transaction) MarkSynced(at time.Time) {
	t.SyncedToSheets = true
	t.SheetsSyncDate = &at
	t.UpdatedAt = at
}

// Day returns the transaction date truncated to its calendar day (UTC)
func (t *Transaction) Day() time.Time {
	return DayOf(t.TransactionDate)
}

// PairSet returns the set of (source order, SKU) pairs this transaction covers
func (t *Transaction) PairSet() map[Pair]struct{} {
	set := make(map[Pair]struct{}, len(t.Lines))
	for _, line := range t.Lines {
		orderID := line.OrderID
		if orderID == uuid.Nil && t.SourceOrderID != nil {
			orderID = *t.SourceOrderID
		}
		set[Pair{OrderID: orderID, SKU: line.SKU}] = struct{}{}
	}
	return set
}

// TotalQuantity returns the sum of all line quantities
func (t *Transaction) TotalQuantity() int64 {
	var total int64
	for _, line := range t.Lines {
		total += line.Quantity
	}
	return total
}

// TotalValue returns the sum of quantity times unit cost across lines
func (t *Transaction) TotalValue() decimal.Decimal {
	total := decimal.Zero
	for _, line := range t.Lines {
		total = total.Add(decimal.NewFromInt(line.Quantity).Mul(line.UnitCost))
	}
	return total
}

// DayOf truncates a timestamp to its calendar day in UTC
func DayOf(ts time.Time) time.Time {
	y, m, d := ts.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
