// Package extledger defines the boundary to the external, date-column
// indexed ledger of cumulative Sales/Purchase/Return quantities per SKU per
// location. The concrete protocol (a spreadsheet API) is an infrastructure
// detail; the sync engine programs against this interface only.
package extledger

import (
	"context"
	"errors"
	"time"

	"github.com/stocksync/backend/internal/domain/ledger"
	"github.com/stocksync/backend/internal/domain/shared/valueobject"
)

// Collaborator error taxonomy. Permission failures must be distinguishable
// from generic I/O failures so callers can show an actionable remediation
// message instead of a retry hint.
var (
	// ErrPermissionDenied means the ledger is not shared with the system's
	// service identity. Fatal for the sync call.
	ErrPermissionDenied = errors.New("external ledger permission denied: share the spreadsheet with the service account")

	// ErrUnavailable covers rate limits and transient API failures. Retried
	// with backoff, then reported per unit of work.
	ErrUnavailable = errors.New("external ledger temporarily unavailable")

	// ErrSKUNotFound means the ledger has no row for the SKU. The sync
	// engine reports these back as missing rather than creating rows.
	ErrSKUNotFound = errors.New("sku not present in external ledger")
)

// CellValue holds the existing per-type quantities for one SKU on one date
type CellValue struct {
	Sales    int64 `json:"sales"`
	Purchase int64 `json:"purchase"`
	Return   int64 `json:"return"`
}

// ForType returns the value for the given transaction type
func (v CellValue) ForType(t ledger.Type) int64 {
	switch t {
	case ledger.TypeSales:
		return v.Sales
	case ledger.TypePurchase:
		return v.Purchase
	case ledger.TypeReturn:
		return v.Return
	}
	return 0
}

// IsZero returns true when no type holds a nonzero quantity
func (v CellValue) IsZero() bool {
	return v.Sales == 0 && v.Purchase == 0 && v.Return == 0
}

// Ledger is the write/read boundary to the external ledger
type Ledger interface {
	// SpreadsheetID identifies the ledger for single-writer locking
	SpreadsheetID() string

	// GetHeaderRow returns the date-column header for a location's sheet
	GetHeaderRow(ctx context.Context, location valueobject.Location) ([]string, error)

	// FindOrCreateDateColumn returns the column index for the date,
	// appending a new column when absent. Must be called before any value
	// writes for that date to avoid partial-column races.
	FindOrCreateDateColumn(ctx context.Context, location valueobject.Location, date time.Time) (int, error)

	// ReadCell returns the current quantity for (sku, type) in the given
	// date column. Returns ErrSKUNotFound when the SKU has no row.
	ReadCell(ctx context.Context, location valueobject.Location, sku string, txType ledger.Type, column int) (int64, error)

	// WriteCell overwrites the quantity for (sku, type) in the given date
	// column. Returns ErrSKUNotFound when the SKU has no row.
	WriteCell(ctx context.Context, location valueobject.Location, sku string, txType ledger.Type, column int, value int64) error

	// GetExistingValuesForDate returns current values for the SKUs on the
	// date, keyed by canonical SKU. SKUs without rows are omitted.
	GetExistingValuesForDate(ctx context.Context, location valueobject.Location, date time.Time, skus []string) (map[string]CellValue, error)
}
