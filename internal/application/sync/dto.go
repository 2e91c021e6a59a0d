package sync

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/stocksync/backend/internal/domain/extledger"
	"github.com/stocksync/backend/internal/domain/ledger"
	"github.com/stocksync/backend/internal/domain/shared"
	"github.com/stocksync/backend/internal/domain/shared/valueobject"
)

// Mode controls how a summed group value lands in an occupied cell
type Mode string

const (
	// ModeSum adds the group value to the existing cell value
	ModeSum Mode = "sum"
	// ModeReplace overwrites the cell with the group value
	ModeReplace Mode = "replace"
)

// ParseMode validates a mode string, defaulting to sum when empty
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "":
		return ModeSum, nil
	case ModeSum, ModeReplace:
		return Mode(s), nil
	}
	return "", shared.NewDomainError("INVALID_MODE", fmt.Sprintf("Unknown sync mode %q", s))
}

// Resolution is the caller's choice for an occupied date
type Resolution string

const (
	// ResolutionSum adds incoming quantities to the existing values
	ResolutionSum Resolution = "sum"
	// ResolutionReplace overwrites the existing values
	ResolutionReplace Resolution = "replace"
	// ResolutionManual syncs only the SKUs on the include list
	ResolutionManual Resolution = "manual"
)

// SyncRequest selects and projects local transactions into the external
// ledger. Explicit TransactionIDs win over the filter fields.
type SyncRequest struct {
	TransactionIDs []uuid.UUID           `json:"transaction_ids"`
	Location       *valueobject.Location `json:"location"`
	Type           *ledger.Type          `json:"type"`
	Since          *time.Time            `json:"since"`
	Until          *time.Time            `json:"until"`
	Mode           Mode                  `json:"mode"`
	// SyncDate overrides the per-transaction date for every write
	SyncDate *time.Time `json:"sync_date"`
	// Force re-syncs transactions already marked synced
	Force bool `json:"force"`
}

// SKUStatus is the per-group outcome of a sync write
type SKUStatus string

const (
	// SKUSynced means the group value landed in the external ledger
	SKUSynced SKUStatus = "synced"
	// SKUFailed means the write failed after retries
	SKUFailed SKUStatus = "failed"
	// SKUMissing means the external ledger has no row for the SKU
	SKUMissing SKUStatus = "missing"
	// SKUSkipped means the group was never attempted
	SKUSkipped SKUStatus = "skipped"
)

// SKUResult reports one (location, date, SKU, type) group
type SKUResult struct {
	Location valueobject.Location `json:"location"`
	Date     time.Time            `json:"date"`
	SKU      string               `json:"sku"`
	Type     ledger.Type          `json:"type"`
	Quantity int64                `json:"quantity"`
	Status   SKUStatus            `json:"status"`
	Error    string               `json:"error,omitempty"`
}

// SyncResult is the structured summary of one sync run
type SyncResult struct {
	// SyncedCount is the number of transactions marked synced
	SyncedCount int `json:"synced_count"`
	// SkippedCount is the number of already-synced transactions left alone
	SkippedCount  int         `json:"skipped_count"`
	PerSKUResults []SKUResult `json:"per_sku_results"`
	// MissingSKUs lists SKUs with no row in the external ledger, for the
	// caller to add or explicitly skip
	MissingSKUs []string `json:"missing_skus"`
}

// CheckConflictsRequest selects the transactions to pre-check
type CheckConflictsRequest struct {
	TransactionIDs []uuid.UUID           `json:"transaction_ids" binding:"required,min=1"`
	Location       *valueobject.Location `json:"location"`
	SyncDate       *time.Time            `json:"sync_date"`
}

// DateConflict reports one target date that already holds nonzero values
type DateConflict struct {
	Location       valueobject.Location            `json:"location"`
	Date           time.Time                       `json:"date"`
	SKUs           []string                        `json:"skus"`
	ExistingValues map[string]extledger.CellValue  `json:"existing_values"`
}

// ResolveConflictRequest applies the caller's resolution to one date
type ResolveConflictRequest struct {
	TransactionIDs []uuid.UUID          `json:"transaction_ids" binding:"required,min=1"`
	Location       valueobject.Location `json:"location" binding:"required"`
	Date           time.Time            `json:"date" binding:"required"`
	Resolution     Resolution           `json:"resolution" binding:"required"`
	// IncludeSKUs scopes a manual resolution; ignored for sum and replace
	IncludeSKUs []string `json:"include_skus"`
}
