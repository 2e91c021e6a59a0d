package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stocksync/backend/internal/domain/shared"
	"github.com/stocksync/backend/internal/domain/shared/valueobject"
	"github.com/stocksync/backend/internal/domain/vendor"
)

// UnsyncedFilter narrows the candidate set for a sync run
type UnsyncedFilter struct {
	Location *valueobject.Location
	Type     *Type
	Since    *time.Time
	Until    *time.Time
}

// Repository defines the interface for transaction persistence
type Repository interface {
	// FindByID finds a transaction by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Transaction, error)

	// FindByIDs loads multiple transactions by ID
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]Transaction, error)

	// FindUnsynced lists transactions not yet projected into the external
	// ledger, narrowed by the filter
	FindUnsynced(ctx context.Context, filter UnsyncedFilter) ([]Transaction, error)

	// FindByTypeLocationDay lists transactions of one type for one location
	// on one calendar day. The dedup guard scans these for pair overlap.
	FindByTypeLocationDay(ctx context.Context, txType Type, location valueobject.Location, day time.Time) ([]Transaction, error)

	// FindAll lists transactions with filtering
	FindAll(ctx context.Context, filter shared.Filter) ([]Transaction, error)

	// Save persists a transaction and its lines
	Save(ctx context.Context, tx *Transaction) error

	// MarkSynced flips the synced flag for a transaction
	MarkSynced(ctx context.Context, id uuid.UUID, at time.Time) error

	// DeleteBySourceOrder removes all transactions created from the given
	// order. Administrative cascade only.
	DeleteBySourceOrder(ctx context.Context, orderID uuid.UUID) error

	// Count counts transactions matching the filter
	Count(ctx context.Context, filter shared.Filter) (int64, error)

	// ReassignVendor rewrites all line vendor references from one vendor to
	// another. Used by vendor merges.
	ReassignVendor(ctx context.Context, from, to vendor.Ref) error
}
