package order

import (
	"context"

	"github.com/google/uuid"
	"github.com/stocksync/backend/internal/domain/shared"
	"github.com/stocksync/backend/internal/domain/vendor"
)

// Repository defines the interface for order persistence
type Repository interface {
	// FindByID finds an order by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Order, error)

	// FindByIDs loads multiple orders by ID
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]Order, error)

	// FindByOrderNumber finds an order by its order number
	FindByOrderNumber(ctx context.Context, orderNumber string) (*Order, error)

	// FindByStage finds orders in a given stage
	FindByStage(ctx context.Context, stage Stage, filter shared.Filter) ([]Order, error)

	// FindOpenByStageAndVendor finds the newest order in the given stage
	// whose items all belong to the given vendor. Used by batched processing
	// to append items to an existing vendor order instead of creating one.
	FindOpenByStageAndVendor(ctx context.Context, stage Stage, vendorID uuid.UUID) (*Order, error)

	// FindAll lists orders with filtering
	FindAll(ctx context.Context, filter shared.Filter) ([]Order, error)

	// Save creates or updates an order together with its items and history
	Save(ctx context.Context, o *Order) error

	// SaveWithLock saves with optimistic locking (version check)
	SaveWithLock(ctx context.Context, o *Order) error

	// Delete removes an order and its items
	Delete(ctx context.Context, id uuid.UUID) error

	// Count counts orders matching the filter
	Count(ctx context.Context, filter shared.Filter) (int64, error)

	// ReassignVendor rewrites all item vendor references from one vendor to
	// another across every order. Used by vendor merges.
	ReassignVendor(ctx context.Context, from, to vendor.Ref) error
}
