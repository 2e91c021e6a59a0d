package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/stocksync/backend/internal/domain/order"
	"github.com/stocksync/backend/internal/domain/shared"
	"github.com/stocksync/backend/internal/domain/vendor"
	"github.com/stocksync/backend/internal/infrastructure/persistence/models"
)

// GormOrderRepository implements order.Repository using GORM
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

var _ order.Repository = (*GormOrderRepository)(nil)

func (r *GormOrderRepository) preloaded(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Items").
		Preload("History", func(db *gorm.DB) *gorm.DB {
			return db.Order("seq ASC")
		})
}

// FindByID finds an order by ID
func (r *GormOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	var m models.OrderModel
	if err := r.preloaded(ctx).First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return m.ToDomain(), nil
}

// FindByIDs loads multiple orders by ID
func (r *GormOrderRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]order.Order, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var ms []models.OrderModel
	if err := r.preloaded(ctx).Where("id IN ?", ids).Find(&ms).Error; err != nil {
		return nil, err
	}
	return toDomainOrders(ms), nil
}

// FindByOrderNumber finds an order by its order number
func (r *GormOrderRepository) FindByOrderNumber(ctx context.Context, orderNumber string) (*order.Order, error) {
	var m models.OrderModel
	if err := r.preloaded(ctx).First(&m, "order_number = ?", orderNumber).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return m.ToDomain(), nil
}

// FindByStage finds orders in a given stage
func (r *GormOrderRepository) FindByStage(ctx context.Context, stage order.Stage, filter shared.Filter) ([]order.Order, error) {
	var ms []models.OrderModel
	query := applyFilter(r.preloaded(ctx).Where("stage = ?", string(stage)), filter)
	if err := query.Find(&ms).Error; err != nil {
		return nil, err
	}
	return toDomainOrders(ms), nil
}

// FindOpenByStageAndVendor finds the newest order in the given stage whose
// items all belong to the given vendor. Orders holding any foreign item are
// excluded so appending cannot mix vendors.
func (r *GormOrderRepository) FindOpenByStageAndVendor(ctx context.Context, stage order.Stage, vendorID uuid.UUID) (*order.Order, error) {
	foreign := r.db.Model(&models.OrderItemModel{}).
		Select("order_id").
		Where("NOT (vendor_kind = ? AND vendor_id = ?)", string(vendor.RefAssigned), vendorID)
	owned := r.db.Model(&models.OrderItemModel{}).
		Select("order_id").
		Where("vendor_kind = ? AND vendor_id = ?", string(vendor.RefAssigned), vendorID)

	var m models.OrderModel
	err := r.preloaded(ctx).
		Where("stage = ?", string(stage)).
		Where("id NOT IN (?)", foreign).
		Where("id IN (?)", owned).
		Order("created_at DESC").
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return m.ToDomain(), nil
}

// FindAll lists orders with filtering
func (r *GormOrderRepository) FindAll(ctx context.Context, filter shared.Filter) ([]order.Order, error) {
	var ms []models.OrderModel
	if err := applyFilter(r.preloaded(ctx), filter).Find(&ms).Error; err != nil {
		return nil, err
	}
	return toDomainOrders(ms), nil
}

// Save creates or updates an order together with its items and history
func (r *GormOrderRepository) Save(ctx context.Context, o *order.Order) error {
	m := models.OrderModelFromDomain(o)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return saveOrderModel(tx, m)
	})
}

// SaveWithLock saves with optimistic locking (version check)
func (r *GormOrderRepository) SaveWithLock(ctx context.Context, o *order.Order) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var currentVersion int
		err := tx.Model(&models.OrderModel{}).
			Where("id = ?", o.ID).
			Select("version").
			Scan(&currentVersion).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return shared.ErrNotFound
			}
			return err
		}
		if currentVersion != o.Version {
			return shared.ErrConcurrencyConflict
		}

		o.Version++
		o.UpdatedAt = time.Now()
		m := models.OrderModelFromDomain(o)

		result := tx.Model(&models.OrderModel{}).
			Where("id = ? AND version = ?", m.ID, currentVersion).
			Updates(map[string]interface{}{
				"stage":      m.Stage,
				"remark":     m.Remark,
				"version":    m.Version,
				"updated_at": m.UpdatedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrConcurrencyConflict
		}

		return saveOrderChildren(tx, m)
	})
}

func saveOrderModel(tx *gorm.DB, m *models.OrderModel) error {
	if err := tx.Omit("Items", "History").Save(&models.OrderModel{
		AggregateModel: m.AggregateModel,
		OrderNumber:    m.OrderNumber,
		Stage:          m.Stage,
		Remark:         m.Remark,
	}).Error; err != nil {
		return err
	}
	return saveOrderChildren(tx, m)
}

func saveOrderChildren(tx *gorm.DB, m *models.OrderModel) error {
	// Items moved off the order (or deleted) must not linger
	itemIDs := make([]uuid.UUID, len(m.Items))
	for i := range m.Items {
		itemIDs[i] = m.Items[i].ID
	}
	if len(itemIDs) > 0 {
		if err := tx.Where("order_id = ? AND id NOT IN ?", m.ID, itemIDs).
			Delete(&models.OrderItemModel{}).Error; err != nil {
			return err
		}
	} else {
		if err := tx.Where("order_id = ?", m.ID).
			Delete(&models.OrderItemModel{}).Error; err != nil {
			return err
		}
	}
	for i := range m.Items {
		m.Items[i].OrderID = m.ID
		if err := tx.Save(&m.Items[i]).Error; err != nil {
			return err
		}
	}

	// History is append-only and keyed by (order_id, seq); rows already
	// persisted are left untouched
	if len(m.History) > 0 {
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&m.History).Error; err != nil {
			return err
		}
	}
	return nil
}

// Delete removes an order, its items, and its history
func (r *GormOrderRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("order_id = ?", id).Delete(&models.OrderItemModel{}).Error; err != nil {
			return err
		}
		if err := tx.Where("order_id = ?", id).Delete(&models.StageChangeModel{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.OrderModel{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

// Count counts orders matching the filter
func (r *GormOrderRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&models.OrderModel{})
	if stage, ok := filter.Filters["stage"]; ok {
		query = query.Where("stage = ?", stage)
	}
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// ReassignVendor rewrites all item vendor references from one vendor to
// another across every order
func (r *GormOrderRepository) ReassignVendor(ctx context.Context, from, to vendor.Ref) error {
	return reassignVendorColumns(r.db.WithContext(ctx).Model(&models.OrderItemModel{}), from, to)
}

// reassignVendorColumns rewrites flattened vendor reference columns in bulk.
// Shared by the order item and transaction line tables.
func reassignVendorColumns(query *gorm.DB, from, to vendor.Ref) error {
	from = from.Normalize()
	to = to.Normalize()

	switch from.Kind {
	case vendor.RefAssigned:
		query = query.Where("vendor_kind = ? AND vendor_id = ?", string(vendor.RefAssigned), from.VendorID)
	case vendor.RefPendingSuggestion:
		query = query.Where("vendor_kind = ? AND vendor_name = ?", string(vendor.RefPendingSuggestion), from.Name)
	default:
		query = query.Where("vendor_kind = ?", string(vendor.RefUnassigned))
	}

	updates := map[string]interface{}{
		"vendor_kind": string(to.Kind),
		"vendor_name": to.Name,
	}
	if to.Kind == vendor.RefAssigned {
		updates["vendor_id"] = to.VendorID
	} else {
		updates["vendor_id"] = nil
	}
	return query.Updates(updates).Error
}

func toDomainOrders(ms []models.OrderModel) []order.Order {
	orders := make([]order.Order, len(ms))
	for i := range ms {
		orders[i] = *ms[i].ToDomain()
	}
	return orders
}
