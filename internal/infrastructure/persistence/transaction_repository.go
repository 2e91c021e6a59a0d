package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/stocksync/backend/internal/domain/ledger"
	"github.com/stocksync/backend/internal/domain/shared"
	"github.com/stocksync/backend/internal/domain/shared/valueobject"
	"github.com/stocksync/backend/internal/domain/vendor"
	"github.com/stocksync/backend/internal/infrastructure/persistence/models"
)

// GormTransactionRepository implements ledger.Repository using GORM
type GormTransactionRepository struct {
	db *gorm.DB
}

// NewGormTransactionRepository creates a new GormTransactionRepository
func NewGormTransactionRepository(db *gorm.DB) *GormTransactionRepository {
	return &GormTransactionRepository{db: db}
}

var _ ledger.Repository = (*GormTransactionRepository)(nil)

func (r *GormTransactionRepository) preloaded(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Preload("Lines", func(db *gorm.DB) *gorm.DB {
		return db.Order("seq ASC")
	})
}

// FindByID finds a transaction by ID
func (r *GormTransactionRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.Transaction, error) {
	var m models.TransactionModel
	if err := r.preloaded(ctx).First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return m.ToDomain(), nil
}

// FindByIDs loads multiple transactions by ID
func (r *GormTransactionRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]ledger.Transaction, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var ms []models.TransactionModel
	if err := r.preloaded(ctx).Where("id IN ?", ids).Find(&ms).Error; err != nil {
		return nil, err
	}
	return toDomainTransactions(ms), nil
}

// FindUnsynced lists transactions not yet projected into the external
// ledger, narrowed by the filter, oldest first
func (r *GormTransactionRepository) FindUnsynced(ctx context.Context, filter ledger.UnsyncedFilter) ([]ledger.Transaction, error) {
	query := r.preloaded(ctx).Where("synced_to_sheets = ?", false)
	if filter.Location != nil {
		query = query.Where("location = ?", string(*filter.Location))
	}
	if filter.Type != nil {
		query = query.Where("type = ?", string(*filter.Type))
	}
	if filter.Since != nil {
		query = query.Where("transaction_date >= ?", *filter.Since)
	}
	if filter.Until != nil {
		query = query.Where("transaction_date <= ?", *filter.Until)
	}

	var ms []models.TransactionModel
	if err := query.Order("transaction_date ASC").Find(&ms).Error; err != nil {
		return nil, err
	}
	return toDomainTransactions(ms), nil
}

// FindByTypeLocationDay lists transactions of one type for one location on
// one calendar day
func (r *GormTransactionRepository) FindByTypeLocationDay(ctx context.Context, txType ledger.Type, location valueobject.Location, day time.Time) ([]ledger.Transaction, error) {
	var ms []models.TransactionModel
	err := r.preloaded(ctx).
		Where("type = ? AND location = ? AND day = ?", string(txType), string(location), ledger.DayOf(day)).
		Find(&ms).Error
	if err != nil {
		return nil, err
	}
	return toDomainTransactions(ms), nil
}

// FindAll lists transactions with filtering
func (r *GormTransactionRepository) FindAll(ctx context.Context, filter shared.Filter) ([]ledger.Transaction, error) {
	query := r.preloaded(ctx)
	if txType, ok := filter.Filters["type"]; ok {
		query = query.Where("type = ?", txType)
	}
	if location, ok := filter.Filters["location"]; ok {
		query = query.Where("location = ?", location)
	}
	if synced, ok := filter.Filters["synced"]; ok {
		query = query.Where("synced_to_sheets = ?", synced)
	}

	var ms []models.TransactionModel
	if err := applyFilter(query, filter).Find(&ms).Error; err != nil {
		return nil, err
	}
	return toDomainTransactions(ms), nil
}

// Save persists a transaction and its lines. Lines are immutable, so an
// update never rewrites them.
func (r *GormTransactionRepository) Save(ctx context.Context, t *ledger.Transaction) error {
	m := models.TransactionModelFromDomain(t)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Lines").Save(&models.TransactionModel{
			AggregateModel:  m.AggregateModel,
			Type:            m.Type,
			Location:        m.Location,
			Day:             m.Day,
			TransactionDate: m.TransactionDate,
			SyncedToSheets:  m.SyncedToSheets,
			SheetsSyncDate:  m.SheetsSyncDate,
			AutoCreated:     m.AutoCreated,
			SourceOrderID:   m.SourceOrderID,
		}).Error; err != nil {
			return err
		}
		for i := range m.Lines {
			if err := tx.Save(&m.Lines[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// MarkSynced flips the synced flag for a transaction
func (r *GormTransactionRepository) MarkSynced(ctx context.Context, id uuid.UUID, at time.Time) error {
	result := r.db.WithContext(ctx).Model(&models.TransactionModel{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"synced_to_sheets": true,
			"sheets_sync_date": at,
			"updated_at":       at,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// DeleteBySourceOrder removes all transactions created from the given order
func (r *GormTransactionRepository) DeleteBySourceOrder(ctx context.Context, orderID uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ids []uuid.UUID
		err := tx.Model(&models.TransactionModel{}).
			Where("source_order_id = ?", orderID).
			Pluck("id", &ids).Error
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}
		if err := tx.Where("transaction_id IN ?", ids).
			Delete(&models.TransactionLineModel{}).Error; err != nil {
			return err
		}
		return tx.Where("id IN ?", ids).Delete(&models.TransactionModel{}).Error
	})
}

// Count counts transactions matching the filter
func (r *GormTransactionRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&models.TransactionModel{})
	if txType, ok := filter.Filters["type"]; ok {
		query = query.Where("type = ?", txType)
	}
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// ReassignVendor rewrites all line vendor references from one vendor to another
func (r *GormTransactionRepository) ReassignVendor(ctx context.Context, from, to vendor.Ref) error {
	return reassignVendorColumns(r.db.WithContext(ctx).Model(&models.TransactionLineModel{}), from, to)
}

func toDomainTransactions(ms []models.TransactionModel) []ledger.Transaction {
	txs := make([]ledger.Transaction, len(ms))
	for i := range ms {
		txs[i] = *ms[i].ToDomain()
	}
	return txs
}
