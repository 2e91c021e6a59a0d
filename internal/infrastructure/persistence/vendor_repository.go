package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/stocksync/backend/internal/domain/shared"
	"github.com/stocksync/backend/internal/domain/sku"
	"github.com/stocksync/backend/internal/domain/vendor"
	"github.com/stocksync/backend/internal/infrastructure/persistence/models"
)

// GormVendorRepository implements vendor.Repository using GORM
type GormVendorRepository struct {
	db *gorm.DB
}

// NewGormVendorRepository creates a new GormVendorRepository
func NewGormVendorRepository(db *gorm.DB) *GormVendorRepository {
	return &GormVendorRepository{db: db}
}

var _ vendor.Repository = (*GormVendorRepository)(nil)

// FindByID finds a vendor by ID
func (r *GormVendorRepository) FindByID(ctx context.Context, id uuid.UUID) (*vendor.Vendor, error) {
	var m models.VendorModel
	if err := r.db.WithContext(ctx).Preload("SKUMappings").First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return m.ToDomain(), nil
}

// FindByName finds a vendor by name, case-insensitively
func (r *GormVendorRepository) FindByName(ctx context.Context, name string) (*vendor.Vendor, error) {
	var m models.VendorModel
	err := r.db.WithContext(ctx).
		Preload("SKUMappings").
		First(&m, "name_normalized = ?", vendor.NormalizedName(name)).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return m.ToDomain(), nil
}

// FindBySKU finds the first vendor whose SKU mappings contain the canonical SKU
func (r *GormVendorRepository) FindBySKU(ctx context.Context, canonicalSKU string) (*vendor.Vendor, error) {
	mapped := r.db.Model(&models.VendorSKUModel{}).
		Select("vendor_id").
		Where("sku = ?", sku.Canonical(canonicalSKU))

	var m models.VendorModel
	err := r.db.WithContext(ctx).
		Preload("SKUMappings").
		Where("id IN (?)", mapped).
		Order("created_at ASC").
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return m.ToDomain(), nil
}

// FindAll lists vendors with filtering
func (r *GormVendorRepository) FindAll(ctx context.Context, filter shared.Filter) ([]vendor.Vendor, error) {
	var ms []models.VendorModel
	query := applyFilter(r.db.WithContext(ctx).Preload("SKUMappings"), filter)
	if err := query.Find(&ms).Error; err != nil {
		return nil, err
	}
	vendors := make([]vendor.Vendor, len(ms))
	for i := range ms {
		vendors[i] = *ms[i].ToDomain()
	}
	return vendors, nil
}

// Save creates or updates a vendor together with its SKU mappings
func (r *GormVendorRepository) Save(ctx context.Context, v *vendor.Vendor) error {
	m := models.VendorModelFromDomain(v)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("SKUMappings").Save(&models.VendorModel{
			AggregateModel: m.AggregateModel,
			Name:           m.Name,
			NameNormalized: m.NameNormalized,
			ContactName:    m.ContactName,
			Email:          m.Email,
			Phone:          m.Phone,
		}).Error; err != nil {
			return err
		}

		skus := make([]string, len(m.SKUMappings))
		for i := range m.SKUMappings {
			skus[i] = m.SKUMappings[i].SKU
		}
		if len(skus) > 0 {
			if err := tx.Where("vendor_id = ? AND sku NOT IN ?", m.ID, skus).
				Delete(&models.VendorSKUModel{}).Error; err != nil {
				return err
			}
		} else {
			if err := tx.Where("vendor_id = ?", m.ID).
				Delete(&models.VendorSKUModel{}).Error; err != nil {
				return err
			}
		}
		for i := range m.SKUMappings {
			if err := tx.Save(&m.SKUMappings[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// Delete removes a vendor and its SKU mappings
func (r *GormVendorRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("vendor_id = ?", id).Delete(&models.VendorSKUModel{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.VendorModel{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

// Count counts vendors matching the filter
func (r *GormVendorRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.VendorModel{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
