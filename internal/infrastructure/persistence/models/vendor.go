package models

import (
	"github.com/google/uuid"

	"github.com/stocksync/backend/internal/domain/vendor"
)

// VendorModel is the persistence model for the Vendor aggregate root.
// NameNormalized backs the case-insensitive uniqueness of vendor names.
type VendorModel struct {
	AggregateModel
	Name           string           `gorm:"type:varchar(100);not null"`
	NameNormalized string           `gorm:"type:varchar(100);not null;uniqueIndex"`
	ContactName    string           `gorm:"type:varchar(100)"`
	Email          string           `gorm:"type:varchar(200)"`
	Phone          string           `gorm:"type:varchar(50)"`
	SKUMappings    []VendorSKUModel `gorm:"foreignKey:VendorID;references:ID"`
}

// TableName returns the table name for GORM
func (VendorModel) TableName() string {
	return "vendors"
}

// ToDomain converts the persistence model to a domain Vendor
func (m *VendorModel) ToDomain() *vendor.Vendor {
	v := &vendor.Vendor{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		Name:              m.Name,
		ContactName:       m.ContactName,
		Email:             m.Email,
		Phone:             m.Phone,
		SKUMappings:       make([]string, len(m.SKUMappings)),
	}
	for i := range m.SKUMappings {
		v.SKUMappings[i] = m.SKUMappings[i].SKU
	}
	return v
}

// FromDomain populates the persistence model from a domain Vendor
func (m *VendorModel) FromDomain(v *vendor.Vendor) {
	m.FromDomainAggregateRoot(v.BaseAggregateRoot)
	m.Name = v.Name
	m.NameNormalized = vendor.NormalizedName(v.Name)
	m.ContactName = v.ContactName
	m.Email = v.Email
	m.Phone = v.Phone
	m.SKUMappings = make([]VendorSKUModel, len(v.SKUMappings))
	for i, s := range v.SKUMappings {
		m.SKUMappings[i] = VendorSKUModel{VendorID: v.ID, SKU: s}
	}
}

// VendorModelFromDomain creates a new persistence model from a domain Vendor
func VendorModelFromDomain(v *vendor.Vendor) *VendorModel {
	m := &VendorModel{}
	m.FromDomain(v)
	return m
}

// VendorSKUModel maps one canonical SKU to the vendor it is sourced from
type VendorSKUModel struct {
	VendorID uuid.UUID `gorm:"type:uuid;primary_key"`
	SKU      string    `gorm:"type:varchar(100);primary_key;index"`
}

// TableName returns the table name for GORM
func (VendorSKUModel) TableName() string {
	return "vendor_sku_mappings"
}
