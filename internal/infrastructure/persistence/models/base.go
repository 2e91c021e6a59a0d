// Package models holds the GORM persistence models and their mappings to
// and from the domain aggregates
package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/stocksync/backend/internal/domain/shared"
	"github.com/stocksync/backend/internal/domain/vendor"
)

// BaseModel provides common persistence fields for all models.
// It maps to the domain's BaseEntity.
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// ToDomain converts BaseModel to domain BaseEntity
func (m *BaseModel) ToDomain() shared.BaseEntity {
	return shared.BaseEntity{
		ID:        m.ID,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// FromDomainBaseEntity populates BaseModel from domain BaseEntity
func (m *BaseModel) FromDomainBaseEntity(e shared.BaseEntity) {
	m.ID = e.ID
	m.CreatedAt = e.CreatedAt
	m.UpdatedAt = e.UpdatedAt
}

// AggregateModel provides common persistence fields for aggregate roots.
// It extends BaseModel with version for optimistic locking.
type AggregateModel struct {
	BaseModel
	Version int `gorm:"not null;default:1"`
}

// FromDomainAggregateRoot populates AggregateModel from domain BaseAggregateRoot
func (m *AggregateModel) FromDomainAggregateRoot(a shared.BaseAggregateRoot) {
	m.FromDomainBaseEntity(a.BaseEntity)
	m.Version = a.Version
}

// ToDomainAggregateRoot converts AggregateModel to domain BaseAggregateRoot
func (m *AggregateModel) ToDomainAggregateRoot() shared.BaseAggregateRoot {
	return shared.BaseAggregateRoot{
		BaseEntity: m.ToDomain(),
		Version:    m.Version,
	}
}

// VendorRefColumns flattens a vendor.Ref into persistence columns. Embedded
// into every model that carries a vendor reference so the tagged variant
// round-trips without a join.
type VendorRefColumns struct {
	VendorKind string     `gorm:"type:varchar(20);not null;default:'UNASSIGNED';index"`
	VendorID   *uuid.UUID `gorm:"type:uuid;index"`
	VendorName string     `gorm:"type:varchar(100)"`
}

// ToRef converts the flattened columns back into a vendor.Ref
func (c *VendorRefColumns) ToRef() vendor.Ref {
	switch vendor.RefKind(c.VendorKind) {
	case vendor.RefAssigned:
		id := uuid.Nil
		if c.VendorID != nil {
			id = *c.VendorID
		}
		return vendor.Assigned(id, c.VendorName)
	case vendor.RefPendingSuggestion:
		return vendor.PendingSuggestion(c.VendorName)
	}
	return vendor.Unassigned()
}

// FromRef populates the flattened columns from a vendor.Ref
func (c *VendorRefColumns) FromRef(r vendor.Ref) {
	r = r.Normalize()
	c.VendorKind = string(r.Kind)
	c.VendorName = r.Name
	if r.Kind == vendor.RefAssigned {
		id := r.VendorID
		c.VendorID = &id
	} else {
		c.VendorID = nil
	}
}
