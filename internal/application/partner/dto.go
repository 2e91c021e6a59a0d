package partner

import (
	"time"

	"github.com/google/uuid"

	"github.com/stocksync/backend/internal/domain/vendor"
)

// CreateVendorRequest is the request for creating a vendor
type CreateVendorRequest struct {
	Name        string   `json:"name" binding:"required,max=100"`
	ContactName string   `json:"contact_name" binding:"max=100"`
	Email       string   `json:"email" binding:"omitempty,email"`
	Phone       string   `json:"phone" binding:"max=30"`
	SKUs        []string `json:"skus"`
}

// UpdateVendorRequest updates vendor contact details and SKU mappings.
// SKUs replaces the mapping list wholesale when non-nil.
type UpdateVendorRequest struct {
	ContactName *string  `json:"contact_name"`
	Email       *string  `json:"email" binding:"omitempty,email"`
	Phone       *string  `json:"phone"`
	SKUs        []string `json:"skus"`
}

// MergeVendorRequest folds a duplicate vendor into the one to keep
type MergeVendorRequest struct {
	KeepID uuid.UUID `json:"keep_id" binding:"required"`
}

// VendorResponse is the API shape of a vendor
type VendorResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	SKUs        []string  `json:"skus"`
	ContactName string    `json:"contact_name,omitempty"`
	Email       string    `json:"email,omitempty"`
	Phone       string    `json:"phone,omitempty"`
	Sentinel    bool      `json:"sentinel"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ToVendorResponse maps a domain vendor to its API shape
func ToVendorResponse(v *vendor.Vendor) VendorResponse {
	skus := make([]string, len(v.SKUMappings))
	copy(skus, v.SKUMappings)
	return VendorResponse{
		ID:          v.ID,
		Name:        v.Name,
		SKUs:        skus,
		ContactName: v.ContactName,
		Email:       v.Email,
		Phone:       v.Phone,
		Sentinel:    v.IsUnassignedSentinel(),
		CreatedAt:   v.CreatedAt,
		UpdatedAt:   v.UpdatedAt,
	}
}
