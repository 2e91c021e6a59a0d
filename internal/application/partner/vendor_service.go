package partner

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/stocksync/backend/internal/domain/ledger"
	"github.com/stocksync/backend/internal/domain/order"
	"github.com/stocksync/backend/internal/domain/shared"
	"github.com/stocksync/backend/internal/domain/vendor"
)

// VendorService manages vendor records and the references pointing at them.
// Vendor names are unique case-insensitively; the Unassigned sentinel is a
// regular record that cannot be merged away or deleted.
type VendorService struct {
	vendors      vendor.Repository
	orders       order.Repository
	transactions ledger.Repository
	logger       *zap.Logger
}

// NewVendorService creates a new VendorService
func NewVendorService(vendors vendor.Repository, orders order.Repository, transactions ledger.Repository, logger *zap.Logger) *VendorService {
	return &VendorService{
		vendors:      vendors,
		orders:       orders,
		transactions: transactions,
		logger:       logger,
	}
}

// Create creates a new vendor
func (s *VendorService) Create(ctx context.Context, req CreateVendorRequest) (*VendorResponse, error) {
	if _, err := s.vendors.FindByName(ctx, req.Name); err == nil {
		return nil, shared.NewDomainError("DUPLICATE_VENDOR_NAME",
			fmt.Sprintf("Vendor %q already exists", req.Name))
	} else if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	v, err := vendor.NewVendor(req.Name)
	if err != nil {
		return nil, err
	}
	v.SetContact(req.ContactName, req.Email, req.Phone)
	for _, rawSKU := range req.SKUs {
		v.AttachSKU(rawSKU)
	}

	if err := s.vendors.Save(ctx, v); err != nil {
		return nil, err
	}

	s.logger.Info("vendor created", zap.String("vendor", v.Name))
	resp := ToVendorResponse(v)
	return &resp, nil
}

// Get loads one vendor by ID
func (s *VendorService) Get(ctx context.Context, id uuid.UUID) (*VendorResponse, error) {
	v, err := s.vendors.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToVendorResponse(v)
	return &resp, nil
}

// List lists vendors
func (s *VendorService) List(ctx context.Context, filter shared.Filter) ([]VendorResponse, int64, error) {
	all, err := s.vendors.FindAll(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.vendors.Count(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]VendorResponse, len(all))
	for i := range all {
		responses[i] = ToVendorResponse(&all[i])
	}
	return responses, total, nil
}

// Update changes vendor contact details and SKU mappings
func (s *VendorService) Update(ctx context.Context, id uuid.UUID, req UpdateVendorRequest) (*VendorResponse, error) {
	v, err := s.vendors.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	contactName := v.ContactName
	if req.ContactName != nil {
		contactName = *req.ContactName
	}
	email := v.Email
	if req.Email != nil {
		email = *req.Email
	}
	phone := v.Phone
	if req.Phone != nil {
		phone = *req.Phone
	}
	v.SetContact(contactName, email, phone)

	if req.SKUs != nil {
		v.SKUMappings = v.SKUMappings[:0]
		for _, rawSKU := range req.SKUs {
			v.AttachSKU(rawSKU)
		}
	}

	if err := s.vendors.Save(ctx, v); err != nil {
		return nil, err
	}
	resp := ToVendorResponse(v)
	return &resp, nil
}

// Merge folds the duplicate vendor into the kept one. Every order item and
// ledger line pointing at the duplicate is rewritten first, then the
// duplicate's SKU mappings move over, then the duplicate is deleted.
func (s *VendorService) Merge(ctx context.Context, duplicateID uuid.UUID, req MergeVendorRequest) (*VendorResponse, error) {
	if duplicateID == req.KeepID {
		return nil, shared.NewDomainError("INVALID_MERGE", "A vendor cannot be merged into itself")
	}

	duplicate, err := s.vendors.FindByID(ctx, duplicateID)
	if err != nil {
		return nil, err
	}
	if duplicate.IsUnassignedSentinel() {
		return nil, shared.NewDomainError("INVALID_MERGE", "The Unassigned sentinel vendor cannot be merged away")
	}
	keep, err := s.vendors.FindByID(ctx, req.KeepID)
	if err != nil {
		return nil, err
	}

	from := duplicate.Ref()
	to := keep.Ref()
	if err := s.orders.ReassignVendor(ctx, from, to); err != nil {
		return nil, err
	}
	if err := s.transactions.ReassignVendor(ctx, from, to); err != nil {
		return nil, err
	}

	for _, mapped := range duplicate.SKUMappings {
		keep.AttachSKU(mapped)
	}
	if err := s.vendors.Save(ctx, keep); err != nil {
		return nil, err
	}
	if err := s.vendors.Delete(ctx, duplicateID); err != nil {
		return nil, err
	}

	s.logger.Info("vendor merged",
		zap.String("duplicate", duplicate.Name),
		zap.String("kept", keep.Name),
	)
	resp := ToVendorResponse(keep)
	return &resp, nil
}

// Delete removes a vendor after pointing its references at the explicit
// Unassigned variant
func (s *VendorService) Delete(ctx context.Context, id uuid.UUID) error {
	v, err := s.vendors.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if v.IsUnassignedSentinel() {
		return shared.NewDomainError("INVALID_DELETE", "The Unassigned sentinel vendor cannot be deleted")
	}

	from := v.Ref()
	to := vendor.Unassigned()
	if err := s.orders.ReassignVendor(ctx, from, to); err != nil {
		return err
	}
	if err := s.transactions.ReassignVendor(ctx, from, to); err != nil {
		return err
	}
	if err := s.vendors.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("vendor deleted", zap.String("vendor", v.Name))
	return nil
}

// EnsureUnassigned returns the Unassigned sentinel vendor, creating it on
// first use
func (s *VendorService) EnsureUnassigned(ctx context.Context) (*vendor.Vendor, error) {
	existing, err := s.vendors.FindByName(ctx, vendor.UnassignedName)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	sentinel, err := vendor.NewVendor(vendor.UnassignedName)
	if err != nil {
		return nil, err
	}
	if err := s.vendors.Save(ctx, sentinel); err != nil {
		return nil, err
	}
	s.logger.Info("unassigned sentinel vendor created")
	return sentinel, nil
}
