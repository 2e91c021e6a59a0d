package procurement

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/stocksync/backend/internal/domain/ledger"
	"github.com/stocksync/backend/internal/domain/order"
	"github.com/stocksync/backend/internal/domain/shared"
	"github.com/stocksync/backend/internal/domain/shared/valueobject"
	"github.com/stocksync/backend/internal/domain/sku"
	"github.com/stocksync/backend/internal/domain/vendor"
)

// StageService drives orders through the procurement lifecycle and produces
// the transactional side effects of each transition. Stage transitions are
// committed before ledger entries are recorded; a failed ledger write is
// reported as a warning and never rolls the transition back.
type StageService struct {
	orders   order.Repository
	vendors  vendor.Repository
	guard    *ledger.Guard
	expander *sku.Expander
	resolver *VendorResolver
	logger   *zap.Logger
}

// NewStageService creates a new StageService
func NewStageService(
	orders order.Repository,
	vendors vendor.Repository,
	guard *ledger.Guard,
	expander *sku.Expander,
	resolver *VendorResolver,
	logger *zap.Logger,
) *StageService {
	return &StageService{
		orders:   orders,
		vendors:  vendors,
		guard:    guard,
		expander: expander,
		resolver: resolver,
		logger:   logger,
	}
}

// movedItem is one item pulled out of its source order during a batch run
type movedItem struct {
	item   order.OrderItem
	source *order.Order
}

// ProcessItems moves selected items from Initial orders into per-vendor
// Processed orders. Items are regrouped by resolved vendor: each group lands
// on the newest open Processed order for that vendor, or on a freshly created
// one. Source orders left empty are deleted. A purchase transaction is
// recorded per vendor group and location over the expanded components.
//
// The batch never aborts as a whole: per-item failures and ledger warnings
// are collected in the result.
func (s *StageService) ProcessItems(ctx context.Context, req ProcessItemsRequest) (*ProcessItemsResult, error) {
	result := &ProcessItemsResult{}
	now := time.Now()

	overrides := make(map[string]string, len(req.VendorOverrides))
	for k, v := range req.VendorOverrides {
		overrides[sku.Canonical(k)] = v
	}

	groups := make(map[string][]movedItem)
	groupVendor := make(map[string]vendor.Ref)
	sources := make(map[uuid.UUID]*order.Order)

	for _, sel := range req.Selections {
		src, ok := sources[sel.OrderID]
		if !ok {
			loaded, err := s.orders.FindByID(ctx, sel.OrderID)
			if err != nil {
				result.Failures = append(result.Failures, ItemFailure{
					OrderID: sel.OrderID,
					Reason:  fmt.Sprintf("order not found: %v", err),
				})
				continue
			}
			if loaded.Stage != order.StageInitial {
				result.Failures = append(result.Failures, ItemFailure{
					OrderID: sel.OrderID,
					Reason:  fmt.Sprintf("order is in %s stage, only %s orders can be processed", loaded.Stage, order.StageInitial),
				})
				continue
			}
			sources[sel.OrderID] = loaded
			src = loaded
		}

		for _, itemID := range s.selectItemIDs(src, sel.ItemIDs, result) {
			item := src.GetItem(itemID)
			ref := s.resolver.Resolve(ctx, item.SKU, overrides)

			removed, err := src.RemoveItem(itemID)
			if err != nil {
				result.Failures = append(result.Failures, ItemFailure{
					OrderID: src.ID,
					ItemID:  itemID,
					SKU:     item.SKU,
					Reason:  err.Error(),
				})
				continue
			}
			removed.Vendor = ref
			removed.MarkProcessed(now)

			key := ref.GroupKey()
			groupVendor[key] = ref
			groups[key] = append(groups[key], movedItem{item: *removed, source: src})
		}
	}

	for key, moved := range groups {
		s.placeGroup(ctx, groupVendor[key], moved, now, result)
	}

	for _, src := range sources {
		if src.IsEmpty() {
			if err := s.orders.Delete(ctx, src.ID); err != nil {
				result.Warnings = append(result.Warnings,
					fmt.Sprintf("failed to delete emptied order %s: %v", src.OrderNumber, err))
				continue
			}
			result.DeletedOrders = append(result.DeletedOrders, src.ID)
			continue
		}
		if err := s.orders.SaveWithLock(ctx, src); err != nil {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("failed to save source order %s: %v", src.OrderNumber, err))
		}
	}

	s.logger.Info("batch processing finished",
		zap.Int("processed", result.ProcessedCount),
		zap.Int("created_orders", len(result.CreatedOrders)),
		zap.Int("appended_orders", len(result.AppendedOrders)),
		zap.Int("failures", len(result.Failures)),
	)
	return result, nil
}

// selectItemIDs resolves a selection to concrete item IDs. An empty selection
// means every unprocessed item on the order.
func (s *StageService) selectItemIDs(src *order.Order, itemIDs []uuid.UUID, result *ProcessItemsResult) []uuid.UUID {
	if len(itemIDs) == 0 {
		ids := make([]uuid.UUID, 0, len(src.Items))
		for idx := range src.Items {
			if !src.Items[idx].Processed {
				ids = append(ids, src.Items[idx].ID)
			}
		}
		return ids
	}

	ids := make([]uuid.UUID, 0, len(itemIDs))
	for _, id := range itemIDs {
		item := src.GetItem(id)
		if item == nil {
			result.Failures = append(result.Failures, ItemFailure{
				OrderID: src.ID,
				ItemID:  id,
				Reason:  "item not found on order",
			})
			continue
		}
		if item.Processed {
			result.Failures = append(result.Failures, ItemFailure{
				OrderID: src.ID,
				ItemID:  id,
				SKU:     item.SKU,
				Reason:  "item is already processed",
			})
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

// placeGroup lands one vendor group on a target Processed order and records
// its purchase transactions
func (s *StageService) placeGroup(ctx context.Context, ref vendor.Ref, moved []movedItem, now time.Time, result *ProcessItemsResult) {
	var target *order.Order
	appended := false

	if ref.IsAssigned() {
		existing, err := s.orders.FindOpenByStageAndVendor(ctx, order.StageProcessed, ref.VendorID)
		switch {
		case err == nil:
			target = existing
			appended = true
		case !errors.Is(err, shared.ErrNotFound):
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("lookup of open order for vendor %s failed: %v", ref.DisplayName(), err))
		}
	}

	if target == nil {
		created, err := order.NewOrder(newBatchOrderNumber(now))
		if err != nil {
			s.failGroup(moved, err, result)
			return
		}
		if err := created.MoveToStage(order.StageProcessed, "batch processing"); err != nil {
			s.failGroup(moved, err, result)
			return
		}
		target = created
	}

	for _, m := range moved {
		target.AppendItem(m.item)
	}

	var saveErr error
	if appended {
		saveErr = s.orders.SaveWithLock(ctx, target)
	} else {
		saveErr = s.orders.Save(ctx, target)
	}
	if saveErr != nil {
		// Put the items back so the source save does not lose them
		for _, m := range moved {
			m.source.AppendItem(m.item)
		}
		s.failGroup(moved, saveErr, result)
		return
	}

	if appended {
		result.AppendedOrders = append(result.AppendedOrders, target.ID)
	} else {
		result.CreatedOrders = append(result.CreatedOrders, target.ID)
	}
	result.ProcessedCount += len(moved)

	byLocation := make(map[valueobject.Location][]ledger.Line)
	for _, m := range moved {
		lines := s.expandToLines(ctx, &m.item, m.source.ID, ref)
		byLocation[m.item.Warehouse] = append(byLocation[m.item.Warehouse], lines...)
	}
	for location, lines := range byLocation {
		s.recordGuarded(ctx, ledger.TypePurchase, location, now, lines, nil,
			&result.TransactionIDs, &result.SuppressedCount, &result.Warnings)
	}
}

func (s *StageService) failGroup(moved []movedItem, err error, result *ProcessItemsResult) {
	for _, m := range moved {
		result.Failures = append(result.Failures, ItemFailure{
			OrderID: m.source.ID,
			ItemID:  m.item.ID,
			SKU:     m.item.SKU,
			Reason:  err.Error(),
		})
	}
}

// MoveToStage transitions an order directly to a target stage and records the
// transition's side effects. Moving into In-Stock records sales transactions;
// moving into Processed records purchase transactions, falling back to the
// Unassigned sentinel vendor where no vendor is assigned. Transitions out of
// terminal stages update history only.
func (s *StageService) MoveToStage(ctx context.Context, orderID uuid.UUID, req MoveStageRequest) (*MoveStageResult, error) {
	target := order.Stage(strings.ToUpper(strings.TrimSpace(req.Stage)))

	o, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	from := o.Stage
	fromTerminal := from.IsTerminal()

	if err := o.MoveToStage(target, req.Reason); err != nil {
		return nil, err
	}

	now := time.Now()
	directPurchase := !fromTerminal && target == order.StageProcessed
	if directPurchase {
		s.assignSentinelVendor(ctx, o)
		for idx := range o.Items {
			if !o.Items[idx].Processed {
				o.Items[idx].MarkProcessed(now)
			}
		}
	}

	if err := s.orders.SaveWithLock(ctx, o); err != nil {
		return nil, err
	}

	result := &MoveStageResult{}
	if !fromTerminal {
		switch {
		case target == order.StageInStock:
			s.recordForOrder(ctx, o, ledger.TypeSales, now, result)
		case directPurchase:
			s.recordForOrder(ctx, o, ledger.TypePurchase, now, result)
		}
	}

	result.Order = ToOrderResponse(o)
	return result, nil
}

// assignSentinelVendor points every unassigned item at the Unassigned
// sentinel vendor record when it exists
func (s *StageService) assignSentinelVendor(ctx context.Context, o *order.Order) {
	sentinel, err := s.vendors.FindByName(ctx, vendor.UnassignedName)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			s.logger.Warn("sentinel vendor lookup failed", zap.Error(err))
		}
		return
	}
	for idx := range o.Items {
		if !o.Items[idx].Vendor.IsAssigned() && o.Items[idx].Vendor.Kind != vendor.RefPendingSuggestion {
			o.Items[idx].Vendor = sentinel.Ref()
		}
	}
}

// recordForOrder records one guarded transaction per location over the
// order's expanded items
func (s *StageService) recordForOrder(ctx context.Context, o *order.Order, txType ledger.Type, now time.Time, result *MoveStageResult) {
	byLocation := make(map[valueobject.Location][]ledger.Line)
	for idx := range o.Items {
		item := &o.Items[idx]
		lines := s.expandToLines(ctx, item, o.ID, item.Vendor)
		byLocation[item.Warehouse] = append(byLocation[item.Warehouse], lines...)
	}

	sourceID := o.ID
	for location, lines := range byLocation {
		s.recordGuarded(ctx, txType, location, now, lines, &sourceID,
			&result.TransactionIDs, &result.SuppressedCount, &result.Warnings)
	}
}

// expandToLines expands one order item into ledger lines in purchasable
// units. The item's unit cost carries over only on passthrough expansion;
// component costs of packs and combos are unknown.
func (s *StageService) expandToLines(ctx context.Context, item *order.OrderItem, sourceOrderID uuid.UUID, ref vendor.Ref) []ledger.Line {
	expansion := s.expander.Expand(ctx, item.SKU, item.Quantity)
	lines := make([]ledger.Line, 0, len(expansion.Components))
	for _, component := range expansion.Components {
		cost := decimal.Zero
		if component.SKU == sku.Canonical(item.SKU) {
			cost = item.UnitCost
		}
		lines = append(lines, ledger.Line{
			SKU:      component.SKU,
			Quantity: component.Quantity,
			OrderID:  sourceOrderID,
			Vendor:   ref,
			UnitCost: cost,
		})
	}
	return lines
}

func (s *StageService) recordGuarded(
	ctx context.Context,
	txType ledger.Type,
	location valueobject.Location,
	date time.Time,
	lines []ledger.Line,
	sourceOrderID *uuid.UUID,
	txIDs *[]uuid.UUID,
	suppressed *int,
	warnings *[]string,
) {
	if len(lines) == 0 {
		return
	}
	res, err := s.guard.Record(ctx, txType, location, date, lines, sourceOrderID, true)
	if err != nil {
		*warnings = append(*warnings,
			fmt.Sprintf("%s transaction for %s failed: %v", strings.ToLower(txType.String()), location, err))
		return
	}
	if res.Outcome == ledger.OutcomeDuplicateSuppressed {
		*suppressed++
		return
	}
	*txIDs = append(*txIDs, res.Transaction.ID)
}

// ReceiveItem records the absolute received quantity for one item
func (s *StageService) ReceiveItem(ctx context.Context, orderID, itemID uuid.UUID, req ReceiveItemRequest) (*OrderResponse, error) {
	o, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := o.ReceiveItem(itemID, req.ReceivedQuantity); err != nil {
		return nil, err
	}
	if err := s.orders.SaveWithLock(ctx, o); err != nil {
		return nil, err
	}
	resp := ToOrderResponse(o)
	return &resp, nil
}

// BulkReceive records received quantities across orders. Each receipt is
// validated before any mutation; invalid receipts fail individually without
// aborting the batch.
func (s *StageService) BulkReceive(ctx context.Context, req BulkReceiveRequest) (*BulkReceiveResult, error) {
	result := &BulkReceiveResult{}

	byOrder := make(map[uuid.UUID][]BulkReceiveEntry)
	orderIDs := make([]uuid.UUID, 0)
	for _, receipt := range req.Receipts {
		if _, ok := byOrder[receipt.OrderID]; !ok {
			orderIDs = append(orderIDs, receipt.OrderID)
		}
		byOrder[receipt.OrderID] = append(byOrder[receipt.OrderID], receipt)
	}

	for _, orderID := range orderIDs {
		receipts := byOrder[orderID]
		o, err := s.orders.FindByID(ctx, orderID)
		if err != nil {
			for _, receipt := range receipts {
				result.Failures = append(result.Failures, ItemFailure{
					OrderID: orderID,
					ItemID:  receipt.ItemID,
					Reason:  fmt.Sprintf("order not found: %v", err),
				})
			}
			continue
		}

		applied := 0
		for _, receipt := range receipts {
			if err := o.ReceiveItem(receipt.ItemID, receipt.ReceivedQuantity); err != nil {
				result.Failures = append(result.Failures, ItemFailure{
					OrderID: orderID,
					ItemID:  receipt.ItemID,
					Reason:  err.Error(),
				})
				continue
			}
			applied++
		}
		if applied == 0 {
			continue
		}

		if err := s.orders.SaveWithLock(ctx, o); err != nil {
			for _, receipt := range receipts {
				result.Failures = append(result.Failures, ItemFailure{
					OrderID: orderID,
					ItemID:  receipt.ItemID,
					Reason:  fmt.Sprintf("save failed: %v", err),
				})
			}
			continue
		}
		result.UpdatedCount += applied
	}

	return result, nil
}

// newBatchOrderNumber generates an order number for a batch-created vendor
// order
func newBatchOrderNumber(now time.Time) string {
	suffix := strings.ToUpper(uuid.NewString()[:8])
	return fmt.Sprintf("PO-%s-%s", now.UTC().Format("20060102"), suffix)
}
