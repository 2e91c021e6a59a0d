package sync

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/stocksync/backend/internal/domain/extledger"
	"github.com/stocksync/backend/internal/domain/ledger"
	"github.com/stocksync/backend/internal/domain/shared"
	"github.com/stocksync/backend/internal/domain/sku"
)

// ConflictService detects pre-existing external ledger values for a sync
// batch's target dates and applies the caller's per-date resolution. It
// reuses the sync engine's grouping and write primitives so resolution and
// sync can never disagree on cell addressing.
type ConflictService struct {
	syncs  *SyncService
	logger *zap.Logger
}

// NewConflictService creates a new ConflictService over the sync engine
func NewConflictService(syncs *SyncService, logger *zap.Logger) *ConflictService {
	return &ConflictService{syncs: syncs, logger: logger}
}

// CheckConflicts reports every target (location, date) whose cells already
// hold nonzero values for a SKU the batch would write. Run before Sync when
// the caller wants interactive confirmation.
func (s *ConflictService) CheckConflicts(ctx context.Context, req CheckConflictsRequest) ([]DateConflict, error) {
	txs, err := s.syncs.transactions.FindByIDs(ctx, req.TransactionIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load transactions: %w", err)
	}
	if req.Location != nil {
		filtered := txs[:0]
		for i := range txs {
			if txs[i].Location == *req.Location {
				filtered = append(filtered, txs[i])
			}
		}
		txs = filtered
	}

	groups := s.syncs.buildGroups(ctx, txs, req.SyncDate)

	skusByDate := make(map[dateKey][]string)
	for _, group := range groups {
		key := dateKey{Location: group.Location, Day: group.Day}
		skusByDate[key] = appendUniqueString(skusByDate[key], group.SKU)
	}

	conflicts := make([]DateConflict, 0)
	for _, key := range distinctDates(groups) {
		skus := skusByDate[key]
		existing, err := s.syncs.external.GetExistingValuesForDate(ctx, key.Location, key.Day, skus)
		if err != nil {
			return nil, err
		}

		occupied := make(map[string]extledger.CellValue)
		occupiedSKUs := make([]string, 0)
		for _, candidate := range skus {
			if value, ok := existing[candidate]; ok && !value.IsZero() {
				occupied[candidate] = value
				occupiedSKUs = append(occupiedSKUs, candidate)
			}
		}
		if len(occupied) == 0 {
			continue
		}
		sort.Strings(occupiedSKUs)
		conflicts = append(conflicts, DateConflict{
			Location:       key.Location,
			Date:           key.Day,
			SKUs:           occupiedSKUs,
			ExistingValues: occupied,
		})
	}
	return conflicts, nil
}

// ResolveDateConflict applies the chosen resolution to one occupied date.
// Sum adds the batch's quantities to the existing values, replace overwrites
// them, and manual sums only the SKUs on the include list. Transactions that
// got at least one successful write are marked synced, same as a plain sync.
func (s *ConflictService) ResolveDateConflict(ctx context.Context, req ResolveConflictRequest) (*SyncResult, error) {
	var mode Mode
	switch req.Resolution {
	case ResolutionSum, ResolutionManual:
		mode = ModeSum
	case ResolutionReplace:
		mode = ModeReplace
	default:
		return nil, shared.NewDomainError("INVALID_RESOLUTION",
			fmt.Sprintf("Unknown conflict resolution %q", req.Resolution))
	}
	if req.Resolution == ResolutionManual && len(req.IncludeSKUs) == 0 {
		return nil, shared.NewDomainError("INVALID_RESOLUTION",
			"Manual resolution requires at least one included SKU")
	}

	txs, err := s.syncs.transactions.FindByIDs(ctx, req.TransactionIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load transactions: %w", err)
	}

	include := make(map[string]struct{}, len(req.IncludeSKUs))
	for _, raw := range req.IncludeSKUs {
		include[sku.Canonical(raw)] = struct{}{}
	}

	day := dateKey{Location: req.Location, Day: ledger.DayOf(req.Date)}
	groups := s.syncs.buildGroups(ctx, txs, &req.Date)

	result := &SyncResult{}
	scoped := make([]writeGroup, 0, len(groups))
	for _, group := range groups {
		if group.Location != day.Location || !group.Day.Equal(day.Day) {
			continue
		}
		if req.Resolution == ResolutionManual {
			if _, ok := include[group.SKU]; !ok {
				result.PerSKUResults = append(result.PerSKUResults, group.toResult(SKUSkipped, "excluded by manual resolution"))
				continue
			}
		}
		scoped = append(scoped, group)
	}
	if len(scoped) == 0 {
		return result, nil
	}

	succeeded, err := s.syncs.writePhase(ctx, scoped, mode, result, nil)
	s.syncs.markSynced(ctx, succeeded, result)
	if err != nil {
		return result, err
	}

	s.logger.Info("date conflict resolved",
		zap.String("location", req.Location.String()),
		zap.Time("date", day.Day),
		zap.String("resolution", string(req.Resolution)),
		zap.Int("groups", len(scoped)),
	)
	return result, nil
}

func appendUniqueString(list []string, s string) []string {
	for _, existing := range list {
		if existing == s {
			return list
		}
	}
	return append(list, s)
}
