package sync

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/stocksync/backend/internal/domain/extledger"
	"github.com/stocksync/backend/internal/domain/ledger"
	"github.com/stocksync/backend/internal/domain/shared/valueobject"
	"github.com/stocksync/backend/internal/domain/sku"
	"github.com/stocksync/backend/internal/infrastructure/lock"
)

// SyncService projects local ledger transactions into the external
// date-column ledger. The write phase holds the single-writer lock for the
// spreadsheet so the sum mode's read-modify-write cycle never loses updates.
type SyncService struct {
	transactions ledger.Repository
	external     extledger.Ledger
	expander     *sku.Expander
	locker       lock.SheetLocker
	logger       *zap.Logger
}

// NewSyncService creates a new SyncService
func NewSyncService(
	transactions ledger.Repository,
	external extledger.Ledger,
	expander *sku.Expander,
	locker lock.SheetLocker,
	logger *zap.Logger,
) *SyncService {
	return &SyncService{
		transactions: transactions,
		external:     external,
		expander:     expander,
		locker:       locker,
		logger:       logger,
	}
}

// groupKey identifies one external ledger cell
type groupKey struct {
	Location valueobject.Location
	Day      time.Time
	SKU      string
	Type     ledger.Type
}

// writeGroup is the summed quantity destined for one cell, together with the
// transactions that contributed to it
type writeGroup struct {
	groupKey
	Quantity int64
	TxIDs    []uuid.UUID
}

// dateKey identifies one date column to provision
type dateKey struct {
	Location valueobject.Location
	Day      time.Time
}

// progressFunc reports write-phase progress as (processed, total) groups
type progressFunc func(processed, total int)

// Sync runs the batched sync protocol: load candidates, re-expand SKUs
// against the live composite map, provision date columns, then write summed
// group values under the spreadsheet lock. A transaction is marked synced
// when at least one of its expanded SKUs wrote successfully; SKUs without
// ledger rows are reported back as missing, never auto-created.
func (s *SyncService) Sync(ctx context.Context, req SyncRequest) (*SyncResult, error) {
	return s.sync(ctx, req, nil)
}

func (s *SyncService) sync(ctx context.Context, req SyncRequest, progress progressFunc) (*SyncResult, error) {
	mode, err := ParseMode(string(req.Mode))
	if err != nil {
		return nil, err
	}

	result := &SyncResult{}
	candidates, err := s.loadCandidates(ctx, req, result)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return result, nil
	}

	groups := s.buildGroups(ctx, candidates, req.SyncDate)
	succeeded, err := s.writePhase(ctx, groups, mode, result, progress)
	s.markSynced(ctx, succeeded, result)
	if err != nil {
		return result, err
	}

	s.logger.Info("sync finished",
		zap.Int("transactions", len(candidates)),
		zap.Int("groups", len(groups)),
		zap.Int("synced", result.SyncedCount),
		zap.Int("missing_skus", len(result.MissingSKUs)),
	)
	return result, nil
}

// loadCandidates selects the transactions to sync. Already-synced
// transactions are skipped unless the request forces a re-sync.
func (s *SyncService) loadCandidates(ctx context.Context, req SyncRequest, result *SyncResult) ([]ledger.Transaction, error) {
	var (
		loaded []ledger.Transaction
		err    error
	)
	if len(req.TransactionIDs) > 0 {
		loaded, err = s.transactions.FindByIDs(ctx, req.TransactionIDs)
	} else {
		loaded, err = s.transactions.FindUnsynced(ctx, ledger.UnsyncedFilter{
			Location: req.Location,
			Type:     req.Type,
			Since:    req.Since,
			Until:    req.Until,
		})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load sync candidates: %w", err)
	}

	candidates := make([]ledger.Transaction, 0, len(loaded))
	for i := range loaded {
		tx := &loaded[i]
		if tx.SyncedToSheets && !req.Force {
			result.SkippedCount++
			continue
		}
		if req.Location != nil && tx.Location != *req.Location {
			continue
		}
		candidates = append(candidates, *tx)
	}
	return candidates, nil
}

// buildGroups re-expands every line against the live composite map and sums
// quantities per (location, date, SKU, type). Expansion always re-resolves
// live; an already-expanded line has no composite prefix and passes through
// unchanged, so re-expansion is idempotent.
func (s *SyncService) buildGroups(ctx context.Context, candidates []ledger.Transaction, syncDate *time.Time) []writeGroup {
	byKey := make(map[groupKey]*writeGroup)
	for i := range candidates {
		tx := &candidates[i]
		day := tx.Day()
		if syncDate != nil {
			day = ledger.DayOf(*syncDate)
		}
		for _, line := range tx.Lines {
			expansion := s.expander.Expand(ctx, line.SKU, line.Quantity)
			for _, component := range expansion.Components {
				key := groupKey{
					Location: tx.Location,
					Day:      day,
					SKU:      component.SKU,
					Type:     tx.Type,
				}
				group, ok := byKey[key]
				if !ok {
					group = &writeGroup{groupKey: key}
					byKey[key] = group
				}
				group.Quantity += component.Quantity
				group.TxIDs = appendUnique(group.TxIDs, tx.ID)
			}
		}
	}

	groups := make([]writeGroup, 0, len(byKey))
	for _, group := range byKey {
		groups = append(groups, *group)
	}
	sort.Slice(groups, func(i, j int) bool {
		a, b := groups[i], groups[j]
		if a.Location != b.Location {
			return a.Location < b.Location
		}
		if !a.Day.Equal(b.Day) {
			return a.Day.Before(b.Day)
		}
		if a.SKU != b.SKU {
			return a.SKU < b.SKU
		}
		return a.Type < b.Type
	})
	return groups
}

// writePhase provisions date columns and writes group values under the
// spreadsheet lock. It returns the IDs of transactions with at least one
// successful write. A permission failure aborts the phase; everything else
// is reported per group.
func (s *SyncService) writePhase(ctx context.Context, groups []writeGroup, mode Mode, result *SyncResult, progress progressFunc) (map[uuid.UUID]struct{}, error) {
	succeeded := make(map[uuid.UUID]struct{})
	if len(groups) == 0 {
		return succeeded, nil
	}

	handle, err := s.locker.Acquire(ctx, s.external.SpreadsheetID())
	if err != nil {
		return succeeded, fmt.Errorf("failed to acquire sheet lock: %w", err)
	}
	defer func() {
		if releaseErr := handle.Release(context.WithoutCancel(ctx)); releaseErr != nil {
			s.logger.Warn("failed to release sheet lock", zap.Error(releaseErr))
		}
	}()

	// Provision every date column before any value write so a concurrent
	// reader never sees a partially provisioned column
	columns := make(map[dateKey]int)
	columnErrs := make(map[dateKey]error)
	for _, key := range distinctDates(groups) {
		column, err := s.external.FindOrCreateDateColumn(ctx, key.Location, key.Day)
		if err != nil {
			if errors.Is(err, extledger.ErrPermissionDenied) {
				s.skipRemaining(groups, 0, result, "permission denied")
				return succeeded, err
			}
			columnErrs[key] = err
			continue
		}
		columns[key] = column
	}

	missing := make(map[string]struct{})
	total := len(groups)
	for idx, group := range groups {
		if progress != nil {
			progress(idx, total)
		}
		if ctx.Err() != nil {
			// Cancellation stops new writes; committed writes stay
			s.skipRemaining(groups, idx, result, "cancelled")
			return succeeded, ctx.Err()
		}

		key := dateKey{Location: group.Location, Day: group.Day}
		if provisionErr, failed := columnErrs[key]; failed {
			result.PerSKUResults = append(result.PerSKUResults, group.toResult(SKUFailed,
				fmt.Sprintf("date column unavailable: %v", provisionErr)))
			continue
		}

		status, err := s.writeGroup(ctx, group, columns[key], mode)
		switch {
		case err != nil && errors.Is(err, extledger.ErrPermissionDenied):
			result.PerSKUResults = append(result.PerSKUResults, group.toResult(SKUFailed, err.Error()))
			s.skipRemaining(groups, idx+1, result, "permission denied")
			return succeeded, err
		case status == SKUMissing:
			missing[group.SKU] = struct{}{}
			result.PerSKUResults = append(result.PerSKUResults, group.toResult(SKUMissing, ""))
		case err != nil:
			result.PerSKUResults = append(result.PerSKUResults, group.toResult(SKUFailed, err.Error()))
		default:
			result.PerSKUResults = append(result.PerSKUResults, group.toResult(SKUSynced, ""))
			for _, txID := range group.TxIDs {
				succeeded[txID] = struct{}{}
			}
		}
	}
	if progress != nil {
		progress(total, total)
	}

	result.MissingSKUs = sortedKeys(missing)
	return succeeded, nil
}

// writeGroup lands one group value in its cell. Sum mode reads the current
// value first; the spreadsheet lock makes the read-modify-write safe.
func (s *SyncService) writeGroup(ctx context.Context, group writeGroup, column int, mode Mode) (SKUStatus, error) {
	value := group.Quantity
	if mode == ModeSum {
		existing, err := s.external.ReadCell(ctx, group.Location, group.SKU, group.Type, column)
		if err != nil {
			if errors.Is(err, extledger.ErrSKUNotFound) {
				return SKUMissing, nil
			}
			return SKUFailed, err
		}
		value += existing
	}

	if err := s.external.WriteCell(ctx, group.Location, group.SKU, group.Type, column, value); err != nil {
		if errors.Is(err, extledger.ErrSKUNotFound) {
			return SKUMissing, nil
		}
		return SKUFailed, err
	}
	return SKUSynced, nil
}

func (s *SyncService) skipRemaining(groups []writeGroup, from int, result *SyncResult, reason string) {
	for _, group := range groups[from:] {
		result.PerSKUResults = append(result.PerSKUResults, group.toResult(SKUSkipped, reason))
	}
}

// markSynced flips the synced flag on every transaction with at least one
// successful SKU write
func (s *SyncService) markSynced(ctx context.Context, succeeded map[uuid.UUID]struct{}, result *SyncResult) {
	now := time.Now()
	for _, txID := range sortedIDs(succeeded) {
		if err := s.transactions.MarkSynced(ctx, txID, now); err != nil {
			s.logger.Warn("failed to mark transaction synced",
				zap.String("transaction_id", txID.String()),
				zap.Error(err),
			)
			continue
		}
		result.SyncedCount++
	}
}

func (g writeGroup) toResult(status SKUStatus, errMsg string) SKUResult {
	return SKUResult{
		Location: g.Location,
		Date:     g.Day,
		SKU:      g.SKU,
		Type:     g.Type,
		Quantity: g.Quantity,
		Status:   status,
		Error:    errMsg,
	}
}

func distinctDates(groups []writeGroup) []dateKey {
	seen := make(map[dateKey]struct{})
	keys := make([]dateKey, 0)
	for _, group := range groups {
		key := dateKey{Location: group.Location, Day: group.Day}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}
	return keys
}

func appendUnique(ids []uuid.UUID, id uuid.UUID) []uuid.UUID {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}

func sortedKeys(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func sortedIDs(set map[uuid.UUID]struct{}) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return ids[i].String() < ids[j].String()
	})
	return ids
}
