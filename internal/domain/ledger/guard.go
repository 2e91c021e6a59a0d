package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stocksync/backend/internal/domain/shared/valueobject"
	"go.uber.org/zap"
)

// Outcome describes what Record did with a candidate transaction
type Outcome string

const (
	// OutcomeRecorded means a new transaction was appended to the ledger
	OutcomeRecorded Outcome = "RECORDED"
	// OutcomeDuplicateSuppressed means the candidate duplicated an existing
	// transaction and was dropped. Informational, not an error.
	OutcomeDuplicateSuppressed Outcome = "DUPLICATE_SUPPRESSED"
)

// RecordResult is the outcome of a guarded record call
type RecordResult struct {
	Outcome     Outcome
	Transaction *Transaction // nil when suppressed
}

// Guard enforces the at-most-one invariant: no two transactions of the same
// type/location/day may share a (source order, SKU) pair. Re-entrant calls
// with the same inputs are idempotent no-ops.
type Guard struct {
	repo   Repository
	logger *zap.Logger
}

// NewGuard creates a new dedup guard over the given repository
func NewGuard(repo Repository, logger *zap.Logger) *Guard {
	return &Guard{repo: repo, logger: logger}
}

// Record appends a new transaction unless the candidate's (order, SKU) pair
// set is a subset of an existing same-type/location/day transaction's set.
// Transactions are never quantity-merged here; merging happens only at sync
// time so the ledger stays an exact event log.
func (g *Guard) Record(ctx context.Context, txType Type, location valueobject.Location, date time.Time, lines []Line, sourceOrderID *uuid.UUID, autoCreated bool) (*RecordResult, error) {
	candidate, err := NewTransaction(txType, location, date, lines, sourceOrderID, autoCreated)
	if err != nil {
		return nil, err
	}

	existing, err := g.repo.FindByTypeLocationDay(ctx, txType, location, candidate.Day())
	if err != nil {
		return nil, err
	}

	candidatePairs := candidate.PairSet()
	for i := range existing {
		if isSubset(candidatePairs, existing[i].PairSet()) {
			g.logger.Info("duplicate transaction suppressed",
				zap.String("type", txType.String()),
				zap.String("location", location.String()),
				zap.Time("day", candidate.Day()),
				zap.String("existing_id", existing[i].ID.String()),
			)
			return &RecordResult{Outcome: OutcomeDuplicateSuppressed}, nil
		}
	}

	if err := g.repo.Save(ctx, candidate); err != nil {
		return nil, err
	}
	return &RecordResult{Outcome: OutcomeRecorded, Transaction: candidate}, nil
}

// isSubset reports whether every pair in a is present in b
func isSubset(a, b map[Pair]struct{}) bool {
	if len(a) == 0 || len(a) > len(b) {
		return false
	}
	for p := range a {
		if _, ok := b[p]; !ok {
			return false
		}
	}
	return true
}
