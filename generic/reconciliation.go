package generic

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// RECONCILIATION RUNS - Ledger balance vs stored outstanding
// =============================================================================

type RunStatus string

const (
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// ReconciliationRun records one comparison of a party's ledger closing
// balance with its stored outstanding balance. Nothing is corrected; a
// divergence is only reported.
type ReconciliationRun struct {
	ID            string
	PartyID       PartyID
	Status        RunStatus
	LedgerBalance decimal.Decimal
	Outstanding   decimal.Decimal
	Difference    decimal.Decimal // ledger - outstanding
	Diverged      bool
	Error         string
	StartedAt     time.Time
	CompletedAt   time.Time
}

// ReconciliationRunStore keeps the history of reconciliation sweeps.
type ReconciliationRunStore interface {
	SaveReconciliationRun(ctx context.Context, run ReconciliationRun) error

	// ReconciliationRuns returns the newest runs first. An empty partyID
	// returns runs for every party; limit <= 0 means no limit.
	ReconciliationRuns(ctx context.Context, partyID PartyID, limit int) ([]ReconciliationRun, error)
}
