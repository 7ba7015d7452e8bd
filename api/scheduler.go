/*
scheduler.go - Automated ledger/outstanding reconciliation

PURPOSE:
  Periodically rebuilds every party's ledger and compares the closing
  balance with the party's stored outstanding balance. Each comparison is
  saved as a reconciliation run. A divergence is reported, never
  corrected: neither side is treated as the source of truth.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Runs once immediately on start, then on every tick
  - A party whose ledger cannot be built gets a failed run; the sweep goes on
  - Records reconciliation runs for audit and UI display

CONFIGURATION:
  - CheckInterval: How often to check (default: 1 hour, RECONCILE_INTERVAL)
  - Enabled: Whether scheduler is active (default: true)

USAGE:
  scheduler := NewReconciliationScheduler(handler.Reconciler, log)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: ProcessReconciliation endpoint (manual run)
  - ledger/ledger.go: Statement.Reconcile
*/
package api

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/warp/bizledger/generic"
	"github.com/warp/bizledger/ledger"
)

// =============================================================================
// RECONCILER - One sweep over all parties
// =============================================================================

// ReconcileStore is what a sweep reads and writes.
type ReconcileStore interface {
	generic.PartyStore
	generic.ReconciliationRunStore
}

type Reconciler struct {
	Store   ReconcileStore
	Builder *ledger.Builder
	Log     zerolog.Logger

	NewID func() string
	Now   func() time.Time
}

// ReconcileSummary counts the outcome of one sweep.
type ReconcileSummary struct {
	Processed int `json:"processed"`
	Diverged  int `json:"diverged"`
	Failed    int `json:"failed"`
}

func NewReconciler(store ReconcileStore, builder *ledger.Builder, log zerolog.Logger) *Reconciler {
	return &Reconciler{
		Store:   store,
		Builder: builder,
		Log:     log.With().Str("component", "reconciler").Logger(),
		NewID:   uuid.NewString,
		Now:     time.Now,
	}
}

// ReconcileParty builds the party's full ledger from a zero opening and
// compares it with the stored outstanding balance. The run is returned,
// not saved.
func (rc *Reconciler) ReconcileParty(ctx context.Context, party generic.Party) generic.ReconciliationRun {
	run := generic.ReconciliationRun{
		ID:          rc.NewID(),
		PartyID:     party.ID,
		Outstanding: party.Outstanding,
		StartedAt:   rc.Now().UTC(),
	}

	stmt, err := rc.Builder.Build(ctx, party.ID, decimal.Zero)
	if err != nil {
		run.Status = generic.RunFailed
		run.Error = err.Error()
	} else {
		rec := stmt.Reconcile(party.Outstanding)
		run.Status = generic.RunCompleted
		run.LedgerBalance = rec.LedgerBalance
		run.Difference = rec.Difference
		run.Diverged = rec.Diverged
	}
	run.CompletedAt = rc.Now().UTC()
	return run
}

// ReconcileAll reconciles and records every party. Only a failure to list
// parties aborts the sweep.
func (rc *Reconciler) ReconcileAll(ctx context.Context) (ReconcileSummary, error) {
	var summary ReconcileSummary

	parties, err := rc.Store.ListParties(ctx)
	if err != nil {
		return summary, err
	}

	for _, party := range parties {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		run := rc.ReconcileParty(ctx, party)
		if err := rc.Store.SaveReconciliationRun(ctx, run); err != nil {
			rc.Log.Error().Err(err).Str("party_id", string(party.ID)).Msg("Failed to save reconciliation run")
		}

		switch {
		case run.Status == generic.RunFailed:
			summary.Failed++
			rc.Log.Warn().Str("party_id", string(party.ID)).Str("error", run.Error).Msg("Ledger build failed during reconciliation")
		case run.Diverged:
			summary.Processed++
			summary.Diverged++
			rc.Log.Warn().
				Str("party_id", string(party.ID)).
				Str("ledger_balance", run.LedgerBalance.String()).
				Str("outstanding", run.Outstanding.String()).
				Str("difference", run.Difference.String()).
				Msg("Ledger balance diverges from stored outstanding")
		default:
			summary.Processed++
		}
	}
	return summary, nil
}

// =============================================================================
// SCHEDULER
// =============================================================================

// ReconciliationScheduler runs the reconciler on a fixed interval.
type ReconciliationScheduler struct {
	Reconciler    *Reconciler
	CheckInterval time.Duration
	Enabled       bool
	Log           zerolog.Logger

	ticker *time.Ticker
	stop   chan bool
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewReconciliationScheduler creates a new scheduler.
func NewReconciliationScheduler(reconciler *Reconciler, log zerolog.Logger) *ReconciliationScheduler {
	return &ReconciliationScheduler{
		Reconciler:    reconciler,
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
		Log:           log.With().Str("component", "scheduler").Logger(),
	}
}

// Start begins the scheduler.
func (rs *ReconciliationScheduler) Start() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if !rs.Enabled {
		rs.Log.Info().Msg("Disabled, not starting")
		return
	}
	if rs.ticker != nil {
		return
	}

	// Stop closes the channel, so each start gets a fresh one.
	rs.ticker = time.NewTicker(rs.CheckInterval)
	rs.stop = make(chan bool)
	rs.wg.Add(1)

	go rs.run(rs.ticker.C, rs.stop)

	rs.Log.Info().Dur("interval", rs.CheckInterval).Msg("Started")
}

// Stop stops the scheduler and waits for an in-flight sweep.
func (rs *ReconciliationScheduler) Stop() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.ticker != nil {
		rs.ticker.Stop()
		close(rs.stop)
		rs.wg.Wait()
		rs.ticker = nil
		rs.Log.Info().Msg("Stopped")
	}
}

func (rs *ReconciliationScheduler) run(tick <-chan time.Time, stop <-chan bool) {
	defer rs.wg.Done()

	// Run immediately on start
	rs.checkAndProcess()

	for {
		select {
		case <-tick:
			rs.checkAndProcess()
		case <-stop:
			return
		}
	}
}

func (rs *ReconciliationScheduler) checkAndProcess() {
	ctx, cancel := context.WithTimeout(context.Background(), rs.CheckInterval)
	defer cancel()

	rs.Log.Debug().Msg("Checking parties")

	summary, err := rs.Reconciler.ReconcileAll(ctx)
	if err != nil {
		rs.Log.Error().Err(err).Msg("Reconciliation sweep failed")
		return
	}
	if summary.Processed > 0 || summary.Failed > 0 {
		rs.Log.Info().
			Int("processed", summary.Processed).
			Int("diverged", summary.Diverged).
			Int("failed", summary.Failed).
			Msg("Completed")
	}
}

// RunNow triggers an immediate check (for testing/admin).
func (rs *ReconciliationScheduler) RunNow() {
	rs.checkAndProcess()
}

// GetNextRunTime returns when the next scheduled check will occur.
func (rs *ReconciliationScheduler) GetNextRunTime() time.Time {
	return time.Now().Add(rs.CheckInterval)
}
