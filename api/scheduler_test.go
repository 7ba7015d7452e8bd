package api

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/bizledger/generic"
	"github.com/warp/bizledger/generic/store"
)

// =============================================================================
// RECONCILER
// =============================================================================

func TestReconcileAll_FlagsDivergence(t *testing.T) {
	// GIVEN: A party whose stored outstanding missed a 500 payment
	// WHEN: Reconciling every party
	// THEN: One diverged run with ledger - outstanding = -500; nothing is corrected
	h, _, mem := newMemoryServer(t)
	ctx := context.Background()
	require.NoError(t, h.loadDivergentOutstandingScenario(ctx))

	before, err := mem.GetParty(ctx, "party-kiran")
	require.NoError(t, err)

	summary, err := h.Reconciler.ReconcileAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, ReconcileSummary{Processed: 1, Diverged: 1}, summary)

	runs, err := mem.ReconciliationRuns(ctx, "party-kiran", 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, generic.RunCompleted, runs[0].Status)
	assert.True(t, runs[0].Diverged)
	assert.True(t, d("-500").Equal(runs[0].Difference), runs[0].Difference.String())

	after, err := mem.GetParty(ctx, "party-kiran")
	require.NoError(t, err)
	assert.True(t, before.Outstanding.Equal(after.Outstanding))
}

func TestReconcileAll_FetchFailureRecordsFailedRun(t *testing.T) {
	mem := store.NewMemory()
	h, _ := newTestHandler(t, failingRecords{mem})
	ctx := context.Background()
	require.NoError(t, mem.SaveParty(ctx, generic.Party{ID: "p1", Name: "P1", Type: generic.PartyCustomer}))
	require.NoError(t, mem.SaveParty(ctx, generic.Party{ID: "p2", Name: "P2", Type: generic.PartyCustomer}))

	summary, err := h.Reconciler.ReconcileAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Failed)

	runs, err := mem.ReconciliationRuns(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, generic.RunFailed, runs[0].Status)
	assert.Contains(t, runs[0].Error, "connection reset")
}

func TestReconciliationEndpoints(t *testing.T) {
	h, router, _ := newMemoryServer(t)
	require.NoError(t, h.loadSmallShopScenario(context.Background()))

	rec := do(t, router, http.MethodPost, "/api/reconciliation/process", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	summary := decode[ReconcileSummary](t, rec)
	assert.Equal(t, 2, summary.Processed)
	assert.Zero(t, summary.Diverged)

	rec = do(t, router, http.MethodGet, "/api/reconciliation/runs?party=party-asha", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	runs := decode[struct {
		Runs []ReconciliationRunDTO `json:"runs"`
	}](t, rec).Runs
	require.Len(t, runs, 1)
	assert.Equal(t, "party-asha", runs[0].PartyID)
	assert.False(t, runs[0].Diverged)
}

// =============================================================================
// SCHEDULER
// =============================================================================

func TestScheduler_RunsOnStart(t *testing.T) {
	// GIVEN: A scheduler with a long interval
	// WHEN: Started and stopped
	// THEN: The immediate first sweep has completed and been recorded
	h, _, mem := newMemoryServer(t)
	ctx := context.Background()
	require.NoError(t, h.loadDivergentOutstandingScenario(ctx))

	s := NewReconciliationScheduler(h.Reconciler, zerolog.Nop())
	s.CheckInterval = time.Hour
	s.Start()
	s.Stop()
	s.Stop() // second stop is a no-op

	runs, err := mem.ReconciliationRuns(ctx, "", 0)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestScheduler_TicksAgainAfterRestart(t *testing.T) {
	// GIVEN: A scheduler that was started and stopped once
	// WHEN: Started again with a short interval
	// THEN: It keeps sweeping on the ticker, not just once on start
	h, _, mem := newMemoryServer(t)
	ctx := context.Background()
	require.NoError(t, h.loadDivergentOutstandingScenario(ctx))

	s := NewReconciliationScheduler(h.Reconciler, zerolog.Nop())
	s.CheckInterval = time.Hour
	s.Start()
	s.Stop()

	s.CheckInterval = 10 * time.Millisecond
	s.Start()
	t.Cleanup(s.Stop)

	assert.Eventually(t, func() bool {
		runs, err := mem.ReconciliationRuns(ctx, "", 0)
		return err == nil && len(runs) >= 4
	}, 2*time.Second, 10*time.Millisecond)
}

func TestScheduler_Disabled(t *testing.T) {
	h, _, mem := newMemoryServer(t)
	ctx := context.Background()
	require.NoError(t, h.loadDivergentOutstandingScenario(ctx))

	s := NewReconciliationScheduler(h.Reconciler, zerolog.Nop())
	s.Enabled = false
	s.Start()
	s.Stop()

	runs, err := mem.ReconciliationRuns(ctx, "", 0)
	require.NoError(t, err)
	assert.Empty(t, runs)
}
