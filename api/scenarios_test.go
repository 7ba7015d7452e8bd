package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/bizledger/store/sqlite"
)

func TestScenarios_SmallShopLedger(t *testing.T) {
	// GIVEN: The small-shop scenario (Groceries override 12%, Dal 5%, Dairy 5%)
	// WHEN: Loading Asha's ledger
	// THEN: 1761.00 - 1000 + 396.00 = 1157.00 and it matches stored outstanding
	_, router, _ := newMemoryServer(t)

	rec := do(t, router, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: "small-shop"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, router, http.MethodGet, "/api/parties/party-asha/ledger", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	stmt := decode[StatementDTO](t, rec)

	require.Len(t, stmt.Entries, 3)
	assert.True(t, d("1761").Equal(stmt.Entries[0].Balance), stmt.Entries[0].Balance.String())
	assert.Equal(t, "Rice 5kg ×2, Dal 1kg ×3 +1 more", stmt.Entries[0].ItemsPreview)
	assert.True(t, d("761").Equal(stmt.Entries[1].Balance))
	assert.True(t, d("1157").Equal(stmt.ClosingBalance))
	require.NotNil(t, stmt.Reconciliation)
	assert.False(t, stmt.Reconciliation.Diverged)

	rec = do(t, router, http.MethodGet, "/api/scenarios/current", nil)
	assert.Equal(t, "small-shop", decode[ScenarioDTO](t, rec).ID)
}

func TestScenarios_MessyDatesOverSQLite(t *testing.T) {
	// GIVEN: Documents with timestamp, string, epoch and unreadable dates in SQLite
	// WHEN: Building the ledger
	// THEN: Every record is included; the unreadable one is flagged and sorts last
	s, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	_, router := newTestHandler(t, s)

	rec := do(t, router, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: "messy-dates"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, router, http.MethodGet, "/api/parties/party-meena/ledger", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	stmt := decode[StatementDTO](t, rec)

	require.Len(t, stmt.Entries, 5)
	assert.Equal(t, 1, stmt.FallbackDates)
	last := stmt.Entries[4]
	assert.Equal(t, "s-bad", last.ID)
	assert.True(t, last.DateFallback)
	assert.Equal(t, "sometime in March", last.RawDate)
	assert.True(t, d("724.5").Equal(stmt.ClosingBalance), stmt.ClosingBalance.String())
	assert.False(t, stmt.Reconciliation.Diverged)
}

func TestScenarios_UnknownAndReset(t *testing.T) {
	_, router, _ := newMemoryServer(t)

	rec := do(t, router, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: "nope"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	require.Equal(t, http.StatusOK, do(t, router, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: "divergent-outstanding"}).Code)
	rec = do(t, router, http.MethodGet, "/api/scenarios", nil)
	assert.Len(t, decode[[]ScenarioDTO](t, rec), 3)

	require.Equal(t, http.StatusOK, do(t, router, http.MethodPost, "/api/scenarios/reset", nil).Code)
	rec = do(t, router, http.MethodGet, "/api/parties", nil)
	assert.Empty(t, decode[[]PartyDTO](t, rec))
	rec = do(t, router, http.MethodGet, "/api/scenarios/current", nil)
	assert.Equal(t, "null\n", rec.Body.String())
}
