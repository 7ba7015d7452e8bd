package ledger_test

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/bizledger/generic"
	"github.com/warp/bizledger/generic/store"
	"github.com/warp/bizledger/ledger"
)

// =============================================================================
// TEST SETUP
// =============================================================================

var (
	day1 = time.Date(2025, time.April, 1, 10, 0, 0, 0, time.UTC)
	day2 = day1.AddDate(0, 0, 1)
	day3 = day1.AddDate(0, 0, 2)
	now  = time.Date(2026, time.January, 15, 12, 0, 0, 0, time.UTC)
)

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func sale(id string, at generic.DateValue, amount int64) generic.TransactionRecord {
	return generic.TransactionRecord{
		ID:      generic.RecordID(id),
		PartyID: "party-1",
		Kind:    generic.KindSale,
		Date:    at,
		Debit:   dec(amount),
		Sale:    &generic.SaleDetails{InvoiceNumber: "INV-" + id, Status: "unpaid"},
	}
}

func payment(id string, at generic.DateValue, amount int64) generic.TransactionRecord {
	return generic.TransactionRecord{
		ID:      generic.RecordID(id),
		PartyID: "party-1",
		Kind:    generic.KindPayment,
		Date:    at,
		Credit:  dec(amount),
		Payment: &generic.PaymentDetails{ReferenceNumber: "UTR-" + id, Method: "upi"},
	}
}

func testOptions() ledger.Options {
	opts := ledger.DefaultOptions()
	opts.Dates.Now = func() time.Time { return now }
	return opts
}

func balances(stmt ledger.Statement) []string {
	out := make([]string, len(stmt.Entries))
	for i, e := range stmt.Entries {
		out[i] = e.Balance.String()
	}
	return out
}

func ids(stmt ledger.Statement) []generic.RecordID {
	out := make([]generic.RecordID, len(stmt.Entries))
	for i, e := range stmt.Entries {
		out[i] = e.Record.ID
	}
	return out
}

// =============================================================================
// RUNNING BALANCE
// =============================================================================

func TestFold_EndToEndScenario(t *testing.T) {
	// GIVEN: Opening 0; sale 1000 day 1, payment 400 day 2, sale 200 day 3
	// WHEN: Folding (records supplied out of order)
	// THEN: Balances are 1000, 600, 800 and the closing balance is 800

	records := []generic.TransactionRecord{
		sale("s2", generic.DateOf(day3), 200),
		payment("p1", generic.DateFromTimestamp(generic.TimestampOf(day2)), 400),
		sale("s1", generic.DateText(day1.Format(time.RFC3339)), 1000),
	}

	stmt := ledger.Fold("party-1", records, decimal.Zero, testOptions())

	assert.Equal(t, []generic.RecordID{"s1", "p1", "s2"}, ids(stmt))
	assert.Equal(t, []string{"1000", "600", "800"}, balances(stmt))
	assert.True(t, dec(800).Equal(stmt.ClosingBalance))
	assert.True(t, dec(1200).Equal(stmt.TotalDebit))
	assert.True(t, dec(400).Equal(stmt.TotalCredit))
}

func TestFold_PrefixInvariant(t *testing.T) {
	// GIVEN: A random mix of sales and payments and a non-zero opening balance
	// THEN: Every prefix balance equals opening + Σ(debit − credit) of that prefix

	rng := rand.New(rand.NewSource(7))
	var records []generic.TransactionRecord
	for i := 0; i < 60; i++ {
		at := generic.DateOf(day1.Add(time.Duration(rng.Intn(500)) * time.Hour))
		id := string(rune('a'+i%26)) + time.Duration(i).String()
		if rng.Intn(2) == 0 {
			records = append(records, sale(id, at, int64(rng.Intn(5000))))
		} else {
			records = append(records, payment(id, at, int64(rng.Intn(3000))))
		}
	}
	opening := decimal.RequireFromString("-125.50")

	stmt := ledger.Fold("party-1", records, opening, testOptions())
	require.Len(t, stmt.Entries, len(records))

	running := opening
	var debit, credit decimal.Decimal
	for i, e := range stmt.Entries {
		running = running.Add(e.Record.Debit).Sub(e.Record.Credit)
		debit = debit.Add(e.Record.Debit)
		credit = credit.Add(e.Record.Credit)
		assert.True(t, running.Equal(e.Balance), "prefix %d: want %s got %s", i, running, e.Balance)
		if i > 0 {
			assert.False(t, e.At.Before(stmt.Entries[i-1].At), "entries must be ascending")
		}
	}
	assert.True(t, opening.Add(debit).Sub(credit).Equal(stmt.ClosingBalance))
}

func TestFold_EmptyLedger(t *testing.T) {
	stmt := ledger.Fold("party-1", nil, dec(50), testOptions())
	assert.Empty(t, stmt.Entries)
	assert.True(t, dec(50).Equal(stmt.OpeningBalance))
	assert.True(t, dec(50).Equal(stmt.ClosingBalance))
}

// =============================================================================
// ORDERING
// =============================================================================

func TestFold_EqualDatesDeterministic(t *testing.T) {
	// GIVEN: Several records sharing one instant
	// WHEN: Folding the same input repeatedly and in shuffled order
	// THEN: The output order never changes

	same := generic.DateOf(day1)
	records := []generic.TransactionRecord{
		payment("p-b", same, 10),
		sale("s-b", same, 100),
		payment("p-a", same, 20),
		sale("s-a", same, 200),
	}

	first := ids(ledger.Fold("party-1", records, decimal.Zero, testOptions()))
	assert.Equal(t, []generic.RecordID{"s-a", "s-b", "p-a", "p-b"}, first)

	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 20; i++ {
		shuffled := append([]generic.TransactionRecord(nil), records...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		assert.Equal(t, first, ids(ledger.Fold("party-1", shuffled, decimal.Zero, testOptions())))
	}
}

func TestFold_NotesFoldByDebitCredit(t *testing.T) {
	records := []generic.TransactionRecord{
		sale("s1", generic.DateOf(day1), 1000),
		{ID: "cn1", PartyID: "party-1", Kind: generic.KindCreditNote, Date: generic.DateOf(day2), Credit: dec(150)},
		{ID: "dn1", PartyID: "party-1", Kind: generic.KindDebitNote, Date: generic.DateOf(day3), Debit: dec(25)},
	}
	stmt := ledger.Fold("party-1", records, decimal.Zero, testOptions())
	assert.Equal(t, []string{"1000", "850", "875"}, balances(stmt))
}

// =============================================================================
// MALFORMED DATES
// =============================================================================

func TestFold_MalformedDateIncludedAtNow(t *testing.T) {
	// GIVEN: A payment with an unparseable date string
	// WHEN: Folding with a fixed clock
	// THEN: The payment is kept, sorted at "now", flagged, and formatted

	records := []generic.TransactionRecord{
		sale("s1", generic.DateOf(day1), 1000),
		payment("p-bad", generic.DateText("yesterday-ish"), 300),
	}

	stmt := ledger.Fold("party-1", records, decimal.Zero, testOptions())

	require.Len(t, stmt.Entries, 2)
	bad := stmt.Entries[1]
	assert.Equal(t, generic.RecordID("p-bad"), bad.Record.ID)
	assert.True(t, bad.DateFallback)
	assert.Equal(t, now, bad.At)
	assert.Equal(t, "15 Jan 2026", bad.FormattedDate)
	assert.Equal(t, 1, stmt.FallbackDates)
	assert.True(t, dec(700).Equal(stmt.ClosingBalance))
}

func TestFold_ExcludePolicyDropsRecord(t *testing.T) {
	opts := testOptions()
	opts.Dates.Malformed = generic.ExcludeMalformed

	records := []generic.TransactionRecord{
		sale("s1", generic.DateOf(day1), 1000),
		payment("p-bad", generic.DateText("??"), 300),
	}
	stmt := ledger.Fold("party-1", records, decimal.Zero, opts)

	assert.Len(t, stmt.Entries, 1)
	assert.Equal(t, 1, stmt.Excluded)
	assert.True(t, dec(1000).Equal(stmt.ClosingBalance))
}

// =============================================================================
// PERIOD
// =============================================================================

func TestFoldPeriod_CarriesEarlierRecordsIntoOpening(t *testing.T) {
	records := []generic.TransactionRecord{
		sale("s1", generic.DateOf(day1), 1000),
		payment("p1", generic.DateOf(day2), 400),
		sale("s2", generic.DateOf(day3), 200),
		sale("s3", generic.DateOf(day3.AddDate(0, 1, 0)), 999),
	}
	period := generic.DayPeriod(day2, day3)

	stmt := ledger.FoldPeriod("party-1", records, dec(100), period, testOptions())

	assert.Equal(t, []generic.RecordID{"p1", "s2"}, ids(stmt))
	assert.True(t, dec(1100).Equal(stmt.OpeningBalance))
	assert.Equal(t, []string{"700", "900"}, balances(stmt))
	assert.True(t, dec(900).Equal(stmt.ClosingBalance))
	assert.True(t, dec(200).Equal(stmt.TotalDebit))
}

func TestFoldPeriod_FallbackCountCoversListedEntriesOnly(t *testing.T) {
	// GIVEN: A malformed date that falls back to a "now" after the window
	// WHEN: Folding April 1..3
	// THEN: The record is not listed and is not counted as a listed fallback
	records := []generic.TransactionRecord{
		sale("s1", generic.DateOf(day1), 1000),
		payment("p-bad", generic.DateText("yesterday-ish"), 300),
	}

	stmt := ledger.FoldPeriod("party-1", records, decimal.Zero, generic.DayPeriod(day1, day3), testOptions())

	assert.Equal(t, []generic.RecordID{"s1"}, ids(stmt))
	assert.Equal(t, 0, stmt.FallbackDates)

	open := ledger.FoldPeriod("party-1", records, decimal.Zero, generic.DayPeriod(day1, time.Time{}), testOptions())
	assert.Equal(t, 1, open.FallbackDates)
}

func TestFoldPeriod_NothingInWindow(t *testing.T) {
	records := []generic.TransactionRecord{sale("s1", generic.DateOf(day1), 1000)}
	period := generic.DayPeriod(day3, day3)

	stmt := ledger.FoldPeriod("party-1", records, decimal.Zero, period, testOptions())

	assert.Empty(t, stmt.Entries)
	assert.True(t, dec(1000).Equal(stmt.OpeningBalance))
	assert.True(t, dec(1000).Equal(stmt.ClosingBalance))
}

// =============================================================================
// DISPLAY FIELDS
// =============================================================================

func TestFold_SalePassthroughFields(t *testing.T) {
	s := sale("s1", generic.DateOf(day1), 1000)
	s.Sale.DueDate = day1.AddDate(0, 0, 30)
	s.Sale.Items = []generic.SaleItem{
		{Description: "Rice 5kg", Quantity: 2},
		{Description: "Dal 1kg", Quantity: 1},
		{Description: "Oil 1L", Quantity: 3},
	}
	p := payment("p1", generic.DateOf(day2), 10)

	stmt := ledger.Fold("party-1", []generic.TransactionRecord{s, p}, decimal.Zero, testOptions())

	saleEntry, payEntry := stmt.Entries[0], stmt.Entries[1]
	assert.Equal(t, "INV-s1", saleEntry.InvoiceNumber)
	assert.Equal(t, "unpaid", saleEntry.Status)
	assert.Equal(t, "01 May 2025", saleEntry.DueDate)
	assert.Equal(t, "Rice 5kg ×2, Dal 1kg ×1 +1 more", saleEntry.ItemsPreview)
	assert.Equal(t, "01 Apr 2025", saleEntry.FormattedDate)

	assert.Empty(t, payEntry.InvoiceNumber)
	assert.Empty(t, payEntry.ItemsPreview)
}

func TestStatement_Reconcile(t *testing.T) {
	stmt := ledger.Fold("party-1", []generic.TransactionRecord{sale("s1", generic.DateOf(day1), 500)}, decimal.Zero, testOptions())

	ok := stmt.Reconcile(dec(500))
	assert.False(t, ok.Diverged)

	off := stmt.Reconcile(dec(450))
	assert.True(t, off.Diverged)
	assert.True(t, dec(50).Equal(off.Difference))
}

// =============================================================================
// BUILDER
// =============================================================================

func TestBuilder_MergesOriginCollections(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	require.NoError(t, mem.RecordTransaction(ctx, sale("s1", generic.DateOf(day1), 1000)))
	require.NoError(t, mem.RecordTransaction(ctx, payment("p1", generic.DateOf(day2), 400)))
	require.NoError(t, mem.RecordTransaction(ctx, sale("s2", generic.DateOf(day3), 200)))

	b := ledger.NewBuilder(mem)
	b.Options = testOptions()

	stmt, err := b.Build(ctx, "party-1", decimal.Zero)
	require.NoError(t, err)
	assert.Equal(t, []string{"1000", "600", "800"}, balances(*stmt))
}

func TestBuilder_NotesOnlyWhenConfigured(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	require.NoError(t, mem.RecordTransaction(ctx, sale("s1", generic.DateOf(day1), 1000)))
	require.NoError(t, mem.RecordTransaction(ctx, generic.TransactionRecord{
		ID: "cn1", PartyID: "party-1", Kind: generic.KindCreditNote, Date: generic.DateOf(day2), Credit: dec(100),
	}))

	b := ledger.NewBuilder(mem)
	stmt, err := b.Build(ctx, "party-1", decimal.Zero)
	require.NoError(t, err)
	assert.Len(t, stmt.Entries, 1)

	b.Kinds = []generic.RecordKind{generic.KindSale, generic.KindPayment, generic.KindCreditNote}
	stmt, err = b.Build(ctx, "party-1", decimal.Zero)
	require.NoError(t, err)
	assert.Len(t, stmt.Entries, 2)
	assert.True(t, dec(900).Equal(stmt.ClosingBalance))
}

func TestBuilder_FetchFailureIsSingleError(t *testing.T) {
	// GIVEN: The payments collection is unavailable
	// WHEN: Building the ledger
	// THEN: One FetchError is returned and no statement at all

	ctx := context.Background()
	mem := store.NewMemory()
	require.NoError(t, mem.RecordTransaction(ctx, sale("s1", generic.DateOf(day1), 1000)))
	unavailable := errors.New("store unavailable")
	mem.FailKinds = map[generic.RecordKind]error{generic.KindPayment: unavailable}

	stmt, err := ledger.NewBuilder(mem).Build(ctx, "party-1", decimal.Zero)

	assert.Nil(t, stmt)
	assert.ErrorIs(t, err, generic.ErrFetchFailed)
	assert.ErrorIs(t, err, unavailable)
	var fe *ledger.FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, generic.KindPayment, fe.Kind)
	assert.True(t, generic.IsRetryable(err))
}

func TestBuilder_RequiresParty(t *testing.T) {
	_, err := ledger.NewBuilder(store.NewMemory()).Build(context.Background(), "", decimal.Zero)
	assert.ErrorIs(t, err, generic.ErrValidation)
}

func TestBuilder_RejectsInvertedPeriod(t *testing.T) {
	_, err := ledger.NewBuilder(store.NewMemory()).BuildPeriod(context.Background(), "party-1", decimal.Zero,
		generic.Period{Start: day3, End: day1})
	assert.ErrorIs(t, err, generic.ErrInvalidPeriod)
}
