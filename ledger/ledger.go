/*
Package ledger builds a party's chronological, balance-annotated statement.

PURPOSE:
  Merges the records of every origin collection (sales, payments, and the
  reserved note kinds) into one sequence ordered by date, and folds a
  running balance over it. The result is display data: it is rebuilt on
  every request and never stored.

INVARIANT:
  For every prefix of the entry sequence,

      balance = opening + Σ(debit − credit) over the prefix

  The last entry's balance is the statement's closing balance.

ORDERING:
  Records are sorted ascending by normalized date. Records sharing an
  instant are ordered by kind (sale, debit note, payment, credit note) and
  then by record ID, so the same input always yields the same order no
  matter how the store returned it.

BAD DATES:
  A date that cannot be read is handed to the normalizer's malformed-date
  policy. The default keeps the record and sorts it at "now"; the entry is
  flagged with DateFallback and a warning is logged. Because "now" moves,
  two builds over the same malformed input can differ.

EXAMPLE:
  Opening 0; sale 1000 (day 1), payment 400 (day 2), sale 200 (day 3)

    day 1  sale     1000        1000
    day 2  payment        400    600
    day 3  sale      200         800

SEE ALSO:
  - builder.go: Fetching from the store
  - generic/date.go: DateNormalizer and policies
*/
package ledger

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/warp/bizledger/format"
	"github.com/warp/bizledger/generic"
)

// =============================================================================
// ENTRY - One record annotated with its running balance
// =============================================================================

type Entry struct {
	Record        generic.TransactionRecord
	At            time.Time
	DateFallback  bool
	FormattedDate string
	Debit         decimal.Decimal
	Credit        decimal.Decimal
	Balance       decimal.Decimal

	// Populated for sale entries only.
	InvoiceNumber string
	ItemsPreview  string
	Status        string
	DueDate       string
}

// =============================================================================
// STATEMENT - The folded ledger for one party
// =============================================================================

type Statement struct {
	PartyID generic.PartyID
	Period  generic.Period

	// OpeningBalance includes anything folded from before Period.Start.
	OpeningBalance decimal.Decimal
	Entries        []Entry
	TotalDebit     decimal.Decimal
	TotalCredit    decimal.Decimal
	ClosingBalance decimal.Decimal

	FallbackDates int // listed entries whose date came from the malformed-date policy
	Excluded      int // records dropped by the malformed-date policy
}

// Reconciliation sets the ledger balance next to the party's stored
// outstanding balance. Neither side is treated as authoritative.
type Reconciliation struct {
	LedgerBalance decimal.Decimal
	Outstanding   decimal.Decimal
	Difference    decimal.Decimal // ledger - outstanding
	Diverged      bool
}

func (s *Statement) Reconcile(outstanding decimal.Decimal) Reconciliation {
	diff := s.ClosingBalance.Sub(outstanding)
	return Reconciliation{
		LedgerBalance: s.ClosingBalance,
		Outstanding:   outstanding,
		Difference:    diff,
		Diverged:      !diff.IsZero(),
	}
}

// =============================================================================
// OPTIONS
// =============================================================================

type Options struct {
	Dates      generic.DateNormalizer
	FormatDate func(time.Time) string
	Log        *zerolog.Logger
}

// DefaultOptions uses the wall clock, the fallback-to-now policy and the
// display date layout.
func DefaultOptions() Options {
	return Options{Dates: generic.DefaultDateNormalizer(), FormatDate: format.Date}
}

func (o Options) formatDate(t time.Time) string {
	if o.FormatDate == nil {
		return format.Date(t)
	}
	return o.FormatDate(t)
}

func (o Options) logger() *zerolog.Logger {
	if o.Log == nil {
		nop := zerolog.Nop()
		return &nop
	}
	return o.Log
}

// =============================================================================
// FOLD - Pure derivation
// =============================================================================

// Fold orders records and computes the running balance from opening.
func Fold(partyID generic.PartyID, records []generic.TransactionRecord, opening decimal.Decimal, opts Options) Statement {
	return FoldPeriod(partyID, records, opening, generic.Period{}, opts)
}

// FoldPeriod is Fold restricted to a window. Records before period.Start
// are folded into the opening balance; records after period.End are left
// out.
func FoldPeriod(partyID generic.PartyID, records []generic.TransactionRecord, opening decimal.Decimal, period generic.Period, opts Options) Statement {
	log := opts.logger()

	stmt := Statement{
		PartyID:     partyID,
		Period:      period,
		TotalDebit:  decimal.Zero,
		TotalCredit: decimal.Zero,
	}

	// 1. Normalize dates
	entries := make([]Entry, 0, len(records))
	for _, rec := range records {
		nd := opts.Dates.Normalize(rec.Date)
		if nd.Fallback {
			log.Warn().
				Str("party_id", string(partyID)).
				Str("record_id", string(rec.ID)).
				Str("kind", string(rec.Kind)).
				Str("raw_date", rec.Date.Raw()).
				Bool("included", nd.Include).
				Msg("malformed record date")
		}
		if !nd.Include {
			stmt.Excluded++
			continue
		}
		entries = append(entries, Entry{
			Record:       rec,
			At:           nd.At,
			DateFallback: nd.Fallback,
			Debit:        rec.Debit,
			Credit:       rec.Credit,
		})
	}

	// 2. Merge & sort
	sortEntries(entries)

	// 3. Fold, carrying pre-period entries into the opening balance
	balance := opening
	listed := entries[:0]
	for _, e := range entries {
		if period.AfterEnd(e.At) {
			break
		}
		if period.BeforeStart(e.At) {
			balance = balance.Add(e.Debit).Sub(e.Credit)
			continue
		}
		if len(listed) == 0 {
			stmt.OpeningBalance = balance
		}
		balance = balance.Add(e.Debit).Sub(e.Credit)
		e.Balance = balance
		e.FormattedDate = opts.formatDate(e.At)
		decorate(&e, opts)
		stmt.TotalDebit = stmt.TotalDebit.Add(e.Debit)
		stmt.TotalCredit = stmt.TotalCredit.Add(e.Credit)
		if e.DateFallback {
			stmt.FallbackDates++
		}
		listed = append(listed, e)
	}
	if len(listed) == 0 {
		stmt.OpeningBalance = balance
	}

	stmt.Entries = listed
	stmt.ClosingBalance = balance
	return stmt
}

// sortEntries orders by instant, then kind rank, then record ID.
func sortEntries(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if !a.At.Equal(b.At) {
			return a.At.Before(b.At)
		}
		if ra, rb := a.Record.Kind.Rank(), b.Record.Kind.Rank(); ra != rb {
			return ra < rb
		}
		return a.Record.ID < b.Record.ID
	})
}

// decorate fills the sale-only passthrough fields.
func decorate(e *Entry, opts Options) {
	if e.Record.Kind != generic.KindSale || e.Record.Sale == nil {
		return
	}
	sale := e.Record.Sale
	e.InvoiceNumber = sale.InvoiceNumber
	e.Status = sale.Status
	e.ItemsPreview = itemsPreview(sale.Items)
	if !sale.DueDate.IsZero() {
		e.DueDate = opts.formatDate(sale.DueDate)
	}
}

const previewItems = 2

func itemsPreview(items []generic.SaleItem) string {
	if len(items) == 0 {
		return ""
	}
	parts := make([]string, 0, previewItems)
	for i, item := range items {
		if i == previewItems {
			break
		}
		parts = append(parts, fmt.Sprintf("%s ×%d", item.Description, item.Quantity))
	}
	preview := strings.Join(parts, ", ")
	if extra := len(items) - previewItems; extra > 0 {
		preview += fmt.Sprintf(" +%d more", extra)
	}
	return preview
}
