package ledger

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/warp/bizledger/generic"
)

// =============================================================================
// BUILDER - Fetches origin collections and folds them
// =============================================================================

// Builder reads every configured origin collection for a party and folds
// the records into a Statement.
//
// The fetches run concurrently; the merge runs after all of them succeed.
// If any fetch fails the whole build fails with a *FetchError and no
// partial statement is returned. The caller retries the whole build.
type Builder struct {
	Store   generic.TransactionStore
	Kinds   []generic.RecordKind
	Options Options
}

// NewBuilder returns a builder over sales and payments with default options.
func NewBuilder(store generic.TransactionStore) *Builder {
	return &Builder{
		Store:   store,
		Kinds:   generic.DefaultKinds,
		Options: DefaultOptions(),
	}
}

// Build returns the party's full statement seeded with opening.
func (b *Builder) Build(ctx context.Context, partyID generic.PartyID, opening decimal.Decimal) (*Statement, error) {
	return b.BuildPeriod(ctx, partyID, opening, generic.Period{})
}

// BuildPeriod returns the statement for period. Records before the period
// are folded into the opening balance.
func (b *Builder) BuildPeriod(ctx context.Context, partyID generic.PartyID, opening decimal.Decimal, period generic.Period) (*Statement, error) {
	if partyID == "" {
		return nil, &generic.ValidationError{Field: "party_id", Message: "required"}
	}
	if err := period.Validate(); err != nil {
		return nil, err
	}

	records, err := b.fetch(ctx, partyID)
	if err != nil {
		return nil, err
	}

	stmt := FoldPeriod(partyID, records, opening, period, b.Options)
	return &stmt, nil
}

func (b *Builder) kinds() []generic.RecordKind {
	if len(b.Kinds) == 0 {
		return generic.DefaultKinds
	}
	return b.Kinds
}

func (b *Builder) fetch(ctx context.Context, partyID generic.PartyID) ([]generic.TransactionRecord, error) {
	kinds := b.kinds()
	results := make([][]generic.TransactionRecord, len(kinds))

	g, gctx := errgroup.WithContext(ctx)
	for i, kind := range kinds {
		g.Go(func() error {
			recs, err := b.Store.QueryByParty(gctx, partyID, kind)
			if err != nil {
				return &FetchError{PartyID: partyID, Kind: kind, Err: err}
			}
			results[i] = recs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var total int
	for _, recs := range results {
		total += len(recs)
	}
	merged := make([]generic.TransactionRecord, 0, total)
	for _, recs := range results {
		merged = append(merged, recs...)
	}
	return merged, nil
}

// =============================================================================
// ERRORS
// =============================================================================

// FetchError reports the origin collection that could not be read.
// It matches generic.ErrFetchFailed and the underlying store error.
type FetchError struct {
	PartyID generic.PartyID
	Kind    generic.RecordKind
	Err     error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s records for party %s: %v", e.Kind, e.PartyID, e.Err)
}

func (e *FetchError) Unwrap() []error {
	return []error{generic.ErrFetchFailed, e.Err}
}
