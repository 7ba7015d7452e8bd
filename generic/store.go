/*
store.go - Persistence contracts for records, parties and the catalog

PURPOSE:
  Defines the interface between the derivations and the document store.
  The ledger and discount packages only read through these contracts;
  writes come from the recording flows in the API.

KEY INTERFACES:
  TransactionStore:    Read records of one kind for one party
  RecordStore:         TransactionStore + recording new records
  DiscountConfigStore: Categories and party-specific overrides
  CatalogStore:        DiscountConfigStore + products and config saves
  PartyStore:          Parties and their stored outstanding balance
  ReconciliationRunStore: History of ledger/outstanding comparisons
  Backend:             Everything above, as wired by cmd/server

ORDERING:
  QueryByParty makes NO ordering promise. Ordering is the ledger's job.

OVERRIDES:
  SetPartyOverrides REPLACES the full override set for a party. It is not
  a merge. Implementations write the replacement atomically.

IMPLEMENTATIONS:
  - generic/store/memory.go: In-memory for tests and demos
  - store/sqlite/sqlite.go: SQLite
  - store/postgres/postgres.go: PostgreSQL (pgx)

SEE ALSO:
  - ledger/builder.go: Consumes TransactionStore
  - discount/catalog.go: Builds a Lookup from DiscountConfigStore + products
*/
package generic

import (
	"context"

	"github.com/shopspring/decimal"
)

// =============================================================================
// TRANSACTIONS
// =============================================================================

// TransactionStore is the read side of the origin collections.
type TransactionStore interface {
	// QueryByParty returns all records of kind for partyID, in no
	// particular order.
	QueryByParty(ctx context.Context, partyID PartyID, kind RecordKind) ([]TransactionRecord, error)
}

// RecordStore adds the write used by invoice creation and payment recording.
type RecordStore interface {
	TransactionStore

	// RecordTransaction persists a record. Fails with ErrDuplicateRecord if
	// the ID already exists in the record's origin collection.
	RecordTransaction(ctx context.Context, rec TransactionRecord) error
}

// PostingStore writes records together with the change they make to each
// party's stored outstanding balance.
type PostingStore interface {
	// RecordAndAdjust persists recs and adds each record's Net to its
	// party's outstanding balance in one transaction. Nothing is written if
	// any record is invalid or a duplicate, or any party is missing.
	RecordAndAdjust(ctx context.Context, recs ...TransactionRecord) error
}

// =============================================================================
// DISCOUNT CONFIGURATION
// =============================================================================

// DiscountConfigStore serves category defaults and party overrides.
type DiscountConfigStore interface {
	Categories(ctx context.Context) ([]Category, error)
	PartyOverrides(ctx context.Context, partyID PartyID) (Overrides, error)

	// SetPartyOverrides replaces the party's whole override set.
	SetPartyOverrides(ctx context.Context, partyID PartyID, overrides Overrides) error
}

// CatalogStore extends DiscountConfigStore with products and config saves.
type CatalogStore interface {
	DiscountConfigStore

	Products(ctx context.Context) ([]Product, error)
	SaveCategory(ctx context.Context, c Category) error
	SaveProduct(ctx context.Context, p Product) error
}

// =============================================================================
// PARTIES
// =============================================================================

type PartyStore interface {
	SaveParty(ctx context.Context, p Party) error

	// GetParty returns ErrPartyNotFound when the party doesn't exist.
	GetParty(ctx context.Context, id PartyID) (*Party, error)
	ListParties(ctx context.Context) ([]Party, error)

	// AdjustOutstanding adds delta to the party's stored outstanding balance.
	AdjustOutstanding(ctx context.Context, id PartyID, delta decimal.Decimal) error
}

// =============================================================================
// BACKEND - Everything the server needs
// =============================================================================

type Backend interface {
	RecordStore
	PostingStore
	CatalogStore
	PartyStore
	ReconciliationRunStore

	// Reset drops all data. Demo/dev only.
	Reset(ctx context.Context) error
	Close() error
}
