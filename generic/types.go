/*
Package generic provides the shared types of the party ledger engine.

PURPOSE:
  This package contains the data shapes every other package agrees on:
  parties, transaction records from the origin collections, the product
  catalog used for discounts, and the store contracts that feed them.
  The derivations (ledger, discount) live in their own packages and only
  consume these types.

KEY CONCEPTS IN THIS FILE (types.go):
  - TransactionRecord: One financial event for a party (sale, payment, ...)
  - RecordKind: Which origin collection a record came from
  - Party: Customer or vendor with an independently tracked outstanding balance
  - Category / Product: Discount configuration sources

DESIGN PRINCIPLES:
  1. Precision: Money is decimal.Decimal, never float64
  2. Type Safety: Distinct ID types prevent mixing party/category/product IDs
  3. Read-mostly: Records are written by recording flows and only folded here

USAGE:
  rec := generic.TransactionRecord{
      ID:      "inv-001",
      PartyID: "party-1",
      Kind:    generic.KindSale,
      Date:    generic.DateOf(time.Now()),
      Debit:   decimal.NewFromInt(1000),
  }

SEE ALSO:
  - date.go: DateValue and date normalization policy
  - store.go: Store contracts
  - errors.go: Sentinel and structured errors
*/
package generic

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type PartyID string
type RecordID string
type CategoryID string
type ProductID string

// =============================================================================
// RECORD KIND - Origin collection of a transaction record
// =============================================================================

type RecordKind string

const (
	KindSale       RecordKind = "sale"        // Invoice raised against the party (debit)
	KindPayment    RecordKind = "payment"     // Money received from the party (credit)
	KindCreditNote RecordKind = "credit_note" // Reserved: returns/allowances (credit)
	KindDebitNote  RecordKind = "debit_note"  // Reserved: extra charges (debit)
)

// DefaultKinds are the origin collections merged into a ledger unless
// configured otherwise.
var DefaultKinds = []RecordKind{KindSale, KindPayment}

// Valid reports whether k is a known kind.
func (k RecordKind) Valid() bool {
	switch k {
	case KindSale, KindPayment, KindCreditNote, KindDebitNote:
		return true
	}
	return false
}

// Rank orders kinds that share a timestamp: debits before credits.
func (k RecordKind) Rank() int {
	switch k {
	case KindSale:
		return 0
	case KindDebitNote:
		return 1
	case KindPayment:
		return 2
	case KindCreditNote:
		return 3
	default:
		return 4
	}
}

// =============================================================================
// TRANSACTION RECORD - One financial event for a party
// =============================================================================

// TransactionRecord is a raw record from an origin collection.
// Only Debit and Credit affect the balance; everything else is display data.
type TransactionRecord struct {
	ID          RecordID
	PartyID     PartyID
	Kind        RecordKind
	Date        DateValue
	Debit       decimal.Decimal
	Credit      decimal.Decimal
	Description string

	Sale    *SaleDetails
	Payment *PaymentDetails

	CreatedAt time.Time
}

// SaleDetails are the invoice fields carried by sale records.
type SaleDetails struct {
	InvoiceNumber string
	Items         []SaleItem
	DueDate       time.Time
	Status        string
}

// SaleItem is a priced invoice line as it was persisted.
type SaleItem struct {
	ProductID     ProductID
	Description   string
	Quantity      int
	UnitPrice     decimal.Decimal
	DiscountType  string
	DiscountValue decimal.Decimal
	Amount        decimal.Decimal
}

// PaymentDetails are the fields carried by payment records.
type PaymentDetails struct {
	ReferenceNumber string
	Method          string
}

// Net returns debit minus credit.
func (r TransactionRecord) Net() decimal.Decimal {
	return r.Debit.Sub(r.Credit)
}

// =============================================================================
// PARTY
// =============================================================================

type PartyType string

const (
	PartyCustomer PartyType = "customer"
	PartyVendor   PartyType = "vendor"
)

// Party is a customer or vendor. Outstanding is maintained by the recording
// flows independently of any ledger computation.
type Party struct {
	ID          PartyID
	Name        string
	Type        PartyType
	Phone       string
	Outstanding decimal.Decimal
	CreatedAt   time.Time
}

// =============================================================================
// CATALOG - Discount configuration sources
// =============================================================================

// Category groups products and carries a default discount percentage.
type Category struct {
	ID              CategoryID
	Name            string
	DefaultDiscount decimal.Decimal
}

// Product is a sellable item. DefaultDiscount is nil when the product has
// no discount of its own.
type Product struct {
	ID              ProductID
	Name            string
	CategoryID      CategoryID
	UnitPrice       decimal.Decimal
	DefaultDiscount *decimal.Decimal
}

// Overrides is a sparse, party-specific map of category discounts.
type Overrides map[CategoryID]decimal.Decimal

// Clone returns an independent copy.
func (o Overrides) Clone() Overrides {
	out := make(Overrides, len(o))
	for k, v := range o {
		out[k] = v
	}
	return out
}
