/*
Package factory converts document-shaped JSON into ledger records.

PURPOSE:
  Origin collections hold loosely shaped documents: dates arrive as server
  timestamp wrappers, native times or strings, amounts as numbers or
  strings. The factory turns those documents into generic.TransactionRecord
  values without judging the dates. Date normalization is the ledger's job.

JSON SCHEMA:
  {
    "id": "inv-001",                      // optional, a UUID is assigned
    "party_id": "party-1",
    "kind": "sale",                       // sale | payment | credit_note | debit_note
    "date": {"seconds": 1735689600, "nanoseconds": 0},
    "amount": 1000,                       // debit for sale/debit_note, credit otherwise
    "description": "Counter sale",
    "invoice_number": "INV-001",          // sale only
    "items": [{"description": "Rice", "quantity": 2, "unit_price": 500, "amount": 1000}],
    "due_date": "2025-02-01",
    "status": "unpaid",
    "reference_number": "UTR123",         // payment only
    "method": "upi"
  }

  "debit" and "credit" may be given instead of "amount".

LEGACY OVERRIDES:
  Old party discount documents are keyed by category NAME:
    {"Groceries": 10, "Dairy": "5"}
  ImportLegacyOverrides converts them to category-ID keys.

USAGE:
  f := factory.NewRecordFactory()
  recs, err := f.ParseRecords(data)

SEE ALSO:
  - generic/date.go: DateValue JSON shapes
  - discount/batch.go: MigrateNameKeyed
*/
package factory

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/warp/bizledger/discount"
	"github.com/warp/bizledger/generic"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// RecordJSON is the document form of a transaction record.
type RecordJSON struct {
	ID          string            `json:"id,omitempty"`
	PartyID     string            `json:"party_id"`
	Kind        string            `json:"kind"`
	Date        generic.DateValue `json:"date"`
	Amount      *decimal.Decimal  `json:"amount,omitempty"`
	Debit       *decimal.Decimal  `json:"debit,omitempty"`
	Credit      *decimal.Decimal  `json:"credit,omitempty"`
	Description string            `json:"description,omitempty"`

	InvoiceNumber string            `json:"invoice_number,omitempty"`
	Items         []ItemJSON        `json:"items,omitempty"`
	DueDate       generic.DateValue `json:"due_date,omitempty"`
	Status        string            `json:"status,omitempty"`

	ReferenceNumber string `json:"reference_number,omitempty"`
	Method          string `json:"method,omitempty"`
}

type ItemJSON struct {
	ProductID     string          `json:"product_id,omitempty"`
	Description   string          `json:"description"`
	Quantity      int             `json:"quantity"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	DiscountType  string          `json:"discount_type,omitempty"`
	DiscountValue decimal.Decimal `json:"discount_value"`
	Amount        decimal.Decimal `json:"amount"`
}

// =============================================================================
// RECORD FACTORY
// =============================================================================

type RecordFactory struct {
	// NewID assigns IDs to documents that have none.
	NewID func() string
	// Now stamps CreatedAt.
	Now func() time.Time
}

func NewRecordFactory() *RecordFactory {
	return &RecordFactory{NewID: uuid.NewString, Now: time.Now}
}

// ParseRecord parses one document.
func (f *RecordFactory) ParseRecord(jsonStr string) (*generic.TransactionRecord, error) {
	var rj RecordJSON
	if err := json.Unmarshal([]byte(jsonStr), &rj); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	return f.FromJSON(rj)
}

// ParseRecords parses a JSON array of documents. The first invalid
// document fails the whole batch.
func (f *RecordFactory) ParseRecords(data []byte) ([]generic.TransactionRecord, error) {
	var docs []RecordJSON
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	recs := make([]generic.TransactionRecord, 0, len(docs))
	for i, rj := range docs {
		rec, err := f.FromJSON(rj)
		if err != nil {
			return nil, fmt.Errorf("document %d: %w", i, err)
		}
		recs = append(recs, *rec)
	}
	return recs, nil
}

// FromJSON converts a parsed document. The date is kept in whatever shape
// it arrived in, even if it will not parse.
func (f *RecordFactory) FromJSON(rj RecordJSON) (*generic.TransactionRecord, error) {
	if strings.TrimSpace(rj.PartyID) == "" {
		return nil, &generic.ValidationError{Field: "party_id", Message: "required"}
	}
	kind := generic.RecordKind(strings.ToLower(strings.TrimSpace(rj.Kind)))
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %q", generic.ErrInvalidKind, rj.Kind)
	}

	debit, credit, err := amounts(kind, rj)
	if err != nil {
		return nil, err
	}

	id := rj.ID
	if id == "" {
		id = f.NewID()
	}

	rec := &generic.TransactionRecord{
		ID:          generic.RecordID(id),
		PartyID:     generic.PartyID(rj.PartyID),
		Kind:        kind,
		Date:        rj.Date,
		Debit:       debit,
		Credit:      credit,
		Description: rj.Description,
		CreatedAt:   f.Now().UTC(),
	}

	switch kind {
	case generic.KindSale:
		rec.Sale = &generic.SaleDetails{
			InvoiceNumber: rj.InvoiceNumber,
			Items:         parseItems(rj.Items),
			DueDate:       parseDueDate(rj.DueDate),
			Status:        rj.Status,
		}
	case generic.KindPayment:
		rec.Payment = &generic.PaymentDetails{
			ReferenceNumber: rj.ReferenceNumber,
			Method:          rj.Method,
		}
	}
	return rec, nil
}

// ToJSON converts a record back to its document form.
func (f *RecordFactory) ToJSON(rec generic.TransactionRecord) RecordJSON {
	debit, credit := rec.Debit, rec.Credit
	rj := RecordJSON{
		ID:          string(rec.ID),
		PartyID:     string(rec.PartyID),
		Kind:        string(rec.Kind),
		Date:        rec.Date,
		Debit:       &debit,
		Credit:      &credit,
		Description: rec.Description,
	}
	if s := rec.Sale; s != nil {
		rj.InvoiceNumber = s.InvoiceNumber
		rj.Status = s.Status
		if !s.DueDate.IsZero() {
			rj.DueDate = generic.DateOf(s.DueDate)
		}
		for _, it := range s.Items {
			rj.Items = append(rj.Items, ItemJSON{
				ProductID:     string(it.ProductID),
				Description:   it.Description,
				Quantity:      it.Quantity,
				UnitPrice:     it.UnitPrice,
				DiscountType:  it.DiscountType,
				DiscountValue: it.DiscountValue,
				Amount:        it.Amount,
			})
		}
	}
	if p := rec.Payment; p != nil {
		rj.ReferenceNumber = p.ReferenceNumber
		rj.Method = p.Method
	}
	return rj
}

// =============================================================================
// HELPERS
// =============================================================================

func amounts(kind generic.RecordKind, rj RecordJSON) (debit, credit decimal.Decimal, err error) {
	debit, credit = decimal.Zero, decimal.Zero
	switch {
	case rj.Debit != nil || rj.Credit != nil:
		if rj.Debit != nil {
			debit = *rj.Debit
		}
		if rj.Credit != nil {
			credit = *rj.Credit
		}
	case rj.Amount != nil:
		switch kind {
		case generic.KindSale, generic.KindDebitNote:
			debit = *rj.Amount
		default:
			credit = *rj.Amount
		}
	}
	if debit.IsNegative() {
		return debit, credit, &generic.ValidationError{Field: "debit", Message: "must not be negative"}
	}
	if credit.IsNegative() {
		return debit, credit, &generic.ValidationError{Field: "credit", Message: "must not be negative"}
	}
	return debit, credit, nil
}

func parseItems(items []ItemJSON) []generic.SaleItem {
	if len(items) == 0 {
		return nil
	}
	out := make([]generic.SaleItem, len(items))
	for i, it := range items {
		out[i] = generic.SaleItem{
			ProductID:     generic.ProductID(it.ProductID),
			Description:   it.Description,
			Quantity:      it.Quantity,
			UnitPrice:     it.UnitPrice,
			DiscountType:  it.DiscountType,
			DiscountValue: it.DiscountValue,
			Amount:        it.Amount,
		}
	}
	return out
}

// parseDueDate is display data only; an unreadable due date is dropped.
func parseDueDate(d generic.DateValue) time.Time {
	n := generic.DateNormalizer{Malformed: generic.ExcludeMalformed}.Normalize(d)
	if !n.Include {
		return time.Time{}
	}
	return n.At
}

// =============================================================================
// LEGACY NAME-KEYED OVERRIDES
// =============================================================================

// ImportLegacyOverrides reads a name-keyed override document and converts
// it to category-ID keys. Names that match no category are returned.
func ImportLegacyOverrides(data []byte, categories []generic.Category) (generic.Overrides, []string, error) {
	var legacy map[string]decimal.Decimal
	if err := json.Unmarshal(data, &legacy); err != nil {
		return nil, nil, fmt.Errorf("invalid JSON: %w", err)
	}
	out, unmatched := discount.MigrateNameKeyed(legacy, categories)
	return out, unmatched, nil
}
