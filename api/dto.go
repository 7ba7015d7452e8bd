/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Input: Nested request fragments

TYPES:
  Party:          PartyDTO, CreatePartyRequest
  Ledger:         StatementDTO, EntryDTO, ReconciliationDTO
  Recording:      CreateSaleRequest, CreatePaymentRequest (responses reuse factory.RecordJSON)
  Discounts:      DiscountRowDTO, UpdateDiscountsRequest, ImportDiscountsDTO
  Catalog:        CategoryDTO, CategoryRequest, ProductDTO, ProductRequest
  Invoice lines:  LineInput, ActionInput, PriceInvoiceRequest, ApplyLineRequest
  Reconciliation: ReconciliationRunDTO
  Scenarios:      ScenarioDTO, LoadScenarioRequest

NUMBERS:
  Form fields arrive as JSON numbers or as strings typed by a user. Number
  accepts both; anything that isn't a finite number reads as zero.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/record.go: RecordJSON
*/
package api

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/bizledger/discount"
	"github.com/warp/bizledger/generic"
	"github.com/warp/bizledger/ledger"
)

// =============================================================================
// LENIENT NUMBER INPUT
// =============================================================================

// Number is a decimal read leniently from a number, a numeric string, or
// null. Garbage and NaN become zero.
type Number struct {
	decimal.Decimal
}

func (n *Number) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || bytes.Equal(b, []byte("null")):
		n.Decimal = decimal.Zero
	case b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		n.Decimal = generic.ParseAmount(s)
	default:
		n.Decimal = generic.ParseAmount(string(b))
	}
	return nil
}

// Int truncates to a whole number.
func (n Number) Int() int {
	return int(n.IntPart())
}

// =============================================================================
// PARTIES
// =============================================================================

type PartyDTO struct {
	ID                 string          `json:"id"`
	Name               string          `json:"name"`
	Type               string          `json:"type"`
	Phone              string          `json:"phone,omitempty"`
	Outstanding        decimal.Decimal `json:"outstanding"`
	OutstandingDisplay string          `json:"outstanding_display"`
	CreatedAt          string          `json:"created_at,omitempty"`
}

type CreatePartyRequest struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Type        string `json:"type"`
	Phone       string `json:"phone"`
	Outstanding Number `json:"outstanding"`
}

// =============================================================================
// LEDGER
// =============================================================================

type EntryDTO struct {
	ID            string          `json:"id"`
	Kind          string          `json:"kind"`
	Date          string          `json:"date"`
	RawDate       string          `json:"raw_date"`
	DateFallback  bool            `json:"date_fallback,omitempty"`
	Description   string          `json:"description,omitempty"`
	Debit         decimal.Decimal `json:"debit"`
	Credit        decimal.Decimal `json:"credit"`
	Balance       decimal.Decimal `json:"balance"`
	Display       string          `json:"balance_display"`
	InvoiceNumber string          `json:"invoice_number,omitempty"`
	ItemsPreview  string          `json:"items_preview,omitempty"`
	Status        string          `json:"status,omitempty"`
	DueDate       string          `json:"due_date,omitempty"`
	Method        string          `json:"method,omitempty"`
}

type ReconciliationDTO struct {
	LedgerBalance decimal.Decimal `json:"ledger_balance"`
	Outstanding   decimal.Decimal `json:"outstanding"`
	Difference    decimal.Decimal `json:"difference"`
	Diverged      bool            `json:"diverged"`
}

type StatementDTO struct {
	PartyID        string             `json:"party_id"`
	Period         string             `json:"period"`
	OpeningBalance decimal.Decimal    `json:"opening_balance"`
	Entries        []EntryDTO         `json:"entries"`
	TotalDebit     decimal.Decimal    `json:"total_debit"`
	TotalCredit    decimal.Decimal    `json:"total_credit"`
	ClosingBalance decimal.Decimal    `json:"closing_balance"`
	ClosingDisplay string             `json:"closing_display"`
	FallbackDates  int                `json:"fallback_dates"`
	Excluded       int                `json:"excluded"`
	Reconciliation *ReconciliationDTO `json:"reconciliation,omitempty"`
}

func (h *Handler) toStatementDTO(stmt *ledger.Statement) StatementDTO {
	dto := StatementDTO{
		PartyID:        string(stmt.PartyID),
		Period:         stmt.Period.String(),
		OpeningBalance: stmt.OpeningBalance,
		Entries:        make([]EntryDTO, len(stmt.Entries)),
		TotalDebit:     stmt.TotalDebit,
		TotalCredit:    stmt.TotalCredit,
		ClosingBalance: stmt.ClosingBalance,
		ClosingDisplay: h.Currency.Format(stmt.ClosingBalance),
		FallbackDates:  stmt.FallbackDates,
		Excluded:       stmt.Excluded,
	}
	for i, e := range stmt.Entries {
		ed := EntryDTO{
			ID:            string(e.Record.ID),
			Kind:          string(e.Record.Kind),
			Date:          e.FormattedDate,
			RawDate:       e.Record.Date.Raw(),
			DateFallback:  e.DateFallback,
			Description:   e.Record.Description,
			Debit:         e.Debit,
			Credit:        e.Credit,
			Balance:       e.Balance,
			Display:       h.Currency.Format(e.Balance),
			InvoiceNumber: e.InvoiceNumber,
			ItemsPreview:  e.ItemsPreview,
			Status:        e.Status,
			DueDate:       e.DueDate,
		}
		if e.Record.Payment != nil {
			ed.Method = e.Record.Payment.Method
		}
		dto.Entries[i] = ed
	}
	return dto
}

func toReconciliationDTO(r ledger.Reconciliation) *ReconciliationDTO {
	return &ReconciliationDTO{
		LedgerBalance: r.LedgerBalance,
		Outstanding:   r.Outstanding,
		Difference:    r.Difference,
		Diverged:      r.Diverged,
	}
}

// =============================================================================
// RECORDING
// =============================================================================

type CreateSaleRequest struct {
	ID            string            `json:"id"`
	InvoiceNumber string            `json:"invoice_number"`
	Date          generic.DateValue `json:"date"`
	DueDate       generic.DateValue `json:"due_date"`
	Status        string            `json:"status"`
	Description   string            `json:"description"`
	Lines         []LineInput       `json:"lines"`
}

type CreatePaymentRequest struct {
	ID              string            `json:"id"`
	Date            generic.DateValue `json:"date"`
	Amount          Number            `json:"amount"`
	ReferenceNumber string            `json:"reference_number"`
	Method          string            `json:"method"`
	Description     string            `json:"description"`
}

// =============================================================================
// DISCOUNTS
// =============================================================================

type DiscountRowDTO struct {
	CategoryID string          `json:"category_id"`
	Name       string          `json:"name"`
	Default    decimal.Decimal `json:"default"`
	Discount   decimal.Decimal `json:"discount"`
	Overridden bool            `json:"overridden"`
}

func toDiscountRows(rows []discount.Row) []DiscountRowDTO {
	out := make([]DiscountRowDTO, len(rows))
	for i, r := range rows {
		out[i] = DiscountRowDTO{
			CategoryID: string(r.CategoryID),
			Name:       r.Name,
			Default:    r.Default,
			Discount:   r.Discount,
			Overridden: r.Overridden,
		}
	}
	return out
}

// UpdateDiscountsRequest carries edited values keyed by category ID.
// Categories not named keep their current value.
type UpdateDiscountsRequest struct {
	Values map[string]Number `json:"values"`
}

type ImportDiscountsDTO struct {
	Discounts []DiscountRowDTO `json:"discounts"`
	Unmatched []string         `json:"unmatched"`
}

// =============================================================================
// CATALOG
// =============================================================================

type CategoryDTO struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	DefaultDiscount decimal.Decimal `json:"default_discount"`
}

type CategoryRequest struct {
	Name            string `json:"name"`
	DefaultDiscount Number `json:"default_discount"`
}

type ProductDTO struct {
	ID              string           `json:"id"`
	Name            string           `json:"name"`
	CategoryID      string           `json:"category_id,omitempty"`
	UnitPrice       decimal.Decimal  `json:"unit_price"`
	DefaultDiscount *decimal.Decimal `json:"default_discount,omitempty"`
}

type ProductRequest struct {
	Name            string  `json:"name"`
	CategoryID      string  `json:"category_id"`
	UnitPrice       Number  `json:"unit_price"`
	DefaultDiscount *Number `json:"default_discount"`
}

func toCategoryDTO(c generic.Category) CategoryDTO {
	return CategoryDTO{ID: string(c.ID), Name: c.Name, DefaultDiscount: c.DefaultDiscount}
}

func toProductDTO(p generic.Product) ProductDTO {
	return ProductDTO{
		ID:              string(p.ID),
		Name:            p.Name,
		CategoryID:      string(p.CategoryID),
		UnitPrice:       p.UnitPrice,
		DefaultDiscount: p.DefaultDiscount,
	}
}

// =============================================================================
// INVOICE LINES
// =============================================================================

// LineInput is an invoice line as edited in a form. An empty discount type
// on a catalog line picks the line's default source.
type LineInput struct {
	ProductID     string `json:"product_id"`
	CategoryID    string `json:"category_id"`
	Description   string `json:"description"`
	Quantity      Number `json:"quantity"`
	UnitPrice     Number `json:"unit_price"`
	DiscountType  string `json:"discount_type"`
	DiscountValue Number `json:"discount_value"`
}

// toLine converts the input. Product lines pick up name, category and price
// from the catalog when the form left them blank.
func (in LineInput) toLine(lookup discount.Lookup) (discount.Line, error) {
	t, err := discount.ParseType(in.DiscountType)
	if err != nil {
		return discount.Line{}, err
	}
	l := discount.Line{
		ProductID:     generic.ProductID(in.ProductID),
		CategoryID:    generic.CategoryID(in.CategoryID),
		Description:   in.Description,
		Quantity:      in.Quantity.Int(),
		UnitPrice:     in.UnitPrice.Decimal,
		DiscountType:  t,
		DiscountValue: in.DiscountValue.Decimal,
	}
	if p, ok := lookup.Product(l.ProductID); ok {
		if l.CategoryID == "" {
			l.CategoryID = p.CategoryID
		}
		if l.Description == "" {
			l.Description = p.Name
		}
		if l.UnitPrice.IsZero() {
			l.UnitPrice = p.UnitPrice
		}
	}
	if in.DiscountType == "" {
		l.DiscountType = discount.DefaultType(l, lookup)
	}
	return discount.Apply(l, discount.Refresh{}, lookup), nil
}

// ActionInput is one line edit. Type is one of set_discount_type,
// set_custom_value, reset_to_default, set_quantity, set_unit_price,
// select_product, refresh.
type ActionInput struct {
	Type         string `json:"type"`
	DiscountType string `json:"discount_type,omitempty"`
	Value        Number `json:"value"`
	ProductID    string `json:"product_id,omitempty"`
}

func (a ActionInput) toAction() (discount.Action, error) {
	switch a.Type {
	case "set_discount_type":
		t, err := discount.ParseType(a.DiscountType)
		if err != nil {
			return nil, err
		}
		return discount.SetDiscountType{Type: t}, nil
	case "set_custom_value":
		return discount.SetCustomValue{Value: a.Value.Decimal}, nil
	case "reset_to_default":
		return discount.ResetToDefault{}, nil
	case "set_quantity":
		return discount.SetQuantity{Quantity: a.Value.Int()}, nil
	case "set_unit_price":
		return discount.SetUnitPrice{UnitPrice: a.Value.Decimal}, nil
	case "select_product":
		return discount.SelectProduct{ProductID: generic.ProductID(a.ProductID)}, nil
	case "refresh", "":
		return discount.Refresh{}, nil
	}
	return nil, &generic.ValidationError{Field: "type", Message: "unknown action " + a.Type}
}

type PriceInvoiceRequest struct {
	PartyID string      `json:"party_id"`
	Lines   []LineInput `json:"lines"`
}

type ApplyLineRequest struct {
	PartyID string        `json:"party_id"`
	Line    LineInput     `json:"line"`
	Actions []ActionInput `json:"actions"`
}

type LineDTO struct {
	Line        discount.Line `json:"line"`
	DefaultType discount.Type `json:"default_type"`
}

// =============================================================================
// RECONCILIATION
// =============================================================================

type ReconciliationRunDTO struct {
	ID            string          `json:"id"`
	PartyID       string          `json:"party_id"`
	Status        string          `json:"status"`
	LedgerBalance decimal.Decimal `json:"ledger_balance"`
	Outstanding   decimal.Decimal `json:"outstanding"`
	Difference    decimal.Decimal `json:"difference"`
	Diverged      bool            `json:"diverged"`
	Error         string          `json:"error,omitempty"`
	StartedAt     string          `json:"started_at"`
	CompletedAt   string          `json:"completed_at,omitempty"`
}

func toRunDTO(run generic.ReconciliationRun) ReconciliationRunDTO {
	dto := ReconciliationRunDTO{
		ID:            run.ID,
		PartyID:       string(run.PartyID),
		Status:        string(run.Status),
		LedgerBalance: run.LedgerBalance,
		Outstanding:   run.Outstanding,
		Difference:    run.Difference,
		Diverged:      run.Diverged,
		Error:         run.Error,
		StartedAt:     run.StartedAt.Format(time.RFC3339),
	}
	if !run.CompletedAt.IsZero() {
		dto.CompletedAt = run.CompletedAt.Format(time.RFC3339)
	}
	return dto
}

// =============================================================================
// SCENARIOS & ERRORS
// =============================================================================

type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
