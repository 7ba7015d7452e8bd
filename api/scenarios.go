/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the database with realistic
	data for testing and demos. Each scenario creates a catalog, parties and
	sales/payment records that demonstrate specific features.

AVAILABLE SCENARIOS:

	small-shop:            Catalog with category and product discounts, a party
	                       override, priced invoices and payments
	messy-dates:           Records imported as documents with every date shape,
	                       including one that cannot be read
	divergent-outstanding: A party whose stored outstanding disagrees with its ledger

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Create categories and products
 3. Create parties
 4. Record sales (priced through the discount resolver) and payments
 5. Set stored outstanding balances

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "small-shop"}

ADDING NEW SCENARIOS:
 1. Add to 'scenarios' slice with ID, name, description
 2. Create loader function: loadXxxScenario(ctx)
 3. Add case to scenarioLoader

NOTE:

	Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: Recording flows the loaders mirror
  - factory/record.go: Document JSON used by messy-dates
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/bizledger/discount"
	"github.com/warp/bizledger/generic"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "small-shop",
		Name:        "Small Shop",
		Description: "Category and product discounts, a party override, invoices and payments",
	},
	{
		ID:          "messy-dates",
		Name:        "Messy Dates",
		Description: "Imported documents with timestamps, strings, epoch millis and an unreadable date",
	},
	{
		ID:          "divergent-outstanding",
		Name:        "Divergent Outstanding",
		Description: "Stored outstanding balance disagrees with the ledger; reconciliation flags it",
	},
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentScenario
	h.mu.Unlock()

	if current == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, ScenarioDTO{ID: current, Name: current, Description: "Currently loaded scenario"})
}

// LoadScenario resets the database and loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	load := h.scenarioLoader(req.ScenarioID)
	if load == nil {
		writeError(w, http.StatusBadRequest, "Unknown scenario", nil)
		return
	}

	ctx := r.Context()
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.Store.Reset(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.currentScenario = ""

	if err := load(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to load scenario: %v", err), err)
		return
	}
	h.currentScenario = req.ScenarioID

	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

// ResetDatabase clears all data (dev only).
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.Store.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.currentScenario = ""
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) scenarioLoader(id string) func(context.Context) error {
	switch id {
	case "small-shop":
		return h.loadSmallShopScenario
	case "messy-dates":
		return h.loadMessyDatesScenario
	case "divergent-outstanding":
		return h.loadDivergentOutstandingScenario
	}
	return nil
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func (h *Handler) seedCatalog(ctx context.Context) error {
	categories := []generic.Category{
		{ID: "cat-groceries", Name: "Groceries", DefaultDiscount: dec("10")},
		{ID: "cat-dairy", Name: "Dairy", DefaultDiscount: dec("5")},
		{ID: "cat-household", Name: "Household"},
	}
	for _, c := range categories {
		if err := h.Store.SaveCategory(ctx, c); err != nil {
			return err
		}
	}

	dalDiscount := dec("5")
	products := []generic.Product{
		{ID: "prod-rice", Name: "Rice 5kg", CategoryID: "cat-groceries", UnitPrice: dec("450")},
		{ID: "prod-dal", Name: "Dal 1kg", CategoryID: "cat-groceries", UnitPrice: dec("140"), DefaultDiscount: &dalDiscount},
		{ID: "prod-milk", Name: "Milk 1L", CategoryID: "cat-dairy", UnitPrice: dec("60")},
		{ID: "prod-soap", Name: "Soap", CategoryID: "cat-household", UnitPrice: dec("35.50")},
	}
	for _, p := range products {
		if err := h.Store.SaveProduct(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// saleRecord prices lines against the party's live configuration the same
// way CreateSale does.
func (h *Handler) saleRecord(ctx context.Context, partyID generic.PartyID, id, invoiceNumber string, at time.Time, lines ...discount.Line) (generic.TransactionRecord, error) {
	catalog, err := discount.LoadCatalog(ctx, h.Store, partyID)
	if err != nil {
		return generic.TransactionRecord{}, err
	}
	for i, l := range lines {
		if l.ProductID != "" && l.Description == "" {
			lines[i] = discount.ApplyAll(l, catalog,
				discount.SelectProduct{ProductID: l.ProductID},
				discount.SetQuantity{Quantity: l.Quantity})
		}
	}
	inv := discount.PriceInvoice(lines, catalog)
	return generic.TransactionRecord{
		ID:      generic.RecordID(id),
		PartyID: partyID,
		Kind:    generic.KindSale,
		Date:    generic.DateOf(at),
		Debit:   inv.Total,
		Sale: &generic.SaleDetails{
			InvoiceNumber: invoiceNumber,
			Items:         inv.SaleItems(),
			DueDate:       at.AddDate(0, 0, 30),
			Status:        "unpaid",
		},
		CreatedAt: at,
	}, nil
}

func paymentRecord(partyID generic.PartyID, id string, at time.Time, amount decimal.Decimal, method string) generic.TransactionRecord {
	return generic.TransactionRecord{
		ID:        generic.RecordID(id),
		PartyID:   partyID,
		Kind:      generic.KindPayment,
		Date:      generic.DateOf(at),
		Credit:    amount,
		Payment:   &generic.PaymentDetails{Method: method},
		CreatedAt: at,
	}
}

// productLine is a catalog line; saleRecord fills it in from the product.
func productLine(id generic.ProductID, qty int) discount.Line {
	return discount.Line{ProductID: id, Quantity: qty}
}

func (h *Handler) loadSmallShopScenario(ctx context.Context) error {
	if err := h.seedCatalog(ctx); err != nil {
		return err
	}

	asha := generic.Party{ID: "party-asha", Name: "Asha Stores", Type: generic.PartyCustomer, Phone: "9845012345", CreatedAt: h.Now().UTC()}
	ravi := generic.Party{ID: "party-ravi", Name: "Ravi Traders", Type: generic.PartyCustomer, CreatedAt: h.Now().UTC()}
	for _, p := range []generic.Party{asha, ravi} {
		if err := h.Store.SaveParty(ctx, p); err != nil {
			return err
		}
	}
	if err := h.Store.SetPartyOverrides(ctx, asha.ID, generic.Overrides{"cat-groceries": dec("12")}); err != nil {
		return err
	}

	base := time.Date(2025, 4, 1, 10, 0, 0, 0, time.UTC)
	ashaFirst, err := h.saleRecord(ctx, asha.ID, "sale-asha-1", "INV-1001", base,
		productLine("prod-rice", 2), productLine("prod-dal", 3), productLine("prod-milk", 10))
	if err != nil {
		return err
	}
	raviFirst, err := h.saleRecord(ctx, ravi.ID, "sale-ravi-1", "INV-1002", base.AddDate(0, 0, 1),
		productLine("prod-soap", 12), discount.NewLine("Delivery", 1, dec("50")))
	if err != nil {
		return err
	}
	ashaSecond, err := h.saleRecord(ctx, asha.ID, "sale-asha-2", "INV-1003", base.AddDate(0, 0, 9),
		productLine("prod-rice", 1))
	if err != nil {
		return err
	}

	return h.Store.RecordAndAdjust(ctx,
		ashaFirst,
		raviFirst,
		paymentRecord(asha.ID, "pay-asha-1", base.AddDate(0, 0, 5), dec("1000"), "upi"),
		ashaSecond,
	)
}

// messyDatesJSON is a document export with every date shape the ledger
// accepts. "sometime in March" cannot be read.
const messyDatesJSON = `[
	{"id": "s-ts",   "party_id": "party-meena", "kind": "sale",    "date": {"_seconds": 1743465600, "_nanoseconds": 0},
	 "amount": 1000, "invoice_number": "INV-2001", "status": "unpaid",
	 "items": [{"description": "Rice 5kg", "quantity": 2, "unit_price": 500, "amount": 1000}]},
	{"id": "p-str",  "party_id": "party-meena", "kind": "payment", "date": "2025-04-02", "amount": 400, "method": "cash"},
	{"id": "s-ms",   "party_id": "party-meena", "kind": "sale",    "date": 1743724800000, "amount": 200, "invoice_number": "INV-2002"},
	{"id": "p-text", "party_id": "party-meena", "kind": "payment", "date": "04/04/2025", "amount": "150.50", "method": "upi"},
	{"id": "s-bad",  "party_id": "party-meena", "kind": "sale",    "date": "sometime in March", "amount": 75, "invoice_number": "INV-2003"}
]`

func (h *Handler) loadMessyDatesScenario(ctx context.Context) error {
	if err := h.seedCatalog(ctx); err != nil {
		return err
	}

	meena := generic.Party{ID: "party-meena", Name: "Meena General Store", Type: generic.PartyCustomer, CreatedAt: h.Now().UTC()}
	if err := h.Store.SaveParty(ctx, meena); err != nil {
		return err
	}

	recs, err := h.Records.ParseRecords([]byte(messyDatesJSON))
	if err != nil {
		return err
	}
	return h.Store.RecordAndAdjust(ctx, recs...)
}

func (h *Handler) loadDivergentOutstandingScenario(ctx context.Context) error {
	if err := h.seedCatalog(ctx); err != nil {
		return err
	}

	// Outstanding was maintained by a flow that missed one payment.
	kiran := generic.Party{ID: "party-kiran", Name: "Kiran Wholesale", Type: generic.PartyVendor, CreatedAt: h.Now().UTC()}
	if err := h.Store.SaveParty(ctx, kiran); err != nil {
		return err
	}

	base := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	sale, err := h.saleRecord(ctx, kiran.ID, "sale-kiran-1", "INV-3001", base, productLine("prod-rice", 10))
	if err != nil {
		return err
	}
	if err := h.Store.RecordAndAdjust(ctx, sale,
		paymentRecord(kiran.ID, "pay-kiran-1", base.AddDate(0, 0, 3), dec("2000"), "bank")); err != nil {
		return err
	}
	return h.Store.RecordTransaction(ctx,
		paymentRecord(kiran.ID, "pay-kiran-2", base.AddDate(0, 0, 7), dec("500"), "cash"))
}
