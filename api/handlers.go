/*
handlers.go - HTTP API handlers for parties, ledgers and discounts

PURPOSE:
  Exposes the ledger builder and the discount resolver via REST API.
  Handles HTTP request/response, JSON serialization, and delegates to the
  domain packages. Nothing derived here is stored: every ledger and every
  priced invoice is computed from live data on each request.

ENDPOINTS:
  Parties:
    GET    /api/parties                    List parties (retried page load)
    POST   /api/parties                    Create party
    GET    /api/parties/{id}               Get party
    GET    /api/parties/{id}/ledger        Running-balance statement

  Recording:
    POST   /api/parties/{id}/sales         Price lines, record a sale, bump outstanding
    POST   /api/parties/{id}/payments      Record a payment, reduce outstanding

  Discounts:
    GET    /api/parties/{id}/discounts     Batch editor rows (?q=, ?active=true)
    PUT    /api/parties/{id}/discounts     Save edited category discounts
    POST   /api/parties/{id}/discounts/reset   Drop every override
    POST   /api/parties/{id}/discounts/import  Import name-keyed overrides

  Catalog:
    GET/POST /api/categories, PUT /api/categories/{id}
    GET/POST /api/products

  Invoice lines:
    POST   /api/invoices/price             Price a set of lines
    POST   /api/invoices/lines/apply       Run line actions against live config

  Reconciliation:
    GET    /api/reconciliation/runs        Run history (?party=, ?limit=)
    POST   /api/reconciliation/process     Reconcile every party now

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Party/category/product not found
  - 409: Duplicate record or party
  - 502: An origin collection could not be read; retry the whole request
  - 500: Internal errors

SECURITY NOTE:
  No authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - scheduler.go: Reconciler and its background schedule
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/warp/bizledger/discount"
	"github.com/warp/bizledger/factory"
	"github.com/warp/bizledger/format"
	"github.com/warp/bizledger/generic"
	"github.com/warp/bizledger/ledger"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store      generic.Backend
	Builder    *ledger.Builder
	Records    *factory.RecordFactory
	Reconciler *Reconciler
	Currency   format.Currency
	Retry      generic.RetryPolicy
	Log        zerolog.Logger

	NewID func() string
	Now   func() time.Time

	// Track currently loaded scenario
	mu              sync.Mutex
	currentScenario string
}

// NewHandler wires a handler over store with default options.
func NewHandler(store generic.Backend, log zerolog.Logger) *Handler {
	builder := ledger.NewBuilder(store)
	builderLog := log.With().Str("component", "ledger").Logger()
	builder.Options.Log = &builderLog

	h := &Handler{
		Store:    store,
		Builder:  builder,
		Records:  factory.NewRecordFactory(),
		Currency: format.Rupee,
		Retry:    generic.DefaultRetryPolicy,
		Log:      log,
		NewID:    uuid.NewString,
		Now:      time.Now,
	}
	h.Reconciler = NewReconciler(store, builder, log)
	return h
}

// =============================================================================
// PARTY HANDLERS
// =============================================================================

// ListParties returns all parties. The load is retried per the handler's
// retry policy before failing.
func (h *Handler) ListParties(w http.ResponseWriter, r *http.Request) {
	parties, err := generic.Retry(r.Context(), h.Retry, h.Store.ListParties)
	if err != nil {
		h.writeDomainError(w, "Failed to list parties", err)
		return
	}

	dtos := make([]PartyDTO, len(parties))
	for i, p := range parties {
		dtos[i] = h.toPartyDTO(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetParty returns one party.
func (h *Handler) GetParty(w http.ResponseWriter, r *http.Request) {
	party, err := h.Store.GetParty(r.Context(), partyParam(r))
	if err != nil {
		h.writeDomainError(w, "Failed to get party", err)
		return
	}
	writeJSON(w, http.StatusOK, h.toPartyDTO(*party))
}

// CreateParty creates a customer or vendor.
func (h *Handler) CreateParty(w http.ResponseWriter, r *http.Request) {
	var req CreatePartyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	party := generic.Party{
		ID:          generic.PartyID(strings.TrimSpace(req.ID)),
		Name:        strings.TrimSpace(req.Name),
		Type:        generic.PartyType(strings.ToLower(strings.TrimSpace(req.Type))),
		Phone:       strings.TrimSpace(req.Phone),
		Outstanding: req.Outstanding.Decimal,
		CreatedAt:   h.Now().UTC(),
	}
	if party.Name == "" {
		h.writeDomainError(w, "Invalid party", &generic.ValidationError{Field: "name", Message: "required"})
		return
	}
	switch party.Type {
	case "":
		party.Type = generic.PartyCustomer
	case generic.PartyCustomer, generic.PartyVendor:
	default:
		h.writeDomainError(w, "Invalid party", &generic.ValidationError{Field: "type", Message: "must be customer or vendor"})
		return
	}
	if party.ID == "" {
		party.ID = generic.PartyID(h.NewID())
	} else if _, err := h.Store.GetParty(r.Context(), party.ID); err == nil {
		writeError(w, http.StatusConflict, "Party already exists", nil)
		return
	}

	if err := h.Store.SaveParty(r.Context(), party); err != nil {
		h.writeDomainError(w, "Failed to create party", err)
		return
	}
	writeJSON(w, http.StatusCreated, h.toPartyDTO(party))
}

func (h *Handler) toPartyDTO(p generic.Party) PartyDTO {
	dto := PartyDTO{
		ID:                 string(p.ID),
		Name:               p.Name,
		Type:               string(p.Type),
		Phone:              p.Phone,
		Outstanding:        p.Outstanding,
		OutstandingDisplay: h.Currency.Format(p.Outstanding),
	}
	if !p.CreatedAt.IsZero() {
		dto.CreatedAt = p.CreatedAt.Format(time.RFC3339)
	}
	return dto
}

// =============================================================================
// LEDGER
// =============================================================================

// GetLedger builds the party's statement from live records.
//
// Query parameters:
//   - opening: opening balance (default 0, garbage reads as 0)
//   - from, to: inclusive day window; records before from fold into the opening
//
// When the window has no end, the statement carries a reconciliation
// against the party's stored outstanding balance.
func (h *Handler) GetLedger(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	party, err := h.Store.GetParty(ctx, partyParam(r))
	if err != nil {
		h.writeDomainError(w, "Failed to get party", err)
		return
	}

	q := r.URL.Query()
	opening := generic.ParseAmount(q.Get("opening"))
	period, err := parsePeriod(q.Get("from"), q.Get("to"))
	if err != nil {
		h.writeDomainError(w, "Invalid period", err)
		return
	}

	stmt, err := h.Builder.BuildPeriod(ctx, party.ID, opening, period)
	if err != nil {
		h.writeDomainError(w, "Failed to build ledger", err)
		return
	}

	dto := h.toStatementDTO(stmt)
	if period.End.IsZero() {
		dto.Reconciliation = toReconciliationDTO(stmt.Reconcile(party.Outstanding))
	}
	writeJSON(w, http.StatusOK, dto)
}

func parsePeriod(from, to string) (generic.Period, error) {
	var start, end time.Time
	var err error
	if from != "" {
		if start, err = generic.ParseDateText(from, generic.DateLayouts); err != nil {
			return generic.Period{}, &generic.ValidationError{Field: "from", Message: "unreadable date"}
		}
	}
	if to != "" {
		if end, err = generic.ParseDateText(to, generic.DateLayouts); err != nil {
			return generic.Period{}, &generic.ValidationError{Field: "to", Message: "unreadable date"}
		}
	}
	p := generic.DayPeriod(start, end)
	return p, p.Validate()
}

// =============================================================================
// RECORDING
// =============================================================================

// CreateSale prices the submitted lines against the party's live discount
// configuration and records the invoice total as a debit. The party's
// stored outstanding balance is raised by the same amount in the same
// store transaction.
func (h *Handler) CreateSale(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	party, err := h.Store.GetParty(ctx, partyParam(r))
	if err != nil {
		h.writeDomainError(w, "Failed to get party", err)
		return
	}

	var req CreateSaleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if len(req.Lines) == 0 {
		h.writeDomainError(w, "Invalid sale", &generic.ValidationError{Field: "lines", Message: "at least one line required"})
		return
	}

	catalog, err := discount.LoadCatalog(ctx, h.Store, party.ID)
	if err != nil {
		h.writeDomainError(w, "Failed to load discount configuration", err)
		return
	}
	lines, err := toLines(req.Lines, catalog)
	if err != nil {
		h.writeDomainError(w, "Invalid line", err)
		return
	}
	inv := discount.PriceInvoice(lines, catalog)

	date := req.Date
	if date.IsZero() {
		date = generic.DateOf(h.Now().UTC())
	}
	total := inv.Total
	rec, err := h.Records.FromJSON(factory.RecordJSON{
		ID:            req.ID,
		PartyID:       string(party.ID),
		Kind:          string(generic.KindSale),
		Date:          date,
		Amount:        &total,
		Description:   req.Description,
		InvoiceNumber: req.InvoiceNumber,
		DueDate:       req.DueDate,
		Status:        req.Status,
	})
	if err != nil {
		h.writeDomainError(w, "Invalid sale", err)
		return
	}
	rec.Sale.Items = inv.SaleItems()

	if err := h.Store.RecordAndAdjust(ctx, *rec); err != nil {
		h.writeDomainError(w, "Failed to record sale", err)
		return
	}

	h.Log.Info().
		Str("party_id", string(party.ID)).
		Str("record_id", string(rec.ID)).
		Str("total", inv.Total.StringFixed(2)).
		Msg("Sale recorded")

	writeJSON(w, http.StatusCreated, map[string]any{
		"record":  h.Records.ToJSON(*rec),
		"invoice": inv,
	})
}

// CreatePayment records a credit and lowers the stored outstanding balance
// atomically with it.
func (h *Handler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	party, err := h.Store.GetParty(ctx, partyParam(r))
	if err != nil {
		h.writeDomainError(w, "Failed to get party", err)
		return
	}

	var req CreatePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	amount := generic.Round2(req.Amount.Decimal)
	if !amount.IsPositive() {
		h.writeDomainError(w, "Invalid payment", &generic.ValidationError{Field: "amount", Message: "must be greater than zero"})
		return
	}

	date := req.Date
	if date.IsZero() {
		date = generic.DateOf(h.Now().UTC())
	}
	rec, err := h.Records.FromJSON(factory.RecordJSON{
		ID:              req.ID,
		PartyID:         string(party.ID),
		Kind:            string(generic.KindPayment),
		Date:            date,
		Amount:          &amount,
		Description:     req.Description,
		ReferenceNumber: req.ReferenceNumber,
		Method:          req.Method,
	})
	if err != nil {
		h.writeDomainError(w, "Invalid payment", err)
		return
	}

	if err := h.Store.RecordAndAdjust(ctx, *rec); err != nil {
		h.writeDomainError(w, "Failed to record payment", err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"record": h.Records.ToJSON(*rec)})
}

// =============================================================================
// PARTY DISCOUNTS - Category batch editor
// =============================================================================

// loadBatch reads categories and the party's overrides concurrently.
func (h *Handler) loadBatch(ctx context.Context, partyID generic.PartyID) (discount.Batch, []generic.Category, error) {
	var (
		categories []generic.Category
		overrides  generic.Overrides
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		categories, err = h.Store.Categories(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		overrides, err = h.Store.PartyOverrides(gctx, partyID)
		return err
	})
	if err := g.Wait(); err != nil {
		return discount.Batch{}, nil, err
	}
	return discount.NewBatch(categories, overrides), categories, nil
}

// GetPartyDiscounts returns the batch editor rows.
func (h *Handler) GetPartyDiscounts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	party, err := h.Store.GetParty(ctx, partyParam(r))
	if err != nil {
		h.writeDomainError(w, "Failed to get party", err)
		return
	}

	batch, _, err := h.loadBatch(ctx, party.ID)
	if err != nil {
		h.writeDomainError(w, "Failed to load discounts", err)
		return
	}
	q := r.URL.Query()
	active, _ := strconv.ParseBool(q.Get("active"))
	batch = batch.Search(q.Get("q")).ActiveOnly(active)

	writeJSON(w, http.StatusOK, map[string]any{"discounts": toDiscountRows(batch.Rows())})
}

// UpdatePartyDiscounts applies edited values and replaces the party's
// override set with the batch result.
func (h *Handler) UpdatePartyDiscounts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	party, err := h.Store.GetParty(ctx, partyParam(r))
	if err != nil {
		h.writeDomainError(w, "Failed to get party", err)
		return
	}

	var req UpdateDiscountsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	batch, _, err := h.loadBatch(ctx, party.ID)
	if err != nil {
		h.writeDomainError(w, "Failed to load discounts", err)
		return
	}
	for id, v := range req.Values {
		batch = batch.Set(generic.CategoryID(id), v.Decimal)
	}
	if err := h.Store.SetPartyOverrides(ctx, party.ID, batch.Result()); err != nil {
		h.writeDomainError(w, "Failed to save discounts", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"discounts": toDiscountRows(batch.Rows())})
}

// ResetPartyDiscounts drops every override so the party follows category
// defaults again.
func (h *Handler) ResetPartyDiscounts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	party, err := h.Store.GetParty(ctx, partyParam(r))
	if err != nil {
		h.writeDomainError(w, "Failed to get party", err)
		return
	}

	batch, _, err := h.loadBatch(ctx, party.ID)
	if err != nil {
		h.writeDomainError(w, "Failed to load discounts", err)
		return
	}
	if err := h.Store.SetPartyOverrides(ctx, party.ID, generic.Overrides{}); err != nil {
		h.writeDomainError(w, "Failed to reset discounts", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"discounts": toDiscountRows(batch.ResetToDefaults().Rows())})
}

// ImportPartyDiscounts replaces the party's overrides with a name-keyed
// document ({"Groceries": 12, ...}). Names with no category are reported.
func (h *Handler) ImportPartyDiscounts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	party, err := h.Store.GetParty(ctx, partyParam(r))
	if err != nil {
		h.writeDomainError(w, "Failed to get party", err)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read body", err)
		return
	}
	categories, err := h.Store.Categories(ctx)
	if err != nil {
		h.writeDomainError(w, "Failed to load categories", err)
		return
	}
	overrides, unmatched, err := factory.ImportLegacyOverrides(body, categories)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid override document", err)
		return
	}

	batch := discount.NewBatch(categories, overrides)
	if err := h.Store.SetPartyOverrides(ctx, party.ID, batch.Result()); err != nil {
		h.writeDomainError(w, "Failed to save discounts", err)
		return
	}
	if len(unmatched) > 0 {
		h.Log.Warn().
			Str("party_id", string(party.ID)).
			Strs("unmatched", unmatched).
			Msg("Override import skipped unknown category names")
	}
	if unmatched == nil {
		unmatched = []string{}
	}
	writeJSON(w, http.StatusOK, ImportDiscountsDTO{Discounts: toDiscountRows(batch.Rows()), Unmatched: unmatched})
}

// =============================================================================
// CATALOG
// =============================================================================

func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.Store.Categories(r.Context())
	if err != nil {
		h.writeDomainError(w, "Failed to list categories", err)
		return
	}
	dtos := make([]CategoryDTO, len(categories))
	for i, c := range categories {
		dtos[i] = toCategoryDTO(c)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	h.saveCategory(w, r, generic.CategoryID(h.NewID()), http.StatusCreated)
}

// UpdateCategory changes a category's name or default discount. Open
// invoices pick the new default up on their next refresh.
func (h *Handler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	id := generic.CategoryID(chi.URLParam(r, "id"))
	categories, err := h.Store.Categories(r.Context())
	if err != nil {
		h.writeDomainError(w, "Failed to load categories", err)
		return
	}
	found := false
	for _, c := range categories {
		if c.ID == id {
			found = true
			break
		}
	}
	if !found {
		h.writeDomainError(w, "Failed to update category", generic.ErrCategoryNotFound)
		return
	}
	h.saveCategory(w, r, id, http.StatusOK)
}

func (h *Handler) saveCategory(w http.ResponseWriter, r *http.Request, id generic.CategoryID, status int) {
	var req CategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	c, err := discount.ValidateCategory(generic.Category{ID: id, Name: req.Name, DefaultDiscount: req.DefaultDiscount.Decimal})
	if err != nil {
		h.writeDomainError(w, "Invalid category", err)
		return
	}
	if err := h.Store.SaveCategory(r.Context(), c); err != nil {
		h.writeDomainError(w, "Failed to save category", err)
		return
	}
	writeJSON(w, status, toCategoryDTO(c))
}

func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.Store.Products(r.Context())
	if err != nil {
		h.writeDomainError(w, "Failed to list products", err)
		return
	}
	dtos := make([]ProductDTO, len(products))
	for i, p := range products {
		dtos[i] = toProductDTO(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req ProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	p := generic.Product{
		ID:         generic.ProductID(h.NewID()),
		Name:       req.Name,
		CategoryID: generic.CategoryID(strings.TrimSpace(req.CategoryID)),
		UnitPrice:  req.UnitPrice.Decimal,
	}
	if req.DefaultDiscount != nil {
		d := req.DefaultDiscount.Decimal
		p.DefaultDiscount = &d
	}
	p, err := discount.ValidateProduct(p)
	if err != nil {
		h.writeDomainError(w, "Invalid product", err)
		return
	}
	if err := h.Store.SaveProduct(r.Context(), p); err != nil {
		h.writeDomainError(w, "Failed to save product", err)
		return
	}
	writeJSON(w, http.StatusCreated, toProductDTO(p))
}

// =============================================================================
// INVOICE LINES
// =============================================================================

// PriceInvoice prices lines against live configuration without recording
// anything. party_id is optional; without it only category defaults apply.
func (h *Handler) PriceInvoice(w http.ResponseWriter, r *http.Request) {
	var req PriceInvoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	catalog, err := discount.LoadCatalog(r.Context(), h.Store, generic.PartyID(req.PartyID))
	if err != nil {
		h.writeDomainError(w, "Failed to load discount configuration", err)
		return
	}
	lines, err := toLines(req.Lines, catalog)
	if err != nil {
		h.writeDomainError(w, "Invalid line", err)
		return
	}
	inv := discount.PriceInvoice(lines, catalog)
	writeJSON(w, http.StatusOK, map[string]any{
		"invoice":       inv,
		"total_display": h.Currency.Format(inv.Total),
	})
}

// ApplyLineActions runs actions in order on one line.
func (h *Handler) ApplyLineActions(w http.ResponseWriter, r *http.Request) {
	var req ApplyLineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	catalog, err := discount.LoadCatalog(r.Context(), h.Store, generic.PartyID(req.PartyID))
	if err != nil {
		h.writeDomainError(w, "Failed to load discount configuration", err)
		return
	}
	line, err := req.Line.toLine(catalog)
	if err != nil {
		h.writeDomainError(w, "Invalid line", err)
		return
	}
	actions := make([]discount.Action, 0, len(req.Actions))
	for _, a := range req.Actions {
		action, err := a.toAction()
		if err != nil {
			h.writeDomainError(w, "Invalid action", err)
			return
		}
		actions = append(actions, action)
	}

	line = discount.ApplyAll(line, catalog, actions...)
	writeJSON(w, http.StatusOK, LineDTO{Line: line, DefaultType: discount.DefaultType(line, catalog)})
}

func toLines(inputs []LineInput, lookup discount.Lookup) ([]discount.Line, error) {
	lines := make([]discount.Line, len(inputs))
	for i, in := range inputs {
		l, err := in.toLine(lookup)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i, err)
		}
		lines[i] = l
	}
	return lines, nil
}

// =============================================================================
// RECONCILIATION
// =============================================================================

// ListReconciliationRuns returns run history, newest first.
func (h *Handler) ListReconciliationRuns(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := 50
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}

	runs, err := h.Store.ReconciliationRuns(r.Context(), generic.PartyID(q.Get("party")), limit)
	if err != nil {
		h.writeDomainError(w, "Failed to list reconciliation runs", err)
		return
	}
	dtos := make([]ReconciliationRunDTO, len(runs))
	for i, run := range runs {
		dtos[i] = toRunDTO(run)
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": dtos})
}

// ProcessReconciliation reconciles every party immediately.
func (h *Handler) ProcessReconciliation(w http.ResponseWriter, r *http.Request) {
	summary, err := h.Reconciler.ReconcileAll(r.Context())
	if err != nil {
		h.writeDomainError(w, "Reconciliation failed", err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func partyParam(r *http.Request) generic.PartyID {
	return generic.PartyID(chi.URLParam(r, "id"))
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps domain errors to a status code.
func (h *Handler) writeDomainError(w http.ResponseWriter, message string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.Log.Error().Err(err).Int("status", status).Msg(message)
	}
	writeError(w, status, message, err)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, generic.ErrFetchFailed):
		return http.StatusBadGateway
	case generic.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, generic.ErrDuplicateRecord):
		return http.StatusConflict
	case generic.IsClientError(err):
		return http.StatusBadRequest
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

