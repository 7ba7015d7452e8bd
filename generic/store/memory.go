// Package store provides Store implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/warp/bizledger/generic"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory implements generic.Backend in process memory.
type Memory struct {
	mu         sync.RWMutex
	records    map[key][]generic.TransactionRecord
	ids        map[recordKey]bool
	parties    map[generic.PartyID]generic.Party
	categories map[generic.CategoryID]generic.Category
	products   map[generic.ProductID]generic.Product
	overrides  map[generic.PartyID]generic.Overrides
	runs       []generic.ReconciliationRun

	// FailKinds makes QueryByParty fail for the listed kinds. Tests use it to
	// simulate an unavailable origin collection.
	FailKinds map[generic.RecordKind]error
}

type key struct {
	PartyID generic.PartyID
	Kind    generic.RecordKind
}

type recordKey struct {
	Kind generic.RecordKind
	ID   generic.RecordID
}

func NewMemory() *Memory {
	m := &Memory{}
	m.resetLocked()
	return m
}

func (m *Memory) resetLocked() {
	m.records = make(map[key][]generic.TransactionRecord)
	m.ids = make(map[recordKey]bool)
	m.parties = make(map[generic.PartyID]generic.Party)
	m.categories = make(map[generic.CategoryID]generic.Category)
	m.products = make(map[generic.ProductID]generic.Product)
	m.overrides = make(map[generic.PartyID]generic.Overrides)
	m.runs = nil
}

// =============================================================================
// RECORDS
// =============================================================================

func (m *Memory) RecordTransaction(_ context.Context, rec generic.TransactionRecord) error {
	if !rec.Kind.Valid() {
		return generic.ErrInvalidKind
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	rk := recordKey{Kind: rec.Kind, ID: rec.ID}
	if m.ids[rk] {
		return generic.ErrDuplicateRecord
	}
	k := key{PartyID: rec.PartyID, Kind: rec.Kind}
	m.records[k] = append(m.records[k], rec)
	m.ids[rk] = true
	return nil
}

// RecordAndAdjust checks every record and party before writing anything.
func (m *Memory) RecordAndAdjust(_ context.Context, recs ...generic.TransactionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	seen := make(map[recordKey]bool, len(recs))
	for _, rec := range recs {
		if !rec.Kind.Valid() {
			return generic.ErrInvalidKind
		}
		rk := recordKey{Kind: rec.Kind, ID: rec.ID}
		if m.ids[rk] || seen[rk] {
			return generic.ErrDuplicateRecord
		}
		seen[rk] = true
		if _, ok := m.parties[rec.PartyID]; !ok {
			return generic.ErrPartyNotFound
		}
	}

	for _, rec := range recs {
		k := key{PartyID: rec.PartyID, Kind: rec.Kind}
		m.records[k] = append(m.records[k], rec)
		m.ids[recordKey{Kind: rec.Kind, ID: rec.ID}] = true

		p := m.parties[rec.PartyID]
		p.Outstanding = p.Outstanding.Add(rec.Net())
		m.parties[rec.PartyID] = p
	}
	return nil
}

// QueryByParty returns records in insertion order. Callers must not rely on it.
func (m *Memory) QueryByParty(_ context.Context, partyID generic.PartyID, kind generic.RecordKind) ([]generic.TransactionRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err, ok := m.FailKinds[kind]; ok {
		return nil, err
	}

	k := key{PartyID: partyID, Kind: kind}
	result := make([]generic.TransactionRecord, len(m.records[k]))
	copy(result, m.records[k])
	return result, nil
}

// =============================================================================
// PARTIES
// =============================================================================

func (m *Memory) SaveParty(_ context.Context, p generic.Party) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.parties[p.ID] = p
	return nil
}

func (m *Memory) GetParty(_ context.Context, id generic.PartyID) (*generic.Party, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.parties[id]
	if !ok {
		return nil, generic.ErrPartyNotFound
	}
	return &p, nil
}

func (m *Memory) ListParties(_ context.Context) ([]generic.Party, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]generic.Party, 0, len(m.parties))
	for _, p := range m.parties {
		result = append(result, p)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (m *Memory) AdjustOutstanding(_ context.Context, id generic.PartyID, delta decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.parties[id]
	if !ok {
		return generic.ErrPartyNotFound
	}
	p.Outstanding = p.Outstanding.Add(delta)
	m.parties[id] = p
	return nil
}

// =============================================================================
// CATALOG
// =============================================================================

func (m *Memory) Categories(_ context.Context) ([]generic.Category, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]generic.Category, 0, len(m.categories))
	for _, c := range m.categories {
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (m *Memory) SaveCategory(_ context.Context, c generic.Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.categories[c.ID] = c
	return nil
}

func (m *Memory) Products(_ context.Context) ([]generic.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]generic.Product, 0, len(m.products))
	for _, p := range m.products {
		result = append(result, p)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (m *Memory) SaveProduct(_ context.Context, p generic.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if p.CategoryID != "" {
		if _, ok := m.categories[p.CategoryID]; !ok {
			return generic.ErrCategoryNotFound
		}
	}
	m.products[p.ID] = p
	return nil
}

func (m *Memory) PartyOverrides(_ context.Context, partyID generic.PartyID) (generic.Overrides, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.overrides[partyID].Clone(), nil
}

// SetPartyOverrides replaces the full set under one lock.
func (m *Memory) SetPartyOverrides(_ context.Context, partyID generic.PartyID, overrides generic.Overrides) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(overrides) == 0 {
		delete(m.overrides, partyID)
		return nil
	}
	m.overrides[partyID] = overrides.Clone()
	return nil
}

// =============================================================================
// RECONCILIATION RUNS
// =============================================================================

func (m *Memory) SaveReconciliationRun(_ context.Context, run generic.ReconciliationRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, run)
	return nil
}

func (m *Memory) ReconciliationRuns(_ context.Context, partyID generic.PartyID, limit int) ([]generic.ReconciliationRun, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []generic.ReconciliationRun
	for i := len(m.runs) - 1; i >= 0; i-- {
		if partyID != "" && m.runs[i].PartyID != partyID {
			continue
		}
		result = append(result, m.runs[i])
		if limit > 0 && len(result) == limit {
			break
		}
	}
	return result, nil
}

// =============================================================================
// LIFECYCLE
// =============================================================================

func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetLocked()
	return nil
}

func (m *Memory) Close() error { return nil }

var _ generic.Backend = (*Memory)(nil)
