package discount

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/warp/bizledger/generic"
)

// =============================================================================
// BATCH EDITOR - All category discounts for one party
// =============================================================================

// Batch is an editing session over every category's discount for a party.
// Methods return a new Batch; the receiver is never modified.
type Batch struct {
	categories []generic.Category
	values     map[generic.CategoryID]decimal.Decimal
	query      string
	activeOnly bool
}

// Row is one visible line of the editor.
type Row struct {
	CategoryID generic.CategoryID `json:"category_id"`
	Name       string             `json:"name"`
	Default    decimal.Decimal    `json:"default_discount"`
	Discount   decimal.Decimal    `json:"discount"`
	Overridden bool               `json:"overridden"`
}

// NewBatch starts a session. Each category shows the party's override if
// there is one, otherwise its own default.
func NewBatch(categories []generic.Category, overrides generic.Overrides) Batch {
	cats := make([]generic.Category, len(categories))
	copy(cats, categories)
	sort.SliceStable(cats, func(i, j int) bool { return cats[i].Name < cats[j].Name })

	values := make(map[generic.CategoryID]decimal.Decimal, len(cats))
	for _, c := range cats {
		v := c.DefaultDiscount
		if o, ok := overrides[c.ID]; ok {
			v = o
		}
		values[c.ID] = Clamp(v)
	}
	return Batch{categories: cats, values: values}
}

func (b Batch) clone() Batch {
	values := make(map[generic.CategoryID]decimal.Decimal, len(b.values))
	for k, v := range b.values {
		values[k] = v
	}
	b.values = values
	return b
}

// Set changes one category's discount, clamped. Unknown categories are
// ignored.
func (b Batch) Set(id generic.CategoryID, value decimal.Decimal) Batch {
	if _, ok := b.values[id]; !ok {
		return b
	}
	b = b.clone()
	b.values[id] = Clamp(value)
	return b
}

// Search filters rows by a case-insensitive substring of the name.
func (b Batch) Search(q string) Batch {
	b.query = strings.ToLower(strings.TrimSpace(q))
	return b
}

// ActiveOnly hides rows whose discount is zero.
func (b Batch) ActiveOnly(on bool) Batch {
	b.activeOnly = on
	return b
}

// ResetToDefaults discards every override and restores category defaults.
// Search and filter settings are kept.
func (b Batch) ResetToDefaults() Batch {
	b = b.clone()
	for _, c := range b.categories {
		b.values[c.ID] = Clamp(c.DefaultDiscount)
	}
	return b
}

// Value returns the current discount for id.
func (b Batch) Value(id generic.CategoryID) (decimal.Decimal, bool) {
	v, ok := b.values[id]
	return v, ok
}

func (b Batch) Rows() []Row {
	rows := make([]Row, 0, len(b.categories))
	for _, c := range b.categories {
		v := b.values[c.ID]
		if b.activeOnly && !v.IsPositive() {
			continue
		}
		if b.query != "" && !strings.Contains(strings.ToLower(c.Name), b.query) {
			continue
		}
		def := Clamp(c.DefaultDiscount)
		rows = append(rows, Row{
			CategoryID: c.ID,
			Name:       c.Name,
			Default:    def,
			Discount:   v,
			Overridden: !v.Equal(def),
		})
	}
	return rows
}

// Result is the sparse override map to save: only categories with a
// discount above zero, regardless of the current search or filter.
func (b Batch) Result() generic.Overrides {
	out := make(generic.Overrides)
	for _, c := range b.categories {
		if v := b.values[c.ID]; v.IsPositive() {
			out[c.ID] = v
		}
	}
	return out
}

// =============================================================================
// LEGACY NAME-KEYED OVERRIDES
// =============================================================================

// MigrateNameKeyed converts overrides keyed by category name into
// ID-keyed overrides. Names match exactly first, then case-insensitively
// after trimming. Names that match no category are returned sorted.
func MigrateNameKeyed(legacy map[string]decimal.Decimal, categories []generic.Category) (generic.Overrides, []string) {
	exact := make(map[string]generic.CategoryID, len(categories))
	folded := make(map[string]generic.CategoryID, len(categories))
	for _, c := range categories {
		exact[c.Name] = c.ID
		folded[strings.ToLower(strings.TrimSpace(c.Name))] = c.ID
	}

	out := make(generic.Overrides, len(legacy))
	var unmatched []string
	for name, v := range legacy {
		id, ok := exact[name]
		if !ok {
			id, ok = folded[strings.ToLower(strings.TrimSpace(name))]
		}
		if !ok {
			unmatched = append(unmatched, name)
			continue
		}
		out[id] = Clamp(v)
	}
	sort.Strings(unmatched)
	return out, unmatched
}
