package discount_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/warp/bizledger/discount"
	"github.com/warp/bizledger/generic"
)

func batchCategories() []generic.Category {
	return []generic.Category{
		{ID: "c-snack", Name: "Snacks", DefaultDiscount: d("0")},
		{ID: "c-dairy", Name: "Dairy", DefaultDiscount: d("5")},
		{ID: "c-bev", Name: "Beverages", DefaultDiscount: d("0")},
	}
}

func rowNames(rows []discount.Row) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.Name
	}
	return out
}

func TestBatch_InitialValues(t *testing.T) {
	b := discount.NewBatch(batchCategories(), generic.Overrides{"c-bev": d("12")})

	rows := b.Rows()
	assert.Equal(t, []string{"Beverages", "Dairy", "Snacks"}, rowNames(rows))
	assert.Equal(t, "12", rows[0].Discount.String())
	assert.True(t, rows[0].Overridden)
	assert.Equal(t, "5", rows[1].Discount.String())
	assert.False(t, rows[1].Overridden)
}

func TestBatch_SearchAndActiveOnly(t *testing.T) {
	b := discount.NewBatch(batchCategories(), nil).Set("c-snack", d("3"))

	assert.Equal(t, []string{"Dairy", "Snacks"}, rowNames(b.ActiveOnly(true).Rows()))
	assert.Equal(t, []string{"Snacks"}, rowNames(b.Search("SNA").Rows()))
	assert.Empty(t, b.Search("bev").ActiveOnly(true).Rows())
	assert.Len(t, b.Rows(), 3)
}

func TestBatch_ResultIsSparse(t *testing.T) {
	// GIVEN: Edits that leave some categories at zero
	// WHEN: Taking the result while a search hides some rows
	// THEN: Only categories above zero are returned, hidden rows included

	b := discount.NewBatch(batchCategories(), nil).
		Set("c-bev", d("150")).
		Set("c-dairy", d("0")).
		Search("snack")

	assert.Equal(t, generic.Overrides{"c-bev": d("100")}, b.Result())
}

func TestBatch_ValueSemantics(t *testing.T) {
	base := discount.NewBatch(batchCategories(), nil)
	edited := base.Set("c-snack", d("8"))

	v, _ := base.Value("c-snack")
	assert.True(t, decimal.Zero.Equal(v))
	v, _ = edited.Value("c-snack")
	assert.Equal(t, "8", v.String())

	unchanged := base.Set("c-unknown", d("8"))
	assert.Equal(t, base.Result(), unchanged.Result())
}

func TestBatch_ResetToDefaults(t *testing.T) {
	b := discount.NewBatch(batchCategories(), generic.Overrides{"c-dairy": d("40"), "c-snack": d("7")}).
		ResetToDefaults()

	assert.Equal(t, generic.Overrides{"c-dairy": d("5")}, b.Result())
	for _, r := range b.Rows() {
		assert.False(t, r.Overridden, r.Name)
	}
}

func TestMigrateNameKeyed(t *testing.T) {
	legacy := map[string]decimal.Decimal{
		"Dairy":        d("10"),
		" beverages ":  d("120"),
		"Discontinued": d("3"),
	}

	out, unmatched := discount.MigrateNameKeyed(legacy, batchCategories())

	assert.Equal(t, generic.Overrides{"c-dairy": d("10"), "c-bev": d("100")}, out)
	assert.Equal(t, []string{"Discontinued"}, unmatched)
}
