package discount_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/bizledger/discount"
	"github.com/warp/bizledger/generic"
	"github.com/warp/bizledger/generic/store"
)

// =============================================================================
// FIXTURES
// =============================================================================

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func ptr(v decimal.Decimal) *decimal.Decimal { return &v }

func groceries(defaultDiscount string) generic.Category {
	return generic.Category{ID: "cat-groc", Name: "Groceries", DefaultDiscount: d(defaultDiscount)}
}

func rice() generic.Product {
	return generic.Product{ID: "prod-rice", Name: "Rice 5kg", CategoryID: "cat-groc", UnitPrice: d("100"), DefaultDiscount: ptr(d("5"))}
}

func catalog(categoryDefault string, overrides generic.Overrides) *discount.Catalog {
	return discount.NewCatalog([]generic.Category{groceries(categoryDefault)}, []generic.Product{rice()}, overrides)
}

// =============================================================================
// CLAMP / RESOLVE
// =============================================================================

func TestClamp(t *testing.T) {
	cases := []struct{ in, want string }{
		{"-10", "0"},
		{"0", "0"},
		{"50", "50"},
		{"100", "100"},
		{"150", "100"},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got := discount.Clamp(d(tc.in))
			assert.True(t, d(tc.want).Equal(got), "want %s got %s", tc.want, got)
		})
	}
}

func TestClamp_CategoryEntry(t *testing.T) {
	// GIVEN: Category discounts entered out of range
	// THEN: The batch editor and category validation both clamp them
	cats := []generic.Category{{ID: "a", Name: "A"}}
	b := discount.NewBatch(cats, nil)
	for _, tc := range []struct{ in, want string }{{"-10", "0"}, {"0", "0"}, {"50", "50"}, {"100", "100"}, {"150", "100"}} {
		v, _ := b.Set("a", d(tc.in)).Value("a")
		assert.True(t, d(tc.want).Equal(v))

		saved, err := discount.ValidateCategory(generic.Category{Name: "A", DefaultDiscount: d(tc.in)})
		require.NoError(t, err)
		assert.True(t, d(tc.want).Equal(saved.DefaultDiscount))
	}
}

func TestResolve_UserSelectedSource(t *testing.T) {
	src := discount.Sources{Category: d("10"), Product: d("5")}

	assert.True(t, decimal.Zero.Equal(discount.Resolve(discount.TypeNone, d("40"), src)))
	assert.True(t, d("10").Equal(discount.Resolve(discount.TypeCategory, d("40"), src)))
	assert.True(t, d("5").Equal(discount.Resolve(discount.TypeProduct, d("40"), src)))
	assert.True(t, d("40").Equal(discount.Resolve(discount.TypeCustom, d("40"), src)))
	assert.True(t, d("100").Equal(discount.Resolve(discount.TypeCustom, d("400"), src)))
}

func TestResolve_MissingSourceIsZero(t *testing.T) {
	assert.True(t, decimal.Zero.Equal(discount.Resolve(discount.TypeProduct, decimal.Zero, discount.Sources{})))
}

func TestParseType(t *testing.T) {
	typ, err := discount.ParseType(" Category ")
	require.NoError(t, err)
	assert.Equal(t, discount.TypeCategory, typ)

	typ, err = discount.ParseType("")
	require.NoError(t, err)
	assert.Equal(t, discount.TypeNone, typ)

	_, err = discount.ParseType("loyalty")
	assert.ErrorIs(t, err, generic.ErrValidation)
}

func TestParseNumbers_NaNIsZero(t *testing.T) {
	assert.Equal(t, 0, discount.ParseQuantity("abc"))
	assert.Equal(t, 0, discount.ParseQuantity("NaN"))
	assert.Equal(t, 3, discount.ParseQuantity("3.9"))
	assert.True(t, decimal.Zero.Equal(discount.ParseAmount("")))
	assert.True(t, decimal.Zero.Equal(discount.ParseAmount("NaN")))
	assert.True(t, d("12.5").Equal(discount.ParseAmount(" 12.5 ")))
}

// =============================================================================
// CATALOG
// =============================================================================

func TestCatalog_OverrideBeatsCategoryDefault(t *testing.T) {
	c := catalog("10", generic.Overrides{"cat-groc": d("12")})

	v, ok := c.CategoryDiscount("cat-groc")
	require.True(t, ok)
	assert.True(t, d("12").Equal(v))

	_, ok = c.CategoryDiscount("cat-missing")
	assert.False(t, ok)
}

func TestCatalog_ProductWithoutDiscount(t *testing.T) {
	plain := generic.Product{ID: "prod-plain", Name: "Bag", UnitPrice: d("5")}
	c := discount.NewCatalog(nil, []generic.Product{plain}, nil)

	_, ok := c.ProductDiscount("prod-plain")
	assert.False(t, ok)
	_, ok = c.Product("prod-plain")
	assert.True(t, ok)
}

func TestLoadCatalog_FromStore(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	require.NoError(t, mem.SaveCategory(ctx, groceries("10")))
	require.NoError(t, mem.SaveProduct(ctx, rice()))
	require.NoError(t, mem.SetPartyOverrides(ctx, "party-1", generic.Overrides{"cat-groc": d("20")}))

	withParty, err := discount.LoadCatalog(ctx, mem, "party-1")
	require.NoError(t, err)
	v, _ := withParty.CategoryDiscount("cat-groc")
	assert.True(t, d("20").Equal(v))

	noParty, err := discount.LoadCatalog(ctx, mem, "")
	require.NoError(t, err)
	v, _ = noParty.CategoryDiscount("cat-groc")
	assert.True(t, d("10").Equal(v))
}

// =============================================================================
// VALIDATION
// =============================================================================

func TestValidateProduct(t *testing.T) {
	_, err := discount.ValidateProduct(generic.Product{Name: "  "})
	var ve *generic.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "name", ve.Field)

	_, err = discount.ValidateProduct(generic.Product{Name: "Oil", UnitPrice: d("-1")})
	assert.ErrorIs(t, err, generic.ErrValidation)
	assert.True(t, generic.IsClientError(err))

	p, err := discount.ValidateProduct(generic.Product{Name: " Oil ", UnitPrice: d("120"), DefaultDiscount: ptr(d("130"))})
	require.NoError(t, err)
	assert.Equal(t, "Oil", p.Name)
	assert.True(t, d("100").Equal(*p.DefaultDiscount))
}
