package discount_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/warp/bizledger/discount"
	"github.com/warp/bizledger/generic"
)

// =============================================================================
// LINE REDUCER
// =============================================================================

func TestLine_SwitchingBackReadsLiveCategoryValue(t *testing.T) {
	// GIVEN: A line for a product (5%) in a category (10%)
	// WHEN: category -> product -> (category default changes to 15) -> category
	// THEN: The line shows 15%, not the 10% it showed before

	before := catalog("10", nil)
	line := discount.Apply(discount.Line{Quantity: 1}, discount.SelectProduct{ProductID: "prod-rice"}, before)

	line = discount.Apply(line, discount.SetDiscountType{Type: discount.TypeCategory}, before)
	assert.Equal(t, "10", line.DiscountValue.String())

	line = discount.Apply(line, discount.SetDiscountType{Type: discount.TypeProduct}, before)
	assert.Equal(t, "5", line.DiscountValue.String())

	after := catalog("15", nil)
	line = discount.Apply(line, discount.SetDiscountType{Type: discount.TypeCategory}, after)
	assert.Equal(t, "15", line.DiscountValue.String())
}

func TestLine_RefreshPicksUpConfigChange(t *testing.T) {
	line := discount.ApplyAll(discount.Line{}, catalog("10", nil),
		discount.SelectProduct{ProductID: "prod-rice"},
		discount.SetDiscountType{Type: discount.TypeCategory},
	)
	assert.Equal(t, "10", line.DiscountValue.String())

	line = discount.Apply(line, discount.Refresh{}, catalog("10", generic.Overrides{"cat-groc": d("25")}))
	assert.Equal(t, "25", line.DiscountValue.String())
	assert.Equal(t, "75.00", line.Amount.StringFixed(2))
}

func TestLine_AmountRecompute(t *testing.T) {
	// GIVEN: quantity 3, unit price 100, custom discount 10
	// WHEN: quantity changes to 5
	// THEN: 270.00 then 450.00, with no need to re-enter the discount

	line := discount.NewLine("Widget", 3, d("100"))
	line = discount.Apply(line, discount.SetCustomValue{Value: d("10")}, nil)
	assert.Equal(t, "270.00", line.Amount.StringFixed(2))

	line = discount.Apply(line, discount.SetQuantity{Quantity: 5}, nil)
	assert.Equal(t, "450.00", line.Amount.StringFixed(2))
	assert.Equal(t, discount.TypeCustom, line.DiscountType)
}

func TestLine_AmountRecomputeWithCategorySource(t *testing.T) {
	lookup := catalog("10", nil)
	line := discount.ApplyAll(discount.Line{}, lookup,
		discount.SelectProduct{ProductID: "prod-rice"},
		discount.SetDiscountType{Type: discount.TypeCategory},
		discount.SetQuantity{Quantity: 3},
	)
	assert.Equal(t, "270.00", line.Amount.StringFixed(2))

	line = discount.Apply(line, discount.SetQuantity{Quantity: 5}, lookup)
	assert.Equal(t, "450.00", line.Amount.StringFixed(2))
}

func TestLine_CustomValueClampedAndKeptOnSwitch(t *testing.T) {
	lookup := catalog("10", nil)
	line := discount.NewLine("Widget", 1, d("200"))

	line = discount.Apply(line, discount.SetCustomValue{Value: d("150")}, lookup)
	assert.Equal(t, "100", line.DiscountValue.String())
	assert.Equal(t, "0.00", line.Amount.StringFixed(2))

	// custom keeps the number that was showing
	line = discount.ApplyAll(line, lookup,
		discount.SelectProduct{ProductID: "prod-rice"},
		discount.SetDiscountType{Type: discount.TypeProduct},
		discount.SetDiscountType{Type: discount.TypeCustom},
	)
	assert.Equal(t, "5", line.DiscountValue.String())
}

func TestLine_ResetToDefault(t *testing.T) {
	lookup := catalog("10", nil)
	line := discount.ApplyAll(discount.Line{}, lookup,
		discount.SelectProduct{ProductID: "prod-rice"},
		discount.SetCustomValue{Value: d("30")},
		discount.ResetToDefault{},
	)
	assert.Equal(t, discount.TypeProduct, line.DiscountType)
	assert.Equal(t, "5", line.DiscountValue.String())

	free := discount.Apply(discount.NewLine("Delivery", 1, d("50")), discount.ResetToDefault{}, lookup)
	assert.Equal(t, discount.TypeNone, free.DiscountType)
	assert.Equal(t, "50.00", free.Amount.StringFixed(2))
}

func TestLine_SelectProductFillsFields(t *testing.T) {
	line := discount.Apply(discount.Line{}, discount.SelectProduct{ProductID: "prod-rice"}, catalog("10", nil))

	assert.Equal(t, generic.ProductID("prod-rice"), line.ProductID)
	assert.Equal(t, generic.CategoryID("cat-groc"), line.CategoryID)
	assert.Equal(t, "Rice 5kg", line.Description)
	assert.Equal(t, 1, line.Quantity)
	assert.Equal(t, discount.TypeProduct, line.DiscountType)
	assert.Equal(t, "95.00", line.Amount.StringFixed(2))

	unknown := discount.Apply(line, discount.SelectProduct{ProductID: "nope"}, catalog("10", nil))
	assert.Equal(t, line, unknown)
}

func TestLine_ApplyDoesNotMutateInput(t *testing.T) {
	orig := discount.NewLine("Widget", 2, d("10"))
	_ = discount.Apply(orig, discount.SetQuantity{Quantity: 9}, nil)
	assert.Equal(t, 2, orig.Quantity)
}

// =============================================================================
// INVOICE
// =============================================================================

func TestPriceInvoice_SumsRoundedLines(t *testing.T) {
	lookup := catalog("10", nil)
	lines := []discount.Line{
		discount.ApplyAll(discount.Line{}, lookup, discount.SelectProduct{ProductID: "prod-rice"}, discount.SetQuantity{Quantity: 3}),
		discount.Apply(discount.NewLine("Thing", 3, d("0.335")), discount.SetCustomValue{Value: d("10")}, nil),
	}

	inv := discount.PriceInvoice(lines, lookup)

	// 3 × 100 @5% = 285.00; 3 × 0.335 @10% = 0.9045 -> 0.90
	assert.Equal(t, "285.00", inv.Lines[0].Amount.StringFixed(2))
	assert.Equal(t, "0.90", inv.Lines[1].Amount.StringFixed(2))
	assert.Equal(t, "285.90", inv.Total.StringFixed(2))
	assert.Equal(t, "301.01", inv.Subtotal.StringFixed(2))
	assert.Equal(t, "15.11", inv.DiscountTotal.StringFixed(2))

	items := inv.SaleItems()
	assert.Len(t, items, 2)
	assert.Equal(t, "product", items[0].DiscountType)
}
