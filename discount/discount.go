/*
Package discount resolves invoice line discounts and prices invoice lines.

PURPOSE:
  A line's discount comes from exactly one source, chosen by the user:

    none      no discount
    category  the category's default, or the party's override for it
    product   the product's own default discount
    custom    a value typed in and owned by the line

  The resolver never picks the source. Precedence (custom > product >
  category > none) only describes which sources override which when the
  user switches; the switch itself is always explicit.

LIVE VALUES:
  For every type except custom, the line's DiscountValue is re-read from
  the live configuration on every action. A line that went category ->
  product -> category shows the category value as it is NOW, not the
  value it showed the first time.

CLAMPING:
  Every discount, entered or derived, is clamped to [0, 100]. Out-of-range
  input is corrected, not rejected.

ROUNDING:
  amount = round2(quantity × unitPrice × (1 − discount/100))

  Each line is rounded half away from zero when it is derived. Invoice
  totals are sums of already rounded lines, so a printed invoice always
  adds up.

SEE ALSO:
  - line.go: Line reducer and actions
  - catalog.go: Lookup over categories, products and party overrides
  - batch.go: Party category discount batch editor
*/
package discount

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/warp/bizledger/generic"
)

// =============================================================================
// DISCOUNT TYPE
// =============================================================================

type Type string

const (
	TypeNone     Type = "none"
	TypeCategory Type = "category"
	TypeProduct  Type = "product"
	TypeCustom   Type = "custom"
)

func (t Type) Valid() bool {
	switch t {
	case TypeNone, TypeCategory, TypeProduct, TypeCustom:
		return true
	}
	return false
}

// ParseType reads a discount type. The empty string is TypeNone.
func ParseType(s string) (Type, error) {
	t := Type(strings.ToLower(strings.TrimSpace(s)))
	if t == "" {
		return TypeNone, nil
	}
	if !t.Valid() {
		return "", &generic.ValidationError{Field: "discount_type", Message: fmt.Sprintf("unknown discount type %q", s)}
	}
	return t, nil
}

// =============================================================================
// RESOLUTION
// =============================================================================

var maxDiscount = generic.Hundred

// Clamp limits v to [0, 100].
func Clamp(v decimal.Decimal) decimal.Decimal {
	if v.IsNegative() {
		return decimal.Zero
	}
	if v.GreaterThan(maxDiscount) {
		return maxDiscount
	}
	return v
}

// Sources are the live category and product values at apply time.
// A missing source is zero.
type Sources struct {
	Category decimal.Decimal
	Product  decimal.Decimal
}

// Resolve returns the effective discount for t. custom is only consulted
// for TypeCustom.
func Resolve(t Type, custom decimal.Decimal, src Sources) decimal.Decimal {
	switch t {
	case TypeCategory:
		return Clamp(src.Category)
	case TypeProduct:
		return Clamp(src.Product)
	case TypeCustom:
		return Clamp(custom)
	default:
		return decimal.Zero
	}
}

// Lookup serves live discount configuration.
type Lookup interface {
	// CategoryDiscount returns the discount that applies to the category,
	// with party overrides already taken into account.
	CategoryDiscount(id generic.CategoryID) (decimal.Decimal, bool)

	// ProductDiscount returns the product's own discount, if it has one.
	ProductDiscount(id generic.ProductID) (decimal.Decimal, bool)

	Product(id generic.ProductID) (generic.Product, bool)
}

// SourcesFor reads the live sources for a category and product.
func SourcesFor(lookup Lookup, categoryID generic.CategoryID, productID generic.ProductID) Sources {
	var src Sources
	if lookup == nil {
		return src
	}
	if categoryID != "" {
		if v, ok := lookup.CategoryDiscount(categoryID); ok {
			src.Category = v
		}
	}
	if productID != "" {
		if v, ok := lookup.ProductDiscount(productID); ok {
			src.Product = v
		}
	}
	return src
}

// =============================================================================
// AMOUNT
// =============================================================================

// Gross returns round2(quantity × unitPrice).
func Gross(quantity int, unitPrice decimal.Decimal) decimal.Decimal {
	return generic.Round2(decimal.NewFromInt(int64(quantity)).Mul(unitPrice))
}

// Amount returns round2(quantity × unitPrice × (1 − discount/100)).
func Amount(quantity int, unitPrice, discount decimal.Decimal) decimal.Decimal {
	factor := generic.Hundred.Sub(Clamp(discount)).Div(generic.Hundred)
	return generic.Round2(decimal.NewFromInt(int64(quantity)).Mul(unitPrice).Mul(factor))
}

// ParseQuantity reads user-entered quantity text. Non-numeric input is 0
// and fractions are truncated.
func ParseQuantity(s string) int {
	return int(generic.ParseAmount(s).IntPart())
}

// ParseAmount reads a user-entered price or discount. Non-numeric input is 0.
func ParseAmount(s string) decimal.Decimal {
	return generic.ParseAmount(s)
}
