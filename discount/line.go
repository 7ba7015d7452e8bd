package discount

import (
	"github.com/shopspring/decimal"
	"github.com/warp/bizledger/generic"
)

// =============================================================================
// LINE - An invoice line being edited
// =============================================================================

// Line is an immutable invoice line. Change it with Apply; Amount and, for
// every type but custom, DiscountValue are derived and overwritten on each
// action.
type Line struct {
	ProductID     generic.ProductID  `json:"product_id,omitempty"`
	CategoryID    generic.CategoryID `json:"category_id,omitempty"`
	Description   string             `json:"description"`
	Quantity      int                `json:"quantity"`
	UnitPrice     decimal.Decimal    `json:"unit_price"`
	DiscountType  Type               `json:"discount_type"`
	DiscountValue decimal.Decimal    `json:"discount_value"`
	Amount        decimal.Decimal    `json:"amount"`
}

// NewLine returns a free-text line with no discount.
func NewLine(description string, quantity int, unitPrice decimal.Decimal) Line {
	l := Line{Description: description, Quantity: quantity, UnitPrice: unitPrice, DiscountType: TypeNone}
	return derive(l, nil)
}

// =============================================================================
// ACTIONS
// =============================================================================

// Action is one edit to a line.
type Action interface {
	apply(l Line, lookup Lookup) Line
}

// SetDiscountType switches the discount source. Switching to custom keeps
// the value currently shown as the starting custom value.
type SetDiscountType struct{ Type Type }

// SetCustomValue types a discount in. The line becomes custom.
type SetCustomValue struct{ Value decimal.Decimal }

// ResetToDefault drops any custom value and goes back to the line's
// default source: the product's discount if it has one, else the
// category's, else none.
type ResetToDefault struct{}

type SetQuantity struct{ Quantity int }

type SetUnitPrice struct{ UnitPrice decimal.Decimal }

// SelectProduct binds the line to a product, taking its name, category and
// price. A product with its own discount switches a none line to product.
type SelectProduct struct{ ProductID generic.ProductID }

// Refresh re-reads live values without changing anything else.
type Refresh struct{}

func (a SetDiscountType) apply(l Line, _ Lookup) Line {
	if !a.Type.Valid() {
		return l
	}
	l.DiscountType = a.Type
	return l
}

func (a SetCustomValue) apply(l Line, _ Lookup) Line {
	l.DiscountType = TypeCustom
	l.DiscountValue = Clamp(a.Value)
	return l
}

func (ResetToDefault) apply(l Line, lookup Lookup) Line {
	l.DiscountType = DefaultType(l, lookup)
	return l
}

func (a SetQuantity) apply(l Line, _ Lookup) Line {
	l.Quantity = a.Quantity
	return l
}

func (a SetUnitPrice) apply(l Line, _ Lookup) Line {
	l.UnitPrice = a.UnitPrice
	return l
}

func (a SelectProduct) apply(l Line, lookup Lookup) Line {
	if lookup == nil {
		return l
	}
	p, ok := lookup.Product(a.ProductID)
	if !ok {
		return l
	}
	l.ProductID = p.ID
	l.CategoryID = p.CategoryID
	l.Description = p.Name
	l.UnitPrice = p.UnitPrice
	if l.Quantity == 0 {
		l.Quantity = 1
	}
	if l.DiscountType == "" || l.DiscountType == TypeNone {
		l.DiscountType = DefaultType(l, lookup)
	}
	return l
}

func (Refresh) apply(l Line, _ Lookup) Line { return l }

// =============================================================================
// REDUCER
// =============================================================================

// Apply returns the line after action, with the discount re-resolved from
// lookup and the amount recomputed.
func Apply(l Line, action Action, lookup Lookup) Line {
	if action != nil {
		l = action.apply(l, lookup)
	}
	return derive(l, lookup)
}

// ApplyAll folds actions over l.
func ApplyAll(l Line, lookup Lookup, actions ...Action) Line {
	for _, a := range actions {
		l = Apply(l, a, lookup)
	}
	return derive(l, lookup)
}

// DefaultType is the source a line falls back to on reset.
func DefaultType(l Line, lookup Lookup) Type {
	if lookup == nil {
		return TypeNone
	}
	if l.ProductID != "" {
		if _, ok := lookup.ProductDiscount(l.ProductID); ok {
			return TypeProduct
		}
	}
	if l.CategoryID != "" {
		if _, ok := lookup.CategoryDiscount(l.CategoryID); ok {
			return TypeCategory
		}
	}
	return TypeNone
}

func derive(l Line, lookup Lookup) Line {
	if !l.DiscountType.Valid() {
		l.DiscountType = TypeNone
	}
	src := SourcesFor(lookup, l.CategoryID, l.ProductID)
	l.DiscountValue = Resolve(l.DiscountType, l.DiscountValue, src)
	l.Amount = Amount(l.Quantity, l.UnitPrice, l.DiscountValue)
	return l
}
