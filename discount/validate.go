package discount

import (
	"strings"

	"github.com/warp/bizledger/generic"
)

// ValidateCategory checks a category before it is saved and returns it
// with the name trimmed and the default discount clamped.
func ValidateCategory(c generic.Category) (generic.Category, error) {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return c, &generic.ValidationError{Field: "name", Message: "category name is required"}
	}
	c.DefaultDiscount = Clamp(c.DefaultDiscount)
	return c, nil
}

// ValidateProduct checks a product before it is saved. A product discount,
// when set, is clamped.
func ValidateProduct(p generic.Product) (generic.Product, error) {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return p, &generic.ValidationError{Field: "name", Message: "product name is required"}
	}
	if p.UnitPrice.IsNegative() {
		return p, &generic.ValidationError{Field: "unit_price", Message: "must not be negative"}
	}
	if p.DefaultDiscount != nil {
		v := Clamp(*p.DefaultDiscount)
		p.DefaultDiscount = &v
	}
	return p, nil
}
