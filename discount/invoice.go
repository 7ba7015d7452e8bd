package discount

import (
	"github.com/shopspring/decimal"
	"github.com/warp/bizledger/generic"
)

// Invoice is a set of priced lines and their totals.
type Invoice struct {
	Lines         []Line          `json:"lines"`
	Subtotal      decimal.Decimal `json:"subtotal"`       // Σ round2(quantity × unitPrice)
	DiscountTotal decimal.Decimal `json:"discount_total"` // Subtotal − Total
	Total         decimal.Decimal `json:"total"`          // Σ line amounts
}

// PriceInvoice refreshes every line against lookup and sums the rounded
// line amounts.
func PriceInvoice(lines []Line, lookup Lookup) Invoice {
	inv := Invoice{
		Lines:    make([]Line, len(lines)),
		Subtotal: decimal.Zero,
		Total:    decimal.Zero,
	}
	for i, l := range lines {
		priced := Apply(l, Refresh{}, lookup)
		inv.Lines[i] = priced
		inv.Subtotal = inv.Subtotal.Add(Gross(priced.Quantity, priced.UnitPrice))
		inv.Total = inv.Total.Add(priced.Amount)
	}
	inv.DiscountTotal = inv.Subtotal.Sub(inv.Total)
	return inv
}

// SaleItems converts the priced lines into the shape persisted on a sale
// record.
func (inv Invoice) SaleItems() []generic.SaleItem {
	items := make([]generic.SaleItem, len(inv.Lines))
	for i, l := range inv.Lines {
		items[i] = generic.SaleItem{
			ProductID:     l.ProductID,
			Description:   l.Description,
			Quantity:      l.Quantity,
			UnitPrice:     l.UnitPrice,
			DiscountType:  string(l.DiscountType),
			DiscountValue: l.DiscountValue,
			Amount:        l.Amount,
		}
	}
	return items
}
