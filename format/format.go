// Package format renders amounts and dates for display. Nothing here feeds
// back into stored values.
package format

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Currency formats amounts with a locale's digit grouping and a symbol.
type Currency struct {
	Symbol  string
	printer *message.Printer
	point   string
}

// NewCurrency returns a formatter for the BCP 47 locale tag. Unknown tags
// fall back to en-IN.
func NewCurrency(locale, symbol string) Currency {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.MustParse("en-IN")
	}
	p := message.NewPrinter(tag)
	return Currency{Symbol: symbol, printer: p, point: decimalPoint(p)}
}

// decimalPoint is whatever the locale prints between 1 and 5 in 1.5.
func decimalPoint(p *message.Printer) string {
	s := p.Sprint(number.Decimal(1.5, number.Scale(1)))
	return strings.TrimSuffix(strings.TrimPrefix(s, "1"), "5")
}

// Rupee is the default formatter: Indian grouping, ₹ symbol.
var Rupee = NewCurrency("en-IN", "₹")

// Format renders amount with two decimals, e.g. ₹1,23,456.50 or -₹400.00.
// The whole and fractional parts are printed separately so no digits are
// lost to float conversion.
func (c Currency) Format(amount decimal.Decimal) string {
	p, point := c.printer, c.point
	if p == nil {
		p = message.NewPrinter(language.MustParse("en-IN"))
		point = "."
	}
	sign := ""
	if amount.IsNegative() {
		sign = "-"
		amount = amount.Neg()
	}
	amount = amount.Round(2)
	whole := amount.Truncate(0)
	paise := amount.Sub(whole).Shift(2).IntPart()

	digits := whole.String()
	if w := whole.BigInt(); w.IsInt64() {
		digits = p.Sprint(number.Decimal(w.Int64()))
	}
	return fmt.Sprintf("%s%s%s%s%02d", sign, c.Symbol, digits, point, paise)
}

// DateLayout is the display layout for ledger dates.
const DateLayout = "02 Jan 2006"

// Date renders t for display. The zero time renders as "-".
func Date(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(DateLayout)
}
