package generic

import (
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Hundred is the percentage base.
var Hundred = decimal.NewFromInt(100)

// Round2 rounds half away from zero to two decimal places.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// MustParseDecimal parses s, returning zero on failure.
func MustParseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero
	}
	return d
}

// DecimalFromFloat converts f, mapping NaN and ±Inf to zero.
func DecimalFromFloat(f float64) decimal.Decimal {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(f)
}

// ParseAmount reads user-entered numeric text. Anything that is not a
// finite number becomes zero; amounts are never rejected.
func ParseAmount(s string) decimal.Decimal {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return decimal.Zero
	}
	return DecimalFromFloat(f)
}
