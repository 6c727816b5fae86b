package utils

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseCommaDecimal parses amounts written with ',' as the decimal separator
// ("1234,56", "1.234,56", " 10 "). Thousands dots are dropped only when a
// comma is present, so "12.5" still parses as twelve and a half.
func ParseCommaDecimal(s string) (decimal.Decimal, error) {
	clean := strings.TrimSpace(s)
	clean = strings.TrimPrefix(clean, "R$")
	clean = strings.TrimSpace(clean)
	if clean == "" {
		return decimal.Zero, Validationf("empty amount")
	}
	if strings.Contains(clean, ",") {
		clean = strings.ReplaceAll(clean, ".", "")
		clean = strings.Replace(clean, ",", ".", 1)
	}
	val, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Zero, Validationf("invalid amount %q", s)
	}
	return val, nil
}

// FormatCurrency renders d with exactly two fractional digits, ',' as the
// decimal mark and '.' grouping thousands (pt-BR).
func FormatCurrency(d decimal.Decimal) string {
	fixed := d.StringFixed(2)
	neg := strings.HasPrefix(fixed, "-")
	fixed = strings.TrimPrefix(fixed, "-")
	intPart, frac, _ := strings.Cut(fixed, ".")

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	out := b.String() + "," + frac
	if neg {
		out = "-" + out
	}
	return out
}
