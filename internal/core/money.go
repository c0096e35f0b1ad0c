// Package core provides the till's domain types and money formatting.
//
// Amounts are carried at full precision as decimals and only rounded to a
// currency's decimal places when formatted for display.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// FormatCurrency renders amount in currency c, e.g. "5.00 €". Rounding is
// half away from zero on c.MaxDecimals.
func FormatCurrency(amount decimal.Decimal, c Currency) string {
	s := amount.StringFixed(c.MaxDecimals)
	if c.Symbol == "" {
		return s
	}
	return s + " " + c.Symbol
}

// ParseAmount converts a typed decimal string to a decimal. Both dot and
// comma separators are accepted. Negative and empty values are rejected.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	if s == "" || strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+") {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// Pow10 returns 10^n as a decimal.
func Pow10(n int32) decimal.Decimal {
	return decimal.New(1, n)
}
