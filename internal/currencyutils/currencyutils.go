// Package currencyutils parses the amount cells of Indian bank statements.
package currencyutils

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	currencyNoise = regexp.MustCompile(`(?i)(₹|rs\.?|inr|\$|€|£)`)
	drCrSuffix    = regexp.MustCompile(`(?i)\s*(cr|dr)\.?$`)
)

// ParseAmount parses an amount column. Blank cells and lone dashes mean the column
// does not apply to the row and yield zero without error. Parenthesised values are negative.
func ParseAmount(amountStr string) (decimal.Decimal, error) {
	s := StandardizeAmount(amountStr)
	if s == "" || s == "-" {
		return decimal.Zero, nil
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSuffix(strings.TrimPrefix(s, "("), ")")
	}

	amount, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to parse amount '%s': %w", amountStr, err)
	}
	if negative {
		amount = amount.Neg()
	}
	return amount, nil
}

// StandardizeAmount strips currency markers, Dr/Cr suffixes, grouping commas
// (both 1,234,567 and 12,34,567 styles) and whitespace.
func StandardizeAmount(amountStr string) string {
	s := strings.ReplaceAll(amountStr, "\u00a0", " ")
	s = strings.TrimSpace(s)
	s = drCrSuffix.ReplaceAllString(s, "")
	s = currencyNoise.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, " ", "")
	return s
}

// FormatAmount renders an amount with two decimals and a rupee sign, for CLI output.
func FormatAmount(amount decimal.Decimal) string {
	if amount.IsNegative() {
		return "-₹" + amount.Abs().StringFixed(2)
	}
	return "₹" + amount.StringFixed(2)
}

// WithinEpsilon reports whether |a-b| <= eps.
func WithinEpsilon(a, b, eps decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(eps)
}
