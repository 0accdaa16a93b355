package parsers

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount reads a statement amount. A leading plus is dropped and a
// decimal comma becomes a period. Anything that still does not parse reads
// as zero.
func ParseAmount(raw string) decimal.Decimal {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "+")
	s = strings.ReplaceAll(s, ",", ".")
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// isOutgoing reports whether a raw amount string carries a leading minus
func isOutgoing(raw string) bool {
	return strings.HasPrefix(strings.TrimSpace(raw), "-")
}

// formatBalance renders a balance with two decimals
func formatBalance(raw string) string {
	return ParseAmount(raw).StringFixed(2)
}
