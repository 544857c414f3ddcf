package parser

import (
	"strings"

	"github.com/shopspring/decimal"
)

// amountPattern matches the amount column at the end of a row: optional
// sign, comma-grouped dollars, optional cents. Statements occasionally
// print whole-dollar amounts as "830." with a bare trailing point.
const amountPattern = `-?\d[\d,]*\.?\d{0,2}`

// parseAmount converts a statement amount token to a decimal.
func parseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, " ", "") // non-breaking space
	s = strings.TrimSuffix(s, ".")
	return decimal.NewFromString(s)
}

// collapseSpaces flattens all whitespace runs to single spaces and trims.
func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
