package services

import "strings"

// normalizeSymbol upper-cases a user-supplied symbol for natural-key
// lookups; symbols are stored upper-case.
func normalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
