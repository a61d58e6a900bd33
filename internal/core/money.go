// Package core provides amount parsing and formatting utilities.
//
// Form input for credit limits and transaction amounts is parsed leniently:
// anything that is not a number becomes zero instead of being rejected.
package core

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a decimal string to an amount.
//
// It accepts both dot (12.50) and comma (12,50) decimal separators.
// Non-numeric input yields zero.
//
// Examples:
//
//	ParseAmount("12.50") -> 12.50
//	ParseAmount("12,50") -> 12.50
//	ParseAmount("$%$")   -> 0
func ParseAmount(s string) decimal.Decimal {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero
	}
	// Normalize decimal comma to dot
	if !strings.Contains(s, ".") {
		s = strings.ReplaceAll(s, ",", ".")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// ParseLimit converts a credit limit string to an integer. Values that are
// not integers or do not fit in 32 bits yield zero.
func ParseLimit(s string) int32 {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 32)
	if err != nil {
		return 0
	}
	return int32(v)
}

// FormatAmount renders an amount as dollars with two decimals, e.g. "$12.50".
func FormatAmount(d decimal.Decimal) string {
	return "$" + d.StringFixed(2)
}
