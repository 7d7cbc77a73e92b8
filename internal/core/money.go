// Package core holds the ledger domain model: employees, withdrawals, and
// the money handling shared by every layer.
//
// This file contains parsing and formatting of monetary amounts. Amounts are
// shopspring decimals with two-fraction-digit semantics; float64 never enters
// the arithmetic so remaining + withdrawn = monthly_salary holds exactly.
package core

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a decimal string to an exact amount.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and rounds
// half-up on the third fraction digit. Sign prefixes are rejected: callers
// decide whether zero is allowed, negatives never are.
//
// Examples:
//
//	ParseAmount("12.34")  -> 12.34
//	ParseAmount("12,34")  -> 12.34
//	ParseAmount("12.345") -> 12.35 (rounds up)
//	ParseAmount("-5")     -> error
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	// Normalize decimal comma to dot
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return decimal.Zero, ErrInvalidAmount
	}
	for _, r := range s {
		if !unicode.IsDigit(r) && r != '.' {
			return decimal.Zero, ErrInvalidAmount
		}
	}
	if strings.Count(s, ".") > 1 {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return d.Round(2), nil
}

// FormatAmount renders an amount with two fraction digits for display and
// export. Formatting beyond that (currency symbols, separators) belongs to
// the presentation layer.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}
