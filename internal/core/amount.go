// Package core provides the trip ledger domain types.
//
// This file holds amount handling: the loose coercion applied to values read
// back from storage and the display formatting used by reports and exports.
package core

import (
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// DefaultCurrency is the label printed in front of amounts.
const DefaultCurrency = "RS"

var printer = message.NewPrinter(language.English)

// CoerceAmount turns a stored value into a non-negative whole amount.
//
// Integers, floats (truncated), numeric strings and byte slices are accepted.
// NULL, non-numeric, non-finite and negative values yield 0 instead of an error
// so a single bad cell never breaks a period's totals.
//
// Examples:
//
//	CoerceAmount(int64(120)) -> 120
//	CoerceAmount("45")       -> 45
//	CoerceAmount("12.9")     -> 12
//	CoerceAmount("abc")      -> 0
//	CoerceAmount(nil)        -> 0
func CoerceAmount(v any) int64 {
	var n int64
	switch t := v.(type) {
	case nil:
		return 0
	case int64:
		n = t
	case int:
		n = int64(t)
	case int32:
		n = int64(t)
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return 0
		}
		n = int64(t)
	case float32:
		return CoerceAmount(float64(t))
	case []byte:
		return CoerceAmount(string(t))
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0
		}
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			n = i
			break
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0
		}
		return CoerceAmount(f)
	default:
		return 0
	}
	if n < 0 {
		return 0
	}
	return n
}

// FormatAmount renders n with thousands separators, e.g. "RS 12,500".
func FormatAmount(currency string, n int64) string {
	if currency == "" {
		currency = DefaultCurrency
	}
	return printer.Sprintf("%s %d", currency, n)
}
