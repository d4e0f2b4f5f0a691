// Package core provides the delivery ledger domain: customers, the
// date-keyed ledger, settings and the aggregation rules over them.
//
// This file holds the lenient number policy. Every persisted or user supplied
// numeric field is read through ResolveNumber so that a bad value falls back
// to a default instead of failing.
package core

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// ResolveNumber converts value to a finite float64, returning fallback when
// the value is missing or not numeric.
//
// Strings and JSON numbers accept both dot (12.5) and comma (12,5) decimal
// separators, no exponents, and may be surrounded by spaces. Booleans, NaN
// and magnitudes above MaxNumber are not numbers.
//
// Examples:
//
//	ResolveNumber(2.5, 0)    -> 2.5
//	ResolveNumber("1,5", 0)  -> 1.5
//	ResolveNumber("abc", 60) -> 60
//	ResolveNumber(nil, 1)    -> 1
func ResolveNumber(value any, fallback float64) float64 {
	var f float64
	switch v := value.(type) {
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		f = float64(v)
	case int64:
		f = float64(v)
	case json.Number:
		parsed, ok := ParseDecimal(v.String())
		if !ok {
			return fallback
		}
		f = parsed
	case string:
		parsed, ok := ParseDecimal(v)
		if !ok {
			return fallback
		}
		f = parsed
	default:
		return fallback
	}
	if math.IsNaN(f) || math.Abs(f) > MaxNumber {
		return fallback
	}
	return f
}

// MaxNumber bounds every resolved quantity and price, so that products and
// sums over a ledger stay finite.
const MaxNumber = 1e12

// ParseDecimal parses a signed decimal number written with a dot or comma
// separator. It rejects exponents, hex and thousands separators.
func ParseDecimal(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	s = strings.ReplaceAll(s, ",", ".")
	body := strings.TrimLeft(s, "+-")
	if len(s)-len(body) > 1 || body == "" || strings.Count(body, ".") > 1 || body == "." {
		return 0, false
	}
	for _, r := range body {
		if (r < '0' || r > '9') && r != '.' {
			return 0, false
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// ResolvePrice applies the price fallback chain for one delivery: the
// customer's own price, then the settings default, then DefaultMilkPrice.
func ResolvePrice(c Customer, s Settings) float64 {
	if c.MilkPrice > 0 {
		return c.MilkPrice
	}
	if s.DefaultMilkPrice > 0 {
		return s.DefaultMilkPrice
	}
	return DefaultMilkPrice
}
