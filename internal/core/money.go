// Package core provides money parsing and handling utilities.
//
// Amounts and rates are decimal.Decimal values; nothing here goes through
// float64, so a normalized amount is exactly amount*rate rounded to the
// currency's minor units.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// CurrencyOption is a currency offered to submitters.
type CurrencyOption struct {
	Code  string `json:"code"`
	Label string `json:"label"`
}

var currencyOptions = []CurrencyOption{
	{Code: "USD", Label: "US Dollar (USD)"},
	{Code: "EUR", Label: "Euro (EUR)"},
	{Code: "GBP", Label: "British Pound (GBP)"},
	{Code: "TRY", Label: "Turkish Lira (TRY)"},
	{Code: "CAD", Label: "Canadian Dollar (CAD)"},
	{Code: "JPY", Label: "Japanese Yen (JPY)"},
}

// ISO-4217 exponents that differ from the default of 2.
var minorUnits = map[string]int32{
	"BIF": 0, "CLP": 0, "DJF": 0, "GNF": 0, "ISK": 0, "JPY": 0, "KMF": 0, "KRW": 0,
	"PYG": 0, "RWF": 0, "UGX": 0, "VND": 0, "VUV": 0, "XAF": 0, "XOF": 0, "XPF": 0,
	"BHD": 3, "IQD": 3, "JOD": 3, "KWD": 3, "LYD": 3, "OMR": 3, "TND": 3,
}

// CurrencyOptions returns the currencies offered for selection.
func CurrencyOptions() []CurrencyOption {
	return append([]CurrencyOption(nil), currencyOptions...)
}

// IsCurrencyCode reports whether code looks like an ISO-4217 alphabetic code.
func IsCurrencyCode(code string) bool {
	if len(code) != 3 {
		return false
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

// MinorUnits returns the number of decimal places used by a currency.
func MinorUnits(code string) int32 {
	if n, ok := minorUnits[NormalizeCurrencyCode(code)]; ok {
		return n
	}
	return 2
}

// RoundTo rounds half away from zero to the currency's minor units.
func RoundTo(amount decimal.Decimal, code string) decimal.Decimal {
	return amount.Round(MinorUnits(code))
}

// ParseAmount parses a positive decimal amount.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators. Signs,
// thousands separators and exponents are rejected.
//
// Examples:
//
//	ParseAmount("12.34") -> 12.34, nil
//	ParseAmount("12,34") -> 12.34, nil
//	ParseAmount("-1")    -> 0, ErrInvalidAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.Count(s, ".") > 1 {
		return decimal.Zero, ErrInvalidAmount
	}
	for _, r := range s {
		if (r < '0' || r > '9') && r != '.' {
			return decimal.Zero, ErrInvalidAmount
		}
	}
	d, err := decimal.NewFromString(s)
	if err != nil || !d.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// FormatAmount renders a record's amount with its display currency, e.g.
// "110.00 USD". Records whose conversion failed carry an "(unconverted)" suffix.
func FormatAmount(e NormalizedExpense) string {
	s := e.Amount.StringFixed(MinorUnits(e.DisplayCurrencyCode)) + " " + e.DisplayCurrencyCode
	if e.ConversionFailed {
		s += " (unconverted)"
	}
	return s
}
