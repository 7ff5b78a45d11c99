package core

import "strings"

// ValidCandidate is a CandidateExpense that passed validation. Its currency
// code is trimmed and upper-cased.
type ValidCandidate struct {
	CandidateExpense
}

// Validator checks candidates for completeness before any rate lookup.
type Validator struct{}

func (Validator) Validate(c CandidateExpense) (ValidCandidate, error) {
	code := NormalizeCurrencyCode(c.CurrencyCode)
	if code == "" {
		return ValidCandidate{}, &ValidationError{Kind: MissingCurrency, Field: FieldCurrency}
	}
	if !IsCurrencyCode(code) {
		return ValidCandidate{}, &ValidationError{Kind: InvalidCurrency, Field: FieldCurrency}
	}
	if !c.Amount.IsPositive() {
		return ValidCandidate{}, &ValidationError{Kind: MissingField, Field: FieldAmount}
	}
	if !c.Category.Valid() {
		return ValidCandidate{}, &ValidationError{Kind: MissingField, Field: FieldCategory}
	}
	if c.Date.IsEmpty() {
		return ValidCandidate{}, &ValidationError{Kind: MissingField, Field: FieldDate}
	}

	c.CurrencyCode = code
	return ValidCandidate{CandidateExpense: c}, nil
}

// NormalizeCurrencyCode trims and upper-cases a currency code.
func NormalizeCurrencyCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
