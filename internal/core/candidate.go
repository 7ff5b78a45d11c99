package core

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Field identifies one settable field of a CandidateExpense.
type Field string

const (
	FieldAmount   Field = "amount"
	FieldCategory Field = "category"
	FieldDate     Field = "date"
	FieldCurrency Field = "currencyCode"
)

// Fields returns the closed set of candidate fields.
func Fields() []Field {
	return []Field{FieldAmount, FieldCategory, FieldDate, FieldCurrency}
}

// CandidateBuilder assembles a CandidateExpense field by field, typically from
// form input keyed by field name.
type CandidateBuilder struct {
	c CandidateExpense
}

func NewCandidateBuilder() *CandidateBuilder {
	return &CandidateBuilder{}
}

// Set parses raw and assigns it to field. Blank values clear the field so the
// validator reports it as missing.
func (b *CandidateBuilder) Set(field Field, raw string) error {
	raw = strings.TrimSpace(raw)
	switch field {
	case FieldAmount:
		if raw == "" {
			b.c.Amount = decimal.Zero
			return nil
		}
		amount, err := ParseAmount(raw)
		if err != nil {
			return fmt.Errorf("%s: %w", field, err)
		}
		return b.SetAmount(amount)
	case FieldCategory:
		if raw == "" {
			b.c.Category = ""
			return nil
		}
		c, err := ParseCategory(raw)
		if err != nil {
			return fmt.Errorf("%s: %w", field, err)
		}
		return b.SetCategory(c)
	case FieldDate:
		if raw == "" {
			b.c.Date = Date{}
			return nil
		}
		d, err := ParseDate(raw)
		if err != nil {
			return fmt.Errorf("%s: %w", field, err)
		}
		return b.SetDate(d)
	case FieldCurrency:
		return b.SetCurrency(raw)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
}

func (b *CandidateBuilder) SetAmount(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return ErrInvalidAmount
	}
	b.c.Amount = amount
	return nil
}

func (b *CandidateBuilder) SetCategory(c Category) error {
	if !c.Valid() {
		return fmt.Errorf("unknown category %q", c)
	}
	b.c.Category = c
	return nil
}

func (b *CandidateBuilder) SetDate(d Date) error {
	b.c.Date = d
	return nil
}

func (b *CandidateBuilder) SetCurrency(code string) error {
	b.c.CurrencyCode = code
	return nil
}

// Candidate returns a copy of the expense built so far.
func (b *CandidateBuilder) Candidate() CandidateExpense {
	return b.c
}
