package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Food     Category = "Food"
	Travel   Category = "Travel"
	Shopping Category = "Shopping"
	Bills    Category = "Bills"
)

const dateLayout = "2006-01-02"

type (
	Category string

	Date struct {
		time.Time
	}

	// CandidateExpense is what a submitter hands to the normalizer. A zero field
	// means the submitter has not provided it yet.
	CandidateExpense struct {
		Amount       decimal.Decimal
		Category     Category
		Date         Date
		CurrencyCode string
	}

	// ConversionRate converts an amount in CurrencyCode into the reference currency.
	ConversionRate struct {
		CurrencyCode string
		Rate         decimal.Decimal
	}

	// NormalizedExpense is the persisted record. Amount is denominated in
	// DisplayCurrencyCode, which is the reference currency unless the conversion
	// failed.
	NormalizedExpense struct {
		ID                    string
		Amount                decimal.Decimal
		Category              Category
		Date                  Date
		DisplayCurrencyCode   string
		OriginalCurrencyCode  string
		OriginalAmount        decimal.Decimal
		ConversionRateApplied decimal.Decimal
		ConversionFailed      bool
		CreatedAt             time.Time
	}
)

// Categories returns the selectable categories in display order.
func Categories() []Category {
	return []Category{Food, Travel, Shopping, Bills}
}

func (c Category) Valid() bool {
	switch c {
	case Food, Travel, Shopping, Bills:
		return true
	default:
		return false
	}
}

func (c Category) String() string {
	return string(c)
}

// ParseCategory matches a category name case-insensitively.
func ParseCategory(s string) (Category, error) {
	s = strings.TrimSpace(s)
	for _, c := range Categories() {
		if strings.EqualFold(s, string(c)) {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown category %q", s)
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses an ISO calendar date (2006-01-02).
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return Date{Time: t}, nil
}

// IsEmpty returns true if the date was never set
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

// Converted reports whether Amount is expressed in the reference currency.
func (e NormalizedExpense) Converted() bool {
	return !e.ConversionFailed
}
