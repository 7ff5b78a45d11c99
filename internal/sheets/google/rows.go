package google

import (
	"time"

	"spesefx/internal/core"
)

// lastColumn is the column of the final field in recordRow.
const lastColumn = "J"

func headerRow() []any {
	return []any{
		"ID", "Date", "Category", "Amount", "Currency",
		"Original Amount", "Original Currency", "Rate", "Unconverted", "Created At",
	}
}

// recordRow lays a record out in headerRow order. Amounts are written at the
// precision of their currency.
func recordRow(e core.NormalizedExpense) []any {
	return []any{
		e.ID,
		e.Date.String(),
		e.Category.String(),
		e.Amount.StringFixed(core.MinorUnits(e.DisplayCurrencyCode)),
		e.DisplayCurrencyCode,
		e.OriginalAmount.StringFixed(core.MinorUnits(e.OriginalCurrencyCode)),
		e.OriginalCurrencyCode,
		e.ConversionRateApplied.String(),
		e.ConversionFailed,
		e.CreatedAt.UTC().Format(time.RFC3339),
	}
}
