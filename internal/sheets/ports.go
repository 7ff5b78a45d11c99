package sheets

import (
	"context"

	"spesefx/internal/core"
)

// Ports for outbound adapters.
type (
	// RecordWriter appends one normalized expense to the mirror and returns
	// a reference to the written row.
	RecordWriter interface {
		Append(ctx context.Context, e core.NormalizedExpense) (rowRef string, err error)
	}
)
