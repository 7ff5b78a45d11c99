// Package store defines the persistence port for normalized expenses.
package store

import (
	"context"

	"spesefx/internal/core"
)

// Ports for outbound adapters.
type (
	Saver interface {
		Save(ctx context.Context, e core.NormalizedExpense) error
	}

	// Fetcher returns every stored record in insertion order.
	Fetcher interface {
		FetchAll(ctx context.Context) ([]core.NormalizedExpense, error)
	}

	Store interface {
		Saver
		Fetcher
	}
)
