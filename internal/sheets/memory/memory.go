package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"spesefx/internal/core"
	"spesefx/internal/sheets"
)

var _ sheets.RecordWriter = (*Writer)(nil)

// Writer is an in-process mirror used when no spreadsheet is configured.
type Writer struct {
	mu    sync.Mutex
	items []core.NormalizedExpense
}

func New() *Writer {
	return &Writer{}
}

// Append stores the record and returns a synthetic row reference.
func (w *Writer) Append(_ context.Context, e core.NormalizedExpense) (string, error) {
	if e.ID == "" {
		return "", errors.New("record has no id")
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.items = append(w.items, e)
	return fmt.Sprintf("mem:%d", len(w.items)), nil
}

// Records returns the appended records in order.
func (w *Writer) Records() []core.NormalizedExpense {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]core.NormalizedExpense(nil), w.items...)
}
