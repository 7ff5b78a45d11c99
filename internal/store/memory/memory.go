package memory

import (
	"context"
	"fmt"
	"sync"

	"spesefx/internal/core"
	"spesefx/internal/store"
)

var _ store.Store = (*Store)(nil)

// Store keeps records in insertion order for the lifetime of the process.
type Store struct {
	mu    sync.Mutex
	ids   map[string]struct{}
	items []core.NormalizedExpense
}

func New() *Store {
	return &Store{ids: make(map[string]struct{})}
}

// Save appends the record. IDs must be unique.
func (s *Store) Save(_ context.Context, e core.NormalizedExpense) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ids[e.ID]; ok {
		return fmt.Errorf("expense %s already exists", e.ID)
	}
	s.ids[e.ID] = struct{}{}
	s.items = append(s.items, e)
	return nil
}

// FetchAll returns a copy of the stored records.
func (s *Store) FetchAll(_ context.Context) ([]core.NormalizedExpense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.NormalizedExpense(nil), s.items...), nil
}

// Len returns the number of stored records.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}
