package worker

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spesefx/internal/amqp"
	"spesefx/internal/core"
	mem "spesefx/internal/sheets/memory"
	"spesefx/internal/storage"
)

func record(id string) core.NormalizedExpense {
	return core.NormalizedExpense{
		ID:                    id,
		Amount:                decimal.NewFromInt(10),
		Category:              core.Food,
		Date:                  core.NewDate(2024, 3, 1),
		DisplayCurrencyCode:   "USD",
		OriginalCurrencyCode:  "USD",
		OriginalAmount:        decimal.NewFromInt(10),
		ConversionRateApplied: decimal.NewFromInt(1),
		CreatedAt:             time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}

func newRepo(t *testing.T, ids ...string) *storage.SQLiteRepository {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "spese.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	for _, id := range ids {
		require.NoError(t, repo.Save(context.Background(), record(id)))
	}
	return repo
}

// flakyWriter fails Append for the ids in fail.
type flakyWriter struct {
	mu   sync.Mutex
	fail map[string]bool
	rows []string
}

func (w *flakyWriter) Append(_ context.Context, e core.NormalizedExpense) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fail[e.ID] {
		return "", errors.New("quota exceeded")
	}
	w.rows = append(w.rows, e.ID)
	return "row:" + e.ID, nil
}

func TestSyncWorker_ProcessPendingDrainsAllBatches(t *testing.T) {
	repo := newRepo(t, "a", "b", "c", "d", "e")
	writer := mem.New()
	w := NewSyncWorker(repo, writer, 2, nil)

	synced, err := w.ProcessPending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, synced)
	assert.Len(t, writer.Records(), 5)

	pending, err := repo.PendingSync(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, pending)

	synced, err = w.ProcessPending(context.Background())
	require.NoError(t, err)
	assert.Zero(t, synced)
	assert.Len(t, writer.Records(), 5)
}

func TestSyncWorker_FailedRecordStaysPending(t *testing.T) {
	repo := newRepo(t, "a", "b", "c")
	writer := &flakyWriter{fail: map[string]bool{"b": true}}
	w := NewSyncWorker(repo, writer, 2, nil)

	synced, err := w.ProcessPending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, synced, "stops after the batch that failed")
	assert.Equal(t, []string{"a"}, writer.rows)

	writer.mu.Lock()
	writer.fail = nil
	writer.mu.Unlock()

	synced, err = w.ProcessPending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, synced)
	assert.Equal(t, []string{"a", "b", "c"}, writer.rows)
}

func TestSyncWorker_HandleChanged(t *testing.T) {
	repo := newRepo(t, "a")
	writer := mem.New()
	w := NewSyncWorker(repo, writer, 10, nil)

	err := w.HandleChanged(context.Background(), amqp.NewExpensesChangedMessage("proc-1"))
	require.NoError(t, err)
	require.Len(t, writer.Records(), 1)
	assert.Equal(t, "a", writer.Records()[0].ID)
}

type brokenStore struct{}

func (brokenStore) PendingSync(context.Context, int) ([]core.NormalizedExpense, error) {
	return nil, errors.New("database is locked")
}

func (brokenStore) MarkSynced(context.Context, string) error { return nil }

func TestSyncWorker_StoreErrorSurfaces(t *testing.T) {
	w := NewSyncWorker(brokenStore{}, mem.New(), 10, nil)

	err := w.StartupSyncCheck(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database is locked")

	err = w.HandleChanged(context.Background(), amqp.NewExpensesChangedMessage("proc-1"))
	assert.Error(t, err)
}

// slowWriter holds every Append long enough for a second pass to start.
type slowWriter struct {
	mu   sync.Mutex
	rows []string
}

func (w *slowWriter) Append(_ context.Context, e core.NormalizedExpense) (string, error) {
	time.Sleep(20 * time.Millisecond)
	w.mu.Lock()
	defer w.mu.Unlock()
	w.rows = append(w.rows, e.ID)
	return "row:" + e.ID, nil
}

func TestSyncWorker_ConcurrentPassesAppendOnce(t *testing.T) {
	repo := newRepo(t, "a", "b", "c")
	writer := &slowWriter{}
	w := NewSyncWorker(repo, writer, 10, nil)

	var wg sync.WaitGroup
	counts := make([]int, 2)
	for i := range counts {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			n, err := w.ProcessPending(context.Background())
			assert.NoError(t, err)
			counts[i] = n
		}(i)
	}
	wg.Wait()

	assert.Equal(t, []string{"a", "b", "c"}, writer.rows)
	assert.Equal(t, 3, counts[0]+counts[1])

	pending, err := repo.PendingSync(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}
