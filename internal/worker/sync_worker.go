package worker

import (
	"context"
	"fmt"
	"sync"

	"spesefx/internal/amqp"
	"spesefx/internal/core"
	"spesefx/internal/log"
	"spesefx/internal/sheets"
)

// PendingStore is the part of the SQLite repository the mirror needs.
type PendingStore interface {
	PendingSync(ctx context.Context, limit int) ([]core.NormalizedExpense, error)
	MarkSynced(ctx context.Context, id string) error
}

// SyncWorker copies records that have not been mirrored yet to a sheet.
type SyncWorker struct {
	// mu serializes passes; the AMQP consumer and the ticker both trigger them.
	mu sync.Mutex

	store     PendingStore
	sheets    sheets.RecordWriter
	batchSize int
	logger    *log.Logger
}

func NewSyncWorker(store PendingStore, sheets sheets.RecordWriter, batchSize int, logger *log.Logger) *SyncWorker {
	if batchSize < 1 {
		batchSize = 10
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &SyncWorker{
		store:     store,
		sheets:    sheets,
		batchSize: batchSize,
		logger:    logger.WithComponent(log.ComponentWorker),
	}
}

// HandleChanged processes a change notification from AMQP. The message only
// says that something changed, so the worker drains the pending queue.
func (w *SyncWorker) HandleChanged(ctx context.Context, msg *amqp.ExpensesChangedMessage) error {
	w.logger.DebugContext(ctx, "Processing expenses changed message",
		"origin", msg.Origin,
		"timestamp", msg.Timestamp)

	_, err := w.ProcessPending(ctx)
	return err
}

// ProcessPending mirrors pending records batch by batch. It stops at the
// first batch that had a failure so a broken record is retried on the next
// call instead of in a tight loop. Returns the number of records mirrored.
// Concurrent calls run one after the other.
func (w *SyncWorker) ProcessPending(ctx context.Context) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	synced := 0
	for {
		pending, err := w.store.PendingSync(ctx, w.batchSize)
		if err != nil {
			return synced, fmt.Errorf("get pending expenses: %w", err)
		}
		if len(pending) == 0 {
			return synced, nil
		}

		w.logger.InfoContext(ctx, "Processing pending expenses", log.FieldRecordCount, len(pending))

		failures := 0
		for _, rec := range pending {
			if err := ctx.Err(); err != nil {
				return synced, err
			}
			if err := w.syncRecord(ctx, rec); err != nil {
				w.logger.ErrorContext(ctx, "Failed to sync expense",
					log.FieldExpenseID, rec.ID,
					log.FieldError, err)
				failures++
				continue
			}
			synced++
		}

		if failures > 0 || len(pending) < w.batchSize {
			return synced, nil
		}
	}
}

// StartupSyncCheck mirrors whatever was saved while the worker was down.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	synced, err := w.ProcessPending(ctx)
	if err != nil {
		return fmt.Errorf("startup sync check: %w", err)
	}
	if synced == 0 {
		w.logger.InfoContext(ctx, "No pending expenses found on startup")
		return nil
	}
	w.logger.InfoContext(ctx, "Startup sync completed", log.FieldRecordCount, synced)
	return nil
}

func (w *SyncWorker) syncRecord(ctx context.Context, rec core.NormalizedExpense) error {
	ref, err := w.sheets.Append(ctx, rec)
	if err != nil {
		return fmt.Errorf("append to sheets: %w", err)
	}

	// A failure here means the row is appended again on the next pass.
	if err := w.store.MarkSynced(ctx, rec.ID); err != nil {
		return fmt.Errorf("mark synced: %w", err)
	}

	w.logger.InfoContext(ctx, "Successfully synced expense",
		log.FieldExpenseID, rec.ID,
		"sheets_ref", ref)
	return nil
}
