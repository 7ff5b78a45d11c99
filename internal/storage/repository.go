package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	"spesefx/internal/core"
	"spesefx/internal/log"
	"spesefx/internal/store"

	_ "modernc.org/sqlite"
)

var _ store.Store = (*SQLiteRepository)(nil)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	logger  *log.Logger
}

func NewSQLiteRepository(dbPath string, logger *log.Logger) (*SQLiteRepository, error) {
	if logger == nil {
		logger = log.Discard()
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite serializes writers anyway; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
		logger:  logger.WithComponent(log.ComponentStorage),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Save implements store.Saver
func (r *SQLiteRepository) Save(ctx context.Context, e core.NormalizedExpense) error {
	err := r.queries.CreateExpense(ctx, CreateExpenseParams{
		ID:                    e.ID,
		Amount:                e.Amount.String(),
		Category:              string(e.Category),
		ExpenseDate:           e.Date.String(),
		DisplayCurrencyCode:   e.DisplayCurrencyCode,
		OriginalCurrencyCode:  e.OriginalCurrencyCode,
		OriginalAmount:        e.OriginalAmount.String(),
		ConversionRateApplied: e.ConversionRateApplied.String(),
		ConversionFailed:      e.ConversionFailed,
		CreatedAt:             e.CreatedAt.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("create expense: %w", err)
	}

	r.logger.DebugContext(ctx, "Expense saved to SQLite", log.FieldExpenseID, e.ID)
	return nil
}

// FetchAll implements store.Fetcher
func (r *SQLiteRepository) FetchAll(ctx context.Context) ([]core.NormalizedExpense, error) {
	rows, err := r.queries.ListExpenses(ctx)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	return toRecords(rows)
}

// PendingSync returns up to limit records not yet mirrored, oldest first.
func (r *SQLiteRepository) PendingSync(ctx context.Context, limit int) ([]core.NormalizedExpense, error) {
	rows, err := r.queries.GetPendingSyncExpenses(ctx, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("get pending sync expenses: %w", err)
	}
	return toRecords(rows)
}

// MarkSynced marks an expense as successfully mirrored
func (r *SQLiteRepository) MarkSynced(ctx context.Context, id string) error {
	n, err := r.queries.MarkExpenseSynced(ctx, time.Now().UTC().Format(time.RFC3339Nano), id)
	if err != nil {
		return fmt.Errorf("mark expense synced: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("mark expense synced: expense %s not found", id)
	}

	r.logger.InfoContext(ctx, "Expense marked as synced", log.FieldExpenseID, id)
	return nil
}

func toRecords(rows []Expense) ([]core.NormalizedExpense, error) {
	out := make([]core.NormalizedExpense, 0, len(rows))
	for _, row := range rows {
		rec, err := toRecord(row)
		if err != nil {
			return nil, fmt.Errorf("expense %s: %w", row.ID, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func toRecord(row Expense) (core.NormalizedExpense, error) {
	amount, err := decimal.NewFromString(row.Amount)
	if err != nil {
		return core.NormalizedExpense{}, fmt.Errorf("amount: %w", err)
	}
	original, err := decimal.NewFromString(row.OriginalAmount)
	if err != nil {
		return core.NormalizedExpense{}, fmt.Errorf("original amount: %w", err)
	}
	rate, err := decimal.NewFromString(row.ConversionRateApplied)
	if err != nil {
		return core.NormalizedExpense{}, fmt.Errorf("rate: %w", err)
	}
	date, err := core.ParseDate(row.ExpenseDate)
	if err != nil {
		return core.NormalizedExpense{}, err
	}
	createdAt, err := time.Parse(time.RFC3339Nano, row.CreatedAt)
	if err != nil {
		return core.NormalizedExpense{}, fmt.Errorf("created at: %w", err)
	}

	return core.NormalizedExpense{
		ID:                    row.ID,
		Amount:                amount,
		Category:              core.Category(row.Category),
		Date:                  date,
		DisplayCurrencyCode:   row.DisplayCurrencyCode,
		OriginalCurrencyCode:  row.OriginalCurrencyCode,
		OriginalAmount:        original,
		ConversionRateApplied: rate,
		ConversionFailed:      row.ConversionFailed,
		CreatedAt:             createdAt,
	}, nil
}
