package storage

import (
	"context"
	"database/sql"
)

type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

// Expense is a row of the expenses table.
type Expense struct {
	Seq                   int64
	ID                    string
	Amount                string
	Category              string
	ExpenseDate           string
	DisplayCurrencyCode   string
	OriginalCurrencyCode  string
	OriginalAmount        string
	ConversionRateApplied string
	ConversionFailed      bool
	CreatedAt             string
	SyncedAt              sql.NullString
}

const expenseColumns = `seq, id, amount, category, expense_date, display_currency_code,
	original_currency_code, original_amount, conversion_rate_applied, conversion_failed,
	created_at, synced_at`

const createExpense = `INSERT INTO expenses (
	id, amount, category, expense_date, display_currency_code,
	original_currency_code, original_amount, conversion_rate_applied, conversion_failed, created_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

type CreateExpenseParams struct {
	ID                    string
	Amount                string
	Category              string
	ExpenseDate           string
	DisplayCurrencyCode   string
	OriginalCurrencyCode  string
	OriginalAmount        string
	ConversionRateApplied string
	ConversionFailed      bool
	CreatedAt             string
}

func (q *Queries) CreateExpense(ctx context.Context, arg CreateExpenseParams) error {
	_, err := q.db.ExecContext(ctx, createExpense,
		arg.ID,
		arg.Amount,
		arg.Category,
		arg.ExpenseDate,
		arg.DisplayCurrencyCode,
		arg.OriginalCurrencyCode,
		arg.OriginalAmount,
		arg.ConversionRateApplied,
		arg.ConversionFailed,
		arg.CreatedAt,
	)
	return err
}

const listExpenses = `SELECT ` + expenseColumns + ` FROM expenses ORDER BY seq`

func (q *Queries) ListExpenses(ctx context.Context) ([]Expense, error) {
	rows, err := q.db.QueryContext(ctx, listExpenses)
	if err != nil {
		return nil, err
	}
	return scanExpenses(rows)
}

const getPendingSyncExpenses = `SELECT ` + expenseColumns + `
FROM expenses WHERE synced_at IS NULL ORDER BY seq LIMIT ?`

func (q *Queries) GetPendingSyncExpenses(ctx context.Context, limit int64) ([]Expense, error) {
	rows, err := q.db.QueryContext(ctx, getPendingSyncExpenses, limit)
	if err != nil {
		return nil, err
	}
	return scanExpenses(rows)
}

const markExpenseSynced = `UPDATE expenses SET synced_at = ? WHERE id = ?`

func (q *Queries) MarkExpenseSynced(ctx context.Context, syncedAt, id string) (int64, error) {
	res, err := q.db.ExecContext(ctx, markExpenseSynced, syncedAt, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanExpenses(rows *sql.Rows) ([]Expense, error) {
	defer rows.Close()
	var items []Expense
	for rows.Next() {
		var i Expense
		if err := rows.Scan(
			&i.Seq,
			&i.ID,
			&i.Amount,
			&i.Category,
			&i.ExpenseDate,
			&i.DisplayCurrencyCode,
			&i.OriginalCurrencyCode,
			&i.OriginalAmount,
			&i.ConversionRateApplied,
			&i.ConversionFailed,
			&i.CreatedAt,
			&i.SyncedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
