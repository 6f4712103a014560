package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hearthledger/hearthledger/internal/budget"
	"github.com/hearthledger/hearthledger/internal/platform/db"
	"github.com/hearthledger/hearthledger/internal/shared"
)

// Repository persists ledger entities.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxLedger exposes the operations that share one transaction with the
// Ready-to-Assign hooks.
type TxLedger interface {
	CategoryType(ctx context.Context, householdID, categoryID uuid.UUID) (budget.CategoryType, error)
	Insert(ctx context.Context, in CreateInput) (Transaction, error)
	GetForUpdate(ctx context.Context, householdID, id uuid.UUID) (Transaction, error)
	Update(ctx context.Context, householdID, id uuid.UUID, in UpdateInput) (Transaction, error)
	Delete(ctx context.Context, householdID, id uuid.UUID) error
	ApplyReadyToAssignDelta(ctx context.Context, householdID uuid.UUID, delta int64) error
	UpdateRecurringNextRun(ctx context.Context, id uuid.UUID, nextRun time.Time) error
}

type txLedger struct {
	tx pgx.Tx
}

// WithTx executes fn within a repeatable-read transaction, retrying
// serialization failures through the shared helper.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxLedger) error) error {
	if r == nil || r.pool == nil {
		return errors.New("ledger: repository not initialised")
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txLedger{tx: tx})
	})
}

const transactionColumns = `id, household_id, category_id, amount, date, memo, recurring_id, created_at, updated_at`

func scanTransaction(row pgx.Row) (Transaction, error) {
	var t Transaction
	err := row.Scan(&t.ID, &t.HouseholdID, &t.CategoryID, &t.Amount, &t.Date, &t.Memo, &t.RecurringID, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

func (l *txLedger) CategoryType(ctx context.Context, householdID, categoryID uuid.UUID) (budget.CategoryType, error) {
	var typ budget.CategoryType
	err := l.tx.QueryRow(ctx, `SELECT type FROM categories WHERE household_id = $1 AND id = $2`,
		householdID, categoryID).Scan(&typ)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", shared.ErrUnknownCategory
	}
	if err != nil {
		return "", err
	}
	return typ, nil
}

func (l *txLedger) Insert(ctx context.Context, in CreateInput) (Transaction, error) {
	return scanTransaction(l.tx.QueryRow(ctx, `INSERT INTO transactions
(household_id, category_id, amount, date, memo, recurring_id)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING `+transactionColumns,
		in.HouseholdID, in.CategoryID, in.Amount, in.Date, in.Memo, in.RecurringID))
}

func (l *txLedger) GetForUpdate(ctx context.Context, householdID, id uuid.UUID) (Transaction, error) {
	t, err := scanTransaction(l.tx.QueryRow(ctx, `SELECT `+transactionColumns+` FROM transactions
WHERE household_id = $1 AND id = $2 FOR UPDATE`, householdID, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Transaction{}, shared.ErrNotFound
	}
	return t, err
}

func (l *txLedger) Update(ctx context.Context, householdID, id uuid.UUID, in UpdateInput) (Transaction, error) {
	t, err := scanTransaction(l.tx.QueryRow(ctx, `UPDATE transactions SET
  category_id = COALESCE($3, category_id),
  amount = COALESCE($4, amount),
  date = COALESCE($5, date),
  memo = COALESCE($6, memo),
  updated_at = now()
WHERE household_id = $1 AND id = $2
RETURNING `+transactionColumns,
		householdID, id, in.CategoryID, in.Amount, in.Date, in.Memo))
	if errors.Is(err, pgx.ErrNoRows) {
		return Transaction{}, shared.ErrNotFound
	}
	return t, err
}

func (l *txLedger) Delete(ctx context.Context, householdID, id uuid.UUID) error {
	tag, err := l.tx.Exec(ctx, `DELETE FROM transactions WHERE household_id = $1 AND id = $2`, householdID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (l *txLedger) ApplyReadyToAssignDelta(ctx context.Context, householdID uuid.UUID, delta int64) error {
	_, err := l.tx.Exec(ctx, `INSERT INTO ready_to_assign (household_id, amount)
VALUES ($1, $2)
ON CONFLICT (household_id)
DO UPDATE SET amount = ready_to_assign.amount + EXCLUDED.amount, updated_at = now()`,
		householdID, delta)
	return err
}

func (l *txLedger) UpdateRecurringNextRun(ctx context.Context, id uuid.UUID, nextRun time.Time) error {
	_, err := l.tx.Exec(ctx, `UPDATE recurring_transactions SET next_run = $2, updated_at = now()
WHERE id = $1`, id, nextRun)
	return err
}

// Get fetches one transaction.
func (r *Repository) Get(ctx context.Context, householdID, id uuid.UUID) (Transaction, error) {
	t, err := scanTransaction(r.pool.QueryRow(ctx, `SELECT `+transactionColumns+` FROM transactions
WHERE household_id = $1 AND id = $2`, householdID, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Transaction{}, shared.ErrNotFound
	}
	return t, err
}

// List returns transactions matching the filter, newest first, plus the
// total count for pagination.
func (r *Repository) List(ctx context.Context, householdID uuid.UUID, filter ListFilter) ([]Transaction, int, error) {
	where := []string{"household_id = $1"}
	args := []any{householdID}
	if filter.CategoryID != nil {
		args = append(args, *filter.CategoryID)
		where = append(where, fmt.Sprintf("category_id = $%d", len(args)))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		where = append(where, fmt.Sprintf("date >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		where = append(where, fmt.Sprintf("date < $%d", len(args)))
	}
	clause := strings.Join(where, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM transactions WHERE `+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	pagination := shared.NewPagination(filter.Page, filter.PerPage, total)
	args = append(args, pagination.PerPage, (pagination.Page-1)*pagination.PerPage)
	query := fmt.Sprintf(`SELECT %s FROM transactions WHERE %s ORDER BY date DESC, created_at DESC LIMIT $%d OFFSET $%d`,
		transactionColumns, clause, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var transactions []Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, 0, err
		}
		transactions = append(transactions, t)
	}
	return transactions, total, rows.Err()
}

// QueryRecords returns engine-shaped records for a household and date
// range, optionally narrowed to one category.
func (r *Repository) QueryRecords(ctx context.Context, householdID uuid.UUID, categoryID *uuid.UUID, from, to time.Time) ([]budget.TransactionRecord, error) {
	args := []any{householdID, from, to}
	query := `SELECT t.category_id, c.type, t.amount, t.date
FROM transactions t
JOIN categories c ON c.id = t.category_id
WHERE t.household_id = $1 AND t.date >= $2 AND t.date < $3`
	if categoryID != nil {
		args = append(args, *categoryID)
		query += fmt.Sprintf(" AND t.category_id = $%d", len(args))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []budget.TransactionRecord
	for rows.Next() {
		var rec budget.TransactionRecord
		if err := rows.Scan(&rec.CategoryID, &rec.Type, &rec.Amount, &rec.Date); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// EarliestActivity returns the date of the household's first transaction,
// or nil if the ledger is empty.
func (r *Repository) EarliestActivity(ctx context.Context, householdID uuid.UUID) (*time.Time, error) {
	var earliest *time.Time
	err := r.pool.QueryRow(ctx, `SELECT MIN(date) FROM transactions WHERE household_id = $1`,
		householdID).Scan(&earliest)
	if err != nil {
		return nil, err
	}
	return earliest, nil
}

const recurringColumns = `id, household_id, category_id, amount, memo, frequency, next_run, active, created_at, updated_at`

func scanRecurring(row pgx.Row) (RecurringTransaction, error) {
	var rt RecurringTransaction
	err := row.Scan(&rt.ID, &rt.HouseholdID, &rt.CategoryID, &rt.Amount, &rt.Memo, &rt.Frequency, &rt.NextRun, &rt.Active, &rt.CreatedAt, &rt.UpdatedAt)
	return rt, err
}

// InsertRecurring creates a recurring template.
func (r *Repository) InsertRecurring(ctx context.Context, rt RecurringTransaction) (RecurringTransaction, error) {
	return scanRecurring(r.pool.QueryRow(ctx, `INSERT INTO recurring_transactions
(household_id, category_id, amount, memo, frequency, next_run, active)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING `+recurringColumns,
		rt.HouseholdID, rt.CategoryID, rt.Amount, rt.Memo, rt.Frequency, rt.NextRun, rt.Active))
}

// ListRecurring returns a household's templates.
func (r *Repository) ListRecurring(ctx context.Context, householdID uuid.UUID) ([]RecurringTransaction, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+recurringColumns+` FROM recurring_transactions
WHERE household_id = $1 ORDER BY next_run`, householdID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var templates []RecurringTransaction
	for rows.Next() {
		rt, err := scanRecurring(rows)
		if err != nil {
			return nil, err
		}
		templates = append(templates, rt)
	}
	return templates, rows.Err()
}

// ListDueRecurring returns every active template due at or before asOf.
func (r *Repository) ListDueRecurring(ctx context.Context, asOf time.Time) ([]RecurringTransaction, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+recurringColumns+` FROM recurring_transactions
WHERE active AND next_run <= $1 ORDER BY next_run`, asOf)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var due []RecurringTransaction
	for rows.Next() {
		rt, err := scanRecurring(rows)
		if err != nil {
			return nil, err
		}
		due = append(due, rt)
	}
	return due, rows.Err()
}

// SetRecurringActive flips a template on or off.
func (r *Repository) SetRecurringActive(ctx context.Context, householdID, id uuid.UUID, active bool) error {
	tag, err := r.pool.Exec(ctx, `UPDATE recurring_transactions SET active = $3, updated_at = now()
WHERE household_id = $1 AND id = $2`, householdID, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}
