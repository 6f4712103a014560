package budget

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hearthledger/hearthledger/internal/platform/db"
)

// PGRepository persists assignments, the Ready-to-Assign ledger, and
// priority markers in PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

type txRepository struct {
	tx pgx.Tx
}

// WithTx executes fn within a repeatable-read transaction, retrying
// serialization failures through the shared helper.
func (r *PGRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil || r.pool == nil {
		return errors.New("budget: repository not initialised")
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

// AssignmentForUpdate locks the assignment row and returns the stored
// amount, or 0 when no row exists yet. The delta handed to the
// Ready-to-Assign ledger must come from this value, never from a
// client-cached previous amount.
func (r *txRepository) AssignmentForUpdate(ctx context.Context, householdID, categoryID uuid.UUID, month time.Time) (int64, error) {
	var amount int64
	err := r.tx.QueryRow(ctx, `SELECT assigned_amount FROM budget_assignments
WHERE household_id = $1 AND category_id = $2 AND month = $3 FOR UPDATE`,
		householdID, categoryID, month).Scan(&amount)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return amount, nil
}

// UpsertAssignment overwrites the assignment amount; writes never
// accumulate.
func (r *txRepository) UpsertAssignment(ctx context.Context, householdID, categoryID uuid.UUID, month time.Time, amount int64) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO budget_assignments (household_id, category_id, month, assigned_amount)
VALUES ($1, $2, $3, $4)
ON CONFLICT (household_id, category_id, month)
DO UPDATE SET assigned_amount = EXCLUDED.assigned_amount, updated_at = now()`,
		householdID, categoryID, month, amount)
	return err
}

// ApplyReadyToAssignDelta adjusts the household's running unassigned
// balance inside the surrounding transaction.
func (r *txRepository) ApplyReadyToAssignDelta(ctx context.Context, householdID uuid.UUID, delta int64) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO ready_to_assign (household_id, amount)
VALUES ($1, $2)
ON CONFLICT (household_id)
DO UPDATE SET amount = ready_to_assign.amount + EXCLUDED.amount, updated_at = now()`,
		householdID, delta)
	return err
}

// Assignments returns the assigned amount per category for one month key.
func (r *PGRepository) Assignments(ctx context.Context, householdID uuid.UUID, month time.Time) (map[uuid.UUID]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT category_id, assigned_amount FROM budget_assignments
WHERE household_id = $1 AND month = $2`, householdID, month)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	assignments := make(map[uuid.UUID]int64)
	for rows.Next() {
		var categoryID uuid.UUID
		var amount int64
		if err := rows.Scan(&categoryID, &amount); err != nil {
			return nil, err
		}
		assignments[categoryID] = amount
	}
	return assignments, rows.Err()
}

// EarliestAssignmentMonth returns the first month any assignment was
// written for the household, or nil when none exist.
func (r *PGRepository) EarliestAssignmentMonth(ctx context.Context, householdID uuid.UUID) (*time.Time, error) {
	var month *time.Time
	err := r.pool.QueryRow(ctx, `SELECT MIN(month) FROM budget_assignments WHERE household_id = $1`,
		householdID).Scan(&month)
	if err != nil {
		return nil, err
	}
	return month, nil
}

// ReadyToAssign reads the incrementally maintained balance. Households
// with no writes yet report zero.
func (r *PGRepository) ReadyToAssign(ctx context.Context, householdID uuid.UUID) (int64, error) {
	var amount int64
	err := r.pool.QueryRow(ctx, `SELECT amount FROM ready_to_assign WHERE household_id = $1`,
		householdID).Scan(&amount)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return amount, nil
}

// DeriveReadyToAssign recomputes the balance from source data: all income
// transactions ever recorded minus all assignments ever written. This is
// the auditable reconciliation path, kept off the hot path.
func (r *PGRepository) DeriveReadyToAssign(ctx context.Context, householdID uuid.UUID) (int64, error) {
	var derived int64
	err := r.pool.QueryRow(ctx, `SELECT
  COALESCE((SELECT SUM(t.amount) FROM transactions t
    JOIN categories c ON c.id = t.category_id
    WHERE t.household_id = $1 AND c.type = 'income'), 0)
- COALESCE((SELECT SUM(a.assigned_amount) FROM budget_assignments a
    WHERE a.household_id = $1), 0)`,
		householdID).Scan(&derived)
	if err != nil {
		return 0, err
	}
	return derived, nil
}

// SetReadyToAssign overwrites the stored balance (repair path).
func (r *PGRepository) SetReadyToAssign(ctx context.Context, householdID uuid.UUID, amount int64) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO ready_to_assign (household_id, amount)
VALUES ($1, $2)
ON CONFLICT (household_id)
DO UPDATE SET amount = EXCLUDED.amount, updated_at = now()`,
		householdID, amount)
	return err
}

// ListPriorities returns the user's priority markers, newest first.
func (r *PGRepository) ListPriorities(ctx context.Context, userID uuid.UUID) ([]Priority, error) {
	rows, err := r.pool.Query(ctx, `SELECT user_id, category_id, created_at FROM budget_priorities
WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var priorities []Priority
	for rows.Next() {
		var p Priority
		if err := rows.Scan(&p.UserID, &p.CategoryID, &p.CreatedAt); err != nil {
			return nil, err
		}
		priorities = append(priorities, p)
	}
	return priorities, rows.Err()
}

// PutPriority marks a category; marking twice is a no-op.
func (r *PGRepository) PutPriority(ctx context.Context, userID, categoryID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO budget_priorities (user_id, category_id)
VALUES ($1, $2) ON CONFLICT (user_id, category_id) DO NOTHING`, userID, categoryID)
	return err
}

// DeletePriority removes a marker.
func (r *PGRepository) DeletePriority(ctx context.Context, userID, categoryID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM budget_priorities WHERE user_id = $1 AND category_id = $2`,
		userID, categoryID)
	return err
}
