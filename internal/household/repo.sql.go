package household

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hearthledger/hearthledger/internal/shared"
)

// Repository persists households.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const householdColumns = `id, name, period_start_day, flex_strict_children, created_at, updated_at`

func scanHousehold(row pgx.Row) (Household, error) {
	var h Household
	err := row.Scan(&h.ID, &h.Name, &h.PeriodStartDay, &h.FlexStrictChildren, &h.CreatedAt, &h.UpdatedAt)
	return h, err
}

// Insert creates a household row.
func (r *Repository) Insert(ctx context.Context, in CreateInput) (Household, error) {
	return scanHousehold(r.pool.QueryRow(ctx, `INSERT INTO households (name, period_start_day, flex_strict_children)
VALUES ($1, $2, $3) RETURNING `+householdColumns, in.Name, in.PeriodStartDay, in.FlexStrictChildren))
}

// Get fetches one household.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (Household, error) {
	h, err := scanHousehold(r.pool.QueryRow(ctx, `SELECT `+householdColumns+` FROM households WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Household{}, shared.ErrNotFound
	}
	return h, err
}

// List returns every household, oldest first.
func (r *Repository) List(ctx context.Context) ([]Household, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+householdColumns+` FROM households ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var households []Household
	for rows.Next() {
		h, err := scanHousehold(rows)
		if err != nil {
			return nil, err
		}
		households = append(households, h)
	}
	return households, rows.Err()
}

// ListIDs returns every household id, for worker fan-out.
func (r *Repository) ListIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `SELECT id FROM households`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Update applies a settings edit and returns the updated row.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, in UpdateInput) (Household, error) {
	h, err := scanHousehold(r.pool.QueryRow(ctx, `UPDATE households SET
  name = COALESCE($2, name),
  period_start_day = COALESCE($3, period_start_day),
  flex_strict_children = COALESCE($4, flex_strict_children),
  updated_at = now()
WHERE id = $1
RETURNING `+householdColumns,
		id, in.Name, in.PeriodStartDay, in.FlexStrictChildren))
	if errors.Is(err, pgx.ErrNoRows) {
		return Household{}, shared.ErrNotFound
	}
	return h, err
}
