package category

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hearthledger/hearthledger/internal/shared"
)

const uniqueViolation = "23505"

// Repository persists categories.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const categoryColumns = `id, household_id, name, type, parent_id, is_rollover, is_flex_budget, is_archived, created_at, updated_at`

func scanCategory(row pgx.Row) (Category, error) {
	var c Category
	err := row.Scan(&c.ID, &c.HouseholdID, &c.Name, &c.Type, &c.ParentID, &c.IsRollover, &c.IsFlexBudget, &c.IsArchived, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

// List returns every category for a household, parents before children.
func (r *Repository) List(ctx context.Context, householdID uuid.UUID) ([]Category, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+categoryColumns+` FROM categories
WHERE household_id = $1 ORDER BY parent_id NULLS FIRST, name`, householdID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// Get fetches one category.
func (r *Repository) Get(ctx context.Context, householdID, id uuid.UUID) (Category, error) {
	c, err := scanCategory(r.pool.QueryRow(ctx, `SELECT `+categoryColumns+` FROM categories
WHERE household_id = $1 AND id = $2`, householdID, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Category{}, shared.ErrNotFound
	}
	if err != nil {
		return Category{}, err
	}
	return c, nil
}

// Insert creates a category row.
func (r *Repository) Insert(ctx context.Context, in CreateInput) (Category, error) {
	c, err := scanCategory(r.pool.QueryRow(ctx, `INSERT INTO categories
(household_id, name, type, parent_id, is_rollover, is_flex_budget)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING `+categoryColumns,
		in.HouseholdID, in.Name, in.Type, in.ParentID, in.IsRollover, in.IsFlexBudget))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return Category{}, ErrNameTaken
		}
		return Category{}, err
	}
	return c, nil
}

// Update applies a metadata edit and returns the updated row.
func (r *Repository) Update(ctx context.Context, householdID, id uuid.UUID, in UpdateInput) (Category, error) {
	c, err := scanCategory(r.pool.QueryRow(ctx, `UPDATE categories SET
  name = COALESCE($3, name),
  is_rollover = COALESCE($4, is_rollover),
  is_flex_budget = COALESCE($5, is_flex_budget),
  is_archived = COALESCE($6, is_archived),
  updated_at = now()
WHERE household_id = $1 AND id = $2
RETURNING `+categoryColumns,
		householdID, id, in.Name, in.IsRollover, in.IsFlexBudget, in.IsArchived))
	if errors.Is(err, pgx.ErrNoRows) {
		return Category{}, shared.ErrNotFound
	}
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return Category{}, ErrNameTaken
		}
		return Category{}, err
	}
	return c, nil
}

// HasChildren reports whether any category points at id as parent.
func (r *Repository) HasChildren(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM categories WHERE parent_id = $1)`, id).Scan(&exists)
	return exists, err
}

// Delete removes a category row.
func (r *Repository) Delete(ctx context.Context, householdID, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM categories WHERE household_id = $1 AND id = $2`, householdID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// SeedDefaults inserts the starter categories for a new household.
// Safe to retry: conflicts on the unique name are skipped.
func (r *Repository) SeedDefaults(ctx context.Context, householdID uuid.UUID) error {
	for _, def := range DefaultCategories {
		_, err := r.pool.Exec(ctx, `INSERT INTO categories (household_id, name, type, is_rollover)
VALUES ($1, $2, $3, $4)
ON CONFLICT (household_id, name) DO NOTHING`,
			householdID, def.Name, def.Type, def.Rollover)
		if err != nil {
			return err
		}
	}
	return nil
}
