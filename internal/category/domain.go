// Package category implements the household category directory: a
// two-level tree of income and expense categories with budgeting flags.
package category

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/hearthledger/hearthledger/internal/budget"
)

// Category is a persisted directory entry. Nesting is a single level: a
// category has at most one parent and a parent never has a parent.
type Category struct {
	ID           uuid.UUID           `json:"id"`
	HouseholdID  uuid.UUID           `json:"household_id"`
	Name         string              `json:"name"`
	Type         budget.CategoryType `json:"type"`
	ParentID     *uuid.UUID          `json:"parent_id,omitempty"`
	IsRollover   bool                `json:"is_rollover"`
	IsFlexBudget bool                `json:"is_flex_budget"`
	IsArchived   bool                `json:"is_archived"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at"`
}

// Engine converts to the budgeting engine's category view.
func (c Category) Engine() budget.Category {
	return budget.Category{
		ID:           c.ID,
		HouseholdID:  c.HouseholdID,
		Name:         c.Name,
		Type:         c.Type,
		ParentID:     c.ParentID,
		IsRollover:   c.IsRollover,
		IsFlexBudget: c.IsFlexBudget,
		IsArchived:   c.IsArchived,
	}
}

// Domain errors.
var (
	ErrEmptyName     = errors.New("category: name must not be empty")
	ErrNameTaken     = errors.New("category: name already in use")
	ErrDeepNesting   = errors.New("category: parent must be a top-level category")
	ErrParentTypeMix = errors.New("category: parent and child types must match")
	ErrHasChildren   = errors.New("category: cannot delete a category with children")
)

// CreateInput carries a category creation request.
type CreateInput struct {
	HouseholdID  uuid.UUID
	Name         string
	Type         budget.CategoryType
	ParentID     *uuid.UUID
	IsRollover   bool
	IsFlexBudget bool
}

// UpdateInput carries a metadata edit. Nil pointers leave the field
// untouched. Toggling IsRollover takes effect prospectively only; the
// engine recomputes rollovers from the chain, so history is untouched.
type UpdateInput struct {
	Name         *string
	IsRollover   *bool
	IsFlexBudget *bool
	IsArchived   *bool
}

// DefaultCategories seeds a fresh household with a usable starter set.
var DefaultCategories = []struct {
	Name     string
	Type     budget.CategoryType
	Rollover bool
}{
	{Name: "Salary", Type: budget.CategoryTypeIncome},
	{Name: "Other Income", Type: budget.CategoryTypeIncome},
	{Name: "Groceries", Type: budget.CategoryTypeExpense},
	{Name: "Housing", Type: budget.CategoryTypeExpense},
	{Name: "Transport", Type: budget.CategoryTypeExpense},
	{Name: "Utilities", Type: budget.CategoryTypeExpense},
	{Name: "Savings", Type: budget.CategoryTypeExpense, Rollover: true},
}
