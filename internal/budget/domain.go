// Package budget implements the envelope budgeting engine: per-period
// category availability, rollover carry-forward, flex pools, and the
// household-wide Ready-to-Assign ledger.
package budget

import (
	"time"

	"github.com/google/uuid"
)

// CategoryType distinguishes income from expense categories.
type CategoryType string

// Category types.
const (
	CategoryTypeIncome  CategoryType = "income"
	CategoryTypeExpense CategoryType = "expense"
)

// Category is the engine's view of a directory category. Amount semantics
// (assigned/available) only apply to expense categories; income categories
// participate in reporting and Ready-to-Assign.
type Category struct {
	ID           uuid.UUID
	HouseholdID  uuid.UUID
	Name         string
	Type         CategoryType
	ParentID     *uuid.UUID
	IsRollover   bool
	IsFlexBudget bool
	IsArchived   bool
}

// Period is a value object describing a billing cycle window [From, To).
// It is derived, never persisted.
type Period struct {
	From time.Time
	To   time.Time
}

// Contains reports whether d falls inside the half-open window.
func (p Period) Contains(d time.Time) bool {
	return !d.Before(p.From) && d.Before(p.To)
}

// Key returns the period-identifying month key: the normalized start date.
func (p Period) Key() time.Time {
	return time.Date(p.From.Year(), p.From.Month(), p.From.Day(), 0, 0, 0, 0, time.UTC)
}

// Assignment is a persisted budget assignment row. Month is the period
// key; the row is unique per (household, category, month).
type Assignment struct {
	HouseholdID uuid.UUID
	CategoryID  uuid.UUID
	Month       time.Time
	Amount      int64
}

// CategoryState is the derived per-period budget state of one category.
// All amounts are minor units.
type CategoryState struct {
	CategoryID uuid.UUID `json:"category_id"`
	Assigned   int64     `json:"assigned"`
	Activity   int64     `json:"activity"`
	Rollover   int64     `json:"rollover"`
	Available  int64     `json:"available"`
}

// FlexGroup is the derived shared-pool state of a flex-budget parent.
type FlexGroup struct {
	ParentID           uuid.UUID `json:"parent_id"`
	ParentAvailable    int64     `json:"parent_available"`
	UnallocatedBalance int64     `json:"unallocated_balance"`
}

// TransactionRecord is the engine's view of a ledger transaction.
type TransactionRecord struct {
	CategoryID uuid.UUID
	Type       CategoryType
	Amount     int64
	Date       time.Time
}

// Node is one entry of the budget view tree: a category with its state,
// optional children (which always directly follow their parent), and the
// flex pool when the category is a flex parent.
type Node struct {
	Category Category      `json:"category"`
	State    CategoryState `json:"state"`
	Children []Node        `json:"children,omitempty"`
	Flex     *FlexGroup    `json:"flex,omitempty"`
}

// Totals are period-scoped report sums. They are distinct from
// Ready-to-Assign, which is lifetime-cumulative; the two must never be
// conflated.
type Totals struct {
	TotalAssigned int64 `json:"total_assigned"`
	TotalActivity int64 `json:"total_activity"`
	TotalIncome   int64 `json:"total_income"`
}

// View is the composed per-period result set consumed by callers.
type View struct {
	Period        Period    `json:"period"`
	Nodes         []Node    `json:"categories"`
	Totals        Totals    `json:"totals"`
	ReadyToAssign int64     `json:"ready_to_assign"`
	HouseholdID   uuid.UUID `json:"household_id"`
}

// Priority marks a category a user wants surfaced in the priority watch
// view. Pure preference, orthogonal to financial state.
type Priority struct {
	UserID     uuid.UUID `json:"user_id"`
	CategoryID uuid.UUID `json:"category_id"`
	CreatedAt  time.Time `json:"created_at"`
}
