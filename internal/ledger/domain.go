// Package ledger implements the household transaction ledger and the
// recurring-transaction templates instanced by the worker. Income writes
// feed the budgeting engine's Ready-to-Assign balance through change
// hooks that run inside the same transaction as the write.
package ledger

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Transaction is a posted ledger entry. A transaction always references
// a leaf category. Amounts are minor units; expense amounts are stored
// as spent magnitudes, income amounts as earned magnitudes.
type Transaction struct {
	ID          uuid.UUID  `json:"id"`
	HouseholdID uuid.UUID  `json:"household_id"`
	CategoryID  uuid.UUID  `json:"category_id"`
	Amount      int64      `json:"amount"`
	Date        time.Time  `json:"date"`
	Memo        string     `json:"memo,omitempty"`
	RecurringID *uuid.UUID `json:"recurring_id,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Recurring frequencies.
const (
	FrequencyWeekly  = "weekly"
	FrequencyMonthly = "monthly"
)

// RecurringTransaction is a template the worker materializes into real
// transactions when NextRun comes due.
type RecurringTransaction struct {
	ID          uuid.UUID `json:"id"`
	HouseholdID uuid.UUID `json:"household_id"`
	CategoryID  uuid.UUID `json:"category_id"`
	Amount      int64     `json:"amount"`
	Memo        string    `json:"memo,omitempty"`
	Frequency   string    `json:"frequency"`
	NextRun     time.Time `json:"next_run"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NextAfter advances the schedule one step past run.
func (rt RecurringTransaction) NextAfter(run time.Time) time.Time {
	switch rt.Frequency {
	case FrequencyWeekly:
		return run.AddDate(0, 0, 7)
	default:
		return run.AddDate(0, 1, 0)
	}
}

// Domain errors.
var (
	ErrInvalidFrequency = errors.New("ledger: frequency must be weekly or monthly")
	ErrZeroAmount       = errors.New("ledger: amount must not be zero")
)

// CreateInput carries a transaction create.
type CreateInput struct {
	HouseholdID uuid.UUID
	CategoryID  uuid.UUID
	Amount      int64
	Date        time.Time
	Memo        string
	RecurringID *uuid.UUID
}

// UpdateInput carries a transaction edit. Nil pointers leave fields
// untouched.
type UpdateInput struct {
	CategoryID *uuid.UUID
	Amount     *int64
	Date       *time.Time
	Memo       *string
}

// ListFilter narrows transaction listings.
type ListFilter struct {
	CategoryID *uuid.UUID
	From       *time.Time
	To         *time.Time
	Page       int
	PerPage    int
}
