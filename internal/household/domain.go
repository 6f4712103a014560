// Package household manages households and their budget configuration:
// the billing-cycle start day and the flex allocation mode.
package household

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Household is the top-level tenant. Every category, transaction, and
// assignment belongs to exactly one household.
type Household struct {
	ID                 uuid.UUID `json:"id"`
	Name               string    `json:"name"`
	PeriodStartDay     int       `json:"period_start_day"`
	FlexStrictChildren bool      `json:"flex_strict_children"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// ErrEmptyName indicates a household create without a name.
var ErrEmptyName = errors.New("household: name is required")

// CreateInput carries a household creation request. PeriodStartDay
// defaults to 1 when unset.
type CreateInput struct {
	Name               string
	PeriodStartDay     int
	FlexStrictChildren bool
}

// UpdateInput carries a settings edit. Nil pointers leave fields
// untouched.
type UpdateInput struct {
	Name               *string
	PeriodStartDay     *int
	FlexStrictChildren *bool
}
