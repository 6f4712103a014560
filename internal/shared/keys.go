package shared

import (
	"fmt"

	"github.com/google/uuid"
)

// BudgetVersionKey builds the redis key tracking a household's budget
// state version. Bumped on every write that can change computed state.
func BudgetVersionKey(householdID uuid.UUID) string {
	return fmt.Sprintf("budget:%s:version", householdID)
}
