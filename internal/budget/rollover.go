package budget

import "github.com/google/uuid"

// ComputeRollover returns the balance a category carries into a new
// period. Rollover categories carry the prior period's available amount
// forward, including negative (overspent) balances, which must not be
// clamped. Non-rollover categories reset every period.
func ComputeRollover(cat Category, previous *CategoryState) int64 {
	if !cat.IsRollover || previous == nil {
		return 0
	}
	return previous.Available
}

// ComputePeriodStates derives every category's state for one period from
// the period's assignments and activity plus the previous period's
// states. The previous states are the rollover source of truth; callers
// walk the chain forward from the earliest relevant period so that a
// retroactive edit ripples through every subsequent period.
func ComputePeriodStates(categories []Category, assignments map[uuid.UUID]int64, activity ActivityTotals, previous map[uuid.UUID]CategoryState) map[uuid.UUID]CategoryState {
	states := make(map[uuid.UUID]CategoryState, len(categories))
	for _, cat := range categories {
		if cat.Type != CategoryTypeExpense {
			continue
		}
		var prev *CategoryState
		if previous != nil {
			if p, ok := previous[cat.ID]; ok {
				prev = &p
			}
		}
		st := CategoryState{
			CategoryID: cat.ID,
			Assigned:   assignments[cat.ID],
			Activity:   activity[cat.ID],
			Rollover:   ComputeRollover(cat, prev),
		}
		st.Available = st.Rollover + st.Assigned - st.Activity
		states[cat.ID] = st
	}
	return states
}
