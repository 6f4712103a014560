package budget

import (
	"github.com/google/uuid"
)

// ActivityTotals maps category id to summed activity for one period.
type ActivityTotals map[uuid.UUID]int64

// AggregateActivity sums transaction amounts per leaf category within the
// period. Expense activity is reported as the absolute value of spend
// (always >= 0, subtracted from availability); income activity is the
// earned amount, reported separately and never subtracted.
//
// Transactions always reference leaf categories; parent display totals
// are rolled up afterwards with RollUpParents.
func AggregateActivity(records []TransactionRecord, period Period) (expense, income ActivityTotals) {
	expense = make(ActivityTotals)
	income = make(ActivityTotals)
	for _, rec := range records {
		if !period.Contains(normalizeDate(rec.Date)) {
			continue
		}
		switch rec.Type {
		case CategoryTypeIncome:
			income[rec.CategoryID] += rec.Amount
		default:
			amount := rec.Amount
			if amount < 0 {
				amount = -amount
			}
			expense[rec.CategoryID] += amount
		}
	}
	return expense, income
}

// RollUpParents adds each child's activity into its parent's total. Only
// one level of nesting exists, so a single pass suffices.
func RollUpParents(totals ActivityTotals, categories []Category) ActivityTotals {
	rolled := make(ActivityTotals, len(totals))
	for id, amount := range totals {
		rolled[id] = amount
	}
	for _, cat := range categories {
		if cat.ParentID == nil {
			continue
		}
		if amount, ok := totals[cat.ID]; ok {
			rolled[*cat.ParentID] += amount
		}
	}
	return rolled
}
