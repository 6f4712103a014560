package budget

import (
	"sort"

	"github.com/google/uuid"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// ComposeView assembles the per-period budget tree from derived state.
// Ordering is deterministic: income categories before expense, collated
// alphabetical within a type, children directly following their parent.
func ComposeView(
	householdID uuid.UUID,
	period Period,
	categories []Category,
	states map[uuid.UUID]CategoryState,
	leafExpense ActivityTotals,
	income ActivityTotals,
	readyToAssign int64,
) View {
	coll := collate.New(language.English)

	byParent := make(map[uuid.UUID][]Category)
	var incomeCats, topExpense []Category
	for _, cat := range categories {
		switch {
		case cat.Type == CategoryTypeIncome:
			incomeCats = append(incomeCats, cat)
		case cat.ParentID != nil:
			byParent[*cat.ParentID] = append(byParent[*cat.ParentID], cat)
		default:
			topExpense = append(topExpense, cat)
		}
	}
	sortCategories(coll, incomeCats)
	sortCategories(coll, topExpense)
	for _, children := range byParent {
		sortCategories(coll, children)
	}

	nodes := make([]Node, 0, len(incomeCats)+len(topExpense))
	for _, cat := range incomeCats {
		nodes = append(nodes, Node{
			Category: cat,
			State: CategoryState{
				CategoryID: cat.ID,
				Activity:   income[cat.ID],
			},
		})
	}
	for _, cat := range topExpense {
		node := Node{Category: cat, State: states[cat.ID]}
		children := byParent[cat.ID]
		if len(children) > 0 {
			childStates := make([]CategoryState, 0, len(children))
			for _, child := range children {
				st := states[child.ID]
				node.Children = append(node.Children, Node{Category: child, State: st})
				childStates = append(childStates, st)
			}
			node.Flex = ResolveFlexGroup(cat, node.State, childStates)
		}
		nodes = append(nodes, node)
	}

	var totals Totals
	for _, cat := range categories {
		if cat.Type != CategoryTypeExpense {
			continue
		}
		totals.TotalAssigned += states[cat.ID].Assigned
	}
	for _, amount := range leafExpense {
		totals.TotalActivity += amount
	}
	for _, amount := range income {
		totals.TotalIncome += amount
	}

	return View{
		HouseholdID:   householdID,
		Period:        period,
		Nodes:         nodes,
		Totals:        totals,
		ReadyToAssign: readyToAssign,
	}
}

func sortCategories(coll *collate.Collator, cats []Category) {
	sort.SliceStable(cats, func(i, j int) bool {
		if cmp := coll.CompareString(cats[i].Name, cats[j].Name); cmp != 0 {
			return cmp < 0
		}
		return cats[i].ID.String() < cats[j].ID.String()
	})
}

// FilterStrictFlexAssignments zeroes personal assignments for children of
// flex parents. Households that opt into strict flex mode disable child
// allocation entirely while the shared pool is active; the default mode
// keeps both (a child may hold its own allocation and draw pool
// overflow).
func FilterStrictFlexAssignments(assignments map[uuid.UUID]int64, categories []Category) map[uuid.UUID]int64 {
	flexParents := make(map[uuid.UUID]bool)
	hasChildren := make(map[uuid.UUID]bool)
	for _, cat := range categories {
		if cat.IsFlexBudget {
			flexParents[cat.ID] = true
		}
		if cat.ParentID != nil {
			hasChildren[*cat.ParentID] = true
		}
	}
	filtered := make(map[uuid.UUID]int64, len(assignments))
	for id, amount := range assignments {
		filtered[id] = amount
	}
	for _, cat := range categories {
		if cat.ParentID == nil {
			continue
		}
		if flexParents[*cat.ParentID] && hasChildren[*cat.ParentID] {
			delete(filtered, cat.ID)
		}
	}
	return filtered
}
