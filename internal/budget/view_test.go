package budget

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestComposeViewOrdering(t *testing.T) {
	household := uuid.New()
	period := Period{From: date(2025, time.March, 1), To: date(2025, time.April, 1)}

	salary := Category{ID: uuid.New(), Name: "Salary", Type: CategoryTypeIncome}
	utilities := Category{ID: uuid.New(), Name: "Utilities", Type: CategoryTypeExpense}
	groceries := Category{ID: uuid.New(), Name: "Groceries", Type: CategoryTypeExpense}
	streaming := Category{ID: uuid.New(), Name: "Streaming", Type: CategoryTypeExpense, ParentID: &utilities.ID}
	power := Category{ID: uuid.New(), Name: "Electricity", Type: CategoryTypeExpense, ParentID: &utilities.ID}
	categories := []Category{utilities, salary, streaming, groceries, power}

	view := ComposeView(household, period, categories, map[uuid.UUID]CategoryState{}, ActivityTotals{}, ActivityTotals{}, 0)

	names := make([]string, 0, len(view.Nodes))
	for _, n := range view.Nodes {
		names = append(names, n.Category.Name)
	}
	want := []string{"Salary", "Groceries", "Utilities"}
	for i, name := range want {
		if names[i] != name {
			t.Fatalf("position %d: got %q, want %q (all: %v)", i, names[i], name, names)
		}
	}

	// Children follow the parent directly, alphabetically.
	utilNode := view.Nodes[2]
	if len(utilNode.Children) != 2 {
		t.Fatalf("expected 2 children, got %d", len(utilNode.Children))
	}
	if utilNode.Children[0].Category.Name != "Electricity" || utilNode.Children[1].Category.Name != "Streaming" {
		t.Fatalf("unexpected child order: %v", utilNode.Children)
	}
}

func TestComposeViewTotalsAndFlex(t *testing.T) {
	household := uuid.New()
	period := Period{From: date(2025, time.March, 1), To: date(2025, time.April, 1)}

	salary := Category{ID: uuid.New(), Name: "Salary", Type: CategoryTypeIncome}
	fun := Category{ID: uuid.New(), Name: "Fun Money", Type: CategoryTypeExpense, IsFlexBudget: true}
	games := Category{ID: uuid.New(), Name: "Games", Type: CategoryTypeExpense, ParentID: &fun.ID}
	movies := Category{ID: uuid.New(), Name: "Movies", Type: CategoryTypeExpense, ParentID: &fun.ID}
	categories := []Category{salary, fun, games, movies}

	states := map[uuid.UUID]CategoryState{
		fun.ID:    {CategoryID: fun.ID, Assigned: 1000000, Activity: 500000, Available: 500000},
		games.ID:  {CategoryID: games.ID, Activity: 300000, Available: -300000},
		movies.ID: {CategoryID: movies.ID, Activity: 200000, Available: -200000},
	}
	leafExpense := ActivityTotals{games.ID: 300000, movies.ID: 200000}
	income := ActivityTotals{salary.ID: 1200000}

	view := ComposeView(household, period, categories, states, leafExpense, income, 200000)

	if view.Totals.TotalAssigned != 1000000 {
		t.Fatalf("expected total assigned 1000000, got %d", view.Totals.TotalAssigned)
	}
	// Leaf sums only; rolled-up parent totals would double count.
	if view.Totals.TotalActivity != 500000 {
		t.Fatalf("expected total activity 500000, got %d", view.Totals.TotalActivity)
	}
	if view.Totals.TotalIncome != 1200000 {
		t.Fatalf("expected total income 1200000, got %d", view.Totals.TotalIncome)
	}
	if view.ReadyToAssign != 200000 {
		t.Fatalf("expected ready to assign 200000, got %d", view.ReadyToAssign)
	}

	funNode := view.Nodes[1]
	if funNode.Flex == nil {
		t.Fatalf("expected flex group on pool parent")
	}
	if funNode.Flex.UnallocatedBalance != 500000 {
		t.Fatalf("expected unallocated 500000, got %d", funNode.Flex.UnallocatedBalance)
	}

	// Income node reports earned amount as activity.
	if view.Nodes[0].State.Activity != 1200000 {
		t.Fatalf("expected income activity 1200000, got %d", view.Nodes[0].State.Activity)
	}
}

func TestFilterStrictFlexAssignments(t *testing.T) {
	fun := Category{ID: uuid.New(), Name: "Fun Money", Type: CategoryTypeExpense, IsFlexBudget: true}
	games := Category{ID: uuid.New(), Name: "Games", Type: CategoryTypeExpense, ParentID: &fun.ID}
	solo := Category{ID: uuid.New(), Name: "Groceries", Type: CategoryTypeExpense}
	categories := []Category{fun, games, solo}

	assignments := map[uuid.UUID]int64{fun.ID: 1000, games.ID: 400, solo.ID: 250}
	filtered := FilterStrictFlexAssignments(assignments, categories)

	if _, ok := filtered[games.ID]; ok {
		t.Fatalf("strict mode must drop child assignments under flex parents")
	}
	if filtered[fun.ID] != 1000 || filtered[solo.ID] != 250 {
		t.Fatalf("unrelated assignments must survive: %v", filtered)
	}
	if assignments[games.ID] != 400 {
		t.Fatalf("input map must not be mutated")
	}
}
