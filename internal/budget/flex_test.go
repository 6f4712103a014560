package budget

import (
	"testing"

	"github.com/google/uuid"
)

func TestResolveFlexGroupPoolMath(t *testing.T) {
	parent := Category{ID: uuid.New(), Type: CategoryTypeExpense, IsFlexBudget: true}
	parentState := CategoryState{CategoryID: parent.ID, Assigned: 1000000}
	children := []CategoryState{
		{Activity: 300000},
		{Activity: 200000},
	}

	flex := ResolveFlexGroup(parent, parentState, children)
	if flex == nil {
		t.Fatalf("expected flex group")
	}
	if flex.ParentAvailable != 500000 {
		t.Fatalf("expected pool available 500000, got %d", flex.ParentAvailable)
	}
	if flex.UnallocatedBalance != flex.ParentAvailable {
		t.Fatalf("unallocated must equal pool available, got %d", flex.UnallocatedBalance)
	}
}

func TestResolveFlexGroupIncludesRollover(t *testing.T) {
	parent := Category{ID: uuid.New(), Type: CategoryTypeExpense, IsFlexBudget: true, IsRollover: true}
	parentState := CategoryState{CategoryID: parent.ID, Assigned: 500, Rollover: 250}
	children := []CategoryState{{Activity: 600}}

	flex := ResolveFlexGroup(parent, parentState, children)
	if flex == nil || flex.ParentAvailable != 150 {
		t.Fatalf("expected pool 150, got %+v", flex)
	}
}

func TestResolveFlexGroupOverspentGoesNegative(t *testing.T) {
	parent := Category{ID: uuid.New(), Type: CategoryTypeExpense, IsFlexBudget: true}
	parentState := CategoryState{CategoryID: parent.ID, Assigned: 100}
	children := []CategoryState{{Activity: 175}}

	flex := ResolveFlexGroup(parent, parentState, children)
	if flex == nil || flex.UnallocatedBalance != -75 {
		t.Fatalf("expected -75, got %+v", flex)
	}
}

func TestResolveFlexGroupRequiresFlexParentWithChildren(t *testing.T) {
	plain := Category{ID: uuid.New(), Type: CategoryTypeExpense}
	if flex := ResolveFlexGroup(plain, CategoryState{}, []CategoryState{{}}); flex != nil {
		t.Fatalf("non-flex parent must not form a pool")
	}
	flexParent := Category{ID: uuid.New(), Type: CategoryTypeExpense, IsFlexBudget: true}
	if flex := ResolveFlexGroup(flexParent, CategoryState{}, nil); flex != nil {
		t.Fatalf("flex parent without children must not form a pool")
	}
}
