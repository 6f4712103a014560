package category

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/hearthledger/hearthledger/internal/budget"
	"github.com/hearthledger/hearthledger/internal/shared"
)

type memDirectory struct {
	categories map[uuid.UUID]Category
	seeded     []uuid.UUID
}

func newMemDirectory() *memDirectory {
	return &memDirectory{categories: make(map[uuid.UUID]Category)}
}

func (m *memDirectory) List(ctx context.Context, householdID uuid.UUID) ([]Category, error) {
	var out []Category
	for _, c := range m.categories {
		if c.HouseholdID == householdID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memDirectory) Get(ctx context.Context, householdID, id uuid.UUID) (Category, error) {
	c, ok := m.categories[id]
	if !ok || c.HouseholdID != householdID {
		return Category{}, shared.ErrNotFound
	}
	return c, nil
}

func (m *memDirectory) Insert(ctx context.Context, in CreateInput) (Category, error) {
	for _, c := range m.categories {
		if c.HouseholdID == in.HouseholdID && c.Name == in.Name {
			return Category{}, ErrNameTaken
		}
	}
	c := Category{
		ID:           uuid.New(),
		HouseholdID:  in.HouseholdID,
		Name:         in.Name,
		Type:         in.Type,
		ParentID:     in.ParentID,
		IsRollover:   in.IsRollover,
		IsFlexBudget: in.IsFlexBudget,
	}
	m.categories[c.ID] = c
	return c, nil
}

func (m *memDirectory) Update(ctx context.Context, householdID, id uuid.UUID, in UpdateInput) (Category, error) {
	c, err := m.Get(ctx, householdID, id)
	if err != nil {
		return Category{}, err
	}
	if in.Name != nil {
		c.Name = *in.Name
	}
	if in.IsRollover != nil {
		c.IsRollover = *in.IsRollover
	}
	if in.IsFlexBudget != nil {
		c.IsFlexBudget = *in.IsFlexBudget
	}
	if in.IsArchived != nil {
		c.IsArchived = *in.IsArchived
	}
	m.categories[id] = c
	return c, nil
}

func (m *memDirectory) HasChildren(ctx context.Context, id uuid.UUID) (bool, error) {
	for _, c := range m.categories {
		if c.ParentID != nil && *c.ParentID == id {
			return true, nil
		}
	}
	return false, nil
}

func (m *memDirectory) Delete(ctx context.Context, householdID, id uuid.UUID) error {
	if _, err := m.Get(ctx, householdID, id); err != nil {
		return err
	}
	delete(m.categories, id)
	return nil
}

func (m *memDirectory) SeedDefaults(ctx context.Context, householdID uuid.UUID) error {
	m.seeded = append(m.seeded, householdID)
	for _, d := range DefaultCategories {
		if _, err := m.Insert(ctx, CreateInput{
			HouseholdID: householdID,
			Name:        d.Name,
			Type:        d.Type,
			IsRollover:  d.Rollover,
		}); err != nil {
			return err
		}
	}
	return nil
}

type countingInvalidator struct {
	bumps int
}

func (c *countingInvalidator) Bump(ctx context.Context, householdID uuid.UUID) error {
	c.bumps++
	return nil
}

func TestCreateValidatesName(t *testing.T) {
	svc := NewService(newMemDirectory(), nil)
	ctx := context.Background()
	household := uuid.New()

	_, err := svc.Create(ctx, CreateInput{HouseholdID: household, Name: "   ", Type: budget.CategoryTypeExpense})
	require.ErrorIs(t, err, ErrEmptyName)

	created, err := svc.Create(ctx, CreateInput{HouseholdID: household, Name: "  Groceries  ", Type: budget.CategoryTypeExpense})
	require.NoError(t, err)
	require.Equal(t, "Groceries", created.Name)

	_, err = svc.Create(ctx, CreateInput{HouseholdID: household, Name: "Groceries", Type: budget.CategoryTypeExpense})
	require.ErrorIs(t, err, ErrNameTaken)
}

func TestCreateEnforcesSingleLevelNesting(t *testing.T) {
	repo := newMemDirectory()
	svc := NewService(repo, nil)
	ctx := context.Background()
	household := uuid.New()

	parent, err := svc.Create(ctx, CreateInput{HouseholdID: household, Name: "Utilities", Type: budget.CategoryTypeExpense})
	require.NoError(t, err)
	child, err := svc.Create(ctx, CreateInput{HouseholdID: household, Name: "Electricity", Type: budget.CategoryTypeExpense, ParentID: &parent.ID})
	require.NoError(t, err)

	// A child can never become a parent.
	_, err = svc.Create(ctx, CreateInput{HouseholdID: household, Name: "Peak Rate", Type: budget.CategoryTypeExpense, ParentID: &child.ID})
	require.ErrorIs(t, err, ErrDeepNesting)

	// Parent and child types must agree.
	_, err = svc.Create(ctx, CreateInput{HouseholdID: household, Name: "Refunds", Type: budget.CategoryTypeIncome, ParentID: &parent.ID})
	require.ErrorIs(t, err, ErrParentTypeMix)

	// A parent from another household is invisible.
	_, err = svc.Create(ctx, CreateInput{HouseholdID: uuid.New(), Name: "Water", Type: budget.CategoryTypeExpense, ParentID: &parent.ID})
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestDeleteBlockedByChildren(t *testing.T) {
	repo := newMemDirectory()
	svc := NewService(repo, nil)
	ctx := context.Background()
	household := uuid.New()

	parent, err := svc.Create(ctx, CreateInput{HouseholdID: household, Name: "Utilities", Type: budget.CategoryTypeExpense})
	require.NoError(t, err)
	child, err := svc.Create(ctx, CreateInput{HouseholdID: household, Name: "Electricity", Type: budget.CategoryTypeExpense, ParentID: &parent.ID})
	require.NoError(t, err)

	require.ErrorIs(t, svc.Delete(ctx, household, parent.ID), ErrHasChildren)

	require.NoError(t, svc.Delete(ctx, household, child.ID))
	require.NoError(t, svc.Delete(ctx, household, parent.ID))
}

func TestMutationsBumpInvalidator(t *testing.T) {
	repo := newMemDirectory()
	inv := &countingInvalidator{}
	svc := NewService(repo, inv)
	ctx := context.Background()
	household := uuid.New()

	created, err := svc.Create(ctx, CreateInput{HouseholdID: household, Name: "Groceries", Type: budget.CategoryTypeExpense})
	require.NoError(t, err)
	require.Equal(t, 1, inv.bumps)

	rollover := true
	_, err = svc.Update(ctx, household, created.ID, UpdateInput{IsRollover: &rollover})
	require.NoError(t, err)
	require.Equal(t, 2, inv.bumps)

	require.NoError(t, svc.Delete(ctx, household, created.ID))
	require.Equal(t, 3, inv.bumps)
}

func TestCategoryTreeMapsEngineView(t *testing.T) {
	repo := newMemDirectory()
	svc := NewService(repo, nil)
	ctx := context.Background()
	household := uuid.New()

	parent, err := svc.Create(ctx, CreateInput{HouseholdID: household, Name: "Utilities", Type: budget.CategoryTypeExpense, IsFlexBudget: true})
	require.NoError(t, err)
	_, err = svc.Create(ctx, CreateInput{HouseholdID: household, Name: "Electricity", Type: budget.CategoryTypeExpense, ParentID: &parent.ID})
	require.NoError(t, err)

	tree, err := svc.CategoryTree(ctx, household)
	require.NoError(t, err)
	require.Len(t, tree, 2)

	byName := make(map[string]budget.Category, len(tree))
	for _, c := range tree {
		byName[c.Name] = c
	}
	require.True(t, byName["Utilities"].IsFlexBudget)
	require.Nil(t, byName["Utilities"].ParentID)
	require.NotNil(t, byName["Electricity"].ParentID)
	require.Equal(t, parent.ID, *byName["Electricity"].ParentID)
}

func TestSeedDefaults(t *testing.T) {
	repo := newMemDirectory()
	svc := NewService(repo, nil)
	ctx := context.Background()
	household := uuid.New()

	require.NoError(t, svc.SeedDefaults(ctx, household))
	list, err := svc.List(ctx, household)
	require.NoError(t, err)
	require.Len(t, list, len(DefaultCategories))
}
