package household

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/hearthledger/hearthledger/internal/shared"
)

type memStore struct {
	households map[uuid.UUID]Household
}

func newMemStore() *memStore {
	return &memStore{households: make(map[uuid.UUID]Household)}
}

func (m *memStore) Insert(ctx context.Context, in CreateInput) (Household, error) {
	h := Household{
		ID:                 uuid.New(),
		Name:               in.Name,
		PeriodStartDay:     in.PeriodStartDay,
		FlexStrictChildren: in.FlexStrictChildren,
	}
	m.households[h.ID] = h
	return h, nil
}

func (m *memStore) Get(ctx context.Context, id uuid.UUID) (Household, error) {
	h, ok := m.households[id]
	if !ok {
		return Household{}, shared.ErrNotFound
	}
	return h, nil
}

func (m *memStore) List(ctx context.Context) ([]Household, error) {
	var out []Household
	for _, h := range m.households {
		out = append(out, h)
	}
	return out, nil
}

func (m *memStore) ListIDs(ctx context.Context) ([]uuid.UUID, error) {
	var out []uuid.UUID
	for id := range m.households {
		out = append(out, id)
	}
	return out, nil
}

func (m *memStore) Update(ctx context.Context, id uuid.UUID, in UpdateInput) (Household, error) {
	h, ok := m.households[id]
	if !ok {
		return Household{}, shared.ErrNotFound
	}
	if in.Name != nil {
		h.Name = *in.Name
	}
	if in.PeriodStartDay != nil {
		h.PeriodStartDay = *in.PeriodStartDay
	}
	if in.FlexStrictChildren != nil {
		h.FlexStrictChildren = *in.FlexStrictChildren
	}
	m.households[id] = h
	return h, nil
}

type recordingSeeder struct {
	seeded []uuid.UUID
	err    error
}

func (r *recordingSeeder) SeedDefaults(ctx context.Context, householdID uuid.UUID) error {
	if r.err != nil {
		return r.err
	}
	r.seeded = append(r.seeded, householdID)
	return nil
}

type countingInvalidator struct {
	bumps int
}

func (c *countingInvalidator) Bump(ctx context.Context, householdID uuid.UUID) error {
	c.bumps++
	return nil
}

func TestCreateValidatesAndSeeds(t *testing.T) {
	store := newMemStore()
	seeder := &recordingSeeder{}
	svc := NewService(store, seeder, nil, nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateInput{Name: "  "})
	require.ErrorIs(t, err, ErrEmptyName)

	_, err = svc.Create(ctx, CreateInput{Name: "Doe Family", PeriodStartDay: 32})
	require.ErrorIs(t, err, shared.ErrInvalidStartDay)

	created, err := svc.Create(ctx, CreateInput{Name: "  Doe Family  ", FlexStrictChildren: true})
	require.NoError(t, err)
	require.Equal(t, "Doe Family", created.Name)
	require.Equal(t, 1, created.PeriodStartDay)
	require.True(t, created.FlexStrictChildren)
	require.Equal(t, []uuid.UUID{created.ID}, seeder.seeded)
}

func TestCreateSurvivesSeedFailure(t *testing.T) {
	store := newMemStore()
	seeder := &recordingSeeder{err: errors.New("seed failed")}
	svc := NewService(store, seeder, nil, nil)

	created, err := svc.Create(context.Background(), CreateInput{Name: "Doe Family", PeriodStartDay: 15})
	require.NoError(t, err)
	require.Equal(t, 15, created.PeriodStartDay)
}

func TestUpdateValidatesStartDayAndBumps(t *testing.T) {
	store := newMemStore()
	inv := &countingInvalidator{}
	svc := NewService(store, nil, inv, nil)
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateInput{Name: "Doe Family"})
	require.NoError(t, err)

	bad := 0
	_, err = svc.Update(ctx, created.ID, UpdateInput{PeriodStartDay: &bad})
	require.ErrorIs(t, err, shared.ErrInvalidStartDay)
	require.Zero(t, inv.bumps)

	day := 25
	updated, err := svc.Update(ctx, created.ID, UpdateInput{PeriodStartDay: &day})
	require.NoError(t, err)
	require.Equal(t, 25, updated.PeriodStartDay)
	require.Equal(t, 1, inv.bumps)
}

func TestBudgetConfigDefaultsStartDay(t *testing.T) {
	store := newMemStore()
	svc := NewService(store, nil, nil, nil)
	ctx := context.Background()

	// Rows predating the start-day column read back as zero.
	legacy := Household{ID: uuid.New(), Name: "Legacy"}
	store.households[legacy.ID] = legacy

	cfg, err := svc.BudgetConfig(ctx, legacy.ID)
	require.NoError(t, err)
	require.Equal(t, 1, cfg.PeriodStartDay)
	require.False(t, cfg.FlexStrictChildren)

	strict := Household{ID: uuid.New(), Name: "Strict", PeriodStartDay: 20, FlexStrictChildren: true}
	store.households[strict.ID] = strict

	cfg, err = svc.BudgetConfig(ctx, strict.ID)
	require.NoError(t, err)
	require.Equal(t, 20, cfg.PeriodStartDay)
	require.True(t, cfg.FlexStrictChildren)

	_, err = svc.BudgetConfig(ctx, uuid.New())
	require.ErrorIs(t, err, shared.ErrNotFound)
}
