package household

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/hearthledger/hearthledger/internal/budget"
	"github.com/hearthledger/hearthledger/internal/shared"
)

// Store is the persistence contract the service depends on.
type Store interface {
	Insert(ctx context.Context, in CreateInput) (Household, error)
	Get(ctx context.Context, id uuid.UUID) (Household, error)
	List(ctx context.Context) ([]Household, error)
	ListIDs(ctx context.Context) ([]uuid.UUID, error)
	Update(ctx context.Context, id uuid.UUID, in UpdateInput) (Household, error)
}

// CategorySeeder populates a fresh household's starter categories.
type CategorySeeder interface {
	SeedDefaults(ctx context.Context, householdID uuid.UUID) error
}

// Invalidator invalidates memoized budget state after settings changes.
type Invalidator interface {
	Bump(ctx context.Context, householdID uuid.UUID) error
}

// Service owns household lifecycle and configuration.
type Service struct {
	repo        Store
	seeder      CategorySeeder
	invalidator Invalidator
	logger      *slog.Logger
}

// NewService constructs a Service instance.
func NewService(repo Store, seeder CategorySeeder, invalidator Invalidator, logger *slog.Logger) *Service {
	return &Service{repo: repo, seeder: seeder, invalidator: invalidator, logger: logger}
}

// Create registers a household and seeds its default categories.
func (s *Service) Create(ctx context.Context, in CreateInput) (Household, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return Household{}, ErrEmptyName
	}
	if in.PeriodStartDay == 0 {
		in.PeriodStartDay = 1
	}
	if in.PeriodStartDay < 1 || in.PeriodStartDay > 31 {
		return Household{}, shared.ErrInvalidStartDay
	}
	created, err := s.repo.Insert(ctx, in)
	if err != nil {
		return Household{}, err
	}
	if s.seeder != nil {
		if err := s.seeder.SeedDefaults(ctx, created.ID); err != nil && s.logger != nil {
			s.logger.Error("seed default categories",
				slog.String("household", created.ID.String()),
				slog.Any("error", err),
			)
		}
	}
	return created, nil
}

// Get fetches one household.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Household, error) {
	return s.repo.Get(ctx, id)
}

// List returns every household.
func (s *Service) List(ctx context.Context) ([]Household, error) {
	return s.repo.List(ctx)
}

// ListIDs returns every household id.
func (s *Service) ListIDs(ctx context.Context) ([]uuid.UUID, error) {
	return s.repo.ListIDs(ctx)
}

// Update applies a settings edit. Changing the period start day reshapes
// every derived period on the next read; stored assignments keep their
// original month keys.
func (s *Service) Update(ctx context.Context, id uuid.UUID, in UpdateInput) (Household, error) {
	if in.PeriodStartDay != nil && (*in.PeriodStartDay < 1 || *in.PeriodStartDay > 31) {
		return Household{}, shared.ErrInvalidStartDay
	}
	updated, err := s.repo.Update(ctx, id, in)
	if err != nil {
		return Household{}, err
	}
	if s.invalidator != nil {
		_ = s.invalidator.Bump(ctx, id)
	}
	return updated, nil
}

// BudgetConfig implements budget.Settings.
func (s *Service) BudgetConfig(ctx context.Context, householdID uuid.UUID) (budget.HouseholdConfig, error) {
	h, err := s.repo.Get(ctx, householdID)
	if err != nil {
		return budget.HouseholdConfig{}, err
	}
	startDay := h.PeriodStartDay
	if startDay == 0 {
		startDay = 1
	}
	return budget.HouseholdConfig{
		PeriodStartDay:     startDay,
		FlexStrictChildren: h.FlexStrictChildren,
	}, nil
}
