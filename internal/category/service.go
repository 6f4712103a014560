package category

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/hearthledger/hearthledger/internal/budget"
	"github.com/hearthledger/hearthledger/internal/shared"
)

// Store is the persistence contract the service depends on.
type Store interface {
	List(ctx context.Context, householdID uuid.UUID) ([]Category, error)
	Get(ctx context.Context, householdID, id uuid.UUID) (Category, error)
	Insert(ctx context.Context, in CreateInput) (Category, error)
	Update(ctx context.Context, householdID, id uuid.UUID, in UpdateInput) (Category, error)
	HasChildren(ctx context.Context, id uuid.UUID) (bool, error)
	Delete(ctx context.Context, householdID, id uuid.UUID) error
	SeedDefaults(ctx context.Context, householdID uuid.UUID) error
}

// Invalidator invalidates memoized budget state after metadata changes.
type Invalidator interface {
	Bump(ctx context.Context, householdID uuid.UUID) error
}

// Service owns category directory rules.
type Service struct {
	repo        Store
	invalidator Invalidator
}

// NewService constructs a Service instance.
func NewService(repo Store, invalidator Invalidator) *Service {
	return &Service{repo: repo, invalidator: invalidator}
}

// List returns the household's categories. Archived categories are
// included; they remain valid targets for historical state and callers
// building pickers filter them out.
func (s *Service) List(ctx context.Context, householdID uuid.UUID) ([]Category, error) {
	return s.repo.List(ctx, householdID)
}

// Get fetches one category.
func (s *Service) Get(ctx context.Context, householdID, id uuid.UUID) (Category, error) {
	return s.repo.Get(ctx, householdID, id)
}

// Create validates and inserts a category. A parent must itself be
// top-level and share the child's type.
func (s *Service) Create(ctx context.Context, in CreateInput) (Category, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return Category{}, ErrEmptyName
	}
	if in.Type != budget.CategoryTypeIncome && in.Type != budget.CategoryTypeExpense {
		return Category{}, shared.ErrUnknownCategory
	}
	if in.ParentID != nil {
		parent, err := s.repo.Get(ctx, in.HouseholdID, *in.ParentID)
		if err != nil {
			return Category{}, err
		}
		if parent.ParentID != nil {
			return Category{}, ErrDeepNesting
		}
		if parent.Type != in.Type {
			return Category{}, ErrParentTypeMix
		}
	}
	created, err := s.repo.Insert(ctx, in)
	if err != nil {
		return Category{}, err
	}
	s.bump(ctx, in.HouseholdID)
	return created, nil
}

// Update applies a metadata edit. Flag toggles take effect on the next
// read; no historical migration occurs.
func (s *Service) Update(ctx context.Context, householdID, id uuid.UUID, in UpdateInput) (Category, error) {
	if in.Name != nil {
		trimmed := strings.TrimSpace(*in.Name)
		if trimmed == "" {
			return Category{}, ErrEmptyName
		}
		in.Name = &trimmed
	}
	updated, err := s.repo.Update(ctx, householdID, id, in)
	if err != nil {
		return Category{}, err
	}
	s.bump(ctx, householdID)
	return updated, nil
}

// Delete removes a category without children. Categories that carry
// history are better archived than deleted.
func (s *Service) Delete(ctx context.Context, householdID, id uuid.UUID) error {
	hasChildren, err := s.repo.HasChildren(ctx, id)
	if err != nil {
		return err
	}
	if hasChildren {
		return ErrHasChildren
	}
	if err := s.repo.Delete(ctx, householdID, id); err != nil {
		return err
	}
	s.bump(ctx, householdID)
	return nil
}

// SeedDefaults populates the starter categories on household signup.
func (s *Service) SeedDefaults(ctx context.Context, householdID uuid.UUID) error {
	return s.repo.SeedDefaults(ctx, householdID)
}

// CategoryTree implements budget.Directory.
func (s *Service) CategoryTree(ctx context.Context, householdID uuid.UUID) ([]budget.Category, error) {
	categories, err := s.repo.List(ctx, householdID)
	if err != nil {
		return nil, err
	}
	tree := make([]budget.Category, len(categories))
	for i, c := range categories {
		tree[i] = c.Engine()
	}
	return tree, nil
}

func (s *Service) bump(ctx context.Context, householdID uuid.UUID) {
	if s.invalidator != nil {
		_ = s.invalidator.Bump(ctx, householdID)
	}
}
