package ledger

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hearthledger/hearthledger/internal/budget"
)

// Store is the persistence contract the service depends on.
type Store interface {
	WithTx(ctx context.Context, fn func(context.Context, TxLedger) error) error
	Get(ctx context.Context, householdID, id uuid.UUID) (Transaction, error)
	List(ctx context.Context, householdID uuid.UUID, filter ListFilter) ([]Transaction, int, error)
	QueryRecords(ctx context.Context, householdID uuid.UUID, categoryID *uuid.UUID, from, to time.Time) ([]budget.TransactionRecord, error)
	EarliestActivity(ctx context.Context, householdID uuid.UUID) (*time.Time, error)
	InsertRecurring(ctx context.Context, rt RecurringTransaction) (RecurringTransaction, error)
	ListRecurring(ctx context.Context, householdID uuid.UUID) ([]RecurringTransaction, error)
	ListDueRecurring(ctx context.Context, asOf time.Time) ([]RecurringTransaction, error)
	SetRecurringActive(ctx context.Context, householdID, id uuid.UUID, active bool) error
}

// Invalidator invalidates memoized budget state after ledger changes.
type Invalidator interface {
	Bump(ctx context.Context, householdID uuid.UUID) error
}

// Service owns ledger rules and the Ready-to-Assign change hooks: every
// income create, edit, and delete adjusts the household's unassigned
// balance by the corresponding delta inside the same transaction.
type Service struct {
	store       Store
	invalidator Invalidator
	logger      *slog.Logger
	now         func() time.Time
}

// NewService constructs a Service instance.
func NewService(store Store, invalidator Invalidator, logger *slog.Logger) *Service {
	return &Service{
		store:       store,
		invalidator: invalidator,
		logger:      logger,
		now:         time.Now,
	}
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Create posts a transaction. Income amounts raise Ready-to-Assign by
// the recorded amount.
func (s *Service) Create(ctx context.Context, in CreateInput) (Transaction, error) {
	if in.Amount == 0 {
		return Transaction{}, ErrZeroAmount
	}
	var created Transaction
	err := s.store.WithTx(ctx, func(txCtx context.Context, tx TxLedger) error {
		typ, err := tx.CategoryType(txCtx, in.HouseholdID, in.CategoryID)
		if err != nil {
			return err
		}
		created, err = tx.Insert(txCtx, in)
		if err != nil {
			return err
		}
		if typ == budget.CategoryTypeIncome {
			return tx.ApplyReadyToAssignDelta(txCtx, in.HouseholdID, in.Amount)
		}
		return nil
	})
	if err != nil {
		return Transaction{}, err
	}
	s.bump(ctx, in.HouseholdID)
	return created, nil
}

// Update edits a transaction and applies the corrective Ready-to-Assign
// delta: the income contribution of the old row is withdrawn and the new
// row's contribution applied, covering amount edits and category moves
// across the income/expense boundary.
func (s *Service) Update(ctx context.Context, householdID, id uuid.UUID, in UpdateInput) (Transaction, error) {
	var updated Transaction
	err := s.store.WithTx(ctx, func(txCtx context.Context, tx TxLedger) error {
		previous, err := tx.GetForUpdate(txCtx, householdID, id)
		if err != nil {
			return err
		}
		oldType, err := tx.CategoryType(txCtx, householdID, previous.CategoryID)
		if err != nil {
			return err
		}
		if in.CategoryID != nil {
			if _, err := tx.CategoryType(txCtx, householdID, *in.CategoryID); err != nil {
				return err
			}
		}
		updated, err = tx.Update(txCtx, householdID, id, in)
		if err != nil {
			return err
		}
		newType, err := tx.CategoryType(txCtx, householdID, updated.CategoryID)
		if err != nil {
			return err
		}

		var delta int64
		if oldType == budget.CategoryTypeIncome {
			delta -= previous.Amount
		}
		if newType == budget.CategoryTypeIncome {
			delta += updated.Amount
		}
		if delta != 0 {
			return tx.ApplyReadyToAssignDelta(txCtx, householdID, delta)
		}
		return nil
	})
	if err != nil {
		return Transaction{}, err
	}
	s.bump(ctx, householdID)
	return updated, nil
}

// Delete removes a transaction, withdrawing its income contribution.
func (s *Service) Delete(ctx context.Context, householdID, id uuid.UUID) error {
	err := s.store.WithTx(ctx, func(txCtx context.Context, tx TxLedger) error {
		previous, err := tx.GetForUpdate(txCtx, householdID, id)
		if err != nil {
			return err
		}
		typ, err := tx.CategoryType(txCtx, householdID, previous.CategoryID)
		if err != nil {
			return err
		}
		if err := tx.Delete(txCtx, householdID, id); err != nil {
			return err
		}
		if typ == budget.CategoryTypeIncome {
			return tx.ApplyReadyToAssignDelta(txCtx, householdID, -previous.Amount)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.bump(ctx, householdID)
	return nil
}

// Get fetches one transaction.
func (s *Service) Get(ctx context.Context, householdID, id uuid.UUID) (Transaction, error) {
	return s.store.Get(ctx, householdID, id)
}

// List returns transactions matching the filter plus the total count.
func (s *Service) List(ctx context.Context, householdID uuid.UUID, filter ListFilter) ([]Transaction, int, error) {
	return s.store.List(ctx, householdID, filter)
}

// QueryTransactions implements budget.Ledger.
func (s *Service) QueryTransactions(ctx context.Context, householdID uuid.UUID, categoryID *uuid.UUID, from, to time.Time) ([]budget.TransactionRecord, error) {
	return s.store.QueryRecords(ctx, householdID, categoryID, from, to)
}

// EarliestActivity implements budget.Ledger.
func (s *Service) EarliestActivity(ctx context.Context, householdID uuid.UUID) (*time.Time, error) {
	return s.store.EarliestActivity(ctx, householdID)
}

// CreateRecurring registers a recurring template.
func (s *Service) CreateRecurring(ctx context.Context, rt RecurringTransaction) (RecurringTransaction, error) {
	if rt.Amount == 0 {
		return RecurringTransaction{}, ErrZeroAmount
	}
	if rt.Frequency != FrequencyWeekly && rt.Frequency != FrequencyMonthly {
		return RecurringTransaction{}, ErrInvalidFrequency
	}
	rt.Active = true
	return s.store.InsertRecurring(ctx, rt)
}

// ListRecurring returns a household's templates.
func (s *Service) ListRecurring(ctx context.Context, householdID uuid.UUID) ([]RecurringTransaction, error) {
	return s.store.ListRecurring(ctx, householdID)
}

// SetRecurringActive flips a template on or off.
func (s *Service) SetRecurringActive(ctx context.Context, householdID, id uuid.UUID, active bool) error {
	return s.store.SetRecurringActive(ctx, householdID, id, active)
}

// InstanceDue materializes every due recurring template into a posted
// transaction and advances its schedule. Each instance goes through the
// regular create path inside one transaction so income hooks fire.
// Returns the number of transactions created.
func (s *Service) InstanceDue(ctx context.Context, asOf time.Time) (int, error) {
	due, err := s.store.ListDueRecurring(ctx, asOf)
	if err != nil {
		return 0, err
	}
	created := 0
	for _, rt := range due {
		template := rt
		err := s.store.WithTx(ctx, func(txCtx context.Context, tx TxLedger) error {
			typ, err := tx.CategoryType(txCtx, template.HouseholdID, template.CategoryID)
			if err != nil {
				return err
			}
			if _, err := tx.Insert(txCtx, CreateInput{
				HouseholdID: template.HouseholdID,
				CategoryID:  template.CategoryID,
				Amount:      template.Amount,
				Date:        template.NextRun,
				Memo:        template.Memo,
				RecurringID: &template.ID,
			}); err != nil {
				return err
			}
			if typ == budget.CategoryTypeIncome {
				if err := tx.ApplyReadyToAssignDelta(txCtx, template.HouseholdID, template.Amount); err != nil {
					return err
				}
			}
			return tx.UpdateRecurringNextRun(txCtx, template.ID, template.NextAfter(template.NextRun))
		})
		if err != nil {
			if s.logger != nil {
				s.logger.Error("instance recurring transaction",
					slog.String("template", template.ID.String()),
					slog.Any("error", err),
				)
			}
			continue
		}
		created++
		s.bump(ctx, template.HouseholdID)
	}
	return created, nil
}

func (s *Service) bump(ctx context.Context, householdID uuid.UUID) {
	if s.invalidator != nil {
		_ = s.invalidator.Bump(ctx, householdID)
	}
}
