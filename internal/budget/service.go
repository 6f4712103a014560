package budget

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/hearthledger/hearthledger/internal/shared"
)

// Ledger is the engine's read-only view of the transaction ledger.
type Ledger interface {
	QueryTransactions(ctx context.Context, householdID uuid.UUID, categoryID *uuid.UUID, from, to time.Time) ([]TransactionRecord, error)
	EarliestActivity(ctx context.Context, householdID uuid.UUID) (*time.Time, error)
}

// Directory resolves the household's category tree.
type Directory interface {
	CategoryTree(ctx context.Context, householdID uuid.UUID) ([]Category, error)
}

// Settings exposes household-level budget configuration.
type Settings interface {
	BudgetConfig(ctx context.Context, householdID uuid.UUID) (HouseholdConfig, error)
}

// HouseholdConfig is the per-household engine configuration.
type HouseholdConfig struct {
	PeriodStartDay     int
	FlexStrictChildren bool
}

// TxRepository exposes the operations that must share one transaction:
// the assignment read-modify-write and the paired Ready-to-Assign delta.
type TxRepository interface {
	AssignmentForUpdate(ctx context.Context, householdID, categoryID uuid.UUID, month time.Time) (int64, error)
	UpsertAssignment(ctx context.Context, householdID, categoryID uuid.UUID, month time.Time, amount int64) error
	ApplyReadyToAssignDelta(ctx context.Context, householdID uuid.UUID, delta int64) error
}

// Repository persists assignments, the Ready-to-Assign ledger, and
// priority markers.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Assignments(ctx context.Context, householdID uuid.UUID, month time.Time) (map[uuid.UUID]int64, error)
	EarliestAssignmentMonth(ctx context.Context, householdID uuid.UUID) (*time.Time, error)
	ReadyToAssign(ctx context.Context, householdID uuid.UUID) (int64, error)
	DeriveReadyToAssign(ctx context.Context, householdID uuid.UUID) (int64, error)
	SetReadyToAssign(ctx context.Context, householdID uuid.UUID, amount int64) error
	ListPriorities(ctx context.Context, userID uuid.UUID) ([]Priority, error)
	PutPriority(ctx context.Context, userID, categoryID uuid.UUID) error
	DeletePriority(ctx context.Context, userID, categoryID uuid.UUID) error
}

// Service composes the engine: period resolution, activity aggregation,
// rollover chains, flex pools, and the Ready-to-Assign ledger.
type Service struct {
	repo      Repository
	ledger    Ledger
	directory Directory
	settings  Settings
	cache     *Cache
	logger    *slog.Logger
	lookback  int
	now       func() time.Time
}

// ServiceConfig tunes engine behaviour.
type ServiceConfig struct {
	// RolloverLookback caps the rollover chain walk, in periods.
	RolloverLookback int
}

// NewService constructs the engine service.
func NewService(repo Repository, ledger Ledger, directory Directory, settings Settings, cache *Cache, logger *slog.Logger, cfg ServiceConfig) *Service {
	lookback := cfg.RolloverLookback
	if lookback <= 0 {
		lookback = 60
	}
	return &Service{
		repo:      repo,
		ledger:    ledger,
		directory: directory,
		settings:  settings,
		cache:     cache,
		logger:    logger,
		lookback:  lookback,
		now:       time.Now,
	}
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// periodResult bundles everything derived for one period.
type periodResult struct {
	States      map[uuid.UUID]CategoryState `json:"states"`
	LeafExpense ActivityTotals              `json:"leaf_expense"`
	Income      ActivityTotals              `json:"income"`
}

// GetView builds the budget view for the period containing reference.
// The read path has no side effects and honours ctx cancellation.
func (s *Service) GetView(ctx context.Context, householdID uuid.UUID, reference time.Time) (View, error) {
	cfg, err := s.settings.BudgetConfig(ctx, householdID)
	if err != nil {
		return View{}, fmt.Errorf("budget: load config: %w", errors.Join(shared.ErrDataUnavailable, err))
	}
	period, err := ResolvePeriod(cfg.PeriodStartDay, reference)
	if err != nil {
		return View{}, err
	}
	categories, err := s.directory.CategoryTree(ctx, householdID)
	if err != nil {
		return View{}, fmt.Errorf("budget: category tree: %w", errors.Join(shared.ErrDataUnavailable, err))
	}

	result, err := s.periodStates(ctx, householdID, categories, cfg, period)
	if err != nil {
		return View{}, err
	}
	readyToAssign, err := s.repo.ReadyToAssign(ctx, householdID)
	if err != nil {
		return View{}, fmt.Errorf("budget: ready to assign: %w", errors.Join(shared.ErrDataUnavailable, err))
	}

	return ComposeView(householdID, period, categories, result.States, result.LeafExpense, result.Income, readyToAssign), nil
}

// periodStates walks the rollover chain forward from the earliest
// relevant period to the target, memoizing the final result per
// (household, period, config) behind the versioned cache.
func (s *Service) periodStates(ctx context.Context, householdID uuid.UUID, categories []Category, cfg HouseholdConfig, target Period) (periodResult, error) {
	var result periodResult
	load := func(ctx context.Context) (any, error) {
		return s.walkChain(ctx, householdID, categories, cfg, target)
	}
	if s.cache == nil {
		value, err := load(ctx)
		if err != nil {
			return periodResult{}, err
		}
		return value.(periodResult), nil
	}
	key, err := s.cache.BuildKey(ctx, householdID,
		"states",
		target.Key().Format("2006-01-02"),
		fmt.Sprintf("d%d", cfg.PeriodStartDay),
		fmt.Sprintf("strict%t", cfg.FlexStrictChildren),
	)
	if err != nil {
		// Cache trouble must not fail the read path.
		s.logWarn("budget cache key", err)
		value, lerr := load(ctx)
		if lerr != nil {
			return periodResult{}, lerr
		}
		return value.(periodResult), nil
	}
	if err := s.cache.FetchJSON(ctx, key, &result, load); err != nil {
		return periodResult{}, err
	}
	return result, nil
}

func (s *Service) walkChain(ctx context.Context, householdID uuid.UUID, categories []Category, cfg HouseholdConfig, target Period) (periodResult, error) {
	start, err := s.chainStart(ctx, householdID, cfg, target)
	if err != nil {
		return periodResult{}, err
	}

	period := start
	var previous map[uuid.UUID]CategoryState
	for {
		result, err := s.computePeriod(ctx, householdID, categories, cfg, period, previous)
		if err != nil {
			return periodResult{}, err
		}
		if !period.From.Before(target.From) {
			return result, nil
		}
		previous = result.States
		period, err = period.Next(cfg.PeriodStartDay)
		if err != nil {
			return periodResult{}, err
		}
	}
}

// chainStart picks the earliest period the rollover walk must visit:
// the period of the first recorded assignment or transaction, clamped to
// the configured lookback bound.
func (s *Service) chainStart(ctx context.Context, householdID uuid.UUID, cfg HouseholdConfig, target Period) (Period, error) {
	var earliest *time.Time

	firstMonth, err := s.repo.EarliestAssignmentMonth(ctx, householdID)
	if err != nil {
		return Period{}, fmt.Errorf("budget: earliest assignment: %w", errors.Join(shared.ErrDataUnavailable, err))
	}
	firstActivity, err := s.ledger.EarliestActivity(ctx, householdID)
	if err != nil {
		return Period{}, fmt.Errorf("budget: earliest activity: %w", errors.Join(shared.ErrDataUnavailable, err))
	}
	earliest = firstMonth
	if firstActivity != nil && (earliest == nil || firstActivity.Before(*earliest)) {
		earliest = firstActivity
	}
	if earliest == nil || !earliest.Before(target.From) {
		return target, nil
	}

	start, err := ResolvePeriod(cfg.PeriodStartDay, *earliest)
	if err != nil {
		return Period{}, err
	}

	// Bound the walk so cost stays fixed as household history grows.
	hops := 0
	probe := start
	for probe.From.Before(target.From) {
		if hops >= s.lookback {
			clamped := target
			for i := 0; i < s.lookback; i++ {
				clamped, err = clamped.Prev(cfg.PeriodStartDay)
				if err != nil {
					return Period{}, err
				}
			}
			return clamped, nil
		}
		probe, err = probe.Next(cfg.PeriodStartDay)
		if err != nil {
			return Period{}, err
		}
		hops++
	}
	return start, nil
}

// computePeriod derives one period's states, fetching assignments and
// ledger activity concurrently.
func (s *Service) computePeriod(ctx context.Context, householdID uuid.UUID, categories []Category, cfg HouseholdConfig, period Period, previous map[uuid.UUID]CategoryState) (periodResult, error) {
	var (
		assignments map[uuid.UUID]int64
		records     []TransactionRecord
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		assignments, err = s.repo.Assignments(gctx, householdID, period.Key())
		if err != nil {
			return fmt.Errorf("budget: assignments: %w", errors.Join(shared.ErrDataUnavailable, err))
		}
		return nil
	})
	g.Go(func() error {
		var err error
		records, err = s.ledger.QueryTransactions(gctx, householdID, nil, period.From, period.To)
		if err != nil {
			return fmt.Errorf("budget: ledger query: %w", errors.Join(shared.ErrDataUnavailable, err))
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return periodResult{}, err
	}

	if cfg.FlexStrictChildren {
		assignments = FilterStrictFlexAssignments(assignments, categories)
	}
	expense, income := AggregateActivity(records, period)
	rolled := RollUpParents(expense, categories)
	return periodResult{
		States:      ComputePeriodStates(categories, assignments, rolled, previous),
		LeafExpense: expense,
		Income:      income,
	}, nil
}

// UpsertAssignmentInput carries an assignment write.
type UpsertAssignmentInput struct {
	HouseholdID uuid.UUID
	CategoryID  uuid.UUID
	Month       time.Time
	Amount      int64
}

// AssignmentResult reports the authoritative state after a write, for
// callers reconciling optimistic local adjustments.
type AssignmentResult struct {
	CategoryID       uuid.UUID `json:"category_id"`
	Month            time.Time `json:"month"`
	Amount           int64     `json:"amount"`
	Delta            int64     `json:"delta"`
	NewAvailable     int64     `json:"new_available"`
	NewReadyToAssign int64     `json:"new_ready_to_assign"`
}

// UpsertAssignment writes an assignment with upsert semantics and updates
// Ready-to-Assign by the delta against the previously stored value, read
// under lock inside the same transaction. Once started the write runs to
// completion even if the caller goes away.
func (s *Service) UpsertAssignment(ctx context.Context, in UpsertAssignmentInput) (AssignmentResult, error) {
	if in.Amount < 0 {
		return AssignmentResult{}, shared.ErrInvalidAmount
	}
	cfg, err := s.settings.BudgetConfig(ctx, in.HouseholdID)
	if err != nil {
		return AssignmentResult{}, fmt.Errorf("budget: load config: %w", errors.Join(shared.ErrDataUnavailable, err))
	}
	categories, err := s.directory.CategoryTree(ctx, in.HouseholdID)
	if err != nil {
		return AssignmentResult{}, fmt.Errorf("budget: category tree: %w", errors.Join(shared.ErrDataUnavailable, err))
	}
	category, ok := findCategory(categories, in.CategoryID)
	if !ok {
		return AssignmentResult{}, shared.ErrUnknownCategory
	}
	if category.Type != CategoryTypeExpense {
		return AssignmentResult{}, fmt.Errorf("budget: income categories cannot be funded: %w", shared.ErrUnknownCategory)
	}

	period, err := ResolvePeriod(cfg.PeriodStartDay, in.Month)
	if err != nil {
		return AssignmentResult{}, err
	}
	month := period.Key()

	// The transaction must not be abandoned mid-flight; a torn write
	// would leave Ready-to-Assign inconsistent with the assignment table.
	writeCtx := context.WithoutCancel(ctx)

	var delta int64
	err = s.repo.WithTx(writeCtx, func(txCtx context.Context, tx TxRepository) error {
		previous, err := tx.AssignmentForUpdate(txCtx, in.HouseholdID, in.CategoryID, month)
		if err != nil {
			return err
		}
		if err := tx.UpsertAssignment(txCtx, in.HouseholdID, in.CategoryID, month, in.Amount); err != nil {
			return err
		}
		delta = in.Amount - previous
		if delta == 0 {
			return nil
		}
		return tx.ApplyReadyToAssignDelta(txCtx, in.HouseholdID, -delta)
	})
	if err != nil {
		return AssignmentResult{}, err
	}

	if err := s.cache.Bump(writeCtx, in.HouseholdID); err != nil {
		s.logWarn("budget cache bump", err)
	}

	result, err := s.periodStates(writeCtx, in.HouseholdID, categories, cfg, period)
	if err != nil {
		return AssignmentResult{}, err
	}
	readyToAssign, err := s.repo.ReadyToAssign(writeCtx, in.HouseholdID)
	if err != nil {
		return AssignmentResult{}, fmt.Errorf("budget: ready to assign: %w", errors.Join(shared.ErrDataUnavailable, err))
	}

	return AssignmentResult{
		CategoryID:       in.CategoryID,
		Month:            month,
		Amount:           in.Amount,
		Delta:            delta,
		NewAvailable:     result.States[in.CategoryID].Available,
		NewReadyToAssign: readyToAssign,
	}, nil
}

// ReadyToAssign returns the household's lifetime unassigned balance. It
// can legitimately be negative (over-budgeted).
func (s *Service) ReadyToAssign(ctx context.Context, householdID uuid.UUID) (int64, error) {
	amount, err := s.repo.ReadyToAssign(ctx, householdID)
	if err != nil {
		return 0, fmt.Errorf("budget: ready to assign: %w", errors.Join(shared.ErrDataUnavailable, err))
	}
	return amount, nil
}

// ReconcileResult reports the outcome of a Ready-to-Assign audit.
type ReconcileResult struct {
	Stored   int64 `json:"stored"`
	Derived  int64 `json:"derived"`
	Drift    int64 `json:"drift"`
	Repaired bool  `json:"repaired"`
}

// ReconcileReadyToAssign re-derives the Ready-to-Assign balance from
// source data (all income minus all assignments, all time) and repairs
// the incrementally maintained value when they disagree. Any drift is a
// correctness bug worth surfacing.
func (s *Service) ReconcileReadyToAssign(ctx context.Context, householdID uuid.UUID) (ReconcileResult, error) {
	stored, err := s.repo.ReadyToAssign(ctx, householdID)
	if err != nil {
		return ReconcileResult{}, err
	}
	derived, err := s.repo.DeriveReadyToAssign(ctx, householdID)
	if err != nil {
		return ReconcileResult{}, err
	}
	result := ReconcileResult{Stored: stored, Derived: derived, Drift: stored - derived}
	if result.Drift == 0 {
		return result, nil
	}
	if s.logger != nil {
		s.logger.Error("ready-to-assign drift detected",
			slog.String("household", householdID.String()),
			slog.Int64("stored", stored),
			slog.Int64("derived", derived),
		)
	}
	if err := s.repo.SetReadyToAssign(ctx, householdID, derived); err != nil {
		return ReconcileResult{}, err
	}
	if err := s.cache.Bump(ctx, householdID); err != nil {
		s.logWarn("budget cache bump", err)
	}
	result.Repaired = true
	return result, nil
}

// ListPriorities returns the user's priority watch markers.
func (s *Service) ListPriorities(ctx context.Context, userID uuid.UUID) ([]Priority, error) {
	return s.repo.ListPriorities(ctx, userID)
}

// PutPriority marks a category for the priority watch view.
func (s *Service) PutPriority(ctx context.Context, userID, householdID, categoryID uuid.UUID) error {
	categories, err := s.directory.CategoryTree(ctx, householdID)
	if err != nil {
		return fmt.Errorf("budget: category tree: %w", errors.Join(shared.ErrDataUnavailable, err))
	}
	if _, ok := findCategory(categories, categoryID); !ok {
		return shared.ErrUnknownCategory
	}
	return s.repo.PutPriority(ctx, userID, categoryID)
}

// DeletePriority removes a priority marker.
func (s *Service) DeletePriority(ctx context.Context, userID, categoryID uuid.UUID) error {
	return s.repo.DeletePriority(ctx, userID, categoryID)
}

func (s *Service) logWarn(msg string, err error) {
	if s.logger != nil {
		s.logger.Warn(msg, slog.Any("error", err))
	}
}

func findCategory(categories []Category, id uuid.UUID) (Category, bool) {
	for _, cat := range categories {
		if cat.ID == id {
			return cat, true
		}
	}
	return Category{}, false
}
