package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/hearthledger/hearthledger/internal/budget"
	"github.com/hearthledger/hearthledger/internal/household"
	jobmetrics "github.com/hearthledger/hearthledger/internal/jobs"
)

// BudgetWarmupJob pre-populates the budget view cache for every
// household so the first morning request serves hot.
type BudgetWarmupJob struct {
	Budget     *budget.Service
	Households *household.Service
	Logger     *slog.Logger
	Metrics    *jobmetrics.Metrics
	clock      func() time.Time
}

// NewBudgetWarmupJob wires dependencies for the warmup handler.
func NewBudgetWarmupJob(budgetSvc *budget.Service, households *household.Service, logger *slog.Logger, metrics *jobmetrics.Metrics) *BudgetWarmupJob {
	return &BudgetWarmupJob{
		Budget:     budgetSvc,
		Households: households,
		Logger:     logger,
		Metrics:    metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes budget warmup tasks.
func (j *BudgetWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Budget == nil || j.Households == nil {
		return errors.New("budget warmup: handler not configured")
	}
	var payload BudgetWarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	asOf := payload.AsOf
	if asOf.IsZero() {
		asOf = j.now()
	}

	tracker := j.metrics().Track(TaskBudgetWarmup)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(slog.Time("as_of", asOf))
	logger.Info("starting budget warmup")

	ids, err := j.Households.ListIDs(ctx)
	if err != nil {
		resultErr = err
		logger.Error("list households", slog.Any("error", err))
		return resultErr
	}

	warmed := 0
	for _, id := range ids {
		if err := j.warmHousehold(ctx, id, asOf); err != nil {
			resultErr = err
			logger.Error("warm household", slog.String("household", id.String()), slog.Any("error", err))
			return resultErr
		}
		warmed++
	}

	logger.Info("completed budget warmup", slog.Int("households", warmed))
	return resultErr
}

func (j *BudgetWarmupJob) warmHousehold(ctx context.Context, id uuid.UUID, asOf time.Time) error {
	// Bound each household so one slow rollover chain cannot stall the run.
	warmCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	if _, err := j.Budget.GetView(warmCtx, id, asOf); err != nil {
		return err
	}
	// Previous period stays one tap away in every budgeting client.
	if _, err := j.Budget.GetView(warmCtx, id, asOf.AddDate(0, -1, 0)); err != nil {
		return err
	}
	return nil
}

func (j *BudgetWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskBudgetWarmup))
	}
	return slog.Default().With(slog.String("job", TaskBudgetWarmup))
}

func (j *BudgetWarmupJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *BudgetWarmupJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
