package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/hearthledger/hearthledger/internal/budget"
	"github.com/hearthledger/hearthledger/internal/household"
	jobmetrics "github.com/hearthledger/hearthledger/internal/jobs"
)

// ReadyToAssignAuditJob re-derives ready-to-assign balances from source
// data and repairs any drift in the incrementally maintained values.
type ReadyToAssignAuditJob struct {
	Budget     *budget.Service
	Households *household.Service
	Logger     *slog.Logger
	Metrics    *jobmetrics.Metrics
}

// NewReadyToAssignAuditJob wires dependencies for the audit handler.
func NewReadyToAssignAuditJob(budgetSvc *budget.Service, households *household.Service, logger *slog.Logger, metrics *jobmetrics.Metrics) *ReadyToAssignAuditJob {
	return &ReadyToAssignAuditJob{
		Budget:     budgetSvc,
		Households: households,
		Logger:     logger,
		Metrics:    metrics,
	}
}

// Handle processes ready-to-assign audit tasks.
func (j *ReadyToAssignAuditJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Budget == nil {
		return errors.New("rta audit: handler not configured")
	}
	var payload ReadyToAssignAuditPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	tracker := j.metrics().Track(TaskReadyToAssignAudit)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	ids, err := j.resolveScope(ctx, payload)
	if err != nil {
		resultErr = err
		j.logger().Error("resolve audit scope", slog.Any("error", err))
		return resultErr
	}

	logger := j.logger()
	logger.Info("starting ready-to-assign audit", slog.Int("households", len(ids)))

	repaired := 0
	for _, id := range ids {
		result, err := j.Budget.ReconcileReadyToAssign(ctx, id)
		if err != nil {
			resultErr = err
			logger.Error("reconcile household", slog.String("household", id.String()), slog.Any("error", err))
			return resultErr
		}
		if result.Repaired {
			repaired++
			j.metrics().AddDriftRepair(id.String())
			logger.Warn("repaired ready-to-assign drift",
				slog.String("household", id.String()),
				slog.Int64("drift", result.Drift),
			)
		}
	}

	logger.Info("completed ready-to-assign audit",
		slog.Int("households", len(ids)),
		slog.Int("repaired", repaired),
	)
	return resultErr
}

func (j *ReadyToAssignAuditJob) resolveScope(ctx context.Context, payload ReadyToAssignAuditPayload) ([]uuid.UUID, error) {
	if payload.HouseholdID != "" {
		id, err := uuid.Parse(payload.HouseholdID)
		if err != nil {
			return nil, err
		}
		return []uuid.UUID{id}, nil
	}
	if j.Households == nil {
		return nil, errors.New("rta audit: household service not configured")
	}
	return j.Households.ListIDs(ctx)
}

func (j *ReadyToAssignAuditJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskReadyToAssignAudit))
	}
	return slog.Default().With(slog.String("job", TaskReadyToAssignAudit))
}

func (j *ReadyToAssignAuditJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
