package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/hearthledger/hearthledger/internal/jobs"
	"github.com/hearthledger/hearthledger/internal/ledger"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// RecurringInstanceJob materializes due recurring transaction templates
// into concrete ledger transactions.
type RecurringInstanceJob struct {
	Ledger  *ledger.Service
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewRecurringInstanceJob wires dependencies for the recurring handler.
func NewRecurringInstanceJob(ledgerSvc *ledger.Service, logger *slog.Logger, metrics *jobmetrics.Metrics) *RecurringInstanceJob {
	return &RecurringInstanceJob{
		Ledger:  ledgerSvc,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes recurring materialization tasks.
func (j *RecurringInstanceJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Ledger == nil {
		return errors.New("recurring instance: handler not configured")
	}
	var payload RecurringInstancePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	asOf := payload.AsOf
	if asOf.IsZero() {
		asOf = j.now()
	}

	tracker := j.metrics().Track(TaskRecurringInstance)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(slog.Time("as_of", asOf))
	logger.Info("starting recurring materialization")

	created, err := j.Ledger.InstanceDue(ctx, asOf)
	if err != nil {
		resultErr = err
		logger.Error("materialize recurring transactions", slog.Any("error", err))
		return resultErr
	}

	logger.Info("completed recurring materialization", slog.Int("created", created))
	return resultErr
}

func (j *RecurringInstanceJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskRecurringInstance))
	}
	return slog.Default().With(slog.String("job", TaskRecurringInstance))
}

func (j *RecurringInstanceJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *RecurringInstanceJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
