package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskRecurringInstance materializes due recurring transactions.
	TaskRecurringInstance = "recurring:instance"
	// TaskReadyToAssignAudit reconciles stored ready-to-assign balances.
	TaskReadyToAssignAudit = "budget:rta-audit"
	// TaskBudgetWarmup pre-populates budget view caches.
	TaskBudgetWarmup = "budget:warmup"
)

// RecurringInstancePayload scopes a recurring materialization run.
type RecurringInstancePayload struct {
	AsOf time.Time `json:"as_of"`
}

// NewRecurringInstanceTask constructs an Asynq task.
func NewRecurringInstanceTask(payload RecurringInstancePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskRecurringInstance, data), nil
}

// ReadyToAssignAuditPayload scopes an audit run. An empty HouseholdID
// means every household.
type ReadyToAssignAuditPayload struct {
	HouseholdID string `json:"household_id,omitempty"`
}

// NewReadyToAssignAuditTask constructs an Asynq task.
func NewReadyToAssignAuditTask(payload ReadyToAssignAuditPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReadyToAssignAudit, data), nil
}

// BudgetWarmupPayload scopes a warmup run.
type BudgetWarmupPayload struct {
	AsOf time.Time `json:"as_of"`
}

// NewBudgetWarmupTask constructs an Asynq task.
func NewBudgetWarmupTask(payload BudgetWarmupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskBudgetWarmup, data), nil
}
