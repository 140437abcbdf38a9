package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/flowmate/flowmate/pkg/models"
	"github.com/flowmate/flowmate/pkg/persistence"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

// Executor abstracts the workflow engine for the API layer.
type Executor interface {
	ExecuteWorkflow(ctx context.Context, workflowID string) (*models.ExecutionResult, error)
	RunningExecutions() []*models.ExecutionContext
	StopExecution(executionID string) bool
}

// TriggerScheduler routes manual triggers through the scheduler so cron
// workflows keep their overlap guard even when triggered by hand.
type TriggerScheduler interface {
	TriggerWorkflow(workflowID string) bool
}

// Trigger dispatch modes.
const (
	TriggerModeScheduled = "scheduled"
	TriggerModeDirect    = "direct"
)

// TriggerOutcome reports how a manual trigger was dispatched. Result is
// only set for direct executions; scheduled dispatch runs asynchronously
// on the scheduler's runner.
type TriggerOutcome struct {
	WorkflowID string                  `json:"workflow_id"`
	Mode       string                  `json:"mode"`
	Result     *models.ExecutionResult `json:"result,omitempty"`
}

// Execution exposes execution control and history to the API layer.
type Execution struct {
	persistence persistence.Persistence
	executor    Executor
	scheduler   TriggerScheduler
	logger      *slog.Logger
}

// NewExecution creates a new execution service. The scheduler may be nil;
// triggers then always execute directly.
func NewExecution(p persistence.Persistence, executor Executor, scheduler TriggerScheduler, logger *slog.Logger) *Execution {
	return &Execution{
		persistence: p,
		executor:    executor,
		scheduler:   scheduler,
		logger:      logger.With("module", "execution_service"),
	}
}

// Trigger starts the workflow. Workflows with a scheduler entry are fired
// through the scheduler, which enforces the overlap guard; everything else
// executes directly and synchronously. A failed run is a successful trigger:
// the outcome carries the failed result.
func (e *Execution) Trigger(ctx context.Context, workflowID string) (*TriggerOutcome, error) {
	workflow, err := e.persistence.WorkflowRepository().GetByID(ctx, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch workflow %s: %w", workflowID, err)
	}

	if workflow == nil {
		return nil, ErrWorkflowNotFound
	}

	if e.scheduler != nil && e.scheduler.TriggerWorkflow(workflowID) {
		e.logger.InfoContext(ctx, "Workflow triggered through scheduler", "workflow_id", workflowID)

		return &TriggerOutcome{WorkflowID: workflowID, Mode: TriggerModeScheduled}, nil
	}

	result, err := e.executor.ExecuteWorkflow(ctx, workflowID)
	if err != nil && result == nil {
		return nil, err
	}

	return &TriggerOutcome{WorkflowID: workflowID, Mode: TriggerModeDirect, Result: result}, nil
}

// Logs returns the workflow's most recent execution log records, newest
// first. The limit is clamped to [1, 100]; non-positive values use the
// default of 20.
func (e *Execution) Logs(ctx context.Context, workflowID string, limit int) ([]*models.ExecutionLog, error) {
	workflow, err := e.persistence.WorkflowRepository().GetByID(ctx, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch workflow %s: %w", workflowID, err)
	}

	if workflow == nil {
		return nil, ErrWorkflowNotFound
	}

	entries, err := e.persistence.ExecutionLogRepository().Recent(ctx, workflowID, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch execution logs for workflow %s: %w", workflowID, err)
	}

	return entries, nil
}

// Running returns snapshots of the currently in-flight executions.
func (e *Execution) Running(_ context.Context) []*models.ExecutionContext {
	return e.executor.RunningExecutions()
}

// Stop cancels an in-flight execution by its id.
func (e *Execution) Stop(ctx context.Context, executionID string) error {
	if !e.executor.StopExecution(executionID) {
		return ErrExecutionNotFound
	}

	e.logger.InfoContext(ctx, "Execution stopped", "execution_id", executionID)

	return nil
}

// MetricSamples returns the most recent system usage samples, newest first,
// with the same limit clamping as Logs.
func (e *Execution) MetricSamples(ctx context.Context, limit int) ([]*models.MetricSample, error) {
	samples, err := e.persistence.MetricRepository().Recent(ctx, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch metric samples: %w", err)
	}

	return samples, nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultHistoryLimit
	}

	if limit > maxHistoryLimit {
		return maxHistoryLimit
	}

	return limit
}
