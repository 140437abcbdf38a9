// Package workflow implements the execution engine: it runs a workflow's
// ordered action list against a shared execution context, records execution
// logs, emits lifecycle events, and escalates repeatedly failing workflows
// to error status.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/flowmate/flowmate/pkg/eventbus"
	"github.com/flowmate/flowmate/pkg/events"
	"github.com/flowmate/flowmate/pkg/models"
	"github.com/flowmate/flowmate/pkg/otelhelper"
	"github.com/flowmate/flowmate/pkg/persistence"
	"github.com/flowmate/flowmate/pkg/registry"
)

// Failure escalation window: a workflow is disabled when at least
// escalationThreshold of its escalationWindow most recent execution logs
// carry status error.
const (
	escalationWindow    = 5
	escalationThreshold = 3
)

// ErrWorkflowNotActive rejects execution of paused or errored workflows.
var ErrWorkflowNotActive = errors.New("workflow is not active")

// inflight ties a running execution's context to the cancel function that
// aborts it.
type inflight struct {
	execution *models.ExecutionContext
	cancel    context.CancelFunc
}

// Executor runs workflows. It owns the in-flight execution table, so every
// component that starts executions (scheduler, API, event triggers) shares
// one instance.
type Executor struct {
	persistence persistence.Persistence
	registry    *registry.Registry
	eventBus    eventbus.EventBus
	logger      *slog.Logger
	tracer      trace.Tracer
	timeout     time.Duration

	mu       sync.RWMutex
	inflight map[string]*inflight
}

// NewExecutor creates an executor. The event bus may be nil; lifecycle
// events are then skipped.
func NewExecutor(
	persistence persistence.Persistence,
	registry *registry.Registry,
	eventBus eventbus.EventBus,
	logger *slog.Logger,
) *Executor {
	return &Executor{
		persistence: persistence,
		registry:    registry,
		eventBus:    eventBus,
		logger:      logger.With("module", "workflow_executor"),
		tracer:      otel.Tracer("flowmate/workflow"),
		inflight:    make(map[string]*inflight),
	}
}

// SetExecutionTimeout bounds every subsequent execution to the given
// duration; 0 disables the bound. Configure before the executor starts
// taking work.
func (e *Executor) SetExecutionTimeout(timeout time.Duration) {
	e.timeout = timeout
}

// ExecuteWorkflow runs every action of the workflow in order against a
// fresh execution context. It returns the aggregate result; on failure the
// result carries the action results collected so far alongside a non-nil
// error. Precondition failures (unknown id, inactive workflow) are
// rejected before any execution log exists.
func (e *Executor) ExecuteWorkflow(ctx context.Context, workflowID string) (*models.ExecutionResult, error) {
	return e.ExecuteWorkflowWithInput(ctx, workflowID, nil)
}

// ExecuteWorkflowWithInput is ExecuteWorkflow with a trigger payload: the
// input pairs seed the execution context variables before the first action
// runs, so queue messages are addressable by the same names actions use
// for stored results.
func (e *Executor) ExecuteWorkflowWithInput(ctx context.Context, workflowID string, input map[string]any) (*models.ExecutionResult, error) {
	logger := e.logger.With("workflow_id", workflowID)

	workflow, err := e.persistence.WorkflowRepository().GetByID(ctx, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch workflow %s: %w", workflowID, err)
	}

	if workflow == nil {
		return nil, fmt.Errorf("workflow %s: %w", workflowID, persistence.ErrWorkflowNotFound)
	}

	if !workflow.IsActive() {
		return nil, fmt.Errorf("workflow %s has status %s: %w", workflowID, workflow.Status, ErrWorkflowNotActive)
	}

	variables := make(map[string]any, len(input))
	for name, value := range input {
		variables[name] = value
	}

	executionCtx := &models.ExecutionContext{
		ID:         generateExecutionID(),
		WorkflowID: workflowID,
		StartedAt:  time.Now().UTC(),
		Variables:  variables,
	}
	logger = logger.With("execution_id", executionCtx.ID)

	// The run context flows into action dispatch only: cancelling it via
	// StopExecution or the timeout aborts handlers without cutting off the
	// terminal log and event writes below.
	runCtx, cancel := e.newRunContext(ctx)
	defer cancel()

	e.track(executionCtx, cancel)
	defer e.untrack(executionCtx.ID)

	ctx, span := e.tracer.Start(ctx, "workflow.execute", trace.WithAttributes(
		attribute.String(otelhelper.WorkflowIDKey, workflowID),
		attribute.String(otelhelper.WorkflowNameKey, workflow.Name),
		attribute.String(otelhelper.ExecutionIDKey, executionCtx.ID),
		attribute.String(otelhelper.TriggerTypeKey, string(workflow.Trigger.Type)),
	))
	defer span.End()

	logger.InfoContext(ctx, "Workflow execution started", "workflow_name", workflow.Name, "actions", len(workflow.Actions))

	e.appendLog(ctx, logger, &models.ExecutionLog{
		WorkflowID:  workflowID,
		ExecutionID: executionCtx.ID,
		Status:      models.ExecutionStatusRunning,
		Message:     "execution started",
		ExecutedAt:  executionCtx.StartedAt,
	})

	e.publish(ctx, logger, workflowID, events.WorkflowExecutionStarted{
		BaseEvent:    events.NewBaseEvent(events.WorkflowExecutionStartedEvent, workflowID),
		ExecutionID:  executionCtx.ID,
		WorkflowName: workflow.Name,
		TriggerType:  string(workflow.Trigger.Type),
	})

	results, runErr := e.runActions(runCtx, logger, workflow, executionCtx)

	result := &models.ExecutionResult{
		ExecutionID: executionCtx.ID,
		WorkflowID:  workflowID,
		Success:     runErr == nil,
		Results:     results,
		Duration:    time.Since(executionCtx.StartedAt),
	}

	if runErr != nil {
		result.Error = runErr.Error()
		span.SetStatus(codes.Error, runErr.Error())
		e.finishFailed(ctx, logger, workflow, result)

		return result, runErr
	}

	e.finishSucceeded(ctx, logger, workflow, result)

	return result, nil
}

// RunningExecutions returns snapshot copies of every in-flight execution
// context.
func (e *Executor) RunningExecutions() []*models.ExecutionContext {
	e.mu.RLock()
	defer e.mu.RUnlock()

	running := make([]*models.ExecutionContext, 0, len(e.inflight))

	for _, entry := range e.inflight {
		snapshot := *entry.execution
		snapshot.Variables = make(map[string]any, len(entry.execution.Variables))

		for name, value := range entry.execution.Variables {
			snapshot.Variables[name] = value
		}

		running = append(running, &snapshot)
	}

	return running
}

// RunningExecution returns a snapshot copy of one in-flight execution.
func (e *Executor) RunningExecution(executionID string) (*models.ExecutionContext, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	entry, ok := e.inflight[executionID]
	if !ok {
		return nil, false
	}

	snapshot := *entry.execution
	snapshot.Variables = make(map[string]any, len(entry.execution.Variables))

	for name, value := range entry.execution.Variables {
		snapshot.Variables[name] = value
	}

	return &snapshot, true
}

// RunningExecutionCount reports how many executions are in flight.
func (e *Executor) RunningExecutionCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return len(e.inflight)
}

// StopExecution cancels the run's context and removes its in-flight entry.
// Handlers observe the cancellation at their next suspension point. Returns
// false when no such execution is running.
func (e *Executor) StopExecution(executionID string) bool {
	e.mu.Lock()
	entry, ok := e.inflight[executionID]
	delete(e.inflight, executionID)
	e.mu.Unlock()

	if !ok {
		return false
	}

	entry.cancel()
	e.logger.Warn("Execution stopped", "execution_id", executionID, "workflow_id", entry.execution.WorkflowID)

	return true
}

func (e *Executor) newRunContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.timeout > 0 {
		return context.WithTimeout(ctx, e.timeout)
	}

	return context.WithCancel(ctx)
}

func (e *Executor) runActions(
	ctx context.Context,
	logger *slog.Logger,
	workflow *models.Workflow,
	executionCtx *models.ExecutionContext,
) ([]models.ActionResult, error) {
	results := make([]models.ActionResult, 0, len(workflow.Actions))

	for i, action := range workflow.Actions {
		if err := ctx.Err(); err != nil {
			return results, fmt.Errorf("execution aborted after %d of %d actions: %w", i, len(workflow.Actions), err)
		}

		actionLogger := logger.With("action_type", action.Type, "action_index", i)

		result := e.runAction(ctx, actionLogger, action, executionCtx)
		results = append(results, result)

		if !result.Success {
			return results, fmt.Errorf("action %d (%s) failed: %s", i+1, action.Type, result.Error)
		}

		if name := action.StoreAs(); name != "" {
			e.storeVariable(executionCtx, name, result.Output)
			actionLogger.DebugContext(ctx, "Action output stored", "variable", name)
		}
	}

	return results, nil
}

func (e *Executor) runAction(
	ctx context.Context,
	logger *slog.Logger,
	action models.Action,
	executionCtx *models.ExecutionContext,
) models.ActionResult {
	ctx, span := e.tracer.Start(ctx, "workflow.action", trace.WithAttributes(
		attribute.String(otelhelper.ActionTypeKey, action.Type),
		attribute.String(otelhelper.ExecutionIDKey, executionCtx.ID),
	))
	defer span.End()

	started := time.Now()
	result := models.ActionResult{ActionType: action.Type}

	handler, err := e.registry.CreateAction(action.Type, action.Parameters)
	if err != nil {
		result.Error = err.Error()
		result.Duration = time.Since(started)
		span.SetStatus(codes.Error, err.Error())
		logger.ErrorContext(ctx, "Failed to create action", "error", err)

		return result
	}

	output, err := handler.Execute(ctx, *executionCtx, logger)
	result.Duration = time.Since(started)

	if err != nil {
		result.Error = err.Error()
		span.SetStatus(codes.Error, err.Error())
		logger.ErrorContext(ctx, "Action failed", "error", err, "duration", result.Duration)

		return result
	}

	result.Success = true
	result.Output = output
	logger.InfoContext(ctx, "Action completed", "duration", result.Duration)

	return result
}

func (e *Executor) finishSucceeded(ctx context.Context, logger *slog.Logger, workflow *models.Workflow, result *models.ExecutionResult) {
	e.appendLog(ctx, logger, &models.ExecutionLog{
		WorkflowID:  workflow.ID,
		ExecutionID: result.ExecutionID,
		Status:      models.ExecutionStatusSuccess,
		Message:     fmt.Sprintf("executed %d actions", len(result.Results)),
		ExecutedAt:  time.Now().UTC(),
		Duration:    result.Duration,
	})

	e.publish(ctx, logger, workflow.ID, events.WorkflowExecutionCompleted{
		BaseEvent:       events.NewBaseEvent(events.WorkflowExecutionCompletedEvent, workflow.ID),
		ExecutionID:     result.ExecutionID,
		ActionsExecuted: len(result.Results),
		Duration:        result.Duration,
	})

	logger.InfoContext(ctx, "Workflow execution completed", "actions", len(result.Results), "duration", result.Duration)
}

func (e *Executor) finishFailed(ctx context.Context, logger *slog.Logger, workflow *models.Workflow, result *models.ExecutionResult) {
	e.appendLog(ctx, logger, &models.ExecutionLog{
		WorkflowID:  workflow.ID,
		ExecutionID: result.ExecutionID,
		Status:      models.ExecutionStatusError,
		Message:     result.Error,
		ExecutedAt:  time.Now().UTC(),
		Duration:    result.Duration,
	})

	e.publish(ctx, logger, workflow.ID, events.WorkflowExecutionFailed{
		BaseEvent:       events.NewBaseEvent(events.WorkflowExecutionFailedEvent, workflow.ID),
		ExecutionID:     result.ExecutionID,
		Error:           result.Error,
		ActionsExecuted: len(result.Results),
		Duration:        result.Duration,
	})

	logger.ErrorContext(ctx, "Workflow execution failed", "error", result.Error, "actions", len(result.Results), "duration", result.Duration)

	e.escalateFailures(ctx, logger, workflow)
}

// escalateFailures disables a workflow once escalationThreshold of its
// escalationWindow most recent execution logs are errors. Called after the
// terminal error log is appended, so the current failure counts.
func (e *Executor) escalateFailures(ctx context.Context, logger *slog.Logger, workflow *models.Workflow) {
	recent, err := e.persistence.ExecutionLogRepository().Recent(ctx, workflow.ID, escalationWindow)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to load recent execution logs for escalation", "error", err)

		return
	}

	failures := 0

	for _, entry := range recent {
		if entry.Status == models.ExecutionStatusError {
			failures++
		}
	}

	if failures < escalationThreshold {
		return
	}

	err = e.persistence.WorkflowRepository().UpdateStatus(ctx, workflow.ID, models.WorkflowStatusError)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to disable repeatedly failing workflow", "error", err)

		return
	}

	logger.WarnContext(ctx, "Workflow disabled after repeated failures", "recent_failures", failures, "window", escalationWindow)

	e.publish(ctx, logger, workflow.ID, events.WorkflowStatusChanged{
		BaseEvent:      events.NewBaseEvent(events.WorkflowStatusChangedEvent, workflow.ID),
		PreviousStatus: workflow.Status,
		NewStatus:      models.WorkflowStatusError,
		Reason:         fmt.Sprintf("%d of the last %d executions failed", failures, escalationWindow),
	})
}

// appendLog records an execution log entry. Persistence failures are logged
// and swallowed: recording must never fail the run.
func (e *Executor) appendLog(ctx context.Context, logger *slog.Logger, entry *models.ExecutionLog) {
	err := e.persistence.ExecutionLogRepository().Append(ctx, entry)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to append execution log", "error", err, "status", entry.Status)
	}
}

// publish emits a lifecycle event. A nil bus and publish errors are
// tolerated: notification is best-effort.
func (e *Executor) publish(ctx context.Context, logger *slog.Logger, key string, event eventbus.Event) {
	if e.eventBus == nil {
		return
	}

	err := e.eventBus.Publish(ctx, key, event)
	if err != nil {
		logger.WarnContext(ctx, "Failed to publish workflow event", "error", err, "event_type", event.GetType())
	}
}

func (e *Executor) track(executionCtx *models.ExecutionContext, cancel context.CancelFunc) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.inflight[executionCtx.ID] = &inflight{execution: executionCtx, cancel: cancel}
}

func (e *Executor) untrack(executionID string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	delete(e.inflight, executionID)
}

// storeVariable writes an action output into the execution's variable bag.
// Writes share the executor mutex so snapshot reads never race them.
func (e *Executor) storeVariable(executionCtx *models.ExecutionContext, name string, value any) {
	e.mu.Lock()
	defer e.mu.Unlock()

	executionCtx.Variables[name] = value
}

// generateExecutionID generates a unique execution ID.
func generateExecutionID() string {
	return fmt.Sprintf("exec-%s", uuid.New().String())
}
