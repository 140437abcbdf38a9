package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/flowmate/flowmate/pkg/models"
	"github.com/flowmate/flowmate/pkg/persistence"
	"github.com/flowmate/flowmate/pkg/triggers/queue"
	"github.com/flowmate/flowmate/pkg/workflow"
)

// EventTriggerManager owns one queue consumer per active event-triggered
// workflow. Consumers start and stop with the process; workflows saved
// while the server runs pick up their consumer on the next start.
type EventTriggerManager struct {
	workflows persistence.WorkflowRepository
	executor  *workflow.Executor
	redisURL  string
	logger    *slog.Logger

	mu        sync.Mutex
	consumers map[string]*queue.Trigger
}

func NewEventTriggerManager(
	workflows persistence.WorkflowRepository,
	executor *workflow.Executor,
	redisURL string,
	logger *slog.Logger,
) *EventTriggerManager {
	return &EventTriggerManager{
		workflows: workflows,
		executor:  executor,
		redisURL:  redisURL,
		logger:    logger.With("module", "event_triggers"),
		consumers: make(map[string]*queue.Trigger),
	}
}

// Start begins consuming for every active workflow with an event trigger.
// A consumer that cannot start is logged and skipped.
func (m *EventTriggerManager) Start(ctx context.Context) error {
	workflows, err := m.workflows.GetActive(ctx)
	if err != nil {
		return fmt.Errorf("failed to load workflows for event triggers: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, wf := range workflows {
		if wf.Trigger.Type != models.TriggerEvent {
			continue
		}

		m.startConsumer(ctx, wf)
	}

	m.logger.InfoContext(ctx, "Event trigger consumers started", "count", len(m.consumers))

	return nil
}

// startConsumer is called with the mutex held.
func (m *EventTriggerManager) startConsumer(ctx context.Context, wf *models.Workflow) {
	config := map[string]any{
		"queue": wf.Trigger.Queue,
	}

	if m.redisURL != "" {
		config["connection"] = map[string]any{"url": m.redisURL}
	}

	trigger, err := queue.NewTrigger(config, m.logger)
	if err != nil {
		m.logger.ErrorContext(ctx, "Failed to build queue trigger", "workflow_id", wf.ID, "error", err)

		return
	}

	workflowID := wf.ID

	err = trigger.Start(ctx, func(ctx context.Context, data map[string]any) error {
		_, err := m.executor.ExecuteWorkflowWithInput(ctx, workflowID, data)

		return err
	})
	if err != nil {
		m.logger.ErrorContext(ctx, "Failed to start queue trigger",
			"workflow_id", workflowID, "queue", wf.Trigger.Queue, "error", err)

		return
	}

	m.consumers[workflowID] = trigger
}

// Count reports how many consumers are running.
func (m *EventTriggerManager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.consumers)
}

// Stop drains every consumer and waits for the executions they dispatched.
func (m *EventTriggerManager) Stop(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error

	for workflowID, trigger := range m.consumers {
		err := trigger.Stop(ctx)
		if err != nil {
			errs = append(errs, fmt.Errorf("stop queue trigger for workflow %s: %w", workflowID, err))
		}
	}

	clear(m.consumers)

	return errors.Join(errs...)
}
