package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/xeipuuv/gojsonschema"

	"github.com/flowmate/flowmate/pkg/models"
	"github.com/flowmate/flowmate/pkg/persistence"
	"github.com/flowmate/flowmate/pkg/registry"
)

// ErrWorkflowNotFound is returned when a workflow is not found.
var ErrWorkflowNotFound = persistence.ErrWorkflowNotFound

// Scheduler keeps the cron entry table in sync with workflow mutations. A
// nil scheduler disables synchronization (API-only deployments and tests).
type Scheduler interface {
	ScheduleWorkflow(workflow *models.Workflow) bool
	UnscheduleWorkflow(workflowID string) bool
	RescheduleWorkflow(workflow *models.Workflow) bool
}

// Workflow implements workflow CRUD. Definitions are validated before they
// are persisted: struct constraints, trigger shape, and every action's
// parameter map against the registered action schema.
type Workflow struct {
	persistence persistence.Persistence
	registry    *registry.Registry
	scheduler   Scheduler
	validate    *validator.Validate
	logger      *slog.Logger
}

// NewWorkflow creates a new workflow service.
func NewWorkflow(p persistence.Persistence, reg *registry.Registry, scheduler Scheduler, logger *slog.Logger) *Workflow {
	return &Workflow{
		persistence: p,
		registry:    reg,
		scheduler:   scheduler,
		validate:    validator.New(),
		logger:      logger.With("module", "workflow_service"),
	}
}

// HealthCheck checks the health of the persistence layer.
func (w *Workflow) HealthCheck(ctx context.Context) (string, bool) {
	if w.persistence == nil {
		return "Persistence layer not initialized", false
	}

	err := w.persistence.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// List returns all stored workflows.
func (w *Workflow) List(ctx context.Context) ([]*models.Workflow, error) {
	workflows, err := w.persistence.WorkflowRepository().GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}

	return workflows, nil
}

// Fetch retrieves a workflow by its ID.
func (w *Workflow) Fetch(ctx context.Context, id string) (*models.Workflow, error) {
	workflow, err := w.persistence.WorkflowRepository().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if workflow == nil {
		return nil, ErrWorkflowNotFound
	}

	return workflow, nil
}

// Create validates and stores a new workflow, assigning it a fresh ID. A
// schedulable workflow is registered with the scheduler immediately.
func (w *Workflow) Create(ctx context.Context, workflow *models.Workflow) (*models.Workflow, error) {
	if workflow == nil {
		return nil, NewValidationError("Create", "WORKFLOW_NIL", "workflow cannot be nil", ErrWorkflowNil)
	}

	workflow.ID = uuid.New().String()

	if workflow.Status == "" {
		workflow.Status = models.WorkflowStatusActive
	}

	err := w.validateDefinition(workflow)
	if err != nil {
		return nil, err
	}

	err = w.persistence.WorkflowRepository().Save(ctx, workflow)
	if err != nil {
		return nil, fmt.Errorf("failed to create workflow: %w", err)
	}

	w.logger.InfoContext(ctx, "Workflow created", "workflow_id", workflow.ID, "name", workflow.Name)

	if w.scheduler != nil && w.scheduler.ScheduleWorkflow(workflow) {
		w.logger.InfoContext(ctx, "Workflow scheduled", "workflow_id", workflow.ID, "schedule", workflow.Trigger.Schedule)
	}

	return workflow, nil
}

// Update validates and stores a modified workflow, then resynchronizes its
// scheduler entry: a workflow that is no longer schedulable loses its
// entry, a still-schedulable one gets a fresh entry for its expression.
func (w *Workflow) Update(ctx context.Context, workflowID string, workflow *models.Workflow) (*models.Workflow, error) {
	if workflow == nil {
		return nil, NewValidationError("Update", "WORKFLOW_NIL", "workflow cannot be nil", ErrWorkflowNil)
	}

	existing, err := w.persistence.WorkflowRepository().GetByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	if existing == nil {
		return nil, ErrWorkflowNotFound
	}

	workflow.ID = workflowID
	workflow.CreatedAt = existing.CreatedAt

	if workflow.Status == "" {
		workflow.Status = existing.Status
	}

	err = w.validateDefinition(workflow)
	if err != nil {
		return nil, err
	}

	err = w.persistence.WorkflowRepository().Save(ctx, workflow)
	if err != nil {
		return nil, fmt.Errorf("failed to update workflow: %w", err)
	}

	w.logger.InfoContext(ctx, "Workflow updated", "workflow_id", workflowID)

	if w.scheduler != nil {
		w.scheduler.RescheduleWorkflow(workflow)
	}

	return workflow, nil
}

// Delete removes a workflow and its scheduler entry.
func (w *Workflow) Delete(ctx context.Context, workflowID string) error {
	existing, err := w.persistence.WorkflowRepository().GetByID(ctx, workflowID)
	if err != nil {
		return err
	}

	if existing == nil {
		return ErrWorkflowNotFound
	}

	err = w.persistence.WorkflowRepository().Delete(ctx, workflowID)
	if err != nil {
		return fmt.Errorf("failed to delete workflow: %w", err)
	}

	w.logger.InfoContext(ctx, "Workflow deleted", "workflow_id", workflowID)

	if w.scheduler != nil {
		w.scheduler.UnscheduleWorkflow(workflowID)
	}

	return nil
}

func (w *Workflow) validateDefinition(workflow *models.Workflow) error {
	err := w.validate.Struct(workflow)
	if err != nil {
		return NewValidationError("validateDefinition", "INVALID_WORKFLOW", err.Error(), ErrInvalidRequest)
	}

	err = w.validateTrigger(workflow.Trigger)
	if err != nil {
		return err
	}

	return w.validateActions(workflow.Actions)
}

func (w *Workflow) validateTrigger(trigger models.Trigger) error {
	switch trigger.Type {
	case models.TriggerCron:
		if trigger.Schedule == "" {
			return NewValidationError("validateTrigger", "SCHEDULE_REQUIRED",
				"cron trigger requires a schedule expression", ErrScheduleRequired)
		}

		_, err := cron.ParseStandard(trigger.Schedule)
		if err != nil {
			return NewValidationError("validateTrigger", "INVALID_CRON_EXPRESSION",
				fmt.Sprintf("invalid cron expression %q: %v", trigger.Schedule, err), ErrInvalidCronExpression)
		}
	case models.TriggerEvent:
		if trigger.Queue == "" {
			return NewValidationError("validateTrigger", "QUEUE_REQUIRED",
				"event trigger requires a queue name", ErrQueueNameRequired)
		}
	case models.TriggerManual:
	}

	return nil
}

func (w *Workflow) validateActions(actions []models.Action) error {
	for i, action := range actions {
		schema, ok := w.registry.ActionSchema(action.Type)
		if !ok {
			return NewValidationError("validateActions", "UNKNOWN_ACTION_TYPE",
				fmt.Sprintf("action %d has unknown type %q", i, action.Type), ErrUnknownActionType)
		}

		err := validateAgainstSchema(action.Parameters, schema)
		if err != nil {
			return NewValidationError("validateActions", "INVALID_ACTION_PARAMETERS",
				fmt.Sprintf("action %d (%s): %v", i, action.Type, err), ErrInvalidActionParameters)
		}
	}

	return nil
}

// validateAgainstSchema checks an action's parameter map against the JSON
// schema its factory declares.
func validateAgainstSchema(parameters map[string]any, schema map[string]any) error {
	if parameters == nil {
		parameters = map[string]any{}
	}

	schemaLoader := gojsonschema.NewGoLoader(schema)
	documentLoader := gojsonschema.NewGoLoader(parameters)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}

	if !result.Valid() {
		descriptions := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			descriptions = append(descriptions, desc.String())
		}

		return errors.New(strings.Join(descriptions, "; "))
	}

	return nil
}
