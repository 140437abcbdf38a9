// Package persistence defines the storage contracts consumed by the engine,
// the scheduler, and the API layer.
package persistence

import (
	"context"

	"github.com/flowmate/flowmate/pkg/models"
)

// WorkflowRepository is the source of truth for workflow definitions and
// status transitions. GetByID returns (nil, nil) when no workflow exists
// for the id; callers decide whether that is an error.
type WorkflowRepository interface {
	GetAll(ctx context.Context) ([]*models.Workflow, error)
	GetActive(ctx context.Context) ([]*models.Workflow, error)
	GetByID(ctx context.Context, id string) (*models.Workflow, error)
	Save(ctx context.Context, workflow *models.Workflow) error
	Delete(ctx context.Context, id string) error
	UpdateStatus(ctx context.Context, id string, status models.WorkflowStatus) error
}

// ExecutionLogRepository is the append-only record of execution attempts.
// Recent returns the newest entries first, capped at limit; the failure
// escalation rule counts error records in that window.
type ExecutionLogRepository interface {
	Append(ctx context.Context, entry *models.ExecutionLog) error
	Recent(ctx context.Context, workflowID string, limit int) ([]*models.ExecutionLog, error)
}

// MetricRepository stores the system usage samples taken by the
// check_system_metrics action.
type MetricRepository interface {
	RecordSample(ctx context.Context, sample *models.MetricSample) error
	Recent(ctx context.Context, limit int) ([]*models.MetricSample, error)
}

// Persistence aggregates the repositories of one storage backend.
type Persistence interface {
	WorkflowRepository() WorkflowRepository
	ExecutionLogRepository() ExecutionLogRepository
	MetricRepository() MetricRepository
	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}
