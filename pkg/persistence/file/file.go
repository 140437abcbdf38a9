// Package file provides file-based persistence for workflows, execution
// logs, and metric samples.
package file

import (
	"context"
	"os"
	"strings"

	"github.com/flowmate/flowmate/pkg/persistence"
)

// Persistence implements the persistence.Persistence interface on the file
// system: one JSON document per workflow, JSONL append files for execution
// logs and metric samples.
type Persistence struct {
	root         string
	workflowRepo *WorkflowRepository
	logRepo      *ExecutionLogRepository
	metricRepo   *MetricRepository
}

// NewPersistence creates a new instance rooted at the given directory. A
// file:// prefix is stripped so database-URL style configuration works.
func NewPersistence(root string) persistence.Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	return &Persistence{
		root:         cleanRoot,
		workflowRepo: NewWorkflowRepository(cleanRoot),
		logRepo:      NewExecutionLogRepository(cleanRoot),
		metricRepo:   NewMetricRepository(cleanRoot),
	}
}

// Close performs any necessary cleanup. For file-based persistence, there is nothing to clean up.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}

// HealthCheck checks if the persistence layer is healthy by verifying the root directory exists.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(fp.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

// WorkflowRepository returns the workflow repository implementation for file persistence.
func (fp *Persistence) WorkflowRepository() persistence.WorkflowRepository {
	return fp.workflowRepo
}

// ExecutionLogRepository returns the execution log repository implementation for file persistence.
func (fp *Persistence) ExecutionLogRepository() persistence.ExecutionLogRepository {
	return fp.logRepo
}

// MetricRepository returns the metric repository implementation for file persistence.
func (fp *Persistence) MetricRepository() persistence.MetricRepository {
	return fp.metricRepo
}
