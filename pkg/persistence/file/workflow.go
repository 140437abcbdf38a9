package file

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/flowmate/flowmate/pkg/models"
	"github.com/flowmate/flowmate/pkg/persistence"
)

// WorkflowRepository handles workflow-related file operations.
type WorkflowRepository struct {
	root string // File system root for storing workflows
}

// NewWorkflowRepository creates a new workflow repository.
func NewWorkflowRepository(root string) *WorkflowRepository {
	return &WorkflowRepository{root: root}
}

// validateWorkflowID validates that the workflow ID is safe for file operations.
func validateWorkflowID(workflowID string) error {
	if workflowID == "" {
		return fmt.Errorf("%w: workflow ID cannot be empty", persistence.ErrInvalidIdentifier)
	}

	// Check for path traversal attempts
	if strings.Contains(workflowID, "..") || strings.Contains(workflowID, "/") || strings.Contains(workflowID, "\\") {
		return fmt.Errorf("%w: workflow ID contains invalid characters", persistence.ErrInvalidIdentifier)
	}

	return nil
}

// GetAll loads every stored workflow, sorted by creation time ascending.
func (wr *WorkflowRepository) GetAll(ctx context.Context) ([]*models.Workflow, error) {
	workflowsDir := filepath.Join(wr.root, "workflows")
	if _, err := os.Stat(workflowsDir); os.IsNotExist(err) {
		return []*models.Workflow{}, nil
	}

	root := os.DirFS(workflowsDir)

	jsonFiles, err := fs.Glob(root, "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list workflow files: %w", err)
	}

	workflows := make([]*models.Workflow, 0, len(jsonFiles))

	for _, file := range jsonFiles {
		workflowID := strings.TrimSuffix(file, ".json")

		workflow, err := wr.GetByID(ctx, workflowID)
		if err != nil {
			return nil, fmt.Errorf("failed to load workflow %s: %w", workflowID, err)
		}

		if workflow != nil {
			workflows = append(workflows, workflow)
		}
	}

	sort.Slice(workflows, func(i, j int) bool {
		return workflows[i].CreatedAt.Before(workflows[j].CreatedAt)
	})

	return workflows, nil
}

// GetActive returns every workflow with status active.
func (wr *WorkflowRepository) GetActive(ctx context.Context) ([]*models.Workflow, error) {
	workflows, err := wr.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	active := make([]*models.Workflow, 0, len(workflows))

	for _, workflow := range workflows {
		if workflow.IsActive() {
			active = append(active, workflow)
		}
	}

	return active, nil
}

// GetByID retrieves a workflow by its ID from the file system. Returns
// (nil, nil) when no workflow exists for the id.
func (wr *WorkflowRepository) GetByID(_ context.Context, workflowID string) (*models.Workflow, error) {
	if err := validateWorkflowID(workflowID); err != nil {
		return nil, persistence.NewWorkflowError("GetByID", workflowID, err)
	}

	filePath := filepath.Clean(path.Join(wr.root, "workflows", workflowID+".json"))

	body, err := os.ReadFile(filePath) // #nosec G304 -- filePath is validated and constructed safely
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to fetch workflow %s: %w", workflowID, err)
	}

	var workflow models.Workflow

	err = json.Unmarshal(body, &workflow)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal workflow %s: %w", workflowID, err)
	}

	return &workflow, nil
}

// Save writes a workflow document, stamping CreatedAt on first save and
// UpdatedAt on every save.
func (wr *WorkflowRepository) Save(_ context.Context, workflow *models.Workflow) error {
	if err := validateWorkflowID(workflow.ID); err != nil {
		return persistence.NewWorkflowError("Save", workflow.ID, err)
	}

	err := os.MkdirAll(filepath.Join(wr.root, "workflows"), 0750)
	if err != nil {
		return fmt.Errorf("failed to create workflows directory: %w", err)
	}

	now := time.Now().UTC()
	if workflow.CreatedAt.IsZero() {
		workflow.CreatedAt = now
	}

	workflow.UpdatedAt = now

	data, err := json.MarshalIndent(workflow, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal workflow %s: %w", workflow.ID, err)
	}

	filePath := path.Join(wr.root, "workflows", workflow.ID+".json")

	return os.WriteFile(filePath, data, 0600)
}

// Delete removes a workflow by its ID. Deleting a missing workflow is not
// an error.
func (wr *WorkflowRepository) Delete(_ context.Context, id string) error {
	if err := validateWorkflowID(id); err != nil {
		return persistence.NewWorkflowError("Delete", id, err)
	}

	filePath := path.Join(wr.root, "workflows", id+".json")

	err := os.Remove(filePath)

	if err != nil && os.IsNotExist(err) {
		return nil
	}

	if err != nil {
		return fmt.Errorf("failed to delete workflow %s: %w", id, err)
	}

	return nil
}

// UpdateStatus transitions a stored workflow to the given status.
func (wr *WorkflowRepository) UpdateStatus(ctx context.Context, id string, status models.WorkflowStatus) error {
	switch status {
	case models.WorkflowStatusActive, models.WorkflowStatusPaused, models.WorkflowStatusError:
	default:
		return persistence.NewWorkflowError("UpdateStatus", id, persistence.ErrInvalidWorkflowStatus)
	}

	workflow, err := wr.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if workflow == nil {
		return persistence.NewWorkflowError("UpdateStatus", id, persistence.ErrWorkflowNotFound)
	}

	workflow.Status = status

	return wr.Save(ctx, workflow)
}
