package file

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/flowmate/flowmate/pkg/models"
	"github.com/flowmate/flowmate/pkg/persistence"
)

// ExecutionLogRepository appends execution attempts to one JSONL file per
// workflow under executions/. Appends are serialized by a mutex so
// concurrently finishing executions never interleave partial lines.
type ExecutionLogRepository struct {
	root string
	mu   sync.Mutex
}

// NewExecutionLogRepository creates a new execution log repository.
func NewExecutionLogRepository(root string) *ExecutionLogRepository {
	return &ExecutionLogRepository{root: root}
}

func (lr *ExecutionLogRepository) logPath(workflowID string) string {
	return filepath.Clean(path.Join(lr.root, "executions", workflowID+".jsonl"))
}

// Append writes one execution log record, stamping ID and ExecutedAt when
// the caller left them empty.
func (lr *ExecutionLogRepository) Append(_ context.Context, entry *models.ExecutionLog) error {
	if err := validateWorkflowID(entry.WorkflowID); err != nil {
		return &persistence.ExecutionLogError{Op: "Append", WorkflowID: entry.WorkflowID, ExecutionID: entry.ExecutionID, Err: err}
	}

	lr.mu.Lock()
	defer lr.mu.Unlock()

	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}

	if entry.ExecutedAt.IsZero() {
		entry.ExecutedAt = time.Now().UTC()
	}

	err := os.MkdirAll(filepath.Join(lr.root, "executions"), 0750)
	if err != nil {
		return fmt.Errorf("failed to create executions directory: %w", err)
	}

	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal execution log %s: %w", entry.ID, err)
	}

	file, err := os.OpenFile(lr.logPath(entry.WorkflowID), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600) // #nosec G304 -- path is validated and constructed safely
	if err != nil {
		return fmt.Errorf("failed to open execution log for workflow %s: %w", entry.WorkflowID, err)
	}

	_, err = file.Write(append(line, '\n'))
	if err != nil {
		_ = file.Close()

		return fmt.Errorf("failed to append execution log for workflow %s: %w", entry.WorkflowID, err)
	}

	return file.Close()
}

// Recent returns up to limit log records for the workflow, newest first. A
// workflow with no recorded executions yields an empty slice.
func (lr *ExecutionLogRepository) Recent(_ context.Context, workflowID string, limit int) ([]*models.ExecutionLog, error) {
	if err := validateWorkflowID(workflowID); err != nil {
		return nil, &persistence.ExecutionLogError{Op: "Recent", WorkflowID: workflowID, Err: err}
	}

	lr.mu.Lock()
	defer lr.mu.Unlock()

	file, err := os.Open(lr.logPath(workflowID)) // #nosec G304 -- path is validated and constructed safely
	if err != nil {
		if os.IsNotExist(err) {
			return []*models.ExecutionLog{}, nil
		}

		return nil, fmt.Errorf("failed to open execution log for workflow %s: %w", workflowID, err)
	}

	defer func() {
		_ = file.Close()
	}()

	entries := make([]*models.ExecutionLog, 0)
	scanner := bufio.NewScanner(file)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var entry models.ExecutionLog

		err := json.Unmarshal(line, &entry)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal execution log for workflow %s: %w", workflowID, err)
		}

		entries = append(entries, &entry)
	}

	err = scanner.Err()
	if err != nil {
		return nil, fmt.Errorf("failed to read execution log for workflow %s: %w", workflowID, err)
	}

	// Appends are chronological, so newest-first is the reverse file order.
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}

	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}

	return entries, nil
}
