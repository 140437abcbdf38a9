package persistence_test

import (
	"errors"
	"testing"

	"github.com/flowmate/flowmate/pkg/persistence"
	"github.com/stretchr/testify/assert"
)

func TestStandardizedErrors(t *testing.T) {
	t.Parallel()

	t.Run("error constants are available", func(t *testing.T) {
		assert.NotNil(t, persistence.ErrWorkflowNotFound)
		assert.NotNil(t, persistence.ErrInvalidWorkflowStatus)
		assert.NotNil(t, persistence.ErrInvalidIdentifier)
	})

	t.Run("error checking functions work correctly", func(t *testing.T) {
		workflowErr := persistence.NewWorkflowError("GetByID", "workflow-123", persistence.ErrWorkflowNotFound)
		statusErr := persistence.NewWorkflowError("UpdateStatus", "workflow-123", persistence.ErrInvalidWorkflowStatus)

		assert.True(t, persistence.IsWorkflowNotFound(workflowErr))
		assert.True(t, persistence.IsInvalidWorkflowStatus(statusErr))

		// Test error unwrapping
		assert.True(t, errors.Is(workflowErr, persistence.ErrWorkflowNotFound))
		assert.True(t, errors.Is(statusErr, persistence.ErrInvalidWorkflowStatus))
	})

	t.Run("workflow error contains context", func(t *testing.T) {
		err := persistence.NewWorkflowError("UpdateStatus", "workflow-123", persistence.ErrWorkflowNotFound)

		assert.Contains(t, err.Error(), "UpdateStatus")
		assert.Contains(t, err.Error(), "workflow-123")
		assert.Contains(t, err.Error(), "workflow not found")
	})

	t.Run("execution log error contains context", func(t *testing.T) {
		err := &persistence.ExecutionLogError{
			Op:          "Append",
			WorkflowID:  "workflow-123",
			ExecutionID: "exec-9",
			Err:         errors.New("disk full"),
		}

		assert.Contains(t, err.Error(), "Append")
		assert.Contains(t, err.Error(), "workflow-123")
		assert.Contains(t, err.Error(), "exec-9")
		assert.Contains(t, err.Error(), "disk full")
	})
}
