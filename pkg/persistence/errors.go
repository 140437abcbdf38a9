// Package persistence provides standardized error types for persistence operations.
package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrWorkflowNotFound indicates a workflow was not found by the given identifier.
	ErrWorkflowNotFound = errors.New("workflow not found")

	// ErrInvalidWorkflowStatus indicates an invalid workflow status was provided.
	ErrInvalidWorkflowStatus = errors.New("invalid workflow status")

	// ErrInvalidIdentifier indicates an identifier unsafe for storage operations.
	ErrInvalidIdentifier = errors.New("invalid identifier")
)

// WorkflowError wraps workflow-related errors with additional context.
type WorkflowError struct {
	Op         string // Operation being performed (e.g., "GetByID", "Save", "UpdateStatus")
	WorkflowID string // Workflow ID if applicable
	Err        error  // Underlying error
	Message    string // Additional context message
}

func (e *WorkflowError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s operation failed for workflow %s: %s (%v)", e.Op, e.WorkflowID, e.Message, e.Err)
	}

	return fmt.Sprintf("%s operation failed for workflow %s: %v", e.Op, e.WorkflowID, e.Err)
}

func (e *WorkflowError) Unwrap() error {
	return e.Err
}

// Is implements error comparison for workflow errors.
func (e *WorkflowError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewWorkflowError creates a new workflow error with context.
func NewWorkflowError(op, workflowID string, err error) *WorkflowError {
	return &WorkflowError{
		Op:         op,
		WorkflowID: workflowID,
		Err:        err,
	}
}

// ExecutionLogError wraps execution-log errors with additional context.
type ExecutionLogError struct {
	Op          string // Operation being performed
	WorkflowID  string // Workflow the log belongs to
	ExecutionID string // Execution the log records, if known
	Err         error  // Underlying error
}

func (e *ExecutionLogError) Error() string {
	if e.ExecutionID != "" {
		return fmt.Sprintf("%s operation failed for execution %s of workflow %s: %v", e.Op, e.ExecutionID, e.WorkflowID, e.Err)
	}

	return fmt.Sprintf("%s operation failed for workflow %s logs: %v", e.Op, e.WorkflowID, e.Err)
}

func (e *ExecutionLogError) Unwrap() error {
	return e.Err
}

func (e *ExecutionLogError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// IsWorkflowNotFound checks if an error indicates a workflow was not found.
func IsWorkflowNotFound(err error) bool {
	return errors.Is(err, ErrWorkflowNotFound)
}

// IsInvalidWorkflowStatus checks if an error indicates a rejected status value.
func IsInvalidWorkflowStatus(err error) bool {
	return errors.Is(err, ErrInvalidWorkflowStatus)
}
