// Package services implements the business operations behind the REST API:
// workflow CRUD with definition validation, and execution control.
package services

import (
	"errors"
	"fmt"

	"github.com/flowmate/flowmate/pkg/workflow"
)

// Business logic errors - these indicate client errors (4xx responses).
var (
	// Validation errors (400 Bad Request).
	ErrInvalidRequest          = errors.New("invalid request")
	ErrWorkflowNil             = errors.New("workflow cannot be nil")
	ErrScheduleRequired        = errors.New("cron trigger requires a schedule expression")
	ErrInvalidCronExpression   = errors.New("invalid cron expression")
	ErrQueueNameRequired       = errors.New("event trigger requires a queue name")
	ErrUnknownActionType       = errors.New("unknown action type")
	ErrInvalidActionParameters = errors.New("invalid action parameters")

	// Not-found errors (404 Not Found).
	ErrExecutionNotFound = errors.New("execution not found")
)

// ServiceError wraps service-level errors with additional context.
type ServiceError struct {
	Op      string // Operation name
	Code    string // Error code for API responses
	Message string // Human-readable message
	Err     error  // Underlying error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// IsValidationError checks if an error is a validation error that should return HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrWorkflowNil) ||
		errors.Is(err, ErrScheduleRequired) ||
		errors.Is(err, ErrInvalidCronExpression) ||
		errors.Is(err, ErrQueueNameRequired) ||
		errors.Is(err, ErrUnknownActionType) ||
		errors.Is(err, ErrInvalidActionParameters)
}

// IsConflictError checks if an error is a business logic conflict that should return HTTP 409.
func IsConflictError(err error) bool {
	return errors.Is(err, workflow.ErrWorkflowNotActive)
}

// IsExecutionNotFound checks if an error indicates an unknown execution id.
func IsExecutionNotFound(err error) bool {
	return errors.Is(err, ErrExecutionNotFound)
}

// NewValidationError creates a new validation error with context.
func NewValidationError(op, code, message string, err error) *ServiceError {
	return &ServiceError{
		Op:      op,
		Code:    code,
		Message: message,
		Err:     err,
	}
}
