package models

import "time"

// ExecutionStatus classifies execution log records.
type ExecutionStatus string

const (
	ExecutionStatusRunning ExecutionStatus = "running"
	ExecutionStatusSuccess ExecutionStatus = "success"
	ExecutionStatusError   ExecutionStatus = "error"
)

// IsTerminal reports whether the status closes its execution.
func (s ExecutionStatus) IsTerminal() bool {
	return s == ExecutionStatusSuccess || s == ExecutionStatusError
}

// ExecutionContext carries the mutable state shared by the actions of one
// workflow run: the variable bag actions publish into via storeAs and read
// from in later steps. It lives for the duration of the run and is never
// persisted as a whole.
type ExecutionContext struct {
	ID         string         `json:"id"`
	WorkflowID string         `json:"workflow_id"`
	StartedAt  time.Time      `json:"started_at"`
	Variables  map[string]any `json:"variables,omitempty"`
}

// ActionResult records the outcome of a single dispatched action. A failing
// result stops the remaining sequence.
type ActionResult struct {
	ActionType string        `json:"action_type"`
	Success    bool          `json:"success"`
	Output     any           `json:"output,omitempty"`
	Error      string        `json:"error,omitempty"`
	Duration   time.Duration `json:"duration"`
}

// ExecutionResult is the aggregate outcome of one workflow run.
type ExecutionResult struct {
	ExecutionID string         `json:"execution_id"`
	WorkflowID  string         `json:"workflow_id"`
	Success     bool           `json:"success"`
	Results     []ActionResult `json:"results"`
	Error       string         `json:"error,omitempty"`
	Duration    time.Duration  `json:"duration"`
}

// ExecutionLog is the persisted record of an execution attempt. Every run
// writes exactly one running record and exactly one terminal record, tied
// together by ExecutionID.
type ExecutionLog struct {
	ID          string          `json:"id"`
	WorkflowID  string          `json:"workflow_id"  validate:"required"`
	ExecutionID string          `json:"execution_id"`
	Status      ExecutionStatus `json:"status"       validate:"required,oneof=running success error"`
	Message     string          `json:"message"`
	ExecutedAt  time.Time       `json:"executed_at"`
	Duration    time.Duration   `json:"duration"`
}
