// Package models defines the core domain models for workflow automation.
package models

import "time"

// WorkflowStatus represents the lifecycle state of a workflow.
type WorkflowStatus string

const (
	WorkflowStatusActive WorkflowStatus = "active" // Schedulable and executable
	WorkflowStatusPaused WorkflowStatus = "paused" // Kept, never triggered
	WorkflowStatusError  WorkflowStatus = "error"  // Disabled by failure escalation
)

// TriggerType identifies how a workflow is started.
type TriggerType string

const (
	TriggerManual TriggerType = "manual"
	TriggerCron   TriggerType = "cron"
	TriggerEvent  TriggerType = "event"
)

// Trigger binds a workflow to its start condition. Schedule is a standard
// 5-field cron expression and only meaningful for cron triggers; Queue names
// the message queue consumed by event triggers.
type Trigger struct {
	Type     TriggerType `json:"type"               validate:"required,oneof=manual cron event"`
	Schedule string      `json:"schedule,omitempty"`
	Queue    string      `json:"queue,omitempty"`
}

// Action is one step of a workflow: a registered action type plus its
// free-form parameter map. The optional storeAs parameter names the
// execution-context variable the action's result is written to.
type Action struct {
	Type       string         `json:"type"       validate:"required"`
	Parameters map[string]any `json:"parameters"`
}

// StoreAs returns the context variable name the action publishes its result
// under, or "" when the result is not stored.
func (a Action) StoreAs() string {
	name, _ := a.Parameters["storeAs"].(string)

	return name
}

// Workflow is a named, triggerable, ordered sequence of actions.
type Workflow struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"        validate:"required,min=3"`
	Description string         `json:"description"`
	Trigger     Trigger        `json:"trigger"`
	Actions     []Action       `json:"actions"`
	Status      WorkflowStatus `json:"status"      validate:"required,oneof=active paused error"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// IsActive reports whether the workflow may be triggered.
func (w *Workflow) IsActive() bool {
	return w.Status == WorkflowStatusActive
}

// IsSchedulable reports whether the workflow belongs in the scheduler:
// active, cron-triggered, and carrying a schedule expression.
func (w *Workflow) IsSchedulable() bool {
	return w.IsActive() && w.Trigger.Type == TriggerCron && w.Trigger.Schedule != ""
}
