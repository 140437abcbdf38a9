// Package events defines the event types published on workflow lifecycle
// transitions.
package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/flowmate/flowmate/pkg/models"
)

type EventType string

// Topic is the bus topic every workflow lifecycle event is published on.
const Topic = "flowmate.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	WorkflowExecutionStartedEvent   EventType = "workflow.execution.started"
	WorkflowExecutionCompletedEvent EventType = "workflow.execution.completed"
	WorkflowExecutionFailedEvent    EventType = "workflow.execution.failed"
	WorkflowStatusChangedEvent      EventType = "workflow.status.changed"
)

type BaseEvent struct {
	ID         string         `json:"id"`
	Type       EventType      `json:"type"`
	Timestamp  time.Time      `json:"timestamp"`
	WorkflowID string         `json:"workflow_id"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

func NewBaseEvent(eventType EventType, workflowID string) BaseEvent {
	return BaseEvent{
		ID:         uuid.New().String(),
		Type:       eventType,
		Timestamp:  time.Now().UTC(),
		WorkflowID: workflowID,
		Metadata:   make(map[string]any),
	}
}

// WorkflowExecutionStarted is emitted once per run, right after the running
// execution log is recorded.
type WorkflowExecutionStarted struct {
	BaseEvent

	ExecutionID  string `json:"execution_id"`
	WorkflowName string `json:"workflow_name"`
	TriggerType  string `json:"trigger_type"`
}

func (w WorkflowExecutionStarted) GetType() EventType {
	return WorkflowExecutionStartedEvent
}

// WorkflowExecutionCompleted is emitted when every action of a run finished
// successfully.
type WorkflowExecutionCompleted struct {
	BaseEvent

	ExecutionID     string        `json:"execution_id"`
	ActionsExecuted int           `json:"actions_executed"`
	Duration        time.Duration `json:"duration"`
}

func (w WorkflowExecutionCompleted) GetType() EventType {
	return WorkflowExecutionCompletedEvent
}

// WorkflowExecutionFailed is emitted when a run ends with a failing action.
type WorkflowExecutionFailed struct {
	BaseEvent

	ExecutionID     string        `json:"execution_id"`
	Error           string        `json:"error"`
	ActionsExecuted int           `json:"actions_executed"`
	Duration        time.Duration `json:"duration"`
}

func (w WorkflowExecutionFailed) GetType() EventType {
	return WorkflowExecutionFailedEvent
}

// WorkflowStatusChanged is emitted when the engine transitions a workflow's
// status, currently only through failure escalation.
type WorkflowStatusChanged struct {
	BaseEvent

	PreviousStatus models.WorkflowStatus `json:"previous_status"`
	NewStatus      models.WorkflowStatus `json:"new_status"`
	Reason         string                `json:"reason,omitempty"`
}

func (w WorkflowStatusChanged) GetType() EventType {
	return WorkflowStatusChangedEvent
}
