package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowmate/flowmate/pkg/models"
)

func TestNewBaseEvent(t *testing.T) {
	event := NewBaseEvent(WorkflowExecutionStartedEvent, "wf-1")

	assert.NotEmpty(t, event.ID)
	assert.Equal(t, WorkflowExecutionStartedEvent, event.Type)
	assert.Equal(t, "wf-1", event.WorkflowID)
	assert.WithinDuration(t, time.Now().UTC(), event.Timestamp, time.Second)
	assert.NotNil(t, event.Metadata)
}

func TestEventTypes(t *testing.T) {
	started := WorkflowExecutionStarted{BaseEvent: NewBaseEvent(WorkflowExecutionStartedEvent, "wf-1")}
	completed := WorkflowExecutionCompleted{BaseEvent: NewBaseEvent(WorkflowExecutionCompletedEvent, "wf-1")}
	failed := WorkflowExecutionFailed{BaseEvent: NewBaseEvent(WorkflowExecutionFailedEvent, "wf-1")}
	changed := WorkflowStatusChanged{BaseEvent: NewBaseEvent(WorkflowStatusChangedEvent, "wf-1")}

	assert.Equal(t, WorkflowExecutionStartedEvent, started.GetType())
	assert.Equal(t, WorkflowExecutionCompletedEvent, completed.GetType())
	assert.Equal(t, WorkflowExecutionFailedEvent, failed.GetType())
	assert.Equal(t, WorkflowStatusChangedEvent, changed.GetType())
}

func TestWorkflowStatusChanged_JSONRoundTrip(t *testing.T) {
	event := WorkflowStatusChanged{
		BaseEvent:      NewBaseEvent(WorkflowStatusChangedEvent, "wf-1"),
		PreviousStatus: models.WorkflowStatusActive,
		NewStatus:      models.WorkflowStatusError,
		Reason:         "3 of the last 5 executions failed",
	}

	payload, err := json.Marshal(event)
	require.NoError(t, err)

	var decoded WorkflowStatusChanged

	require.NoError(t, json.Unmarshal(payload, &decoded))
	assert.Equal(t, models.WorkflowStatusError, decoded.NewStatus)
	assert.Equal(t, event.Reason, decoded.Reason)
	assert.Equal(t, event.WorkflowID, decoded.WorkflowID)
}
