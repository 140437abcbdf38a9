package web_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/flowmate/flowmate/pkg/models"
	"github.com/flowmate/flowmate/pkg/web"
)

func TestCreateWorkflowRequest_ToModel(t *testing.T) {
	t.Parallel()

	req := web.CreateWorkflowRequest{
		Name:        "Hourly fetch",
		Description: "Pulls the status page",
		Trigger:     models.Trigger{Type: models.TriggerCron, Schedule: "0 * * * *"},
		Actions: []models.Action{
			{Type: "fetch_data", Parameters: map[string]any{"url": "https://status.example.com"}},
		},
		Status: "paused",
	}

	workflow := req.ToModel()

	assert.Empty(t, workflow.ID, "IDs are assigned by the service")
	assert.Equal(t, "Hourly fetch", workflow.Name)
	assert.Equal(t, "Pulls the status page", workflow.Description)
	assert.Equal(t, models.TriggerCron, workflow.Trigger.Type)
	assert.Len(t, workflow.Actions, 1)
	assert.Equal(t, models.WorkflowStatusPaused, workflow.Status)
}

func TestCreateWorkflowRequest_ToModel_EmptyStatus(t *testing.T) {
	t.Parallel()

	req := web.CreateWorkflowRequest{
		Name:    "Minimal workflow",
		Trigger: models.Trigger{Type: models.TriggerManual},
	}

	workflow := req.ToModel()

	assert.Empty(t, workflow.Status, "defaulting happens in the service")
}

func TestUpdateWorkflowRequest_ApplyTo(t *testing.T) {
	t.Parallel()

	stringPtr := func(s string) *string { return &s }

	base := func() *models.Workflow {
		return &models.Workflow{
			ID:          "wf-1",
			Name:        "Original name",
			Description: "Original description",
			Trigger:     models.Trigger{Type: models.TriggerManual},
			Actions: []models.Action{
				{Type: "log_result"},
			},
			Status: models.WorkflowStatusActive,
		}
	}

	t.Run("empty request changes nothing", func(t *testing.T) {
		t.Parallel()

		workflow := base()
		web.UpdateWorkflowRequest{}.ApplyTo(workflow)

		assert.Equal(t, base(), workflow)
	})

	t.Run("set fields overwrite", func(t *testing.T) {
		t.Parallel()

		workflow := base()
		web.UpdateWorkflowRequest{
			Name:        stringPtr("New name"),
			Description: stringPtr(""),
			Trigger:     &models.Trigger{Type: models.TriggerEvent, Queue: "orders"},
			Status:      stringPtr("paused"),
		}.ApplyTo(workflow)

		assert.Equal(t, "New name", workflow.Name)
		assert.Empty(t, workflow.Description, "explicit empty string clears the description")
		assert.Equal(t, models.TriggerEvent, workflow.Trigger.Type)
		assert.Equal(t, "orders", workflow.Trigger.Queue)
		assert.Equal(t, models.WorkflowStatusPaused, workflow.Status)
		assert.Len(t, workflow.Actions, 1, "actions untouched")
	})

	t.Run("nil actions keep stored actions", func(t *testing.T) {
		t.Parallel()

		workflow := base()
		web.UpdateWorkflowRequest{Name: stringPtr("Renamed")}.ApplyTo(workflow)

		assert.Len(t, workflow.Actions, 1)
	})

	t.Run("empty actions slice clears them", func(t *testing.T) {
		t.Parallel()

		workflow := base()
		web.UpdateWorkflowRequest{Actions: []models.Action{}}.ApplyTo(workflow)

		assert.Empty(t, workflow.Actions)
	})
}
