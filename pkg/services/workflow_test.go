package services

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowmate/flowmate/pkg/actions/fetchdata"
	"github.com/flowmate/flowmate/pkg/actions/logresult"
	"github.com/flowmate/flowmate/pkg/models"
	"github.com/flowmate/flowmate/pkg/persistence"
	"github.com/flowmate/flowmate/pkg/persistence/file"
	"github.com/flowmate/flowmate/pkg/registry"
)

type fakeScheduler struct {
	scheduled   []string
	unscheduled []string
	rescheduled []string
}

func (s *fakeScheduler) ScheduleWorkflow(workflow *models.Workflow) bool {
	s.scheduled = append(s.scheduled, workflow.ID)

	return workflow.IsSchedulable()
}

func (s *fakeScheduler) UnscheduleWorkflow(workflowID string) bool {
	s.unscheduled = append(s.unscheduled, workflowID)

	return true
}

func (s *fakeScheduler) RescheduleWorkflow(workflow *models.Workflow) bool {
	s.rescheduled = append(s.rescheduled, workflow.ID)

	return workflow.IsSchedulable()
}

func testRegistry(t *testing.T) *registry.Registry {
	t.Helper()

	reg := registry.NewRegistry(slog.Default())
	reg.RegisterAction(logresult.NewActionFactory())
	reg.RegisterAction(fetchdata.NewActionFactory())

	return reg
}

func newWorkflowService(t *testing.T, scheduler Scheduler) (*Workflow, persistence.Persistence) {
	t.Helper()

	p := file.NewPersistence(t.TempDir())

	return NewWorkflow(p, testRegistry(t), scheduler, slog.Default()), p
}

func validWorkflow() *models.Workflow {
	return &models.Workflow{
		Name:        "Log heartbeat",
		Description: "Writes one log line",
		Trigger:     models.Trigger{Type: models.TriggerManual},
		Actions: []models.Action{
			{Type: "log_result", Parameters: map[string]any{"level": "info"}},
		},
	}
}

func TestWorkflow_Create(t *testing.T) {
	service, p := newWorkflowService(t, nil)

	created, err := service.Create(t.Context(), validWorkflow())
	require.NoError(t, err)
	require.NotNil(t, created)

	assert.NotEmpty(t, created.ID)
	assert.Equal(t, models.WorkflowStatusActive, created.Status, "status defaults to active")
	assert.False(t, created.CreatedAt.IsZero())
	assert.False(t, created.UpdatedAt.IsZero())

	stored, err := p.WorkflowRepository().GetByID(t.Context(), created.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "Log heartbeat", stored.Name)
}

func TestWorkflow_Create_SchedulesCronWorkflow(t *testing.T) {
	scheduler := &fakeScheduler{}
	service, _ := newWorkflowService(t, scheduler)

	workflow := validWorkflow()
	workflow.Trigger = models.Trigger{Type: models.TriggerCron, Schedule: "0 * * * *"}

	created, err := service.Create(t.Context(), workflow)
	require.NoError(t, err)

	assert.Equal(t, []string{created.ID}, scheduler.scheduled)
}

func TestWorkflow_Create_ManualWorkflowStillOfferedToScheduler(t *testing.T) {
	scheduler := &fakeScheduler{}
	service, _ := newWorkflowService(t, scheduler)

	created, err := service.Create(t.Context(), validWorkflow())
	require.NoError(t, err)

	// The scheduler decides schedulability itself and rejects the entry.
	assert.Equal(t, []string{created.ID}, scheduler.scheduled)
}

func TestWorkflow_Create_ValidationErrors(t *testing.T) {
	service, _ := newWorkflowService(t, nil)

	tests := []struct {
		name     string
		mutate   func(w *models.Workflow)
		sentinel error
	}{
		{
			name:     "name too short",
			mutate:   func(w *models.Workflow) { w.Name = "ab" },
			sentinel: ErrInvalidRequest,
		},
		{
			name:     "invalid status",
			mutate:   func(w *models.Workflow) { w.Status = "archived" },
			sentinel: ErrInvalidRequest,
		},
		{
			name:     "invalid trigger type",
			mutate:   func(w *models.Workflow) { w.Trigger.Type = "webhook" },
			sentinel: ErrInvalidRequest,
		},
		{
			name:     "cron trigger without schedule",
			mutate:   func(w *models.Workflow) { w.Trigger = models.Trigger{Type: models.TriggerCron} },
			sentinel: ErrScheduleRequired,
		},
		{
			name: "cron trigger with bad expression",
			mutate: func(w *models.Workflow) {
				w.Trigger = models.Trigger{Type: models.TriggerCron, Schedule: "every monday somewhen"}
			},
			sentinel: ErrInvalidCronExpression,
		},
		{
			name:     "event trigger without queue",
			mutate:   func(w *models.Workflow) { w.Trigger = models.Trigger{Type: models.TriggerEvent} },
			sentinel: ErrQueueNameRequired,
		},
		{
			name: "unknown action type",
			mutate: func(w *models.Workflow) {
				w.Actions = []models.Action{{Type: "teleport_data"}}
			},
			sentinel: ErrUnknownActionType,
		},
		{
			name: "action parameters fail schema validation",
			mutate: func(w *models.Workflow) {
				w.Actions = []models.Action{{Type: "fetch_data", Parameters: map[string]any{"method": "GET"}}}
			},
			sentinel: ErrInvalidActionParameters,
		},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			workflow := validWorkflow()
			testCase.mutate(workflow)

			created, err := service.Create(t.Context(), workflow)

			require.ErrorIs(t, err, testCase.sentinel)
			assert.True(t, IsValidationError(err), "expected a validation error, got %v", err)
			assert.Nil(t, created)
		})
	}
}

func TestWorkflow_Create_NilWorkflow(t *testing.T) {
	service, _ := newWorkflowService(t, nil)

	created, err := service.Create(t.Context(), nil)

	require.ErrorIs(t, err, ErrWorkflowNil)
	assert.True(t, IsValidationError(err))
	assert.Nil(t, created)
}

func TestWorkflow_Update(t *testing.T) {
	scheduler := &fakeScheduler{}
	service, _ := newWorkflowService(t, scheduler)

	created, err := service.Create(t.Context(), validWorkflow())
	require.NoError(t, err)

	modified := validWorkflow()
	modified.Name = "Log heartbeat v2"
	modified.Status = ""

	updated, err := service.Update(t.Context(), created.ID, modified)
	require.NoError(t, err)

	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "Log heartbeat v2", updated.Name)
	assert.Equal(t, created.Status, updated.Status, "empty status inherits the stored one")
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)
	assert.Equal(t, []string{created.ID}, scheduler.rescheduled)
}

func TestWorkflow_Update_NotFound(t *testing.T) {
	service, _ := newWorkflowService(t, nil)

	updated, err := service.Update(t.Context(), "wf-missing", validWorkflow())

	require.ErrorIs(t, err, ErrWorkflowNotFound)
	assert.Nil(t, updated)
}

func TestWorkflow_Update_RejectsInvalidDefinition(t *testing.T) {
	service, _ := newWorkflowService(t, nil)

	created, err := service.Create(t.Context(), validWorkflow())
	require.NoError(t, err)

	modified := validWorkflow()
	modified.Actions = []models.Action{{Type: "teleport_data"}}

	_, err = service.Update(t.Context(), created.ID, modified)
	require.ErrorIs(t, err, ErrUnknownActionType)

	stored, err := service.Fetch(t.Context(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "log_result", stored.Actions[0].Type, "invalid update must not be persisted")
}

func TestWorkflow_Delete(t *testing.T) {
	scheduler := &fakeScheduler{}
	service, _ := newWorkflowService(t, scheduler)

	created, err := service.Create(t.Context(), validWorkflow())
	require.NoError(t, err)

	err = service.Delete(t.Context(), created.ID)
	require.NoError(t, err)

	assert.Equal(t, []string{created.ID}, scheduler.unscheduled)

	_, err = service.Fetch(t.Context(), created.ID)
	require.ErrorIs(t, err, ErrWorkflowNotFound)
}

func TestWorkflow_Delete_NotFound(t *testing.T) {
	service, _ := newWorkflowService(t, nil)

	err := service.Delete(t.Context(), "wf-missing")
	require.ErrorIs(t, err, ErrWorkflowNotFound)
}

func TestWorkflow_ListAndFetch(t *testing.T) {
	service, _ := newWorkflowService(t, nil)

	first, err := service.Create(t.Context(), validWorkflow())
	require.NoError(t, err)

	second := validWorkflow()
	second.Name = "Second workflow"

	_, err = service.Create(t.Context(), second)
	require.NoError(t, err)

	workflows, err := service.List(t.Context())
	require.NoError(t, err)
	assert.Len(t, workflows, 2)

	fetched, err := service.Fetch(t.Context(), first.ID)
	require.NoError(t, err)
	assert.Equal(t, first.Name, fetched.Name)
}

func TestWorkflow_HealthCheck(t *testing.T) {
	service, _ := newWorkflowService(t, nil)

	message, healthy := service.HealthCheck(t.Context())
	assert.True(t, healthy)
	assert.NotEmpty(t, message)
}
