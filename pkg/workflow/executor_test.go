package workflow_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/flowmate/flowmate/pkg/actions/fetchdata"
	"github.com/flowmate/flowmate/pkg/mocks"
	"github.com/flowmate/flowmate/pkg/models"
	"github.com/flowmate/flowmate/pkg/persistence"
	"github.com/flowmate/flowmate/pkg/persistence/file"
	"github.com/flowmate/flowmate/pkg/protocol"
	"github.com/flowmate/flowmate/pkg/registry"
	"github.com/flowmate/flowmate/pkg/workflow"
)

type actionFunc func(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) (any, error)

func (f actionFunc) Execute(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) (any, error) {
	return f(ctx, executionCtx, logger)
}

type stubFactory struct {
	id     string
	action protocol.Action
}

func (f *stubFactory) ID() string {
	return f.id
}

func (f *stubFactory) Create(_ map[string]any) (protocol.Action, error) {
	return f.action, nil
}

func (f *stubFactory) Schema() map[string]any {
	return map[string]any{"type": "object"}
}

func factoryOf(id string, action protocol.Action) *stubFactory {
	return &stubFactory{id: id, action: action}
}

func okAction(output any) actionFunc {
	return func(_ context.Context, _ models.ExecutionContext, _ *slog.Logger) (any, error) {
		return output, nil
	}
}

func newTestExecutor(t *testing.T, factories ...protocol.ActionFactory) (*workflow.Executor, persistence.Persistence) {
	t.Helper()

	p := file.NewPersistence(t.TempDir())
	reg := registry.NewRegistry(slog.Default())

	for _, factory := range factories {
		reg.RegisterAction(factory)
	}

	return workflow.NewExecutor(p, reg, nil, slog.Default()), p
}

func activeWorkflow(id string, actions ...models.Action) *models.Workflow {
	return &models.Workflow{
		ID:      id,
		Name:    "Test Workflow",
		Trigger: models.Trigger{Type: models.TriggerManual},
		Actions: actions,
		Status:  models.WorkflowStatusActive,
	}
}

func TestExecutor_ExecuteWorkflow_Success(t *testing.T) {
	ctx := context.Background()

	var secondSaw any

	second := actionFunc(func(_ context.Context, executionCtx models.ExecutionContext, _ *slog.Logger) (any, error) {
		secondSaw = executionCtx.Variables["first_output"]

		return "done", nil
	})

	executor, p := newTestExecutor(t,
		factoryOf("first", okAction(map[string]any{"rows": 3})),
		factoryOf("second", second),
	)

	wf := activeWorkflow("wf-success",
		models.Action{Type: "first", Parameters: map[string]any{"storeAs": "first_output"}},
		models.Action{Type: "second"},
	)
	require.NoError(t, p.WorkflowRepository().Save(ctx, wf))

	result, err := executor.ExecuteWorkflow(ctx, "wf-success")
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.True(t, result.Success)
	assert.Empty(t, result.Error)
	assert.Equal(t, "wf-success", result.WorkflowID)
	assert.Regexp(t, "^exec-[0-9a-f-]{36}$", result.ExecutionID)
	require.Len(t, result.Results, 2)
	assert.Equal(t, "first", result.Results[0].ActionType)
	assert.True(t, result.Results[0].Success)
	assert.Equal(t, "second", result.Results[1].ActionType)
	assert.True(t, result.Results[1].Success)
	assert.Equal(t, map[string]any{"rows": 3}, secondSaw, "second action should see the stored output of the first")

	logs, err := p.ExecutionLogRepository().Recent(ctx, "wf-success", 10)
	require.NoError(t, err)
	require.Len(t, logs, 2, "exactly one running and one terminal record")
	assert.Equal(t, models.ExecutionStatusSuccess, logs[0].Status)
	assert.Equal(t, models.ExecutionStatusRunning, logs[1].Status)
	assert.Equal(t, result.ExecutionID, logs[0].ExecutionID)
	assert.Equal(t, result.ExecutionID, logs[1].ExecutionID)
	assert.GreaterOrEqual(t, logs[0].Duration, time.Duration(0))

	assert.Equal(t, 0, executor.RunningExecutionCount())
}

func TestExecutor_ExecuteWorkflowWithInput_SeedsVariables(t *testing.T) {
	ctx := context.Background()

	var saw map[string]any

	capture := actionFunc(func(_ context.Context, executionCtx models.ExecutionContext, _ *slog.Logger) (any, error) {
		saw = executionCtx.Variables

		return "ok", nil
	})

	executor, p := newTestExecutor(t, factoryOf("capture", capture))

	wf := activeWorkflow("wf-input", models.Action{Type: "capture"})
	require.NoError(t, p.WorkflowRepository().Save(ctx, wf))

	input := map[string]any{"customer": "acme", "amount": 42.0}

	result, err := executor.ExecuteWorkflowWithInput(ctx, "wf-input", input)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.True(t, result.Success)

	assert.Equal(t, "acme", saw["customer"])
	assert.Equal(t, 42.0, saw["amount"])

	// The seed is a copy; later runs must not share payload state.
	input["customer"] = "mutated"

	assert.Equal(t, "acme", saw["customer"])
}

func TestExecutor_ExecuteWorkflow_WorkflowNotFound(t *testing.T) {
	ctx := context.Background()
	executor, p := newTestExecutor(t)

	result, err := executor.ExecuteWorkflow(ctx, "wf-missing")
	require.Error(t, err)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, persistence.ErrWorkflowNotFound)

	logs, err := p.ExecutionLogRepository().Recent(ctx, "wf-missing", 10)
	require.NoError(t, err)
	assert.Empty(t, logs, "precondition failures must not write logs")
}

func TestExecutor_ExecuteWorkflow_WorkflowNotActive(t *testing.T) {
	ctx := context.Background()
	executor, p := newTestExecutor(t, factoryOf("noop", okAction(nil)))

	wf := activeWorkflow("wf-paused", models.Action{Type: "noop"})
	wf.Status = models.WorkflowStatusPaused
	require.NoError(t, p.WorkflowRepository().Save(ctx, wf))

	result, err := executor.ExecuteWorkflow(ctx, "wf-paused")
	require.Error(t, err)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, workflow.ErrWorkflowNotActive)

	logs, err := p.ExecutionLogRepository().Recent(ctx, "wf-paused", 10)
	require.NoError(t, err)
	assert.Empty(t, logs, "precondition failures must not write logs")
}

func TestExecutor_ExecuteWorkflow_FailFast(t *testing.T) {
	ctx := context.Background()

	calls := map[string]int{}
	counting := func(id string, err error) actionFunc {
		return func(_ context.Context, _ models.ExecutionContext, _ *slog.Logger) (any, error) {
			calls[id]++

			if err != nil {
				return nil, err
			}

			return id, nil
		}
	}

	executor, p := newTestExecutor(t,
		factoryOf("a1", counting("a1", nil)),
		factoryOf("a2", counting("a2", errors.New("upstream returned 500"))),
		factoryOf("a3", counting("a3", nil)),
	)

	wf := activeWorkflow("wf-fail",
		models.Action{Type: "a1"},
		models.Action{Type: "a2"},
		models.Action{Type: "a3"},
	)
	require.NoError(t, p.WorkflowRepository().Save(ctx, wf))

	result, err := executor.ExecuteWorkflow(ctx, "wf-fail")
	require.Error(t, err)
	require.NotNil(t, result)

	assert.Contains(t, err.Error(), "a2")
	assert.Contains(t, err.Error(), "upstream returned 500")
	assert.False(t, result.Success)
	assert.Equal(t, 1, calls["a1"])
	assert.Equal(t, 1, calls["a2"])
	assert.Equal(t, 0, calls["a3"], "actions after the failure must not run")
	require.Len(t, result.Results, 2)
	assert.True(t, result.Results[0].Success)
	assert.False(t, result.Results[1].Success)
	assert.Contains(t, result.Results[1].Error, "upstream returned 500")

	logs, err := p.ExecutionLogRepository().Recent(ctx, "wf-fail", 10)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, models.ExecutionStatusError, logs[0].Status)
	assert.Contains(t, logs[0].Message, "upstream returned 500")
	assert.Equal(t, models.ExecutionStatusRunning, logs[1].Status)
}

func TestExecutor_ExecuteWorkflow_MisconfiguredAction(t *testing.T) {
	ctx := context.Background()
	executor, p := newTestExecutor(t, fetchdata.NewActionFactory())

	wf := activeWorkflow("wf-misconfigured",
		models.Action{Type: "fetch_data", Parameters: map[string]any{"method": "GET"}},
	)
	require.NoError(t, p.WorkflowRepository().Save(ctx, wf))

	result, err := executor.ExecuteWorkflow(ctx, "wf-misconfigured")
	require.Error(t, err)
	require.NotNil(t, result)
	assert.Contains(t, err.Error(), "url")

	logs, err := p.ExecutionLogRepository().Recent(ctx, "wf-misconfigured", 10)
	require.NoError(t, err)
	require.Len(t, logs, 2, "a misconfigured action still yields a full running/error log pair")
	assert.Equal(t, models.ExecutionStatusError, logs[0].Status)
	assert.Contains(t, logs[0].Message, "url")
}

func TestExecutor_ExecuteWorkflow_UnregisteredActionType(t *testing.T) {
	ctx := context.Background()
	executor, p := newTestExecutor(t)

	wf := activeWorkflow("wf-unknown", models.Action{Type: "no_such_action"})
	require.NoError(t, p.WorkflowRepository().Save(ctx, wf))

	result, err := executor.ExecuteWorkflow(ctx, "wf-unknown")
	require.Error(t, err)
	require.NotNil(t, result)

	assert.Contains(t, err.Error(), "not registered")
	require.Len(t, result.Results, 1)
	assert.False(t, result.Results[0].Success)
	assert.Contains(t, result.Results[0].Error, "not registered")
}

func TestExecutor_ExecuteWorkflow_PublishesLifecycleEvents(t *testing.T) {
	ctx := context.Background()

	p := file.NewPersistence(t.TempDir())
	reg := registry.NewRegistry(slog.Default())
	reg.RegisterAction(factoryOf("noop", okAction("ok")))

	bus := &mocks.MockEventBus{}
	bus.On("Publish", mock.Anything, "wf-events", mock.AnythingOfType("events.WorkflowExecutionStarted")).Return(nil).Once()
	bus.On("Publish", mock.Anything, "wf-events", mock.AnythingOfType("events.WorkflowExecutionCompleted")).Return(nil).Once()

	executor := workflow.NewExecutor(p, reg, bus, slog.Default())

	wf := activeWorkflow("wf-events", models.Action{Type: "noop"})
	require.NoError(t, p.WorkflowRepository().Save(ctx, wf))

	_, err := executor.ExecuteWorkflow(ctx, "wf-events")
	require.NoError(t, err)

	bus.AssertExpectations(t)
}

func TestExecutor_ExecuteWorkflow_PublishFailuresAreTolerated(t *testing.T) {
	ctx := context.Background()

	p := file.NewPersistence(t.TempDir())
	reg := registry.NewRegistry(slog.Default())
	reg.RegisterAction(factoryOf("noop", okAction("ok")))

	bus := &mocks.MockEventBus{}
	bus.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("broker unreachable"))

	executor := workflow.NewExecutor(p, reg, bus, slog.Default())

	wf := activeWorkflow("wf-busless", models.Action{Type: "noop"})
	require.NoError(t, p.WorkflowRepository().Save(ctx, wf))

	result, err := executor.ExecuteWorkflow(ctx, "wf-busless")
	require.NoError(t, err, "publish failures must never fail the run")
	assert.True(t, result.Success)
}

func TestExecutor_ExecuteWorkflow_PersistenceFailuresAreSwallowed(t *testing.T) {
	ctx := context.Background()

	wf := activeWorkflow("wf-disk", models.Action{Type: "noop"})

	mp := mocks.NewMockPersistence()
	mp.GetMockWorkflowRepository().On("GetByID", mock.Anything, "wf-disk").Return(wf, nil)
	mp.GetMockExecutionLogRepository().On("Append", mock.Anything, mock.Anything).Return(errors.New("disk full"))

	reg := registry.NewRegistry(slog.Default())
	reg.RegisterAction(factoryOf("noop", okAction("ok")))

	executor := workflow.NewExecutor(mp, reg, nil, slog.Default())

	result, err := executor.ExecuteWorkflow(ctx, "wf-disk")
	require.NoError(t, err, "log write failures must never fail the run")
	assert.True(t, result.Success)
	mp.GetMockExecutionLogRepository().AssertNumberOfCalls(t, "Append", 2)
}

func TestExecutor_FailureEscalation(t *testing.T) {
	tests := []struct {
		name           string
		seededErrors   int
		expectedStatus models.WorkflowStatus
		wantStatusEvnt bool
	}{
		// The failing run itself contributes one error and one running
		// record to the 5-entry window.
		{name: "escalates at three errors in window", seededErrors: 2, expectedStatus: models.WorkflowStatusError, wantStatusEvnt: true},
		{name: "stays active below threshold", seededErrors: 1, expectedStatus: models.WorkflowStatusActive, wantStatusEvnt: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()

			p := file.NewPersistence(t.TempDir())
			reg := registry.NewRegistry(slog.Default())
			reg.RegisterAction(factoryOf("boom", actionFunc(func(_ context.Context, _ models.ExecutionContext, _ *slog.Logger) (any, error) {
				return nil, errors.New("boom")
			})))

			bus := &mocks.MockEventBus{}
			bus.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil)

			executor := workflow.NewExecutor(p, reg, bus, slog.Default())

			wf := activeWorkflow("wf-flaky", models.Action{Type: "boom"})
			require.NoError(t, p.WorkflowRepository().Save(ctx, wf))

			for i := 0; i < tt.seededErrors; i++ {
				require.NoError(t, p.ExecutionLogRepository().Append(ctx, &models.ExecutionLog{
					WorkflowID:  "wf-flaky",
					ExecutionID: "exec-seed",
					Status:      models.ExecutionStatusError,
					Message:     "seeded failure",
				}))
			}

			_, err := executor.ExecuteWorkflow(ctx, "wf-flaky")
			require.Error(t, err)

			loaded, err := p.WorkflowRepository().GetByID(ctx, "wf-flaky")
			require.NoError(t, err)
			require.NotNil(t, loaded)
			assert.Equal(t, tt.expectedStatus, loaded.Status)

			if tt.wantStatusEvnt {
				bus.AssertCalled(t, "Publish", mock.Anything, "wf-flaky", mock.AnythingOfType("events.WorkflowStatusChanged"))
			} else {
				bus.AssertNotCalled(t, "Publish", mock.Anything, "wf-flaky", mock.AnythingOfType("events.WorkflowStatusChanged"))
			}
		})
	}
}

func TestExecutor_StopExecution(t *testing.T) {
	ctx := context.Background()

	started := make(chan struct{})
	blocker := actionFunc(func(ctx context.Context, _ models.ExecutionContext, _ *slog.Logger) (any, error) {
		close(started)
		<-ctx.Done()

		return nil, ctx.Err()
	})

	executor, p := newTestExecutor(t, factoryOf("block", blocker))

	wf := activeWorkflow("wf-stop", models.Action{Type: "block"})
	require.NoError(t, p.WorkflowRepository().Save(ctx, wf))

	type outcome struct {
		result *models.ExecutionResult
		err    error
	}

	done := make(chan outcome, 1)

	go func() {
		result, err := executor.ExecuteWorkflow(ctx, "wf-stop")
		done <- outcome{result: result, err: err}
	}()

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("action never started")
	}

	require.Equal(t, 1, executor.RunningExecutionCount())

	running := executor.RunningExecutions()
	require.Len(t, running, 1)
	assert.Equal(t, "wf-stop", running[0].WorkflowID)

	snapshot, ok := executor.RunningExecution(running[0].ID)
	require.True(t, ok)
	assert.Equal(t, running[0].ID, snapshot.ID)

	assert.False(t, executor.StopExecution("exec-missing"))
	assert.True(t, executor.StopExecution(running[0].ID))

	var finished outcome
	select {
	case finished = <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("execution never finished")
	}

	require.Error(t, finished.err)
	assert.Contains(t, finished.err.Error(), "context canceled")
	assert.False(t, finished.result.Success)
	assert.Equal(t, 0, executor.RunningExecutionCount())

	logs, err := p.ExecutionLogRepository().Recent(ctx, "wf-stop", 10)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, models.ExecutionStatusError, logs[0].Status)
}

func TestExecutor_ExecutionTimeout(t *testing.T) {
	ctx := context.Background()

	blocker := actionFunc(func(ctx context.Context, _ models.ExecutionContext, _ *slog.Logger) (any, error) {
		<-ctx.Done()

		return nil, ctx.Err()
	})

	executor, p := newTestExecutor(t, factoryOf("block", blocker))
	executor.SetExecutionTimeout(50 * time.Millisecond)

	wf := activeWorkflow("wf-slow", models.Action{Type: "block"})
	require.NoError(t, p.WorkflowRepository().Save(ctx, wf))

	result, err := executor.ExecuteWorkflow(ctx, "wf-slow")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "context deadline exceeded")
	assert.False(t, result.Success)
}
