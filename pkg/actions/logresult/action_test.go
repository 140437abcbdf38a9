package logresult_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowmate/flowmate/pkg/actions/logresult"
	"github.com/flowmate/flowmate/pkg/models"
)

func TestNewAction_Defaults(t *testing.T) {
	action := logresult.NewAction(map[string]any{})

	assert.Equal(t, "info", action.Level)
	assert.NotEmpty(t, action.Message)

	action = logresult.NewAction(map[string]any{"level": "WARN", "message": "heads up"})
	assert.Equal(t, "warn", action.Level)
	assert.Equal(t, "heads up", action.Message)
}

func TestAction_Execute_WithExplicitData(t *testing.T) {
	action := logresult.NewAction(map[string]any{
		"level":   "error",
		"message": "fetch failed",
		"data":    map[string]any{"attempt": 3},
	})

	executionCtx := models.ExecutionContext{
		ID:         "exec-log-test",
		WorkflowID: "wf-log",
		Variables:  map[string]any{"ignored": true},
	}

	output, err := action.Execute(context.Background(), executionCtx, slog.Default())
	require.NoError(t, err, "log_result never fails")

	entry, ok := output.(map[string]any)
	require.True(t, ok)

	assert.Equal(t, "error", entry["level"])
	assert.Equal(t, "fetch failed", entry["message"])
	assert.Equal(t, map[string]any{"attempt": 3}, entry["data"])
	assert.Equal(t, "wf-log", entry["workflow_id"])
	assert.Equal(t, "exec-log-test", entry["execution_id"])
	assert.NotEmpty(t, entry["logged_at"])
}

func TestAction_Execute_DefaultsToContextVariables(t *testing.T) {
	action := logresult.NewAction(map[string]any{})

	executionCtx := models.ExecutionContext{
		ID:         "exec-log-test",
		WorkflowID: "wf-log",
		Variables:  map[string]any{"sales": 42},
	}

	output, err := action.Execute(context.Background(), executionCtx, slog.Default())
	require.NoError(t, err)

	entry, ok := output.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, map[string]any{"sales": 42}, entry["data"])
}

func TestActionFactory(t *testing.T) {
	factory := logresult.NewActionFactory()

	assert.Equal(t, "log_result", factory.ID())

	action, err := factory.Create(map[string]any{"level": "debug"})
	require.NoError(t, err)
	assert.NotNil(t, action)
}
