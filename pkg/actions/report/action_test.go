package report_test

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowmate/flowmate/pkg/actions/report"
	"github.com/flowmate/flowmate/pkg/models"
)

func execute(t *testing.T, config map[string]any, variables map[string]any) map[string]any {
	t.Helper()

	action, err := report.NewAction(config)
	require.NoError(t, err)

	executionCtx := models.ExecutionContext{
		ID:         "exec-report-test",
		WorkflowID: "wf-report",
		Variables:  variables,
	}

	output, err := action.Execute(context.Background(), executionCtx, slog.Default())
	require.NoError(t, err)

	result, ok := output.(map[string]any)
	require.True(t, ok, "result should be a map")

	return result
}

func TestNewAction_FormatHandling(t *testing.T) {
	action, err := report.NewAction(map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, report.FormatJSON, action.Format, "json is the default format")

	action, err = report.NewAction(map[string]any{"format": "CSV"})
	require.NoError(t, err)
	assert.Equal(t, report.FormatCSV, action.Format)

	_, err = report.NewAction(map[string]any{"format": "xml"})
	require.Error(t, err)
	assert.ErrorIs(t, err, report.ErrUnsupportedFormat)
}

func TestAction_Execute_JSON(t *testing.T) {
	result := execute(t,
		map[string]any{"format": "json", "data": map[string]any{"total": 42, "region": "emea"}},
		nil,
	)

	assert.Equal(t, "json", result["format"])
	assert.JSONEq(t, `{"total": 42, "region": "emea"}`, result["content"].(string))
	assert.Equal(t, len(result["content"].(string)), result["length"])
}

func TestAction_Execute_JSONFromContextVariables(t *testing.T) {
	result := execute(t,
		map[string]any{"format": "json"},
		map[string]any{"sales": map[string]any{"total": 10}},
	)

	assert.JSONEq(t, `{"sales": {"total": 10}}`, result["content"].(string))
}

func TestAction_Execute_CSV(t *testing.T) {
	result := execute(t, map[string]any{
		"format": "csv",
		"data": []any{
			map[string]any{"name": "alpha", "value": 1},
			map[string]any{"name": "beta"},
		},
	}, nil)

	assert.Equal(t, "name,value\nalpha,1\nbeta,\n", result["content"])
}

func TestAction_Execute_CSV_NonTabularInput(t *testing.T) {
	tests := []struct {
		name string
		data any
	}{
		{name: "empty array", data: []any{}},
		{name: "scalar", data: 42},
		{name: "object", data: map[string]any{"a": 1}},
		{name: "array of scalars", data: []any{1, 2, 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := execute(t, map[string]any{"format": "csv", "data": tt.data}, nil)
			assert.Equal(t, "", result["content"], "non-tabular input renders an empty csv document")
			assert.Equal(t, 0, result["length"])
		})
	}
}

func TestAction_Execute_TextWithTemplate(t *testing.T) {
	result := execute(t, map[string]any{
		"format":   "text",
		"template": "Total for {{region}}: {{sales.total}}",
	}, map[string]any{
		"region": "emea",
		"sales":  map[string]any{"total": 42},
	})

	assert.Equal(t, "Total for emea: 42", result["content"])
}

func TestAction_Execute_TextKeyValueLines(t *testing.T) {
	result := execute(t, map[string]any{"format": "text"}, map[string]any{
		"beta":  2,
		"alpha": "x",
	})

	assert.Equal(t, "alpha: x\nbeta: 2\n", result["content"], "keys render sorted")
}

func TestAction_Execute_WritesOutputPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports", "daily", "sales.json")

	result := execute(t, map[string]any{
		"format":     "json",
		"data":       map[string]any{"ok": true},
		"outputPath": path,
	}, nil)

	assert.Equal(t, path, result["path"])

	written, err := os.ReadFile(path) // #nosec G304 -- test-owned temp path
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok": true}`, string(written))
}

func TestActionFactory(t *testing.T) {
	factory := report.NewActionFactory()

	assert.Equal(t, "generate_report", factory.ID())

	schema := factory.Schema()
	assert.Equal(t, "object", schema["type"])

	action, err := factory.Create(map[string]any{"format": "text"})
	require.NoError(t, err)
	assert.NotNil(t, action)
}
