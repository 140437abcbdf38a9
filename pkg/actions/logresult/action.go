// Package logresult provides the log_result action: it emits a structured
// log entry carrying an explicit data parameter, or the full execution
// context variables, and always succeeds.
package logresult

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/flowmate/flowmate/pkg/models"
)

const defaultMessage = "Workflow log entry"

// Action emits one structured log entry per execution.
type Action struct {
	Level   string
	Message string
	Data    any

	hasData bool
}

// NewAction creates a log_result action from step parameters. Unknown
// levels fall back to info.
func NewAction(config map[string]any) *Action {
	level, _ := config["level"].(string)
	if level == "" {
		level = "info"
	}

	message, _ := config["message"].(string)
	if message == "" {
		message = defaultMessage
	}

	data, hasData := config["data"]

	return &Action{
		Level:   strings.ToLower(level),
		Message: message,
		Data:    data,
		hasData: hasData,
	}
}

// Execute emits the entry and returns it. It never fails.
func (a *Action) Execute(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) (any, error) {
	logger = logger.With("module", "log_result_action")

	data := a.Data
	if !a.hasData {
		data = executionCtx.Variables
	}

	loggedAt := time.Now().UTC()

	logger.Log(ctx, slogLevel(a.Level), a.Message,
		"workflow_id", executionCtx.WorkflowID,
		"execution_id", executionCtx.ID,
		"data", data)

	return map[string]any{
		"level":        a.Level,
		"message":      a.Message,
		"data":         data,
		"workflow_id":  executionCtx.WorkflowID,
		"execution_id": executionCtx.ID,
		"logged_at":    loggedAt.Format(time.RFC3339),
	}, nil
}

func slogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
