// Package protocol defines the contracts between the engine and its
// pluggable components.
package protocol

import (
	"context"
	"log/slog"

	"github.com/flowmate/flowmate/pkg/models"
)

// Action is one executable workflow step. Execute receives the run context
// (cancellation and per-execution timeouts flow through it), the execution
// context whose variable bag it may read, and a logger scoped to the run.
type Action interface {
	Execute(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) (any, error)
}

// ActionFactory builds actions of one registered type from the raw
// parameter map of a workflow step. Schema describes the parameters as a
// JSON Schema document used to validate workflow definitions before they
// are persisted.
type ActionFactory interface {
	ID() string
	Create(config map[string]any) (Action, error)
	Schema() map[string]any
}
