package sysmetrics

import (
	"github.com/flowmate/flowmate/pkg/persistence"
	"github.com/flowmate/flowmate/pkg/protocol"
)

// ActionFactory creates check_system_metrics actions bound to a metric
// store.
type ActionFactory struct {
	metrics persistence.MetricRepository
}

// NewActionFactory creates a new check_system_metrics action factory.
func NewActionFactory(metrics persistence.MetricRepository) *ActionFactory {
	return &ActionFactory{metrics: metrics}
}

// ID returns the unique identifier for the action.
func (f *ActionFactory) ID() string {
	return "check_system_metrics"
}

// Create creates a new check_system_metrics action from the given configuration.
func (f *ActionFactory) Create(config map[string]any) (protocol.Action, error) {
	return NewAction(config, f.metrics), nil
}

// Schema returns the JSON schema for configuring this action.
func (f *ActionFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"thresholds": map[string]any{
				"type":        "object",
				"description": "Alert thresholds in percent.",
				"properties": map[string]any{
					"cpu":    map[string]any{"type": "number", "minimum": 0, "maximum": 100},
					"memory": map[string]any{"type": "number", "minimum": 0, "maximum": 100},
				},
				"additionalProperties": false,
			},
			"storeAs": map[string]any{
				"type":        "string",
				"description": "Context variable name the reading is stored under.",
			},
		},
		"additionalProperties": false,
	}
}
