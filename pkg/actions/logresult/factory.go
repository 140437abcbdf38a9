package logresult

import (
	"github.com/flowmate/flowmate/pkg/protocol"
)

// ActionFactory creates log_result actions.
type ActionFactory struct{}

// NewActionFactory creates a new log_result action factory.
func NewActionFactory() *ActionFactory {
	return &ActionFactory{}
}

// ID returns the unique identifier for the action.
func (f *ActionFactory) ID() string {
	return "log_result"
}

// Create creates a new log_result action from the given configuration.
func (f *ActionFactory) Create(config map[string]any) (protocol.Action, error) {
	return NewAction(config), nil
}

// Schema returns the JSON schema for configuring this action.
func (f *ActionFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"level": map[string]any{
				"type":        "string",
				"description": "Log level of the entry.",
				"default":     "info",
				"enum":        []string{"debug", "info", "warn", "error"},
			},
			"message": map[string]any{
				"type":        "string",
				"description": "Message of the entry.",
			},
			"data": map[string]any{
				"description": "Payload logged with the entry. Defaults to the full execution context variables.",
			},
			"storeAs": map[string]any{
				"type":        "string",
				"description": "Context variable name the entry is stored under.",
			},
		},
		"additionalProperties": false,
	}
}
