package report

import (
	"github.com/flowmate/flowmate/pkg/protocol"
)

// ActionFactory creates generate_report actions.
type ActionFactory struct{}

// NewActionFactory creates a new generate_report action factory.
func NewActionFactory() *ActionFactory {
	return &ActionFactory{}
}

// ID returns the unique identifier for the action.
func (f *ActionFactory) ID() string {
	return "generate_report"
}

// Create creates a new generate_report action from the given configuration.
func (f *ActionFactory) Create(config map[string]any) (protocol.Action, error) {
	return NewAction(config)
}

// Schema returns the JSON schema for configuring this action.
func (f *ActionFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"format": map[string]any{
				"type":        "string",
				"description": "Output format of the report.",
				"default":     FormatJSON,
				"enum":        []string{FormatJSON, FormatCSV, FormatText},
			},
			"data": map[string]any{
				"description": "Explicit report input. Defaults to the full execution context variables.",
			},
			"template": map[string]any{
				"type":        "string",
				"description": "Text template with {{key}} placeholders, used by the text format.",
				"examples": []string{
					"Sales total: {{sales.total}}",
				},
			},
			"outputPath": map[string]any{
				"type":        "string",
				"description": "File path the rendered report is written to. Directories are created.",
			},
			"storeAs": map[string]any{
				"type":        "string",
				"description": "Context variable name the report result is stored under.",
			},
		},
		"additionalProperties": false,
	}
}
