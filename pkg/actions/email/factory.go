package email

import (
	"github.com/flowmate/flowmate/pkg/protocol"
)

// ActionFactory creates send_email actions.
type ActionFactory struct{}

// NewActionFactory creates a new send_email action factory.
func NewActionFactory() *ActionFactory {
	return &ActionFactory{}
}

// ID returns the unique identifier for the action.
func (f *ActionFactory) ID() string {
	return "send_email"
}

// Create creates a new send_email action from the given configuration.
func (f *ActionFactory) Create(config map[string]any) (protocol.Action, error) {
	return NewAction(config)
}

// Schema returns the JSON schema for configuring this action.
func (f *ActionFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"to": map[string]any{
				"description": "Recipient address or list of addresses.",
				"oneOf": []map[string]any{
					{"type": "string"},
					{"type": "array", "items": map[string]any{"type": "string"}},
				},
			},
			"subject": map[string]any{
				"type":        "string",
				"description": "Subject line. Supports {{key}} placeholders.",
			},
			"body": map[string]any{
				"type":        "string",
				"description": "Message body. Supports {{key}} placeholders.",
			},
			"attachments": map[string]any{
				"type":        "array",
				"description": "Attachment names recorded with the send.",
				"items":       map[string]any{"type": "string"},
			},
			"storeAs": map[string]any{
				"type":        "string",
				"description": "Context variable name the send receipt is stored under.",
			},
		},
		"required":             []string{"to", "subject", "body"},
		"additionalProperties": false,
	}
}
