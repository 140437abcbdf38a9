package fetchdata

import (
	"github.com/flowmate/flowmate/pkg/protocol"
)

// ActionFactory creates fetch_data actions.
type ActionFactory struct{}

// NewActionFactory creates a new fetch_data action factory.
func NewActionFactory() *ActionFactory {
	return &ActionFactory{}
}

// ID returns the unique identifier for the action.
func (f *ActionFactory) ID() string {
	return "fetch_data"
}

// Create creates a new fetch_data action from the given configuration.
func (f *ActionFactory) Create(config map[string]any) (protocol.Action, error) {
	return NewAction(config)
}

// Schema returns the JSON schema for configuring this action.
func (f *ActionFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"url": map[string]any{
				"type":        "string",
				"description": "The URL to fetch data from.",
				"examples": []string{
					"https://api.example.com/users",
					"https://status.example.com/health",
				},
			},
			"method": map[string]any{
				"type":        "string",
				"description": "HTTP method to use.",
				"default":     "GET",
				"enum":        []string{"GET", "POST", "PUT", "DELETE", "PATCH", "HEAD", "OPTIONS"},
			},
			"headers": map[string]any{
				"type":        "object",
				"description": "HTTP headers to include in the request.",
				"additionalProperties": map[string]any{
					"type": "string",
				},
			},
			"body": map[string]any{
				"type":        "string",
				"description": "Request body content.",
			},
			"timeout": map[string]any{
				"type":        "number",
				"description": "Request timeout in seconds.",
				"default":     30, //nolint:mnd // schema default
				"minimum":     1,
			},
			"storeAs": map[string]any{
				"type":        "string",
				"description": "Context variable name the response is stored under.",
			},
		},
		"required":             []string{"url"},
		"additionalProperties": false,
	}
}
