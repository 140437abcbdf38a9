// Package email provides the send_email action. Delivery is a stub: the
// action validates and normalizes the envelope, renders template
// placeholders against the execution context, and records the send. There
// is no transport behind it.
package email

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/flowmate/flowmate/pkg/models"
	"github.com/flowmate/flowmate/pkg/template"
)

var (
	// ErrToRequired is returned when the 'to' parameter is missing or empty.
	ErrToRequired = errors.New("missing required 'to' parameter")
	// ErrSubjectRequired is returned when the 'subject' parameter is missing or empty.
	ErrSubjectRequired = errors.New("missing required 'subject' parameter")
	// ErrBodyRequired is returned when the 'body' parameter is missing or empty.
	ErrBodyRequired = errors.New("missing required 'body' parameter")
)

// Action records an outgoing email.
type Action struct {
	To          []string
	Subject     string
	Body        string
	Attachments []string
}

// NewAction creates a send_email action from step parameters. A scalar 'to'
// is normalized to a one-element recipient list.
func NewAction(config map[string]any) (*Action, error) {
	to := stringList(config["to"])
	if len(to) == 0 {
		return nil, ErrToRequired
	}

	subject, _ := config["subject"].(string)
	if subject == "" {
		return nil, ErrSubjectRequired
	}

	body, _ := config["body"].(string)
	if body == "" {
		return nil, ErrBodyRequired
	}

	return &Action{
		To:          to,
		Subject:     subject,
		Body:        body,
		Attachments: stringList(config["attachments"]),
	}, nil
}

// Execute renders subject and body against the context variables and
// records the send.
func (a *Action) Execute(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) (any, error) {
	logger = logger.With("module", "send_email_action")

	subject := template.Render(a.Subject, executionCtx.Variables)
	body := template.Render(a.Body, executionCtx.Variables)

	// Stub transport: the send is recorded, nothing leaves the process.
	logger.InfoContext(ctx, "Email sent",
		"to", a.To,
		"subject", subject,
		"body_length", len(body),
		"attachments", len(a.Attachments))

	return map[string]any{
		"to":          a.To,
		"subject":     subject,
		"status":      "sent",
		"sent_at":     time.Now().UTC().Format(time.RFC3339),
		"attachments": a.Attachments,
	}, nil
}

func stringList(value any) []string {
	switch v := value.(type) {
	case string:
		if v == "" {
			return []string{}
		}

		return []string{v}
	case []string:
		return v
	case []any:
		values := make([]string, 0, len(v))

		for _, item := range v {
			if s, ok := item.(string); ok && s != "" {
				values = append(values, s)
			}
		}

		return values
	default:
		return []string{}
	}
}
