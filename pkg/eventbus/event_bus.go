// Package eventbus provides the notification transport for workflow
// lifecycle events. Publishing is best-effort by contract: callers treat
// errors as diagnostics, never as execution failures.
package eventbus

import (
	"context"

	"github.com/flowmate/flowmate/pkg/events"
)

type Event interface {
	GetType() events.EventType
}

type EventPublisher interface {
	Publish(ctx context.Context, key string, event Event) error
}

type EventSubscriber interface {
	Handle(eventType events.EventType, handler EventHandler) error
	Subscribe(ctx context.Context) error
}

type EventHandler func(ctx context.Context, event any) error

type EventBus interface {
	EventPublisher
	EventSubscriber
	Close() error
	GenerateID() string
}
