package protocol

import "context"

// TriggerCallback is invoked by a trigger each time its start condition
// fires, carrying whatever payload the trigger source produced.
type TriggerCallback func(ctx context.Context, data map[string]any) error

// Trigger starts workflow executions from an external event source. Start
// must not block; Stop must wait for in-flight consumption to drain.
type Trigger interface {
	Validate(ctx context.Context) error
	Start(ctx context.Context, callback TriggerCallback) error
	Stop(ctx context.Context) error
}
