package eventbus_test

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowmate/flowmate/pkg/channels/gochannel"
	"github.com/flowmate/flowmate/pkg/eventbus"
	"github.com/flowmate/flowmate/pkg/events"
)

func newTestBus(t *testing.T) eventbus.EventBus {
	t.Helper()

	pub, sub, err := gochannel.CreateTestChannel(watermill.NopLogger{})
	require.NoError(t, err)

	return eventbus.NewWatermillEventBus(pub, sub)
}

func TestWatermillEventBus_PublishAndHandle(t *testing.T) {
	bus := newTestBus(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan *events.WorkflowExecutionCompleted, 1)

	err := bus.Handle(events.WorkflowExecutionCompletedEvent, func(_ context.Context, event any) error {
		completed, ok := event.(*events.WorkflowExecutionCompleted)
		if ok {
			received <- completed
		}

		return nil
	})
	require.NoError(t, err)
	require.NoError(t, bus.Subscribe(ctx))

	sent := events.WorkflowExecutionCompleted{
		BaseEvent:       events.NewBaseEvent(events.WorkflowExecutionCompletedEvent, "wf-1"),
		ExecutionID:     "exec-1",
		ActionsExecuted: 2,
		Duration:        1500 * time.Millisecond,
	}
	require.NoError(t, bus.Publish(ctx, "wf-1", sent))

	select {
	case got := <-received:
		assert.Equal(t, "wf-1", got.WorkflowID)
		assert.Equal(t, "exec-1", got.ExecutionID)
		assert.Equal(t, 2, got.ActionsExecuted)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestWatermillEventBus_UnhandledTypeIsAcked(t *testing.T) {
	bus := newTestBus(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan any, 1)

	// Only status-changed events are handled; execution events must be
	// acked and dropped without reaching the handler.
	err := bus.Handle(events.WorkflowStatusChangedEvent, func(_ context.Context, event any) error {
		received <- event

		return nil
	})
	require.NoError(t, err)
	require.NoError(t, bus.Subscribe(ctx))

	started := events.WorkflowExecutionStarted{
		BaseEvent:   events.NewBaseEvent(events.WorkflowExecutionStartedEvent, "wf-1"),
		ExecutionID: "exec-1",
	}
	require.NoError(t, bus.Publish(ctx, "wf-1", started))

	select {
	case <-received:
		t.Fatal("handler should not receive events of other types")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatermillEventBus_GenerateID(t *testing.T) {
	bus := newTestBus(t)

	first := bus.GenerateID()
	second := bus.GenerateID()

	assert.NotEmpty(t, first)
	assert.NotEqual(t, first, second)
}
