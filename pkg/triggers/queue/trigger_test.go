package queue

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTrigger(t *testing.T) {
	logger := slog.Default()

	tests := []struct {
		name        string
		config      map[string]any
		expectError bool
	}{
		{
			name: "valid config with connection map",
			config: map[string]any{
				"queue": "orders",
				"connection": map[string]any{
					"addr":     "localhost:6379",
					"password": "",
					"db":       "0",
				},
			},
		},
		{
			name:   "queue name only",
			config: map[string]any{"queue": "orders"},
		},
		{
			name:        "missing queue",
			config:      map[string]any{"connection": map[string]any{"addr": "localhost:6379"}},
			expectError: true,
		},
		{
			name:        "empty queue",
			config:      map[string]any{"queue": ""},
			expectError: true,
		},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			trigger, err := NewTrigger(testCase.config, logger)

			if testCase.expectError {
				require.ErrorIs(t, err, ErrQueueRequired)
				assert.Nil(t, trigger)

				return
			}

			require.NoError(t, err)
			require.NotNil(t, trigger)
			assert.Equal(t, testCase.config["queue"], trigger.Queue)
			assert.NoError(t, trigger.Validate(context.Background()))
		})
	}
}

func TestNewTrigger_SkipsNonStringConnectionValues(t *testing.T) {
	trigger, err := NewTrigger(map[string]any{
		"queue": "orders",
		"connection": map[string]any{
			"addr": "redis.internal:6379",
			"db":   3,
		},
	}, slog.Default())

	require.NoError(t, err)
	assert.Equal(t, map[string]string{"addr": "redis.internal:6379"}, trigger.Connection)
}

func TestClientOptions(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		trigger := &Trigger{Queue: "orders", Connection: map[string]string{}}

		options, err := trigger.clientOptions()
		require.NoError(t, err)
		assert.Equal(t, "localhost:6379", options.Addr)
		assert.Equal(t, 0, options.DB)
	})

	t.Run("addr password db", func(t *testing.T) {
		trigger := &Trigger{Queue: "orders", Connection: map[string]string{
			"addr":     "redis.internal:6380",
			"password": "hunter2",
			"db":       "4",
		}}

		options, err := trigger.clientOptions()
		require.NoError(t, err)
		assert.Equal(t, "redis.internal:6380", options.Addr)
		assert.Equal(t, "hunter2", options.Password)
		assert.Equal(t, 4, options.DB)
	})

	t.Run("redis url", func(t *testing.T) {
		trigger := &Trigger{Queue: "orders", Connection: map[string]string{
			"url": "redis://:secret@redis.internal:6380/2",
		}}

		options, err := trigger.clientOptions()
		require.NoError(t, err)
		assert.Equal(t, "redis.internal:6380", options.Addr)
		assert.Equal(t, "secret", options.Password)
		assert.Equal(t, 2, options.DB)
	})

	t.Run("invalid url", func(t *testing.T) {
		trigger := &Trigger{Queue: "orders", Connection: map[string]string{
			"url": "://not-a-url",
		}}

		_, err := trigger.clientOptions()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid redis url")
	})

	t.Run("invalid db", func(t *testing.T) {
		trigger := &Trigger{Queue: "orders", Connection: map[string]string{
			"db": "not-a-number",
		}}

		_, err := trigger.clientOptions()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid db value")
	})
}

func TestDecodeMessage(t *testing.T) {
	t.Run("json payload becomes trigger data", func(t *testing.T) {
		data := decodeMessage(`{"order_id": "ord-1", "amount": 12.5}`)

		assert.Equal(t, "ord-1", data["order_id"])
		assert.InEpsilon(t, 12.5, data["amount"], 0.001)
		assert.NotEmpty(t, data["timestamp"])
	})

	t.Run("existing timestamp is kept", func(t *testing.T) {
		data := decodeMessage(`{"timestamp": "2026-01-02T03:04:05Z"}`)

		assert.Equal(t, "2026-01-02T03:04:05Z", data["timestamp"])
	})

	t.Run("non-json payload is wrapped", func(t *testing.T) {
		data := decodeMessage("plain text payload")

		assert.Equal(t, "plain text payload", data["message"])
		assert.NotEmpty(t, data["timestamp"])
	})

	t.Run("json null payload is wrapped", func(t *testing.T) {
		data := decodeMessage("null")

		assert.Equal(t, "null", data["message"])
		assert.NotEmpty(t, data["timestamp"])
	})
}
