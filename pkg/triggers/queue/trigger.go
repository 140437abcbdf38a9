// Package queue implements the event trigger: a Redis list consumer that
// fires a workflow run for every message pushed onto its queue.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/flowmate/flowmate/pkg/protocol"
)

const (
	connectTimeout = 5 * time.Second
	popTimeout     = 1 * time.Second
	retryBackoff   = 1 * time.Second
)

// ErrQueueRequired is returned when the trigger configuration names no queue.
var ErrQueueRequired = errors.New("queue trigger queue name is required")

// Trigger consumes messages from a Redis list with BLPOP and invokes the
// callback once per message. One Trigger serves one workflow's queue.
type Trigger struct {
	Queue      string
	Connection map[string]string

	client   redis.UniversalClient
	callback protocol.TriggerCallback
	logger   *slog.Logger
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewTrigger creates a queue trigger from trigger configuration. The
// connection map accepts either a single "url" entry (redis:// URL) or
// "addr", "password" and "db" entries.
func NewTrigger(config map[string]any, logger *slog.Logger) (*Trigger, error) {
	queueName, _ := config["queue"].(string)
	if queueName == "" {
		return nil, ErrQueueRequired
	}

	connectionConfig, _ := config["connection"].(map[string]any)

	connection := make(map[string]string)

	for key, value := range connectionConfig {
		if str, ok := value.(string); ok {
			connection[key] = str
		}
	}

	return &Trigger{
		Queue:      queueName,
		Connection: connection,
		stopCh:     make(chan struct{}),
		logger: logger.With(
			"module", "queue_trigger",
			"queue", queueName,
		),
	}, nil
}

func (t *Trigger) Validate(_ context.Context) error {
	if t.Queue == "" {
		return ErrQueueRequired
	}

	return nil
}

// Start connects to Redis and begins consuming in a background goroutine.
func (t *Trigger) Start(ctx context.Context, callback protocol.TriggerCallback) error {
	t.logger.InfoContext(ctx, "Starting queue trigger")
	t.callback = callback

	err := t.initializeClient(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize queue client: %w", err)
	}

	t.wg.Add(1)

	go t.consume(ctx)

	return nil
}

func (t *Trigger) initializeClient(ctx context.Context) error {
	options, err := t.clientOptions()
	if err != nil {
		return err
	}

	t.client = redis.NewClient(options)

	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	err = t.client.Ping(ctx).Err()
	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	t.logger.InfoContext(ctx, "Connected to Redis", "addr", options.Addr, "db", options.DB)

	return nil
}

func (t *Trigger) clientOptions() (*redis.Options, error) {
	if url := t.Connection["url"]; url != "" {
		options, err := redis.ParseURL(url)
		if err != nil {
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}

		return options, nil
	}

	addr := t.Connection["addr"]
	if addr == "" {
		addr = "localhost:6379"
	}

	db := 0

	if dbStr := t.Connection["db"]; dbStr != "" {
		_, err := fmt.Sscanf(dbStr, "%d", &db)
		if err != nil {
			return nil, fmt.Errorf("invalid db value %q: %w", dbStr, err)
		}
	}

	return &redis.Options{
		Addr:     addr,
		Password: t.Connection["password"],
		DB:       db,
	}, nil
}

func (t *Trigger) consume(ctx context.Context) {
	defer t.wg.Done()

	t.logger.InfoContext(ctx, "Queue consumer started")

	for {
		select {
		case <-t.stopCh:
			t.logger.InfoContext(ctx, "Queue consumer stopped")

			return
		case <-ctx.Done():
			t.logger.InfoContext(ctx, "Context cancelled, stopping queue consumer")

			return
		default:
			err := t.processMessage(ctx)
			if err != nil {
				t.logger.ErrorContext(ctx, "Error processing queue message", "error", err)
				time.Sleep(retryBackoff)
			}
		}
	}
}

// processMessage pops a single message. A timed-out BLPOP (redis.Nil) is
// not an error, it just means the queue stayed empty for one poll window.
func (t *Trigger) processMessage(ctx context.Context) error {
	result, err := t.client.BLPop(ctx, popTimeout, t.Queue).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}

		return fmt.Errorf("failed to pop message from queue: %w", err)
	}

	if len(result) < 2 {
		return nil
	}

	message := result[1]
	t.logger.InfoContext(ctx, "Received message from queue")

	triggerData := decodeMessage(message)

	t.wg.Add(1)

	go func() {
		defer t.wg.Done()

		err := t.callback(ctx, triggerData)
		if err != nil {
			t.logger.ErrorContext(ctx, "Error executing workflow for queue message", "error", err)
		}
	}()

	return nil
}

// decodeMessage parses the payload as JSON; non-JSON payloads are wrapped
// so the raw text still reaches the workflow as trigger data.
func decodeMessage(message string) map[string]any {
	var triggerData map[string]any

	err := json.Unmarshal([]byte(message), &triggerData)
	if err != nil || triggerData == nil {
		triggerData = map[string]any{
			"message": message,
		}
	}

	if triggerData["timestamp"] == nil {
		triggerData["timestamp"] = time.Now().UTC().Format(time.RFC3339)
	}

	return triggerData
}

// Stop halts consumption and waits for in-flight callbacks to finish.
func (t *Trigger) Stop(ctx context.Context) error {
	t.logger.InfoContext(ctx, "Stopping queue trigger")

	close(t.stopCh)
	t.wg.Wait()

	if t.client != nil {
		err := t.client.Close()
		if err != nil {
			t.logger.ErrorContext(ctx, "Error closing Redis client", "error", err)
		}
	}

	return nil
}
