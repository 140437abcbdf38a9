package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	cli "github.com/urfave/cli/v3"

	"github.com/flowmate/flowmate/pkg/cmd"
	"github.com/flowmate/flowmate/pkg/log"
	"github.com/flowmate/flowmate/pkg/otelhelper"
)

const (
	defaultPort             = 9090
	defaultExecutionTimeout = 5 * time.Minute
)

func main() {
	cmd := &cli.Command{
		Name:                  "flowmate-server",
		Usage:                 "Run the workflow API, cron scheduler and event trigger consumers",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the HTTP server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL (postgres://... or a data directory path)",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus provider (gochannel, kafka)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "kafka-brokers",
				Usage:   "Comma-separated Kafka broker list (kafka event bus only)",
				Value:   "",
				Sources: cli.EnvVars("KAFKA_BROKERS"),
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis URL backing event-triggered workflow queues",
				Value:   "",
				Sources: cli.EnvVars("REDIS_URL"),
			},
			&cli.DurationFlag{
				Name:    "execution-timeout",
				Usage:   "Maximum duration of one workflow run (0 disables the limit)",
				Value:   defaultExecutionTimeout,
				Sources: cli.EnvVars("EXECUTION_TIMEOUT"),
			},
			&cli.BoolFlag{
				Name:    "tracing",
				Usage:   "Export execution traces over OTLP/HTTP",
				Sources: cli.EnvVars("TRACING_ENABLED"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger := log.WithModule("server")

			logger.InfoContext(ctx, "Initializing Flowmate server")

			if command.Bool("tracing") {
				_, err := otelhelper.NewTracer(ctx, "flowmate-server")
				if err != nil {
					return fmt.Errorf("failed to initialize tracing: %w", err)
				}
			}

			persistence, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			if err != nil {
				return fmt.Errorf("failed to initialize persistence: %w", err)
			}

			defer func() {
				err := persistence.Close(ctx)
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			registry := cmd.NewRegistry(logger, persistence.MetricRepository())

			eventBus, err := cmd.NewEventBus(command.String("event-bus"), parseBrokers(command.String("kafka-brokers")), logger)
			if err != nil {
				return fmt.Errorf("failed to initialize event bus: %w", err)
			}

			defer func() {
				err := eventBus.Close()
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			server := NewServer(logger, persistence, registry, eventBus, Config{
				RedisURL:         command.String("redis-url"),
				ExecutionTimeout: command.Duration("execution-timeout"),
			})

			err = server.Start(ctx, command.Int("port"))
			if err != nil {
				logger.ErrorContext(ctx, "Server stopped with error", "error", err)
			}

			return err
		},
	}

	err := cmd.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}

func parseBrokers(raw string) []string {
	var brokers []string

	for _, broker := range strings.Split(raw, ",") {
		broker = strings.TrimSpace(broker)
		if broker != "" {
			brokers = append(brokers, broker)
		}
	}

	return brokers
}
