// Package main provides the Flowmate server: REST API, cron scheduler and
// event trigger consumers in a single process.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"

	"github.com/flowmate/flowmate/pkg/eventbus"
	"github.com/flowmate/flowmate/pkg/persistence"
	"github.com/flowmate/flowmate/pkg/registry"
	"github.com/flowmate/flowmate/pkg/scheduler"
	"github.com/flowmate/flowmate/pkg/services"
	"github.com/flowmate/flowmate/pkg/web"
	"github.com/flowmate/flowmate/pkg/workflow"
)

const shutdownTimeout = 10 * time.Second

// Config carries the runtime settings the server wires into its components.
type Config struct {
	RedisURL         string
	ExecutionTimeout time.Duration
}

type Server struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	registry    *registry.Registry
	executor    *workflow.Executor
	scheduler   *scheduler.Scheduler
	triggers    *EventTriggerManager
	validate    *validator.Validate
}

func NewServer(
	logger *slog.Logger,
	persistence persistence.Persistence,
	registry *registry.Registry,
	eventBus eventbus.EventBus,
	config Config,
) *Server {
	executor := workflow.NewExecutor(persistence, registry, eventBus, logger)
	executor.SetExecutionTimeout(config.ExecutionTimeout)

	cronScheduler := scheduler.NewScheduler(persistence.WorkflowRepository(), executor, logger)
	triggers := NewEventTriggerManager(persistence.WorkflowRepository(), executor, config.RedisURL, logger)

	return &Server{
		logger:      logger,
		persistence: persistence,
		registry:    registry,
		executor:    executor,
		scheduler:   cronScheduler,
		triggers:    triggers,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (s *Server) App() *fiber.App {
	workflowService := services.NewWorkflow(s.persistence, s.registry, s.scheduler, s.logger)
	executionService := services.NewExecution(s.persistence, s.executor, s.scheduler, s.logger)

	handlers := web.NewAPIHandlers(workflowService, executionService, s.scheduler, s.validate, s.registry)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Flowmate API")
	})

	w := app.Group("/workflows")
	w.Get("/", handlers.GetWorkflows)
	w.Post("/", handlers.CreateWorkflow)
	w.Get("/:id", handlers.GetWorkflow)
	w.Patch("/:id", handlers.UpdateWorkflow)
	w.Delete("/:id", handlers.DeleteWorkflow)
	w.Post("/:id/trigger", handlers.TriggerWorkflow)
	w.Get("/:id/executions", handlers.GetWorkflowExecutions)

	e := app.Group("/executions")
	e.Get("/running", handlers.GetRunningExecutions)
	e.Delete("/:id", handlers.StopExecution)

	sch := app.Group("/scheduler")
	sch.Get("/tasks", handlers.GetScheduledTasks)
	sch.Get("/stats", handlers.GetSchedulerStats)
	sch.Post("/reload", handlers.ReloadScheduler)

	app.Get("/metrics/samples", handlers.GetMetricSamples)
	app.Get("/health", handlers.HealthCheck)

	return app
}

// Start launches the scheduler, the event trigger consumers and the HTTP
// listener. It blocks until the listener stops; SIGINT and SIGTERM drain
// the listener first so Start can finish the shutdown sequence.
func (s *Server) Start(ctx context.Context, port int) error {
	err := s.scheduler.Start(ctx)
	if err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	err = s.triggers.Start(ctx)
	if err != nil {
		s.scheduler.Stop()

		return fmt.Errorf("failed to start event triggers: %w", err)
	}

	app := s.App()
	s.handleSignals(ctx, app)

	err = app.Listen(":" + strconv.Itoa(port))

	s.shutdown(ctx)

	return err
}

// handleSignals drains the HTTP listener when the process is asked to
// stop. Listen then returns and Start runs the rest of the shutdown.
func (s *Server) handleSignals(ctx context.Context, app *fiber.App) {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-signals
		s.logger.InfoContext(ctx, "Received signal, shutting down gracefully...", "signal", sig)

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		err := app.ShutdownWithContext(shutdownCtx)
		if err != nil {
			s.logger.ErrorContext(ctx, "HTTP server shutdown failed", "error", err)
		}
	}()
}

func (s *Server) shutdown(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)

	err := s.triggers.Stop(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to stop event triggers", "error", err)
	}

	s.scheduler.Stop()
}
