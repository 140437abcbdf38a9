package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/flowmate/flowmate/pkg/models"
	"github.com/flowmate/flowmate/pkg/persistence"
)

// ErrNotStarted rejects operations that require a running scheduler.
var ErrNotStarted = errors.New("scheduler is not started")

// Scheduler triggers cron workflows through a shared cron runner. All entry
// table access, including the overlap guard's check-and-set, happens under
// one mutex.
type Scheduler struct {
	workflows persistence.WorkflowRepository
	runner    Runner
	logger    *slog.Logger

	mu        sync.RWMutex
	cron      *cron.Cron
	entries   map[string]*Entry
	started   bool
	startedAt time.Time
	runCtx    context.Context
	cancelRun context.CancelFunc
}

// NewScheduler creates a stopped scheduler.
func NewScheduler(workflows persistence.WorkflowRepository, runner Runner, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		workflows: workflows,
		runner:    runner,
		logger:    logger.With("module", "workflow_scheduler"),
		entries:   make(map[string]*Entry),
	}
}

// Start loads the active workflows, schedules the cron-triggered ones, and
// begins ticking. Executions started by ticks inherit from ctx, so
// cancelling it aborts scheduled runs. Starting a started scheduler is a
// warned no-op.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		s.logger.WarnContext(ctx, "Scheduler already started, ignoring Start")

		return nil
	}

	runner := cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger)))
	runCtx, cancelRun := context.WithCancel(ctx)

	s.cron = runner
	s.runCtx = runCtx
	s.cancelRun = cancelRun
	s.entries = make(map[string]*Entry)
	s.started = true
	s.startedAt = time.Now().UTC()
	s.mu.Unlock()

	workflows, err := s.workflows.GetActive(ctx)
	if err != nil {
		s.Stop()

		return fmt.Errorf("failed to load active workflows: %w", err)
	}

	scheduled := 0

	for _, workflow := range workflows {
		if workflow.Trigger.Type != models.TriggerCron {
			continue
		}

		if s.ScheduleWorkflow(workflow) {
			scheduled++
		}
	}

	runner.Start()

	s.logger.InfoContext(ctx, "Scheduler started", "scheduled_workflows", scheduled, "active_workflows", len(workflows))

	return nil
}

// Stop cancels every live timer and in-flight scheduled execution, clears
// the entry table, and marks the scheduler stopped. It can be started
// again afterwards.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()

		return
	}

	runner := s.cron
	cancelRun := s.cancelRun
	dropped := len(s.entries)

	s.cron = nil
	s.runCtx = nil
	s.cancelRun = nil
	s.entries = make(map[string]*Entry)
	s.started = false
	s.startedAt = time.Time{}
	s.mu.Unlock()

	cancelRun()
	runner.Stop()

	s.logger.Info("Scheduler stopped", "dropped_entries", dropped)
}

// ScheduleWorkflow registers a cron timer for the workflow and returns
// whether it was scheduled. Unschedulable workflows are refused: trigger
// type other than cron, empty schedule expression, inactive status, or an
// expression the standard 5-field parser rejects. An existing entry for
// the same workflow is replaced.
func (s *Scheduler) ScheduleWorkflow(workflow *models.Workflow) bool {
	logger := s.logger.With("workflow_id", workflow.ID)

	if workflow.Trigger.Type != models.TriggerCron {
		logger.Warn("Refusing to schedule workflow without cron trigger", "trigger_type", workflow.Trigger.Type)

		return false
	}

	expression := workflow.Trigger.Schedule
	if expression == "" {
		logger.Warn("Refusing to schedule workflow without schedule expression")

		return false
	}

	if !workflow.IsActive() {
		logger.Warn("Refusing to schedule inactive workflow", "status", workflow.Status)

		return false
	}

	schedule, err := cron.ParseStandard(expression)
	if err != nil {
		logger.Error("Invalid cron expression", "expression", expression, "error", err)

		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		logger.Warn("Scheduler not started, cannot schedule workflow")

		return false
	}

	if existing, ok := s.entries[workflow.ID]; ok {
		s.cron.Remove(existing.cronID)
		delete(s.entries, workflow.ID)
	}

	workflowID := workflow.ID
	entry := &Entry{
		WorkflowID: workflowID,
		Expression: expression,
		NextRun:    schedule.Next(time.Now().UTC()),
		schedule:   schedule,
	}
	entry.cronID = s.cron.Schedule(schedule, cron.FuncJob(func() {
		s.runScheduled(workflowID)
	}))
	s.entries[workflowID] = entry

	logger.Info("Workflow scheduled", "expression", expression, "next_run", entry.NextRun)

	return true
}

// UnscheduleWorkflow stops the workflow's timer and drops its entry.
// Returns false when the workflow has no entry.
func (s *Scheduler) UnscheduleWorkflow(workflowID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[workflowID]
	if !ok {
		return false
	}

	if s.cron != nil {
		s.cron.Remove(entry.cronID)
	}

	delete(s.entries, workflowID)

	s.logger.Info("Workflow unscheduled", "workflow_id", workflowID)

	return true
}

// RescheduleWorkflow replaces the workflow's entry after its definition
// changed.
func (s *Scheduler) RescheduleWorkflow(workflow *models.Workflow) bool {
	s.UnscheduleWorkflow(workflow.ID)

	return s.ScheduleWorkflow(workflow)
}

// TriggerWorkflow fires the workflow's tick handler immediately, ignoring
// the timetable. The overlap guard still applies. Returns false when the
// workflow has no scheduled entry.
func (s *Scheduler) TriggerWorkflow(workflowID string) bool {
	s.mu.RLock()
	_, ok := s.entries[workflowID]
	s.mu.RUnlock()

	if !ok {
		s.logger.Warn("Cannot trigger workflow without scheduled entry", "workflow_id", workflowID)

		return false
	}

	s.runScheduled(workflowID)

	return true
}

// ReloadWorkflows drops every entry and re-schedules the active cron
// workflows from the store. Full resync, not an incremental diff.
func (s *Scheduler) ReloadWorkflows(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()

		return ErrNotStarted
	}

	for workflowID, entry := range s.entries {
		s.cron.Remove(entry.cronID)
		delete(s.entries, workflowID)
	}
	s.mu.Unlock()

	workflows, err := s.workflows.GetActive(ctx)
	if err != nil {
		return fmt.Errorf("failed to load active workflows: %w", err)
	}

	scheduled := 0

	for _, workflow := range workflows {
		if workflow.Trigger.Type != models.TriggerCron {
			continue
		}

		if s.ScheduleWorkflow(workflow) {
			scheduled++
		}
	}

	s.logger.InfoContext(ctx, "Workflows reloaded", "scheduled_workflows", scheduled)

	return nil
}

// ScheduledTasks returns snapshot copies of every entry, ordered by
// workflow id.
func (s *Scheduler) ScheduledTasks() []*Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tasks := make([]*Entry, 0, len(s.entries))

	for _, entry := range s.entries {
		snapshot := *entry
		tasks = append(tasks, &snapshot)
	}

	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].WorkflowID < tasks[j].WorkflowID
	})

	return tasks
}

// ScheduledTask returns a snapshot copy of one entry.
func (s *Scheduler) ScheduledTask(workflowID string) (*Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[workflowID]
	if !ok {
		return nil, false
	}

	snapshot := *entry

	return &snapshot, true
}

// IsRunning reports whether the scheduler has been started.
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.started
}

// Stats reports current scheduler occupancy.
func (s *Scheduler) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := Stats{
		TotalEntries: len(s.entries),
		Started:      s.started,
	}

	if s.started {
		startedAt := s.startedAt
		stats.StartedAt = &startedAt
	}

	for _, entry := range s.entries {
		if entry.IsRunning {
			stats.RunningEntries++
		}
	}

	if s.runner != nil {
		stats.InFlightExecutions = s.runner.RunningExecutionCount()
	}

	return stats
}

// runScheduled is the tick handler. The overlap check-and-set is atomic
// under the scheduler mutex: a tick firing while the previous scheduled
// run of the same workflow is still in flight is skipped entirely.
func (s *Scheduler) runScheduled(workflowID string) {
	logger := s.logger.With("workflow_id", workflowID)

	s.mu.Lock()
	entry, ok := s.entries[workflowID]
	if !ok {
		s.mu.Unlock()
		logger.Warn("Tick for unknown scheduled workflow, ignoring")

		return
	}

	if entry.IsRunning {
		s.mu.Unlock()
		logger.Info("Previous scheduled run still in flight, skipping tick")

		return
	}

	now := time.Now().UTC()
	entry.IsRunning = true
	entry.LastRun = &now
	entry.NextRun = entry.schedule.Next(now)
	ctx := s.runCtx
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		// The entry may have been replaced or removed while running.
		if current, ok := s.entries[workflowID]; ok && current == entry {
			current.IsRunning = false
		}
		s.mu.Unlock()
	}()

	result, err := s.runner.ExecuteWorkflow(ctx, workflowID)
	if err != nil {
		logger.Error("Scheduled execution failed", "error", err)

		return
	}

	logger.Info("Scheduled execution completed",
		"execution_id", result.ExecutionID,
		"actions", len(result.Results),
		"duration", result.Duration)
}
