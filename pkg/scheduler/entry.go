// Package scheduler owns the timetable of cron-triggered workflows: one
// shared cron runner, one entry per scheduled workflow, and an overlap
// guard that keeps a workflow from being started by the scheduler while a
// previous scheduled run is still in flight.
package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/flowmate/flowmate/pkg/models"
)

// Runner is the scheduler's view of the execution engine.
type Runner interface {
	ExecuteWorkflow(ctx context.Context, workflowID string) (*models.ExecutionResult, error)
	RunningExecutionCount() int
}

// Entry is the bookkeeping record for one scheduled workflow. IsRunning is
// the overlap guard flag; NextRun is computed from the parsed cron
// schedule, not a fixed offset.
type Entry struct {
	WorkflowID string     `json:"workflow_id"`
	Expression string     `json:"expression"`
	IsRunning  bool       `json:"is_running"`
	LastRun    *time.Time `json:"last_run,omitempty"`
	NextRun    time.Time  `json:"next_run"`

	cronID   cron.EntryID
	schedule cron.Schedule
}

// Stats is a point-in-time summary of scheduler occupancy.
type Stats struct {
	TotalEntries       int        `json:"total_entries"`
	RunningEntries     int        `json:"running_entries"`
	InFlightExecutions int        `json:"in_flight_executions"`
	Started            bool       `json:"started"`
	StartedAt          *time.Time `json:"started_at,omitempty"`
}
