// Package sysmetrics provides the check_system_metrics action: it samples
// current CPU and memory usage, persists the sample, and raises alert
// strings when configured thresholds are exceeded.
package sysmetrics

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"

	"github.com/flowmate/flowmate/pkg/models"
	"github.com/flowmate/flowmate/pkg/persistence"
)

// Action samples system usage and compares it against optional thresholds.
type Action struct {
	CPUThreshold    *float64
	MemoryThreshold *float64

	metrics persistence.MetricRepository
}

// NewAction creates a check_system_metrics action from step parameters.
// Thresholds are percentages under config key 'thresholds' ('cpu',
// 'memory'); absent thresholds disable the corresponding alert.
func NewAction(config map[string]any, metrics persistence.MetricRepository) *Action {
	action := &Action{metrics: metrics}

	if thresholds, ok := config["thresholds"].(map[string]any); ok {
		if value, ok := numeric(thresholds["cpu"]); ok {
			action.CPUThreshold = &value
		}

		if value, ok := numeric(thresholds["memory"]); ok {
			action.MemoryThreshold = &value
		}
	}

	return action
}

// Execute samples CPU and memory usage, records the sample, and returns the
// reading with any threshold alerts. A failed sample write is logged and
// swallowed: recording must never fail the workflow run.
func (a *Action) Execute(ctx context.Context, _ models.ExecutionContext, logger *slog.Logger) (any, error) {
	logger = logger.With("module", "check_system_metrics_action")

	cpuPercent, err := sampleCPU(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to sample cpu usage: %w", err)
	}

	memory, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to sample memory usage: %w", err)
	}

	sample := &models.MetricSample{
		CPUPercent:    cpuPercent,
		MemoryPercent: memory.UsedPercent,
		RecordedAt:    time.Now().UTC(),
	}

	if a.metrics != nil {
		err := a.metrics.RecordSample(ctx, sample)
		if err != nil {
			logger.ErrorContext(ctx, "Failed to record metric sample", "error", err)
		}
	}

	alerts := a.checkThresholds(sample)
	for _, alert := range alerts {
		logger.WarnContext(ctx, "System metrics alert", "alert", alert)
	}

	logger.InfoContext(ctx, "System metrics sampled",
		"cpu_percent", sample.CPUPercent,
		"memory_percent", sample.MemoryPercent,
		"alerts", len(alerts))

	return map[string]any{
		"cpu_percent":    sample.CPUPercent,
		"memory_percent": sample.MemoryPercent,
		"alerts":         alerts,
		"recorded_at":    sample.RecordedAt.Format(time.RFC3339),
	}, nil
}

// sampleCPU reads usage since the previous call. Interval 0 avoids blocking
// the execution for a sampling window.
func sampleCPU(ctx context.Context) (float64, error) {
	percents, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		return 0, err
	}

	if len(percents) == 0 {
		return 0, nil
	}

	return percents[0], nil
}

func (a *Action) checkThresholds(sample *models.MetricSample) []string {
	alerts := make([]string, 0)

	if a.CPUThreshold != nil && sample.CPUPercent > *a.CPUThreshold {
		alerts = append(alerts, fmt.Sprintf("CPU usage %.1f%% exceeds threshold %.1f%%", sample.CPUPercent, *a.CPUThreshold))
	}

	if a.MemoryThreshold != nil && sample.MemoryPercent > *a.MemoryThreshold {
		alerts = append(alerts, fmt.Sprintf("Memory usage %.1f%% exceeds threshold %.1f%%", sample.MemoryPercent, *a.MemoryThreshold))
	}

	return alerts
}

func numeric(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	default:
		return 0, false
	}
}
