package models

import "time"

// MetricSample is one point-in-time system usage reading taken by the
// check_system_metrics action.
type MetricSample struct {
	ID            string    `json:"id"`
	CPUPercent    float64   `json:"cpu_percent"`
	MemoryPercent float64   `json:"memory_percent"`
	RecordedAt    time.Time `json:"recorded_at"`
}
