// Package cmd provides common initialization functions for command-line applications.
package cmd

import (
	"log/slog"

	"github.com/flowmate/flowmate/pkg/actions/email"
	"github.com/flowmate/flowmate/pkg/actions/fetchdata"
	"github.com/flowmate/flowmate/pkg/actions/logresult"
	"github.com/flowmate/flowmate/pkg/actions/report"
	"github.com/flowmate/flowmate/pkg/actions/sysmetrics"
	"github.com/flowmate/flowmate/pkg/persistence"
	"github.com/flowmate/flowmate/pkg/registry"
)

// NewRegistry builds the action registry with every native action type.
// The metric repository backs the samples recorded by check_system_metrics.
func NewRegistry(logger *slog.Logger, metrics persistence.MetricRepository) *registry.Registry {
	reg := registry.NewRegistry(logger)

	reg.RegisterAction(fetchdata.NewActionFactory())
	reg.RegisterAction(sysmetrics.NewActionFactory(metrics))
	reg.RegisterAction(report.NewActionFactory())
	reg.RegisterAction(email.NewActionFactory())
	reg.RegisterAction(logresult.NewActionFactory())

	return reg
}
