// Package registry maps action types to their factories. The action set is
// closed: every factory is registered at process start, there is no runtime
// plugin loading.
package registry

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/flowmate/flowmate/pkg/protocol"
)

type Registry struct {
	logger          *slog.Logger
	actionFactories map[string]protocol.ActionFactory
}

func NewRegistry(log *slog.Logger) *Registry {
	return &Registry{
		logger:          log,
		actionFactories: make(map[string]protocol.ActionFactory),
	}
}

func (r *Registry) RegisterAction(actionFactory protocol.ActionFactory) {
	r.actionFactories[actionFactory.ID()] = actionFactory
}

// CreateAction builds an executable action of the given type from a
// workflow step's parameter map.
func (r *Registry) CreateAction(actionType string, config map[string]any) (protocol.Action, error) {
	factory, ok := r.actionFactories[actionType]
	if !ok {
		return nil, fmt.Errorf("action type '%s' not registered", actionType)
	}

	return factory.Create(config)
}

// ActionSchema returns the JSON Schema describing the parameters of the
// given action type, used to validate workflow definitions before they are
// persisted.
func (r *Registry) ActionSchema(actionType string) (map[string]any, bool) {
	factory, ok := r.actionFactories[actionType]
	if !ok {
		return nil, false
	}

	return factory.Schema(), true
}

// AvailableActions lists the registered action types, sorted.
func (r *Registry) AvailableActions() []string {
	types := make([]string, 0, len(r.actionFactories))
	for actionType := range r.actionFactories {
		types = append(types, actionType)
	}

	sort.Strings(types)

	return types
}

// HealthCheck reports whether the registry is usable: at least one action
// factory must be registered.
func (r *Registry) HealthCheck() (string, bool) {
	if len(r.actionFactories) == 0 {
		return "No action factories registered", false
	}

	return fmt.Sprintf("%d action factories registered", len(r.actionFactories)), true
}
