// Package registry holds the registered stage handlers for a single
// application instance and validates them against a pipeline plan.
package registry

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/vk/gwpipe/internal/ctxlog"
	"github.com/vk/gwpipe/internal/pipeline"
)

// Handler executes one pipeline stage.
type Handler func(ctx context.Context, stage *pipeline.Stage) error

// Module is the interface a group of stage handlers implements to be
// registered with the application.
type Module interface {
	Register(r *Registry)
}

// Registry maps stage kinds to their Go handlers.
type Registry struct {
	StageHandlers map[string]Handler
}

// New creates and initializes a new Registry instance.
func New() *Registry {
	return &Registry{
		StageHandlers: make(map[string]Handler),
	}
}

// RegisterStageHandler binds a handler to a stage kind. Re-registration
// replaces the previous handler, which is how tests install spies.
func (r *Registry) RegisterStageHandler(kind string, h Handler) {
	r.StageHandlers[kind] = h
}

// ValidatePlan performs a strict parity check between the plan and the
// registered handlers: every stage kind the plan schedules must have a
// handler, and dependencies must reference stages that exist.
func (r *Registry) ValidatePlan(ctx context.Context, plan *pipeline.Plan) error {
	logger := ctxlog.FromContext(ctx)
	var errs []string

	names := make(map[string]struct{}, len(plan.Stages))
	for _, stage := range plan.Stages {
		if _, dup := names[stage.Name]; dup {
			errs = append(errs, fmt.Sprintf("duplicate stage name '%s'", stage.Name))
		}
		names[stage.Name] = struct{}{}
	}

	missing := make(map[string]struct{})
	for _, stage := range plan.Stages {
		if _, ok := r.StageHandlers[stage.Kind]; !ok {
			missing[stage.Kind] = struct{}{}
		}
		for _, dep := range stage.DependsOn {
			if _, ok := names[dep]; !ok {
				errs = append(errs, fmt.Sprintf("stage '%s' depends on unknown stage '%s'", stage.Name, dep))
			}
		}
	}
	for kind := range missing {
		errs = append(errs, fmt.Sprintf("no handler registered for stage kind '%s'", kind))
	}

	if len(errs) > 0 {
		sort.Strings(errs)
		return fmt.Errorf("plan validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	logger.Debug("Plan validation passed.", "handlers", len(r.StageHandlers), "stages", len(plan.Stages))
	return nil
}
