package testutil

import (
	"context"
	"sync"

	"github.com/vk/gwpipe/internal/pipeline"
	"github.com/vk/gwpipe/internal/registry"
)

// SpyModule registers recording handlers for every stage kind so system
// tests can run the pipeline without the real analysis executables.
type SpyModule struct {
	mu       sync.Mutex
	executed []string

	// FailOn maps stage names to the error their handler returns.
	FailOn map[string]error
}

// Register implements registry.Module.
func (m *SpyModule) Register(r *registry.Registry) {
	for _, kind := range []string{
		pipeline.KindGeneration,
		pipeline.KindSampling,
		pipeline.KindImportanceSampling,
		pipeline.KindPlot,
	} {
		r.RegisterStageHandler(kind, m.handle)
	}
}

func (m *SpyModule) handle(ctx context.Context, stage *pipeline.Stage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.executed = append(m.executed, stage.Name)
	if err, ok := m.FailOn[stage.Name]; ok {
		return err
	}
	return nil
}

// Executed returns the stage names that ran, in execution order.
func (m *SpyModule) Executed() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.executed))
	copy(out, m.executed)
	return out
}
