package app

import (
	"context"
	"fmt"
	"os"

	"github.com/vk/gwpipe/internal/condor"
	"github.com/vk/gwpipe/internal/ctxlog"
	"github.com/vk/gwpipe/internal/dag"
	"github.com/vk/gwpipe/internal/jobcfg"
	"github.com/vk/gwpipe/internal/pipeline"
	"github.com/vk/gwpipe/internal/yamlcfg"
)

// Run executes the main application logic based on the provided configuration.
func (a *App) Run(ctx context.Context, appConfig *Config) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	if appConfig.HealthcheckPort > 0 {
		a.startHealthcheckServer(appConfig.HealthcheckPort)
	}

	if err := a.validateSettings(ctx); err != nil {
		return err
	}
	a.logger.Info("Configuration validation passed.", "label", a.job.DataGeneration.Label)

	if appConfig.ValidateOnly {
		return a.printNormalized()
	}

	a.logger.Debug("Building pipeline plan...")
	plan, err := pipeline.Build(ctx, a.job)
	if err != nil {
		return fmt.Errorf("failed to build pipeline plan: %w", err)
	}
	a.logger.Debug("Pipeline plan built.", "stages", len(plan.Stages))

	if err := a.writeRunDirectory(ctx, plan); err != nil {
		return err
	}

	if appConfig.SubmitOnly || !a.job.Submission.Local {
		return a.submit(ctx, plan)
	}
	return a.runLocal(ctx, plan, appConfig.WorkerCount)
}

// validateSettings checks both configuration documents, collecting the
// job document's errors and the training settings' errors together.
func (a *App) validateSettings(ctx context.Context) error {
	if err := a.job.Validate(ctx); err != nil {
		return fmt.Errorf("job document is invalid: %w", err)
	}
	if a.train != nil {
		if err := a.train.Validate(ctx); err != nil {
			return fmt.Errorf("training settings are invalid: %w", err)
		}
	}
	return nil
}

// printNormalized writes the canonical renderings of the loaded documents.
func (a *App) printNormalized() error {
	if _, err := a.outW.Write(jobcfg.Encode(a.job)); err != nil {
		return err
	}
	if a.train != nil {
		raw, err := yamlcfg.Encode(a.train)
		if err != nil {
			return fmt.Errorf("encoding training settings: %w", err)
		}
		if _, err := a.outW.Write(raw); err != nil {
			return err
		}
	}
	return nil
}

// writeRunDirectory creates the run directory and writes the normalized
// job document every stage reads.
func (a *App) writeRunDirectory(ctx context.Context, plan *pipeline.Plan) error {
	logger := ctxlog.FromContext(ctx)
	if err := os.MkdirAll(plan.OutDir, 0o755); err != nil {
		return fmt.Errorf("creating run directory: %w", err)
	}
	if err := os.WriteFile(plan.ConfigPath, jobcfg.Encode(a.job), 0o644); err != nil {
		return fmt.Errorf("writing normalized job document: %w", err)
	}
	logger.Debug("Run directory prepared.", "dir", plan.OutDir)
	return nil
}

// submit renders the HTCondor artifacts without executing anything.
func (a *App) submit(ctx context.Context, plan *pipeline.Plan) error {
	writer, err := condor.NewWriter(a.job)
	if err != nil {
		return fmt.Errorf("failed to generate scheduler artifacts: %w", err)
	}
	dagPath, err := writer.Write(ctx, plan)
	if err != nil {
		return fmt.Errorf("failed to generate scheduler artifacts: %w", err)
	}
	fmt.Fprintf(a.outW, "To submit, run:\n\ncondor_submit_dag %s\n", dagPath)
	return nil
}

// runLocal executes the whole pipeline in-process via the DAG executor.
func (a *App) runLocal(ctx context.Context, plan *pipeline.Plan, workers int) error {
	graph, err := dag.Build(ctx, plan, a.registry)
	if err != nil {
		return fmt.Errorf("failed to build dependency graph: %w", err)
	}
	a.logger.Debug("Dependency graph built.", "node_count", len(graph.Nodes))

	a.logger.Info("🚀 Starting local pipeline execution...", "workers", workers)
	executor := dag.NewExecutor(graph, workers, a.registry)
	if err := executor.Run(ctx); err != nil {
		return fmt.Errorf("execution failed: %w", err)
	}
	a.logger.Info("🏁 Pipeline finished.")
	return nil
}
