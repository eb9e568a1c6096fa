package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/vk/gwpipe/internal/config"
	"github.com/vk/gwpipe/internal/ctxlog"
	"github.com/vk/gwpipe/internal/jobcfg"
	"github.com/vk/gwpipe/internal/registry"
	"github.com/vk/gwpipe/internal/runner"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	registry *registry.Registry
	job      *jobcfg.JobSettings
	train    *config.TrainSettings
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance, including its own isolated logger and registry.
// A failure to load any configuration document is a fatal startup error
// and panics; the entrypoint recovers and reports it.
func NewApp(outW io.Writer, appConfig *Config, modules ...registry.Module) *App {
	logger := newLogger(appConfig.LogLevel, appConfig.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	job, err := jobcfg.Load(ctx, appConfig.JobPath)
	if err != nil {
		panic(fmt.Errorf("failed to load job document: %w", err))
	}
	if appConfig.OutDir != "" {
		job.DataGeneration.OutDir = appConfig.OutDir
	}
	if job.DataGeneration.Label != "" {
		logger = logger.With("run", job.DataGeneration.Label)
		ctx = ctxlog.WithLogger(ctx, logger)
	}
	logger.Debug("Job document loaded.", "path", appConfig.JobPath)

	var train *config.TrainSettings
	if appConfig.TrainConfigPath != "" {
		train, err = loadTrainSettings(ctx, appConfig.TrainConfigPath)
		if err != nil {
			panic(fmt.Errorf("failed to load training settings: %w", err))
		}
		logger.Debug("Training settings loaded.", "path", appConfig.TrainConfigPath)
	}

	reg := registry.New()
	if len(modules) == 0 {
		modules = []registry.Module{&runner.Module{OutDir: job.DataGeneration.OutDir}}
	}
	for _, mod := range modules {
		mod.Register(reg)
	}
	logger.Debug("All stage modules registered.", "handlers", len(reg.StageHandlers))

	return &App{
		outW:     outW,
		logger:   logger,
		registry: reg,
		job:      job,
		train:    train,
	}
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}
