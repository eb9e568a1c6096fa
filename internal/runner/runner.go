// Package runner provides the default stage handlers for local pipeline
// execution. Each pipeline stage maps to an external analysis executable
// that is run as a subprocess with the job's configuration file.
package runner

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/vk/gwpipe/internal/ctxlog"
	"github.com/vk/gwpipe/internal/pipeline"
	"github.com/vk/gwpipe/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct {
	// OutDir is where stage logs are written. Empty disables log capture.
	OutDir string
	// LookPath resolves a command name to an executable path. Tests
	// override it to avoid depending on installed analysis tools.
	LookPath func(name string) (string, error)
}

// Register registers a subprocess handler for every stage kind.
func (m *Module) Register(r *registry.Registry) {
	for _, kind := range []string{
		pipeline.KindGeneration,
		pipeline.KindSampling,
		pipeline.KindImportanceSampling,
		pipeline.KindPlot,
	} {
		r.RegisterStageHandler(kind, m.runStage)
	}
}

// runStage executes the stage's command as a subprocess, respecting
// context cancellation.
func (m *Module) runStage(ctx context.Context, stage *pipeline.Stage) error {
	logger := ctxlog.FromContext(ctx).With("stage", stage.Name)

	lookPath := m.LookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	path, err := lookPath(stage.Command)
	if err != nil {
		return fmt.Errorf("stage '%s': executable '%s' not found: %w", stage.Name, stage.Command, err)
	}

	cmd := exec.CommandContext(ctx, path, stage.Args...)
	cmd.Env = os.Environ()

	if m.OutDir != "" {
		logDir := filepath.Join(m.OutDir, "log")
		if err := os.MkdirAll(logDir, 0o755); err != nil {
			return fmt.Errorf("stage '%s': creating log directory: %w", stage.Name, err)
		}
		logFile, err := os.Create(filepath.Join(logDir, stage.Name+".out"))
		if err != nil {
			return fmt.Errorf("stage '%s': creating log file: %w", stage.Name, err)
		}
		defer logFile.Close()
		cmd.Stdout = logFile
		cmd.Stderr = logFile
	} else {
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
	}

	logger.Info("Launching stage process.", "command", stage.Command, "args", stage.Args)
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("stage '%s': %s failed: %w", stage.Name, stage.Command, err)
	}
	logger.Info("Stage process finished.", "command", stage.Command)
	return nil
}
