// Package testutil provides the shared harness for system tests: a
// thread-safe log buffer and a runner that stands up a full App from an
// in-memory file set.
package testutil

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vk/gwpipe/internal/app"
	"github.com/vk/gwpipe/internal/registry"
)

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

// Write implements the io.Writer interface for SafeBuffer.
func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

// String implements the fmt.Stringer interface for SafeBuffer.
func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// HarnessResult holds the outcomes of a system test run.
type HarnessResult struct {
	LogOutput string
	Err       error
	App       *app.App
	// Dir is the temporary root the harness wrote the files into.
	Dir string
}

// RunPipelineTest provides a standardized harness for system tests using a
// default background context.
func RunPipelineTest(t *testing.T, files map[string]string, configure func(*app.Config), modules ...registry.Module) *HarnessResult {
	t.Helper()
	return RunPipelineTestWithContext(context.Background(), t, files, configure, modules...)
}

// RunPipelineTestWithContext writes the given files into a temporary
// directory, builds an App around the "job.ini" file, and runs it. A
// startup panic is recovered into the result's Err.
func RunPipelineTestWithContext(ctx context.Context, t *testing.T, files map[string]string, configure func(*app.Config), modules ...registry.Module) *HarnessResult {
	t.Helper()

	tmpDir := t.TempDir()
	require.Contains(t, files, "job.ini", "harness requires a job.ini file")

	for name, content := range files {
		filePath := filepath.Join(tmpDir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(filePath), 0o755))
		require.NoError(t, os.WriteFile(filePath, []byte(content), 0o644))
	}

	appConfig := &app.Config{
		JobPath:     filepath.Join(tmpDir, "job.ini"),
		OutDir:      filepath.Join(tmpDir, "outdir"),
		LogLevel:    "debug",
		LogFormat:   "text",
		WorkerCount: 4,
	}
	for _, name := range []string{"train.yaml", "train.yml", "train.hcl"} {
		if _, ok := files[name]; ok {
			appConfig.TrainConfigPath = filepath.Join(tmpDir, name)
			break
		}
	}
	if configure != nil {
		configure(appConfig)
	}

	logBuffer := &SafeBuffer{}

	var testApp *app.App
	var panicErr any
	func() {
		defer func() {
			if r := recover(); r != nil {
				panicErr = r
			}
		}()
		testApp = app.NewApp(logBuffer, appConfig, modules...)
	}()

	if panicErr != nil {
		return &HarnessResult{
			LogOutput: logBuffer.String(),
			Err:       fmt.Errorf("application startup panicked | %v", panicErr),
			Dir:       tmpDir,
		}
	}

	runErr := testApp.Run(ctx, appConfig)

	if os.Getenv("GWPIPE_TEST_LOGS") == "true" {
		t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logBuffer.String())
	}

	return &HarnessResult{
		LogOutput: logBuffer.String(),
		Err:       runErr,
		App:       testApp,
		Dir:       tmpDir,
	}
}
