package condor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/vk/gwpipe/internal/ctxlog"
	"github.com/vk/gwpipe/internal/jobcfg"
	"github.com/vk/gwpipe/internal/pipeline"
)

// SubmitDirName is the directory under the run directory that holds the
// generated submit descriptions and the DAG file.
const SubmitDirName = "submit"

// Writer renders HTCondor artifacts for a plan into its run directory.
type Writer struct {
	Accounting    string
	TransferFiles bool
	Environment   []string // KEY=VALUE pairs
}

// NewWriter creates a Writer carrying the job's submission settings.
func NewWriter(job *jobcfg.JobSettings) (*Writer, error) {
	env, err := job.Submission.EnvironmentStrings()
	if err != nil {
		return nil, fmt.Errorf("rendering environment variables: %w", err)
	}
	return &Writer{
		Accounting:    job.Submission.Accounting,
		TransferFiles: job.Submission.TransferFiles,
		Environment:   env,
	}, nil
}

// Write renders one submit description per stage plus the DAG file and
// returns the DAG file path. Directories are created as needed.
func (w *Writer) Write(ctx context.Context, plan *pipeline.Plan) (string, error) {
	logger := ctxlog.FromContext(ctx)

	submitDir := filepath.Join(plan.OutDir, SubmitDirName)
	logDir := filepath.Join(plan.OutDir, "log")
	for _, dir := range []string{submitDir, logDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}

	for _, stage := range plan.Stages {
		path := w.submitPath(plan, stage)
		content := w.RenderSubmit(plan, stage)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return "", fmt.Errorf("writing submit description for stage '%s': %w", stage.Name, err)
		}
		logger.Debug("Wrote submit description.", "stage", stage.Name, "path", path)
	}

	dagPath := filepath.Join(submitDir, fmt.Sprintf("dag_%s.submit", plan.Label))
	if err := os.WriteFile(dagPath, []byte(w.RenderDAG(plan)), 0o644); err != nil {
		return "", fmt.Errorf("writing DAG file: %w", err)
	}
	logger.Info("Wrote HTCondor DAG.", "path", dagPath, "jobs", len(plan.Stages))
	return dagPath, nil
}

// RenderSubmit renders a single stage's submit description. Key order is
// fixed so generated files diff cleanly between runs.
func (w *Writer) RenderSubmit(plan *pipeline.Plan, stage *pipeline.Stage) string {
	logBase := filepath.Join(plan.OutDir, "log", fmt.Sprintf("%s_%s", plan.Label, stage.Name))

	var b strings.Builder
	fmt.Fprintf(&b, "universe = vanilla\n")
	fmt.Fprintf(&b, "executable = %s\n", stage.Command)
	fmt.Fprintf(&b, "arguments = %s\n", strings.Join(stage.Args, " "))
	fmt.Fprintf(&b, "log = %s.log\n", logBase)
	fmt.Fprintf(&b, "output = %s.out\n", logBase)
	fmt.Fprintf(&b, "error = %s.err\n", logBase)
	if w.Accounting != "" {
		fmt.Fprintf(&b, "accounting_group = %s\n", w.Accounting)
	}
	fmt.Fprintf(&b, "request_cpus = %d\n", stage.CPUs)
	fmt.Fprintf(&b, "request_memory = %d MB\n", stage.MemoryBytes/humanize.MByte)
	fmt.Fprintf(&b, "request_disk = %d MB\n", stage.DiskBytes/humanize.MByte)
	if stage.GPUs > 0 {
		fmt.Fprintf(&b, "request_gpus = %d\n", stage.GPUs)
	}
	if len(w.Environment) > 0 {
		fmt.Fprintf(&b, "environment = \"%s\"\n", strings.Join(w.Environment, " "))
	}
	fmt.Fprintf(&b, "getenv = True\n")
	if w.TransferFiles {
		fmt.Fprintf(&b, "should_transfer_files = YES\n")
		fmt.Fprintf(&b, "when_to_transfer_output = ON_EXIT\n")
	}
	fmt.Fprintf(&b, "queue\n")
	return b.String()
}

// RenderDAG renders the DAGMan file: one JOB line per stage, then the
// PARENT/CHILD lines in plan order.
func (w *Writer) RenderDAG(plan *pipeline.Plan) string {
	var b strings.Builder
	for _, stage := range plan.Stages {
		fmt.Fprintf(&b, "JOB %s %s\n", stage.Name, w.submitPath(plan, stage))
	}
	for _, stage := range plan.Stages {
		for _, dep := range stage.DependsOn {
			fmt.Fprintf(&b, "PARENT %s CHILD %s\n", dep, stage.Name)
		}
	}
	return b.String()
}

func (w *Writer) submitPath(plan *pipeline.Plan, stage *pipeline.Stage) string {
	name := fmt.Sprintf("%s_%s.submit", plan.Label, stage.Name)
	return filepath.Join(plan.OutDir, SubmitDirName, name)
}
