package condor

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dustin/go-humanize"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/gwpipe/internal/ctxlog"
	"github.com/vk/gwpipe/internal/jobcfg"
	"github.com/vk/gwpipe/internal/pipeline"
)

func testContext() context.Context {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	return ctxlog.WithLogger(context.Background(), logger)
}

func testPlan(t *testing.T) *pipeline.Plan {
	t.Helper()
	job := jobcfg.Defaults()
	job.Submission.Accounting = "ligo.prod.o4.cbc.pe"
	job.Submission.RequestCPUs = 16
	job.Submission.RequestCPUsImportanceSampling = 32
	job.Submission.RequestMemory = 8 * humanize.GByte
	job.Submission.RequestDisk = 2 * humanize.GByte
	job.Sampler.ModelPath = "training/model.pt"
	job.DataGeneration.TriggerTime = 1126259462.4
	job.DataGeneration.Label = "GW150914"
	job.DataGeneration.OutDir = filepath.Join(t.TempDir(), "outdir_GW150914")
	job.DataGeneration.ChannelDict = map[string]string{"H1": "GWOSC", "L1": "GWOSC"}
	job.Plotting = jobcfg.PlottingSettings{Corner: true}

	plan, err := pipeline.Build(testContext(), job)
	require.NoError(t, err)
	return plan
}

func TestRenderSubmit_SamplingStage(t *testing.T) {
	t.Parallel()

	// Arrange
	plan := testPlan(t)
	w := &Writer{Accounting: "ligo.prod.o4.cbc.pe"}

	// Act
	content := w.RenderSubmit(plan, plan.Stage("sampling"))

	// Assert
	lines := strings.Split(strings.TrimRight(content, "\n"), "\n")
	assert.Equal(t, "universe = vanilla", lines[0])
	assert.Contains(t, content, "executable = gwpipe_sampling\n")
	assert.Contains(t, content, "arguments = "+plan.ConfigPath+"\n")
	assert.Contains(t, content, "accounting_group = ligo.prod.o4.cbc.pe\n")
	assert.Contains(t, content, "request_cpus = 16\n")
	assert.Contains(t, content, "request_memory = 8192 MB\n")
	assert.Contains(t, content, "request_disk = 2048 MB\n")
	assert.Contains(t, content, "request_gpus = 1\n")
	assert.Equal(t, "queue", lines[len(lines)-1])
}

func TestRenderSubmit_TransferAndEnvironment(t *testing.T) {
	t.Parallel()

	// Arrange
	plan := testPlan(t)
	job := jobcfg.Defaults()
	job.Submission.EnvironmentVariables = "{'OMP_NUM_THREADS': 1, 'LAL_DATA_PATH': '/data/lal'}"
	w, err := NewWriter(job)
	require.NoError(t, err)

	// Act
	content := w.RenderSubmit(plan, plan.Stage("generation"))

	// Assert
	assert.Contains(t, content, `environment = "LAL_DATA_PATH=/data/lal OMP_NUM_THREADS=1"`+"\n")
	assert.Contains(t, content, "should_transfer_files = YES\n")
	assert.Contains(t, content, "when_to_transfer_output = ON_EXIT\n")

	// transfer-files = false drops the transfer stanza entirely.
	job.Submission.TransferFiles = false
	w, err = NewWriter(job)
	require.NoError(t, err)
	assert.NotContains(t, w.RenderSubmit(plan, plan.Stage("generation")), "should_transfer_files")
}

func TestNewWriter_RejectsBadEnvironment(t *testing.T) {
	t.Parallel()

	// Arrange
	job := jobcfg.Defaults()
	job.Submission.EnvironmentVariables = "{'OMP_NUM_THREADS': [1, 2]}"

	// Act
	_, err := NewWriter(job)

	// Assert
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OMP_NUM_THREADS")
}

func TestRenderSubmit_CPUStageOmitsGPURequest(t *testing.T) {
	t.Parallel()

	// Arrange
	plan := testPlan(t)
	w := &Writer{}

	// Act
	content := w.RenderSubmit(plan, plan.Stage("generation"))

	// Assert
	assert.NotContains(t, content, "request_gpus")
	assert.NotContains(t, content, "accounting_group")
}

func TestRenderDAG_JobAndParentChildLines(t *testing.T) {
	t.Parallel()

	// Arrange
	plan := testPlan(t)
	w := &Writer{}

	// Act
	content := w.RenderDAG(plan)

	// Assert
	assert.Contains(t, content, "JOB generation ")
	assert.Contains(t, content, filepath.Join(plan.OutDir, SubmitDirName, "GW150914_sampling.submit"))
	assert.Contains(t, content, "PARENT generation CHILD sampling\n")
	assert.Contains(t, content, "PARENT sampling CHILD importance_sampling\n")
	assert.Contains(t, content, "PARENT importance_sampling CHILD plot_corner\n")
}

func TestWrite_CreatesAllArtifacts(t *testing.T) {
	t.Parallel()

	// Arrange
	plan := testPlan(t)
	w := &Writer{Accounting: "ligo.prod.o4.cbc.pe"}

	// Act
	dagPath, err := w.Write(testContext(), plan)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(plan.OutDir, SubmitDirName, "dag_GW150914.submit"), dagPath)
	require.FileExists(t, dagPath)
	for _, stage := range plan.Stages {
		require.FileExists(t, filepath.Join(plan.OutDir, SubmitDirName, "GW150914_"+stage.Name+".submit"))
	}
	info, err := os.Stat(filepath.Join(plan.OutDir, "log"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
