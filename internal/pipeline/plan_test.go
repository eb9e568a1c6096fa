package pipeline

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/vk/gwpipe/internal/ctxlog"
	"github.com/vk/gwpipe/internal/jobcfg"
)

func testContext() context.Context {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	return ctxlog.WithLogger(context.Background(), logger)
}

func testJob() *jobcfg.JobSettings {
	job := jobcfg.Defaults()
	job.Submission.Accounting = "gwpipe"
	job.Submission.RequestCPUs = 16
	job.Submission.RequestCPUsImportanceSampling = 32
	job.Sampler.ModelPath = "training/model.pt"
	job.DataGeneration.TriggerTime = 1126259462.4
	job.DataGeneration.Label = "GW150914"
	job.DataGeneration.OutDir = "outdir_GW150914"
	job.DataGeneration.ChannelDict = map[string]string{"H1": "GWOSC", "L1": "GWOSC"}
	job.Plotting = jobcfg.PlottingSettings{Corner: true, Weights: true, LogProbs: true}
	return job
}

func TestBuild_FullPipeline(t *testing.T) {
	plan, err := Build(testContext(), testJob())
	if err != nil {
		t.Fatalf("Build() returned an unexpected error: %v", err)
	}

	var names []string
	for _, stage := range plan.Stages {
		names = append(names, stage.Name)
	}
	want := []string{"generation", "sampling", "importance_sampling", "plot_corner", "plot_weights", "plot_log_probs"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Errorf("stage list mismatch (-want +got):\n%s", diff)
	}

	sampling := plan.Stage("sampling")
	if diff := cmp.Diff([]string{"generation"}, sampling.DependsOn); diff != "" {
		t.Errorf("sampling dependencies mismatch (-want +got):\n%s", diff)
	}
	if sampling.GPUs != 1 {
		t.Errorf("sampling GPUs = %d, want 1", sampling.GPUs)
	}

	is := plan.Stage("importance_sampling")
	if is.CPUs != 32 {
		t.Errorf("importance sampling CPUs = %d, want 32", is.CPUs)
	}

	// Plots hang off importance sampling when it is enabled.
	if diff := cmp.Diff([]string{"importance_sampling"}, plan.Stage("plot_corner").DependsOn); diff != "" {
		t.Errorf("plot dependency mismatch (-want +got):\n%s", diff)
	}
}

func TestBuild_WithoutImportanceSampling(t *testing.T) {
	job := testJob()
	job.Sampler.ImportanceSample = false
	job.Plotting = jobcfg.PlottingSettings{Corner: true}

	plan, err := Build(testContext(), job)
	if err != nil {
		t.Fatalf("Build() returned an unexpected error: %v", err)
	}

	if plan.Stage("importance_sampling") != nil {
		t.Error("plan contains importance_sampling despite the toggle being off")
	}
	if diff := cmp.Diff([]string{"sampling"}, plan.Stage("plot_corner").DependsOn); diff != "" {
		t.Errorf("plot dependency mismatch (-want +got):\n%s", diff)
	}
}

func TestBuild_CPUDeviceRequestsNoGPUs(t *testing.T) {
	job := testJob()
	job.Sampler.Device = "cpu"

	plan, err := Build(testContext(), job)
	if err != nil {
		t.Fatalf("Build() returned an unexpected error: %v", err)
	}
	if got := plan.Stage("sampling").GPUs; got != 0 {
		t.Errorf("sampling GPUs = %d, want 0 on cpu device", got)
	}
}
