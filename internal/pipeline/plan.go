package pipeline

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/vk/gwpipe/internal/ctxlog"
	"github.com/vk/gwpipe/internal/jobcfg"
)

// Stage kinds, in pipeline order. Plot stages share one kind; the stage
// name distinguishes the artifact they produce.
const (
	KindGeneration         = "generation"
	KindSampling           = "sampling"
	KindImportanceSampling = "importance_sampling"
	KindPlot               = "plot"
)

// Stage is one schedulable unit of the pipeline.
type Stage struct {
	// Name uniquely identifies the stage within a plan, e.g. "plot_corner".
	Name string
	// Kind selects the registered handler, e.g. "plot".
	Kind string

	// Command and Args form the stage's invocation. Args always start
	// with the normalized job-document path inside the run directory.
	Command string
	Args    []string

	// DependsOn lists the names of stages that must finish first.
	DependsOn []string

	// Resource requests, used verbatim by the scheduler artifacts.
	CPUs        int
	MemoryBytes uint64
	DiskBytes   uint64
	GPUs        int
}

// Plan is the ordered stage list for one job, plus the run layout.
type Plan struct {
	Label  string
	OutDir string
	// ConfigPath is where the normalized job document lives inside OutDir.
	ConfigPath string
	Stages     []*Stage
}

// ConfigFileName is the name of the normalized job document written into
// the run directory and handed to every stage.
const ConfigFileName = "gwpipe_config.ini"

// Build derives the stage plan from validated job settings.
func Build(ctx context.Context, job *jobcfg.JobSettings) (*Plan, error) {
	logger := ctxlog.FromContext(ctx)

	label := job.DataGeneration.Label
	if label == "" {
		label = "run_" + uuid.NewString()[:8]
		logger.Warn("Job has no label, generated one.", "label", label)
	}
	outdir := job.DataGeneration.OutDir
	if outdir == "" {
		return nil, fmt.Errorf("job settings have no output directory")
	}
	configPath := filepath.Join(outdir, ConfigFileName)

	plan := &Plan{
		Label:      label,
		OutDir:     outdir,
		ConfigPath: configPath,
	}

	sub := &job.Submission
	plan.Stages = append(plan.Stages, &Stage{
		Name:        KindGeneration,
		Kind:        KindGeneration,
		Command:     "gwpipe_generation",
		Args:        []string{configPath},
		CPUs:        sub.RequestCPUs,
		MemoryBytes: sub.RequestMemory,
		DiskBytes:   sub.RequestDisk,
	})

	plan.Stages = append(plan.Stages, &Stage{
		Name:        KindSampling,
		Kind:        KindSampling,
		Command:     "gwpipe_sampling",
		Args:        []string{configPath},
		DependsOn:   []string{KindGeneration},
		CPUs:        sub.RequestCPUs,
		MemoryBytes: sub.RequestMemory,
		DiskBytes:   sub.RequestDisk,
		GPUs:        gpuCount(job),
	})

	// Plot stages hang off the last analysis stage.
	plotParent := KindSampling

	if job.Sampler.ImportanceSample {
		plan.Stages = append(plan.Stages, &Stage{
			Name:        KindImportanceSampling,
			Kind:        KindImportanceSampling,
			Command:     "gwpipe_importance_sampling",
			Args:        []string{configPath},
			DependsOn:   []string{KindSampling},
			CPUs:        sub.RequestCPUsImportanceSampling,
			MemoryBytes: sub.RequestMemory,
			DiskBytes:   sub.RequestDisk,
		})
		plotParent = KindImportanceSampling
	}

	for _, plot := range plotStages(&job.Plotting) {
		plan.Stages = append(plan.Stages, &Stage{
			Name:        "plot_" + plot,
			Kind:        KindPlot,
			Command:     "gwpipe_plot",
			Args:        []string{configPath, "--plot-type", plot},
			DependsOn:   []string{plotParent},
			CPUs:        1,
			MemoryBytes: sub.RequestMemory,
			DiskBytes:   sub.RequestDisk,
		})
	}

	logger.Debug("Pipeline plan built.", "label", label, "stages", len(plan.Stages))
	return plan, nil
}

// plotStages returns the enabled plot types in canonical order.
func plotStages(p *jobcfg.PlottingSettings) []string {
	var out []string
	if p.Corner {
		out = append(out, "corner")
	}
	if p.Weights {
		out = append(out, "weights")
	}
	if p.LogProbs {
		out = append(out, "log_probs")
	}
	return out
}

func gpuCount(job *jobcfg.JobSettings) int {
	if job.Sampler.Device == "cpu" {
		return 0
	}
	return job.Sampler.NumGPUs
}

// Stage lookup by name; nil if absent.
func (p *Plan) Stage(name string) *Stage {
	for _, s := range p.Stages {
		if s.Name == name {
			return s
		}
	}
	return nil
}
