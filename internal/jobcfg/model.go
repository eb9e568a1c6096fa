package jobcfg

import (
	"context"
	"fmt"
	"strings"

	"github.com/vk/gwpipe/internal/config"
	"github.com/vk/gwpipe/internal/ctxlog"
)

// JobSettings is the unified representation of a job-submission document.
type JobSettings struct {
	Submission     SubmissionSettings
	Sampler        SamplerSettings
	DataGeneration DataGenerationSettings
	Plotting       PlottingSettings
}

// SubmissionSettings covers the scheduler resource-request keys.
type SubmissionSettings struct {
	Local                         bool
	Accounting                    string
	Scheduler                     string
	RequestCPUs                   int
	RequestCPUsImportanceSampling int
	RequestMemory                 uint64 // bytes
	RequestDisk                   uint64 // bytes
	TransferFiles                 bool

	// EnvironmentVariables holds the raw inline dict of variables exported
	// into scheduler jobs, e.g. {'OMP_NUM_THREADS': 1}. ParseEnvironment
	// decodes it on demand; the raw form is kept for normalized write-out.
	EnvironmentVariables string
}

// SamplerSettings covers the sampler invocation keys.
type SamplerSettings struct {
	ModelPath        string
	ModelInitPath    string
	Device           string
	NumGPUs          int
	NumSamples       int
	BatchSize        int
	RecoverLogProb   bool
	ImportanceSample bool
}

// DataGenerationSettings covers the event and strain-data keys.
type DataGenerationSettings struct {
	TriggerTime       float64
	Label             string
	OutDir            string
	ChannelDict       map[string]string
	PSDLength         int
	SamplingFrequency float64

	// ImportanceSamplingUpdates holds the raw inline-dict expression, e.g.
	// {'duration': 4.0, 'detectors': ['H1', 'L1']}. ParseUpdates decodes
	// it on demand; the raw form is kept for normalized write-out.
	ImportanceSamplingUpdates string

	// PriorDict holds raw per-parameter prior overrides, e.g.
	// {geocent_time: Uniform(minimum=-0.1, maximum=0.1)}. ParsePriorDict
	// resolves the expressions, including the `default` keyword.
	PriorDict string
}

// PlottingSettings covers the plot toggles.
type PlottingSettings struct {
	Corner   bool
	Weights  bool
	LogProbs bool
}

// Validate performs cross-field validation, collecting all problems.
func (j *JobSettings) Validate(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	var errs []string

	sub := &j.Submission
	if sub.Scheduler != "condor" && sub.Scheduler != "slurm" {
		errs = append(errs, fmt.Sprintf("job submission: unknown scheduler '%s'", sub.Scheduler))
	}
	if !sub.Local && sub.Accounting == "" {
		errs = append(errs, "job submission: accounting must be set for non-local runs")
	}
	if sub.RequestCPUs <= 0 {
		errs = append(errs, fmt.Sprintf("job submission: request-cpus must be positive, got %d", sub.RequestCPUs))
	}
	if sub.RequestCPUsImportanceSampling <= 0 {
		errs = append(errs, fmt.Sprintf("job submission: request-cpus-importance-sampling must be positive, got %d", sub.RequestCPUsImportanceSampling))
	}
	if sub.EnvironmentVariables != "" {
		if _, err := sub.ParseEnvironment(); err != nil {
			errs = append(errs, fmt.Sprintf("job submission: environment-variables: %v", err))
		}
	}

	smp := &j.Sampler
	if smp.ModelPath == "" {
		errs = append(errs, "sampler: model must be set")
	}
	if smp.Device != "cpu" && !strings.HasPrefix(smp.Device, "cuda") {
		errs = append(errs, fmt.Sprintf("sampler: unknown device '%s'", smp.Device))
	}
	if strings.HasPrefix(smp.Device, "cuda") && smp.NumGPUs <= 0 {
		errs = append(errs, fmt.Sprintf("sampler: num-gpus must be positive on a cuda device, got %d", smp.NumGPUs))
	}
	if smp.NumSamples <= 0 {
		errs = append(errs, fmt.Sprintf("sampler: num-samples must be positive, got %d", smp.NumSamples))
	}
	if smp.BatchSize <= 0 || smp.BatchSize > smp.NumSamples {
		errs = append(errs, fmt.Sprintf("sampler: batch-size %d outside [1, num-samples]", smp.BatchSize))
	}

	gen := &j.DataGeneration
	if gen.TriggerTime <= 0 {
		errs = append(errs, fmt.Sprintf("data generation: trigger-time must be a positive GPS time, got %v", gen.TriggerTime))
	}
	if gen.Label == "" {
		errs = append(errs, "data generation: label must be set")
	}
	if len(gen.ChannelDict) == 0 {
		errs = append(errs, "data generation: channel-dict must name at least one detector")
	}
	for det := range gen.ChannelDict {
		if _, ok := config.KnownDetectors[det]; !ok {
			errs = append(errs, fmt.Sprintf("data generation: unknown detector '%s' in channel-dict", det))
		}
	}
	if gen.PSDLength <= 0 {
		errs = append(errs, fmt.Sprintf("data generation: psd-length must be positive, got %d", gen.PSDLength))
	}
	if gen.SamplingFrequency <= 0 {
		errs = append(errs, fmt.Sprintf("data generation: sampling-frequency must be positive, got %v", gen.SamplingFrequency))
	}
	if gen.ImportanceSamplingUpdates != "" {
		if _, err := gen.ParseUpdates(); err != nil {
			errs = append(errs, fmt.Sprintf("data generation: importance-sampling-updates: %v", err))
		}
	}
	if gen.PriorDict != "" {
		if _, err := gen.ParsePriorDict(); err != nil {
			errs = append(errs, fmt.Sprintf("data generation: %v", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("job settings validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	logger.Debug("Job settings validation passed.", "label", gen.Label, "local", sub.Local)
	return nil
}
