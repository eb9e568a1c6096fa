package config

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/vk/gwpipe/internal/ctxlog"
)

// KnownDetectors is the set of interferometers a configuration may name.
var KnownDetectors = map[string]struct{}{
	"H1": {},
	"L1": {},
	"V1": {},
	"K1": {},
}

// knownInferenceParameters is the set of parameter names the posterior can
// be conditioned on.
var knownInferenceParameters = map[string]struct{}{
	"chirp_mass": {}, "mass_ratio": {}, "mass_1": {}, "mass_2": {},
	"chi_1": {}, "chi_2": {}, "a_1": {}, "a_2": {},
	"tilt_1": {}, "tilt_2": {}, "phi_12": {}, "phi_jl": {},
	"theta_jn": {}, "phase": {}, "ra": {}, "dec": {}, "psi": {},
	"geocent_time": {}, "luminosity_distance": {},
}

var knownActivations = map[string]struct{}{
	"elu": {}, "relu": {}, "gelu": {}, "leaky_relu": {},
}

var knownOptimizers = map[string]struct{}{
	"adam": {}, "adamw": {}, "sgd": {},
}

var knownSchedulers = map[string]struct{}{
	"cosine": {}, "step": {}, "reduce_on_plateau": {},
}

var knownWindows = map[string]struct{}{
	"tukey": {}, "hann": {},
}

var knownBaseTransforms = map[string]struct{}{
	"rq-coupling": {}, "rq-autoregressive": {}, "affine-coupling": {},
}

// Validate performs cross-field validation of the full settings model. All
// problems are collected so the operator sees every mistake in one pass.
func (s *TrainSettings) Validate(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	var errs []string

	errs = append(errs, s.Data.validate()...)
	errs = append(errs, s.Model.validate()...)
	errs = append(errs, s.validateStages()...)
	errs = append(errs, s.Local.validate()...)

	if len(errs) > 0 {
		return fmt.Errorf("settings validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	logger.Debug("Training settings validation passed.",
		"detectors", s.Data.Detectors, "stages", len(s.Training))
	return nil
}

func (d *DataSettings) validate() []string {
	var errs []string

	if d.WaveformDatasetPath == "" {
		errs = append(errs, "data: waveform_dataset_path must be set")
	}
	if d.TrainFraction <= 0 || d.TrainFraction > 1 {
		errs = append(errs, fmt.Sprintf("data: train_fraction %v outside (0, 1]", d.TrainFraction))
	}

	if _, ok := knownWindows[d.Window.Type]; !ok {
		errs = append(errs, fmt.Sprintf("data: unknown window type '%s'", d.Window.Type))
	}
	if d.Window.SamplingRate <= 0 {
		errs = append(errs, fmt.Sprintf("data: window f_s must be positive, got %v", d.Window.SamplingRate))
	}
	if d.Window.Duration <= 0 {
		errs = append(errs, fmt.Sprintf("data: window T must be positive, got %v", d.Window.Duration))
	}
	if d.Window.RollOff < 0 || d.Window.RollOff > d.Window.Duration {
		errs = append(errs, fmt.Sprintf("data: window roll_off %v outside [0, T]", d.Window.RollOff))
	}

	if len(d.Detectors) == 0 {
		errs = append(errs, "data: at least one detector is required")
	}
	for _, det := range d.Detectors {
		if _, ok := KnownDetectors[det]; !ok {
			errs = append(errs, fmt.Sprintf("data: unknown detector '%s'", det))
		}
	}

	if _, err := d.PriorDict(); err != nil {
		errs = append(errs, fmt.Sprintf("data: extrinsic_prior: %v", err))
	}

	if len(d.InferenceParameters) == 0 {
		errs = append(errs, "data: inference_parameters must not be empty")
	}
	seen := make(map[string]struct{}, len(d.InferenceParameters))
	for _, p := range d.InferenceParameters {
		if _, ok := knownInferenceParameters[p]; !ok {
			errs = append(errs, fmt.Sprintf("data: unknown inference parameter '%s'", p))
		}
		if _, dup := seen[p]; dup {
			errs = append(errs, fmt.Sprintf("data: duplicate inference parameter '%s'", p))
		}
		seen[p] = struct{}{}
	}

	return errs
}

func (m *ModelSettings) validate() []string {
	var errs []string

	if m.Type != "nsf+embedding" && m.Type != "nsf" {
		errs = append(errs, fmt.Sprintf("model: unknown type '%s'", m.Type))
	}
	if m.NSF.NumFlowSteps <= 0 {
		errs = append(errs, fmt.Sprintf("model: num_flow_steps must be positive, got %d", m.NSF.NumFlowSteps))
	}

	bt := m.NSF.BaseTransform
	if bt.HiddenDim <= 0 {
		errs = append(errs, fmt.Sprintf("model: hidden_dim must be positive, got %d", bt.HiddenDim))
	}
	if bt.NumTransformBlocks <= 0 {
		errs = append(errs, fmt.Sprintf("model: num_transform_blocks must be positive, got %d", bt.NumTransformBlocks))
	}
	if _, ok := knownActivations[bt.Activation]; !ok {
		errs = append(errs, fmt.Sprintf("model: unknown activation '%s'", bt.Activation))
	}
	if bt.DropoutProbability < 0 || bt.DropoutProbability >= 1 {
		errs = append(errs, fmt.Sprintf("model: dropout_probability %v outside [0, 1)", bt.DropoutProbability))
	}
	if bt.NumBins <= 1 {
		errs = append(errs, fmt.Sprintf("model: num_bins must exceed 1, got %d", bt.NumBins))
	}
	if _, ok := knownBaseTransforms[bt.BaseTransformType]; !ok {
		errs = append(errs, fmt.Sprintf("model: unknown base_transform_type '%s'", bt.BaseTransformType))
	}

	if m.Type == "nsf+embedding" {
		en := m.EmbeddingNet
		if en.OutputDim <= 0 {
			errs = append(errs, fmt.Sprintf("model: embedding output_dim must be positive, got %d", en.OutputDim))
		}
		if len(en.HiddenDims) == 0 {
			errs = append(errs, "model: embedding hidden_dims must not be empty")
		}
		for i, dim := range en.HiddenDims {
			if dim <= 0 {
				errs = append(errs, fmt.Sprintf("model: embedding hidden_dims[%d] must be positive, got %d", i, dim))
			}
		}
		if _, ok := knownActivations[en.Activation]; !ok {
			errs = append(errs, fmt.Sprintf("model: unknown embedding activation '%s'", en.Activation))
		}
		if en.SVD.Size <= 0 {
			errs = append(errs, fmt.Sprintf("model: embedding svd size must be positive, got %d", en.SVD.Size))
		}
		if en.SVD.NumTrainingSamples < en.SVD.Size {
			errs = append(errs, fmt.Sprintf("model: svd num_training_samples (%d) below basis size (%d)",
				en.SVD.NumTrainingSamples, en.SVD.Size))
		}
		if en.SVD.NumValidationSamples < 0 {
			errs = append(errs, fmt.Sprintf("model: svd num_validation_samples must not be negative, got %d",
				en.SVD.NumValidationSamples))
		}
	}

	return errs
}

func (s *TrainSettings) validateStages() []string {
	var errs []string

	if len(s.Training) == 0 {
		return append(errs, "training: at least one stage is required")
	}

	sorted := make([]TrainingStage, len(s.Training))
	copy(sorted, s.Training)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Index < sorted[j].Index })

	for i, stage := range sorted {
		name := stage.StageName()
		if stage.Index != i {
			errs = append(errs, fmt.Sprintf("training: stages must be numbered contiguously from 0, found '%s' at position %d", name, i))
		}
		if stage.Epochs <= 0 {
			errs = append(errs, fmt.Sprintf("training: %s: epochs must be positive, got %d", name, stage.Epochs))
		}
		if stage.ASDDatasetPath == "" {
			errs = append(errs, fmt.Sprintf("training: %s: asd_dataset_path must be set", name))
		}
		if stage.BatchSize <= 0 {
			errs = append(errs, fmt.Sprintf("training: %s: batch_size must be positive, got %d", name, stage.BatchSize))
		}
		if _, ok := knownOptimizers[stage.Optimizer.Type]; !ok {
			errs = append(errs, fmt.Sprintf("training: %s: unknown optimizer '%s'", name, stage.Optimizer.Type))
		}
		if stage.Optimizer.LR <= 0 {
			errs = append(errs, fmt.Sprintf("training: %s: lr must be positive, got %v", name, stage.Optimizer.LR))
		}
		if _, ok := knownSchedulers[stage.Scheduler.Type]; !ok {
			errs = append(errs, fmt.Sprintf("training: %s: unknown scheduler '%s'", name, stage.Scheduler.Type))
		}
		if stage.Scheduler.Type == "cosine" {
			if stage.Scheduler.TMax <= 0 {
				errs = append(errs, fmt.Sprintf("training: %s: cosine scheduler requires positive T_max, got %d", name, stage.Scheduler.TMax))
			} else if stage.Scheduler.TMax > stage.Epochs {
				errs = append(errs, fmt.Sprintf("training: %s: T_max (%d) must not exceed epochs (%d)", name, stage.Scheduler.TMax, stage.Epochs))
			}
		}
	}

	return errs
}

func (l *LocalSettings) validate() []string {
	var errs []string

	if l.Device != "cpu" && !strings.HasPrefix(l.Device, "cuda") {
		errs = append(errs, fmt.Sprintf("local: unknown device '%s'", l.Device))
	}
	if l.NumWorkers < 0 {
		errs = append(errs, fmt.Sprintf("local: num_workers must not be negative, got %d", l.NumWorkers))
	}
	if l.RuntimeLimits.MaxTimePerRun <= 0 {
		errs = append(errs, fmt.Sprintf("local: max_time_per_run must be positive, got %d", l.RuntimeLimits.MaxTimePerRun))
	}
	if l.RuntimeLimits.MaxEpochsPerRun <= 0 {
		errs = append(errs, fmt.Sprintf("local: max_epochs_per_run must be positive, got %d", l.RuntimeLimits.MaxEpochsPerRun))
	}
	if l.CheckpointEpochs <= 0 {
		errs = append(errs, fmt.Sprintf("local: checkpoint_epochs must be positive, got %d", l.CheckpointEpochs))
	}

	return errs
}

// SortStages orders the training stages in place by index. Loaders call
// this after decoding so consumers can rely on positional order.
func (s *TrainSettings) SortStages() {
	sort.Slice(s.Training, func(i, j int) bool {
		return s.Training[i].Index < s.Training[j].Index
	})
}
