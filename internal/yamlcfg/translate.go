package yamlcfg

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/vk/gwpipe/internal/config"
	"github.com/vk/gwpipe/internal/schema"
)

// translate converts the YAML-specific schema into the agnostic model.
func translate(doc *schema.TrainSettingsYAML) (*config.TrainSettings, error) {
	settings := &config.TrainSettings{
		Data:  translateData(&doc.Data),
		Model: translateModel(&doc.Model),
		Local: translateLocal(&doc.Local),
	}

	for name, stage := range doc.Training {
		idx, err := parseStageName(name)
		if err != nil {
			return nil, err
		}
		settings.Training = append(settings.Training, translateStage(idx, &stage))
	}
	settings.SortStages()

	return settings, nil
}

// parseStageName extracts N from "stage_N".
func parseStageName(name string) (int, error) {
	suffix, ok := strings.CutPrefix(name, "stage_")
	if !ok {
		return 0, fmt.Errorf("training key '%s' is not of the form stage_N", name)
	}
	idx, err := strconv.Atoi(suffix)
	if err != nil || idx < 0 {
		return 0, fmt.Errorf("training key '%s' has a non-numeric stage index", name)
	}
	return idx, nil
}

func translateData(d *schema.DataYAML) config.DataSettings {
	return config.DataSettings{
		WaveformDatasetPath: d.WaveformDatasetPath,
		TrainFraction:       d.TrainFraction,
		Window: config.WindowSettings{
			Type:         d.Window.Type,
			SamplingRate: d.Window.SamplingRate,
			Duration:     d.Window.Duration,
			RollOff:      d.Window.RollOff,
		},
		Detectors:           d.Detectors,
		ExtrinsicPrior:      d.ExtrinsicPrior,
		RefTime:             d.RefTime,
		InferenceParameters: d.InferenceParameters,
	}
}

func translateModel(m *schema.ModelYAML) config.ModelSettings {
	return config.ModelSettings{
		Type: m.Type,
		NSF: config.NSFSettings{
			NumFlowSteps: m.NSFKwargs.NumFlowSteps,
			BaseTransform: config.BaseTransformSettings{
				HiddenDim:          m.NSFKwargs.BaseTransform.HiddenDim,
				NumTransformBlocks: m.NSFKwargs.BaseTransform.NumTransformBlocks,
				Activation:         m.NSFKwargs.BaseTransform.Activation,
				DropoutProbability: m.NSFKwargs.BaseTransform.DropoutProbability,
				BatchNorm:          m.NSFKwargs.BaseTransform.BatchNorm,
				NumBins:            m.NSFKwargs.BaseTransform.NumBins,
				BaseTransformType:  m.NSFKwargs.BaseTransform.BaseTransformType,
			},
		},
		EmbeddingNet: config.EmbeddingNetSettings{
			OutputDim:  m.EmbeddingNet.OutputDim,
			HiddenDims: m.EmbeddingNet.HiddenDims,
			Activation: m.EmbeddingNet.Activation,
			Dropout:    m.EmbeddingNet.Dropout,
			BatchNorm:  m.EmbeddingNet.BatchNorm,
			SVD: config.SVDSettings{
				NumTrainingSamples:   m.EmbeddingNet.SVD.NumTrainingSamples,
				NumValidationSamples: m.EmbeddingNet.SVD.NumValidationSamples,
				Size:                 m.EmbeddingNet.SVD.Size,
			},
		},
	}
}

func translateStage(idx int, s *schema.StageYAML) config.TrainingStage {
	return config.TrainingStage{
		Index:          idx,
		Epochs:         s.Epochs,
		ASDDatasetPath: s.ASDDatasetPath,
		FreezeRBLayer:  s.FreezeRBLayer,
		Optimizer: config.OptimizerSettings{
			Type: s.Optimizer.Type,
			LR:   s.Optimizer.LR,
		},
		Scheduler: config.SchedulerSettings{
			Type: s.Scheduler.Type,
			TMax: s.Scheduler.TMax,
		},
		BatchSize: s.BatchSize,
	}
}

func translateLocal(l *schema.LocalYAML) config.LocalSettings {
	return config.LocalSettings{
		Device:     l.Device,
		NumWorkers: l.NumWorkers,
		RuntimeLimits: config.RuntimeLimits{
			MaxTimePerRun:   l.RuntimeLimits.MaxTimePerRun,
			MaxEpochsPerRun: l.RuntimeLimits.MaxEpochsPerRun,
		},
		CheckpointEpochs: l.CheckpointEpochs,
	}
}
