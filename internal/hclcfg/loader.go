// Package hclcfg loads training settings written in HCL. The block layout
// mirrors the YAML sections one-to-one, so either format produces the same
// model.
package hclcfg

import (
	"context"
	"fmt"
	"strconv"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/vk/gwpipe/internal/config"
	"github.com/vk/gwpipe/internal/ctxlog"
	"github.com/vk/gwpipe/internal/schema"
)

// Loader is the HCL implementation of the config.Loader interface.
type Loader struct {
	parser *hclparse.Parser
}

// NewLoader creates a new HCL settings loader.
func NewLoader() *Loader {
	return &Loader{parser: hclparse.NewParser()}
}

// Load parses an HCL settings file and translates it into the model.
func (l *Loader) Load(ctx context.Context, path string) (*config.TrainSettings, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Loading HCL settings file.", "path", path)

	file, diags := l.parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("parsing settings file '%s': %w", path, diags)
	}

	var doc schema.TrainSettingsHCL
	if diags := gohcl.DecodeBody(file.Body, nil, &doc); diags.HasErrors() {
		return nil, fmt.Errorf("decoding settings file '%s': %w", path, diags)
	}

	settings, err := translate(&doc)
	if err != nil {
		return nil, fmt.Errorf("translating settings file '%s': %w", path, err)
	}

	logger.Debug("HCL settings loaded.", "stages", len(settings.Training))
	return settings, nil
}

// translate converts the HCL-specific schema into the agnostic model.
func translate(doc *schema.TrainSettingsHCL) (*config.TrainSettings, error) {
	if doc.Data == nil || doc.Model == nil || doc.Training == nil || doc.Local == nil {
		return nil, fmt.Errorf("settings require data, model, training and local blocks")
	}
	if doc.Data.Window == nil {
		return nil, fmt.Errorf("data block requires a window block")
	}
	if doc.Model.NSF == nil || doc.Model.NSF.BaseTransform == nil {
		return nil, fmt.Errorf("model block requires nsf and base_transform blocks")
	}
	if doc.Local.RuntimeLimits == nil {
		return nil, fmt.Errorf("local block requires a runtime_limits block")
	}

	settings := &config.TrainSettings{
		Data: config.DataSettings{
			WaveformDatasetPath: doc.Data.WaveformDatasetPath,
			TrainFraction:       doc.Data.TrainFraction,
			Window: config.WindowSettings{
				Type:         doc.Data.Window.Type,
				SamplingRate: doc.Data.Window.SamplingRate,
				Duration:     doc.Data.Window.Duration,
				RollOff:      doc.Data.Window.RollOff,
			},
			Detectors:           doc.Data.Detectors,
			ExtrinsicPrior:      doc.Data.ExtrinsicPrior,
			RefTime:             doc.Data.RefTime,
			InferenceParameters: doc.Data.InferenceParameters,
		},
		Model: translateModel(doc.Model),
		Local: config.LocalSettings{
			Device:     doc.Local.Device,
			NumWorkers: doc.Local.NumWorkers,
			RuntimeLimits: config.RuntimeLimits{
				MaxTimePerRun:   doc.Local.RuntimeLimits.MaxTimePerRun,
				MaxEpochsPerRun: doc.Local.RuntimeLimits.MaxEpochsPerRun,
			},
			CheckpointEpochs: doc.Local.CheckpointEpochs,
		},
	}

	for _, stage := range doc.Training.Stages {
		idx, err := strconv.Atoi(stage.Index)
		if err != nil || idx < 0 {
			return nil, fmt.Errorf("stage label '%s' is not a non-negative integer", stage.Index)
		}
		if stage.Optimizer == nil || stage.Scheduler == nil {
			return nil, fmt.Errorf("stage \"%s\" requires optimizer and scheduler blocks", stage.Index)
		}
		settings.Training = append(settings.Training, config.TrainingStage{
			Index:          idx,
			Epochs:         stage.Epochs,
			ASDDatasetPath: stage.ASDDatasetPath,
			FreezeRBLayer:  stage.FreezeRBLayer,
			Optimizer: config.OptimizerSettings{
				Type: stage.Optimizer.Type,
				LR:   stage.Optimizer.LR,
			},
			Scheduler: config.SchedulerSettings{
				Type: stage.Scheduler.Type,
				TMax: stage.Scheduler.TMax,
			},
			BatchSize: stage.BatchSize,
		})
	}
	settings.SortStages()

	return settings, nil
}

func translateModel(m *schema.ModelHCL) config.ModelSettings {
	out := config.ModelSettings{
		Type: m.Type,
		NSF: config.NSFSettings{
			NumFlowSteps: m.NSF.NumFlowSteps,
			BaseTransform: config.BaseTransformSettings{
				HiddenDim:          m.NSF.BaseTransform.HiddenDim,
				NumTransformBlocks: m.NSF.BaseTransform.NumTransformBlocks,
				Activation:         m.NSF.BaseTransform.Activation,
				DropoutProbability: m.NSF.BaseTransform.DropoutProbability,
				BatchNorm:          m.NSF.BaseTransform.BatchNorm,
				NumBins:            m.NSF.BaseTransform.NumBins,
				BaseTransformType:  m.NSF.BaseTransform.BaseTransformType,
			},
		},
	}
	if m.EmbeddingNet != nil {
		out.EmbeddingNet = config.EmbeddingNetSettings{
			OutputDim:  m.EmbeddingNet.OutputDim,
			HiddenDims: m.EmbeddingNet.HiddenDims,
			Activation: m.EmbeddingNet.Activation,
			Dropout:    m.EmbeddingNet.Dropout,
			BatchNorm:  m.EmbeddingNet.BatchNorm,
		}
		if m.EmbeddingNet.SVD != nil {
			out.EmbeddingNet.SVD = config.SVDSettings{
				NumTrainingSamples:   m.EmbeddingNet.SVD.NumTrainingSamples,
				NumValidationSamples: m.EmbeddingNet.SVD.NumValidationSamples,
				Size:                 m.EmbeddingNet.SVD.Size,
			}
		}
	}
	return out
}
