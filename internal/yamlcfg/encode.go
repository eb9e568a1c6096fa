package yamlcfg

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/vk/gwpipe/internal/config"
	"github.com/vk/gwpipe/internal/schema"
)

// document is the encode-side shape. Training uses orderedStages rather
// than the schema map so stages are emitted in index order, not in the
// lexical key order yaml.v3 would impose.
type document struct {
	Data     schema.DataYAML  `yaml:"data"`
	Model    schema.ModelYAML `yaml:"model"`
	Training orderedStages    `yaml:"training"`
	Local    schema.LocalYAML `yaml:"local"`
}

type orderedStages []config.TrainingStage

// MarshalYAML emits the stages as a mapping node with stage_N keys in
// index order.
func (o orderedStages) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, stage := range o {
		keyNode := &yaml.Node{
			Kind:  yaml.ScalarNode,
			Value: stage.StageName(),
		}
		valNode := &yaml.Node{}
		if err := valNode.Encode(stageToYAML(&stage)); err != nil {
			return nil, fmt.Errorf("encoding %s: %w", stage.StageName(), err)
		}
		node.Content = append(node.Content, keyNode, valNode)
	}
	return node, nil
}

// Encode renders a settings model as canonical YAML: sections in the
// standard order and stages sorted by index.
func Encode(settings *config.TrainSettings) ([]byte, error) {
	sorted := *settings
	sorted.Training = append([]config.TrainingStage(nil), settings.Training...)
	sorted.SortStages()

	doc := document{
		Data:     dataToYAML(&sorted.Data),
		Model:    modelToYAML(&sorted.Model),
		Training: orderedStages(sorted.Training),
		Local:    localToYAML(&sorted.Local),
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return nil, fmt.Errorf("encoding settings: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func dataToYAML(d *config.DataSettings) schema.DataYAML {
	return schema.DataYAML{
		WaveformDatasetPath: d.WaveformDatasetPath,
		TrainFraction:       d.TrainFraction,
		Window: schema.WindowYAML{
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

func modelToYAML(m *config.ModelSettings) schema.ModelYAML {
	return schema.ModelYAML{
		Type: m.Type,
		NSFKwargs: schema.NSFYAML{
			NumFlowSteps: m.NSF.NumFlowSteps,
			BaseTransform: schema.BaseTransformYAML{
				HiddenDim:          m.NSF.BaseTransform.HiddenDim,
				NumTransformBlocks: m.NSF.BaseTransform.NumTransformBlocks,
				Activation:         m.NSF.BaseTransform.Activation,
				DropoutProbability: m.NSF.BaseTransform.DropoutProbability,
				BatchNorm:          m.NSF.BaseTransform.BatchNorm,
				NumBins:            m.NSF.BaseTransform.NumBins,
				BaseTransformType:  m.NSF.BaseTransform.BaseTransformType,
			},
		},
		EmbeddingNet: schema.EmbeddingNetYAML{
			OutputDim:  m.EmbeddingNet.OutputDim,
			HiddenDims: m.EmbeddingNet.HiddenDims,
			Activation: m.EmbeddingNet.Activation,
			Dropout:    m.EmbeddingNet.Dropout,
			BatchNorm:  m.EmbeddingNet.BatchNorm,
			SVD: schema.SVDYAML{
				NumTrainingSamples:   m.EmbeddingNet.SVD.NumTrainingSamples,
				NumValidationSamples: m.EmbeddingNet.SVD.NumValidationSamples,
				Size:                 m.EmbeddingNet.SVD.Size,
			},
		},
	}
}

func stageToYAML(s *config.TrainingStage) schema.StageYAML {
	return schema.StageYAML{
		Epochs:         s.Epochs,
		ASDDatasetPath: s.ASDDatasetPath,
		FreezeRBLayer:  s.FreezeRBLayer,
		Optimizer: schema.OptimizerYAML{
			Type: s.Optimizer.Type,
			LR:   s.Optimizer.LR,
		},
		Scheduler: schema.SchedulerYAML{
			Type: s.Scheduler.Type,
			TMax: s.Scheduler.TMax,
		},
		BatchSize: s.BatchSize,
	}
}

func localToYAML(l *config.LocalSettings) schema.LocalYAML {
	return schema.LocalYAML{
		Device:     l.Device,
		NumWorkers: l.NumWorkers,
		RuntimeLimits: schema.RuntimeLimitsYAML{
			MaxTimePerRun:   l.RuntimeLimits.MaxTimePerRun,
			MaxEpochsPerRun: l.RuntimeLimits.MaxEpochsPerRun,
		},
		CheckpointEpochs: l.CheckpointEpochs,
	}
}
