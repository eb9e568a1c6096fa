package config

import (
	"fmt"
	"sort"

	"github.com/vk/gwpipe/internal/prior"
)

// TrainSettings is the unified, format-agnostic representation of a full
// training configuration: dataset conditioning, model hyperparameters, the
// ordered training stages, and local runtime settings.
type TrainSettings struct {
	Data     DataSettings
	Model    ModelSettings
	Training []TrainingStage
	Local    LocalSettings
}

// DataSettings describes the dataset and its conditioning.
type DataSettings struct {
	WaveformDatasetPath string
	TrainFraction       float64
	Window              WindowSettings
	Detectors           []string

	// ExtrinsicPrior maps parameter names to raw prior expressions. The
	// expressions are kept verbatim so a normalized write-out preserves
	// the operator's formatting choices; PriorDict parses them on demand.
	ExtrinsicPrior map[string]string

	RefTime             float64
	InferenceParameters []string
}

// WindowSettings describes the time-domain window applied to strain
// segments before transforming to the frequency domain.
type WindowSettings struct {
	Type         string
	SamplingRate float64 // f_s, in Hz
	Duration     float64 // T, in seconds
	RollOff      float64
}

// ModelSettings holds the density-estimator hyperparameters.
type ModelSettings struct {
	Type         string
	NSF          NSFSettings
	EmbeddingNet EmbeddingNetSettings
}

// NSFSettings configures the neural spline flow.
type NSFSettings struct {
	NumFlowSteps  int
	BaseTransform BaseTransformSettings
}

// BaseTransformSettings configures a single flow transform block.
type BaseTransformSettings struct {
	HiddenDim          int
	NumTransformBlocks int
	Activation         string
	DropoutProbability float64
	BatchNorm          bool
	NumBins            int
	BaseTransformType  string
}

// EmbeddingNetSettings configures the data-compression network.
type EmbeddingNetSettings struct {
	OutputDim  int
	HiddenDims []int
	Activation string
	Dropout    float64
	BatchNorm  bool
	SVD        SVDSettings
}

// SVDSettings configures the reduced-basis layer of the embedding network.
type SVDSettings struct {
	NumTrainingSamples   int
	NumValidationSamples int
	Size                 int
}

// TrainingStage is one stage_N entry of the training section. Stages run
// strictly in Index order.
type TrainingStage struct {
	Index          int
	Epochs         int
	ASDDatasetPath string
	FreezeRBLayer  bool
	Optimizer      OptimizerSettings
	Scheduler      SchedulerSettings
	BatchSize      int
}

// OptimizerSettings selects the per-stage optimizer.
type OptimizerSettings struct {
	Type string
	LR   float64
}

// SchedulerSettings selects the per-stage learning-rate scheduler.
type SchedulerSettings struct {
	Type string
	TMax int
}

// LocalSettings holds hardware and runtime-limit settings.
type LocalSettings struct {
	Device           string
	NumWorkers       int
	RuntimeLimits    RuntimeLimits
	CheckpointEpochs int
}

// RuntimeLimits caps a single run of the trainer.
type RuntimeLimits struct {
	MaxTimePerRun   int // seconds
	MaxEpochsPerRun int
}

// StageName renders the canonical on-disk name of a stage, e.g. "stage_0".
func (s *TrainingStage) StageName() string {
	return fmt.Sprintf("stage_%d", s.Index)
}

// PriorDict parses the extrinsic-prior expressions into a prior dictionary.
// Parameters are ordered alphabetically so downstream consumers see a
// stable layout regardless of source-format map ordering.
func (d *DataSettings) PriorDict() (*prior.Dict, error) {
	params := make([]string, 0, len(d.ExtrinsicPrior))
	for p := range d.ExtrinsicPrior {
		params = append(params, p)
	}
	sort.Strings(params)
	return prior.ParseDict(params, d.ExtrinsicPrior)
}
