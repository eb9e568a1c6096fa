package schema

// TrainSettingsHCL is the top-level shape of an HCL settings file. The
// block layout mirrors the YAML sections one-to-one.
type TrainSettingsHCL struct {
	Data     *DataHCL     `hcl:"data,block"`
	Model    *ModelHCL    `hcl:"model,block"`
	Training *TrainingHCL `hcl:"training,block"`
	Local    *LocalHCL    `hcl:"local,block"`
}

// DataHCL is the `data` block.
type DataHCL struct {
	WaveformDatasetPath string            `hcl:"waveform_dataset_path"`
	TrainFraction       float64           `hcl:"train_fraction"`
	Window              *WindowHCL        `hcl:"window,block"`
	Detectors           []string          `hcl:"detectors"`
	ExtrinsicPrior      map[string]string `hcl:"extrinsic_prior"`
	RefTime             float64           `hcl:"ref_time"`
	InferenceParameters []string          `hcl:"inference_parameters"`
}

// WindowHCL is the `window` block.
type WindowHCL struct {
	Type         string  `hcl:"type"`
	SamplingRate float64 `hcl:"f_s"`
	Duration     float64 `hcl:"T"`
	RollOff      float64 `hcl:"roll_off"`
}

// ModelHCL is the `model` block.
type ModelHCL struct {
	Type         string           `hcl:"type"`
	NSF          *NSFHCL          `hcl:"nsf,block"`
	EmbeddingNet *EmbeddingNetHCL `hcl:"embedding_net,block"`
}

// NSFHCL is the `nsf` block.
type NSFHCL struct {
	NumFlowSteps  int               `hcl:"num_flow_steps"`
	BaseTransform *BaseTransformHCL `hcl:"base_transform,block"`
}

// BaseTransformHCL is the `base_transform` block.
type BaseTransformHCL struct {
	HiddenDim          int     `hcl:"hidden_dim"`
	NumTransformBlocks int     `hcl:"num_transform_blocks"`
	Activation         string  `hcl:"activation"`
	DropoutProbability float64 `hcl:"dropout_probability"`
	BatchNorm          bool    `hcl:"batch_norm"`
	NumBins            int     `hcl:"num_bins"`
	BaseTransformType  string  `hcl:"base_transform_type"`
}

// EmbeddingNetHCL is the `embedding_net` block.
type EmbeddingNetHCL struct {
	OutputDim  int     `hcl:"output_dim"`
	HiddenDims []int   `hcl:"hidden_dims"`
	Activation string  `hcl:"activation"`
	Dropout    float64 `hcl:"dropout"`
	BatchNorm  bool    `hcl:"batch_norm"`
	SVD        *SVDHCL `hcl:"svd,block"`
}

// SVDHCL is the `svd` block.
type SVDHCL struct {
	NumTrainingSamples   int `hcl:"num_training_samples"`
	NumValidationSamples int `hcl:"num_validation_samples"`
	Size                 int `hcl:"size"`
}

// TrainingHCL is the `training` block; stages are labeled sub-blocks,
// e.g. `stage "0" { ... }`.
type TrainingHCL struct {
	Stages []*StageHCL `hcl:"stage,block"`
}

// StageHCL is one labeled `stage` block.
type StageHCL struct {
	Index          string        `hcl:"index,label"`
	Epochs         int           `hcl:"epochs"`
	ASDDatasetPath string        `hcl:"asd_dataset_path"`
	FreezeRBLayer  bool          `hcl:"freeze_rb_layer,optional"`
	Optimizer      *OptimizerHCL `hcl:"optimizer,block"`
	Scheduler      *SchedulerHCL `hcl:"scheduler,block"`
	BatchSize      int           `hcl:"batch_size"`
}

// OptimizerHCL is a stage's `optimizer` block.
type OptimizerHCL struct {
	Type string  `hcl:"type"`
	LR   float64 `hcl:"lr"`
}

// SchedulerHCL is a stage's `scheduler` block.
type SchedulerHCL struct {
	Type string `hcl:"type"`
	TMax int    `hcl:"T_max,optional"`
}

// LocalHCL is the `local` block.
type LocalHCL struct {
	Device           string            `hcl:"device"`
	NumWorkers       int               `hcl:"num_workers"`
	RuntimeLimits    *RuntimeLimitsHCL `hcl:"runtime_limits,block"`
	CheckpointEpochs int               `hcl:"checkpoint_epochs"`
}

// RuntimeLimitsHCL is the `runtime_limits` block.
type RuntimeLimitsHCL struct {
	MaxTimePerRun   int `hcl:"max_time_per_run"`
	MaxEpochsPerRun int `hcl:"max_epochs_per_run"`
}
