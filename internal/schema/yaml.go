package schema

// TrainSettingsYAML is the top-level shape of a YAML settings file.
type TrainSettingsYAML struct {
	Data     DataYAML             `yaml:"data"`
	Model    ModelYAML            `yaml:"model"`
	Training map[string]StageYAML `yaml:"training"`
	Local    LocalYAML            `yaml:"local"`
}

// DataYAML is the `data` section.
type DataYAML struct {
	WaveformDatasetPath string            `yaml:"waveform_dataset_path"`
	TrainFraction       float64           `yaml:"train_fraction"`
	Window              WindowYAML        `yaml:"window"`
	Detectors           []string          `yaml:"detectors"`
	ExtrinsicPrior      map[string]string `yaml:"extrinsic_prior"`
	RefTime             float64           `yaml:"ref_time"`
	InferenceParameters []string          `yaml:"inference_parameters"`
}

// WindowYAML is the `data.window` section.
type WindowYAML struct {
	Type         string  `yaml:"type"`
	SamplingRate float64 `yaml:"f_s"`
	Duration     float64 `yaml:"T"`
	RollOff      float64 `yaml:"roll_off"`
}

// ModelYAML is the `model` section.
type ModelYAML struct {
	Type         string           `yaml:"type"`
	NSFKwargs    NSFYAML          `yaml:"nsf_kwargs"`
	EmbeddingNet EmbeddingNetYAML `yaml:"embedding_net_kwargs"`
}

// NSFYAML is the `model.nsf_kwargs` section.
type NSFYAML struct {
	NumFlowSteps  int               `yaml:"num_flow_steps"`
	BaseTransform BaseTransformYAML `yaml:"base_transform_kwargs"`
}

// BaseTransformYAML is the `model.nsf_kwargs.base_transform_kwargs` section.
type BaseTransformYAML struct {
	HiddenDim          int     `yaml:"hidden_dim"`
	NumTransformBlocks int     `yaml:"num_transform_blocks"`
	Activation         string  `yaml:"activation"`
	DropoutProbability float64 `yaml:"dropout_probability"`
	BatchNorm          bool    `yaml:"batch_norm"`
	NumBins            int     `yaml:"num_bins"`
	BaseTransformType  string  `yaml:"base_transform_type"`
}

// EmbeddingNetYAML is the `model.embedding_net_kwargs` section.
type EmbeddingNetYAML struct {
	OutputDim  int     `yaml:"output_dim"`
	HiddenDims []int   `yaml:"hidden_dims"`
	Activation string  `yaml:"activation"`
	Dropout    float64 `yaml:"dropout"`
	BatchNorm  bool    `yaml:"batch_norm"`
	SVD        SVDYAML `yaml:"svd"`
}

// SVDYAML is the `model.embedding_net_kwargs.svd` section.
type SVDYAML struct {
	NumTrainingSamples   int `yaml:"num_training_samples"`
	NumValidationSamples int `yaml:"num_validation_samples"`
	Size                 int `yaml:"size"`
}

// StageYAML is one `training.stage_N` entry.
type StageYAML struct {
	Epochs         int           `yaml:"epochs"`
	ASDDatasetPath string        `yaml:"asd_dataset_path"`
	FreezeRBLayer  bool          `yaml:"freeze_rb_layer"`
	Optimizer      OptimizerYAML `yaml:"optimizer"`
	Scheduler      SchedulerYAML `yaml:"scheduler"`
	BatchSize      int           `yaml:"batch_size"`
}

// OptimizerYAML is a stage's `optimizer` entry.
type OptimizerYAML struct {
	Type string  `yaml:"type"`
	LR   float64 `yaml:"lr"`
}

// SchedulerYAML is a stage's `scheduler` entry.
type SchedulerYAML struct {
	Type string `yaml:"type"`
	TMax int    `yaml:"T_max,omitempty"`
}

// LocalYAML is the `local` section.
type LocalYAML struct {
	Device           string            `yaml:"device"`
	NumWorkers       int               `yaml:"num_workers"`
	RuntimeLimits    RuntimeLimitsYAML `yaml:"runtime_limits"`
	CheckpointEpochs int               `yaml:"checkpoint_epochs"`
}

// RuntimeLimitsYAML is the `local.runtime_limits` section.
type RuntimeLimitsYAML struct {
	MaxTimePerRun   int `yaml:"max_time_per_run"`
	MaxEpochsPerRun int `yaml:"max_epochs_per_run"`
}
