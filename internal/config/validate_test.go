package config

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/vk/gwpipe/internal/ctxlog"
)

// testContext returns a context carrying a logger that discards output.
func testContext() context.Context {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	return ctxlog.WithLogger(context.Background(), logger)
}

// validSettings returns a complete, valid settings model that individual
// tests mutate to provoke specific failures.
func validSettings() *TrainSettings {
	return &TrainSettings{
		Data: DataSettings{
			WaveformDatasetPath: "/data/waveform_dataset",
			TrainFraction:       0.95,
			Window: WindowSettings{
				Type:         "tukey",
				SamplingRate: 4096,
				Duration:     8,
				RollOff:      0.4,
			},
			Detectors: []string{"H1", "L1"},
			ExtrinsicPrior: map[string]string{
				"dec":                 "default",
				"ra":                  "default",
				"psi":                 "default",
				"geocent_time":        "bilby.core.prior.Uniform(minimum=-0.10, maximum=0.10)",
				"luminosity_distance": "bilby.core.prior.Uniform(minimum=100.0, maximum=6000.0)",
			},
			RefTime:             1126259462.391,
			InferenceParameters: []string{"chirp_mass", "mass_ratio", "chi_1", "chi_2", "theta_jn", "dec", "ra", "geocent_time", "luminosity_distance", "psi", "phase"},
		},
		Model: ModelSettings{
			Type: "nsf+embedding",
			NSF: NSFSettings{
				NumFlowSteps: 30,
				BaseTransform: BaseTransformSettings{
					HiddenDim:          512,
					NumTransformBlocks: 5,
					Activation:         "elu",
					DropoutProbability: 0.0,
					BatchNorm:          true,
					NumBins:            8,
					BaseTransformType:  "rq-coupling",
				},
			},
			EmbeddingNet: EmbeddingNetSettings{
				OutputDim:  128,
				HiddenDims: []int{1024, 1024, 512},
				Activation: "elu",
				Dropout:    0.0,
				BatchNorm:  true,
				SVD: SVDSettings{
					NumTrainingSamples:   20000,
					NumValidationSamples: 5000,
					Size:                 200,
				},
			},
		},
		Training: []TrainingStage{
			{
				Index:          0,
				Epochs:         300,
				ASDDatasetPath: "/data/asds_fiducial",
				FreezeRBLayer:  true,
				Optimizer:      OptimizerSettings{Type: "adam", LR: 0.0001},
				Scheduler:      SchedulerSettings{Type: "cosine", TMax: 300},
				BatchSize:      64,
			},
			{
				Index:          1,
				Epochs:         150,
				ASDDatasetPath: "/data/asds",
				FreezeRBLayer:  false,
				Optimizer:      OptimizerSettings{Type: "adam", LR: 0.00001},
				Scheduler:      SchedulerSettings{Type: "cosine", TMax: 150},
				BatchSize:      64,
			},
		},
		Local: LocalSettings{
			Device:     "cuda",
			NumWorkers: 32,
			RuntimeLimits: RuntimeLimits{
				MaxTimePerRun:   36000,
				MaxEpochsPerRun: 500,
			},
			CheckpointEpochs: 10,
		},
	}
}

func TestValidate_AcceptsCompleteSettings(t *testing.T) {
	if err := validSettings().Validate(testContext()); err != nil {
		t.Fatalf("Validate() rejected a valid settings model: %v", err)
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	s := validSettings()
	s.Data.TrainFraction = 1.5
	s.Data.Detectors = []string{"H1", "X9"}
	s.Training[0].Epochs = 0

	err := s.Validate(testContext())
	if err == nil {
		t.Fatal("Validate() accepted an invalid settings model")
	}

	for _, want := range []string{"train_fraction", "unknown detector 'X9'", "epochs must be positive"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Validate() error is missing %q:\n%v", want, err)
		}
	}
}

func TestValidate_RejectsNonContiguousStages(t *testing.T) {
	s := validSettings()
	s.Training[1].Index = 3

	err := s.Validate(testContext())
	if err == nil || !strings.Contains(err.Error(), "numbered contiguously") {
		t.Errorf("Validate() error = %v, want stage-numbering failure", err)
	}
}

func TestValidate_RejectsSchedulerPeriodBeyondEpochs(t *testing.T) {
	s := validSettings()
	s.Training[1].Epochs = 150
	s.Training[1].Scheduler.TMax = 200

	err := s.Validate(testContext())
	if err == nil || !strings.Contains(err.Error(), "T_max (200) must not exceed epochs (150)") {
		t.Errorf("Validate() error = %v, want T_max/epochs failure", err)
	}

	s.Training[1].Scheduler.TMax = 150
	if err := s.Validate(testContext()); err != nil {
		t.Errorf("Validate() rejected T_max equal to epochs: %v", err)
	}
}

func TestValidate_RejectsBadPriorExpression(t *testing.T) {
	s := validSettings()
	s.Data.ExtrinsicPrior["dec"] = "Triangle(minimum=0, maximum=1)"

	err := s.Validate(testContext())
	if err == nil || !strings.Contains(err.Error(), "unknown distribution") {
		t.Errorf("Validate() error = %v, want prior-parse failure", err)
	}
}

func TestValidate_RejectsUnknownDevice(t *testing.T) {
	s := validSettings()
	s.Local.Device = "tpu"

	err := s.Validate(testContext())
	if err == nil || !strings.Contains(err.Error(), "unknown device") {
		t.Errorf("Validate() error = %v, want device failure", err)
	}
}

func TestPriorDict_ResolvesDefaults(t *testing.T) {
	dict, err := validSettings().Data.PriorDict()
	if err != nil {
		t.Fatalf("PriorDict() returned an unexpected error: %v", err)
	}

	dist, ok := dict.Get("dec")
	if !ok {
		t.Fatal("prior dict is missing 'dec'")
	}
	if dist.Kind() != "Cosine" {
		t.Errorf("default prior for dec resolved to %s, want Cosine", dist.Kind())
	}
}
