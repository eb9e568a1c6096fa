package yamlcfg

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/vk/gwpipe/internal/config"
	"github.com/vk/gwpipe/internal/ctxlog"
)

const settingsFixture = `
data:
  waveform_dataset_path: /data/waveform_dataset
  train_fraction: 0.95
  window:
    type: tukey
    f_s: 4096
    T: 8.0
    roll_off: 0.4
  detectors: [H1, L1]
  extrinsic_prior:
    dec: default
    ra: default
    geocent_time: bilby.core.prior.Uniform(minimum=-0.10, maximum=0.10)
    psi: default
    luminosity_distance: bilby.core.prior.Uniform(minimum=100.0, maximum=6000.0)
  ref_time: 1126259462.391
  inference_parameters: [chirp_mass, mass_ratio, theta_jn]
model:
  type: nsf+embedding
  nsf_kwargs:
    num_flow_steps: 30
    base_transform_kwargs:
      hidden_dim: 512
      num_transform_blocks: 5
      activation: elu
      dropout_probability: 0.0
      batch_norm: true
      num_bins: 8
      base_transform_type: rq-coupling
  embedding_net_kwargs:
    output_dim: 128
    hidden_dims: [1024, 512]
    activation: elu
    dropout: 0.0
    batch_norm: true
    svd:
      num_training_samples: 20000
      num_validation_samples: 5000
      size: 200
training:
  stage_1:
    epochs: 150
    asd_dataset_path: /data/asds
    freeze_rb_layer: false
    optimizer:
      type: adam
      lr: 0.00001
    scheduler:
      type: cosine
      T_max: 150
    batch_size: 64
  stage_0:
    epochs: 300
    asd_dataset_path: /data/asds_fiducial
    freeze_rb_layer: true
    optimizer:
      type: adam
      lr: 0.0001
    scheduler:
      type: cosine
      T_max: 300
    batch_size: 64
local:
  device: cuda
  num_workers: 32
  runtime_limits:
    max_time_per_run: 36000
    max_epochs_per_run: 500
  checkpoint_epochs: 10
`

func testContext() context.Context {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	return ctxlog.WithLogger(context.Background(), logger)
}

func writeSettings(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "train_settings.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write settings file: %v", err)
	}
	return path
}

func TestLoad_TranslatesFullDocument(t *testing.T) {
	path := writeSettings(t, settingsFixture)

	settings, err := NewLoader().Load(testContext(), path)
	if err != nil {
		t.Fatalf("Load() returned an unexpected error: %v", err)
	}

	if settings.Data.Window.Duration != 8.0 {
		t.Errorf("window T = %v, want 8.0", settings.Data.Window.Duration)
	}
	if settings.Model.NSF.NumFlowSteps != 30 {
		t.Errorf("num_flow_steps = %d, want 30", settings.Model.NSF.NumFlowSteps)
	}
	if settings.Local.RuntimeLimits.MaxTimePerRun != 36000 {
		t.Errorf("max_time_per_run = %d, want 36000", settings.Local.RuntimeLimits.MaxTimePerRun)
	}

	// Stages are positionally ordered regardless of key order in the file.
	wantStages := []int{0, 1}
	var gotStages []int
	for _, stage := range settings.Training {
		gotStages = append(gotStages, stage.Index)
	}
	if diff := cmp.Diff(wantStages, gotStages); diff != "" {
		t.Errorf("stage order mismatch (-want +got):\n%s", diff)
	}
	if settings.Training[0].Epochs != 300 || !settings.Training[0].FreezeRBLayer {
		t.Errorf("stage_0 = %+v, want epochs 300 with frozen rb layer", settings.Training[0])
	}

	if err := settings.Validate(testContext()); err != nil {
		t.Errorf("loaded settings failed validation: %v", err)
	}
}

func TestLoad_RejectsUnknownKeys(t *testing.T) {
	path := writeSettings(t, strings.Replace(settingsFixture, "checkpoint_epochs:", "checkpoint_epocs:", 1))

	_, err := NewLoader().Load(testContext(), path)
	if err == nil {
		t.Fatal("Load() accepted a document with a misspelled key")
	}
	if !strings.Contains(err.Error(), "checkpoint_epocs") {
		t.Errorf("Load() error = %v, want mention of the unknown key", err)
	}
}

func TestLoad_RejectsMalformedStageName(t *testing.T) {
	path := writeSettings(t, strings.Replace(settingsFixture, "stage_1:", "stage_one:", 1))

	_, err := NewLoader().Load(testContext(), path)
	if err == nil || !strings.Contains(err.Error(), "stage_one") {
		t.Errorf("Load() error = %v, want malformed stage-name failure", err)
	}
}

func TestEncode_RoundTrips(t *testing.T) {
	path := writeSettings(t, settingsFixture)
	loader := NewLoader()

	settings, err := loader.Load(testContext(), path)
	if err != nil {
		t.Fatalf("Load() returned an unexpected error: %v", err)
	}

	encoded, err := Encode(settings)
	if err != nil {
		t.Fatalf("Encode() returned an unexpected error: %v", err)
	}

	reloadedPath := writeSettings(t, string(encoded))
	reloaded, err := loader.Load(testContext(), reloadedPath)
	if err != nil {
		t.Fatalf("Load() of encoded output failed: %v", err)
	}

	if diff := cmp.Diff(settings, reloaded); diff != "" {
		t.Errorf("round-trip mismatch (-original +reloaded):\n%s", diff)
	}
}

func TestEncode_EmitsStagesInIndexOrder(t *testing.T) {
	settings := &config.TrainSettings{
		Training: []config.TrainingStage{
			{Index: 1, Epochs: 150},
			{Index: 0, Epochs: 300},
		},
	}

	encoded, err := Encode(settings)
	if err != nil {
		t.Fatalf("Encode() returned an unexpected error: %v", err)
	}

	text := string(encoded)
	if strings.Index(text, "stage_0") > strings.Index(text, "stage_1") {
		t.Errorf("stage_0 should precede stage_1 in output:\n%s", text)
	}
}

func TestEncode_LeavesInputStagesUntouched(t *testing.T) {
	settings := &config.TrainSettings{
		Training: []config.TrainingStage{
			{Index: 1, Epochs: 150},
			{Index: 0, Epochs: 300},
		},
	}

	if _, err := Encode(settings); err != nil {
		t.Fatalf("Encode() returned an unexpected error: %v", err)
	}

	if settings.Training[0].Index != 1 || settings.Training[1].Index != 0 {
		t.Errorf("Encode() reordered the caller's stages: %+v", settings.Training)
	}
}
