package jobcfg

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/gwpipe/internal/ctxlog"
)

const jobFixture = `
################################################################################
## Job submission arguments
################################################################################

local = True
accounting = gwpipe
request-cpus = 16
request-cpus-importance-sampling = 32
request-memory = 8G
transfer-files = false
environment-variables = {'OMP_NUM_THREADS': 1}

################################################################################
## Sampler arguments
################################################################################

model = training/model_stage_1.pt
model-init = training_init/model.pt
recover-log-prob = false
device = 'cuda'
num-gpus = 1
num-samples = 50000
batch-size = 50000

################################################################################
## Data generation arguments
################################################################################

trigger-time = 1126259462.4
label = GW150914
outdir = outdir_GW150914
channel-dict = {H1:GWOSC, L1:GWOSC}
psd-length = 128
sampling-frequency = 2048.0
importance-sampling-updates = {'duration': 4.0, 'detectors': ['H1', 'L1']}
prior-dict = {geocent_time: Uniform(minimum=-0.1, maximum=0.1), luminosity_distance: default}

################################################################################
## Plotting arguments
################################################################################

plot-corner = true
plot-weights = true
plot-log-probs = true
`

func testContext() context.Context {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	return ctxlog.WithLogger(context.Background(), logger)
}

func writeJobFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "job.ini")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write job file: %v", err)
	}
	return path
}

func TestLoad_ParsesFullDocument(t *testing.T) {
	settings, err := Load(testContext(), writeJobFile(t, jobFixture))
	if err != nil {
		t.Fatalf("Load() returned an unexpected error: %v", err)
	}

	if !settings.Submission.Local {
		t.Error("local = false, want true")
	}
	if settings.Submission.RequestCPUsImportanceSampling != 32 {
		t.Errorf("request-cpus-importance-sampling = %d, want 32", settings.Submission.RequestCPUsImportanceSampling)
	}
	if settings.Submission.RequestMemory != 8_000_000_000 {
		t.Errorf("request-memory = %d bytes, want 8G", settings.Submission.RequestMemory)
	}
	if settings.Sampler.Device != "cuda" {
		t.Errorf("device = %q, want cuda (quotes stripped)", settings.Sampler.Device)
	}
	if settings.DataGeneration.TriggerTime != 1126259462.4 {
		t.Errorf("trigger-time = %v, want 1126259462.4", settings.DataGeneration.TriggerTime)
	}

	wantChannels := map[string]string{"H1": "GWOSC", "L1": "GWOSC"}
	if diff := cmp.Diff(wantChannels, settings.DataGeneration.ChannelDict); diff != "" {
		t.Errorf("channel-dict mismatch (-want +got):\n%s", diff)
	}

	if err := settings.Validate(testContext()); err != nil {
		t.Errorf("loaded settings failed validation: %v", err)
	}
}

func TestLoad_AppliesDefaults(t *testing.T) {
	settings, err := Load(testContext(), writeJobFile(t, `
model = training/model.pt
accounting = gwpipe
trigger-time = 1126259462.4
label = GW150914
channel-dict = {H1:GWOSC}
`))
	if err != nil {
		t.Fatalf("Load() returned an unexpected error: %v", err)
	}

	if settings.Submission.Scheduler != "condor" {
		t.Errorf("scheduler = %q, want condor", settings.Submission.Scheduler)
	}
	if !settings.Sampler.ImportanceSample {
		t.Error("importance-sample should default to true")
	}
	if settings.DataGeneration.PSDLength != 128 {
		t.Errorf("psd-length = %d, want 128", settings.DataGeneration.PSDLength)
	}
	if settings.DataGeneration.OutDir != "outdir_GW150914" {
		t.Errorf("outdir = %q, want outdir_GW150914", settings.DataGeneration.OutDir)
	}
}

func TestLoad_RejectsUnknownKeys(t *testing.T) {
	_, err := Load(testContext(), writeJobFile(t, jobFixture+"\nrequest-cpu = 4\n"))
	if err == nil {
		t.Fatal("Load() accepted a document with a misspelled key")
	}
	if !strings.Contains(err.Error(), "request-cpu") {
		t.Errorf("Load() error = %v, want mention of the unknown key", err)
	}
}

func TestLoad_RejectsMalformedChannelDict(t *testing.T) {
	content := strings.Replace(jobFixture, "{H1:GWOSC, L1:GWOSC}", "{H1=GWOSC}", 1)
	_, err := Load(testContext(), writeJobFile(t, content))
	if err == nil || !strings.Contains(err.Error(), "channel-dict") {
		t.Errorf("Load() error = %v, want channel-dict failure", err)
	}
}

func TestValidate_RejectsInconsistentSettings(t *testing.T) {
	settings, err := Load(testContext(), writeJobFile(t, jobFixture))
	if err != nil {
		t.Fatalf("Load() returned an unexpected error: %v", err)
	}

	settings.Sampler.BatchSize = settings.Sampler.NumSamples + 1
	settings.DataGeneration.ChannelDict["X9"] = "GWOSC"

	err = settings.Validate(testContext())
	if err == nil {
		t.Fatal("Validate() accepted inconsistent settings")
	}
	for _, want := range []string{"batch-size", "unknown detector 'X9'"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Validate() error is missing %q:\n%v", want, err)
		}
	}
}

func TestParseUpdates_DecodesTypedValues(t *testing.T) {
	gen := &DataGenerationSettings{
		ImportanceSamplingUpdates: "{'duration': 4.0, 'detectors': ['H1', 'L1'], 'roll_off': 0.4}",
	}

	updates, err := gen.ParseUpdates()
	if err != nil {
		t.Fatalf("ParseUpdates() returned an unexpected error: %v", err)
	}

	duration, _ := updates["duration"].AsBigFloat().Float64()
	if duration != 4.0 {
		t.Errorf("duration = %v, want 4.0", duration)
	}
	dets := updates["detectors"]
	if dets.LengthInt() != 2 || dets.Index(cty.NumberIntVal(0)).AsString() != "H1" {
		t.Errorf("detectors = %v, want ['H1', 'L1']", dets)
	}
}

func TestLoad_ParsesSchedulerExtras(t *testing.T) {
	settings, err := Load(testContext(), writeJobFile(t, jobFixture))
	if err != nil {
		t.Fatalf("Load() returned an unexpected error: %v", err)
	}

	if settings.Submission.TransferFiles {
		t.Error("transfer-files = true, want false")
	}
	if Defaults().Submission.TransferFiles != true {
		t.Error("transfer-files should default to true")
	}

	env, err := settings.Submission.EnvironmentStrings()
	if err != nil {
		t.Fatalf("EnvironmentStrings() returned an unexpected error: %v", err)
	}
	if diff := cmp.Diff([]string{"OMP_NUM_THREADS=1"}, env); diff != "" {
		t.Errorf("environment mismatch (-want +got):\n%s", diff)
	}
}

func TestEnvironmentStrings_SortsPairs(t *testing.T) {
	sub := &SubmissionSettings{
		EnvironmentVariables: "{'LAL_DATA_PATH': '/data/lal', 'CUDA_VISIBLE_DEVICES': 0}",
	}

	env, err := sub.EnvironmentStrings()
	if err != nil {
		t.Fatalf("EnvironmentStrings() returned an unexpected error: %v", err)
	}

	want := []string{"CUDA_VISIBLE_DEVICES=0", "LAL_DATA_PATH=/data/lal"}
	if diff := cmp.Diff(want, env); diff != "" {
		t.Errorf("environment mismatch (-want +got):\n%s", diff)
	}
}

func TestParsePriorDict_DecodesOverrides(t *testing.T) {
	gen := &DataGenerationSettings{
		PriorDict: "{geocent_time: Uniform(minimum=-0.1, maximum=0.1), luminosity_distance: default}",
	}

	dict, err := gen.ParsePriorDict()
	if err != nil {
		t.Fatalf("ParsePriorDict() returned an unexpected error: %v", err)
	}

	if diff := cmp.Diff([]string{"geocent_time", "luminosity_distance"}, dict.Parameters()); diff != "" {
		t.Errorf("parameter order mismatch (-want +got):\n%s", diff)
	}
	gt, _ := dict.Get("geocent_time")
	if gt.Kind() != "Uniform" {
		t.Errorf("geocent_time prior = %s, want Uniform", gt.Kind())
	}
	ld, _ := dict.Get("luminosity_distance")
	if ld.Kind() != "UniformSourceFrame" {
		t.Errorf("luminosity_distance default = %s, want UniformSourceFrame", ld.Kind())
	}
}

func TestParsePriorDict_RejectsMalformedEntry(t *testing.T) {
	gen := &DataGenerationSettings{PriorDict: "{geocent_time = Uniform(minimum=-0.1, maximum=0.1)}"}
	if _, err := gen.ParsePriorDict(); err == nil {
		t.Error("ParsePriorDict() accepted an entry without a colon")
	}

	gen = &DataGenerationSettings{PriorDict: "geocent_time: default"}
	if _, err := gen.ParsePriorDict(); err == nil {
		t.Error("ParsePriorDict() accepted a dict without braces")
	}
}

func TestValidate_RejectsBadPriorDict(t *testing.T) {
	settings, err := Load(testContext(), writeJobFile(t, jobFixture))
	if err != nil {
		t.Fatalf("Load() returned an unexpected error: %v", err)
	}

	settings.DataGeneration.PriorDict = "{mass_ratio: Triangular(minimum=0, maximum=1)}"

	err = settings.Validate(testContext())
	if err == nil || !strings.Contains(err.Error(), "prior-dict entry 'mass_ratio'") {
		t.Errorf("Validate() error = %v, want prior-dict failure", err)
	}
}

func TestEncode_RoundTrips(t *testing.T) {
	settings, err := Load(testContext(), writeJobFile(t, jobFixture))
	if err != nil {
		t.Fatalf("Load() returned an unexpected error: %v", err)
	}

	reloaded, err := Load(testContext(), writeJobFile(t, string(Encode(settings))))
	if err != nil {
		t.Fatalf("Load() of encoded output failed: %v", err)
	}

	if diff := cmp.Diff(settings, reloaded); diff != "" {
		t.Errorf("round-trip mismatch (-original +reloaded):\n%s", diff)
	}
}

func TestEncode_KeepsBannerLayout(t *testing.T) {
	settings, err := Load(testContext(), writeJobFile(t, jobFixture))
	if err != nil {
		t.Fatalf("Load() returned an unexpected error: %v", err)
	}

	text := string(Encode(settings))
	for _, banner := range []string{
		"## Job submission arguments",
		"## Sampler arguments",
		"## Data generation arguments",
		"## Plotting arguments",
	} {
		if !strings.Contains(text, banner) {
			t.Errorf("encoded document is missing banner %q", banner)
		}
	}
}
