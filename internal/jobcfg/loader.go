package jobcfg

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"gopkg.in/ini.v1"

	"github.com/vk/gwpipe/internal/ctxlog"
)

// knownKeys is the complete key surface of the job-submission document,
// grouped the way the banners group them.
var knownKeys = map[string]struct{}{
	// Job submission arguments
	"local": {}, "accounting": {}, "scheduler": {},
	"request-cpus": {}, "request-cpus-importance-sampling": {},
	"request-memory": {}, "request-disk": {},
	"transfer-files": {}, "environment-variables": {},
	// Sampler arguments
	"model": {}, "model-init": {}, "device": {}, "num-gpus": {},
	"num-samples": {}, "batch-size": {}, "recover-log-prob": {},
	"importance-sample": {},
	// Data generation arguments
	"trigger-time": {}, "label": {}, "outdir": {}, "channel-dict": {},
	"psd-length": {}, "sampling-frequency": {},
	"importance-sampling-updates": {}, "prior-dict": {},
	// Plotting arguments
	"plot-corner": {}, "plot-weights": {}, "plot-log-probs": {},
}

// Defaults returns a JobSettings with every optional key at its default.
func Defaults() *JobSettings {
	return &JobSettings{
		Submission: SubmissionSettings{
			Scheduler:                     "condor",
			RequestCPUs:                   1,
			RequestCPUsImportanceSampling: 1,
			RequestMemory:                 8 * humanize.GByte,
			RequestDisk:                   2 * humanize.GByte,
			TransferFiles:                 true,
		},
		Sampler: SamplerSettings{
			Device:           "cuda",
			NumGPUs:          1,
			NumSamples:       50000,
			BatchSize:        50000,
			ImportanceSample: true,
		},
		DataGeneration: DataGenerationSettings{
			PSDLength:         128,
			SamplingFrequency: 2048.0,
		},
	}
}

// Load reads a job-submission document and applies it over the defaults.
func Load(ctx context.Context, path string) (*JobSettings, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Loading job-submission file.", "path", path)

	file, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("reading job file: %w", err)
	}
	sec := file.Section(ini.DefaultSection)

	if err := checkKeys(sec); err != nil {
		return nil, fmt.Errorf("job file '%s': %w", path, err)
	}

	settings := Defaults()
	if err := apply(sec, settings); err != nil {
		return nil, fmt.Errorf("job file '%s': %w", path, err)
	}

	if settings.DataGeneration.OutDir == "" && settings.DataGeneration.Label != "" {
		settings.DataGeneration.OutDir = "outdir_" + settings.DataGeneration.Label
	}

	logger.Debug("Job-submission file loaded.",
		"label", settings.DataGeneration.Label, "local", settings.Submission.Local)
	return settings, nil
}

// checkKeys rejects keys outside the documented surface. Misspellings in a
// submission file silently falling back to defaults is the worst failure
// mode this tool exists to prevent.
func checkKeys(sec *ini.Section) error {
	var unknown []string
	for _, key := range sec.KeyStrings() {
		if _, ok := knownKeys[key]; !ok {
			unknown = append(unknown, key)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return fmt.Errorf("unknown keys: %s", strings.Join(unknown, ", "))
	}
	return nil
}

func apply(sec *ini.Section, s *JobSettings) error {
	var errs []string

	getBool := func(name string, dst *bool) {
		if !sec.HasKey(name) {
			return
		}
		v, err := sec.Key(name).Bool()
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", name, err))
			return
		}
		*dst = v
	}
	getInt := func(name string, dst *int) {
		if !sec.HasKey(name) {
			return
		}
		v, err := sec.Key(name).Int()
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", name, err))
			return
		}
		*dst = v
	}
	getFloat := func(name string, dst *float64) {
		if !sec.HasKey(name) {
			return
		}
		v, err := sec.Key(name).Float64()
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", name, err))
			return
		}
		*dst = v
	}
	getString := func(name string, dst *string) {
		if !sec.HasKey(name) {
			return
		}
		*dst = strings.Trim(sec.Key(name).String(), "'\"")
	}
	getSize := func(name string, dst *uint64) {
		if !sec.HasKey(name) {
			return
		}
		v, err := parseSize(sec.Key(name).String())
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", name, err))
			return
		}
		*dst = v
	}

	getBool("local", &s.Submission.Local)
	getString("accounting", &s.Submission.Accounting)
	getString("scheduler", &s.Submission.Scheduler)
	getInt("request-cpus", &s.Submission.RequestCPUs)
	getInt("request-cpus-importance-sampling", &s.Submission.RequestCPUsImportanceSampling)
	getSize("request-memory", &s.Submission.RequestMemory)
	getSize("request-disk", &s.Submission.RequestDisk)
	getBool("transfer-files", &s.Submission.TransferFiles)
	getString("environment-variables", &s.Submission.EnvironmentVariables)

	getString("model", &s.Sampler.ModelPath)
	getString("model-init", &s.Sampler.ModelInitPath)
	getString("device", &s.Sampler.Device)
	getInt("num-gpus", &s.Sampler.NumGPUs)
	getInt("num-samples", &s.Sampler.NumSamples)
	getInt("batch-size", &s.Sampler.BatchSize)
	getBool("recover-log-prob", &s.Sampler.RecoverLogProb)
	getBool("importance-sample", &s.Sampler.ImportanceSample)

	getFloat("trigger-time", &s.DataGeneration.TriggerTime)
	getString("label", &s.DataGeneration.Label)
	getString("outdir", &s.DataGeneration.OutDir)
	getInt("psd-length", &s.DataGeneration.PSDLength)
	getFloat("sampling-frequency", &s.DataGeneration.SamplingFrequency)
	getString("importance-sampling-updates", &s.DataGeneration.ImportanceSamplingUpdates)
	getString("prior-dict", &s.DataGeneration.PriorDict)

	if sec.HasKey("channel-dict") {
		channels, err := ParseChannelDict(sec.Key("channel-dict").String())
		if err != nil {
			errs = append(errs, err.Error())
		} else {
			s.DataGeneration.ChannelDict = channels
		}
	}

	getBool("plot-corner", &s.Plotting.Corner)
	getBool("plot-weights", &s.Plotting.Weights)
	getBool("plot-log-probs", &s.Plotting.LogProbs)

	if len(errs) > 0 {
		return fmt.Errorf("invalid values:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

// parseSize accepts either a humanized size ("8G", "512 MiB") or a bare
// number, which is read as gigabytes for compatibility with existing
// submission files.
func parseSize(raw string) (uint64, error) {
	raw = strings.TrimSpace(raw)
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		if f <= 0 {
			return 0, fmt.Errorf("size must be positive, got %v", f)
		}
		return uint64(f * humanize.GByte), nil
	}
	return humanize.ParseBytes(raw)
}
