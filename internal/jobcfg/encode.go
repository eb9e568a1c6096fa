package jobcfg

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
)

const bannerRule = "################################################################################"

// Encode renders the settings as a normalized job-submission document:
// the four banner sections in canonical order, every key explicit.
func Encode(s *JobSettings) []byte {
	var buf bytes.Buffer

	writeBanner(&buf, "Job submission arguments")
	writeKey(&buf, "local", formatBool(s.Submission.Local))
	writeKey(&buf, "accounting", s.Submission.Accounting)
	writeKey(&buf, "scheduler", s.Submission.Scheduler)
	writeKey(&buf, "request-cpus", strconv.Itoa(s.Submission.RequestCPUs))
	writeKey(&buf, "request-cpus-importance-sampling", strconv.Itoa(s.Submission.RequestCPUsImportanceSampling))
	writeKey(&buf, "request-memory", formatSize(s.Submission.RequestMemory))
	writeKey(&buf, "request-disk", formatSize(s.Submission.RequestDisk))
	writeKey(&buf, "transfer-files", formatBool(s.Submission.TransferFiles))
	if s.Submission.EnvironmentVariables != "" {
		writeKey(&buf, "environment-variables", s.Submission.EnvironmentVariables)
	}

	buf.WriteByte('\n')
	writeBanner(&buf, "Sampler arguments")
	writeKey(&buf, "model", s.Sampler.ModelPath)
	if s.Sampler.ModelInitPath != "" {
		writeKey(&buf, "model-init", s.Sampler.ModelInitPath)
	}
	writeKey(&buf, "device", s.Sampler.Device)
	writeKey(&buf, "num-gpus", strconv.Itoa(s.Sampler.NumGPUs))
	writeKey(&buf, "num-samples", strconv.Itoa(s.Sampler.NumSamples))
	writeKey(&buf, "batch-size", strconv.Itoa(s.Sampler.BatchSize))
	writeKey(&buf, "recover-log-prob", formatBool(s.Sampler.RecoverLogProb))
	writeKey(&buf, "importance-sample", formatBool(s.Sampler.ImportanceSample))

	buf.WriteByte('\n')
	writeBanner(&buf, "Data generation arguments")
	writeKey(&buf, "trigger-time", strconv.FormatFloat(s.DataGeneration.TriggerTime, 'f', -1, 64))
	writeKey(&buf, "label", s.DataGeneration.Label)
	writeKey(&buf, "outdir", s.DataGeneration.OutDir)
	writeKey(&buf, "channel-dict", FormatChannelDict(s.DataGeneration.ChannelDict))
	writeKey(&buf, "psd-length", strconv.Itoa(s.DataGeneration.PSDLength))
	writeKey(&buf, "sampling-frequency", strconv.FormatFloat(s.DataGeneration.SamplingFrequency, 'f', -1, 64))
	if s.DataGeneration.ImportanceSamplingUpdates != "" {
		writeKey(&buf, "importance-sampling-updates", s.DataGeneration.ImportanceSamplingUpdates)
	}
	if s.DataGeneration.PriorDict != "" {
		writeKey(&buf, "prior-dict", s.DataGeneration.PriorDict)
	}

	buf.WriteByte('\n')
	writeBanner(&buf, "Plotting arguments")
	writeKey(&buf, "plot-corner", formatBool(s.Plotting.Corner))
	writeKey(&buf, "plot-weights", formatBool(s.Plotting.Weights))
	writeKey(&buf, "plot-log-probs", formatBool(s.Plotting.LogProbs))

	return buf.Bytes()
}

// FormatChannelDict renders a channel mapping with detectors sorted, e.g.
// {H1:GWOSC, L1:GWOSC}.
func FormatChannelDict(channels map[string]string) string {
	dets := make([]string, 0, len(channels))
	for det := range channels {
		dets = append(dets, det)
	}
	sort.Strings(dets)

	pairs := make([]string, len(dets))
	for i, det := range dets {
		pairs[i] = det + ":" + channels[det]
	}
	return "{" + strings.Join(pairs, ", ") + "}"
}

func writeBanner(buf *bytes.Buffer, title string) {
	fmt.Fprintf(buf, "%s\n## %s\n%s\n\n", bannerRule, title, bannerRule)
}

func writeKey(buf *bytes.Buffer, key, value string) {
	fmt.Fprintf(buf, "%s = %s\n", key, value)
}

func formatBool(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// formatSize renders a byte count the way operators write it, e.g. "8G".
// Sizes in these documents are decimal (condor and slurm both read them
// that way). Exact multiples keep the bare-suffix convention; anything
// else falls back to humanize's SI formatting.
func formatSize(n uint64) string {
	switch {
	case n >= humanize.GByte && n%humanize.GByte == 0:
		return fmt.Sprintf("%dG", n/humanize.GByte)
	case n >= humanize.MByte && n%humanize.MByte == 0:
		return fmt.Sprintf("%dM", n/humanize.MByte)
	default:
		return strings.ReplaceAll(humanize.Bytes(n), " ", "")
	}
}
