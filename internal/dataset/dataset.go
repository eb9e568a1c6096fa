package dataset

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/sbinet/npyio"
	"gopkg.in/yaml.v3"

	"github.com/vk/gwpipe/internal/basis"
	"github.com/vk/gwpipe/internal/ctxlog"
)

// File names inside a dataset directory.
const (
	settingsFile   = "settings.yaml"
	parametersFile = "parameters.npy"
	hPlusFile      = "h_plus.npy"
	hCrossFile     = "h_cross.npy"
	basisFile      = "rb_matrix_V.npy"
)

// sidecar is the settings.yaml layout descriptor. Arrays are stored
// flat; the sidecar carries the shape.
type sidecar struct {
	NumSamples     int      `yaml:"num_samples"`
	SeriesLength   int      `yaml:"series_length"`
	ParameterNames []string `yaml:"parameter_names"`
}

// Waveform is one dataset sample.
type Waveform struct {
	Parameters map[string]float64
	HPlus      []complex128
	HCross     []complex128
}

// Transform mutates a waveform on access. Transforms compose in order.
type Transform func(*Waveform) error

// Dataset is an in-memory waveform dataset.
type Dataset struct {
	paramNames []string
	parameters []float64 // row-major, Len() x len(paramNames)
	hPlus      []complex128
	hCross     []complex128
	seriesLen  int

	// Basis, when present, enables compressed access. It is loaded from
	// the dataset directory if a basis file exists there.
	Basis *basis.Basis

	transforms []Transform
}

// New assembles a dataset from sample slices. All samples must share the
// parameter names and series length of the first.
func New(paramNames []string, samples []Waveform) (*Dataset, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("no samples provided")
	}
	seriesLen := len(samples[0].HPlus)

	ds := &Dataset{
		paramNames: paramNames,
		seriesLen:  seriesLen,
		parameters: make([]float64, 0, len(samples)*len(paramNames)),
		hPlus:      make([]complex128, 0, len(samples)*seriesLen),
		hCross:     make([]complex128, 0, len(samples)*seriesLen),
	}
	for i, s := range samples {
		if len(s.HPlus) != seriesLen || len(s.HCross) != seriesLen {
			return nil, fmt.Errorf("sample %d series length mismatch", i)
		}
		for _, name := range paramNames {
			v, ok := s.Parameters[name]
			if !ok {
				return nil, fmt.Errorf("sample %d is missing parameter '%s'", i, name)
			}
			ds.parameters = append(ds.parameters, v)
		}
		ds.hPlus = append(ds.hPlus, s.HPlus...)
		ds.hCross = append(ds.hCross, s.HCross...)
	}
	return ds, nil
}

// Len returns the number of samples.
func (d *Dataset) Len() int {
	if len(d.paramNames) == 0 {
		return 0
	}
	return len(d.parameters) / len(d.paramNames)
}

// SeriesLen returns the polarization series length.
func (d *Dataset) SeriesLen() int { return d.seriesLen }

// ParameterNames returns the column names of the parameter table.
func (d *Dataset) ParameterNames() []string { return d.paramNames }

// WithTransforms returns a shallow copy of the dataset that applies the
// given transforms, in order, on every access.
func (d *Dataset) WithTransforms(transforms ...Transform) *Dataset {
	out := *d
	out.transforms = append(append([]Transform(nil), d.transforms...), transforms...)
	return &out
}

// At returns sample i with transforms applied. The returned waveform
// owns its slices.
func (d *Dataset) At(i int) (*Waveform, error) {
	if i < 0 || i >= d.Len() {
		return nil, fmt.Errorf("sample index %d out of range [0,%d)", i, d.Len())
	}

	w := &Waveform{
		Parameters: make(map[string]float64, len(d.paramNames)),
		HPlus:      append([]complex128(nil), d.hPlus[i*d.seriesLen:(i+1)*d.seriesLen]...),
		HCross:     append([]complex128(nil), d.hCross[i*d.seriesLen:(i+1)*d.seriesLen]...),
	}
	for j, name := range d.paramNames {
		w.Parameters[name] = d.parameters[i*len(d.paramNames)+j]
	}

	for _, transform := range d.transforms {
		if err := transform(w); err != nil {
			return nil, fmt.Errorf("transforming sample %d: %w", i, err)
		}
	}
	return w, nil
}

// Compressed returns the reduced-basis coefficients of sample i's
// polarizations. It fails if the dataset carries no basis.
func (d *Dataset) Compressed(i int) (plus, cross []float64, err error) {
	if d.Basis == nil {
		return nil, nil, fmt.Errorf("dataset has no reduced basis")
	}
	w, err := d.At(i)
	if err != nil {
		return nil, nil, err
	}
	if plus, err = d.Basis.Project(w.HPlus); err != nil {
		return nil, nil, err
	}
	if cross, err = d.Basis.Project(w.HCross); err != nil {
		return nil, nil, err
	}
	return plus, cross, nil
}

// Split partitions the sample count by a train fraction in (0,1],
// rounding the training share down but keeping at least one sample on
// each side when the fraction is strictly between 0 and 1.
func (d *Dataset) Split(trainFraction float64) (numTrain, numTest int, err error) {
	if trainFraction <= 0 || trainFraction > 1 {
		return 0, 0, fmt.Errorf("train fraction must be in (0,1], got %v", trainFraction)
	}
	n := d.Len()
	if trainFraction < 1 && n < 2 {
		return 0, 0, fmt.Errorf("cannot split %d samples into non-empty train and test sets", n)
	}
	numTrain = int(math.Floor(float64(n) * trainFraction))
	if numTrain == 0 {
		numTrain = 1
	}
	if trainFraction < 1 && numTrain == n {
		numTrain = n - 1
	}
	return numTrain, n - numTrain, nil
}

// Save writes the dataset (and its basis, if any) into dir.
func (d *Dataset) Save(ctx context.Context, dir string) error {
	logger := ctxlog.FromContext(ctx)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating dataset directory: %w", err)
	}

	sc := sidecar{
		NumSamples:     d.Len(),
		SeriesLength:   d.seriesLen,
		ParameterNames: d.paramNames,
	}
	raw, err := yaml.Marshal(&sc)
	if err != nil {
		return fmt.Errorf("encoding dataset settings: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, settingsFile), raw, 0o644); err != nil {
		return fmt.Errorf("writing dataset settings: %w", err)
	}

	if err := writeNpy(filepath.Join(dir, parametersFile), d.parameters); err != nil {
		return err
	}
	if err := writeNpy(filepath.Join(dir, hPlusFile), d.hPlus); err != nil {
		return err
	}
	if err := writeNpy(filepath.Join(dir, hCrossFile), d.hCross); err != nil {
		return err
	}
	if d.Basis != nil {
		if err := d.Basis.Save(filepath.Join(dir, basisFile)); err != nil {
			return err
		}
	}

	logger.Info("Waveform dataset saved.", "dir", dir, "samples", d.Len())
	return nil
}

// Load reads a dataset directory written by Save.
func Load(ctx context.Context, dir string) (*Dataset, error) {
	logger := ctxlog.FromContext(ctx)

	raw, err := os.ReadFile(filepath.Join(dir, settingsFile))
	if err != nil {
		return nil, fmt.Errorf("reading dataset settings: %w", err)
	}
	var sc sidecar
	if err := yaml.Unmarshal(raw, &sc); err != nil {
		return nil, fmt.Errorf("decoding dataset settings: %w", err)
	}
	if sc.NumSamples <= 0 || sc.SeriesLength <= 0 || len(sc.ParameterNames) == 0 {
		return nil, fmt.Errorf("dataset settings are incomplete: %+v", sc)
	}

	ds := &Dataset{
		paramNames: sc.ParameterNames,
		seriesLen:  sc.SeriesLength,
	}
	if err := readNpy(filepath.Join(dir, parametersFile), &ds.parameters); err != nil {
		return nil, err
	}
	if err := readNpy(filepath.Join(dir, hPlusFile), &ds.hPlus); err != nil {
		return nil, err
	}
	if err := readNpy(filepath.Join(dir, hCrossFile), &ds.hCross); err != nil {
		return nil, err
	}

	if want := sc.NumSamples * len(sc.ParameterNames); len(ds.parameters) != want {
		return nil, fmt.Errorf("parameter table has %d values, want %d", len(ds.parameters), want)
	}
	if want := sc.NumSamples * sc.SeriesLength; len(ds.hPlus) != want || len(ds.hCross) != want {
		return nil, fmt.Errorf("polarization arrays do not match the declared shape %dx%d", sc.NumSamples, sc.SeriesLength)
	}

	basisPath := filepath.Join(dir, basisFile)
	if _, err := os.Stat(basisPath); err == nil {
		if ds.Basis, err = basis.Load(basisPath); err != nil {
			return nil, err
		}
		if ds.Basis.SeriesLen() != sc.SeriesLength {
			return nil, fmt.Errorf("basis length %d does not match dataset series length %d",
				ds.Basis.SeriesLen(), sc.SeriesLength)
		}
	}

	logger.Debug("Waveform dataset loaded.", "dir", dir, "samples", ds.Len(), "has_basis", ds.Basis != nil)
	return ds, nil
}

func writeNpy[T any](path string, data []T) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Base(path), err)
	}
	defer f.Close()
	if err := npyio.Write(f, data); err != nil {
		return fmt.Errorf("writing %s: %w", filepath.Base(path), err)
	}
	return nil
}

func readNpy[T any](path string, dst *[]T) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", filepath.Base(path), err)
	}
	defer f.Close()
	if err := npyio.Read(f, dst); err != nil {
		return fmt.Errorf("reading %s: %w", filepath.Base(path), err)
	}
	return nil
}
