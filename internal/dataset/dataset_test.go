package dataset

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/gwpipe/internal/basis"
	"github.com/vk/gwpipe/internal/ctxlog"
)

func testContext() context.Context {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	return ctxlog.WithLogger(context.Background(), logger)
}

var testParamNames = []string{"chirp_mass", "mass_ratio", "luminosity_distance"}

func testSamples(count, seriesLen int) []Waveform {
	out := make([]Waveform, count)
	for i := range out {
		hp := make([]complex128, seriesLen)
		hc := make([]complex128, seriesLen)
		for j := range hp {
			hp[j] = complex(float64(i), float64(j))
			hc[j] = complex(float64(j), -float64(i))
		}
		out[i] = Waveform{
			Parameters: map[string]float64{
				"chirp_mass":          30 + float64(i),
				"mass_ratio":          0.5,
				"luminosity_distance": 400 + 10*float64(i),
			},
			HPlus:  hp,
			HCross: hc,
		}
	}
	return out
}

func TestNew_And_At(t *testing.T) {
	t.Parallel()

	// Arrange
	ds, err := New(testParamNames, testSamples(5, 8))
	require.NoError(t, err)

	// Act
	w, err := ds.At(2)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 5, ds.Len())
	assert.Equal(t, 8, ds.SeriesLen())
	assert.Equal(t, 32.0, w.Parameters["chirp_mass"])
	assert.Equal(t, complex(2, 3), w.HPlus[3])
	assert.Equal(t, complex(3, -2), w.HCross[3])

	_, err = ds.At(5)
	assert.ErrorContains(t, err, "out of range")
}

func TestNew_MissingParameter(t *testing.T) {
	t.Parallel()

	samples := testSamples(2, 4)
	delete(samples[1].Parameters, "mass_ratio")

	_, err := New(testParamNames, samples)
	assert.ErrorContains(t, err, "missing parameter 'mass_ratio'")
}

func TestWithTransforms_AppliesInOrder(t *testing.T) {
	t.Parallel()

	// Arrange
	ds, err := New(testParamNames, testSamples(2, 4))
	require.NoError(t, err)

	double := func(w *Waveform) error {
		for j := range w.HPlus {
			w.HPlus[j] *= 2
		}
		return nil
	}
	addOne := func(w *Waveform) error {
		for j := range w.HPlus {
			w.HPlus[j] += 1
		}
		return nil
	}
	transformed := ds.WithTransforms(double, addOne)

	// Act
	w, err := transformed.At(0)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, complex(1, 2), w.HPlus[1]) // (0+1i)*2 + 1

	// The base dataset stays untouched.
	plain, err := ds.At(0)
	require.NoError(t, err)
	assert.Equal(t, complex(0, 1), plain.HPlus[1])
}

func TestWithTransforms_ErrorPropagates(t *testing.T) {
	t.Parallel()

	ds, err := New(testParamNames, testSamples(1, 4))
	require.NoError(t, err)

	bad := func(w *Waveform) error { return fmt.Errorf("whitening failed") }
	_, err = ds.WithTransforms(bad).At(0)
	assert.ErrorContains(t, err, "transforming sample 0: whitening failed")
}

func TestSplit(t *testing.T) {
	t.Parallel()

	ds, err := New(testParamNames, testSamples(10, 4))
	require.NoError(t, err)

	numTrain, numTest, err := ds.Split(0.9)
	require.NoError(t, err)
	assert.Equal(t, 9, numTrain)
	assert.Equal(t, 1, numTest)

	numTrain, numTest, err = ds.Split(1.0)
	require.NoError(t, err)
	assert.Equal(t, 10, numTrain)
	assert.Equal(t, 0, numTest)

	_, _, err = ds.Split(0)
	assert.ErrorContains(t, err, "train fraction")
}

func TestSplit_SingleSampleCannotSplit(t *testing.T) {
	t.Parallel()

	ds, err := New(testParamNames, testSamples(1, 4))
	require.NoError(t, err)

	_, _, err = ds.Split(0.9)
	assert.ErrorContains(t, err, "cannot split 1 samples")

	numTrain, numTest, err := ds.Split(1.0)
	require.NoError(t, err)
	assert.Equal(t, 1, numTrain)
	assert.Equal(t, 0, numTest)
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	t.Parallel()

	// Arrange
	ctx := testContext()
	ds, err := New(testParamNames, testSamples(6, 16))
	require.NoError(t, err)
	dir := t.TempDir()

	// Act
	require.NoError(t, ds.Save(ctx, dir))
	loaded, err := Load(ctx, dir)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, ds.Len(), loaded.Len())
	assert.Equal(t, ds.SeriesLen(), loaded.SeriesLen())
	assert.Equal(t, testParamNames, loaded.ParameterNames())
	assert.Nil(t, loaded.Basis)

	want, err := ds.At(4)
	require.NoError(t, err)
	got, err := loaded.At(4)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestSaveLoad_WithBasisAndCompression(t *testing.T) {
	t.Parallel()

	// Arrange
	ctx := testContext()
	samples := testSamples(6, 16)
	ds, err := New(testParamNames, samples)
	require.NoError(t, err)

	training := make([][]complex128, len(samples))
	for i, s := range samples {
		training[i] = s.HPlus
	}
	ds.Basis, err = basis.Build(ctx, training, 4)
	require.NoError(t, err)

	dir := t.TempDir()
	require.NoError(t, ds.Save(ctx, dir))

	// Act
	loaded, err := Load(ctx, dir)

	// Assert
	require.NoError(t, err)
	require.NotNil(t, loaded.Basis)
	assert.Equal(t, 4, loaded.Basis.Size())

	plus, cross, err := loaded.Compressed(2)
	require.NoError(t, err)
	assert.Len(t, plus, 4)
	assert.Len(t, cross, 4)
}

func TestCompressed_WithoutBasis(t *testing.T) {
	t.Parallel()

	ds, err := New(testParamNames, testSamples(2, 8))
	require.NoError(t, err)

	_, _, err = ds.Compressed(0)
	assert.ErrorContains(t, err, "no reduced basis")
}
