package basis

import (
	"context"
	"fmt"
	"os"

	"github.com/sbinet/npyio"
	"gonum.org/v1/gonum/mat"

	"github.com/vk/gwpipe/internal/ctxlog"
)

// Basis is an orthonormal reduced basis for complex frequency series of a
// fixed length. V holds one basis element per column in the real
// embedding, so V has 2*SeriesLen rows.
type Basis struct {
	V *mat.Dense
}

// Build computes a reduced basis from training series via a thin SVD of
// the real-embedded training matrix. n truncates the basis to the n
// leading singular vectors; n = 0 keeps the full rank.
func Build(ctx context.Context, training [][]complex128, n int) (*Basis, error) {
	logger := ctxlog.FromContext(ctx)

	if len(training) == 0 {
		return nil, fmt.Errorf("no training series provided")
	}
	seriesLen := len(training[0])
	if seriesLen == 0 {
		return nil, fmt.Errorf("training series are empty")
	}
	if n < 0 {
		return nil, fmt.Errorf("basis size must be non-negative, got %d", n)
	}

	rows := len(training)
	cols := 2 * seriesLen
	a := mat.NewDense(rows, cols, nil)
	for i, series := range training {
		if len(series) != seriesLen {
			return nil, fmt.Errorf("training series %d has length %d, want %d", i, len(series), seriesLen)
		}
		for j, c := range series {
			a.Set(i, j, real(c))
			a.Set(i, seriesLen+j, imag(c))
		}
	}

	logger.Debug("Computing thin SVD of training matrix.", "rows", rows, "cols", cols)
	var svd mat.SVD
	if ok := svd.Factorize(a, mat.SVDThin); !ok {
		return nil, fmt.Errorf("SVD factorization failed to converge")
	}

	var v mat.Dense
	svd.VTo(&v)
	_, rank := v.Dims()

	if n == 0 || n > rank {
		n = rank
	}
	truncated := mat.DenseCopyOf(v.Slice(0, cols, 0, n))
	logger.Info("Reduced basis built.", "elements", n, "series_length", seriesLen)
	return &Basis{V: truncated}, nil
}

// Size returns the number of basis elements.
func (b *Basis) Size() int {
	_, n := b.V.Dims()
	return n
}

// SeriesLen returns the complex series length the basis was built for.
func (b *Basis) SeriesLen() int {
	rows, _ := b.V.Dims()
	return rows / 2
}

// Project computes the coefficients of a series in the basis.
func (b *Basis) Project(series []complex128) ([]float64, error) {
	seriesLen := b.SeriesLen()
	if len(series) != seriesLen {
		return nil, fmt.Errorf("series length %d does not match basis length %d", len(series), seriesLen)
	}

	x := mat.NewVecDense(2*seriesLen, nil)
	for j, c := range series {
		x.SetVec(j, real(c))
		x.SetVec(seriesLen+j, imag(c))
	}

	coeffs := mat.NewVecDense(b.Size(), nil)
	coeffs.MulVec(b.V.T(), x)
	return coeffs.RawVector().Data, nil
}

// Reconstruct maps basis coefficients back to a complex series.
func (b *Basis) Reconstruct(coeffs []float64) ([]complex128, error) {
	if len(coeffs) != b.Size() {
		return nil, fmt.Errorf("got %d coefficients, basis has %d elements", len(coeffs), b.Size())
	}

	x := mat.NewVecDense(2*b.SeriesLen(), nil)
	x.MulVec(b.V, mat.NewVecDense(len(coeffs), coeffs))

	seriesLen := b.SeriesLen()
	series := make([]complex128, seriesLen)
	for j := range series {
		series[j] = complex(x.AtVec(j), x.AtVec(seriesLen+j))
	}
	return series, nil
}

// Save writes the basis matrix V to a .npy file.
func (b *Basis) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating basis file: %w", err)
	}
	defer f.Close()

	if err := npyio.Write(f, b.V); err != nil {
		return fmt.Errorf("writing basis matrix: %w", err)
	}
	return nil
}

// Load reads a basis matrix V from a .npy file.
func Load(path string) (*Basis, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening basis file: %w", err)
	}
	defer f.Close()

	var v mat.Dense
	if err := npyio.Read(f, &v); err != nil {
		return nil, fmt.Errorf("reading basis matrix: %w", err)
	}
	rows, _ := v.Dims()
	if rows == 0 || rows%2 != 0 {
		return nil, fmt.Errorf("basis matrix has %d rows, want an even positive count", rows)
	}
	return &Basis{V: &v}, nil
}
