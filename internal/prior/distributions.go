package prior

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"strconv"
)

// formatArg renders a float argument the way the canonical form expects:
// shortest representation that round-trips.
func formatArg(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// Uniform is a flat prior on [Minimum, Maximum].
type Uniform struct {
	Minimum float64
	Maximum float64
}

func newUniform(args *Args) (Distribution, error) {
	lo, err := args.RequireFloat("minimum")
	if err != nil {
		return nil, err
	}
	hi, err := args.RequireFloat("maximum")
	if err != nil {
		return nil, err
	}
	if lo >= hi {
		return nil, fmt.Errorf("minimum (%v) must be below maximum (%v)", lo, hi)
	}
	return &Uniform{Minimum: lo, Maximum: hi}, nil
}

func (u *Uniform) Kind() string { return "Uniform" }

func (u *Uniform) Bounds() (float64, float64, bool) { return u.Minimum, u.Maximum, true }

func (u *Uniform) Sample(rng *rand.Rand) (float64, error) {
	return u.Minimum + rng.Float64()*(u.Maximum-u.Minimum), nil
}

func (u *Uniform) String() string {
	return fmt.Sprintf("Uniform(minimum=%s, maximum=%s)", formatArg(u.Minimum), formatArg(u.Maximum))
}

// Sine is a prior proportional to sin(x), defaulting to support [0, pi].
// It is the standard prior for inclination-type angles.
type Sine struct {
	Minimum float64
	Maximum float64
}

func newSine(args *Args) (Distribution, error) {
	lo, ok, err := args.Float("minimum")
	if err != nil {
		return nil, err
	}
	if !ok {
		lo = 0
	}
	hi, ok, err := args.Float("maximum")
	if err != nil {
		return nil, err
	}
	if !ok {
		hi = math.Pi
	}
	if lo < 0 || hi > math.Pi || lo >= hi {
		return nil, fmt.Errorf("support [%v, %v] must be a non-empty subinterval of [0, pi]", lo, hi)
	}
	return &Sine{Minimum: lo, Maximum: hi}, nil
}

func (s *Sine) Kind() string { return "Sine" }

func (s *Sine) Bounds() (float64, float64, bool) { return s.Minimum, s.Maximum, true }

func (s *Sine) Sample(rng *rand.Rand) (float64, error) {
	// Inverse-CDF for p(x) ∝ sin(x) on [min, max].
	cLo, cHi := math.Cos(s.Minimum), math.Cos(s.Maximum)
	return math.Acos(cLo - rng.Float64()*(cLo-cHi)), nil
}

func (s *Sine) String() string {
	return fmt.Sprintf("Sine(minimum=%s, maximum=%s)", formatArg(s.Minimum), formatArg(s.Maximum))
}

// Cosine is a prior proportional to cos(x), defaulting to support
// [-pi/2, pi/2]. It is the standard prior for declination.
type Cosine struct {
	Minimum float64
	Maximum float64
}

func newCosine(args *Args) (Distribution, error) {
	lo, ok, err := args.Float("minimum")
	if err != nil {
		return nil, err
	}
	if !ok {
		lo = -math.Pi / 2
	}
	hi, ok, err := args.Float("maximum")
	if err != nil {
		return nil, err
	}
	if !ok {
		hi = math.Pi / 2
	}
	if lo < -math.Pi/2 || hi > math.Pi/2 || lo >= hi {
		return nil, fmt.Errorf("support [%v, %v] must be a non-empty subinterval of [-pi/2, pi/2]", lo, hi)
	}
	return &Cosine{Minimum: lo, Maximum: hi}, nil
}

func (c *Cosine) Kind() string { return "Cosine" }

func (c *Cosine) Bounds() (float64, float64, bool) { return c.Minimum, c.Maximum, true }

func (c *Cosine) Sample(rng *rand.Rand) (float64, error) {
	// Inverse-CDF for p(x) ∝ cos(x) on [min, max].
	sLo, sHi := math.Sin(c.Minimum), math.Sin(c.Maximum)
	return math.Asin(sLo + rng.Float64()*(sHi-sLo)), nil
}

func (c *Cosine) String() string {
	return fmt.Sprintf("Cosine(minimum=%s, maximum=%s)", formatArg(c.Minimum), formatArg(c.Maximum))
}

// Gaussian is a normal prior with mean Mu and standard deviation Sigma.
type Gaussian struct {
	Mu    float64
	Sigma float64
}

func newGaussian(args *Args) (Distribution, error) {
	mu, err := args.RequireFloat("mu")
	if err != nil {
		return nil, err
	}
	sigma, err := args.RequireFloat("sigma")
	if err != nil {
		return nil, err
	}
	if sigma <= 0 {
		return nil, fmt.Errorf("sigma must be positive, got %v", sigma)
	}
	return &Gaussian{Mu: mu, Sigma: sigma}, nil
}

func (g *Gaussian) Kind() string { return "Gaussian" }

func (g *Gaussian) Bounds() (float64, float64, bool) {
	return math.Inf(-1), math.Inf(1), false
}

func (g *Gaussian) Sample(rng *rand.Rand) (float64, error) {
	return g.Mu + g.Sigma*rng.NormFloat64(), nil
}

func (g *Gaussian) String() string {
	return fmt.Sprintf("Gaussian(mu=%s, sigma=%s)", formatArg(g.Mu), formatArg(g.Sigma))
}

// PowerLaw is a prior proportional to x^Alpha on [Minimum, Maximum].
type PowerLaw struct {
	Alpha   float64
	Minimum float64
	Maximum float64
}

func newPowerLaw(args *Args) (Distribution, error) {
	alpha, err := args.RequireFloat("alpha")
	if err != nil {
		return nil, err
	}
	lo, err := args.RequireFloat("minimum")
	if err != nil {
		return nil, err
	}
	hi, err := args.RequireFloat("maximum")
	if err != nil {
		return nil, err
	}
	if lo <= 0 {
		return nil, fmt.Errorf("minimum must be positive for a power-law prior, got %v", lo)
	}
	if lo >= hi {
		return nil, fmt.Errorf("minimum (%v) must be below maximum (%v)", lo, hi)
	}
	return &PowerLaw{Alpha: alpha, Minimum: lo, Maximum: hi}, nil
}

func (p *PowerLaw) Kind() string { return "PowerLaw" }

func (p *PowerLaw) Bounds() (float64, float64, bool) { return p.Minimum, p.Maximum, true }

func (p *PowerLaw) Sample(rng *rand.Rand) (float64, error) {
	r := rng.Float64()
	if p.Alpha == -1 {
		return p.Minimum * math.Exp(r*math.Log(p.Maximum/p.Minimum)), nil
	}
	a1 := p.Alpha + 1
	lo, hi := math.Pow(p.Minimum, a1), math.Pow(p.Maximum, a1)
	return math.Pow(lo+r*(hi-lo), 1/a1), nil
}

func (p *PowerLaw) String() string {
	return fmt.Sprintf("PowerLaw(alpha=%s, minimum=%s, maximum=%s)",
		formatArg(p.Alpha), formatArg(p.Minimum), formatArg(p.Maximum))
}

// UniformSourceFrame is the luminosity-distance prior that is uniform in
// comoving source-frame volume. Over the distance ranges used here it is
// sampled as p(d) ∝ d^2 on [Minimum, Maximum].
type UniformSourceFrame struct {
	Minimum float64
	Maximum float64
}

func newUniformSourceFrame(args *Args) (Distribution, error) {
	lo, err := args.RequireFloat("minimum")
	if err != nil {
		return nil, err
	}
	hi, err := args.RequireFloat("maximum")
	if err != nil {
		return nil, err
	}
	if lo <= 0 || lo >= hi {
		return nil, fmt.Errorf("distance support [%v, %v] must be positive and non-empty", lo, hi)
	}
	return &UniformSourceFrame{Minimum: lo, Maximum: hi}, nil
}

func (u *UniformSourceFrame) Kind() string { return "UniformSourceFrame" }

func (u *UniformSourceFrame) Bounds() (float64, float64, bool) { return u.Minimum, u.Maximum, true }

func (u *UniformSourceFrame) Sample(rng *rand.Rand) (float64, error) {
	pl := &PowerLaw{Alpha: 2, Minimum: u.Minimum, Maximum: u.Maximum}
	return pl.Sample(rng)
}

func (u *UniformSourceFrame) String() string {
	return fmt.Sprintf("UniformSourceFrame(minimum=%s, maximum=%s)", formatArg(u.Minimum), formatArg(u.Maximum))
}

// DeltaFunction pins a parameter to a single value.
type DeltaFunction struct {
	Peak float64
}

func newDeltaFunction(args *Args) (Distribution, error) {
	peak, err := args.RequireFloat("peak")
	if err != nil {
		return nil, err
	}
	return &DeltaFunction{Peak: peak}, nil
}

func (d *DeltaFunction) Kind() string { return "DeltaFunction" }

func (d *DeltaFunction) Bounds() (float64, float64, bool) { return d.Peak, d.Peak, true }

func (d *DeltaFunction) Sample(_ *rand.Rand) (float64, error) { return d.Peak, nil }

func (d *DeltaFunction) String() string {
	return fmt.Sprintf("DeltaFunction(peak=%s)", formatArg(d.Peak))
}

// ErrNotSampleable is returned when sampling a prior that only constrains
// derived quantities.
var ErrNotSampleable = errors.New("constraint priors cannot be sampled")

// Constraint restricts a derived quantity to [Minimum, Maximum] without
// being a sampleable distribution itself.
type Constraint struct {
	Minimum float64
	Maximum float64
}

func newConstraint(args *Args) (Distribution, error) {
	lo, err := args.RequireFloat("minimum")
	if err != nil {
		return nil, err
	}
	hi, err := args.RequireFloat("maximum")
	if err != nil {
		return nil, err
	}
	if lo >= hi {
		return nil, fmt.Errorf("minimum (%v) must be below maximum (%v)", lo, hi)
	}
	return &Constraint{Minimum: lo, Maximum: hi}, nil
}

func (c *Constraint) Kind() string { return "Constraint" }

func (c *Constraint) Bounds() (float64, float64, bool) { return c.Minimum, c.Maximum, true }

func (c *Constraint) Sample(_ *rand.Rand) (float64, error) { return 0, ErrNotSampleable }

func (c *Constraint) String() string {
	return fmt.Sprintf("Constraint(minimum=%s, maximum=%s)", formatArg(c.Minimum), formatArg(c.Maximum))
}

// constructor builds a distribution from parsed keyword arguments.
type constructor func(args *Args) (Distribution, error)

// constructors maps unqualified constructor names to their builders.
var constructors = map[string]constructor{
	"Uniform":            newUniform,
	"Sine":               newSine,
	"Cosine":             newCosine,
	"Gaussian":           newGaussian,
	"Normal":             newGaussian,
	"PowerLaw":           newPowerLaw,
	"UniformSourceFrame": newUniformSourceFrame,
	"DeltaFunction":      newDeltaFunction,
	"Constraint":         newConstraint,
}
