package prior

import (
	"fmt"
	"math/rand/v2"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// Distribution is a parsed, validated prior over a single parameter.
type Distribution interface {
	// Kind returns the unqualified constructor name, e.g. "Uniform".
	Kind() string

	// Bounds returns the support of the distribution. bounded is false for
	// distributions with infinite support (e.g. Gaussian).
	Bounds() (low, high float64, bounded bool)

	// Sample draws one value from the distribution. Constraint priors are
	// not sampleable and return an error.
	Sample(rng *rand.Rand) (float64, error)

	// String renders the canonical constructor expression.
	String() string
}

// Args is the ordered keyword-argument list of a constructor expression.
type Args struct {
	keys   []string
	values map[string]cty.Value
}

// NewArgs returns an empty argument list.
func NewArgs() *Args {
	return &Args{values: make(map[string]cty.Value)}
}

// Set stores a keyword argument, preserving first-set order.
func (a *Args) Set(key string, val cty.Value) {
	if _, ok := a.values[key]; !ok {
		a.keys = append(a.keys, key)
	}
	a.values[key] = val
}

// Keys returns argument names in the order they appeared.
func (a *Args) Keys() []string {
	return a.keys
}

// Get returns the raw cty value for a keyword, if present.
func (a *Args) Get(key string) (cty.Value, bool) {
	v, ok := a.values[key]
	return v, ok
}

// Float extracts a keyword as float64. The bool reports presence; a present
// but non-numeric value is an error.
func (a *Args) Float(key string) (float64, bool, error) {
	v, ok := a.values[key]
	if !ok {
		return 0, false, nil
	}
	conv, err := convert.Convert(v, cty.Number)
	if err != nil {
		return 0, true, fmt.Errorf("argument '%s' is not numeric: %w", key, err)
	}
	f, _ := conv.AsBigFloat().Float64()
	return f, true, nil
}

// RequireFloat is Float for mandatory arguments.
func (a *Args) RequireFloat(key string) (float64, error) {
	f, ok, err := a.Float(key)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("missing required argument '%s'", key)
	}
	return f, nil
}

// Dict is an ordered mapping from parameter name to its prior.
type Dict struct {
	params []string
	dists  map[string]Distribution
}

// NewDict returns an empty prior dictionary.
func NewDict() *Dict {
	return &Dict{dists: make(map[string]Distribution)}
}

// Set adds or replaces the prior for a parameter, preserving insertion order.
func (d *Dict) Set(param string, dist Distribution) {
	if _, ok := d.dists[param]; !ok {
		d.params = append(d.params, param)
	}
	d.dists[param] = dist
}

// Get returns the prior for a parameter.
func (d *Dict) Get(param string) (Distribution, bool) {
	dist, ok := d.dists[param]
	return dist, ok
}

// Parameters returns parameter names in insertion order.
func (d *Dict) Parameters() []string {
	out := make([]string, len(d.params))
	copy(out, d.params)
	return out
}

// Len returns the number of parameters in the dictionary.
func (d *Dict) Len() int {
	return len(d.params)
}

// Sample draws one value per sampleable parameter. Constraint priors are
// skipped: they restrict other parameters rather than generating values.
func (d *Dict) Sample(rng *rand.Rand) (map[string]float64, error) {
	out := make(map[string]float64, len(d.params))
	for _, p := range d.params {
		dist := d.dists[p]
		if dist.Kind() == "Constraint" {
			continue
		}
		v, err := dist.Sample(rng)
		if err != nil {
			return nil, fmt.Errorf("sampling parameter '%s': %w", p, err)
		}
		out[p] = v
	}
	return out, nil
}
