package prior

import "math"

// DefaultFor returns the standard prior for a known extrinsic parameter.
// These match the conventional choices for ground-based detector networks:
// isotropic sky location and orientation angles, and a distance prior
// uniform in source-frame comoving volume.
func DefaultFor(param string) (Distribution, bool) {
	switch param {
	case "ra":
		return &Uniform{Minimum: 0, Maximum: 2 * math.Pi}, true
	case "dec":
		return &Cosine{Minimum: -math.Pi / 2, Maximum: math.Pi / 2}, true
	case "psi":
		return &Uniform{Minimum: 0, Maximum: math.Pi}, true
	case "phase":
		return &Uniform{Minimum: 0, Maximum: 2 * math.Pi}, true
	case "theta_jn":
		return &Sine{Minimum: 0, Maximum: math.Pi}, true
	case "geocent_time":
		return &Uniform{Minimum: -0.1, Maximum: 0.1}, true
	case "luminosity_distance":
		return &UniformSourceFrame{Minimum: 100, Maximum: 6000}, true
	}
	return nil, false
}
