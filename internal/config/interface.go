package config

import "context"

// Loader is the interface for a format-specific training-settings loader.
type Loader interface {
	// Load reads a settings file from the given path and translates it
	// into the format-agnostic model. Loaders perform only syntactic
	// decoding; cross-field validation belongs to TrainSettings.Validate.
	Load(ctx context.Context, path string) (*TrainSettings, error)
}
