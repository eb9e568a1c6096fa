// Package yamlcfg loads and writes training settings in the canonical YAML
// format. Decoding is strict: unknown keys are configuration mistakes, not
// extensions.
package yamlcfg

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/vk/gwpipe/internal/config"
	"github.com/vk/gwpipe/internal/ctxlog"
	"github.com/vk/gwpipe/internal/schema"
)

// Loader is the YAML implementation of the config.Loader interface.
type Loader struct{}

// NewLoader creates a new YAML settings loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load reads a YAML settings file and translates it into the model.
func (l *Loader) Load(ctx context.Context, path string) (*config.TrainSettings, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Loading YAML settings file.", "path", path)

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading settings file: %w", err)
	}

	var doc schema.TrainSettingsYAML
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding settings file '%s': %w", path, err)
	}

	settings, err := translate(&doc)
	if err != nil {
		return nil, fmt.Errorf("translating settings file '%s': %w", path, err)
	}

	logger.Debug("YAML settings loaded.", "stages", len(settings.Training))
	return settings, nil
}
