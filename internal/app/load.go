package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/vk/gwpipe/internal/config"
	"github.com/vk/gwpipe/internal/fsutil"
	"github.com/vk/gwpipe/internal/hclcfg"
	"github.com/vk/gwpipe/internal/yamlcfg"
)

// trainConfigExtensions are the training-settings formats, in the order
// a directory is searched.
var trainConfigExtensions = []string{".yaml", ".yml", ".hcl"}

// loadTrainSettings resolves path to a single training-settings file and
// loads it with the loader matching its extension. A directory path is
// searched for exactly one candidate file.
func loadTrainSettings(ctx context.Context, path string) (*config.TrainSettings, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("resolving training settings path: %w", err)
	}

	if info.IsDir() {
		files, err := fsutil.FindFilesByExtension(path, trainConfigExtensions...)
		if err != nil {
			return nil, fmt.Errorf("searching for training settings in %s: %w", path, err)
		}
		switch len(files) {
		case 0:
			return nil, fmt.Errorf("no training settings file (%s) found in %s",
				strings.Join(trainConfigExtensions, ", "), path)
		case 1:
			path = files[0]
		default:
			return nil, fmt.Errorf("found %d training settings files in %s, expected exactly one", len(files), path)
		}
	}

	loader, err := loaderFor(path)
	if err != nil {
		return nil, err
	}
	return loader.Load(ctx, path)
}

// loaderFor selects the concrete loader by file extension.
func loaderFor(path string) (config.Loader, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yamlcfg.NewLoader(), nil
	case ".hcl":
		return hclcfg.NewLoader(), nil
	default:
		return nil, fmt.Errorf("unsupported training settings format '%s'", filepath.Ext(path))
	}
}
