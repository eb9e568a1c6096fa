// Package config defines the format-agnostic model of the training
// configuration, along with the Loader interface for reading it from a
// concrete on-disk format.
//
// The `config.TrainSettings` model is the single source of truth for the
// rest of the application. Concrete loaders, such as for YAML or HCL, live
// in separate packages and translate into this model.
package config
