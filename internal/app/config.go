package app

import "errors"

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	JobPath         string // job-submission document (.ini)
	TrainConfigPath string // optional training settings (.yaml or .hcl), file or directory

	OutDir       string // overrides the job document's output directory
	ValidateOnly bool   // check and print the normalized documents, no execution
	SubmitOnly   bool   // force scheduler artifact generation even for local jobs

	LogFormat       string
	LogLevel        string
	HealthcheckPort int
	WorkerCount     int
}

func NewConfig(cfg Config) (*Config, error) {
	if cfg.JobPath == "" {
		return nil, errors.New("JobPath is a required configuration field and cannot be empty")
	}

	if cfg.WorkerCount < 1 {
		cfg.WorkerCount = 1
	}

	return &cfg, nil
}
