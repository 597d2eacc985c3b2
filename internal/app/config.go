package app

import (
	"errors"
	"time"

	"github.com/vk/qr3d/internal/config"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	// JobsPath is an .hcl file or directory. Empty means a single ad-hoc job
	// described by Job.
	JobsPath string
	// Job holds settings given on the command line. With JobsPath set they
	// override every loaded job.
	Job       config.Settings
	OutputDir string

	OpenSCAD      string
	RenderTimeout time.Duration
	Workers       int
	FailFast      bool

	StatusPort  int
	ProgressURL string
	HistoryPath string // empty disables recording
	HistoryList int    // > 0 prints history instead of building

	LogFormat string
	LogLevel  string
}

func NewConfig(cfg Config) (*Config, error) {
	if cfg.HistoryList > 0 {
		if cfg.HistoryPath == "" {
			return nil, errors.New("listing history requires a history database path")
		}
		return &cfg, nil
	}
	if cfg.JobsPath == "" && cfg.Job.Input == nil && cfg.Job.PlaceID == nil && cfg.Job.FromMetadata == nil {
		return nil, errors.New("an input, a place id, a metadata file or a jobs path is required")
	}
	if cfg.OutputDir == "" {
		return nil, errors.New("OutputDir is a required configuration field and cannot be empty")
	}
	if cfg.Workers < 1 {
		return nil, errors.New("workers must be at least 1")
	}
	if cfg.RenderTimeout <= 0 {
		return nil, errors.New("render timeout must be positive")
	}
	if cfg.StatusPort < 0 || cfg.StatusPort > 65535 {
		return nil, errors.New("status port must be between 0 and 65535")
	}
	return &cfg, nil
}
