package config

import "context"

// Loader is the interface for a format-specific job loader.
type Loader interface {
	// Load reads every job file under paths and returns the merged model.
	Load(ctx context.Context, paths ...string) (*Model, error)
}
