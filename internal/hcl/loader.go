package hcl

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/qr3d/internal/config"
	"github.com/vk/qr3d/internal/ctxlog"
	"github.com/vk/qr3d/internal/fsutil"
	"github.com/vk/qr3d/internal/schema"
)

// Loader is the HCL implementation of config.Loader.
type Loader struct {
	environ func() []string
}

// NewLoader creates a loader reading env.* from the process environment.
func NewLoader() *Loader {
	return &Loader{environ: os.Environ}
}

// Load parses every .hcl file under paths. Jobs keep file order, and files
// are read in the order found. Job names must be unique across all files.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path_count", len(paths))

	files, err := l.findAllHCLFiles(paths)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no .hcl job files found in %v", paths)
	}
	logger.Debug("Discovered HCL files.", "count", len(files))

	evalCtx := newEvalContext(l.environ())
	parser := hclparse.NewParser()
	model := &config.Model{}
	seen := make(map[string]string)

	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}

		var root schema.JobFile
		if diags := gohcl.DecodeBody(hclFile.Body, evalCtx, &root); diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
		}
		if len(root.Defaults) > 1 {
			return nil, fmt.Errorf("%s: at most one defaults block is allowed, found %d", file, len(root.Defaults))
		}

		var defaults config.Settings
		if len(root.Defaults) == 1 {
			if defaults, err = decodeSettings(root.Defaults[0].Body, evalCtx); err != nil {
				return nil, fmt.Errorf("%s: defaults: %w", file, err)
			}
		}

		for _, job := range root.Jobs {
			if prev, dup := seen[job.Name]; dup {
				return nil, fmt.Errorf("%s: job %q is already declared in %s", file, job.Name, prev)
			}
			seen[job.Name] = file

			settings, err := decodeSettings(job.Body, evalCtx)
			if err != nil {
				return nil, fmt.Errorf("%s: job %q: %w", file, job.Name, err)
			}
			model.Jobs = append(model.Jobs, &config.Job{
				Name:     job.Name,
				File:     file,
				Settings: defaults.Merge(settings),
			})
		}
	}

	logger.Debug("HCL loading complete.", "files", len(files), "jobs", len(model.Jobs))
	return model, nil
}

func decodeSettings(body hcl.Body, evalCtx *hcl.EvalContext) (config.Settings, error) {
	var s schema.Settings
	if diags := gohcl.DecodeBody(body, evalCtx, &s); diags.HasErrors() {
		return config.Settings{}, diags
	}
	return translateSettings(&s), nil
}

// findAllHCLFiles returns every .hcl file under paths, without duplicates.
// Missing paths are an error: a job file the user named must exist.
func (l *Loader) findAllHCLFiles(paths []string) ([]string, error) {
	var allFiles []string
	seen := make(map[string]struct{})
	add := func(p string) {
		if _, wasSeen := seen[p]; !wasSeen {
			allFiles = append(allFiles, p)
			seen[p] = struct{}{}
		}
	}

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("error accessing path %s: %w", path, err)
		}
		if !info.IsDir() {
			if filepath.Ext(path) != ".hcl" {
				return nil, fmt.Errorf("%s is not an .hcl file", path)
			}
			add(path)
			continue
		}
		found, err := fsutil.FindFilesByExtension(path, ".hcl")
		if err != nil {
			return nil, err
		}
		for _, f := range found {
			add(f)
		}
	}
	return allFiles, nil
}
