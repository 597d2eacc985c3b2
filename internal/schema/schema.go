// Package schema holds the HCL decoding structs of job files.
package schema

import "github.com/hashicorp/hcl/v2"

// JobFile is the top-level structure of a job file. Block bodies are kept
// raw and decoded into Settings once the evaluation context is known.
// Anything else at the top level is rejected.
type JobFile struct {
	Defaults []*Defaults `hcl:"defaults,block"`
	Jobs     []*Job      `hcl:"job,block"`
}

// Defaults is a `defaults` block. Its settings apply to every job of the
// same file.
type Defaults struct {
	Body hcl.Body `hcl:",remain"`
}

// Job is a `job "<name>"` block.
type Job struct {
	Name string   `hcl:"name,label"`
	Body hcl.Body `hcl:",remain"`
}

// Settings are the attributes accepted in `defaults` and `job` blocks.
type Settings struct {
	Input        *string  `hcl:"input,optional"`
	PlaceID      *string  `hcl:"place_id,optional"`
	FromMetadata *string  `hcl:"from_metadata,optional"`
	OutputName   *string  `hcl:"output_name,optional"`
	OutputDir    *string  `hcl:"output_dir,optional"`
	Mode         *string  `hcl:"mode,optional"`
	Thickness    *string  `hcl:"thickness,optional"`
	CardHeight   *float64 `hcl:"card_height,optional"`
	Margin       *float64 `hcl:"margin,optional"`
	Relief       *float64 `hcl:"relief,optional"`
	CornerRadius *float64 `hcl:"corner_radius,optional"`
	Size         *float64 `hcl:"size,optional"`
	TextTop      *string  `hcl:"text_top,optional"`
	TextBottom   *string  `hcl:"text_bottom,optional"`
	TextRotation *int     `hcl:"text_rotation,optional"`
	Pattern      *string  `hcl:"pattern,optional"`
	Format       *string  `hcl:"format,optional"`
	Preview      *bool    `hcl:"preview,optional"`
	UploadURL    *string  `hcl:"upload_url,optional"`
}
