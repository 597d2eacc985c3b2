package pipeline

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/vk/qr3d/internal/encoder"
	"github.com/vk/qr3d/internal/export"
	"github.com/vk/qr3d/internal/metadata"
	"github.com/vk/qr3d/internal/model"
)

// Request is the immutable description of one run.
type Request struct {
	// RunID identifies the run in events and history. Run assigns one when empty.
	RunID string
	// Job is the name of the job block the request came from, if any.
	Job string
	// Input is an image path, a URL or a text payload.
	Input     string
	Name      string
	OutputDir string
	Mode      model.ModelMode
	Params    model.LayoutParameters
	Text      model.Text
	Format    export.Format
	Preview   bool
	UploadURL string
}

// Validate checks the request before any work is done.
func (r Request) Validate() error {
	if strings.TrimSpace(r.Input) == "" {
		return errors.New("input is required")
	}
	if r.OutputDir == "" {
		return errors.New("output directory is required")
	}
	if strings.ContainsAny(r.Name, `/\`) {
		return fmt.Errorf("output name %q must not contain path separators", r.Name)
	}
	if !r.Mode.Valid() {
		return fmt.Errorf("%w: %s", model.ErrUnknownMode, r.Mode)
	}
	if err := r.Params.Validate(); err != nil {
		return err
	}
	if err := r.Text.Validate(r.Mode); err != nil {
		return err
	}
	if _, err := export.ParseFormat(string(r.Format)); err != nil {
		return err
	}
	return nil
}

// withDefaults fills the output name and format.
func (r Request) withDefaults() Request {
	if r.Name == "" {
		r.Name = encoder.OutputName(r.Input)
	}
	if r.Format == "" {
		r.Format = export.FormatSTL
	}
	return r
}

// Skipped is the result of a request that never ran. It carries its own run
// ID and the defaulted name so it can be reported and recorded like any other
// run.
func Skipped(req Request, cause error) *Result {
	if req.RunID == "" {
		req.RunID = uuid.NewString()
	}
	return &Result{Request: req.withDefaults(), Err: fmt.Errorf("skipped: %w", cause)}
}

// FromMetadata rebuilds the request that produced a sidecar. Output
// location and format are left for the caller.
func FromMetadata(m *metadata.RunMetadata) Request {
	return Request{
		Input:  m.QRInput,
		Mode:   m.Mode,
		Params: m.LayoutParameters(),
		Text:   m.LabelText(),
	}
}
