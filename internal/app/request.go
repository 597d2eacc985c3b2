package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/vk/qr3d/internal/config"
	"github.com/vk/qr3d/internal/ctxlog"
	"github.com/vk/qr3d/internal/encoder"
	"github.com/vk/qr3d/internal/export"
	"github.com/vk/qr3d/internal/metadata"
	"github.com/vk/qr3d/internal/model"
	"github.com/vk/qr3d/internal/pipeline"
)

// jobs returns the jobs to build: every job under JobsPath with the
// command-line settings applied on top, or one ad-hoc job.
func (a *App) jobs(ctx context.Context) ([]*config.Job, error) {
	if a.config.JobsPath == "" {
		return []*config.Job{{Settings: a.config.Job}}, nil
	}
	m, err := a.loader.Load(ctx, a.config.JobsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load jobs: %w", err)
	}
	if len(m.Jobs) == 0 {
		return nil, fmt.Errorf("no jobs declared in %s", a.config.JobsPath)
	}
	for _, j := range m.Jobs {
		j.Settings = j.Settings.Merge(a.config.Job)
	}
	return m.Jobs, nil
}

// buildRequest resolves a job's settings into a validated request. Unset
// settings come from the metadata sidecar when one is named, otherwise from
// the defaults.
func (a *App) buildRequest(ctx context.Context, job *config.Job) (pipeline.Request, error) {
	logger := ctxlog.FromContext(ctx)
	s := job.Settings

	req := pipeline.Request{Params: model.DefaultParameters()}
	fromMeta := s.FromMetadata != nil
	if fromMeta {
		meta, warnings, err := metadata.LoadFile(*s.FromMetadata)
		if err != nil {
			return req, err
		}
		for _, w := range warnings {
			logger.Warn("⚠️ Metadata sidecar", "path", *s.FromMetadata, "warning", w)
		}
		req = pipeline.FromMetadata(meta)
	}
	req.Job = job.Name

	switch {
	case s.Input != nil && s.PlaceID != nil:
		return req, errors.New("set either input or place_id, not both")
	case s.PlaceID != nil:
		u, err := encoder.ReviewURL(*s.PlaceID)
		if err != nil {
			return req, err
		}
		req.Input = u
	case s.Input != nil:
		req.Input = *s.Input
	}

	switch {
	case s.Mode != nil:
		m, err := model.ParseMode(*s.Mode)
		if err != nil {
			return req, err
		}
		req.Mode = m
	case !fromMeta:
		req.Mode = model.ModeSquare
	}

	p := req.Params
	if s.Thickness != nil {
		t, err := model.ParseThickness(*s.Thickness)
		if err != nil {
			return req, err
		}
		p = p.WithThickness(t)
	}
	if s.CardHeight != nil {
		p.CardHeight = *s.CardHeight
	}
	if s.Margin != nil {
		p.QRMargin = *s.Margin
	}
	if s.Relief != nil {
		p.QRRelief = *s.Relief
		p.TextHeight = *s.Relief
	}
	if s.CornerRadius != nil {
		p.CornerRadius = *s.CornerRadius
	}
	if s.Size != nil {
		p.SizeScale = *s.Size
	}
	switch {
	case s.TextRotation != nil:
		p.TextRotation = model.Rotation(*s.TextRotation)
	case !fromMeta || s.Mode != nil:
		p.TextRotation = req.Mode.DefaultRotation()
	}
	if s.Pattern != nil {
		ps, err := model.ParsePattern(*s.Pattern)
		if err != nil {
			return req, err
		}
		p.Pattern = ps
	}
	req.Params = p

	if s.TextTop != nil {
		req.Text.Top = *s.TextTop
	}
	if s.TextBottom != nil {
		req.Text.Bottom = *s.TextBottom
	}

	switch {
	case s.OutputName != nil:
		req.Name = *s.OutputName
	case job.Name != "":
		req.Name = job.Name
	}
	req.OutputDir = a.config.OutputDir
	if s.OutputDir != nil {
		req.OutputDir = *s.OutputDir
	}
	req.Format = export.FormatSTL
	if s.Format != nil {
		f, err := export.ParseFormat(*s.Format)
		if err != nil {
			return req, err
		}
		req.Format = f
	}
	if s.Preview != nil {
		req.Preview = *s.Preview
	}
	if s.UploadURL != nil {
		req.UploadURL = *s.UploadURL
	}

	return req, req.Validate()
}
