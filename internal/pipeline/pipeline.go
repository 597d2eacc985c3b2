// Package pipeline runs one card end to end: resolve and encode the input,
// quantize and decompose the code, compute the layout, emit the script,
// render it and optionally upload the mesh.
//
// Layout does not depend on the raster, so it runs concurrently with
// quantization. Every stage reports started/done/failed events and Run
// always returns a Result; failures, panics included, are carried in
// Result.Err wrapped in a *model.StageError.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/vk/qr3d/internal/ctxlog"
	"github.com/vk/qr3d/internal/decompose"
	"github.com/vk/qr3d/internal/encoder"
	"github.com/vk/qr3d/internal/export"
	"github.com/vk/qr3d/internal/grid"
	"github.com/vk/qr3d/internal/layout"
	"github.com/vk/qr3d/internal/metadata"
	"github.com/vk/qr3d/internal/model"
	"github.com/vk/qr3d/internal/quantize"
	"github.com/vk/qr3d/internal/scad"
)

// Renderer turns scripts into files. *export.Exporter implements it.
type Renderer interface {
	Export(ctx context.Context, script scad.Script, format export.Format, meta metadata.RunMetadata, a export.Artifacts) (*export.Output, error)
	Preview(ctx context.Context, script scad.Script, a export.Artifacts) (string, error)
}

// Uploader publishes a finished mesh.
type Uploader interface {
	Upload(ctx context.Context, path, url string) error
}

// Result is the outcome of a run.
type Result struct {
	Request      Request
	ScriptPath   string
	MeshPath     string
	MetadataPath string
	PreviewPath  string
	CodePath     string
	Triangles    int
	Stats        decompose.Stats
	Metadata     *metadata.RunMetadata
	Duration     time.Duration
	Err          error
}

// OK reports whether the run succeeded.
func (r *Result) OK() bool { return r.Err == nil }

// Pipeline holds the collaborators shared by runs. It keeps no per-run
// state and is safe for concurrent use.
type Pipeline struct {
	renderer  Renderer
	encoder   encoder.Encoder
	uploader  Uploader
	reporter  Reporter
	quantOpts quantize.Options
	segments  int
}

// Option configures a Pipeline.
type Option func(*Pipeline)

func WithEncoder(e encoder.Encoder) Option   { return func(p *Pipeline) { p.encoder = e } }
func WithUploader(u Uploader) Option         { return func(p *Pipeline) { p.uploader = u } }
func WithReporter(r Reporter) Option         { return func(p *Pipeline) { p.reporter = r } }
func WithSegments(n int) Option              { return func(p *Pipeline) { p.segments = n } }
func WithQuantize(o quantize.Options) Option { return func(p *Pipeline) { p.quantOpts = o } }

// New builds a Pipeline around a renderer.
func New(renderer Renderer, opts ...Option) *Pipeline {
	p := &Pipeline{
		renderer:  renderer,
		encoder:   encoder.NewQR(),
		reporter:  nopReporter{},
		quantOpts: quantize.DefaultOptions(),
		segments:  48,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// run carries the state of a single Run call.
type run struct {
	p     *Pipeline
	req   Request
	res   *Result
	mu    sync.Mutex
	stage model.Stage
	// tmpCode is the encoded raster until it is committed.
	tmpCode string
}

func (r *run) enter(ctx context.Context, stage model.Stage) {
	r.mu.Lock()
	r.stage = stage
	r.mu.Unlock()
	r.report(ctx, stage, StatusStarted, "")
}

func (r *run) report(ctx context.Context, stage model.Stage, status Status, msg string) {
	r.p.reporter.Report(ctx, Event{RunID: r.req.RunID, Job: r.req.Job, Name: r.req.Name, Stage: stage, Status: status, Message: msg})
}

// finish closes a stage and wraps its error.
func (r *run) finish(ctx context.Context, stage model.Stage, err error) error {
	if err != nil {
		err = model.AtStage(stage, err)
		r.report(ctx, stage, StatusFailed, err.Error())
		return err
	}
	r.report(ctx, stage, StatusDone, "")
	return nil
}

// Run executes req. It never panics; check Result.Err.
func (p *Pipeline) Run(ctx context.Context, req Request) (res *Result) {
	start := time.Now()
	if req.RunID == "" {
		req.RunID = uuid.NewString()
	}
	req = req.withDefaults()
	res = &Result{Request: req}
	r := &run{p: p, req: req, res: res, stage: model.StageLayout}

	logger := ctxlog.FromContext(ctx).With("run_id", req.RunID, "name", req.Name)
	ctx = ctxlog.WithLogger(ctx, logger)

	defer func() {
		if rec := recover(); rec != nil {
			r.cleanupCode()
			res.Err = r.finish(ctx, r.current(), fmt.Errorf("panic: %v", rec))
		}
		res.Duration = time.Since(start)
		if res.Err != nil {
			logger.Error("❌ Run failed", "stage", model.StageOf(res.Err), "error", res.Err)
			return
		}
		logger.Info("🏁 Run finished", "mesh", res.MeshPath, "duration", res.Duration)
	}()

	logger.Info("▶️ Run started", "mode", req.Mode.String(), "input", req.Input)
	if err := req.Validate(); err != nil {
		r.enter(ctx, model.StageLayout)
		res.Err = r.finish(ctx, model.StageLayout, err)
		return res
	}
	res.Err = r.execute(ctx)
	return res
}

func (r *run) execute(ctx context.Context) error {
	req, res := r.req, r.res
	logger := ctxlog.FromContext(ctx)
	artifacts := export.Artifacts{Dir: req.OutputDir, Name: req.Name}

	imagePath, err := r.resolveImage(ctx, artifacts)
	if err != nil {
		return err
	}

	var (
		g     *grid.ModuleGrid
		rects []grid.Rectangle
		dims  model.Dimensions
	)
	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(r.guard(egCtx, func() error {
		r.enter(egCtx, model.StageQuantize)
		var err error
		g, _, err = quantize.QuantizeFile(egCtx, imagePath, r.p.quantOpts)
		if err := r.finish(egCtx, model.StageQuantize, err); err != nil {
			return err
		}

		r.enter(egCtx, model.StageDecompose)
		rects = decompose.Decompose(g)
		res.Stats = decompose.Summarize(rects)
		logger.Debug("Grid decomposed.", "modules", res.Stats.Modules, "rectangles", res.Stats.Rectangles)
		return r.finish(egCtx, model.StageDecompose, nil)
	}))
	eg.Go(r.guard(egCtx, func() error {
		r.enter(egCtx, model.StageLayout)
		var err error
		dims, err = layout.Layout(req.Mode, req.Params)
		return r.finish(egCtx, model.StageLayout, err)
	}))
	if err := eg.Wait(); err != nil {
		r.cleanupCode()
		return err
	}

	r.enter(ctx, model.StageEmit)
	pattern := scad.Pattern{Width: g.Width(), Height: g.Height(), Rects: rects}
	recessed := scad.WithRecessed(req.Params.Pattern == model.PatternRecessed)
	script, err := scad.Emit(pattern, dims, req.Mode, req.Text, scad.WithSegments(r.p.segments), recessed)
	if err := r.finish(ctx, model.StageEmit, err); err != nil {
		r.cleanupCode()
		return err
	}

	meta := metadata.New(req.Input, req.Mode, req.Params, dims, req.Text)
	meta.Grid = &metadata.GridInfo{
		Width:        g.Width(),
		Height:       g.Height(),
		ModuleSizePx: g.ModuleSizePx(),
		Rectangles:   res.Stats.Rectangles,
		Modules:      res.Stats.Modules,
	}
	res.Metadata = &meta

	r.enter(ctx, model.StageExport)
	if req.Preview {
		preview, err := scad.Emit(pattern, dims, req.Mode, req.Text,
			scad.WithSegments(r.p.segments), recessed, scad.WithColors("white", "black"))
		if err == nil {
			res.PreviewPath, err = r.p.renderer.Preview(ctx, preview, artifacts)
		}
		if err != nil {
			r.cleanupCode()
			return r.finish(ctx, model.StageExport, err)
		}
	}
	out, err := r.p.renderer.Export(ctx, script, req.Format, meta, artifacts)
	if err != nil {
		if res.PreviewPath != "" {
			os.Remove(res.PreviewPath)
			res.PreviewPath = ""
		}
		r.cleanupCode()
		return r.finish(ctx, model.StageExport, err)
	}
	res.ScriptPath, res.MeshPath, res.MetadataPath = out.ScriptPath, out.MeshPath, out.MetadataPath
	if out.Mesh != nil {
		res.Triangles = out.Mesh.Triangles
	}
	if err := r.commitCode(artifacts); err != nil {
		r.cleanupCode()
		return r.finish(ctx, model.StageExport, err)
	}
	if err := r.finish(ctx, model.StageExport, nil); err != nil {
		return err
	}

	if req.UploadURL != "" {
		r.enter(ctx, model.StageUpload)
		if r.p.uploader == nil {
			return r.finish(ctx, model.StageUpload, errors.New("no uploader configured"))
		}
		err := r.p.uploader.Upload(ctx, res.MeshPath, req.UploadURL)
		return r.finish(ctx, model.StageUpload, err)
	}
	return nil
}

// resolveImage returns the raster to quantize. Text and URL inputs are
// encoded into a temporary raster private to this run; commitCode moves it
// into place once the export succeeded.
func (r *run) resolveImage(ctx context.Context, a export.Artifacts) (string, error) {
	switch kind := encoder.Classify(r.req.Input); kind {
	case encoder.KindImage:
		return r.req.Input, nil
	case encoder.KindMetadata:
		r.enter(ctx, model.StageEncode)
		return "", r.finish(ctx, model.StageEncode,
			fmt.Errorf("%s is a metadata sidecar; load it with FromMetadata", r.req.Input))
	default:
		r.enter(ctx, model.StageEncode)
		if err := os.MkdirAll(a.Dir, 0o755); err != nil {
			return "", r.finish(ctx, model.StageEncode, fmt.Errorf("failed to create output directory: %w", err))
		}
		r.tmpCode = a.Temp("png")
		err := r.p.encoder.Encode(ctx, r.req.Input, r.tmpCode)
		if err := r.finish(ctx, model.StageEncode, err); err != nil {
			r.cleanupCode()
			return "", err
		}
		return r.tmpCode, nil
	}
}

// guard turns a panic inside a worker goroutine into an error for the stage
// that was running.
func (r *run) guard(ctx context.Context, fn func() error) func() error {
	return func() (err error) {
		defer func() {
			if rec := recover(); rec != nil {
				err = r.finish(ctx, r.current(), fmt.Errorf("panic: %v", rec))
			}
		}()
		return fn()
	}
}

func (r *run) current() model.Stage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stage
}

// commitCode renames the encoded raster to its artifact name.
func (r *run) commitCode(a export.Artifacts) error {
	if r.tmpCode == "" {
		return nil
	}
	if err := os.Rename(r.tmpCode, a.CodeImage()); err != nil {
		return fmt.Errorf("failed to move code image into place: %w", err)
	}
	r.tmpCode = ""
	r.res.CodePath = a.CodeImage()
	return nil
}

// cleanupCode removes the temporary raster of a failed run. Committed
// rasters are never touched, so a failure cannot remove the artifact of
// another run with the same name.
func (r *run) cleanupCode() {
	if r.tmpCode != "" {
		os.Remove(r.tmpCode)
		r.tmpCode = ""
	}
}
