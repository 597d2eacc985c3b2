// Package export renders geometry scripts with OpenSCAD and persists the
// artifacts of a run.
//
// Every artifact is first written under a temporary name and moved into
// place only after the render succeeded, so a failed run leaves nothing
// behind and a concurrent reader never sees a half written file. Runs that
// target the same output name are serialized.
package export

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/input-output-hk/catalyst-forge-libs/executor"
	"github.com/vk/qr3d/internal/ctxlog"
	"github.com/vk/qr3d/internal/metadata"
	"github.com/vk/qr3d/internal/model"
	"github.com/vk/qr3d/internal/scad"
	"github.com/vk/qr3d/internal/stl"
)

// Format is a mesh file format OpenSCAD can export.
type Format string

const (
	FormatSTL Format = "stl"
	Format3MF Format = "3mf"
	FormatOFF Format = "off"
	FormatAMF Format = "amf"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatSTL, Format3MF, FormatOFF, FormatAMF:
		return f, nil
	default:
		return "", fmt.Errorf("unknown export format %q: must be 'stl', '3mf', 'off' or 'amf'", s)
	}
}

// DefaultTimeout bounds a mesh render.
const DefaultTimeout = 5 * time.Minute

// PreviewTimeout bounds a preview render.
const PreviewTimeout = 30 * time.Second

// previewArgs are the fixed camera and output settings of preview renders.
var previewArgs = []string{
	"--autocenter",
	"--viewall",
	"--camera=0,0,0,55,0,205,200",
	"--imgsize=800,800",
	"--projection=ortho",
	"--colorscheme=Starnight",
}

// Exporter drives the renderer.
type Exporter struct {
	runner  Runner
	binary  string
	timeout time.Duration
	locks   *pathLocks
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithRunner replaces the process runner.
func WithRunner(r Runner) Option {
	return func(e *Exporter) { e.runner = r }
}

// WithTimeout sets the mesh render timeout.
func WithTimeout(d time.Duration) Option {
	return func(e *Exporter) { e.timeout = d }
}

// New creates an Exporter running the renderer at binary.
func New(binary string, opts ...Option) *Exporter {
	e := &Exporter{
		runner:  processRunner{},
		binary:  binary,
		timeout: DefaultTimeout,
		locks:   newPathLocks(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Output lists the artifacts of a successful export.
type Output struct {
	ScriptPath   string
	MeshPath     string
	MetadataPath string
	// Mesh is set for STL exports.
	Mesh *stl.Mesh
}

// Export renders script to a mesh of the given format and writes the
// script, mesh and metadata sidecar under a.
func (e *Exporter) Export(ctx context.Context, script scad.Script, format Format, meta metadata.RunMetadata, a Artifacts) (*Output, error) {
	logger := ctxlog.FromContext(ctx).With("name", a.Name, "format", string(format))

	metaJSON, err := meta.Marshal()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(a.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	unlock := e.locks.lock(filepath.Join(a.Dir, a.Name))
	defer unlock()

	tmpScript := a.Temp("scad")
	tmpMesh := a.Temp(string(format))
	defer os.Remove(tmpScript)
	defer os.Remove(tmpMesh)

	if err := os.WriteFile(tmpScript, script.Bytes(), 0o644); err != nil {
		return nil, fmt.Errorf("failed to write script: %w", err)
	}

	logger.Info("▶️ Rendering mesh", "timeout", e.timeout)
	res, err := e.render(ctx, e.timeout, "-o", tmpMesh, tmpScript)
	if err != nil {
		return nil, err
	}

	out := &Output{
		ScriptPath:   a.Script(),
		MeshPath:     a.Mesh(format),
		MetadataPath: a.Metadata(),
	}
	if format == FormatSTL {
		mesh, err := stl.ParseFile(tmpMesh)
		if err != nil {
			return nil, &model.RenderFailedError{Reason: fmt.Sprintf("unreadable mesh: %v", err), Stderr: res.Stderr}
		}
		if mesh.Empty() {
			return nil, &model.RenderFailedError{Reason: "empty mesh", Stderr: res.Stderr}
		}
		out.Mesh = mesh
	}

	// Commit. The mesh goes last so its presence implies a complete set.
	if err := os.Rename(tmpScript, out.ScriptPath); err != nil {
		return nil, fmt.Errorf("failed to move script into place: %w", err)
	}
	if err := writeAtomic(out.MetadataPath, metaJSON); err != nil {
		os.Remove(out.ScriptPath)
		return nil, err
	}
	if err := os.Rename(tmpMesh, out.MeshPath); err != nil {
		os.Remove(out.ScriptPath)
		os.Remove(out.MetadataPath)
		return nil, fmt.Errorf("failed to move mesh into place: %w", err)
	}

	attrs := []any{"mesh", out.MeshPath}
	if out.Mesh != nil {
		attrs = append(attrs, "triangles", out.Mesh.Triangles)
	}
	logger.Info("✅ Mesh written", attrs...)
	return out, nil
}

// Preview renders script to an 800x800 orthographic PNG at a.Preview().
func (e *Exporter) Preview(ctx context.Context, script scad.Script, a Artifacts) (string, error) {
	logger := ctxlog.FromContext(ctx).With("name", a.Name)
	if err := os.MkdirAll(a.Dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	unlock := e.locks.lock(a.Preview())
	defer unlock()

	tmpScript := a.Temp("scad")
	tmpImage := a.Temp("png")
	defer os.Remove(tmpScript)
	defer os.Remove(tmpImage)

	if err := os.WriteFile(tmpScript, script.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("failed to write preview script: %w", err)
	}

	logger.Info("▶️ Rendering preview")
	args := append([]string{"-o", tmpImage}, previewArgs...)
	args = append(args, tmpScript)
	if _, err := e.render(ctx, PreviewTimeout, args...); err != nil {
		return "", err
	}
	if err := os.Rename(tmpImage, a.Preview()); err != nil {
		return "", fmt.Errorf("failed to move preview into place: %w", err)
	}
	logger.Info("✅ Preview written", "path", a.Preview())
	return a.Preview(), nil
}

// render runs the renderer and maps its failures onto the error taxonomy.
// The output file is the argument following -o.
func (e *Exporter) render(ctx context.Context, timeout time.Duration, args ...string) (*executor.Result, error) {
	logger := ctxlog.FromContext(ctx)
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	logger.Debug("Starting renderer.", "binary", e.binary, "args", args, "timeout", timeout)
	res, err := e.runner.Run(runCtx, e.binary, args...)
	logger.Debug("Renderer finished.", "duration", time.Since(start), "error", err)

	switch {
	case err != nil && errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil:
		return nil, fmt.Errorf("%w: exceeded %s", model.ErrRenderTimeout, timeout)
	case err != nil && res != nil && res.ExitCode > 0:
		return nil, &model.RenderFailedError{ExitCode: res.ExitCode, Stderr: res.Stderr}
	case err != nil && res != nil:
		return nil, &model.RenderFailedError{Reason: err.Error(), Stderr: res.Stderr}
	case err != nil:
		return nil, &model.RenderFailedError{Reason: err.Error()}
	}

	output := ""
	for i, a := range args {
		if a == "-o" && i+1 < len(args) {
			output = args[i+1]
		}
	}
	info, statErr := os.Stat(output)
	if statErr != nil || info.Size() == 0 {
		return nil, &model.RenderFailedError{Reason: "no output file", Stderr: res.Stderr}
	}
	return res, nil
}
