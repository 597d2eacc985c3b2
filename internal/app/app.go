package app

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/vk/qr3d/internal/config"
	"github.com/vk/qr3d/internal/encoder"
	"github.com/vk/qr3d/internal/pipeline"
	"github.com/vk/qr3d/internal/upload"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	config   *Config
	loader   config.Loader
	renderer pipeline.Renderer
	encoder  encoder.Encoder
	uploader pipeline.Uploader
}

// Option replaces one of the App's collaborators, mainly for tests.
type Option func(*App)

// WithRenderer skips renderer binary resolution and uses r.
func WithRenderer(r pipeline.Renderer) Option { return func(a *App) { a.renderer = r } }

// WithEncoder replaces the QR encoder.
func WithEncoder(e encoder.Encoder) Option { return func(a *App) { a.encoder = e } }

// WithUploader replaces the mesh uploader.
func WithUploader(u pipeline.Uploader) Option { return func(a *App) { a.uploader = u } }

// NewApp is the constructor for the main application. It returns an App
// with its own isolated logger. Nothing is loaded or resolved until Run.
func NewApp(outW io.Writer, cfg *Config, loader config.Loader, opts ...Option) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	logger.Debug("Logger configured successfully.")

	a := &App{
		outW:     outW,
		logger:   logger,
		config:   cfg,
		loader:   loader,
		encoder:  encoder.NewQR(),
		uploader: upload.New(&http.Client{}),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}
