package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/vk/qr3d/internal/app"
	"github.com/vk/qr3d/internal/config"
	"github.com/vk/qr3d/internal/export"
	"github.com/vk/qr3d/internal/history"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

func usageError(format string, args ...any) *ExitError {
	return &ExitError{Code: 2, Message: fmt.Sprintf(format, args...)}
}

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("qr3d", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
qr3d - Turn QR codes into 3D-printable cards and pendants.

Usage:
  qr3d [options] INPUT
  qr3d [options] JOBS_PATH

Arguments:
  INPUT
    An image of a code, a URL or a text payload to encode.
  JOBS_PATH
    Path to a single .hcl job file or a directory containing .hcl files.
    Job settings given as flags override the same setting in every job.

Options:
`)
		flagSet.PrintDefaults()
	}

	jobsFlag := flagSet.String("jobs", "", "Path to a job file or directory.")
	jFlag := flagSet.String("j", "", "Path to a job file or directory (shorthand).")

	// Job settings. Only flags the user sets end up in the job.
	input := flagSet.String("input", "", "Image path, URL or text to encode.")
	placeID := flagSet.String("place-id", "", "Google place id; encodes its review link.")
	fromMeta := flagSet.String("from-metadata", "", "Regenerate from a .json metadata sidecar.")
	name := flagSet.String("name", "", "Output base name. Derived from the input by default.")
	outputDir := flagSet.String("output-dir", filepath.Join(xdg.Home, "qr-codes"), "Directory for generated files.")
	mode := flagSet.String("mode", "square", "Model mode: square, pendant, rectangle-text, pendant-text, rectangle-text-2x.")
	thickness := flagSet.String("thickness", "", "Thickness preset: thin, medium or thick.")
	cardHeight := flagSet.Float64("height", 1.25, "Card height in mm.")
	margin := flagSet.Float64("margin", 2.0, "Margin around the code in mm.")
	relief := flagSet.Float64("relief", 1.0, "Code relief in mm.")
	cornerRadius := flagSet.Float64("corner-radius", 2.0, "Corner radius in mm.")
	size := flagSet.Float64("size", 1.0, "Planar scale factor, e.g. 0.5, 1 or 2.")
	textTop := flagSet.String("text-top", "", "Top label (rectangle-text-2x).")
	textBottom := flagSet.String("text-bottom", "", "Bottom label.")
	textRotation := flagSet.Int("text-rotation", 0, "Text rotation in degrees: 0 or 180.")
	pattern := flagSet.String("pattern", "raised", "Code pattern: raised or recessed.")
	format := flagSet.String("format", "stl", "Mesh format: stl, 3mf, off or amf.")
	preview := flagSet.Bool("preview", false, "Also render a PNG preview.")
	uploadURL := flagSet.String("upload-url", "", "Pre-signed URL to PUT the mesh to.")

	// Process settings.
	openscad := flagSet.String("openscad", "", "Path to the OpenSCAD binary. Defaults to $"+export.BinaryEnv+", then PATH.")
	renderTimeout := flagSet.Duration("render-timeout", export.DefaultTimeout, "Maximum time for one mesh render.")
	workers := flagSet.Int("workers", 2, "Number of jobs rendered concurrently.")
	failFast := flagSet.Bool("fail-fast", false, "Skip remaining jobs after the first failure.")
	statusPort := flagSet.Int("status-port", 0, "Port for the HTTP status server. 0 is disabled.")
	progressURL := flagSet.String("progress-url", "", "Socket.IO endpoint receiving progress events.")
	record := flagSet.Bool("record", false, "Record runs in the default history database.")
	historyPath := flagSet.String("history", "", "Record runs in this history database.")
	historyList := flagSet.Int("history-list", 0, "Print the last N recorded runs and exit.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	set := make(map[string]bool)
	flagSet.Visit(func(f *flag.Flag) { set[f.Name] = true })

	var settings config.Settings
	strs := map[string]struct {
		dst **string
		v   *string
	}{
		"input":         {&settings.Input, input},
		"place-id":      {&settings.PlaceID, placeID},
		"from-metadata": {&settings.FromMetadata, fromMeta},
		"name":          {&settings.OutputName, name},
		"output-dir":    {&settings.OutputDir, outputDir},
		"mode":          {&settings.Mode, mode},
		"thickness":     {&settings.Thickness, thickness},
		"text-top":      {&settings.TextTop, textTop},
		"text-bottom":   {&settings.TextBottom, textBottom},
		"pattern":       {&settings.Pattern, pattern},
		"format":        {&settings.Format, format},
		"upload-url":    {&settings.UploadURL, uploadURL},
	}
	for flagName, s := range strs {
		if set[flagName] {
			*s.dst = s.v
		}
	}
	floats := map[string]struct {
		dst **float64
		v   *float64
	}{
		"height":        {&settings.CardHeight, cardHeight},
		"margin":        {&settings.Margin, margin},
		"relief":        {&settings.Relief, relief},
		"corner-radius": {&settings.CornerRadius, cornerRadius},
		"size":          {&settings.Size, size},
	}
	for flagName, f := range floats {
		if set[flagName] {
			*f.dst = f.v
		}
	}
	if set["text-rotation"] {
		settings.TextRotation = textRotation
	}
	if set["preview"] {
		settings.Preview = preview
	}

	jobsPath := *jobsFlag
	if jobsPath == "" {
		jobsPath = *jFlag
	}
	switch {
	case flagSet.NArg() > 1:
		return nil, false, usageError("expected at most one positional argument, got %d", flagSet.NArg())
	case flagSet.NArg() == 1:
		arg := flagSet.Arg(0)
		if jobsPath == "" && isJobsPath(arg) {
			jobsPath = arg
		} else if settings.Input == nil {
			settings.Input = &arg
		} else {
			return nil, false, usageError("input given both as -input and as argument %q", arg)
		}
	}
	slog.Debug("Job source determined.", "jobs_path", jobsPath)

	if jobsPath == "" && settings.Input == nil && settings.PlaceID == nil && settings.FromMetadata == nil && *historyList <= 0 {
		slog.Debug("Nothing to build, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, usageError("invalid log-format: must be 'text' or 'json'")
	}
	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, usageError("invalid log-level: must be 'debug', 'info', 'warn', or 'error'")
	}

	dbPath := *historyPath
	if dbPath == "" && (*record || *historyList > 0) {
		p, err := history.DefaultPath()
		if err != nil {
			return nil, false, usageError("cannot resolve history database path: %v", err)
		}
		dbPath = p
	}
	slog.Debug("CLI parameter validation complete.")

	cfg, err := app.NewConfig(app.Config{
		JobsPath:      jobsPath,
		Job:           settings,
		OutputDir:     *outputDir,
		OpenSCAD:      *openscad,
		RenderTimeout: *renderTimeout,
		Workers:       *workers,
		FailFast:      *failFast,
		StatusPort:    *statusPort,
		ProgressURL:   *progressURL,
		HistoryPath:   dbPath,
		HistoryList:   *historyList,
		LogFormat:     logFormat,
		LogLevel:      logLevel,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", cfg)
	return cfg, false, nil
}

// isJobsPath reports whether a positional argument names job files rather
// than an input: a directory, or a path ending in .hcl.
func isJobsPath(arg string) bool {
	if strings.EqualFold(filepath.Ext(arg), ".hcl") {
		return true
	}
	info, err := os.Stat(arg)
	return err == nil && info.IsDir()
}
