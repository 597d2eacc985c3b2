package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/vk/qr3d/internal/ctxlog"
	"github.com/vk/qr3d/internal/executor"
	"github.com/vk/qr3d/internal/export"
	"github.com/vk/qr3d/internal/history"
	"github.com/vk/qr3d/internal/notify"
	"github.com/vk/qr3d/internal/pipeline"
	"github.com/vk/qr3d/internal/status"
)

// ErrJobsFailed is returned by Run when at least one job failed.
var ErrJobsFailed = errors.New("jobs failed")

// Run builds every configured job. Jobs are independent: a failed job is
// logged and the batch goes on, and Run reports the failures at the end.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	if a.config.HistoryList > 0 {
		return a.printHistory(ctx)
	}

	jobs, err := a.jobs(ctx)
	if err != nil {
		return err
	}
	reqs := make([]pipeline.Request, 0, len(jobs))
	var errs []error
	for _, job := range jobs {
		req, err := a.buildRequest(ctx, job)
		if err != nil {
			label := job.Name
			if label == "" {
				label = "command line"
			}
			errs = append(errs, fmt.Errorf("job %s: %w", label, err))
			continue
		}
		reqs = append(reqs, req)
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	a.logger.Debug("Requests built.", "count", len(reqs))

	renderer, err := a.resolveRenderer()
	if err != nil {
		return err
	}

	reporters := notify.Multi{notify.Log{}}
	if a.config.StatusPort > 0 {
		tracker := status.NewTracker()
		reporters = append(reporters, tracker)
		srv := status.NewServer(tracker)
		srv.Start(ctx, a.config.StatusPort)
		defer srv.Shutdown(context.WithoutCancel(ctx))
		srv.SetReady(true)
	}
	var progress *notify.SocketIO
	if a.config.ProgressURL != "" {
		progress, err = notify.DialSocketIO(ctx, a.config.ProgressURL, notify.SocketIOOptions{})
		if err != nil {
			return fmt.Errorf("failed to connect progress channel: %w", err)
		}
		defer progress.Close()
		reporters = append(reporters, progress)
	}
	var store *history.Store
	if a.config.HistoryPath != "" {
		store, err = history.Open(ctx, a.config.HistoryPath)
		if err != nil {
			return fmt.Errorf("failed to open history: %w", err)
		}
		defer store.Close()
	}

	p := pipeline.New(renderer,
		pipeline.WithEncoder(a.encoder),
		pipeline.WithUploader(a.uploader),
		pipeline.WithReporter(reporters),
	)
	exec := executor.New(p,
		executor.WithWorkers(a.config.Workers),
		executor.WithFailFast(a.config.FailFast),
	)

	a.logger.Info("🚀 Building cards...", "jobs", len(reqs), "workers", a.config.Workers)
	results := exec.Execute(ctx, reqs)

	for _, res := range results {
		if progress != nil {
			progress.Finished(ctx, res)
		}
		if store != nil {
			if err := store.Record(ctx, res); err != nil {
				a.logger.Warn("Failed to record run.", "run_id", res.Request.RunID, "error", err)
			}
		}
		if res.OK() {
			a.logger.Info("✅ Card ready", "name", res.Request.Name, "mesh", res.MeshPath, "triangles", res.Triangles, "rectangles", res.Stats.Rectangles)
		} else {
			a.logger.Error("❌ Card failed", "name", res.Request.Name, "error", res.Err)
		}
	}

	failed := executor.Failed(results)
	a.logger.Info("🏁 Batch finished.", "ok", len(results)-failed, "failed", failed)
	if failed > 0 {
		return fmt.Errorf("%d of %d %w", failed, len(results), ErrJobsFailed)
	}
	return nil
}

func (a *App) resolveRenderer() (pipeline.Renderer, error) {
	if a.renderer != nil {
		return a.renderer, nil
	}
	bin, err := export.ResolveBinary(a.config.OpenSCAD)
	if err != nil {
		return nil, err
	}
	a.logger.Debug("Renderer resolved.", "binary", bin)
	return export.New(bin, export.WithTimeout(a.config.RenderTimeout)), nil
}
