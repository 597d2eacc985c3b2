// Package notify delivers pipeline progress events to logs and to a
// Socket.IO endpoint.
package notify

import (
	"context"
	"log/slog"
	"sync"

	"github.com/vk/qr3d/internal/ctxlog"
	"github.com/vk/qr3d/internal/model"
	"github.com/vk/qr3d/internal/pipeline"
)

// Log writes every event to the context logger. Started and done events
// are logged at debug level, failures at warn.
type Log struct{}

func (Log) Report(ctx context.Context, e pipeline.Event) {
	logger := ctxlog.FromContext(ctx)
	level := slog.LevelDebug
	if e.Status == pipeline.StatusFailed {
		level = slog.LevelWarn
	}
	args := []any{"run_id", e.RunID, "name", e.Name, "stage", e.Stage, "status", e.Status}
	if e.Job != "" {
		args = append(args, "job", e.Job)
	}
	if e.Message != "" {
		args = append(args, "message", e.Message)
	}
	logger.Log(ctx, level, "Stage event.", args...)
}

// Multi fans events out to several reporters in order.
type Multi []pipeline.Reporter

func (m Multi) Report(ctx context.Context, e pipeline.Event) {
	for _, r := range m {
		if r != nil {
			r.Report(ctx, e)
		}
	}
}

// Buffer keeps every event in memory. It is meant for tests and for
// summaries printed after a batch.
type Buffer struct {
	mu     sync.Mutex
	events []pipeline.Event
}

func (b *Buffer) Report(_ context.Context, e pipeline.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, e)
}

// Events returns a copy of the recorded events.
func (b *Buffer) Events() []pipeline.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]pipeline.Event(nil), b.events...)
}

// Summary is the wire form of a finished run.
type Summary struct {
	RunID      string      `json:"run_id"`
	Job        string      `json:"job,omitempty"`
	Name       string      `json:"name"`
	OK         bool        `json:"ok"`
	Stage      model.Stage `json:"stage,omitempty"`
	Error      string      `json:"error,omitempty"`
	MeshPath   string      `json:"mesh_path,omitempty"`
	Triangles  int         `json:"triangles,omitempty"`
	DurationMS int64       `json:"duration_ms"`
}

// Summarize flattens a pipeline result.
func Summarize(res *pipeline.Result) Summary {
	s := Summary{
		RunID:      res.Request.RunID,
		Job:        res.Request.Job,
		Name:       res.Request.Name,
		OK:         res.OK(),
		MeshPath:   res.MeshPath,
		Triangles:  res.Triangles,
		DurationMS: res.Duration.Milliseconds(),
	}
	if res.Err != nil {
		s.Stage = model.StageOf(res.Err)
		s.Error = res.Err.Error()
	}
	return s
}
