package pipeline

import (
	"context"

	"github.com/vk/qr3d/internal/model"
)

// Status is the state a stage reports.
type Status string

const (
	StatusStarted Status = "started"
	StatusDone    Status = "done"
	StatusFailed  Status = "failed"
)

// Event is a discrete progress notification.
type Event struct {
	RunID   string      `json:"run_id"`
	Job     string      `json:"job,omitempty"`
	Name    string      `json:"name"`
	Stage   model.Stage `json:"stage"`
	Status  Status      `json:"status"`
	Message string      `json:"message,omitempty"`
}

// Reporter receives progress events. Implementations must be safe for
// concurrent use: layout and quantization report from separate goroutines.
type Reporter interface {
	Report(ctx context.Context, e Event)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(ctx context.Context, e Event)

func (f ReporterFunc) Report(ctx context.Context, e Event) { f(ctx, e) }

type nopReporter struct{}

func (nopReporter) Report(context.Context, Event) {}
