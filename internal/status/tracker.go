// Package status exposes run progress and health probes over HTTP.
package status

import (
	"context"
	"sync"
	"time"

	"github.com/vk/qr3d/internal/model"
	"github.com/vk/qr3d/internal/pipeline"
)

// Run is the latest known state of one run.
type Run struct {
	RunID   string          `json:"run_id"`
	Job     string          `json:"job,omitempty"`
	Name    string          `json:"name"`
	Stage   model.Stage     `json:"stage"`
	Status  pipeline.Status `json:"status"`
	Message string          `json:"message,omitempty"`
	Updated time.Time       `json:"updated"`
}

// Tracker folds progress events into per-run state. It implements
// pipeline.Reporter.
type Tracker struct {
	mu    sync.RWMutex
	runs  map[string]*Run
	order []string
	now   func() time.Time
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{runs: make(map[string]*Run), now: time.Now}
}

// Report records e. A failure is sticky: later events for the same run do
// not overwrite it.
func (t *Tracker) Report(_ context.Context, e pipeline.Event) {
	t.mu.Lock()
	defer t.mu.Unlock()
	r, ok := t.runs[e.RunID]
	if !ok {
		r = &Run{RunID: e.RunID}
		t.runs[e.RunID] = r
		t.order = append(t.order, e.RunID)
	}
	if r.Status == pipeline.StatusFailed {
		return
	}
	r.Job, r.Name, r.Stage, r.Status, r.Message = e.Job, e.Name, e.Stage, e.Status, e.Message
	r.Updated = t.now()
}

// Runs returns the tracked runs in the order they were first seen.
func (t *Tracker) Runs() []Run {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Run, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, *t.runs[id])
	}
	return out
}

// Get returns a run by id.
func (t *Tracker) Get(id string) (Run, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	r, ok := t.runs[id]
	if !ok {
		return Run{}, false
	}
	return *r, true
}
