package status

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/qr3d/internal/model"
	"github.com/vk/qr3d/internal/pipeline"
)

func ev(id string, stage model.Stage, status pipeline.Status) pipeline.Event {
	return pipeline.Event{RunID: id, Name: "card-" + id, Stage: stage, Status: status}
}

func TestTracker_FoldsEvents(t *testing.T) {
	t.Parallel()
	tr := NewTracker()
	fixed := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	tr.now = func() time.Time { return fixed }
	ctx := context.Background()

	tr.Report(ctx, ev("b", model.StageEncode, pipeline.StatusStarted))
	tr.Report(ctx, ev("a", model.StageQuantize, pipeline.StatusStarted))
	tr.Report(ctx, ev("b", model.StageExport, pipeline.StatusDone))

	runs := tr.Runs()
	require.Len(t, runs, 2)
	assert.Equal(t, "b", runs[0].RunID, "runs keep first-seen order")
	assert.Equal(t, model.StageExport, runs[0].Stage)
	assert.Equal(t, pipeline.StatusDone, runs[0].Status)
	assert.Equal(t, fixed, runs[0].Updated)

	_, ok := tr.Get("missing")
	assert.False(t, ok)
}

func TestTracker_FailureIsSticky(t *testing.T) {
	t.Parallel()
	tr := NewTracker()
	ctx := context.Background()
	failed := ev("a", model.StageQuantize, pipeline.StatusFailed)
	failed.Message = "unreadable grid"

	tr.Report(ctx, failed)
	tr.Report(ctx, ev("a", model.StageLayout, pipeline.StatusDone))

	run, ok := tr.Get("a")
	require.True(t, ok)
	assert.Equal(t, model.StageQuantize, run.Stage)
	assert.Equal(t, pipeline.StatusFailed, run.Status)
	assert.Equal(t, "unreadable grid", run.Message)
}

func get(t *testing.T, s *Server, path string) (int, []byte) {
	t.Helper()
	resp, err := s.App().Test(httptest.NewRequest(http.MethodGet, path, nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, body
}

func TestServer_Health(t *testing.T) {
	t.Parallel()
	s := NewServer(NewTracker())

	code, body := get(t, s, "/health/live")
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"status":"alive"}`, string(body))

	code, _ = get(t, s, "/health/ready")
	assert.Equal(t, http.StatusServiceUnavailable, code)

	s.SetReady(true)
	code, body = get(t, s, "/health/ready")
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"status":"ready"}`, string(body))
}

func TestServer_Runs(t *testing.T) {
	t.Parallel()
	tr := NewTracker()
	tr.Report(context.Background(), ev("a", model.StageEmit, pipeline.StatusStarted))
	s := NewServer(tr)

	code, body := get(t, s, "/runs")
	require.Equal(t, http.StatusOK, code)
	var runs []Run
	require.NoError(t, json.Unmarshal(body, &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, "card-a", runs[0].Name)
	assert.Equal(t, model.StageEmit, runs[0].Stage)

	code, body = get(t, s, "/runs/a")
	require.Equal(t, http.StatusOK, code)
	var run Run
	require.NoError(t, json.Unmarshal(body, &run))
	assert.Equal(t, pipeline.StatusStarted, run.Status)

	code, _ = get(t, s, "/runs/zzz")
	assert.Equal(t, http.StatusNotFound, code)
}
