package history

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/qr3d/internal/decompose"
	"github.com/vk/qr3d/internal/export"
	"github.com/vk/qr3d/internal/layout"
	"github.com/vk/qr3d/internal/metadata"
	"github.com/vk/qr3d/internal/model"
	"github.com/vk/qr3d/internal/pipeline"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "nested", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func result(id string) *pipeline.Result {
	return &pipeline.Result{
		Request: pipeline.Request{
			RunID:  id,
			Job:    "menu",
			Name:   "example_com",
			Input:  "https://example.com",
			Mode:   model.ModePendant,
			Format: export.FormatSTL,
		},
		MeshPath:  "/tmp/example_com.stl",
		Triangles: 1200,
		Stats:     decompose.Stats{Rectangles: 140, Modules: 300},
		Duration:  1500 * time.Millisecond,
	}
}

func TestStore_RecordAndList(t *testing.T) {
	t.Parallel()
	// --- Arrange ---
	s := openStore(t)
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	s.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}
	failed := result("r2")
	failed.MeshPath = ""
	failed.Err = model.AtStage(model.StageExport, errors.New("render failed (exit code 1)"))

	// --- Act ---
	require.NoError(t, s.Record(context.Background(), result("r1")))
	require.NoError(t, s.Record(context.Background(), failed))
	entries, err := s.List(context.Background(), 0)

	// --- Assert ---
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "r2", entries[0].RunID, "newest first")
	assert.False(t, entries[0].OK)
	assert.Equal(t, model.StageExport, entries[0].Stage)
	assert.Equal(t, "export: render failed (exit code 1)", entries[0].Error)

	r1 := entries[1]
	assert.True(t, r1.OK)
	assert.Equal(t, "menu", r1.Job)
	assert.Equal(t, "pendant", r1.Mode)
	assert.Equal(t, "stl", r1.Format)
	assert.Equal(t, 1200, r1.Triangles)
	assert.Equal(t, 140, r1.Rectangles)
	assert.Equal(t, 1500*time.Millisecond, r1.Duration)
	assert.Equal(t, base.Add(time.Minute), r1.CreatedAt)
	assert.Empty(t, r1.Stage)
	assert.Empty(t, r1.Metadata)
}

func TestStore_RecordsMetadata(t *testing.T) {
	t.Parallel()
	s := openStore(t)
	res := result("m")
	p := model.DefaultParameters()
	d, err := layout.Layout(model.ModePendant, p)
	require.NoError(t, err)
	meta := metadata.New(res.Request.Input, model.ModePendant, p, d, model.Text{})
	res.Metadata = &meta

	require.NoError(t, s.Record(context.Background(), res))
	entries, err := s.List(context.Background(), 1)

	require.NoError(t, err)
	require.Len(t, entries, 1)
	loaded, warnings, err := metadata.Load(strings.NewReader(entries[0].Metadata))
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Equal(t, "https://example.com", loaded.QRInput)
}

func TestStore_ListLimit(t *testing.T) {
	t.Parallel()
	s := openStore(t)
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, s.Record(context.Background(), result(id)))
	}

	entries, err := s.List(context.Background(), 2)

	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestStore_RecordReplacesSameRun(t *testing.T) {
	t.Parallel()
	s := openStore(t)
	require.NoError(t, s.Record(context.Background(), result("a")))
	again := result("a")
	again.Triangles = 7
	require.NoError(t, s.Record(context.Background(), again))

	entries, err := s.List(context.Background(), 0)

	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 7, entries[0].Triangles)
}

func TestStore_SkippedRunsKeepSeparateRows(t *testing.T) {
	t.Parallel()
	s := openStore(t)
	for _, input := range []string{"first", "second"} {
		skipped := pipeline.Skipped(pipeline.Request{Input: input}, context.Canceled)
		require.NoError(t, s.Record(context.Background(), skipped))
	}

	entries, err := s.List(context.Background(), 0)

	require.NoError(t, err)
	require.Len(t, entries, 2)
	names := []string{entries[0].Name, entries[1].Name}
	assert.ElementsMatch(t, []string{"first", "second"}, names)
	for _, e := range entries {
		assert.False(t, e.OK)
		assert.Contains(t, e.Error, "skipped")
	}
}

func TestStore_PersistsAcrossOpen(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "history.db")
	s, err := Open(context.Background(), path)
	require.NoError(t, err)
	require.NoError(t, s.Record(context.Background(), result("a")))
	require.NoError(t, s.Close())

	s, err = Open(context.Background(), path)
	require.NoError(t, err)
	defer s.Close()
	entries, err := s.List(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
