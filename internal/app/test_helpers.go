package app

import (
	"bytes"
	"context"
	"os"
	"sync"
	"testing"

	"github.com/vk/qr3d/internal/config"
	"github.com/vk/qr3d/internal/export"
	"github.com/vk/qr3d/internal/metadata"
	"github.com/vk/qr3d/internal/scad"
	"github.com/vk/qr3d/internal/stl"
)

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// FakeRenderer stands in for the external renderer. Export writes the
// script, metadata and a tiny mesh so callers can inspect the output
// directory; Err makes every export fail instead.
type FakeRenderer struct {
	Err error

	mu      sync.Mutex
	scripts []scad.Script
}

func (f *FakeRenderer) Export(_ context.Context, script scad.Script, format export.Format, meta metadata.RunMetadata, a export.Artifacts) (*export.Output, error) {
	f.mu.Lock()
	f.scripts = append(f.scripts, script)
	f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	data, err := meta.Marshal()
	if err != nil {
		return nil, err
	}
	files := map[string][]byte{
		a.Script():     script.Bytes(),
		a.Metadata():   data,
		a.Mesh(format): []byte("solid t\nendsolid t\n"),
	}
	for path, content := range files {
		if err := os.WriteFile(path, content, 0o644); err != nil {
			return nil, err
		}
	}
	return &export.Output{
		ScriptPath:   a.Script(),
		MeshPath:     a.Mesh(format),
		MetadataPath: a.Metadata(),
		Mesh:         &stl.Mesh{Triangles: 2},
	}, nil
}

func (f *FakeRenderer) Preview(_ context.Context, _ scad.Script, a export.Artifacts) (string, error) {
	return a.Preview(), os.WriteFile(a.Preview(), []byte("png"), 0o644)
}

// Scripts returns the scripts passed to Export.
func (f *FakeRenderer) Scripts() []scad.Script {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]scad.Script(nil), f.scripts...)
}

// SetupAppTest creates a new app instance for system testing, logging at
// debug level into the returned buffer.
func SetupAppTest(t *testing.T, cfg *Config, loader config.Loader, opts ...Option) (*App, *SafeBuffer) {
	t.Helper()

	logBuffer := &SafeBuffer{}
	cfg.LogLevel = "debug"
	testApp := NewApp(logBuffer, cfg, loader, opts...)

	t.Cleanup(func() {
		if os.Getenv("QR3D_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logBuffer.String())
		}
	})

	return testApp, logBuffer
}
