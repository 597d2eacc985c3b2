// Package testutil runs the whole application against a fake renderer for
// integration tests.
package testutil

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/qr3d/internal/app"
	"github.com/vk/qr3d/internal/cli"
	"github.com/vk/qr3d/internal/hcl"
)

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

// Write implements the io.Writer interface for SafeBuffer.
func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

// String implements the fmt.Stringer interface for SafeBuffer.
func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// Tetrahedron is a small valid ASCII STL.
const Tetrahedron = `solid fake
facet normal 0 0 -1
outer loop
vertex 0 0 0
vertex 1 0 0
vertex 0 1 0
endloop
endfacet
facet normal 0 -1 0
outer loop
vertex 0 0 0
vertex 0 0 1
vertex 1 0 0
endloop
endfacet
facet normal -1 0 0
outer loop
vertex 0 0 0
vertex 0 1 0
vertex 0 0 1
endloop
endfacet
facet normal 1 1 1
outer loop
vertex 1 0 0
vertex 0 0 1
vertex 0 1 0
endloop
endfacet
endsolid fake
`

// WritesOutput is a fake renderer body producing a PNG stand-in for
// previews and the tetrahedron for everything else.
const WritesOutput = `case "$out" in
  *.png) printf 'png' > "$out" ;;
  *) cat > "$out" <<'STL'
` + Tetrahedron + `STL
  ;;
esac`

// FakeOpenSCAD writes an executable shell script standing in for openscad.
// The script sees the output path in $out and its full argument list in $@.
func FakeOpenSCAD(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake renderer needs a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "openscad")
	script := `#!/bin/sh
out=""
prev=""
for a in "$@"; do
  if [ "$prev" = "-o" ]; then out="$a"; fi
  prev="$a"
done
` + body + "\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

// HarnessResult holds the outcomes of an integration test run.
type HarnessResult struct {
	LogOutput string
	Err       error
	// Dir is the temporary root holding the test files.
	Dir string
	// OutputDir is where artifacts were written.
	OutputDir string
}

// RunIntegrationTest writes files under a temporary root, then runs the
// CLI with the arguments built by args. Output goes to <root>/out unless
// the arguments say otherwise.
func RunIntegrationTest(t *testing.T, files map[string]string, args func(dir string) []string) *HarnessResult {
	t.Helper()

	dir := t.TempDir()
	for name, content := range files {
		filePath := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(filePath), 0o755))
		require.NoError(t, os.WriteFile(filePath, []byte(content), 0o644))
	}

	outDir := filepath.Join(dir, "out")
	argv := append([]string{"-output-dir", outDir, "-log-level", "debug"}, args(dir)...)
	cfg, shouldExit, err := cli.Parse(argv, &bytes.Buffer{})
	require.NoError(t, err)
	require.False(t, shouldExit)

	logs := &SafeBuffer{}
	runErr := app.NewApp(logs, cfg, hcl.NewLoader()).Run(context.Background())

	t.Cleanup(func() {
		if os.Getenv("QR3D_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logs.String())
		}
	})

	return &HarnessResult{LogOutput: logs.String(), Err: runErr, Dir: dir, OutputDir: outDir}
}
