package integration_tests

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/qr3d/internal/app"
	"github.com/vk/qr3d/internal/metadata"
	"github.com/vk/qr3d/internal/model"
	"github.com/vk/qr3d/internal/testutil"
)

func TestEndToEnd_URLToPendant(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	bin := testutil.FakeOpenSCAD(t, testutil.WritesOutput)

	// --- Act ---
	result := testutil.RunIntegrationTest(t, nil, func(string) []string {
		return []string{"-openscad", bin, "-mode", "pendant", "https://www.example.com/menu"}
	})

	// --- Assert ---
	require.NoError(t, result.Err, result.LogOutput)
	for _, name := range []string{"example_com.png", "example_com.scad", "example_com.stl", "example_com.json"} {
		assert.FileExists(t, filepath.Join(result.OutputDir, name))
	}

	script, err := os.ReadFile(filepath.Join(result.OutputDir, "example_com.scad"))
	require.NoError(t, err)
	assert.Contains(t, string(script), "pendant card")
	assert.Contains(t, string(script), "difference()")

	meta, warnings, err := metadata.LoadFile(filepath.Join(result.OutputDir, "example_com.json"))
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Equal(t, model.ModePendant, meta.Mode)
	assert.Equal(t, 61.0, meta.Dimensions.CardLength)
	require.NotNil(t, meta.Grid)
	assert.GreaterOrEqual(t, meta.Grid.Width, 21)
	assert.Less(t, meta.Grid.Rectangles, meta.Grid.Modules, "runs are merged into fewer rectangles")
	assert.Contains(t, result.LogOutput, "Card ready")
}

func TestEndToEnd_JobFileWithPreviews(t *testing.T) {
	t.Parallel()

	bin := testutil.FakeOpenSCAD(t, testutil.WritesOutput)
	files := map[string]string{
		"jobs/cards.hcl": `
defaults {
  preview = true
}

job "wifi" {
  input       = "WIFI:S:home;T:WPA;P:secret;;"
  mode        = "rectangle-text"
  text_bottom = "Guest Wi-Fi"
}

job "menu" {
  input   = "https://example.com/menu"
  mode    = "rectangle-text-2x"
  text_top    = "Menu"
  text_bottom = lower("SCAN ME")
}
`,
	}

	result := testutil.RunIntegrationTest(t, files, func(dir string) []string {
		return []string{"-openscad", bin, "-workers", "2", filepath.Join(dir, "jobs")}
	})

	require.NoError(t, result.Err, result.LogOutput)
	for _, name := range []string{"wifi", "menu"} {
		assert.FileExists(t, filepath.Join(result.OutputDir, name+".stl"))
		assert.FileExists(t, filepath.Join(result.OutputDir, name+".preview.png"))
	}
	script, err := os.ReadFile(filepath.Join(result.OutputDir, "menu.scad"))
	require.NoError(t, err)
	assert.Contains(t, string(script), `"scan me"`)
	assert.Contains(t, string(script), `"Menu"`)
}

func TestEndToEnd_RendererFailureLeavesNoArtifacts(t *testing.T) {
	t.Parallel()

	bin := testutil.FakeOpenSCAD(t, `echo "ERROR: Parser error in line 3" >&2; exit 1`)

	result := testutil.RunIntegrationTest(t, nil, func(string) []string {
		return []string{"-openscad", bin, "hello"}
	})

	require.Error(t, result.Err)
	assert.ErrorIs(t, result.Err, app.ErrJobsFailed)
	assert.Contains(t, result.LogOutput, "exit code 1")
	assert.Contains(t, result.LogOutput, "Parser error in line 3")
	entries, err := os.ReadDir(result.OutputDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestEndToEnd_RegenerateFromMetadata(t *testing.T) {
	t.Parallel()

	bin := testutil.FakeOpenSCAD(t, testutil.WritesOutput)
	first := testutil.RunIntegrationTest(t, nil, func(string) []string {
		return []string{"-openscad", bin, "-mode", "pendant-text", "-text-bottom", "Hang me", "-size", "2", "hello"}
	})
	require.NoError(t, first.Err, first.LogOutput)
	sidecar := filepath.Join(first.OutputDir, "hello.json")

	second := testutil.RunIntegrationTest(t, nil, func(string) []string {
		return []string{"-openscad", bin, "-from-metadata", sidecar}
	})
	require.NoError(t, second.Err, second.LogOutput)

	want, err := os.ReadFile(filepath.Join(first.OutputDir, "hello.scad"))
	require.NoError(t, err)
	got, err := os.ReadFile(filepath.Join(second.OutputDir, "hello.scad"))
	require.NoError(t, err)
	assert.Equal(t, string(want), string(got))
}
