package metadata

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/qr3d/internal/layout"
	"github.com/vk/qr3d/internal/model"
)

func sampleRun(t *testing.T, mode model.ModelMode, p model.LayoutParameters, text model.Text) RunMetadata {
	t.Helper()
	d, err := layout.Layout(mode, p)
	require.NoError(t, err)
	return New("https://example.com/menu", mode, p, d, text)
}

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		mode model.ModelMode
		p    func(p *model.LayoutParameters)
		text model.Text
	}{
		{"square defaults", model.ModeSquare, func(*model.LayoutParameters) {}, model.Text{}},
		{"pendant scaled", model.ModePendant, func(p *model.LayoutParameters) { p.SizeScale = 2 }, model.Text{}},
		{"rotated text", model.ModePendantText, func(p *model.LayoutParameters) {
			p.TextRotation = model.Rotation180
			p.TextHeight = 0.4
		}, model.Text{Bottom: "Keys"}},
		{"two bands recessed", model.ModeRectangleText2x, func(p *model.LayoutParameters) {
			p.CardHeight = 3
			p.QRRelief = 0.6
			p.QRMargin = 0
			p.CornerRadius = 0
			p.SizeScale = 0.5
			p.Pattern = model.PatternRecessed
		}, model.Text{Top: "Wi-Fi", Bottom: "Guest"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := model.DefaultParameters()
			tt.p(&p)
			run := sampleRun(t, tt.mode, p, tt.text)
			run.Grid = &GridInfo{Width: 25, Height: 25, ModuleSizePx: 10, Rectangles: 120, Modules: 300}

			data, err := run.Marshal()
			require.NoError(t, err)
			loaded, warnings, err := Load(bytes.NewReader(data))

			require.NoError(t, err)
			assert.Empty(t, warnings)
			assert.Equal(t, run, *loaded)
			assert.Equal(t, p, loaded.LayoutParameters())
			assert.Equal(t, tt.text, loaded.LabelText())
		})
	}
}

func TestMarshal_Schema(t *testing.T) {
	run := sampleRun(t, model.ModeRectangleText, model.DefaultParameters(), model.Text{Bottom: "Menu & more"})

	data, err := run.Marshal()
	require.NoError(t, err)
	s := string(data)

	assert.True(t, strings.HasSuffix(s, "}\n"))
	assert.Contains(t, s, `"version": "1.1.0"`)
	assert.Contains(t, s, `"mode": "rectangle-text"`)
	assert.Contains(t, s, `"card_width_mm": 54`)
	assert.Contains(t, s, `"card_height_mm": 1.25`)
	assert.Contains(t, s, `"qr_margin_mm": 2`)
	assert.Contains(t, s, `"size_scale": 1`)
	assert.Contains(t, s, `"content_bottom": "Menu & more"`)
	assert.NotContains(t, s, "content_top")
	assert.NotContains(t, s, `"hole"`)
	assert.NotContains(t, s, `"grid"`)
}

func TestLoad_VersionDrift(t *testing.T) {
	tests := []struct {
		version string
		warning string
	}{
		{"1.1.0", ""},
		{"1.4.2", ""},
		{"1.0.0", "differs from supported"},
		{"2.0.0", "differs from supported"},
		{"banana", "not a semantic version"},
		{"", "no version"},
	}
	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			doc := `{"version": "` + tt.version + `", "mode": "square",
				"dimensions": {"card_width_mm": 55, "card_height_mm": 1.25},
				"parameters": {"size_scale": 1}}`
			m, warnings, err := Load(strings.NewReader(doc))
			require.NoError(t, err)
			require.NotNil(t, m)
			if tt.warning == "" {
				assert.Empty(t, warnings)
				return
			}
			require.Len(t, warnings, 1)
			assert.Contains(t, warnings[0], tt.warning)
		})
	}
}

func TestLoad_LegacySidecar(t *testing.T) {
	doc := `{
		"version": "1.0",
		"qr_input": "https://example.com",
		"mode": "pendant-text",
		"dimensions": {"card_width_mm": 110, "card_length_mm": 130, "card_height_mm": 1.5},
		"parameters": {"qr_margin_mm": 3, "qr_relief_mm": 0.8, "corner_radius_mm": 1},
		"text": {"content": "Hang me"}
	}`

	m, warnings, err := Load(strings.NewReader(doc))

	require.NoError(t, err)
	assert.Equal(t, model.ModePendantText, m.Mode)
	assert.Equal(t, 2.0, m.Parameters.SizeScale)
	assert.Equal(t, 0.8, m.Parameters.TextHeight)
	assert.Equal(t, model.Rotation180, m.Parameters.TextRotation)
	assert.Equal(t, model.PatternRaised, m.Parameters.Pattern)
	assert.Equal(t, "Hang me", m.Text.ContentBottom)
	assert.Equal(t, 0.75, m.LayoutParameters().CardHeight, "recorded height is at scale 2")
	assert.Len(t, warnings, 3)
}

func TestLoad_Errors(t *testing.T) {
	_, _, err := Load(strings.NewReader("{not json"))
	assert.ErrorContains(t, err, "failed to decode metadata")

	_, _, err = Load(strings.NewReader(`{"version": "1.1.0", "mode": "triangle"}`))
	assert.ErrorIs(t, err, model.ErrUnknownMode)

	_, _, err = LoadFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestInferScale(t *testing.T) {
	assert.Equal(t, 0.5, InferScale(27.5))
	assert.Equal(t, 1.0, InferScale(55))
	assert.Equal(t, 2.0, InferScale(110))
	assert.Equal(t, 1.0, InferScale(0))
}
