package scad

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/qr3d/internal/decompose"
	"github.com/vk/qr3d/internal/grid"
	"github.com/vk/qr3d/internal/layout"
	"github.com/vk/qr3d/internal/model"
)

func patternOf(picture string) Pattern {
	g := grid.MustParse(picture)
	return Pattern{Width: g.Width(), Height: g.Height(), Rects: decompose.Decompose(g)}
}

func dimsFor(t *testing.T, mode model.ModelMode, mutate ...func(*model.LayoutParameters)) model.Dimensions {
	t.Helper()
	p := model.DefaultParameters()
	p.TextRotation = mode.DefaultRotation()
	for _, m := range mutate {
		m(&p)
	}
	d, err := layout.Layout(mode, p)
	require.NoError(t, err)
	return d
}

func TestEmit_Square(t *testing.T) {
	p := patternOf("#.\n.#")
	d := dimsFor(t, model.ModeSquare)

	script, err := Emit(p, d, model.ModeSquare, model.Text{})
	require.NoError(t, err)
	s := script.String()

	assert.True(t, strings.HasPrefix(s, "// qr3d square card, 2x2 modules, 2 rectangles\n$fn = 48;\n"))
	assert.Contains(t, s, "card_width = 55;")
	assert.Contains(t, s, "card_height = 1.25;")
	assert.Contains(t, s, "qr_size = 51;")
	// Row 0 is the top of the code, so the top-left module lands at y = 25.5.
	assert.Contains(t, s, "translate([0, 25.5, 0]) cube([25.5, 25.5, h]);")
	assert.Contains(t, s, "translate([25.5, 0, 0]) cube([25.5, 25.5, h]);")
	assert.Contains(t, s, "translate([qr_offset_x, qr_offset_y, card_height]) qr_pattern(qr_relief);")
	assert.NotContains(t, s, "difference()")
	assert.NotContains(t, s, "color(")
	assert.NotContains(t, s, "text(")
}

func TestEmit_PendantSubtractsHole(t *testing.T) {
	d := dimsFor(t, model.ModePendant)

	script, err := Emit(patternOf("#"), d, model.ModePendant, model.Text{})
	require.NoError(t, err)
	s := script.String()

	assert.True(t, strings.Contains(s, "difference() {\n    union() {"))
	assert.Contains(t, s, "translate([27.5, 58, -1]) cylinder(h = card_height + qr_relief + 2, r = 2);")
}

func TestEmit_Labels(t *testing.T) {
	t.Run("pendant text is rotated", func(t *testing.T) {
		d := dimsFor(t, model.ModePendantText)
		script, err := Emit(patternOf("#"), d, model.ModePendantText, model.Text{Bottom: "Hello"})
		require.NoError(t, err)
		s := script.String()

		assert.Contains(t, s, "module text_label_bottom() {")
		assert.Contains(t, s, "rotate([0, 0, 180])")
		assert.Contains(t, s, `text("Hello", size = 6, font = "Liberation Sans:style=Bold", halign = "center", valign = "center");`)
		assert.Contains(t, s, "        text_label_bottom();")
	})

	t.Run("both bands", func(t *testing.T) {
		d := dimsFor(t, model.ModeRectangleText2x)
		script, err := Emit(patternOf("#"), d, model.ModeRectangleText2x, model.Text{Top: "Top", Bottom: "Bottom"})
		require.NoError(t, err)
		s := script.String()

		assert.Contains(t, s, "text_label_bottom();")
		assert.Contains(t, s, "text_label_top();")
		assert.Less(t, strings.Index(s, "module text_label_bottom"), strings.Index(s, "module text_label_top"))
	})

	t.Run("empty bands are skipped", func(t *testing.T) {
		d := dimsFor(t, model.ModeRectangleText2x)
		script, err := Emit(patternOf("#"), d, model.ModeRectangleText2x, model.Text{Bottom: "only"})
		require.NoError(t, err)
		assert.NotContains(t, script.String(), "text_label_top")
	})

	t.Run("long text shrinks to fit", func(t *testing.T) {
		d := dimsFor(t, model.ModeRectangleText)
		content := "abcdefghijklmnopqrst"
		script, err := Emit(patternOf("#"), d, model.ModeRectangleText, model.Text{Bottom: content})
		require.NoError(t, err)
		// 50 mm band / (20 glyphs * 0.65)
		assert.Contains(t, script.String(), "size = 3.8462,")
	})

	t.Run("quotes are escaped", func(t *testing.T) {
		d := dimsFor(t, model.ModeRectangleText)
		script, err := Emit(patternOf("#"), d, model.ModeRectangleText, model.Text{Bottom: `say "hi" \o/`})
		require.NoError(t, err)
		assert.Contains(t, script.String(), `text("say \"hi\" \\o/"`)
	})
}

func TestEmit_Options(t *testing.T) {
	d := dimsFor(t, model.ModeSquare)

	t.Run("colors", func(t *testing.T) {
		script, err := Emit(patternOf("#"), d, model.ModeSquare, model.Text{}, WithColors("white", "black"))
		require.NoError(t, err)
		assert.Contains(t, script.String(), `color("white") rounded_plate(`)
		assert.Contains(t, script.String(), `color("black") translate([qr_offset_x`)
	})

	t.Run("segments and font", func(t *testing.T) {
		d := dimsFor(t, model.ModeRectangleText)
		script, err := Emit(patternOf("#"), d, model.ModeRectangleText, model.Text{Bottom: "x"},
			WithSegments(96), WithFont("DejaVu Sans"))
		require.NoError(t, err)
		assert.Contains(t, script.String(), "$fn = 96;")
		assert.Contains(t, script.String(), `font = "DejaVu Sans"`)
	})

	t.Run("recessed pattern is cut from the plate", func(t *testing.T) {
		script, err := Emit(patternOf("#"), d, model.ModeSquare, model.Text{}, WithRecessed(true))
		require.NoError(t, err)
		s := script.String()
		assert.Contains(t, s, "difference() {")
		assert.Contains(t, s, "translate([qr_offset_x, qr_offset_y, card_height - qr_relief]) qr_pattern(qr_relief + 0.01);")
		assert.NotContains(t, s, "card_height]) qr_pattern(qr_relief);")
	})
}

func TestEmit_IsDeterministic(t *testing.T) {
	p := patternOf(`
		###.#
		#.#.#
		###..
		..###`)
	d := dimsFor(t, model.ModeRectangleText2x)
	text := model.Text{Top: "a", Bottom: "b"}

	first, err := Emit(p, d, model.ModeRectangleText2x, text)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := Emit(p, d, model.ModeRectangleText2x, text)
		require.NoError(t, err)
		require.Equal(t, first, again)
	}
}

func TestEmit_NonSquareGridIsCentered(t *testing.T) {
	d := dimsFor(t, model.ModeSquare)
	script, err := Emit(patternOf("##"), d, model.ModeSquare, model.Text{})
	require.NoError(t, err)
	// 2x1 grid in a 51 mm square: module 25.5 mm, centered vertically.
	assert.Contains(t, script.String(), "translate([0, 12.75, 0]) cube([51, 25.5, h]);")
}

func TestEmit_Errors(t *testing.T) {
	d := dimsFor(t, model.ModeSquare)

	_, err := Emit(patternOf("#"), d, model.ModelMode(0), model.Text{})
	assert.ErrorIs(t, err, model.ErrUnknownMode)

	_, err = Emit(Pattern{}, d, model.ModeSquare, model.Text{})
	assert.Error(t, err)

	_, err = Emit(patternOf("#"), d, model.ModeSquare, model.Text{}, WithSegments(2))
	assert.ErrorContains(t, err, "segments")

	// Dimensions computed for another mode lack the text zone.
	_, err = Emit(patternOf("#"), d, model.ModeRectangleText, model.Text{Bottom: "x"})
	assert.ErrorIs(t, err, model.ErrInvalidGeometry)
}

func TestNum(t *testing.T) {
	assert.Equal(t, "0", num(-0.00001))
	assert.Equal(t, "1.25", num(1.25))
	assert.Equal(t, "3.3333", num(10.0/3))
	assert.Equal(t, "110", num(110))
}
