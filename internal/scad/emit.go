// Package scad emits the OpenSCAD script describing a card.
//
// Emission is a pure function of its inputs. Identical inputs always yield
// byte-identical scripts, so a script can be compared, cached and rendered
// more than once.
package scad

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/vk/qr3d/internal/grid"
	"github.com/vk/qr3d/internal/model"
)

// Script is a complete OpenSCAD program.
type Script string

func (s Script) String() string { return string(s) }

// Bytes returns the script as file content.
func (s Script) Bytes() []byte { return []byte(s) }

// Pattern is a decomposed module grid: the rectangles plus the grid extent
// they were cut from.
type Pattern struct {
	Width  int
	Height int
	Rects  []grid.Rectangle
}

// DefaultFont is used for labels unless WithFont overrides it.
const DefaultFont = "Liberation Sans:style=Bold"

// glyphAdvance estimates a glyph's advance width as a fraction of font size.
const glyphAdvance = 0.65

// recessEpsilon lifts engraved cuts clear of the top face to avoid
// coincident surfaces.
const recessEpsilon = 0.01

type options struct {
	plateColor   string
	patternColor string
	font         string
	segments     int
	recessed     bool
}

// Option configures Emit.
type Option func(*options)

// WithColors tints the plate and the pattern. Colors only affect previews;
// mesh exports ignore them.
func WithColors(plate, pattern string) Option {
	return func(o *options) {
		o.plateColor = plate
		o.patternColor = pattern
	}
}

// WithFont selects the label font by fontconfig name.
func WithFont(name string) Option {
	return func(o *options) { o.font = name }
}

// WithSegments sets $fn, the facet count of rounded corners and the hole.
func WithSegments(n int) Option {
	return func(o *options) { o.segments = n }
}

// WithRecessed engraves the pattern into the plate instead of raising it.
func WithRecessed(recessed bool) Option {
	return func(o *options) { o.recessed = recessed }
}

// Emit builds the script for a card.
func Emit(p Pattern, d model.Dimensions, mode model.ModelMode, text model.Text, opts ...Option) (Script, error) {
	o := options{font: DefaultFont, segments: 48}
	for _, opt := range opts {
		opt(&o)
	}
	if !mode.Valid() {
		return "", fmt.Errorf("%w: %s", model.ErrUnknownMode, mode)
	}
	if p.Width < 1 || p.Height < 1 {
		return "", errors.New("pattern grid must be at least 1x1")
	}
	if o.segments < 3 {
		return "", fmt.Errorf("segments must be at least 3, got %d", o.segments)
	}
	if d.QRSize <= 0 {
		return "", fmt.Errorf("%w: code size %g mm", model.ErrInvalidGeometry, d.QRSize)
	}

	e := &emitter{opts: o, dims: d}
	e.header(mode, p)
	e.plateModule()
	e.patternModule(p)

	var labels []string
	for _, slot := range mode.TextSlots() {
		content := text.For(slot)
		if content == "" {
			continue
		}
		zone, ok := d.Zone(slot)
		if !ok {
			return "", fmt.Errorf("%w: layout has no %s text zone", model.ErrInvalidGeometry, slot)
		}
		labels = append(labels, e.labelModule(zone, content))
	}
	e.body(labels)
	return Script(e.b.String()), nil
}

type emitter struct {
	b    strings.Builder
	opts options
	dims model.Dimensions
}

func (e *emitter) line(indent int, format string, args ...any) {
	e.b.WriteString(strings.Repeat("    ", indent))
	fmt.Fprintf(&e.b, format, args...)
	e.b.WriteByte('\n')
}

func (e *emitter) header(mode model.ModelMode, p Pattern) {
	d := e.dims
	e.line(0, "// qr3d %s card, %dx%d modules, %d rectangles", mode, p.Width, p.Height, len(p.Rects))
	e.line(0, "$fn = %d;", e.opts.segments)
	e.line(0, "")
	e.line(0, "card_width = %s;", num(d.CardWidth))
	e.line(0, "card_length = %s;", num(d.CardLength))
	e.line(0, "card_height = %s;", num(d.CardHeight))
	e.line(0, "corner_radius = %s;", num(d.CornerRadius))
	e.line(0, "qr_size = %s;", num(d.QRSize))
	e.line(0, "qr_offset_x = %s;", num(d.QROffsetX))
	e.line(0, "qr_offset_y = %s;", num(d.QROffsetY))
	e.line(0, "qr_relief = %s;", num(d.QRRelief))
	e.line(0, "")
}

func (e *emitter) plateModule() {
	e.line(0, "module rounded_plate(w, l, h, r) {")
	e.line(1, "if (r > 0) {")
	e.line(2, "hull() {")
	e.line(3, "translate([r, r, 0]) cylinder(h = h, r = r);")
	e.line(3, "translate([w - r, r, 0]) cylinder(h = h, r = r);")
	e.line(3, "translate([r, l - r, 0]) cylinder(h = h, r = r);")
	e.line(3, "translate([w - r, l - r, 0]) cylinder(h = h, r = r);")
	e.line(2, "}")
	e.line(1, "} else {")
	e.line(2, "cube([w, l, h]);")
	e.line(1, "}")
	e.line(0, "}")
	e.line(0, "")
}

// patternModule places each rectangle in millimetres. Grid row 0 is the top
// of the code, so rows are flipped onto the +y axis. A non-square grid is
// centered inside the qr_size square.
func (e *emitter) patternModule(p Pattern) {
	m := e.dims.QRSize / float64(max(p.Width, p.Height))
	dx := (e.dims.QRSize - float64(p.Width)*m) / 2
	dy := (e.dims.QRSize - float64(p.Height)*m) / 2

	e.line(0, "module qr_pattern(h) {")
	e.line(1, "union() {")
	for _, r := range p.Rects {
		x := dx + float64(r.X)*m
		y := dy + float64(p.Height-r.Y-r.H)*m
		e.line(2, "translate([%s, %s, 0]) cube([%s, %s, h]);",
			num(x), num(y), num(float64(r.W)*m), num(float64(r.H)*m))
	}
	e.line(1, "}")
	e.line(0, "}")
	e.line(0, "")
}

// labelModule writes a module for one text zone and returns its call.
func (e *emitter) labelModule(z model.TextZone, content string) string {
	size := z.FontSize
	if n := len([]rune(content)); n > 0 {
		if fit := z.Width / (float64(n) * glyphAdvance); fit < size {
			size = fit
		}
	}
	name := "text_label_" + string(z.Slot)
	e.line(0, "module %s() {", name)
	e.line(1, "translate([%s, %s, card_height])", num(z.CenterX), num(z.CenterY))
	e.line(2, "rotate([0, 0, %d])", int(z.Rotation))
	e.line(3, "linear_extrude(height = %s)", num(z.Relief))
	e.line(4, "text(%s, size = %s, font = %s, halign = \"center\", valign = \"center\");",
		quote(content), num(size), quote(e.opts.font))
	e.line(0, "}")
	e.line(0, "")
	return name + "();"
}

func (e *emitter) body(labels []string) {
	plateColor, patternColor := "", ""
	if e.opts.plateColor != "" {
		plateColor = "color(" + quote(e.opts.plateColor) + ") "
	}
	if e.opts.patternColor != "" {
		patternColor = "color(" + quote(e.opts.patternColor) + ") "
	}

	var cuts []string
	if e.opts.recessed {
		cuts = append(cuts, fmt.Sprintf("translate([qr_offset_x, qr_offset_y, card_height - qr_relief]) qr_pattern(qr_relief + %s);", num(recessEpsilon)))
	}
	if h := e.dims.Hole; h != nil {
		cuts = append(cuts, fmt.Sprintf("translate([%s, %s, -1]) cylinder(h = card_height + qr_relief + 2, r = %s);",
			num(h.CenterX), num(h.CenterY), num(h.Radius)))
	}

	indent := 0
	if len(cuts) > 0 {
		e.line(0, "difference() {")
		indent = 1
	}
	e.line(indent, "union() {")
	e.line(indent+1, "%srounded_plate(card_width, card_length, card_height, corner_radius);", plateColor)
	if !e.opts.recessed {
		e.line(indent+1, "%stranslate([qr_offset_x, qr_offset_y, card_height]) qr_pattern(qr_relief);", patternColor)
	}
	for _, l := range labels {
		e.line(indent+1, "%s%s", patternColor, l)
	}
	e.line(indent, "}")
	for _, c := range cuts {
		e.line(indent, "%s", c)
	}
	if len(cuts) > 0 {
		e.line(0, "}")
	}
}

// num prints a length with at most four decimals and no trailing zeros.
func num(v float64) string {
	r := math.Round(v*1e4) / 1e4
	if r == 0 {
		r = 0 // normalizes -0
	}
	return strconv.FormatFloat(r, 'f', -1, 64)
}

// quote returns s as an OpenSCAD string literal.
func quote(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch {
		case r == '"' || r == '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		case r < 0x20 || r == 0x7f:
			b.WriteByte(' ')
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}
