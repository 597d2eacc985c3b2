// Package grid holds the module grid produced by quantization and the
// rectangles the decomposer covers it with.
package grid

import (
	"errors"
	"fmt"
	"strings"
)

// ModuleGrid is an immutable width x height array of solid/void cells.
// Row 0 is the top row of the source raster.
type ModuleGrid struct {
	width    int
	height   int
	cells    []bool
	modulepx float64
}

// New copies rows into a grid. Every row must have the same length and the
// grid must be at least 1x1. moduleSizePx records the raster scale the grid
// was sampled at; pass 0 when the grid was not derived from pixels.
func New(rows [][]bool, moduleSizePx float64) (*ModuleGrid, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, errors.New("module grid must be at least 1x1")
	}
	w := len(rows[0])
	cells := make([]bool, 0, w*len(rows))
	for y, row := range rows {
		if len(row) != w {
			return nil, fmt.Errorf("row %d has %d cells, want %d", y, len(row), w)
		}
		cells = append(cells, row...)
	}
	return &ModuleGrid{width: w, height: len(rows), cells: cells, modulepx: moduleSizePx}, nil
}

// MustParse builds a grid from a picture where '#' (or '1') marks a solid
// cell and anything else a void one. It panics on malformed input and is
// meant for fixtures.
func MustParse(picture string) *ModuleGrid {
	var rows [][]bool
	for _, line := range strings.Split(strings.TrimSpace(picture), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		row := make([]bool, 0, len(line))
		for _, r := range line {
			row = append(row, r == '#' || r == '1')
		}
		rows = append(rows, row)
	}
	g, err := New(rows, 0)
	if err != nil {
		panic(err)
	}
	return g
}

func (g *ModuleGrid) Width() int  { return g.width }
func (g *ModuleGrid) Height() int { return g.height }

// ModuleSizePx is the edge of one module in source pixels.
func (g *ModuleGrid) ModuleSizePx() float64 { return g.modulepx }

// At reports whether cell (x, y) is solid. Out-of-range cells are void.
func (g *ModuleGrid) At(x, y int) bool {
	if x < 0 || y < 0 || x >= g.width || y >= g.height {
		return false
	}
	return g.cells[y*g.width+x]
}

// SolidCount returns the number of solid cells.
func (g *ModuleGrid) SolidCount() int {
	n := 0
	for _, c := range g.cells {
		if c {
			n++
		}
	}
	return n
}

// String renders the grid in the MustParse picture format.
func (g *ModuleGrid) String() string {
	var b strings.Builder
	b.Grow((g.width + 1) * g.height)
	for y := 0; y < g.height; y++ {
		for x := 0; x < g.width; x++ {
			if g.At(x, y) {
				b.WriteByte('#')
			} else {
				b.WriteByte('.')
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}
