// Package decompose covers the cells of a module grid with a small set of
// non-overlapping axis-aligned rectangles.
//
// Each row is first collapsed into its maximal horizontal runs. Scanning top
// to bottom, a run extends the rectangle above it only when both span exactly
// the same columns; any other alignment closes the rectangle above and opens
// a new one. The result is deterministic and costs O(width x height).
package decompose

import (
	"cmp"
	"slices"

	"github.com/vk/qr3d/internal/grid"
)

// Decompose returns rectangles covering exactly the solid cells of g.
// Rectangles are ordered by their top row, then by their left column.
func Decompose(g *grid.ModuleGrid) []grid.Rectangle {
	return DecomposeValue(g, grid.Solid)
}

// DecomposeValue is Decompose for an arbitrary fill value. Passing grid.Void
// covers the empty cells instead. Both pattern styles cut or raise the solid
// rectangles; the recessed style only changes how the emitter places them.
func DecomposeValue(g *grid.ModuleGrid, fill grid.Fill) []grid.Rectangle {
	var rects []grid.Rectangle

	// open maps the left column of a run in the previous row to the index of
	// the rectangle it belongs to.
	open := map[int]int{}
	next := map[int]int{}

	for y := 0; y < g.Height(); y++ {
		clear(next)
		for x := 0; x < g.Width(); {
			if grid.Fill(g.At(x, y)) != fill {
				x++
				continue
			}
			start := x
			for x < g.Width() && grid.Fill(g.At(x, y)) == fill {
				x++
			}
			w := x - start

			if i, ok := open[start]; ok && rects[i].W == w {
				rects[i].H++
				next[start] = i
				continue
			}
			rects = append(rects, grid.Rectangle{X: start, Y: y, W: w, H: 1, Fill: fill})
			next[start] = len(rects) - 1
		}
		open, next = next, open
	}

	// Rectangles are appended in row-major order of their first row already;
	// the stable sort makes that ordering an explicit guarantee.
	slices.SortStableFunc(rects, func(a, b grid.Rectangle) int {
		if c := cmp.Compare(a.Y, b.Y); c != 0 {
			return c
		}
		return cmp.Compare(a.X, b.X)
	})
	return rects
}

// Stats summarizes how much a decomposition saved over one primitive per module.
type Stats struct {
	Rectangles int `json:"rectangles"`
	Modules    int `json:"modules"`
}

// Ratio is modules per rectangle; higher means fewer primitives.
func (s Stats) Ratio() float64 {
	if s.Rectangles == 0 {
		return 0
	}
	return float64(s.Modules) / float64(s.Rectangles)
}

// Summarize computes Stats for rects.
func Summarize(rects []grid.Rectangle) Stats {
	s := Stats{Rectangles: len(rects)}
	for _, r := range rects {
		s.Modules += r.Area()
	}
	return s
}
