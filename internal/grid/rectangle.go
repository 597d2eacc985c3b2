package grid

import "fmt"

// Fill tags a rectangle with the cell value it covers.
type Fill bool

const (
	Void  Fill = false
	Solid Fill = true
)

// Rectangle is an axis-aligned block of cells in grid coordinates.
// X, Y is the top-left cell; W and H are at least 1.
type Rectangle struct {
	X, Y int
	W, H int
	Fill Fill
}

// Area is the number of cells covered.
func (r Rectangle) Area() int { return r.W * r.H }

// Contains reports whether cell (x, y) lies inside r.
func (r Rectangle) Contains(x, y int) bool {
	return x >= r.X && x < r.X+r.W && y >= r.Y && y < r.Y+r.H
}

// Overlaps reports whether r and o share at least one cell.
func (r Rectangle) Overlaps(o Rectangle) bool {
	return r.X < o.X+o.W && o.X < r.X+r.W && r.Y < o.Y+o.H && o.Y < r.Y+r.H
}

func (r Rectangle) String() string {
	return fmt.Sprintf("[%d,%d %dx%d]", r.X, r.Y, r.W, r.H)
}
