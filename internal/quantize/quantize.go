// Package quantize turns a raster image into a module grid.
//
// Pixels are split into dark and light with a global Otsu threshold; dark
// pixels are solid. The grid origin is the bounding box of the dark pixels.
// The module size comes from the shortest dark or light run when the raster
// is exact encoder output, and otherwise from a search over grid sizes that
// keeps the first size whose cells sample consistently.
package quantize

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"math"

	xdraw "golang.org/x/image/draw"

	"github.com/vk/qr3d/internal/ctxlog"
	"github.com/vk/qr3d/internal/grid"
	"github.com/vk/qr3d/internal/model"
)

// Options bound the grid size search.
type Options struct {
	// MinModules and MaxModules bound N in the N x N search.
	MinModules int
	MaxModules int
	// MinStability is the fraction of cells whose samples must agree.
	MinStability float64
	// MinCellPx is the smallest cell edge, in pixels, the search will try.
	MinCellPx float64
}

// DefaultOptions covers QR versions 1 through 40.
func DefaultOptions() Options {
	return Options{
		MinModules:   21,
		MaxModules:   177,
		MinStability: 0.97,
		MinCellPx:    4,
	}
}

// raster is a thresholded view of the source image.
type raster struct {
	gray      *image.Gray
	threshold uint8
}

func (r *raster) dark(x, y int) bool {
	return r.gray.GrayAt(x, y).Y <= r.threshold
}

// box is an inclusive-exclusive pixel rectangle.
type box struct{ x0, y0, x1, y1 int }

func (b box) w() int { return b.x1 - b.x0 }
func (b box) h() int { return b.y1 - b.y0 }

// Quantize samples img into a module grid and returns it with the module
// edge length in pixels.
func Quantize(ctx context.Context, img image.Image, opts Options) (*grid.ModuleGrid, float64, error) {
	logger := ctxlog.FromContext(ctx)

	r, err := threshold(img)
	if err != nil {
		return nil, 0, err
	}
	bb, ok := r.darkBounds()
	if !ok {
		return nil, 0, fmt.Errorf("%w: image has no dark pixels", model.ErrUnreadableGrid)
	}
	logger.Debug("Raster thresholded.", "threshold", r.threshold, "bbox_w", bb.w(), "bbox_h", bb.h())

	// A single speck or anti-aliased edge yields a tiny run; such rasters go
	// through the search instead.
	if m, ok := r.uniformRun(bb); ok && float64(m) >= opts.MinCellPx {
		nx, ny := bb.w()/m, bb.h()/m
		if nx >= opts.MinModules && ny >= opts.MinModules && nx <= opts.MaxModules && ny <= opts.MaxModules {
			logger.Debug("Module size taken from edge runs.", "module_px", m, "cols", nx, "rows", ny)
			return r.sample(bb, nx, ny), float64(m), nil
		}
	}

	for n := opts.MinModules; n <= opts.MaxModules; n++ {
		cw, ch := float64(bb.w())/float64(n), float64(bb.h())/float64(n)
		if cw < opts.MinCellPx || ch < opts.MinCellPx {
			break
		}
		if s := r.stability(bb, n); s >= opts.MinStability {
			logger.Debug("Module grid inferred by search.", "modules", n, "stability", s)
			return r.sample(bb, n, n), (cw + ch) / 2, nil
		}
	}
	return nil, 0, fmt.Errorf("%w: no stable module count in [%d, %d]", model.ErrUnreadableGrid, opts.MinModules, opts.MaxModules)
}

// threshold converts img to gray over white and picks an Otsu threshold.
func threshold(img image.Image) (*raster, error) {
	b := img.Bounds()
	if b.Empty() {
		return nil, fmt.Errorf("%w: empty image", model.ErrUnreadableGrid)
	}
	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	xdraw.Draw(gray, gray.Bounds(), image.NewUniform(color.White), image.Point{}, xdraw.Src)
	xdraw.Draw(gray, gray.Bounds(), img, b.Min, xdraw.Over)

	var hist [256]int
	for _, v := range gray.Pix {
		hist[v]++
	}
	t, ok := otsu(hist, len(gray.Pix))
	if !ok {
		return nil, fmt.Errorf("%w: image has no contrast", model.ErrUnreadableGrid)
	}
	return &raster{gray: gray, threshold: t}, nil
}

// otsu returns the threshold maximizing between-class variance. Values at
// or below the threshold form the dark class.
func otsu(hist [256]int, total int) (uint8, bool) {
	var sum float64
	levels := 0
	for i, c := range hist {
		sum += float64(i * c)
		if c > 0 {
			levels++
		}
	}
	if levels < 2 {
		return 0, false
	}

	var (
		sumB, best float64
		wB         int
		t          uint8
	)
	for i := 0; i < 255; i++ {
		wB += hist[i]
		if wB == 0 {
			continue
		}
		wF := total - wB
		if wF == 0 {
			break
		}
		sumB += float64(i * hist[i])
		mB := sumB / float64(wB)
		mF := (sum - sumB) / float64(wF)
		between := float64(wB) * float64(wF) * (mB - mF) * (mB - mF)
		if between > best {
			best = between
			t = uint8(i)
		}
	}
	return t, true
}

func (r *raster) darkBounds() (box, bool) {
	b := r.gray.Bounds()
	bb := box{x0: b.Max.X, y0: b.Max.Y, x1: -1, y1: -1}
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if !r.dark(x, y) {
				continue
			}
			bb.x0 = min(bb.x0, x)
			bb.y0 = min(bb.y0, y)
			bb.x1 = max(bb.x1, x+1)
			bb.y1 = max(bb.y1, y+1)
		}
	}
	return bb, bb.x1 > 0
}

// uniformRun finds the shortest run of equal pixels along every row and
// column of bb and reports it only when every run and both box edges are
// exact multiples of it. That holds for unscaled encoder output and fails on
// anything resampled or compressed.
func (r *raster) uniformRun(bb box) (int, bool) {
	var runs []int
	scan := func(n int, at func(i int) bool) {
		start := 0
		for i := 1; i <= n; i++ {
			if i == n || at(i) != at(start) {
				runs = append(runs, i-start)
				start = i
			}
		}
	}
	for y := bb.y0; y < bb.y1; y++ {
		scan(bb.w(), func(i int) bool { return r.dark(bb.x0+i, y) })
	}
	for x := bb.x0; x < bb.x1; x++ {
		scan(bb.h(), func(i int) bool { return r.dark(x, bb.y0+i) })
	}

	m := math.MaxInt
	for _, l := range runs {
		m = min(m, l)
	}
	if m == math.MaxInt || bb.w()%m != 0 || bb.h()%m != 0 {
		return 0, false
	}
	for _, l := range runs {
		if l%m != 0 {
			return 0, false
		}
	}
	return m, true
}

// stability is the fraction of cells in an n x n split of bb whose center
// and four quarter-offset samples all agree.
func (r *raster) stability(bb box, n int) float64 {
	cw, ch := float64(bb.w())/float64(n), float64(bb.h())/float64(n)
	stable := 0
	for j := 0; j < n; j++ {
		for i := 0; i < n; i++ {
			cx := float64(bb.x0) + (float64(i)+0.5)*cw
			cy := float64(bb.y0) + (float64(j)+0.5)*ch
			v := r.dark(int(cx), int(cy))
			if r.dark(int(cx-cw/4), int(cy)) == v &&
				r.dark(int(cx+cw/4), int(cy)) == v &&
				r.dark(int(cx), int(cy-ch/4)) == v &&
				r.dark(int(cx), int(cy+ch/4)) == v {
				stable++
			}
		}
	}
	return float64(stable) / float64(n*n)
}

// sample classifies each cell by the pixel under its center.
func (r *raster) sample(bb box, nx, ny int) *grid.ModuleGrid {
	cw, ch := float64(bb.w())/float64(nx), float64(bb.h())/float64(ny)
	rows := make([][]bool, ny)
	for j := range rows {
		rows[j] = make([]bool, nx)
		for i := range rows[j] {
			cx := float64(bb.x0) + (float64(i)+0.5)*cw
			cy := float64(bb.y0) + (float64(j)+0.5)*ch
			rows[j][i] = r.dark(int(cx), int(cy))
		}
	}
	g, err := grid.New(rows, (cw+ch)/2)
	if err != nil {
		// nx and ny are at least 1 here.
		panic(err)
	}
	return g
}
