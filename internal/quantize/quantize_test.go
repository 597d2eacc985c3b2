package quantize

import (
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/qr3d/internal/grid"
	"github.com/vk/qr3d/internal/model"
)

// randomCode builds an n x n grid with solid corners, so the dark bounding
// box spans the whole grid.
func randomCode(seed uint64, n int) [][]bool {
	r := rand.New(rand.NewPCG(seed, seed))
	rows := make([][]bool, n)
	for y := range rows {
		rows[y] = make([]bool, n)
		for x := range rows[y] {
			rows[y][x] = r.IntN(2) == 1
		}
	}
	rows[0][0], rows[0][n-1], rows[n-1][0], rows[n-1][n-1] = true, true, true, true
	return rows
}

// render paints rows with cells of size cell pixels, surrounded by border
// white pixels. Each pixel takes the value of the module under its center.
func render(rows [][]bool, cell float64, border int) *image.Gray {
	n := len(rows)
	size := int(math.Round(float64(n)*cell)) + 2*border
	img := image.NewGray(image.Rect(0, 0, size, size))
	for py := 0; py < size; py++ {
		for px := 0; px < size; px++ {
			img.SetGray(px, py, color.Gray{Y: 255})
			mx := int((float64(px-border) + 0.5) / cell)
			my := int((float64(py-border) + 0.5) / cell)
			if px >= border && py >= border && mx < n && my < n && rows[my][mx] {
				img.SetGray(px, py, color.Gray{Y: 0})
			}
		}
	}
	return img
}

func requireGrid(t *testing.T, want [][]bool, got *grid.ModuleGrid) {
	t.Helper()
	expected, err := grid.New(want, 0)
	require.NoError(t, err)
	require.Equal(t, expected.String(), got.String())
}

func TestQuantize_ExactEncoderOutput(t *testing.T) {
	rows := randomCode(1, 21)
	img := render(rows, 10, 40)

	g, px, err := Quantize(context.Background(), img, DefaultOptions())

	require.NoError(t, err)
	requireGrid(t, rows, g)
	assert.Equal(t, 10.0, px)
	assert.Equal(t, 10.0, g.ModuleSizePx())
}

func TestQuantize_SpeckFallsBackToSearch(t *testing.T) {
	// --- Arrange ---
	const cell, border = 8, 16
	rows := randomCode(3, 21)
	img := render(rows, cell, border)
	// One dark pixel off the sample points of an inner light module makes
	// the shortest run 1 px.
	placed := false
	for y := 1; y < 20 && !placed; y++ {
		for x := 1; x < 20 && !placed; x++ {
			if !rows[y][x] {
				img.SetGray(border+x*cell+1, border+y*cell+1, color.Gray{Y: 0})
				placed = true
			}
		}
	}
	require.True(t, placed)

	// --- Act ---
	g, px, err := Quantize(context.Background(), img, DefaultOptions())

	// --- Assert ---
	require.NoError(t, err)
	requireGrid(t, rows, g)
	assert.Equal(t, 8.0, px)
}

func TestQuantize_TooFewModulesForFastPath(t *testing.T) {
	// A 5x5 exact raster is below MinModules: the fast path must not accept
	// it, and the search finds cells too small at 21 modules.
	rows := randomCode(4, 5)
	img := render(rows, 10, 10)

	_, _, err := Quantize(context.Background(), img, DefaultOptions())
	assert.ErrorIs(t, err, model.ErrUnreadableGrid)

	opts := DefaultOptions()
	opts.MinModules = 5
	g, px, err := Quantize(context.Background(), img, opts)
	require.NoError(t, err)
	requireGrid(t, rows, g)
	assert.Equal(t, 10.0, px)
}

func TestQuantize_ResampledImageUsesSearch(t *testing.T) {
	rows := randomCode(2, 25)
	img := render(rows, 7.6, 13)

	g, px, err := Quantize(context.Background(), img, DefaultOptions())

	require.NoError(t, err)
	requireGrid(t, rows, g)
	assert.InDelta(t, 7.6, px, 0.01)
}

func TestQuantize_ToleratesJPEGArtifacts(t *testing.T) {
	rows := randomCode(3, 29)
	path := filepath.Join(t.TempDir(), "code.jpg")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, jpeg.Encode(f, render(rows, 8, 16), &jpeg.Options{Quality: 90}))
	require.NoError(t, f.Close())

	g, _, err := QuantizeFile(context.Background(), path, DefaultOptions())

	require.NoError(t, err)
	requireGrid(t, rows, g)
}

func TestQuantize_Unreadable(t *testing.T) {
	t.Run("blank image", func(t *testing.T) {
		img := image.NewGray(image.Rect(0, 0, 100, 100))
		for i := range img.Pix {
			img.Pix[i] = 255
		}
		_, _, err := Quantize(context.Background(), img, DefaultOptions())
		assert.ErrorIs(t, err, model.ErrUnreadableGrid)
	})

	t.Run("pixel noise", func(t *testing.T) {
		r := rand.New(rand.NewPCG(9, 9))
		img := image.NewGray(image.Rect(0, 0, 200, 200))
		for i := range img.Pix {
			img.Pix[i] = uint8(r.IntN(2) * 255)
		}
		_, _, err := Quantize(context.Background(), img, DefaultOptions())
		assert.ErrorIs(t, err, model.ErrUnreadableGrid)
		assert.ErrorContains(t, err, "no stable module count")
	})

	t.Run("not an image", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "notes.png")
		require.NoError(t, os.WriteFile(path, []byte("just some text\n"), 0o600))
		_, _, err := QuantizeFile(context.Background(), path, DefaultOptions())
		assert.ErrorIs(t, err, model.ErrUnreadableGrid)
		assert.ErrorContains(t, err, "not an image")
	})
}

func TestDecodeFile_PNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "code.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, render(randomCode(4, 21), 5, 0)))
	require.NoError(t, f.Close())

	img, err := DecodeFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 105, img.Bounds().Dx())
}

func TestOtsu(t *testing.T) {
	var hist [256]int
	hist[20] = 50
	hist[30] = 50
	hist[220] = 100
	th, ok := otsu(hist, 200)
	require.True(t, ok)
	assert.GreaterOrEqual(t, th, uint8(30))
	assert.Less(t, th, uint8(220))

	var flat [256]int
	flat[128] = 10
	_, ok = otsu(flat, 10)
	assert.False(t, ok)
}
