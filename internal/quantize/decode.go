package quantize

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"os"
	"strings"

	// Registered decoders. The standard library covers png, jpeg and gif.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/gabriel-vasile/mimetype"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/vk/qr3d/internal/ctxlog"
	"github.com/vk/qr3d/internal/grid"
	"github.com/vk/qr3d/internal/model"
)

// DecodeFile reads and decodes the raster at path. Files that are not images
// fail with model.ErrUnreadableGrid.
func DecodeFile(ctx context.Context, path string) (image.Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image %s: %w", path, err)
	}

	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return nil, fmt.Errorf("%w: %s is %s, not an image", model.ErrUnreadableGrid, path, mt.String())
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode %s: %v", model.ErrUnreadableGrid, path, err)
	}
	ctxlog.FromContext(ctx).Debug("Image decoded.", "path", path, "format", format, "mime", mt.String(),
		"width", img.Bounds().Dx(), "height", img.Bounds().Dy())
	return img, nil
}

// QuantizeFile is DecodeFile followed by Quantize.
func QuantizeFile(ctx context.Context, path string, opts Options) (*grid.ModuleGrid, float64, error) {
	img, err := DecodeFile(ctx, path)
	if err != nil {
		return nil, 0, err
	}
	return Quantize(ctx, img, opts)
}
