// Package encoder resolves what a job's input is and turns text payloads
// into QR rasters.
package encoder

import (
	"context"
	"fmt"
	"image/color"

	"github.com/yeqown/go-qrcode/v2"
	"github.com/yeqown/go-qrcode/writer/standard"

	"github.com/vk/qr3d/internal/ctxlog"
)

// ModulePx is the edge, in pixels, of one module in encoded rasters.
const ModulePx = 10

// Encoder writes the QR symbol of a payload as a PNG.
type Encoder interface {
	Encode(ctx context.Context, payload, path string) error
}

// QR encodes with quartile error correction and no quiet zone, so the
// raster starts at the first module.
type QR struct{}

// NewQR returns the go-qrcode backed Encoder.
func NewQR() *QR {
	return &QR{}
}

// Encode implements Encoder.
func (QR) Encode(ctx context.Context, payload, path string) error {
	if payload == "" {
		return fmt.Errorf("cannot encode an empty payload")
	}
	qrc, err := qrcode.NewWith(payload, qrcode.WithErrorCorrectionLevel(qrcode.ErrorCorrectionQuart))
	if err != nil {
		return fmt.Errorf("failed to encode payload: %w", err)
	}

	w, err := standard.New(path,
		standard.WithQRWidth(ModulePx),
		standard.WithBorderWidth(0),
		standard.WithBgColor(color.RGBA{R: 255, G: 255, B: 255, A: 255}),
		standard.WithFgColor(color.RGBA{A: 255}),
		standard.WithBuiltinImageEncoder(standard.PNG_FORMAT),
	)
	if err != nil {
		return fmt.Errorf("failed to create code image %s: %w", path, err)
	}
	if err := qrc.Save(w); err != nil {
		return fmt.Errorf("failed to write code image %s: %w", path, err)
	}

	ctxlog.FromContext(ctx).Debug("Code image written.", "path", path, "payload_len", len(payload))
	return nil
}
