// Package layout computes the physical dimensions of a card. It is pure
// arithmetic over a mode and its parameters and performs no I/O.
//
// A card is a stack of zones along its length, measured from y = 0:
//
//	[bottom text] [code region] [top text] [hole]
//
// Zones a mode does not use are omitted. A 180 degree text rotation reverses
// the order of every zone below the hole, so rotated text sits on the far
// side of the code and reads upright when the card hangs.
package layout

import (
	"fmt"

	"github.com/vk/qr3d/internal/model"
)

// Zone sizes in millimetres at size_scale 1.
const (
	TextBand   = 10.0
	HoleZone   = 6.0
	HoleRadius = 2.0

	// fontFill is the share of a text band a glyph line occupies.
	fontFill = 0.6
)

// base is the unscaled plate footprint of a mode.
type base struct {
	width, region float64
}

func baseOf(mode model.ModelMode) (base, error) {
	switch mode {
	case model.ModeSquare, model.ModePendant:
		return base{width: 55, region: 55}, nil
	case model.ModeRectangleText, model.ModeRectangleText2x:
		return base{width: 54, region: 54}, nil
	case model.ModePendantText:
		return base{width: 55, region: 49}, nil
	default:
		return base{}, fmt.Errorf("%w: %s", model.ErrUnknownMode, mode)
	}
}

type zone struct {
	slot   model.TextSlot // empty for the code region
	height float64
}

// Layout derives the Dimensions of a card. Every length, thicknesses and
// reliefs included, scales with p.SizeScale.
func Layout(mode model.ModelMode, p model.LayoutParameters) (model.Dimensions, error) {
	b, err := baseOf(mode)
	if err != nil {
		return model.Dimensions{}, err
	}
	if p.SizeScale <= 0 {
		return model.Dimensions{}, fmt.Errorf("%w: size_scale must be positive, got %g", model.ErrInvalidGeometry, p.SizeScale)
	}
	s := p.SizeScale

	// Bottom to top, before rotation.
	zones := []zone{}
	slots := mode.TextSlots()
	for _, slot := range slots {
		if slot == model.SlotBottom {
			zones = append(zones, zone{slot: slot, height: TextBand * s})
		}
	}
	zones = append(zones, zone{height: b.region * s})
	for _, slot := range slots {
		if slot == model.SlotTop {
			zones = append(zones, zone{slot: slot, height: TextBand * s})
		}
	}
	if p.TextRotation == model.Rotation180 {
		for i, j := 0, len(zones)-1; i < j; i, j = i+1, j-1 {
			zones[i], zones[j] = zones[j], zones[i]
		}
	}

	d := model.Dimensions{
		CardWidth:    b.width * s,
		CardHeight:   p.CardHeight * s,
		CornerRadius: p.CornerRadius * s,
		QRRelief:     p.QRRelief * s,
	}
	margin := p.QRMargin * s

	y := 0.0
	for _, z := range zones {
		if z.slot == "" {
			d.QRSize = min(d.CardWidth, z.height) - 2*margin
			d.QROffsetX = (d.CardWidth - d.QRSize) / 2
			d.QROffsetY = y + (z.height-d.QRSize)/2
		} else {
			d.TextZones = append(d.TextZones, model.TextZone{
				Slot:     z.slot,
				OffsetY:  y,
				Height:   z.height,
				Width:    d.CardWidth - 2*margin,
				CenterX:  d.CardWidth / 2,
				CenterY:  y + z.height/2,
				FontSize: z.height * fontFill,
				Relief:   p.TextHeight * s,
				Rotation: p.TextRotation,
			})
		}
		y += z.height
	}
	if mode.HasHole() {
		d.Hole = &model.Hole{
			CenterX: d.CardWidth / 2,
			CenterY: y + HoleZone*s/2,
			Radius:  HoleRadius * s,
		}
		y += HoleZone * s
	}
	d.CardLength = y

	if d.QRSize <= 0 {
		return model.Dimensions{}, fmt.Errorf("%w: margin %g mm leaves no room for the code", model.ErrInvalidGeometry, margin)
	}
	if limit := min(d.CardWidth, d.CardLength) / 2; d.CornerRadius < 0 || d.CornerRadius >= limit {
		return model.Dimensions{}, fmt.Errorf("%w: corner radius %g mm must be below half the shorter side (%g mm)",
			model.ErrInvalidGeometry, d.CornerRadius, limit)
	}
	return d, nil
}
