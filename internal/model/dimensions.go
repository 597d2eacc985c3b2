// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file defines Dimensions, the physical layout computed once per run.
// The JSON names are part of the metadata sidecar schema.
package model

// Dimensions is the derived, read-only layout of a card. All lengths are mm.
type Dimensions struct {
	CardWidth    float64    `json:"card_width_mm"`
	CardLength   float64    `json:"card_length_mm"`
	CardHeight   float64    `json:"card_height_mm"`
	CornerRadius float64    `json:"corner_radius_mm"`
	QRSize       float64    `json:"qr_size_mm"`
	QROffsetX    float64    `json:"qr_offset_x_mm"`
	QROffsetY    float64    `json:"qr_offset_y_mm"`
	QRRelief     float64    `json:"qr_relief_mm"`
	Hole         *Hole      `json:"hole,omitempty"`
	TextZones    []TextZone `json:"text_zones,omitempty"`
}

// Hole is the through-hole of pendant modes.
type Hole struct {
	CenterX float64 `json:"center_x_mm"`
	CenterY float64 `json:"center_y_mm"`
	Radius  float64 `json:"radius_mm"`
}

// TextZone is the band reserved for one label.
type TextZone struct {
	Slot     TextSlot `json:"slot"`
	OffsetY  float64  `json:"offset_y_mm"`
	Height   float64  `json:"height_mm"`
	Width    float64  `json:"width_mm"`
	CenterX  float64  `json:"center_x_mm"`
	CenterY  float64  `json:"center_y_mm"`
	FontSize float64  `json:"font_size_mm"`
	Relief   float64  `json:"relief_mm"`
	Rotation Rotation `json:"rotation_deg"`
}

// Zone returns the text zone for slot, if the layout has one.
func (d Dimensions) Zone(slot TextSlot) (TextZone, bool) {
	for _, z := range d.TextZones {
		if z.Slot == slot {
			return z, true
		}
	}
	return TextZone{}, false
}
