// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file defines the user-tunable layout parameters and their documented
// ranges.
package model

import (
	"fmt"
	"strings"
)

// Rotation is the text rotation in degrees. Only 0 and 180 are meaningful.
type Rotation int

const (
	Rotation0   Rotation = 0
	Rotation180 Rotation = 180
)

// PatternStyle controls whether the code is raised above or engraved into the plate.
type PatternStyle string

const (
	PatternRaised   PatternStyle = "raised"
	PatternRecessed PatternStyle = "recessed"
)

// ParsePattern parses a pattern style name.
func ParsePattern(s string) (PatternStyle, error) {
	switch p := PatternStyle(strings.ToLower(strings.TrimSpace(s))); p {
	case PatternRaised, PatternRecessed:
		return p, nil
	default:
		return "", fmt.Errorf("unknown pattern %q: must be 'raised' or 'recessed'", s)
	}
}

// Documented parameter ranges, in millimetres.
const (
	MinCardHeight   = 0.5
	MaxCardHeight   = 5.0
	MinQRMargin     = 0.0
	MaxQRMargin     = 10.0
	MinQRRelief     = 0.1
	MaxQRRelief     = 2.0
	MinCornerRadius = 0.0
	MaxCornerRadius = 5.0
	MaxTextLength   = 20
)

// LayoutParameters are the physical inputs of a run. Lengths are millimetres.
type LayoutParameters struct {
	CardHeight   float64
	QRMargin     float64
	QRRelief     float64
	CornerRadius float64
	SizeScale    float64
	TextHeight   float64
	TextRotation Rotation
	Pattern      PatternStyle
}

// DefaultParameters returns the parameters used when a job sets nothing.
func DefaultParameters() LayoutParameters {
	return LayoutParameters{
		CardHeight:   1.25,
		QRMargin:     2.0,
		QRRelief:     1.0,
		CornerRadius: 2.0,
		SizeScale:    1.0,
		TextHeight:   1.0,
		TextRotation: Rotation0,
		Pattern:      PatternRaised,
	}
}

// Thickness is a named (card height, relief) preset.
type Thickness struct {
	Name       string
	CardHeight float64
	QRRelief   float64
}

var thicknessPresets = []Thickness{
	{Name: "thin", CardHeight: 0.5, QRRelief: 0.5},
	{Name: "medium", CardHeight: 1.0, QRRelief: 1.0},
	{Name: "thick", CardHeight: 1.5, QRRelief: 1.5},
}

// ParseThickness looks up a thickness preset by name.
func ParseThickness(name string) (Thickness, error) {
	for _, p := range thicknessPresets {
		if strings.EqualFold(p.Name, strings.TrimSpace(name)) {
			return p, nil
		}
	}
	return Thickness{}, fmt.Errorf("unknown thickness preset %q: must be 'thin', 'medium' or 'thick'", name)
}

// WithThickness returns a copy of p using the preset's card height and relief.
// Text relief follows the code relief.
func (p LayoutParameters) WithThickness(t Thickness) LayoutParameters {
	p.CardHeight = t.CardHeight
	p.QRRelief = t.QRRelief
	p.TextHeight = t.QRRelief
	return p
}

// Validate checks every parameter against its documented range.
func (p LayoutParameters) Validate() error {
	if err := inRange("card_height", p.CardHeight, MinCardHeight, MaxCardHeight); err != nil {
		return err
	}
	if err := inRange("qr_margin", p.QRMargin, MinQRMargin, MaxQRMargin); err != nil {
		return err
	}
	if err := inRange("qr_relief", p.QRRelief, MinQRRelief, MaxQRRelief); err != nil {
		return err
	}
	if err := inRange("corner_radius", p.CornerRadius, MinCornerRadius, MaxCornerRadius); err != nil {
		return err
	}
	if p.SizeScale <= 0 {
		return fmt.Errorf("%w: size_scale must be positive, got %g", ErrInvalidGeometry, p.SizeScale)
	}
	if p.TextHeight <= 0 {
		return fmt.Errorf("%w: text_height must be positive, got %g", ErrInvalidGeometry, p.TextHeight)
	}
	if p.TextRotation != Rotation0 && p.TextRotation != Rotation180 {
		return fmt.Errorf("%w: text_rotation must be 0 or 180, got %d", ErrInvalidGeometry, p.TextRotation)
	}
	switch p.Pattern {
	case PatternRaised:
	case PatternRecessed:
		if p.QRRelief >= p.CardHeight {
			return fmt.Errorf("%w: recessed relief %g must be shallower than card height %g", ErrInvalidGeometry, p.QRRelief, p.CardHeight)
		}
	default:
		return fmt.Errorf("%w: unknown pattern style %q", ErrInvalidGeometry, p.Pattern)
	}
	return nil
}

func inRange(name string, v, lo, hi float64) error {
	if v < lo || v > hi {
		return fmt.Errorf("%w: %s must be within [%g, %g] mm, got %g", ErrInvalidGeometry, name, lo, hi, v)
	}
	return nil
}
