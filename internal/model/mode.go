// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file defines ModelMode, the closed set of card variants.
package model

import (
	"fmt"
	"strings"
)

// ModelMode selects the card variant. The zero value is not a valid mode.
type ModelMode int

const (
	ModeSquare ModelMode = iota + 1
	ModePendant
	ModeRectangleText
	ModePendantText
	ModeRectangleText2x
)

// Modes lists every valid mode in presentation order.
var Modes = []ModelMode{
	ModeSquare,
	ModePendant,
	ModeRectangleText,
	ModePendantText,
	ModeRectangleText2x,
}

// TextSlot identifies one of the two text bands a card can carry.
type TextSlot string

const (
	SlotBottom TextSlot = "bottom"
	SlotTop    TextSlot = "top"
)

// ParseMode converts the wire name of a mode into a ModelMode.
func ParseMode(s string) (ModelMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "square":
		return ModeSquare, nil
	case "pendant":
		return ModePendant, nil
	case "rectangle-text":
		return ModeRectangleText, nil
	case "pendant-text":
		return ModePendantText, nil
	case "rectangle-text-2x":
		return ModeRectangleText2x, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
}

// String returns the wire name used in job files and metadata sidecars.
func (m ModelMode) String() string {
	switch m {
	case ModeSquare:
		return "square"
	case ModePendant:
		return "pendant"
	case ModeRectangleText:
		return "rectangle-text"
	case ModePendantText:
		return "pendant-text"
	case ModeRectangleText2x:
		return "rectangle-text-2x"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Valid reports whether m is one of the declared modes.
func (m ModelMode) Valid() bool {
	return m >= ModeSquare && m <= ModeRectangleText2x
}

// HasHole reports whether the card carries a chain hole.
func (m ModelMode) HasHole() bool {
	switch m {
	case ModePendant, ModePendantText:
		return true
	default:
		return false
	}
}

// TextSlots returns the text bands the mode reserves, bottom first.
func (m ModelMode) TextSlots() []TextSlot {
	switch m {
	case ModeRectangleText, ModePendantText:
		return []TextSlot{SlotBottom}
	case ModeRectangleText2x:
		return []TextSlot{SlotBottom, SlotTop}
	default:
		return nil
	}
}

// HasText reports whether the mode reserves at least one text band.
func (m ModelMode) HasText() bool {
	return len(m.TextSlots()) > 0
}

// DefaultRotation is the text rotation used when a job does not set one.
// Pendants hang from their hole, so pendant text is always flipped.
func (m ModelMode) DefaultRotation() Rotation {
	if m == ModePendantText {
		return Rotation180
	}
	return Rotation0
}

// MarshalText implements encoding.TextMarshaler.
func (m ModelMode) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownMode, int(m))
	}
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *ModelMode) UnmarshalText(b []byte) error {
	parsed, err := ParseMode(string(b))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
