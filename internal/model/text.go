// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
package model

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Text holds the optional label content of the two text bands.
type Text struct {
	Top    string
	Bottom string
}

// For returns the content destined for a slot.
func (t Text) For(slot TextSlot) string {
	if slot == SlotTop {
		return t.Top
	}
	return t.Bottom
}

// Empty reports whether no label is set.
func (t Text) Empty() bool {
	return t.Top == "" && t.Bottom == ""
}

// Validate checks the per-zone length limit, that the mode can carry the
// requested labels, and that a text mode gets at least one non-blank label.
func (t Text) Validate(mode ModelMode) error {
	for _, c := range []struct {
		slot    TextSlot
		content string
	}{{SlotBottom, t.Bottom}, {SlotTop, t.Top}} {
		if n := utf8.RuneCountInString(c.content); n > MaxTextLength {
			return fmt.Errorf("%w: %s text has %d characters, limit is %d", ErrInvalidGeometry, c.slot, n, MaxTextLength)
		}
		if c.content != "" && !mode.supports(c.slot) {
			return fmt.Errorf("%w: mode %s has no %s text zone", ErrInvalidGeometry, mode, c.slot)
		}
	}
	if mode.HasText() && strings.TrimSpace(t.Top) == "" && strings.TrimSpace(t.Bottom) == "" {
		return fmt.Errorf("%w: mode %s needs label text", ErrInvalidGeometry, mode)
	}
	return nil
}

func (m ModelMode) supports(slot TextSlot) bool {
	for _, s := range m.TextSlots() {
		if s == slot {
			return true
		}
	}
	return false
}
