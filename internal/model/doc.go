// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// Package model holds the value types shared by every stage of the qr3d
// pipeline: the closed set of model modes, the physical layout parameters a
// user can tune, the derived dimensions of a card, the optional text labels
// and the error taxonomy surfaced to callers.
//
// # Core Concepts
//
//   - ModelMode: which card variant is produced (square, pendant, text
//     variants). Every stage switches exhaustively over it.
//
//   - LayoutParameters: the user inputs in millimetres, validated against the
//     documented ranges before any geometry is computed.
//
//   - Dimensions: the read-only record derived from a mode and its
//     parameters. It is consumed by the script emitter and serialized verbatim
//     into the metadata sidecar.
//
// All types in this package are plain values. They are constructed once per
// run and never mutated afterwards, so concurrent runs share nothing.
package model
