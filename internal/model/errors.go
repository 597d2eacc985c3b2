// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file defines the error taxonomy of the pipeline. Every failure a
// caller can observe matches exactly one of these sentinels through
// errors.Is, and is wrapped in a StageError naming where it happened.
package model

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnreadableGrid means quantization found no stable module grid.
	ErrUnreadableGrid = errors.New("unreadable grid")
	// ErrInvalidGeometry means a parameter combination violates a physical constraint.
	ErrInvalidGeometry = errors.New("invalid geometry")
	// ErrUnknownMode means the mode selector named no known mode.
	ErrUnknownMode = errors.New("unknown mode")
	// ErrRenderFailed is matched by every *RenderFailedError.
	ErrRenderFailed = errors.New("render failed")
	// ErrRenderTimeout means the renderer exceeded its time budget.
	ErrRenderTimeout = errors.New("render timeout")
)

// RenderFailedError reports a renderer that exited non-zero or produced no output.
type RenderFailedError struct {
	ExitCode int
	Stderr   string
	Reason   string
}

func (e *RenderFailedError) Error() string {
	var b strings.Builder
	b.WriteString("render failed")
	if e.Reason != "" {
		b.WriteString(": ")
		b.WriteString(e.Reason)
	}
	if e.ExitCode != 0 {
		fmt.Fprintf(&b, " (exit code %d)", e.ExitCode)
	}
	if s := strings.TrimSpace(e.Stderr); s != "" {
		b.WriteString(": ")
		b.WriteString(s)
	}
	return b.String()
}

// Is lets errors.Is(err, ErrRenderFailed) match.
func (e *RenderFailedError) Is(target error) bool {
	return target == ErrRenderFailed
}

// Stage names a pipeline step. It is used in progress events and errors.
type Stage string

const (
	StageEncode    Stage = "encode"
	StageQuantize  Stage = "quantize"
	StageDecompose Stage = "decompose"
	StageLayout    Stage = "layout"
	StageEmit      Stage = "emit"
	StageExport    Stage = "export"
	StageUpload    Stage = "upload"
)

// StageError attaches the failing stage to an error.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// AtStage wraps err in a StageError unless it already carries one.
func AtStage(stage Stage, err error) error {
	if err == nil {
		return nil
	}
	var se *StageError
	if errors.As(err, &se) {
		return err
	}
	return &StageError{Stage: stage, Err: err}
}

// StageOf returns the stage recorded in err, or "" if there is none.
func StageOf(err error) Stage {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return ""
}
