package model

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderFailedError(t *testing.T) {
	err := &RenderFailedError{ExitCode: 1, Stderr: "ERROR: Parser error\n"}

	assert.ErrorIs(t, err, ErrRenderFailed)
	assert.NotErrorIs(t, err, ErrRenderTimeout)
	assert.Equal(t, "render failed (exit code 1): ERROR: Parser error", err.Error())

	wrapped := fmt.Errorf("export: %w", err)
	var rf *RenderFailedError
	assert.True(t, errors.As(wrapped, &rf))
	assert.Equal(t, 1, rf.ExitCode)

	missing := &RenderFailedError{Reason: "no output file"}
	assert.Equal(t, "render failed: no output file", missing.Error())
}

func TestStageError(t *testing.T) {
	err := AtStage(StageQuantize, fmt.Errorf("%w: no stable module count", ErrUnreadableGrid))

	assert.ErrorIs(t, err, ErrUnreadableGrid)
	assert.Equal(t, StageQuantize, StageOf(err))
	assert.Equal(t, "quantize: unreadable grid: no stable module count", err.Error())

	// An error that already names its stage keeps it.
	again := AtStage(StageExport, err)
	assert.Equal(t, StageQuantize, StageOf(again))

	assert.NoError(t, AtStage(StageEmit, nil))
	assert.Equal(t, Stage(""), StageOf(errors.New("plain")))
}
