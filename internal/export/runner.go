package export

import (
	"context"

	"github.com/input-output-hk/catalyst-forge-libs/executor"
)

// Runner starts the renderer binary with args and waits for it. A non-zero
// exit returns both the result and an error.
type Runner interface {
	Run(ctx context.Context, binary string, args ...string) (*executor.Result, error)
}

// processRunner runs the renderer as a child process with captured output.
type processRunner struct{}

func (processRunner) Run(ctx context.Context, binary string, args ...string) (*executor.Result, error) {
	return executor.New(binary, args...).Execute(ctx, executor.SilentMode())
}
