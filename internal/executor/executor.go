// Package executor runs batches of card requests on a bounded worker pool.
package executor

import (
	"context"
	"sync"

	"github.com/vk/qr3d/internal/ctxlog"
	"github.com/vk/qr3d/internal/pipeline"
)

// Runner executes a single request. *pipeline.Pipeline implements it.
type Runner interface {
	Run(ctx context.Context, req pipeline.Request) *pipeline.Result
}

// Executor fans requests out to a fixed number of workers.
type Executor struct {
	runner   Runner
	workers  int
	failFast bool
}

// Option configures an Executor.
type Option func(*Executor)

// WithWorkers sets the pool size. Values below one mean one worker.
func WithWorkers(n int) Option {
	return func(e *Executor) { e.workers = max(n, 1) }
}

// WithFailFast makes the first failed run skip every request not yet
// started.
func WithFailFast(on bool) Option {
	return func(e *Executor) { e.failFast = on }
}

// New creates an Executor with a single worker by default.
func New(runner Runner, opts ...Option) *Executor {
	e := &Executor{runner: runner, workers: 1}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type job struct {
	index int
	req   pipeline.Request
}

// Execute runs every request and returns the results in request order.
// Requests skipped because the context ended, or because an earlier run
// failed in fail-fast mode, get a Result carrying that cause.
func (e *Executor) Execute(ctx context.Context, reqs []pipeline.Request) []*pipeline.Result {
	logger := ctxlog.FromContext(ctx)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make([]*pipeline.Result, len(reqs))
	jobs := make(chan job)
	var wg sync.WaitGroup

	workers := min(e.workers, max(len(reqs), 1))
	logger.Debug("Starting workers.", "count", workers, "jobs", len(reqs))
	for id := 1; id <= workers; id++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e.worker(ctx, jobs, results, cancel, id)
		}()
	}

	for i, req := range reqs {
		jobs <- job{index: i, req: req}
	}
	close(jobs)
	wg.Wait()
	return results
}

// worker is the processing loop for a single concurrent worker.
func (e *Executor) worker(ctx context.Context, jobs <-chan job, results []*pipeline.Result, cancel context.CancelFunc, workerID int) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Worker started.", "workerID", workerID)

	for j := range jobs {
		workerLogger := logger.With("workerID", workerID, "job", j.req.Job, "index", j.index)

		if err := context.Cause(ctx); err != nil {
			workerLogger.Debug("Skipping job.", "reason", err)
			results[j.index] = pipeline.Skipped(j.req, err)
			continue
		}

		workerLogger.Debug("Worker picked up job.")
		res := e.runner.Run(ctxlog.WithLogger(ctx, workerLogger), j.req)
		results[j.index] = res
		if !res.OK() && e.failFast {
			workerLogger.Debug("Cancelling remaining jobs after failure.")
			cancel()
		}
	}
	logger.Debug("Worker finished.", "workerID", workerID)
}

// Failed counts the results carrying an error.
func Failed(results []*pipeline.Result) int {
	n := 0
	for _, r := range results {
		if r != nil && !r.OK() {
			n++
		}
	}
	return n
}
