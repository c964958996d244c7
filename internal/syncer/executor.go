package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tszyrowski/mosync/internal/logging"
	"github.com/tszyrowski/mosync/pkg/types"
)

// Runner is one synchronization run.
type Runner interface {
	Run(ctx context.Context) (*types.Report, error)
}

// RunnerFunc adapts a function to Runner.
type RunnerFunc func(ctx context.Context) (*types.Report, error)

// Run calls f.
func (f RunnerFunc) Run(ctx context.Context) (*types.Report, error) { return f(ctx) }

// Executor bounds a run's wall time.
type Executor struct {
	runner  Runner
	timeout time.Duration
	logger  *slog.Logger
}

// NewExecutor returns an executor giving runner at most timeout. A
// non-positive timeout means types.DefaultTimeout.
func NewExecutor(runner Runner, timeout time.Duration, logger *slog.Logger) *Executor {
	if timeout <= 0 {
		timeout = types.DefaultTimeout
	}
	return &Executor{runner: runner, timeout: timeout, logger: logging.OrDiscard(logger)}
}

// Timeout returns the configured bound.
func (e *Executor) Timeout() time.Duration { return e.timeout }

type runResult struct {
	report *types.Report
	err    error
}

// Run starts the runner on its own goroutine and waits for whichever comes
// first: the run finishing, the timeout, or ctx being done. On timeout the
// run's context is cancelled and Run returns without waiting for it; the run
// stops at its next I/O boundary and its transaction is rolled back.
func (e *Executor) Run(ctx context.Context) types.Result {
	start := time.Now()
	runCtx, cancel := context.WithCancel(ctx)

	done := make(chan runResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- runResult{err: fmt.Errorf("sync panicked: %v", r)}
			}
		}()
		report, err := e.runner.Run(runCtx)
		done <- runResult{report: report, err: err}
	}()

	timer := time.NewTimer(e.timeout)
	defer timer.Stop()

	select {
	case res := <-done:
		cancel()
		return e.finish(res, start)
	case <-timer.C:
		cancel()
		e.logger.Warn("sync timed out", logging.Duration(e.timeout))
		return types.Result{
			Outcome: types.Timeout,
			Cause:   fmt.Sprintf("timed out after %s", e.timeout),
			Err:     context.DeadlineExceeded,
			Elapsed: time.Since(start),
		}
	case <-ctx.Done():
		cancel()
		err := context.Cause(ctx)
		e.logger.Warn("sync cancelled", logging.Err(err))
		return types.Result{
			Outcome: types.Failure,
			Cause:   err.Error(),
			Err:     err,
			Elapsed: time.Since(start),
		}
	}
}

func (e *Executor) finish(res runResult, start time.Time) types.Result {
	r := types.Result{Report: res.report, Elapsed: time.Since(start)}
	if res.err == nil {
		r.Outcome = types.Success
		e.logger.Info("sync successful", logging.Duration(r.Elapsed))
		return r
	}
	r.Outcome = types.Failure
	r.Err = res.err
	r.Cause = res.err.Error()
	if errors.Is(res.err, types.ErrRunInProgress) {
		e.logger.Warn("sync skipped", logging.Err(res.err))
	} else {
		e.logger.Error("sync failed", logging.Err(res.err))
	}
	return r
}
