// Package mosync is the public entry point for running a synchronization
// from another program, such as a desktop front end.
//
// Example:
//
//	cfg, err := config.Load(config.Options{})
//	...
//	res := mosync.Sync(ctx, cfg, logger)
//	switch res.Outcome {
//	case types.Success:
//	case types.Failure:
//	    log.Print(res.Cause)
//	case types.Timeout:
//	}
package mosync

import (
	"context"
	"log/slog"

	"github.com/tszyrowski/mosync/internal/logging"
	"github.com/tszyrowski/mosync/internal/store"
	"github.com/tszyrowski/mosync/internal/syncer"
	"github.com/tszyrowski/mosync/pkg/types"
)

// Version is the release version.
const Version = "0.1.0"

// VerifyOptions tunes Verify.
type VerifyOptions = syncer.VerifyOptions

// Sync runs one synchronization bounded by cfg.Timeout. The bound covers
// connecting to both stores as well as the run itself. Every error,
// including invalid configuration and unreachable stores, is reported as a
// Failure result.
func Sync(ctx context.Context, cfg types.Config, logger *slog.Logger) types.Result {
	logger = logging.OrDiscard(logger)

	p, err := store.NewProvider(cfg, logger)
	if err != nil {
		return failure(err)
	}
	cfg = p.Config()

	run := syncer.RunnerFunc(func(ctx context.Context) (*types.Report, error) {
		src, tgt, err := p.OpenBoth(ctx)
		if err != nil {
			return nil, err
		}
		defer src.Close()
		defer tgt.Close()

		e := syncer.NewEngine(src, tgt, cfg, logger)
		if err := e.Prepare(ctx); err != nil {
			return nil, err
		}
		return e.Orchestrator.Run(ctx)
	})
	return syncer.NewExecutor(run, cfg.Timeout, logger).Run(ctx)
}

// Verify compares every configured table between the two stores.
func Verify(ctx context.Context, cfg types.Config, opts VerifyOptions, logger *slog.Logger) (map[string]types.Verification, error) {
	logger = logging.OrDiscard(logger)

	src, tgt, err := open(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	defer src.Close()
	defer tgt.Close()

	return syncer.NewEngine(src, tgt, cfg, logger).Verify(ctx, opts)
}

func open(ctx context.Context, cfg types.Config, logger *slog.Logger) (*store.Source, *store.Target, error) {
	p, err := store.NewProvider(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return p.OpenBoth(ctx)
}

func failure(err error) types.Result {
	return types.Result{Outcome: types.Failure, Cause: err.Error(), Err: err}
}
