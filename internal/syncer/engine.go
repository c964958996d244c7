package syncer

import (
	"context"
	"log/slog"

	"github.com/tszyrowski/mosync/internal/logging"
	"github.com/tszyrowski/mosync/internal/store"
	"github.com/tszyrowski/mosync/pkg/types"
)

// Engine bundles the components of a synchronization between two open
// stores. It does not own the stores.
type Engine struct {
	Tables       types.Registry
	Watermark    *SQLWatermark
	Orchestrator *Orchestrator
	Executor     *Executor

	source *store.Source
	target *store.Target
	logger *slog.Logger
}

// NewEngine builds an engine from cfg. cfg is expected to be validated.
func NewEngine(source *store.Source, target *store.Target, cfg types.Config, logger *slog.Logger, opts ...Option) *Engine {
	cfg = cfg.WithDefaults()
	logger = logging.OrDiscard(logger)

	wm := NewWatermark(target, cfg.Watermark)
	orch := NewOrchestrator(cfg.Tables,
		NewExtractor(source, cfg.Source, logger),
		NewApplier(target, logger),
		wm,
		append([]Option{WithLogger(logger)}, opts...)...)

	return &Engine{
		Tables:       cfg.Tables,
		Watermark:    wm,
		Orchestrator: orch,
		Executor:     NewExecutor(orch, cfg.Timeout, logger),
		source:       source,
		target:       target,
		logger:       logger,
	}
}

// Prepare creates the watermark table on the target if needed.
func (e *Engine) Prepare(ctx context.Context) error {
	return e.Watermark.Ensure(ctx)
}

// Sync prepares the target and runs one bounded synchronization.
func (e *Engine) Sync(ctx context.Context) types.Result {
	if err := e.Prepare(ctx); err != nil {
		return types.Result{Outcome: types.Failure, Cause: err.Error(), Err: err}
	}
	return e.Executor.Run(ctx)
}

// Verify compares every registered table.
func (e *Engine) Verify(ctx context.Context, opts VerifyOptions) (map[string]types.Verification, error) {
	return NewVerifier(e.source, e.target, opts, e.logger).Verify(ctx, e.Tables)
}
