package syncer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/tszyrowski/mosync/internal/logging"
	"github.com/tszyrowski/mosync/pkg/types"
)

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithClock replaces time.Now as the source of new watermarks.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// WithLogger sets the orchestrator's logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = logging.OrDiscard(l) }
}

// WithRunID replaces the run id generator.
func WithRunID(gen func() string) Option {
	return func(o *Orchestrator) { o.newRunID = gen }
}

// Orchestrator runs one incremental synchronization over a fixed registry.
type Orchestrator struct {
	tables    types.Registry
	extractor Extractor
	applier   Applier
	watermark WatermarkStore

	now      func() time.Time
	newRunID func() string
	logger   *slog.Logger

	running atomic.Bool

	mu    sync.Mutex
	state types.State
}

// NewOrchestrator wires the run components together. Tables are processed in
// the registry's order.
func NewOrchestrator(tables types.Registry, ex Extractor, ap Applier, wm WatermarkStore, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		tables:    tables,
		extractor: ex,
		applier:   ap,
		watermark: wm,
		now:       time.Now,
		newRunID:  newRunID,
		logger:    logging.Discard(),
		state:     types.StateIdle,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func newRunID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}

// State returns the state of the current or last run.
func (o *Orchestrator) State() types.State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *Orchestrator) setState(s types.State, r *types.Report) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
	if r != nil {
		r.State = s
	}
}

// Run reads the watermark once, then extracts and applies every table
// against it and, only if all tables succeeded, advances the watermark to
// the clock's reading after the last table. A failing table ends the run:
// tables before it stay committed and the watermark is left as it was.
//
// Run returns types.ErrRunInProgress while another Run is active.
func (o *Orchestrator) Run(ctx context.Context) (*types.Report, error) {
	if !o.running.CompareAndSwap(false, true) {
		return nil, types.ErrRunInProgress
	}
	defer o.running.Store(false)

	report := &types.Report{RunID: o.newRunID(), StartedAt: o.now().UTC()}
	logger := o.logger.With(logging.RunID(report.RunID))
	ctx = logging.NewContext(ctx, logger)

	err := o.run(ctx, logger, report)
	report.FinishedAt = o.now().UTC()
	if err != nil {
		o.setState(types.StateFailed, report)
		logger.Error("sync run failed", logging.Err(err))
		return report, err
	}
	o.setState(types.StateDone, report)
	logger.Info("sync run finished",
		logging.Count(report.Applied()),
		logging.Duration(report.FinishedAt.Sub(report.StartedAt)))
	return report, nil
}

func (o *Orchestrator) run(ctx context.Context, logger *slog.Logger, report *types.Report) error {
	o.setState(types.StateReadingWatermark, report)
	since, err := o.watermark.Read(ctx)
	if err != nil {
		return err
	}
	report.Since = since
	report.Watermark = since
	logger.Info("sync run started", slog.Time("since", since))

	for _, spec := range o.tables {
		if err := ctx.Err(); err != nil {
			return &types.SyncError{Table: spec.Name, Op: "extract", Err: err}
		}

		o.setState(types.StateExtracting, report)
		ex, err := o.extractor.Extract(ctx, spec, since)
		if err != nil {
			return err
		}
		tr := types.TableReport{Table: spec.Name, Extracted: len(ex.Records), FullResync: ex.FullResync}

		if len(ex.Records) > 0 {
			o.setState(types.StateApplying, report)
			n, err := o.applier.Apply(ctx, spec, ex.Records)
			if err != nil {
				return err
			}
			tr.Applied = n
		} else {
			logger.Debug("no changes", logging.Table(spec.Name))
		}
		report.Tables = append(report.Tables, tr)
	}

	o.setState(types.StateAdvancingWatermark, report)
	next := o.now().UTC()
	if next.Before(since) {
		next = since
	}
	if err := o.watermark.Write(ctx, next); err != nil {
		return fmt.Errorf("advance watermark: %w", err)
	}
	report.Watermark = next
	return nil
}
