package syncer

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/tszyrowski/mosync/internal/logging"
	"github.com/tszyrowski/mosync/internal/store"
	"github.com/tszyrowski/mosync/pkg/types"
)

// Applier merges a batch of records into one target table.
type Applier interface {
	// Apply writes every record or none of them and returns the number
	// applied.
	Apply(ctx context.Context, spec types.TableSpec, records []types.Record) (int, error)
}

// SQLApplier upserts into the target keyed on each table's first column.
// Matching rows get every non-key column overwritten; others are inserted.
type SQLApplier struct {
	target *store.Target
	plans  *planCache
	logger *slog.Logger
}

// NewApplier returns an applier for target.
func NewApplier(target *store.Target, logger *slog.Logger) *SQLApplier {
	return &SQLApplier{
		target: target,
		plans:  newPlanCache(target.Schema(), target.Dialect()),
		logger: logging.OrDiscard(logger),
	}
}

// Apply runs inside one transaction. A record of the wrong arity yields a
// *types.RecordShapeError, any data-layer failure a *types.SyncError; both
// roll the whole table back.
func (a *SQLApplier) Apply(ctx context.Context, spec types.TableSpec, records []types.Record) (applied int, err error) {
	logger := logging.FromContext(ctx, a.logger).With(logging.Table(spec.Name))
	p := a.plans.get(spec)
	d := a.target.Dialect()

	opts := &sql.TxOptions{}
	if !d.NativeUpsert {
		opts.Isolation = d.CheckIsolation
	}
	tx, err := a.target.DB().BeginTx(ctx, opts)
	if err != nil {
		return 0, &types.SyncError{Table: spec.Name, Op: "apply", Err: fmt.Errorf("begin: %w", err)}
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
				logger.Error("rollback failed", logging.Err(rbErr))
			}
			logger.Error("error syncing records", logging.Err(err))
		}
	}()

	w, err := newWriter(ctx, tx, p, d.NativeUpsert)
	if err != nil {
		return 0, &types.SyncError{Table: spec.Name, Op: "apply", Err: err}
	}
	defer w.close()

	for _, rec := range records {
		if len(rec) != len(spec.Columns) {
			return 0, &types.RecordShapeError{Table: spec.Name, Record: rec, Expected: len(spec.Columns)}
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return 0, &types.SyncError{Table: spec.Name, Op: "apply", Err: ctxErr}
		}
		if err := w.write(ctx, rec); err != nil {
			return 0, &types.SyncError{Table: spec.Name, Op: "apply", Err: err}
		}
		logger.Debug("record upserted", slog.Any("key", rec[0]))
	}

	if err := tx.Commit(); err != nil {
		return 0, &types.SyncError{Table: spec.Name, Op: "apply", Err: fmt.Errorf("commit: %w", err)}
	}
	logger.Info(fmt.Sprintf("synced %d records to %s", len(records), p.target), logging.Count(len(records)))
	return len(records), nil
}

// writer holds the statements prepared for one table's transaction.
type writer struct {
	native bool
	pkOnly bool

	upsert *sql.Stmt
	exists *sql.Stmt
	update *sql.Stmt
	insert *sql.Stmt
}

func newWriter(ctx context.Context, tx *sql.Tx, p plan, native bool) (*writer, error) {
	w := &writer{native: native, pkOnly: p.update == ""}
	var err error

	if native {
		if w.upsert, err = tx.PrepareContext(ctx, p.upsert); err != nil {
			return nil, fmt.Errorf("prepare upsert: %w", err)
		}
		return w, nil
	}

	if w.exists, err = tx.PrepareContext(ctx, p.exists); err != nil {
		return nil, fmt.Errorf("prepare exists: %w", err)
	}
	if !w.pkOnly {
		if w.update, err = tx.PrepareContext(ctx, p.update); err != nil {
			w.close()
			return nil, fmt.Errorf("prepare update: %w", err)
		}
	}
	if w.insert, err = tx.PrepareContext(ctx, p.insert); err != nil {
		w.close()
		return nil, fmt.Errorf("prepare insert: %w", err)
	}
	return w, nil
}

func (w *writer) write(ctx context.Context, rec types.Record) error {
	if w.native {
		_, err := w.upsert.ExecContext(ctx, rec...)
		return err
	}

	var one int
	err := w.exists.QueryRowContext(ctx, rec[0]).Scan(&one)
	switch {
	case err == sql.ErrNoRows:
		_, err = w.insert.ExecContext(ctx, rec...)
		return err
	case err != nil:
		return fmt.Errorf("check existing: %w", err)
	case w.pkOnly:
		return nil
	default:
		_, err = w.update.ExecContext(ctx, updateArgs(rec)...)
		return err
	}
}

func (w *writer) close() {
	for _, s := range []*sql.Stmt{w.upsert, w.exists, w.update, w.insert} {
		if s != nil {
			s.Close()
		}
	}
}
