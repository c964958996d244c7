package syncer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/tszyrowski/mosync/internal/store"
	"github.com/tszyrowski/mosync/pkg/types"
)

// Epoch is the watermark of a target that was never synchronized.
var Epoch = time.Unix(0, 0).UTC()

// WatermarkStore persists the last successful synchronization instant.
type WatermarkStore interface {
	// Read returns the stored watermark, or Epoch when none exists.
	Read(ctx context.Context) (time.Time, error)
	// Write stores t as the watermark.
	Write(ctx context.Context, t time.Time) error
}

// SQLWatermark keeps the watermark in a single-row table of the target,
// (sync_id, last_sync), keyed by a fixed id.
type SQLWatermark struct {
	db      *sql.DB
	dialect store.Dialect
	key     int64

	create string
	read   string
	upsert string
	update string
	insert string
}

// NewWatermark returns the watermark store for cfg on target.
func NewWatermark(target *store.Target, cfg types.WatermarkConfig) *SQLWatermark {
	if cfg.Table == "" {
		cfg.Table = types.DefaultWatermarkTable
	}
	d := target.Dialect()
	table := target.Qualify(cfg.Table)

	return &SQLWatermark{
		db:      target.DB(),
		dialect: d,
		key:     cfg.ID(),
		create: fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (sync_id INTEGER PRIMARY KEY, last_sync %s)",
			table, d.TimestampType),
		read: fmt.Sprintf("SELECT last_sync FROM %s WHERE sync_id = %s", table, d.Placeholder(1)),
		upsert: fmt.Sprintf("INSERT INTO %s (sync_id, last_sync) VALUES (%s) ON CONFLICT (sync_id) DO UPDATE SET last_sync = EXCLUDED.last_sync",
			table, d.Placeholders(1, 2)),
		update: fmt.Sprintf("UPDATE %s SET last_sync = %s WHERE sync_id = %s", table, d.Placeholder(1), d.Placeholder(2)),
		insert: fmt.Sprintf("INSERT INTO %s (sync_id, last_sync) VALUES (%s)", table, d.Placeholders(1, 2)),
	}
}

// Ensure creates the watermark table when it does not exist.
func (w *SQLWatermark) Ensure(ctx context.Context) error {
	if _, err := w.db.ExecContext(ctx, w.create); err != nil {
		return &types.SyncError{Op: "watermark", Err: fmt.Errorf("create table: %w", err)}
	}
	return nil
}

// Read returns the stored watermark. A missing row or NULL value reads as
// Epoch.
func (w *SQLWatermark) Read(ctx context.Context) (time.Time, error) {
	var v any
	err := w.db.QueryRowContext(ctx, w.read, w.key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && v == nil) {
		return Epoch, nil
	}
	if err != nil {
		return time.Time{}, &types.SyncError{Op: "watermark", Err: fmt.Errorf("read: %w", err)}
	}
	t, err := store.DecodeTime(v)
	if err != nil {
		return time.Time{}, &types.SyncError{Op: "watermark", Err: fmt.Errorf("read: %w", err)}
	}
	return t, nil
}

// Write stores t in one atomic statement, or in one transaction on targets
// without native upsert.
func (w *SQLWatermark) Write(ctx context.Context, t time.Time) error {
	val := w.dialect.EncodeTime(t)

	if w.dialect.NativeUpsert {
		if _, err := w.db.ExecContext(ctx, w.upsert, w.key, val); err != nil {
			return &types.SyncError{Op: "watermark", Err: fmt.Errorf("write: %w", err)}
		}
		return nil
	}

	tx, err := w.db.BeginTx(ctx, &sql.TxOptions{Isolation: w.dialect.CheckIsolation})
	if err != nil {
		return &types.SyncError{Op: "watermark", Err: fmt.Errorf("begin: %w", err)}
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, w.update, val, w.key)
	if err != nil {
		return &types.SyncError{Op: "watermark", Err: fmt.Errorf("update: %w", err)}
	}
	if n, err := res.RowsAffected(); err != nil {
		return &types.SyncError{Op: "watermark", Err: fmt.Errorf("rows affected: %w", err)}
	} else if n == 0 {
		if _, err := tx.ExecContext(ctx, w.insert, w.key, val); err != nil {
			return &types.SyncError{Op: "watermark", Err: fmt.Errorf("insert: %w", err)}
		}
	}
	if err := tx.Commit(); err != nil {
		return &types.SyncError{Op: "watermark", Err: fmt.Errorf("commit: %w", err)}
	}
	return nil
}
