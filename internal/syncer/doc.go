// Package syncer copies rows from the local SQLite store into the central
// database.
//
// A run reads the watermark once, then walks the table registry in order:
// the extractor returns the rows whose change indicator is newer than the
// watermark (or every row when the table has no indicator), and the applier
// merges them into the target inside one transaction per table, keyed on the
// first column. When every table succeeded the watermark advances to the
// clock reading taken after the last table. A failure leaves earlier tables
// committed and the watermark untouched, so the next run retries the same
// window (at-least-once delivery).
//
// The Executor bounds a run in wall-clock time. On expiry the caller gets
// Timeout immediately while the run's context is cancelled; a statement
// already inside the driver may still finish.
//
// The Verifier compares both stores table by table without writing.
package syncer
