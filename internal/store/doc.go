// Package store opens the two databases a sync run talks to.
//
// The source is the local SQLite file written by the inspection
// application (modernc.org/sqlite, no cgo). The target is the central
// database, PostgreSQL through the pgx stdlib driver or SQLite for local
// targets and tests. Both are exposed as database/sql handles together with
// the target's Dialect, which the sync engine uses to build its statement
// templates.
//
// Connecting pings the store up to ConnectConfig.Retries times. A handle is
// only returned once a ping succeeded; otherwise the caller receives a
// *types.ConnectionError.
package store
