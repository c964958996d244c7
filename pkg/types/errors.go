package types

import (
	"errors"
	"fmt"
	"strings"
)

// Registry validation errors.
var (
	ErrInvalidIdentifier = errors.New("invalid identifier")
	ErrEmptyColumns      = errors.New("table must list at least one column")
	ErrDuplicateColumn   = errors.New("duplicate column")
	ErrDuplicateTable    = errors.New("duplicate table")
)

// Run errors.
var (
	// ErrRunInProgress is returned when a run is requested while another run
	// against the same target has not finished.
	ErrRunInProgress = errors.New("sync run already in progress")

	// ErrTableNotFound is returned when a synchronized table is missing from
	// the source store.
	ErrTableNotFound = errors.New("table not found")
)

// ConfigurationError reports missing or invalid connection parameters. It is
// raised before any I/O takes place.
type ConfigurationError struct {
	// Missing lists the configuration keys that were absent.
	Missing []string
	// Reason describes an invalid value when nothing is missing.
	Reason string
}

func (e *ConfigurationError) Error() string {
	switch {
	case len(e.Missing) > 0 && e.Reason != "":
		return fmt.Sprintf("configuration: missing %s; %s", strings.Join(e.Missing, ", "), e.Reason)
	case len(e.Missing) > 0:
		return fmt.Sprintf("configuration: missing %s", strings.Join(e.Missing, ", "))
	default:
		return "configuration: " + e.Reason
	}
}

// ConnectionError reports a store that could not be reached after the
// configured number of attempts.
type ConnectionError struct {
	Store    string // "source" or "target"
	Attempts int
	Err      error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connect %s store (%d attempts): %v", e.Store, e.Attempts, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// RecordShapeError reports a record whose arity differs from its table's
// column list. It aborts the table's apply.
type RecordShapeError struct {
	Table    string
	Record   Record
	Expected int
}

func (e *RecordShapeError) Error() string {
	return fmt.Sprintf("table %s: record %v has %d values, expected %d", e.Table, []any(e.Record), len(e.Record), e.Expected)
}

// SyncError reports a data-layer failure while extracting from or applying to
// a table. The table's transaction has been rolled back.
type SyncError struct {
	Table string
	Op    string // "extract", "apply", "watermark"
	Err   error
}

func (e *SyncError) Error() string {
	if e.Table == "" {
		return fmt.Sprintf("sync %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("sync %s %s: %v", e.Op, e.Table, e.Err)
}

func (e *SyncError) Unwrap() error { return e.Err }

// IsConfigurationError reports whether err wraps a ConfigurationError.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

// IsConnectionError reports whether err wraps a ConnectionError.
func IsConnectionError(err error) bool {
	var ce *ConnectionError
	return errors.As(err, &ce)
}

// IsRecordShapeError reports whether err wraps a RecordShapeError.
func IsRecordShapeError(err error) bool {
	var re *RecordShapeError
	return errors.As(err, &re)
}
