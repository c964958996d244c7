// Package logging builds the structured loggers injected into mosync
// components.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// Options configures a logger.
type Options struct {
	// Level sets the minimum log level. Defaults to Info.
	Level slog.Level
	// Output defaults to os.Stderr.
	Output io.Writer
	// JSON switches from text to JSON records.
	JSON bool
	// AddSource includes the source file and line.
	AddSource bool
}

// New creates a logger with the given options.
func New(opts Options) *slog.Logger {
	if opts.Output == nil {
		opts.Output = os.Stderr
	}

	handlerOpts := &slog.HandlerOptions{
		Level:     opts.Level,
		AddSource: opts.AddSource,
	}

	var handler slog.Handler
	if opts.JSON {
		handler = slog.NewJSONHandler(opts.Output, handlerOpts)
	} else {
		handler = slog.NewTextHandler(opts.Output, handlerOpts)
	}
	return slog.New(handler)
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

// OrDiscard returns l, or a discarding logger when l is nil.
func OrDiscard(l *slog.Logger) *slog.Logger {
	if l == nil {
		return Discard()
	}
	return l
}

// ParseLevel maps "debug", "info", "warn" and "error" to slog levels.
// Unknown values map to Info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type loggerKey struct{}

// NewContext returns a context carrying logger.
func NewContext(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// FromContext returns the logger stored in ctx, or fallback.
func FromContext(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok && l != nil {
		return l
	}
	return OrDiscard(fallback)
}

// Attribute keys shared across packages.
const (
	KeyRunID    = "run_id"
	KeyTable    = "table"
	KeyStore    = "store"
	KeyCount    = "count"
	KeyError    = "error"
	KeyDuration = "duration"
	KeyOutcome  = "outcome"
)

// RunID returns the run correlation attribute.
func RunID(id string) slog.Attr { return slog.String(KeyRunID, id) }

// Table returns a table name attribute.
func Table(name string) slog.Attr { return slog.String(KeyTable, name) }

// Store returns a store name attribute ("source" or "target").
func Store(name string) slog.Attr { return slog.String(KeyStore, name) }

// Count returns an item count attribute.
func Count(n int) slog.Attr { return slog.Int(KeyCount, n) }

// Duration returns a duration attribute.
func Duration(d time.Duration) slog.Attr { return slog.Duration(KeyDuration, d) }

// Err returns an error attribute. A nil error yields an empty attribute,
// which slog omits.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any(KeyError, err)
}
