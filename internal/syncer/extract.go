package syncer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tszyrowski/mosync/internal/logging"
	"github.com/tszyrowski/mosync/internal/store"
	"github.com/tszyrowski/mosync/pkg/types"
)

// Extraction is the result of reading one table from the source.
type Extraction struct {
	Records []types.Record
	// FullResync is set when the table has no change indicator and every row
	// was read.
	FullResync bool
}

// Extractor reads the rows of a table changed since a watermark.
type Extractor interface {
	Extract(ctx context.Context, spec types.TableSpec, since time.Time) (Extraction, error)
}

// SQLExtractor extracts from the SQLite source. Rows come back ordered by
// primary key so identical inputs give identical batches.
type SQLExtractor struct {
	source *store.Source
	layout string
	loc    *time.Location
	plans  *planCache
	logger *slog.Logger
}

// NewExtractor returns an extractor over source. The watermark is rendered
// in cfg's timestamp layout and time zone before it is compared with the
// change indicator's stored text. An unknown zone falls back to UTC.
func NewExtractor(source *store.Source, cfg types.SourceConfig, logger *slog.Logger) *SQLExtractor {
	logger = logging.OrDiscard(logger)
	layout := cfg.TimestampLayout
	if layout == "" {
		layout = types.DefaultTimestampLayout
	}
	loc, err := cfg.Location()
	if err != nil {
		logger.Warn("unknown source timezone, using UTC", logging.Err(err))
		loc = time.UTC
	}
	return &SQLExtractor{
		source: source,
		layout: layout,
		loc:    loc,
		// The source is always SQLite and its table names are never qualified.
		plans:  newPlanCache("", store.SQLite),
		logger: logger,
	}
}

// Extract inspects the source schema for spec's change indicator. With an
// indicator it reads rows newer than since (plus unstamped rows when the
// table opts in); without one it reads the whole table.
func (e *SQLExtractor) Extract(ctx context.Context, spec types.TableSpec, since time.Time) (Extraction, error) {
	logger := logging.FromContext(ctx, e.logger).With(logging.Table(spec.Name))

	cols, err := e.source.Columns(ctx, spec.Name)
	if err != nil {
		return Extraction{}, &types.SyncError{Table: spec.Name, Op: "extract", Err: err}
	}
	if len(cols) == 0 {
		return Extraction{}, &types.SyncError{Table: spec.Name, Op: "extract", Err: types.ErrTableNotFound}
	}

	p := e.plans.get(spec)
	hasIndicator := contains(cols, spec.Indicator())

	var records []types.Record
	if hasIndicator {
		bound := since.In(e.loc).Format(e.layout)
		logger.Debug("incremental extract", slog.String("since", bound))
		records, err = queryRecords(ctx, e.source.DB(), p.selectSince, len(spec.Columns), bound)
	} else {
		logger.Warn(fmt.Sprintf("table has no %s column, fetching all records", spec.Indicator()))
		records, err = queryRecords(ctx, e.source.DB(), p.selectAll, len(spec.Columns))
	}
	if err != nil {
		return Extraction{}, &types.SyncError{Table: spec.Name, Op: "extract", Err: err}
	}

	logger.Debug("extracted records", logging.Count(len(records)))
	return Extraction{Records: records, FullResync: !hasIndicator}, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
