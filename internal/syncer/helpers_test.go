package syncer

import (
	"context"
	"database/sql"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tszyrowski/mosync/internal/store"
	"github.com/tszyrowski/mosync/pkg/types"
)

var fastConnect = types.ConnectConfig{Retries: 1, Delay: time.Millisecond}

var sourceSchema = []string{
	`CREATE TABLE sides (id INTEGER PRIMARY KEY, side_name TEXT)`,
	`CREATE TABLE questions (id INTEGER PRIMARY KEY, side_id INTEGER, question TEXT, updated_at TEXT)`,
	`CREATE TABLE users (id INTEGER PRIMARY KEY, username TEXT, password TEXT, updated_at TEXT)`,
}

var targetSchema = []string{
	`CREATE TABLE sides (id INTEGER PRIMARY KEY, side_name TEXT)`,
	`CREATE TABLE questions (id INTEGER PRIMARY KEY, side_id INTEGER, question TEXT)`,
	`CREATE TABLE users (id INTEGER PRIMARY KEY, username TEXT, password TEXT)`,
}

// testStores holds an opened source and target, both SQLite files.
type testStores struct {
	src *store.Source
	tgt *store.Target
}

func createDB(t *testing.T, name string, stmts []string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()
	for _, stmt := range stmts {
		_, err := db.Exec(stmt)
		require.NoError(t, err)
	}
	return path
}

// setupStores creates and opens both stores with the default registry's
// tables. upsert selects the target's merge mode.
func setupStores(t *testing.T, upsert string) testStores {
	t.Helper()
	ctx := context.Background()

	src, err := store.OpenSource(ctx, types.SourceConfig{Path: createDB(t, "local.db", sourceSchema)}, fastConnect, nil)
	require.NoError(t, err)
	t.Cleanup(func() { src.Close() })

	tgt, err := store.OpenTarget(ctx, types.TargetConfig{
		Driver: types.DriverSQLite,
		Path:   createDB(t, "central.db", targetSchema),
		Upsert: upsert,
	}, fastConnect, nil)
	require.NoError(t, err)
	t.Cleanup(func() { tgt.Close() })

	return testStores{src: src, tgt: tgt}
}

func (s testStores) execSource(t *testing.T, stmts ...string) {
	t.Helper()
	for _, stmt := range stmts {
		_, err := s.src.DB().Exec(stmt)
		require.NoError(t, err)
	}
}

func (s testStores) execTarget(t *testing.T, stmts ...string) {
	t.Helper()
	for _, stmt := range stmts {
		_, err := s.tgt.DB().Exec(stmt)
		require.NoError(t, err)
	}
}

func (s testStores) targetRows(t *testing.T, spec types.TableSpec) []types.Record {
	t.Helper()
	p := buildPlan(spec, "", s.tgt.Dialect())
	recs, err := queryRecords(context.Background(), s.tgt.DB(), p.targetQuery(true), len(spec.Columns))
	require.NoError(t, err)
	return recs
}

func (s testStores) watermark(t *testing.T) *SQLWatermark {
	t.Helper()
	wm := NewWatermark(s.tgt, types.WatermarkConfig{})
	require.NoError(t, wm.Ensure(context.Background()))
	return wm
}

func mustSpec(t *testing.T, name string) types.TableSpec {
	t.Helper()
	spec, ok := types.DefaultRegistry().Lookup(name)
	require.True(t, ok, name)
	return spec
}

// fakeClock reports a settable instant.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(t time.Time) *fakeClock {
	return &fakeClock{now: t}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// extractorFunc adapts a function to Extractor.
type extractorFunc func(ctx context.Context, spec types.TableSpec, since time.Time) (Extraction, error)

func (f extractorFunc) Extract(ctx context.Context, spec types.TableSpec, since time.Time) (Extraction, error) {
	return f(ctx, spec, since)
}
