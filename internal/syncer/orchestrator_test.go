package syncer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tszyrowski/mosync/pkg/types"
)

func newTestOrchestrator(s testStores, clock *fakeClock, ex Extractor) *Orchestrator {
	if ex == nil {
		ex = NewExtractor(s.src, types.SourceConfig{}, nil)
	}
	return NewOrchestrator(types.DefaultRegistry(), ex, NewApplier(s.tgt, nil),
		NewWatermark(s.tgt, types.WatermarkConfig{}),
		WithClock(clock.Now),
		WithRunID(func() string { return "run-1" }),
	)
}

func tableReport(t *testing.T, r *types.Report, name string) types.TableReport {
	t.Helper()
	for _, tr := range r.Tables {
		if tr.Table == name {
			return tr
		}
	}
	t.Fatalf("no report for table %s", name)
	return types.TableReport{}
}

func TestOrchestrator_SidesFullResendEveryRun(t *testing.T) {
	s := setupStores(t, types.UpsertNative)
	s.watermark(t)
	s.execSource(t, `INSERT INTO sides (id, side_name) VALUES (1, 'Left'), (2, 'Right')`)

	clock := newFakeClock(date(2025, 1, 1))
	orch := newTestOrchestrator(s, clock, nil)

	first, err := orch.Run(context.Background())
	require.NoError(t, err)
	sides := tableReport(t, first, types.SidesTable)
	assert.True(t, sides.FullResync)
	assert.Equal(t, 2, sides.Applied)

	clock.Set(date(2025, 1, 2))
	second, err := orch.Run(context.Background())
	require.NoError(t, err)
	sides = tableReport(t, second, types.SidesTable)
	assert.True(t, sides.FullResync)
	assert.Equal(t, 2, sides.Applied, "tables without a change indicator are resent in full")

	assert.Equal(t, []types.Record{{int64(1), "Left"}, {int64(2), "Right"}},
		s.targetRows(t, mustSpec(t, types.SidesTable)))
}

func TestOrchestrator_IncrementalRunIsIdempotent(t *testing.T) {
	s := setupStores(t, types.UpsertNative)
	s.watermark(t)
	s.execSource(t,
		`INSERT INTO questions (id, side_id, question, updated_at) VALUES
			(1, 1, 'Door closes?', '2024-06-01 10:00:00.000000'),
			(2, 1, 'Lights work?', '2024-06-02 10:00:00.000000')`,
	)

	clock := newFakeClock(date(2025, 1, 1))
	orch := newTestOrchestrator(s, clock, nil)

	first, err := orch.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, tableReport(t, first, types.QuestionsTable).Applied)
	assert.Equal(t, Epoch, first.Since)
	assert.Equal(t, date(2025, 1, 1), first.Watermark)
	assert.Equal(t, types.StateDone, orch.State())

	spec := mustSpec(t, types.QuestionsTable)
	before := s.targetRows(t, spec)

	clock.Set(date(2025, 1, 2))
	second, err := orch.Run(context.Background())
	require.NoError(t, err)
	q := tableReport(t, second, types.QuestionsTable)
	assert.Equal(t, 0, q.Extracted)
	assert.Equal(t, 0, q.Applied)
	assert.False(t, q.FullResync)
	assert.Equal(t, before, s.targetRows(t, spec))
}

func TestOrchestrator_UnstampedRowsAreNotResent(t *testing.T) {
	s := setupStores(t, types.UpsertNative)
	s.watermark(t)
	s.execSource(t, `INSERT INTO users (id, username, password, updated_at) VALUES (1, 'ann', 'x', NULL)`)

	clock := newFakeClock(date(2025, 1, 1))
	orch := newTestOrchestrator(s, clock, nil)
	_, err := orch.Run(context.Background())
	require.NoError(t, err)

	clock.Set(date(2025, 1, 2))
	second, err := orch.Run(context.Background())
	require.NoError(t, err)
	users := tableReport(t, second, types.UsersTable)
	assert.False(t, users.FullResync)
	assert.Equal(t, 0, users.Extracted)
	assert.Equal(t, 0, users.Applied)
}

func TestOrchestrator_PicksUpRowsChangedAfterWatermark(t *testing.T) {
	s := setupStores(t, types.UpsertNative)
	s.watermark(t)
	s.execSource(t, `INSERT INTO users (id, username, password, updated_at) VALUES (1, 'ann', 'x', '2024-06-01 10:00:00.000000')`)

	clock := newFakeClock(date(2025, 1, 1))
	orch := newTestOrchestrator(s, clock, nil)
	_, err := orch.Run(context.Background())
	require.NoError(t, err)

	s.execSource(t,
		`UPDATE users SET password = 'y', updated_at = '2025-01-01 12:00:00.000000' WHERE id = 1`,
		`INSERT INTO users (id, username, password, updated_at) VALUES (2, 'bob', 'z', '2025-01-01 13:00:00.000000')`,
	)
	clock.Set(date(2025, 1, 2))
	report, err := orch.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, tableReport(t, report, types.UsersTable).Applied)

	assert.Equal(t, []types.Record{
		{int64(1), "ann", "y"},
		{int64(2), "bob", "z"},
	}, s.targetRows(t, mustSpec(t, types.UsersTable)))
}

func TestOrchestrator_WatermarkMonotonic(t *testing.T) {
	s := setupStores(t, types.UpsertNative)
	wm := s.watermark(t)

	clock := newFakeClock(date(2025, 3, 1))
	orch := newTestOrchestrator(s, clock, nil)

	first, err := orch.Run(context.Background())
	require.NoError(t, err)

	clock.Set(date(2025, 3, 2))
	second, err := orch.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first.Watermark, second.Since, "each run starts where the last one ended")
	assert.True(t, second.Watermark.After(second.Since))

	// A clock that moved backwards never lowers the watermark.
	clock.Set(date(2024, 1, 1))
	third, err := orch.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, second.Watermark, third.Watermark)

	stored, err := wm.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, date(2025, 3, 2), stored)
}

func TestOrchestrator_FailureKeepsEarlierTablesAndWatermark(t *testing.T) {
	s := setupStores(t, types.UpsertNative)
	wm := s.watermark(t)
	s.execSource(t, `INSERT INTO sides (id, side_name) VALUES (1, 'Left')`)

	base := NewExtractor(s.src, types.SourceConfig{}, nil)
	ex := extractorFunc(func(ctx context.Context, spec types.TableSpec, since time.Time) (Extraction, error) {
		if spec.Name == types.QuestionsTable {
			return Extraction{Records: []types.Record{{int64(1), int64(1)}}}, nil
		}
		return base.Extract(ctx, spec, since)
	})

	orch := newTestOrchestrator(s, newFakeClock(date(2025, 1, 1)), ex)
	report, err := orch.Run(context.Background())
	require.Error(t, err)
	assert.True(t, types.IsRecordShapeError(err))
	assert.Equal(t, types.StateFailed, orch.State())
	assert.Equal(t, types.StateFailed, report.State)
	assert.Len(t, report.Tables, 1, "only sides completed")

	assert.Equal(t, []types.Record{{int64(1), "Left"}}, s.targetRows(t, mustSpec(t, types.SidesTable)))
	assert.Empty(t, s.targetRows(t, mustSpec(t, types.QuestionsTable)))

	stored, err := wm.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Epoch, stored)
}

func TestOrchestrator_ExtractErrorEndsRun(t *testing.T) {
	s := setupStores(t, types.UpsertNative)
	wm := s.watermark(t)
	s.execSource(t, `DROP TABLE users`)

	orch := newTestOrchestrator(s, newFakeClock(date(2025, 1, 1)), nil)
	_, err := orch.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrTableNotFound)

	var se *types.SyncError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, types.UsersTable, se.Table)
	assert.Equal(t, "extract", se.Op)

	stored, err := wm.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Epoch, stored)
}

func TestOrchestrator_RejectsConcurrentRun(t *testing.T) {
	s := setupStores(t, types.UpsertNative)
	s.watermark(t)

	entered := make(chan struct{}, 1)
	release := make(chan struct{})
	ex := extractorFunc(func(ctx context.Context, spec types.TableSpec, since time.Time) (Extraction, error) {
		select {
		case entered <- struct{}{}:
		default:
		}
		<-release
		return Extraction{}, nil
	})
	orch := newTestOrchestrator(s, newFakeClock(date(2025, 1, 1)), ex)

	errc := make(chan error, 1)
	go func() {
		_, err := orch.Run(context.Background())
		errc <- err
	}()
	<-entered
	assert.Equal(t, types.StateExtracting, orch.State())

	report, err := orch.Run(context.Background())
	assert.ErrorIs(t, err, types.ErrRunInProgress)
	assert.Nil(t, report)

	close(release)
	require.NoError(t, <-errc)

	_, err = orch.Run(context.Background())
	assert.NoError(t, err, "lock is released after the run")
}

func TestOrchestrator_CancelledContext(t *testing.T) {
	s := setupStores(t, types.UpsertNative)
	s.watermark(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	orch := newTestOrchestrator(s, newFakeClock(date(2025, 1, 1)), nil)
	_, err := orch.Run(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, types.StateFailed, orch.State())
}

func TestNewRunID(t *testing.T) {
	a, b := newRunID(), newRunID()
	assert.Len(t, a, 36)
	assert.NotEqual(t, a, b)
}
