package syncer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tszyrowski/mosync/pkg/types"
)

func seedBoth(t *testing.T, s testStores) {
	t.Helper()
	s.execSource(t,
		`INSERT INTO sides VALUES (1, 'Left'), (2, 'Right')`,
		`INSERT INTO questions VALUES (1, 1, 'Door?', '2024-01-01 00:00:00.000000')`,
		`INSERT INTO users VALUES (1, 'ann', 'x', NULL)`,
	)
	s.execTarget(t,
		`INSERT INTO sides VALUES (1, 'Left'), (2, 'Right')`,
		`INSERT INTO questions VALUES (1, 1, 'Door?')`,
		`INSERT INTO users VALUES (1, 'ann', 'x')`,
	)
}

func TestVerifier_Match(t *testing.T) {
	s := setupStores(t, types.UpsertNative)
	seedBoth(t, s)

	got, err := NewVerifier(s.src, s.tgt, VerifyOptions{}, nil).Verify(context.Background(), types.DefaultRegistry())
	require.NoError(t, err)
	require.Len(t, got, 3)
	for name, v := range got {
		assert.Equal(t, types.Match, v.Status, name)
		assert.Nil(t, v.SourceRows)
		assert.Nil(t, v.TargetRows)
	}
}

func TestVerifier_SingleCellMismatch(t *testing.T) {
	s := setupStores(t, types.UpsertNative)
	seedBoth(t, s)
	s.execTarget(t, `UPDATE questions SET question = 'Window?' WHERE id = 1`)

	got, err := NewVerifier(s.src, s.tgt, VerifyOptions{}, nil).Verify(context.Background(), types.DefaultRegistry())
	require.NoError(t, err)

	assert.Equal(t, types.Match, got[types.SidesTable].Status)
	assert.Equal(t, types.Match, got[types.UsersTable].Status)

	q := got[types.QuestionsTable]
	assert.Equal(t, types.Mismatch, q.Status)
	assert.Equal(t, []types.Record{{int64(1), int64(1), "Door?"}}, q.SourceRows)
	assert.Equal(t, []types.Record{{int64(1), int64(1), "Window?"}}, q.TargetRows)
}

func TestVerifier_RowCountMismatch(t *testing.T) {
	s := setupStores(t, types.UpsertNative)
	seedBoth(t, s)
	s.execTarget(t, `DELETE FROM sides WHERE id = 2`)

	got, err := NewVerifier(s.src, s.tgt, VerifyOptions{}, nil).Verify(context.Background(), types.DefaultRegistry())
	require.NoError(t, err)
	assert.Equal(t, types.Mismatch, got[types.SidesTable].Status)
}

func TestVerifier_Ordering(t *testing.T) {
	s := setupStores(t, types.UpsertNative)
	s.execSource(t, `CREATE TABLE tags (code TEXT PRIMARY KEY, label TEXT)`, `INSERT INTO tags VALUES ('a', 'A'), ('b', 'B')`)
	s.execTarget(t, `CREATE TABLE tags (code TEXT PRIMARY KEY, label TEXT)`, `INSERT INTO tags VALUES ('b', 'B'), ('a', 'A')`)
	specs := types.Registry{{Name: "tags", Columns: []string{"code", "label"}}}

	got, err := NewVerifier(s.src, s.tgt, VerifyOptions{}, nil).Verify(context.Background(), specs)
	require.NoError(t, err)
	assert.Equal(t, types.Mismatch, got["tags"].Status, "natural order is compared as stored")

	got, err = NewVerifier(s.src, s.tgt, VerifyOptions{OrderByKey: true}, nil).Verify(context.Background(), specs)
	require.NoError(t, err)
	assert.Equal(t, types.Match, got["tags"].Status)
}

func TestVerifier_ReadFailure(t *testing.T) {
	s := setupStores(t, types.UpsertNative)
	s.execTarget(t, `DROP TABLE users`)

	_, err := NewVerifier(s.src, s.tgt, VerifyOptions{}, nil).Verify(context.Background(), types.DefaultRegistry())
	require.Error(t, err)
	var se *types.SyncError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "verify", se.Op)
	assert.Equal(t, types.UsersTable, se.Table)
}

func TestNormalize(t *testing.T) {
	ts := time.Date(2025, 1, 1, 12, 0, 0, 0, time.FixedZone("X", 3600))

	tests := []struct {
		name string
		in   any
		want any
	}{
		{"int", 7, int64(7)},
		{"int32", int32(7), int64(7)},
		{"int64 unchanged", int64(7), int64(7)},
		{"float32", float32(1.5), float64(1.5)},
		{"bytes", []byte("abc"), "abc"},
		{"time to UTC", ts, ts.UTC()},
		{"nil", nil, nil},
		{"string unchanged", "abc", "abc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, normalize(tt.in))
		})
	}
}

func TestEqualRecords(t *testing.T) {
	assert.True(t, equalRecords([]types.Record{{int32(1), []byte("a")}}, []types.Record{{int64(1), "a"}}))
	assert.False(t, equalRecords([]types.Record{{int64(1)}}, []types.Record{{int64(2)}}))
	assert.False(t, equalRecords([]types.Record{{int64(1)}}, nil))
	assert.True(t, equalRecords([]types.Record{}, nil))
}
