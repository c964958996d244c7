package syncer

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tszyrowski/mosync/pkg/types"
)

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// queryRecords runs query and scans every row into a Record of width n.
// An empty result is an empty, non-nil slice.
func queryRecords(ctx context.Context, q queryer, query string, n int, args ...any) ([]types.Record, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	if len(cols) != n {
		return nil, fmt.Errorf("query returned %d columns, expected %d", len(cols), n)
	}

	out := []types.Record{}
	for rows.Next() {
		rec := make(types.Record, n)
		ptrs := make([]any, n)
		for i := range rec {
			ptrs[i] = &rec[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
