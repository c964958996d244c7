package store

import (
	"context"
	"database/sql"
	"fmt"
)

// Tables lists the user tables of the source store.
func (s *Source) Tables(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list source tables: %w", err)
	}
	return scanStrings(rows)
}

// Columns returns the column names of a source table in declaration order.
// A table that does not exist has no columns.
func (s *Source) Columns(ctx context.Context, table string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM pragma_table_info(?) ORDER BY cid`, table)
	if err != nil {
		return nil, fmt.Errorf("read columns of %s: %w", table, err)
	}
	return scanStrings(rows)
}

// Tables lists the user tables of the target store, restricted to the
// configured schema on PostgreSQL.
func (t *Target) Tables(ctx context.Context) ([]string, error) {
	var (
		rows *sql.Rows
		err  error
	)
	switch t.dialect.Name {
	case Postgres.Name:
		rows, err = t.db.QueryContext(ctx, `
			SELECT table_name FROM information_schema.tables
			WHERE table_schema = COALESCE(NULLIF($1, ''), current_schema())
			  AND table_type = 'BASE TABLE'
			ORDER BY table_name`, t.schema)
	default:
		rows, err = t.db.QueryContext(ctx,
			`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`)
	}
	if err != nil {
		return nil, fmt.Errorf("list target tables: %w", err)
	}
	return scanStrings(rows)
}

func scanStrings(rows *sql.Rows) ([]string, error) {
	defer rows.Close()
	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
