package store

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/tszyrowski/mosync/pkg/types"
)

// Dialect captures the SQL differences between target engines.
type Dialect struct {
	Name string
	// Numbered placeholders ($1, $2) instead of ?.
	Numbered bool
	// NativeUpsert reports INSERT ... ON CONFLICT support.
	NativeUpsert bool
	// CheckIsolation is the isolation level for check-then-write applies.
	CheckIsolation sql.IsolationLevel
	// TimestampType is the column type of the watermark value.
	TimestampType string
	// EncodeTime converts a watermark to a bindable value.
	EncodeTime func(time.Time) any
}

// Postgres is the PostgreSQL dialect.
var Postgres = Dialect{
	Name:           types.DriverPostgres,
	Numbered:       true,
	NativeUpsert:   true,
	CheckIsolation: sql.LevelSerializable,
	TimestampType:  "TIMESTAMPTZ",
	EncodeTime:     func(t time.Time) any { return t.UTC() },
}

// SQLite is the SQLite dialect. SQLite transactions are already
// serializable, so CheckIsolation stays at the driver default.
var SQLite = Dialect{
	Name:           types.DriverSQLite,
	NativeUpsert:   true,
	CheckIsolation: sql.LevelDefault,
	TimestampType:  "TEXT",
	EncodeTime:     func(t time.Time) any { return t.UTC().Format(time.RFC3339Nano) },
}

// DialectFor returns the dialect of a target driver.
func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case types.DriverPostgres:
		return Postgres, nil
	case types.DriverSQLite:
		return SQLite, nil
	default:
		return Dialect{}, &types.ConfigurationError{Reason: fmt.Sprintf("unknown target driver %q", driver)}
	}
}

// Placeholder returns the bind marker for the n-th argument, 1-based.
func (d Dialect) Placeholder(n int) string {
	if d.Numbered {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

// Placeholders returns count comma-separated markers starting at from.
func (d Dialect) Placeholders(from, count int) string {
	marks := make([]string, count)
	for i := range marks {
		marks[i] = d.Placeholder(from + i)
	}
	return strings.Join(marks, ", ")
}

// DecodeTime converts a scanned watermark value back to a time.
func DecodeTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t.UTC(), nil
	case string:
		return parseTime(t)
	case []byte:
		return parseTime(string(t))
	case int64:
		return time.Unix(t, 0).UTC(), nil
	case nil:
		return time.Time{}, fmt.Errorf("null timestamp")
	default:
		return time.Time{}, fmt.Errorf("unsupported timestamp type %T", v)
	}
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
}

func parseTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", s)
}
