package types

import (
	"fmt"
	"regexp"
)

// DefaultChangeColumn is the change indicator looked up when a TableSpec does not
// name one.
const DefaultChangeColumn = "updated_at"

// Standard table names synchronized when configuration does not override them.
const (
	SidesTable     = "sides"
	QuestionsTable = "questions"
	UsersTable     = "users"
)

// identPattern matches unquoted SQL identifiers. Table and column names are
// interpolated into statement templates, so anything else is rejected.
var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidIdentifier reports whether s can be used as an unquoted table, column
// or schema name.
func ValidIdentifier(s string) bool {
	return identPattern.MatchString(s)
}

// TableSpec describes one synchronized table. The first column is the
// primary key on both stores.
type TableSpec struct {
	Name         string   `json:"name" yaml:"name" mapstructure:"name"`
	Columns      []string `json:"columns" yaml:"columns" mapstructure:"columns"`
	ChangeColumn string   `json:"change_column,omitempty" yaml:"change_column,omitempty" mapstructure:"change_column"`
	// ResendUnstamped also extracts rows whose change indicator is NULL, on
	// every run. Off by default: such rows are skipped by incremental reads.
	ResendUnstamped bool `json:"resend_unstamped,omitempty" yaml:"resend_unstamped,omitempty" mapstructure:"resend_unstamped"`
}

// PrimaryKey returns the key column, or "" when the table lists no columns.
func (s TableSpec) PrimaryKey() string {
	if len(s.Columns) == 0 {
		return ""
	}
	return s.Columns[0]
}

// ValueColumns returns every column after the primary key.
func (s TableSpec) ValueColumns() []string {
	if len(s.Columns) < 2 {
		return nil
	}
	return s.Columns[1:]
}

// Indicator returns the change indicator column name, falling back to
// DefaultChangeColumn.
func (s TableSpec) Indicator() string {
	if s.ChangeColumn == "" {
		return DefaultChangeColumn
	}
	return s.ChangeColumn
}

// Validate checks the table and column identifiers.
func (s TableSpec) Validate() error {
	if !ValidIdentifier(s.Name) {
		return fmt.Errorf("table %q: %w", s.Name, ErrInvalidIdentifier)
	}
	if len(s.Columns) == 0 {
		return fmt.Errorf("table %q: %w", s.Name, ErrEmptyColumns)
	}
	seen := make(map[string]bool, len(s.Columns))
	for _, c := range s.Columns {
		if !ValidIdentifier(c) {
			return fmt.Errorf("table %q column %q: %w", s.Name, c, ErrInvalidIdentifier)
		}
		if seen[c] {
			return fmt.Errorf("table %q column %q: %w", s.Name, c, ErrDuplicateColumn)
		}
		seen[c] = true
	}
	if s.ChangeColumn != "" && !ValidIdentifier(s.ChangeColumn) {
		return fmt.Errorf("table %q change column %q: %w", s.Name, s.ChangeColumn, ErrInvalidIdentifier)
	}
	return nil
}

// Registry is the ordered set of synchronized tables. Order is the processing
// order of every run.
type Registry []TableSpec

// DefaultRegistry returns the tables of the inspection application.
func DefaultRegistry() Registry {
	return Registry{
		{Name: SidesTable, Columns: []string{"id", "side_name"}},
		{Name: QuestionsTable, Columns: []string{"id", "side_id", "question"}},
		{Name: UsersTable, Columns: []string{"id", "username", "password"}},
	}
}

// Validate checks every table and rejects duplicate names.
func (r Registry) Validate() error {
	seen := make(map[string]bool, len(r))
	for _, s := range r {
		if err := s.Validate(); err != nil {
			return err
		}
		if seen[s.Name] {
			return fmt.Errorf("table %q: %w", s.Name, ErrDuplicateTable)
		}
		seen[s.Name] = true
	}
	return nil
}

// Names returns the table names in registry order.
func (r Registry) Names() []string {
	names := make([]string, len(r))
	for i, s := range r {
		names[i] = s.Name
	}
	return names
}

// Lookup returns the table with the given name.
func (r Registry) Lookup(name string) (TableSpec, bool) {
	for _, s := range r {
		if s.Name == name {
			return s, true
		}
	}
	return TableSpec{}, false
}

// Record is one row, ordered like TableSpec.Columns.
type Record []any
