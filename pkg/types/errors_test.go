package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMessages(t *testing.T) {
	cause := errors.New("connection refused")

	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "configuration missing",
			err:  &ConfigurationError{Missing: []string{"target.user", "target.password"}},
			want: "configuration: missing target.user, target.password",
		},
		{
			name: "configuration reason",
			err:  &ConfigurationError{Reason: `unknown target driver "oracle"`},
			want: `configuration: unknown target driver "oracle"`,
		},
		{
			name: "connection",
			err:  &ConnectionError{Store: "target", Attempts: 3, Err: cause},
			want: "connect target store (3 attempts): connection refused",
		},
		{
			name: "record shape",
			err:  &RecordShapeError{Table: "sides", Record: Record{int64(1)}, Expected: 2},
			want: "table sides: record [1] has 1 values, expected 2",
		},
		{
			name: "sync",
			err:  &SyncError{Table: "users", Op: "apply", Err: cause},
			want: "sync apply users: connection refused",
		},
		{
			name: "sync without table",
			err:  &SyncError{Op: "watermark", Err: cause},
			want: "sync watermark: connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestErrorPredicatesSeeThroughWrapping(t *testing.T) {
	cause := errors.New("boom")

	assert.True(t, IsConfigurationError(fmt.Errorf("load: %w", &ConfigurationError{Reason: "x"})))
	assert.True(t, IsConnectionError(fmt.Errorf("open: %w", &ConnectionError{Store: "source", Err: cause})))
	assert.True(t, IsRecordShapeError(fmt.Errorf("run: %w", &RecordShapeError{Table: "sides"})))
	assert.False(t, IsConfigurationError(cause))

	assert.ErrorIs(t, &SyncError{Op: "apply", Err: cause}, cause)
	assert.ErrorIs(t, &ConnectionError{Err: cause}, cause)
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "success", Success.String())
	assert.Equal(t, "failure", Failure.String())
	assert.Equal(t, "timeout", Timeout.String())
	assert.Equal(t, "outcome(7)", Outcome(7).String())
}

func TestReportApplied(t *testing.T) {
	var nilReport *Report
	assert.Equal(t, 0, nilReport.Applied())

	r := &Report{Tables: []TableReport{{Applied: 2}, {Applied: 0}, {Applied: 3}}}
	assert.Equal(t, 5, r.Applied())
}
