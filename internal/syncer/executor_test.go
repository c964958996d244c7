package syncer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/tszyrowski/mosync/pkg/types"
)

func TestExecutor_Run(t *testing.T) {
	report := &types.Report{RunID: "r"}

	tests := []struct {
		name    string
		runner  RunnerFunc
		outcome types.Outcome
		cause   string
	}{
		{
			name: "success carries the report",
			runner: func(ctx context.Context) (*types.Report, error) {
				return report, nil
			},
			outcome: types.Success,
		},
		{
			name: "failure carries the cause",
			runner: func(ctx context.Context) (*types.Report, error) {
				return report, errors.New("connection refused")
			},
			outcome: types.Failure,
			cause:   "connection refused",
		},
		{
			name: "panic becomes a failure",
			runner: func(ctx context.Context) (*types.Report, error) {
				panic("boom")
			},
			outcome: types.Failure,
			cause:   "sync panicked: boom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := NewExecutor(tt.runner, time.Second, nil).Run(context.Background())
			assert.Equal(t, tt.outcome, res.Outcome)
			assert.Equal(t, tt.cause, res.Cause)
			if tt.outcome == types.Failure {
				assert.Error(t, res.Err)
			} else {
				assert.Same(t, report, res.Report)
				assert.NoError(t, res.Err)
			}
		})
	}
}

func TestExecutor_Timeout(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	cancelled := make(chan struct{})

	runner := RunnerFunc(func(ctx context.Context) (*types.Report, error) {
		<-ctx.Done()
		close(cancelled)
		<-release
		return nil, ctx.Err()
	})

	start := time.Now()
	res := NewExecutor(runner, 20*time.Millisecond, nil).Run(context.Background())
	assert.Equal(t, types.Timeout, res.Outcome)
	assert.ErrorIs(t, res.Err, context.DeadlineExceeded)
	assert.Contains(t, res.Cause, "timed out after 20ms")
	assert.Less(t, time.Since(start), 2*time.Second, "timeout returns without waiting for the run")

	select {
	case <-cancelled:
	case <-time.After(2 * time.Second):
		t.Fatal("run context was not cancelled")
	}
}

func TestExecutor_ParentCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	runner := RunnerFunc(func(ctx context.Context) (*types.Report, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})

	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	res := NewExecutor(runner, time.Minute, nil).Run(ctx)
	assert.Equal(t, types.Failure, res.Outcome)
	assert.ErrorIs(t, res.Err, context.Canceled)
}

func TestExecutor_DefaultTimeout(t *testing.T) {
	e := NewExecutor(RunnerFunc(func(ctx context.Context) (*types.Report, error) { return nil, nil }), 0, nil)
	assert.Equal(t, types.DefaultTimeout, e.Timeout())
}

func TestExecutor_RunInProgressIsFailure(t *testing.T) {
	runner := RunnerFunc(func(ctx context.Context) (*types.Report, error) {
		return nil, types.ErrRunInProgress
	})
	res := NewExecutor(runner, time.Second, nil).Run(context.Background())
	assert.Equal(t, types.Failure, res.Outcome)
	assert.ErrorIs(t, res.Err, types.ErrRunInProgress)
}
