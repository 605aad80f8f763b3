package benchmark

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sleepy returns an operation that advances clock by d on every call.
func sleepy(clock *fakeClock, d time.Duration) Operation {
	return func(context.Context) error {
		clock.Advance(d)
		return nil
	}
}

func TestRunner_RanksCases(t *testing.T) {
	clock := newFakeClock()
	reg := NewRegistry()
	require.NoError(t, reg.Register("A", sleepy(clock, 5*time.Millisecond)))
	require.NoError(t, reg.Register("B", sleepy(clock, 1*time.Millisecond)))
	require.NoError(t, reg.Register("C", sleepy(clock, 3*time.Millisecond)))

	runner := &Runner{
		Registry: reg,
		Isolator: NoopIsolator{},
		Config:   RunConfig{Trials: 4, Executions: 10},
		Logger:   quietLogger(),
		Clock:    clock,
	}

	result, err := runner.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, result.Report.Rows, 3)
	assert.Equal(t, "B", result.Report.Rows[0].Case)
	assert.Equal(t, 10.0, result.Report.Rows[0].Summary.Median)
	assert.Equal(t, "C", result.Report.Rows[1].Case)
	assert.Equal(t, 30.0, result.Report.Rows[1].Summary.Median)
	assert.Equal(t, "A", result.Report.Rows[2].Case)
	assert.Equal(t, 50.0, result.Report.Rows[2].Summary.Median)

	// Case results stay in registration order
	require.Len(t, result.Cases, 3)
	assert.Equal(t, "A", result.Cases[0].Name)
	assert.Len(t, result.Cases[0].Samples, 4)

	assert.Equal(t, runner.Config, result.Config)
	assert.False(t, result.EndTime.Before(result.StartTime))
	assert.NotEmpty(t, result.SystemInfo.GoVersion)
	assert.NoError(t, result.Err())
	assert.Empty(t, result.FailedCases())
}

func TestRunner_AllFailingCaseOmitted(t *testing.T) {
	boom := errors.New("connection refused")
	reg := NewRegistry()
	require.NoError(t, reg.Register("ok", nop))
	require.NoError(t, reg.Register("broken", func(context.Context) error { return boom }))
	require.NoError(t, reg.Register("also ok", nop))

	runner := &Runner{
		Registry: reg,
		Config:   RunConfig{Trials: 3, Executions: 2},
		Logger:   quietLogger(),
	}

	result, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.Len(t, result.Report.Rows, 2)
	require.Len(t, result.Report.Omitted, 1)
	assert.Equal(t, "broken", result.Report.Omitted[0].Case)

	assert.ErrorIs(t, result.Cases[1].Err, ErrNoSamples)
	assert.ErrorIs(t, result.Cases[1].Err, boom)
	assert.ErrorIs(t, result.Err(), ErrNoSamples)
	assert.Equal(t, []string{"broken"}, result.FailedCases())
}

func TestRunner_DegradedCase(t *testing.T) {
	calls := 0
	reg := NewRegistry()
	require.NoError(t, reg.Register("flaky", func(context.Context) error {
		calls++
		if calls == 1 {
			return errors.New("deadlock")
		}
		return nil
	}))

	runner := &Runner{
		Registry: reg,
		Config:   RunConfig{Trials: 3, Executions: 1},
		Logger:   quietLogger(),
	}

	result, err := runner.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, result.Report.Rows, 1)
	row := result.Report.Rows[0]
	assert.True(t, row.Degraded)
	assert.Equal(t, 1, row.Failed)
	assert.Equal(t, 2, row.Summary.Count)
}

func TestRunner_NoSuccessfulCases(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register("broken", func(context.Context) error { return errors.New("boom") }))

	runner := &Runner{
		Registry: reg,
		Config:   RunConfig{Trials: 2, Executions: 1},
		Logger:   quietLogger(),
	}

	result, err := runner.Run(context.Background())
	require.ErrorIs(t, err, ErrNoSuccessfulCases)
	assert.True(t, IsFatal(err))
	require.NotNil(t, result, "omissions are still inspectable")
	assert.Len(t, result.Report.Omitted, 1)
}

func TestRunner_IsolationFailureAbortsRun(t *testing.T) {
	reg := NewRegistry()
	ranB := false
	require.NoError(t, reg.Register("A", nop))
	require.NoError(t, reg.Register("B", func(context.Context) error {
		ranB = true
		return nil
	}))

	runner := &Runner{
		Registry: reg,
		Isolator: IsolatorFunc(func(context.Context) error { return errors.New("DBCC denied") }),
		Config:   RunConfig{Trials: 2, Executions: 1},
		Logger:   quietLogger(),
	}

	result, err := runner.Run(context.Background())
	require.ErrorIs(t, err, ErrCacheIsolation)
	assert.Nil(t, result)
	assert.False(t, ranB)

	// The registry is released after an aborted run
	assert.NoError(t, reg.Register("C", nop))
}

func TestRunner_SetupErrors(t *testing.T) {
	_, err := (&Runner{Registry: NewRegistry(), Config: DefaultConfig(), Logger: quietLogger()}).Run(context.Background())
	assert.ErrorIs(t, err, ErrInvalidConfig)

	reg := NewRegistry()
	require.NoError(t, reg.Register("A", nop))
	_, err = (&Runner{Registry: reg, Config: RunConfig{Trials: 0, Executions: 1}, Logger: quietLogger()}).Run(context.Background())
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestRunner_RegistrySealedDuringRun(t *testing.T) {
	reg := NewRegistry()
	var registerErr error
	require.NoError(t, reg.Register("A", func(context.Context) error {
		if registerErr == nil {
			registerErr = reg.Register("late", nop)
		}
		return nil
	}))

	runner := &Runner{Registry: reg, Config: RunConfig{Trials: 1, Executions: 1}, Logger: quietLogger()}
	_, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.ErrorIs(t, registerErr, ErrInvalidCase)
	assert.Equal(t, []string{"A"}, reg.Names())
}

func TestRunner_RecordsMetrics(t *testing.T) {
	reg := NewRegistry()
	calls := 0
	require.NoError(t, reg.Register("A", func(context.Context) error {
		calls++
		if calls == 2 {
			return errors.New("boom")
		}
		return nil
	}))

	metrics := NewMetrics()
	runner := &Runner{
		Registry: reg,
		Config:   RunConfig{Trials: 3, Executions: 1},
		Logger:   quietLogger(),
		Metrics:  metrics,
	}

	_, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2.0, trialCount(t, metrics, "A", ResultOK))
	assert.Equal(t, 1.0, trialCount(t, metrics, "A", ResultFailed))
}
