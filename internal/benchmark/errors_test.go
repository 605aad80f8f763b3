package benchmark

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsFatal(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"isolation", fmt.Errorf("case %q: %w", "A", ErrCacheIsolation), true},
		{"invalid case", ErrInvalidCase, true},
		{"duplicate", fmt.Errorf("%w: %q", ErrDuplicateCase, "A"), true},
		{"invalid config", ErrInvalidConfig, true},
		{"no successful cases", ErrNoSuccessfulCases, true},
		{"operation", fmt.Errorf("%w: boom", ErrOperation), false},
		{"timeout", ErrTimeout, false},
		{"no samples", ErrNoSamples, false},
		{"unrelated", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsFatal(tt.err))
		})
	}
}

func TestIsTrialFailure(t *testing.T) {
	assert.False(t, IsTrialFailure(nil))
	assert.True(t, IsTrialFailure(fmt.Errorf("%w: boom", ErrOperation)))
	assert.True(t, IsTrialFailure(ErrTimeout))
	assert.False(t, IsTrialFailure(ErrCacheIsolation))
}

func TestSQLIsolator_NilHandle(t *testing.T) {
	err := SQLIsolator{Statements: []string{"SELECT 1"}}.Isolate(context.Background())
	assert.Error(t, err)
}

func TestNoopIsolator(t *testing.T) {
	assert.NoError(t, NoopIsolator{}.Isolate(context.Background()))
}

func TestRunConfig_Validate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
	assert.NoError(t, QuickConfig().Validate())
	assert.NoError(t, RunConfig{Trials: 1, Executions: 1}.Validate(), "zero timeout disables it")

	assert.ErrorIs(t, RunConfig{Trials: 0, Executions: 1}.Validate(), ErrInvalidConfig)
	assert.ErrorIs(t, RunConfig{Trials: 1, Executions: 0}.Validate(), ErrInvalidConfig)
	assert.ErrorIs(t, RunConfig{Trials: 1, Executions: 1, TrialTimeout: -1}.Validate(), ErrInvalidConfig)

	assert.Equal(t, 10000, DefaultConfig().TotalInvocations())
}
