package benchmark

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
)

// Clock is the time source used for trial timing.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

// Now returns time.Now, which carries a monotonic reading.
func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns the monotonic wall clock.
func SystemClock() Clock { return systemClock{} }

// TrialFailure records a discarded trial.
type TrialFailure struct {
	Trial int   `json:"trial" yaml:"trial"`
	Err   error `json:"-" yaml:"-"`
}

// SampleSet holds the successful trial durations of one case, in trial order.
type SampleSet struct {
	Case     string
	Samples  []time.Duration
	Failures []TrialFailure
}

// Sampler executes the trials of a single case.
type Sampler struct {
	Config   RunConfig
	Isolator Isolator
	Clock    Clock
	Logger   *log.Logger
	Metrics  *Metrics
}

// RunTrials runs every trial of c and returns the samples of the trials that
// succeeded. A failing operation only discards its own trial. The returned
// error is non-nil only when the run must stop: cache isolation failed or
// ctx was cancelled.
func (s *Sampler) RunTrials(ctx context.Context, c Case) (SampleSet, error) {
	set := SampleSet{
		Case:    c.Name,
		Samples: make([]time.Duration, 0, s.Config.Trials),
	}

	clock := s.Clock
	if clock == nil {
		clock = SystemClock()
	}
	isolator := s.Isolator
	if isolator == nil {
		isolator = NoopIsolator{}
	}
	logger := s.Logger
	if logger == nil {
		logger = log.Default()
	}

	for trial := 1; trial <= s.Config.Trials; trial++ {
		if err := ctx.Err(); err != nil {
			return set, err
		}

		// Isolation stays outside the timed window
		if err := isolator.Isolate(ctx); err != nil {
			s.Metrics.isolationFailed()
			logger.Error("cache isolation failed", "case", c.Name, "trial", trial, "err", err)
			return set, fmt.Errorf("%w: case %q trial %d: %w", ErrCacheIsolation, c.Name, trial, err)
		}

		elapsed, err := s.runTrial(ctx, c.Operation, clock)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return set, ctxErr
			}
			trialErr := fmt.Errorf("case %q trial %d: %w", c.Name, trial, err)
			set.Failures = append(set.Failures, TrialFailure{Trial: trial, Err: trialErr})
			s.Metrics.observeFailure(c.Name, err)
			logger.Warn("trial discarded", "case", c.Name, "trial", trial, "err", err)
			continue
		}

		set.Samples = append(set.Samples, elapsed)
		s.Metrics.observeTrial(c.Name, elapsed)
		logger.Debug("trial complete", "case", c.Name, "trial", trial, "elapsed", FormatDuration(elapsed))
	}

	return set, nil
}

// runTrial times Executions sequential invocations of op. The elapsed time
// is only meaningful when the error is nil.
func (s *Sampler) runTrial(ctx context.Context, op Operation, clock Clock) (time.Duration, error) {
	start := clock.Now()
	for i := 0; i < s.Config.Executions; i++ {
		if err := s.invoke(ctx, op); err != nil {
			return 0, fmt.Errorf("execution %d: %w", i+1, err)
		}
	}
	return clock.Now().Sub(start), nil
}

// invoke runs op once, bounded by the trial timeout when one is set.
//
// A hung operation is abandoned in its goroutine. The harness moves on, but
// the abandoned call may still hold a connection until it notices its
// cancelled context.
func (s *Sampler) invoke(ctx context.Context, op Operation) error {
	if s.Config.TrialTimeout <= 0 {
		return wrapOperationError(ctx, safeCall(ctx, op))
	}

	callCtx, cancel := context.WithTimeout(ctx, s.Config.TrialTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- safeCall(callCtx, op)
	}()

	select {
	case err := <-done:
		if err != nil && ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w: %w after %s", ErrOperation, ErrTimeout, s.Config.TrialTimeout)
		}
		return wrapOperationError(ctx, err)
	case <-callCtx.Done():
		if err := ctx.Err(); err != nil {
			return err
		}
		return fmt.Errorf("%w: %w after %s", ErrOperation, ErrTimeout, s.Config.TrialTimeout)
	}
}

// safeCall converts a panicking operation into an error.
func safeCall(ctx context.Context, op Operation) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return op(ctx)
}

// wrapOperationError marks err as a trial failure. Cancellation passes
// through unwrapped only when the run itself was cancelled.
func wrapOperationError(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		return err
	}
	return fmt.Errorf("%w: %w", ErrOperation, err)
}
