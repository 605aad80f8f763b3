package benchmark

import "errors"

// Errors returned by the harness.
//
// Check them with errors.Is; most are wrapped with the case name or trial
// index that produced them:
//
//	if errors.Is(err, benchmark.ErrCacheIsolation) {
//	    // the run was aborted before any contaminated sample was recorded
//	}
var (
	// ErrInvalidCase is returned when a case has an empty name or no
	// operation, or when the registry is modified after a run started.
	ErrInvalidCase = errors.New("invalid case")

	// ErrDuplicateCase is returned when a case name is already registered.
	ErrDuplicateCase = errors.New("duplicate case")

	// ErrInvalidConfig is returned when a RunConfig cannot be executed.
	ErrInvalidConfig = errors.New("invalid run configuration")

	// ErrCacheIsolation is returned when the cache reset before a trial
	// fails. It aborts the whole run.
	ErrCacheIsolation = errors.New("cache isolation failed")

	// ErrOperation is returned when a timed operation fails inside a trial.
	// The trial is discarded and the run continues.
	ErrOperation = errors.New("operation failed")

	// ErrTimeout is returned when a single invocation exceeds the trial
	// timeout. It is treated like ErrOperation.
	ErrTimeout = errors.New("operation timed out")

	// ErrEmptySampleSet is returned when summarizing zero samples.
	ErrEmptySampleSet = errors.New("empty sample set")

	// ErrNoSamples is recorded for a case whose every trial failed.
	// The case is left out of the report.
	ErrNoSamples = errors.New("case produced no samples")

	// ErrNoSuccessfulCases is returned when no case produced a sample.
	ErrNoSuccessfulCases = errors.New("no case produced any samples")
)

// IsFatal returns true if the error aborts a run rather than a single trial
// or case.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, ErrCacheIsolation) {
		return true
	}

	// Setup errors surface before any trial runs
	if errors.Is(err, ErrInvalidCase) || errors.Is(err, ErrDuplicateCase) || errors.Is(err, ErrInvalidConfig) {
		return true
	}

	if errors.Is(err, ErrNoSuccessfulCases) {
		return true
	}

	return false
}

// IsTrialFailure returns true if the error only discards a single trial.
func IsTrialFailure(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrOperation) || errors.Is(err, ErrTimeout)
}
