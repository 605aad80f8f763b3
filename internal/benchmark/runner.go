package benchmark

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
)

// Runner orchestrates a full benchmark run over a registry.
type Runner struct {
	Registry *Registry
	Isolator Isolator
	Config   RunConfig

	// Logger receives progress and per-trial failures. Defaults to
	// log.Default().
	Logger *log.Logger

	// Clock times trials. Defaults to the system monotonic clock.
	Clock Clock

	// Metrics is optional.
	Metrics *Metrics
}

// RunResult contains every case result, the ranked report and run metadata.
type RunResult struct {
	Config     RunConfig    `json:"config" yaml:"config"`
	Cases      []CaseResult `json:"-" yaml:"-"`
	Report     Report       `json:"report" yaml:"report"`
	StartTime  time.Time    `json:"start_time" yaml:"start_time"`
	EndTime    time.Time    `json:"end_time" yaml:"end_time"`
	SystemInfo SystemInfo   `json:"system_info" yaml:"system_info"`
}

// Duration returns the wall time of the run.
func (r *RunResult) Duration() time.Duration {
	return r.EndTime.Sub(r.StartTime)
}

// Run executes every registered case sequentially in registration order.
//
// Setup errors and cache isolation failures abort the run and return a nil
// result. When every case was omitted the result is returned together with
// ErrNoSuccessfulCases so callers can still inspect the omissions.
func (r *Runner) Run(ctx context.Context) (*RunResult, error) {
	if err := r.Config.Validate(); err != nil {
		return nil, err
	}
	if r.Registry == nil || r.Registry.Len() == 0 {
		return nil, fmt.Errorf("%w: no cases registered", ErrInvalidConfig)
	}

	logger := r.Logger
	if logger == nil {
		logger = log.Default()
	}
	clock := r.Clock
	if clock == nil {
		clock = SystemClock()
	}
	isolator := r.Isolator
	if isolator == nil {
		logger.Warn("no cache isolator configured; trials will share warm caches")
		isolator = NoopIsolator{}
	}

	unseal, err := r.Registry.seal()
	if err != nil {
		return nil, err
	}
	defer unseal()

	cases := r.Registry.Cases()
	result := &RunResult{
		Config:     r.Config,
		Cases:      make([]CaseResult, 0, len(cases)),
		StartTime:  time.Now(),
		SystemInfo: GetSystemInfo(),
	}

	logger.Info(fmt.Sprintf("Running %d samples of %d queries per case", r.Config.Trials, r.Config.Executions),
		"cases", len(cases))

	sampler := &Sampler{
		Config:   r.Config,
		Isolator: isolator,
		Clock:    clock,
		Logger:   logger,
		Metrics:  r.Metrics,
	}

	for i, c := range cases {
		logger.Info("benchmarking case", "case", c.Name, "position", fmt.Sprintf("%d/%d", i+1, len(cases)))

		set, err := sampler.RunTrials(ctx, c)
		if err != nil {
			return nil, fmt.Errorf("run aborted at case %q: %w", c.Name, err)
		}

		res := summarizeCase(set, r.Config)
		if res.Err != nil {
			logger.Warn("case omitted from report", "case", c.Name, "err", res.Err)
		} else if res.Degraded {
			logger.Warn("case degraded", "case", c.Name,
				"samples", len(res.Samples), "trials", r.Config.Trials)
		} else {
			logger.Info("case complete", "case", c.Name,
				"median", fmt.Sprintf("%.2fms", res.Summary.Median))
		}
		result.Cases = append(result.Cases, res)
	}

	result.EndTime = time.Now()
	result.Report = Rank(result.Cases)

	if len(result.Report.Rows) == 0 {
		return result, ErrNoSuccessfulCases
	}

	logger.Info("run complete", "duration", FormatDuration(result.Duration()),
		"reported", len(result.Report.Rows), "omitted", len(result.Report.Omitted))
	return result, nil
}

// summarizeCase turns a sample set into a case result. Summarization errors
// stay local to the case.
func summarizeCase(set SampleSet, config RunConfig) CaseResult {
	res := CaseResult{
		Name:     set.Case,
		Samples:  set.Samples,
		Failures: set.Failures,
	}

	if len(set.Samples) == 0 {
		res.Err = fmt.Errorf("%w: %q failed all %d trials", ErrNoSamples, set.Case, config.Trials)
		if len(set.Failures) > 0 {
			res.Err = fmt.Errorf("%w (last: %w)", res.Err, set.Failures[len(set.Failures)-1].Err)
		}
		return res
	}

	summary, err := Summarize(set.Samples)
	if err != nil {
		res.Err = fmt.Errorf("summarize %q: %w", set.Case, err)
		return res
	}

	res.Summary = summary
	res.Degraded = len(set.Samples) < config.Trials
	return res
}

// FailedCases returns the names of cases with at least one discarded trial.
func (r *RunResult) FailedCases() []string {
	var names []string
	for _, c := range r.Cases {
		if len(c.Failures) > 0 || c.Err != nil {
			names = append(names, c.Name)
		}
	}
	return names
}

// Err joins the per-case errors of the run.
func (r *RunResult) Err() error {
	var errs []error
	for _, c := range r.Cases {
		if c.Err != nil {
			errs = append(errs, c.Err)
		}
	}
	return errors.Join(errs...)
}
