// Package benchmark runs interchangeable data-access strategies against the
// same logical query and ranks them by latency.
//
// A run takes every registered case in registration order, executes
// RunConfig.Trials trials of RunConfig.Executions back-to-back invocations,
// isolates caches before each trial, and reduces the per-trial samples of
// each case to a five-number summary. Cases are reported in ascending order
// of their median.
//
// Trials never run concurrently. Cache isolation and timing both need
// exclusive access to the backing store for the whole trial window.
package benchmark

import (
	"fmt"
	"os"
	"runtime"
	"time"
)

// RunConfig defines the shape of a benchmark run.
type RunConfig struct {
	// Trials is the number of timed trials per case.
	Trials int `json:"trials" yaml:"trials"`

	// Executions is how many times the operation runs inside one trial.
	Executions int `json:"executions" yaml:"executions"`

	// TrialTimeout bounds a single invocation. Zero disables the bound.
	//
	// A non-zero bound runs every invocation in its own goroutine with a
	// timer, and that cost lands inside the timed window. Set it to zero when
	// comparing strategies that finish in well under a millisecond.
	TrialTimeout time.Duration `json:"trial_timeout" yaml:"trial_timeout"`
}

// DefaultConfig returns the run shape used for publishable comparisons.
func DefaultConfig() RunConfig {
	return RunConfig{
		Trials:       100,
		Executions:   100,
		TrialTimeout: 30 * time.Second,
	}
}

// QuickConfig returns a faster configuration for development and CI.
func QuickConfig() RunConfig {
	return RunConfig{
		Trials:       10,
		Executions:   10,
		TrialTimeout: 30 * time.Second,
	}
}

// Validate checks that the configuration describes a runnable benchmark.
func (c RunConfig) Validate() error {
	if c.Trials <= 0 {
		return fmt.Errorf("%w: trials must be positive (got %d)", ErrInvalidConfig, c.Trials)
	}
	if c.Executions <= 0 {
		return fmt.Errorf("%w: executions must be positive (got %d)", ErrInvalidConfig, c.Executions)
	}
	if c.TrialTimeout < 0 {
		return fmt.Errorf("%w: trial timeout must not be negative (got %s)", ErrInvalidConfig, c.TrialTimeout)
	}
	return nil
}

// TotalInvocations returns the number of operation calls a fully successful
// run makes per case.
func (c RunConfig) TotalInvocations() int {
	return c.Trials * c.Executions
}

// SystemInfo captures system details for reproducibility.
type SystemInfo struct {
	OS        string `json:"os" yaml:"os"`
	Arch      string `json:"arch" yaml:"arch"`
	CPUs      int    `json:"cpus" yaml:"cpus"`
	GoVersion string `json:"go_version" yaml:"go_version"`
	Hostname  string `json:"hostname,omitempty" yaml:"hostname,omitempty"`
}

// GetSystemInfo captures current system information.
func GetSystemInfo() SystemInfo {
	info := SystemInfo{
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
		CPUs:      runtime.NumCPU(),
		GoVersion: runtime.Version(),
	}
	if hostname, err := os.Hostname(); err == nil {
		info.Hostname = hostname
	}
	return info
}

// FormatDuration formats a duration into a human-readable string.
func FormatDuration(d time.Duration) string {
	if d < time.Microsecond {
		return fmt.Sprintf("%dns", d.Nanoseconds())
	}
	if d < time.Millisecond {
		return fmt.Sprintf("%.2fµs", float64(d.Nanoseconds())/1000.0)
	}
	if d < time.Second {
		return fmt.Sprintf("%.2fms", float64(d.Microseconds())/1000.0)
	}
	return fmt.Sprintf("%.2fs", d.Seconds())
}

// Milliseconds converts a duration to fractional milliseconds.
func Milliseconds(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
