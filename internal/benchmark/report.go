package benchmark

import (
	"cmp"
	"slices"
	"time"
)

// CaseResult is everything a run learned about one case.
type CaseResult struct {
	Name     string
	Samples  []time.Duration
	Failures []TrialFailure
	Summary  Summary

	// Degraded is set when fewer trials succeeded than were configured.
	Degraded bool

	// Err is set when the case could not be summarized. Such a case is
	// omitted from the report.
	Err error
}

// Row is one ranked line of a report.
type Row struct {
	Case     string  `json:"case" yaml:"case"`
	Summary  Summary `json:"summary" yaml:"summary"`
	Degraded bool    `json:"degraded" yaml:"degraded"`
	Failed   int     `json:"failed_trials" yaml:"failed_trials"`
}

// Omission names a case left out of the report and why.
type Omission struct {
	Case   string `json:"case" yaml:"case"`
	Reason string `json:"reason" yaml:"reason"`
}

// Report is the ranked outcome of a run: fastest median first.
type Report struct {
	Rows    []Row      `json:"rows" yaml:"rows"`
	Omitted []Omission `json:"omitted,omitempty" yaml:"omitted,omitempty"`
}

// Rank orders the summarized cases by ascending median, breaking ties by
// case name. Cases without samples are listed as omissions in input order.
func Rank(results []CaseResult) Report {
	report := Report{
		Rows: make([]Row, 0, len(results)),
	}

	for _, res := range results {
		if res.Err != nil || len(res.Samples) == 0 {
			reason := "no samples"
			if res.Err != nil {
				reason = res.Err.Error()
			}
			report.Omitted = append(report.Omitted, Omission{Case: res.Name, Reason: reason})
			continue
		}
		report.Rows = append(report.Rows, Row{
			Case:     res.Name,
			Summary:  res.Summary,
			Degraded: res.Degraded,
			Failed:   len(res.Failures),
		})
	}

	slices.SortStableFunc(report.Rows, func(a, b Row) int {
		if c := cmp.Compare(a.Summary.Median, b.Summary.Median); c != 0 {
			return c
		}
		return cmp.Compare(a.Case, b.Case)
	})

	return report
}

// Fastest returns the top-ranked row.
func (r Report) Fastest() (Row, bool) {
	if len(r.Rows) == 0 {
		return Row{}, false
	}
	return r.Rows[0], true
}

// Speedup returns how many times slower row's median is than the fastest
// case's. It returns 0 when the fastest median is zero.
func (r Report) Speedup(row Row) float64 {
	fastest, ok := r.Fastest()
	if !ok || fastest.Summary.Median == 0 {
		return 0
	}
	return row.Summary.Median / fastest.Summary.Median
}
