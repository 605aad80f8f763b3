package benchmark

import (
	"math"
	"slices"
	"time"
)

// Summary is the five-number summary of a sample set, in milliseconds.
//
// Quartiles use inclusive linear interpolation between order statistics
// (Hyndman & Fan type 7, the same rule as a spreadsheet QUARTILE.INC): the
// p-quantile of n sorted values sits at position (n-1)*p. Values are never
// rounded here; rounding is a rendering concern.
type Summary struct {
	Minimum       float64 `json:"min_ms" yaml:"min_ms"`
	LowerQuartile float64 `json:"q1_ms" yaml:"q1_ms"`
	Median        float64 `json:"median_ms" yaml:"median_ms"`
	UpperQuartile float64 `json:"q3_ms" yaml:"q3_ms"`
	Maximum       float64 `json:"max_ms" yaml:"max_ms"`

	// Mean and Count are reported alongside the summary but never used for
	// ranking.
	Mean  float64 `json:"mean_ms" yaml:"mean_ms"`
	Count int     `json:"count" yaml:"count"`
}

// Summarize computes the five-number summary of samples. The input is not
// modified.
func Summarize(samples []time.Duration) (Summary, error) {
	if len(samples) == 0 {
		return Summary{}, ErrEmptySampleSet
	}

	sorted := make([]float64, len(samples))
	for i, d := range samples {
		sorted[i] = Milliseconds(d)
	}
	return SummarizeMillis(sorted)
}

// SummarizeMillis is Summarize for values already expressed in milliseconds.
func SummarizeMillis(values []float64) (Summary, error) {
	if len(values) == 0 {
		return Summary{}, ErrEmptySampleSet
	}

	sorted := slices.Clone(values)
	slices.Sort(sorted)

	var sum float64
	for _, v := range sorted {
		sum += v
	}

	return Summary{
		Minimum:       sorted[0],
		LowerQuartile: Quantile(sorted, 0.25),
		Median:        Quantile(sorted, 0.5),
		UpperQuartile: Quantile(sorted, 0.75),
		Maximum:       sorted[len(sorted)-1],
		Mean:          sum / float64(len(sorted)),
		Count:         len(sorted),
	}, nil
}

// Quantile returns the p-quantile of an ascending slice by linear
// interpolation between the two closest order statistics. p is clamped to
// [0, 1]. It returns NaN for an empty slice.
func Quantile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}

	h := float64(n-1) * p
	lo := math.Floor(h)
	i := int(lo)
	if i+1 >= n {
		return sorted[n-1]
	}
	frac := h - lo
	return sorted[i] + frac*(sorted[i+1]-sorted[i])
}

// IQR returns the interquartile range.
func (s Summary) IQR() float64 {
	return s.UpperQuartile - s.LowerQuartile
}
