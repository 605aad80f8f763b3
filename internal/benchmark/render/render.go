// Package render writes benchmark reports in human and machine formats.
//
// Values are rounded here and nowhere else: the summaries carried by a
// benchmark.Report are full precision.
package render

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/querybench/querybench/internal/benchmark"
)

// Format selects the output encoding.
type Format string

const (
	FormatTable    Format = "table"
	FormatMarkdown Format = "markdown"
	FormatCSV      Format = "csv"
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
)

// Formats lists every supported format.
func Formats() []Format {
	return []Format{FormatTable, FormatMarkdown, FormatCSV, FormatJSON, FormatYAML}
}

// ParseFormat converts a user-supplied name to a Format.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatTable, FormatMarkdown, FormatCSV, FormatJSON, FormatYAML:
		return f, nil
	case "md":
		return FormatMarkdown, nil
	case "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown report format %q (want one of %v)", s, Formats())
	}
}

// Options control rendering.
type Options struct {
	Format Format

	// Precision is the number of decimal places shown for milliseconds.
	Precision int

	// NoColor forces plain ASCII table output.
	NoColor bool

	// Graph appends an ASCII bar graph of medians to table output.
	Graph bool
}

// DefaultOptions rounds to whole milliseconds.
func DefaultOptions() Options {
	return Options{Format: FormatTable}
}

// Render writes result to w in the requested format.
func Render(w io.Writer, result *benchmark.RunResult, opts Options) error {
	if result == nil {
		return fmt.Errorf("no result to render")
	}
	if opts.Precision < 0 {
		return fmt.Errorf("precision must not be negative (got %d)", opts.Precision)
	}

	switch opts.Format {
	case FormatTable, "":
		if err := writeTable(w, result, opts); err != nil {
			return err
		}
		if opts.Graph {
			writeGraph(w, result.Report, opts.Precision)
		}
		return nil
	case FormatMarkdown:
		return writeMarkdown(w, result, opts.Precision)
	case FormatCSV:
		return writeCSV(w, result.Report, opts.Precision)
	case FormatJSON:
		return writeJSON(w, result)
	case FormatYAML:
		return writeYAML(w, result)
	default:
		return fmt.Errorf("unknown report format %q", opts.Format)
	}
}

// Round rounds v to precision decimal places, halves away from zero.
func Round(v float64, precision int) float64 {
	scale := math.Pow(10, float64(precision))
	return math.Round(v*scale) / scale
}

// FormatMillis renders a millisecond value at the given precision.
func FormatMillis(v float64, precision int) string {
	r := Round(v, precision)
	if r == 0 {
		// avoid "-0"
		r = 0
	}
	return strconv.FormatFloat(r, 'f', precision, 64)
}

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

// writeMarkdown emits the pipe table layout:
//
//	Case | Minimum | Lower Quantile | Median | Upper Quantile | Maximum
func writeMarkdown(w io.Writer, result *benchmark.RunResult, precision int) error {
	var b strings.Builder

	fmt.Fprintf(&b, "Results of %d samples of %d executions:\n\n",
		result.Config.Trials, result.Config.Executions)
	b.WriteString("Case | Minimum | Lower Quantile | Median | Upper Quantile | Maximum\n")
	b.WriteString("--- | --- | --- | --- | --- | ---\n")

	for _, row := range result.Report.Rows {
		s := row.Summary
		name := row.Case
		if row.Degraded {
			name += " *"
		}
		fmt.Fprintf(&b, "%s | %s | %s | %s | %s | %s\n",
			name,
			FormatMillis(s.Minimum, precision),
			FormatMillis(s.LowerQuartile, precision),
			FormatMillis(s.Median, precision),
			FormatMillis(s.UpperQuartile, precision),
			FormatMillis(s.Maximum, precision),
		)
	}

	writeFootnotes(&b, result)

	_, err := io.WriteString(w, b.String())
	return err
}

// writeFootnotes explains degraded rows and lists omitted cases.
func writeFootnotes(b *strings.Builder, result *benchmark.RunResult) {
	degraded := false
	for _, row := range result.Report.Rows {
		if row.Degraded {
			degraded = true
			break
		}
	}
	if degraded {
		fmt.Fprintf(b, "\n* fewer than %d trials succeeded\n", result.Config.Trials)
	}

	if len(result.Report.Omitted) > 0 {
		b.WriteString("\nOmitted:\n")
		for _, o := range result.Report.Omitted {
			fmt.Fprintf(b, "- %s: %s\n", o.Case, o.Reason)
		}
	}
}

// writeCSV writes one line per ranked case for external analysis (Excel,
// matplotlib, etc.).
func writeCSV(w io.Writer, report benchmark.Report, precision int) error {
	cw := csv.NewWriter(w)

	header := []string{
		"rank",
		"case",
		"min_ms",
		"q1_ms",
		"median_ms",
		"q3_ms",
		"max_ms",
		"mean_ms",
		"samples",
		"failed_trials",
		"degraded",
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	for i, row := range report.Rows {
		s := row.Summary
		record := []string{
			strconv.Itoa(i + 1),
			row.Case,
			FormatMillis(s.Minimum, precision),
			FormatMillis(s.LowerQuartile, precision),
			FormatMillis(s.Median, precision),
			FormatMillis(s.UpperQuartile, precision),
			FormatMillis(s.Maximum, precision),
			FormatMillis(s.Mean, precision),
			strconv.Itoa(s.Count),
			strconv.Itoa(row.Failed),
			strconv.FormatBool(row.Degraded),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// writeJSON writes the complete run, unrounded.
func writeJSON(w io.Writer, result *benchmark.RunResult) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

// writeYAML writes the complete run, unrounded.
func writeYAML(w io.Writer, result *benchmark.RunResult) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(result); err != nil {
		return err
	}
	return encoder.Close()
}
