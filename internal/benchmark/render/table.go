package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/muesli/termenv"

	"github.com/querybench/querybench/internal/benchmark"
)

var (
	headerColor   = lipgloss.Color("12")
	fastestColor  = lipgloss.Color("10")
	degradedColor = lipgloss.Color("11")
	mutedColor    = lipgloss.Color("8")
)

// writeTable prints the ranked report as a boxed terminal table. Colour is
// only used when w is a terminal and NoColor is unset.
func writeTable(w io.Writer, result *benchmark.RunResult, opts Options) error {
	color := !opts.NoColor && IsTerminal(w)

	renderer := lipgloss.NewRenderer(w)
	border := lipgloss.RoundedBorder()
	if color {
		renderer.SetColorProfile(termenv.ANSI256)
	} else {
		renderer.SetColorProfile(termenv.Ascii)
		border = lipgloss.ASCIIBorder()
	}

	base := renderer.NewStyle().Padding(0, 1)
	header := base.Bold(true).Foreground(headerColor)
	fastest := base.Foreground(fastestColor)
	degraded := base.Foreground(degradedColor)
	muted := base.Foreground(mutedColor)

	rows := make([][]string, 0, len(result.Report.Rows))
	for i, row := range result.Report.Rows {
		rows = append(rows, tableRow(i+1, row, result.Report, opts.Precision))
	}

	t := table.New().
		Border(border).
		BorderStyle(renderer.NewStyle().Foreground(mutedColor)).
		Headers("#", "Case", "Min", "Q1", "Median", "Q3", "Max", "vs fastest").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return header
			case col == 7 && row > 0:
				return muted
			case result.Report.Rows[row].Degraded:
				return degraded
			case row == 0:
				return fastest
			default:
				return base
			}
		})

	var b strings.Builder
	fmt.Fprintf(&b, "Results of %d samples of %d executions (ms):\n",
		result.Config.Trials, result.Config.Executions)
	b.WriteString(t.String())
	b.WriteString("\n")
	writeFootnotes(&b, result)

	_, err := io.WriteString(w, b.String())
	return err
}

func tableRow(rank int, row benchmark.Row, report benchmark.Report, precision int) []string {
	s := row.Summary
	name := row.Case
	if row.Degraded {
		name += " *"
	}

	relative := "-"
	if rank > 1 {
		if x := report.Speedup(row); x > 0 {
			relative = fmt.Sprintf("%.2fx", x)
		}
	}

	return []string{
		fmt.Sprintf("%d", rank),
		name,
		FormatMillis(s.Minimum, precision),
		FormatMillis(s.LowerQuartile, precision),
		FormatMillis(s.Median, precision),
		FormatMillis(s.UpperQuartile, precision),
		FormatMillis(s.Maximum, precision),
		relative,
	}
}

const graphWidth = 50

// writeGraph prints a bar per case scaled to the slowest median.
func writeGraph(w io.Writer, report benchmark.Report, precision int) {
	if len(report.Rows) == 0 {
		return
	}

	maxMedian := 0.0
	width := 0
	for _, row := range report.Rows {
		maxMedian = max(maxMedian, row.Summary.Median)
		width = max(width, len(row.Case))
	}

	fmt.Fprintf(w, "\nMedian latency per trial (ms)\n")
	fmt.Fprintf(w, "%s\n", strings.Repeat("-", width+graphWidth+12))

	for _, row := range report.Rows {
		bar := 0
		if maxMedian > 0 {
			bar = int(row.Summary.Median / maxMedian * graphWidth)
		}
		fmt.Fprintf(w, "%-*s  %s %s\n", width, row.Case,
			strings.Repeat("█", bar), FormatMillis(row.Summary.Median, precision))
	}
}
