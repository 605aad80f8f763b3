package render

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/querybench/querybench/internal/benchmark"
)

func sampleResult() *benchmark.RunResult {
	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return &benchmark.RunResult{
		Config: benchmark.RunConfig{Trials: 5, Executions: 10},
		Report: benchmark.Report{
			Rows: []benchmark.Row{
				{
					Case: "SQL Prepared Statement",
					Summary: benchmark.Summary{
						Minimum: 9.4, LowerQuartile: 10.2, Median: 10.5, UpperQuartile: 11.49, Maximum: 14.5,
						Mean: 11, Count: 5,
					},
				},
				{
					Case:     "GORM View",
					Degraded: true,
					Failed:   1,
					Summary: benchmark.Summary{
						Minimum: 28, LowerQuartile: 29.5, Median: 31, UpperQuartile: 33.2, Maximum: 40.7,
						Mean: 32, Count: 4,
					},
				},
			},
			Omitted: []benchmark.Omission{
				{Case: "Broken", Reason: "case produced no samples"},
			},
		},
		StartTime:  start,
		EndTime:    start.Add(time.Minute),
		SystemInfo: benchmark.SystemInfo{OS: "linux", Arch: "amd64", CPUs: 8, GoVersion: "go1.24.0"},
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"table", FormatTable, false},
		{"Markdown", FormatMarkdown, false},
		{"md", FormatMarkdown, false},
		{" csv ", FormatCSV, false},
		{"json", FormatJSON, false},
		{"yml", FormatYAML, false},
		{"xml", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRound(t *testing.T) {
	assert.Equal(t, 11.0, Round(10.5, 0), "halves round away from zero")
	assert.Equal(t, 10.0, Round(10.49, 0))
	assert.Equal(t, 1.25, Round(1.2534, 2))
	assert.Equal(t, -3.0, Round(-2.5, 0))
}

func TestFormatMillis(t *testing.T) {
	assert.Equal(t, "11", FormatMillis(10.5, 0))
	assert.Equal(t, "10.50", FormatMillis(10.5, 2))
	assert.Equal(t, "0", FormatMillis(-0.2, 0))
}

func TestRender_Markdown(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, sampleResult(), Options{Format: FormatMarkdown}))

	want := "Results of 5 samples of 10 executions:\n" +
		"\n" +
		"Case | Minimum | Lower Quantile | Median | Upper Quantile | Maximum\n" +
		"--- | --- | --- | --- | --- | ---\n" +
		"SQL Prepared Statement | 9 | 10 | 11 | 11 | 15\n" +
		"GORM View * | 28 | 30 | 31 | 33 | 41\n" +
		"\n" +
		"* fewer than 5 trials succeeded\n" +
		"\n" +
		"Omitted:\n" +
		"- Broken: case produced no samples\n"
	assert.Equal(t, want, buf.String())
}

func TestRender_CSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, sampleResult(), Options{Format: FormatCSV, Precision: 1}))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, "median_ms", records[0][4])
	assert.Equal(t, []string{"1", "SQL Prepared Statement", "9.4", "10.2", "10.5", "11.5", "14.5", "11.0", "5", "0", "false"}, records[1])
	assert.Equal(t, "GORM View", records[2][1])
	assert.Equal(t, "true", records[2][10])
}

func TestRender_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, sampleResult(), Options{Format: FormatJSON}))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))

	report := decoded["report"].(map[string]any)
	rows := report["rows"].([]any)
	require.Len(t, rows, 2)

	first := rows[0].(map[string]any)
	assert.Equal(t, "SQL Prepared Statement", first["case"])
	summary := first["summary"].(map[string]any)
	assert.Equal(t, 10.5, summary["median_ms"], "JSON keeps full precision")

	system := decoded["system_info"].(map[string]any)
	assert.Equal(t, "linux", system["os"])
}

func TestRender_YAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, sampleResult(), Options{Format: FormatYAML}))

	var decoded struct {
		Config struct {
			Trials int `yaml:"trials"`
		} `yaml:"config"`
		Report struct {
			Rows []struct {
				Case string `yaml:"case"`
			} `yaml:"rows"`
		} `yaml:"report"`
	}
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, 5, decoded.Config.Trials)
	require.Len(t, decoded.Report.Rows, 2)
	assert.Equal(t, "GORM View", decoded.Report.Rows[1].Case)
}

func TestRender_TableASCII(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, sampleResult(), Options{Format: FormatTable, NoColor: true, Graph: true}))

	out := buf.String()
	assert.NotContains(t, out, "\x1b[", "no escape sequences when colour is off")
	assert.Contains(t, out, "Results of 5 samples of 10 executions (ms):")
	assert.Contains(t, out, "SQL Prepared Statement")
	assert.Contains(t, out, "GORM View *")
	assert.Contains(t, out, "2.95x")
	assert.Contains(t, out, "Median latency per trial (ms)")
	assert.Contains(t, out, "- Broken: case produced no samples")

	// Rows keep rank order
	assert.Less(t, strings.Index(out, "SQL Prepared Statement"), strings.Index(out, "GORM View"))
}

func TestRender_Errors(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, Render(&buf, nil, DefaultOptions()))
	assert.Error(t, Render(&buf, sampleResult(), Options{Format: "xml"}))
	assert.Error(t, Render(&buf, sampleResult(), Options{Format: FormatCSV, Precision: -1}))
}

func TestIsTerminal_Buffer(t *testing.T) {
	assert.False(t, IsTerminal(&bytes.Buffer{}))
}
