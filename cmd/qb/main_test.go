package main

import (
	"bytes"
	"encoding/csv"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/querybench/querybench/internal/benchmark"
	"github.com/querybench/querybench/internal/strategies"
)

// run executes qb with args and returns its stdout. Flags are reset
// afterwards so that every invocation starts from the defaults.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
		resetFlags(t, rootCmd)
	})

	err := rootCmd.Execute()
	return out.String(), err
}

func execute(t *testing.T, args ...string) string {
	t.Helper()
	out, err := run(t, args...)
	require.NoError(t, err, "qb %s", strings.Join(args, " "))
	return out
}

func resetFlags(t *testing.T, cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			require.NoError(t, sv.Replace(nil))
		} else {
			require.NoError(t, f.Value.Set(f.DefValue))
		}
		f.Changed = false
	}
	cmd.PersistentFlags().VisitAll(reset)
	cmd.Flags().VisitAll(reset)
	for _, sub := range cmd.Commands() {
		resetFlags(t, sub)
	}
}

func TestCLI(t *testing.T) {
	t.Chdir(t.TempDir())
	dbPath := filepath.Join(t.TempDir(), "bench.db")
	common := []string{"--db", dbPath, "--log-level", "error"}

	t.Run("seed", func(t *testing.T) {
		out := execute(t, append(common, "seed", "--employees", "40", "--span", "4", "--seed", "3")...)
		assert.Contains(t, out, "Employees: 40")
		assert.Contains(t, out, "Persons:   40")
	})

	t.Run("cases", func(t *testing.T) {
		out := execute(t, append(common, "cases")...)
		assert.Equal(t, strings.Join(strategies.Names(), "\n")+"\n", out)
	})

	t.Run("cases verify", func(t *testing.T) {
		out := execute(t, append(common, "cases", "--verify")...)
		assert.Contains(t, out, "Rows for root 2:")
		for _, name := range strategies.Names() {
			assert.Contains(t, out, name)
		}
	})

	t.Run("run csv", func(t *testing.T) {
		out := execute(t, append(common, "run",
			"--trials", "2", "--executions", "1",
			"--isolation", "none", "--format", "csv")...)

		records, err := csv.NewReader(strings.NewReader(out)).ReadAll()
		require.NoError(t, err)
		require.Len(t, records, len(strategies.Names())+1)
		assert.Equal(t, "rank", records[0][0])
		assert.Equal(t, "1", records[1][0])
	})

	t.Run("run selected cases to file", func(t *testing.T) {
		report := filepath.Join(t.TempDir(), "report.md")
		metrics := filepath.Join(t.TempDir(), "qb.prom")
		out := execute(t, append(common, "run",
			"--trials", "2", "--executions", "2",
			"--isolation", "reset",
			"--cases", strategies.SQLPrepared,
			"--format", "markdown",
			"--output", report,
			"--metrics-file", metrics)...)
		assert.Empty(t, out)
		assert.FileExists(t, report)
		assert.FileExists(t, metrics)
	})

	t.Run("quick keeps trials from the environment", func(t *testing.T) {
		t.Setenv("QUERYBENCH_TRIALS", "3")
		out := execute(t, append(common, "run", "--quick",
			"--executions", "1", "--isolation", "none", "--format", "csv",
			"--cases", strategies.SQLPrepared)...)

		records, err := csv.NewReader(strings.NewReader(out)).ReadAll()
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, "samples", records[0][8])
		assert.Equal(t, "3", records[1][8])
	})

	t.Run("quick", func(t *testing.T) {
		out := execute(t, append(common, "run", "--quick",
			"--isolation", "none", "--format", "csv",
			"--cases", strategies.SQLPrepared)...)

		records, err := csv.NewReader(strings.NewReader(out)).ReadAll()
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, "10", records[1][8])
	})

	t.Run("run with no successful case", func(t *testing.T) {
		report := filepath.Join(t.TempDir(), "report.csv")

		// Every query sees an already expired deadline
		out, err := run(t, append(common, "run",
			"--trials", "2", "--executions", "1",
			"--isolation", "none", "--trial-timeout", "1ns")...)
		require.ErrorIs(t, err, benchmark.ErrNoSuccessfulCases)
		assert.Empty(t, out, "no table for an empty ranking")

		_, err = run(t, append(common, "run",
			"--trials", "2", "--executions", "1",
			"--isolation", "none", "--trial-timeout", "1ns",
			"--format", "csv", "--output", report)...)
		require.ErrorIs(t, err, benchmark.ErrNoSuccessfulCases)
		assert.NoFileExists(t, report)
	})

	t.Run("config show", func(t *testing.T) {
		out := execute(t, append(common, "config", "show")...)
		assert.Contains(t, out, "# no config file")
		assert.Contains(t, out, "[database]")
		assert.Contains(t, out, dbPath)
	})

	t.Run("version", func(t *testing.T) {
		out := execute(t, "version")
		assert.Contains(t, out, "qb dev")
	})
}
