package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/querybench/querybench/internal/benchmark"
	"github.com/querybench/querybench/internal/benchmark/render"
	"github.com/querybench/querybench/internal/config"
	"github.com/querybench/querybench/internal/store"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Benchmark every strategy and rank them by median latency",
	Long: `Run times each registered data-access strategy against the manager
employees query. Every case gets --trials trials of --executions back-to-back
invocations, with caches isolated before each trial. Cases are ranked by the
median of their per-trial times.

A case whose trials all fail is omitted from the ranking and listed below it.
The run aborts if cache isolation fails, since timings taken on a warm cache
would not be comparable.

Examples:
  # Full run: 100 trials of 100 executions per case
  qb run

  # Smoke run with 10 trials of 10 executions
  qb run --quick

  # Only the prepared statement and the view, as markdown
  qb run --cases "SQL Prepared Statement" --cases "SQL View By Row" --format markdown

  # Pick cases interactively and export metrics
  qb run --pick --metrics-file querybench.prom
`,
	GroupID: "bench",
	RunE:    runBenchmark,
}

func init() {
	flags := runCmd.Flags()
	flags.Int("trials", benchmark.DefaultConfig().Trials, "Timed trials per case")
	flags.Int("executions", benchmark.DefaultConfig().Executions, "Invocations per trial")
	flags.Duration("trial-timeout", benchmark.DefaultConfig().TrialTimeout, "Upper bound for one invocation (0 disables it)")
	flags.Bool("quick", false, "Run 10 trials of 10 executions unless trials or executions are set by flag, config file or environment")
	flags.StringSlice("cases", nil, "Run only the named cases (repeatable)")
	flags.Bool("pick", false, "Choose cases interactively")
	flags.String("format", string(render.FormatTable), fmt.Sprintf("Report format: %v", render.Formats()))
	flags.Int("precision", 0, "Decimal places for milliseconds")
	flags.StringP("output", "o", "", "Write the report to a file instead of stdout")
	flags.Bool("no-color", false, "Plain ASCII table output")
	flags.Bool("graph", false, "Append a bar graph of medians to table output")
	flags.String("metrics-file", "", "Write Prometheus text metrics to this file")
	flags.String("isolation", config.IsolationReset, "Cache isolation: reset, statements or none")

	bindFlags(flags, map[string]string{
		"trials":           "trials",
		"executions":       "executions",
		"trial_timeout":    "trial-timeout",
		"cases":            "cases",
		"report.format":    "format",
		"report.precision": "precision",
		"report.output":    "output",
		"report.no_color":  "no-color",
		"report.graph":     "graph",
		"metrics.file":     "metrics-file",
		"isolation.mode":   "isolation",
	})

	rootCmd.AddCommand(runCmd)
}

func runBenchmark(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runConfig := cfg.RunConfig()
	if quick, _ := cmd.Flags().GetBool("quick"); quick {
		q := benchmark.QuickConfig()
		if !explicitlySet(cmd, "trials", "trials") {
			runConfig.Trials = q.Trials
		}
		if !explicitlySet(cmd, "executions", "executions") {
			runConfig.Executions = q.Executions
		}
	}

	db, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Warn("failed to close database", "err", err)
		}
	}()

	suite, err := openSuite(ctx, db)
	if err != nil {
		return err
	}
	defer suite.Close()

	all := benchmark.NewRegistry()
	if err := suite.Register(all); err != nil {
		return err
	}

	names := cfg.Cases
	if pick, _ := cmd.Flags().GetBool("pick"); pick {
		if names, err = pickCases(all.Names()); err != nil {
			return err
		}
	}
	reg, err := all.Select(names...)
	if err != nil {
		return err
	}

	var metrics *benchmark.Metrics
	if cfg.Metrics.File != "" {
		metrics = benchmark.NewMetrics()
	}

	runner := &benchmark.Runner{
		Registry: reg,
		Isolator: isolatorFor(db),
		Config:   runConfig,
		Logger:   logger,
		Metrics:  metrics,
	}

	result, runErr := runner.Run(ctx)
	if result == nil {
		return runErr
	}

	if errors.Is(runErr, benchmark.ErrNoSuccessfulCases) {
		// Nothing to rank; the omissions are the report.
		for _, o := range result.Report.Omitted {
			logger.Error("case omitted", "case", o.Case, "reason", o.Reason)
		}
		if err := writeMetrics(metrics); err != nil {
			return errors.Join(runErr, err)
		}
		return runErr
	}

	if err := writeReport(cmd.OutOrStdout(), result); err != nil {
		return errors.Join(runErr, err)
	}

	if err := writeMetrics(metrics); err != nil {
		return errors.Join(runErr, err)
	}
	return runErr
}

// explicitlySet reports whether the user chose a value for key, by flag,
// config file or environment, rather than leaving it at its default.
func explicitlySet(cmd *cobra.Command, flag, key string) bool {
	return cmd.Flags().Changed(flag) || config.FromFileOrEnv(v, key)
}

func writeMetrics(metrics *benchmark.Metrics) error {
	if metrics == nil {
		return nil
	}
	if err := metrics.WriteTextfile(cfg.Metrics.File); err != nil {
		return err
	}
	logger.Info("wrote metrics", "file", cfg.Metrics.File)
	return nil
}

// isolatorFor returns the cache isolation configured by isolation.mode.
func isolatorFor(db *store.DB) benchmark.Isolator {
	switch cfg.Isolation.Mode {
	case config.IsolationStatements:
		return benchmark.SQLIsolator{DB: db.RawDB(), Statements: cfg.Isolation.Statements}
	case config.IsolationNone:
		return benchmark.NoopIsolator{}
	default:
		return db
	}
}

// writeReport renders the result to report.output, or to w when unset.
func writeReport(w io.Writer, result *benchmark.RunResult) error {
	opts := cfg.RenderOptions()

	if cfg.Report.Output == "" {
		return render.Render(w, result, opts)
	}

	f, err := os.Create(cfg.Report.Output)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	if err := render.Render(f, result, opts); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write report file: %w", err)
	}
	logger.Info("wrote report", "file", cfg.Report.Output, "format", opts.Format)
	return nil
}

// pickCases asks which cases to run. Selecting nothing runs all of them.
func pickCases(names []string) ([]string, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return nil, fmt.Errorf("--pick needs an interactive terminal")
	}

	options := make([]huh.Option[string], len(names))
	for i, name := range names {
		options[i] = huh.NewOption(name, name).Selected(true)
	}

	var picked []string
	sel := huh.NewMultiSelect[string]().
		Title("Cases to benchmark").
		Options(options...).
		Value(&picked)

	if err := huh.NewForm(huh.NewGroup(sel)).Run(); err != nil {
		return nil, fmt.Errorf("case selection: %w", err)
	}
	return picked, nil
}
