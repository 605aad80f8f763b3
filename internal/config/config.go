// Package config loads querybench settings from defaults, an optional config
// file, QUERYBENCH_* environment variables and command-line flags, in
// increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"
	"github.com/spf13/viper"

	"github.com/querybench/querybench/internal/benchmark"
	"github.com/querybench/querybench/internal/benchmark/render"
	"github.com/querybench/querybench/internal/store"
)

const (
	// AppName is the application name.
	AppName = "querybench"
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "querybench"
	// EnvPrefix prefixes every environment override.
	EnvPrefix = "QUERYBENCH"
)

// Isolation modes.
const (
	IsolationReset      = "reset"
	IsolationStatements = "statements"
	IsolationNone       = "none"
)

// Config is the effective configuration of a run.
type Config struct {
	Trials       int           `mapstructure:"trials" toml:"trials"`
	Executions   int           `mapstructure:"executions" toml:"executions"`
	TrialTimeout time.Duration `mapstructure:"trial_timeout" toml:"trial_timeout"`

	Database  DatabaseConfig  `mapstructure:"database" toml:"database"`
	Query     QueryConfig     `mapstructure:"query" toml:"query"`
	Isolation IsolationConfig `mapstructure:"isolation" toml:"isolation"`

	// Cases restricts the run to the named cases. Empty runs all of them.
	Cases []string `mapstructure:"cases" toml:"cases"`

	Report  ReportConfig  `mapstructure:"report" toml:"report"`
	Metrics MetricsConfig `mapstructure:"metrics" toml:"metrics"`
	Log     LogConfig     `mapstructure:"log" toml:"log"`
}

// DatabaseConfig locates the SQLite file and shapes its pool and sample data.
type DatabaseConfig struct {
	Path         string     `mapstructure:"path" toml:"path"`
	MaxOpenConns int        `mapstructure:"max_open_conns" toml:"max_open_conns"`
	Seed         SeedConfig `mapstructure:"seed" toml:"seed"`
}

// SeedConfig shapes the generated org chart.
type SeedConfig struct {
	Employees int   `mapstructure:"employees" toml:"employees"`
	Span      int   `mapstructure:"span" toml:"span"`
	Seed      int64 `mapstructure:"seed" toml:"seed"`
}

// QueryConfig holds the parameters of the benchmarked query.
type QueryConfig struct {
	// RootID is the manager whose reports are fetched.
	RootID int `mapstructure:"root_id" toml:"root_id"`
}

// IsolationConfig selects how caches are reset before each trial.
type IsolationConfig struct {
	// Mode is one of reset, statements or none.
	Mode string `mapstructure:"mode" toml:"mode"`
	// Statements run before every trial in statements mode.
	Statements []string `mapstructure:"statements" toml:"statements"`
}

// ReportConfig controls how and where the ranked report is written.
type ReportConfig struct {
	Format    string `mapstructure:"format" toml:"format"`
	Precision int    `mapstructure:"precision" toml:"precision"`
	// Output is a file path; empty writes to stdout.
	Output  string `mapstructure:"output" toml:"output"`
	NoColor bool   `mapstructure:"no_color" toml:"no_color"`
	Graph   bool   `mapstructure:"graph" toml:"graph"`
}

// MetricsConfig enables the Prometheus textfile export.
type MetricsConfig struct {
	// File receives Prometheus text-format metrics after the run.
	File string `mapstructure:"file" toml:"file"`
}

// LogConfig configures the logger built by the logging package.
type LogConfig struct {
	Level  string `mapstructure:"level" toml:"level"`
	Format string `mapstructure:"format" toml:"format"`
	// File enables size-rotated file logging instead of stderr.
	File string `mapstructure:"file" toml:"file"`
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	run := benchmark.DefaultConfig()
	seed := store.DefaultSeedOptions()

	return &Config{
		Trials:       run.Trials,
		Executions:   run.Executions,
		TrialTimeout: run.TrialTimeout,
		Database: DatabaseConfig{
			Path:         "querybench.db",
			MaxOpenConns: 4,
			Seed: SeedConfig{
				Employees: seed.Employees,
				Span:      seed.Span,
				Seed:      seed.Seed,
			},
		},
		Query:     QueryConfig{RootID: 2},
		Isolation: IsolationConfig{Mode: IsolationReset},
		Cases:     []string{},
		Report: ReportConfig{
			Format:    string(render.FormatTable),
			Precision: 0,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// NewViper returns a viper instance carrying the defaults and the
// environment binding. Callers bind flags on it before calling Load.
func NewViper() *viper.Viper {
	v := viper.New()

	d := DefaultConfig()
	v.SetDefault("trials", d.Trials)
	v.SetDefault("executions", d.Executions)
	v.SetDefault("trial_timeout", d.TrialTimeout)
	v.SetDefault("database.path", d.Database.Path)
	v.SetDefault("database.max_open_conns", d.Database.MaxOpenConns)
	v.SetDefault("database.seed.employees", d.Database.Seed.Employees)
	v.SetDefault("database.seed.span", d.Database.Seed.Span)
	v.SetDefault("database.seed.seed", d.Database.Seed.Seed)
	v.SetDefault("query.root_id", d.Query.RootID)
	v.SetDefault("isolation.mode", d.Isolation.Mode)
	v.SetDefault("isolation.statements", d.Isolation.Statements)
	v.SetDefault("cases", d.Cases)
	v.SetDefault("report.format", d.Report.Format)
	v.SetDefault("report.precision", d.Report.Precision)
	v.SetDefault("report.output", d.Report.Output)
	v.SetDefault("report.no_color", d.Report.NoColor)
	v.SetDefault("report.graph", d.Report.Graph)
	v.SetDefault("metrics.file", d.Metrics.File)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("log.file", d.Log.File)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// Load reads the config file, if any, and returns the validated
// configuration together with the file it came from ("" when none).
//
// An explicit configFile must exist. Otherwise querybench.{yaml,toml,json}
// is looked up in the working directory and is optional.
func Load(v *viper.Viper, configFile string) (*Config, string, error) {
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(ConfigFileName)
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, "", fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}

	return &cfg, v.ConfigFileUsed(), nil
}

// FromFileOrEnv reports whether key was given by the loaded config file or
// by its QUERYBENCH_* environment variable. Flags and defaults are not
// considered. Call it after Load.
func FromFileOrEnv(v *viper.Viper, key string) bool {
	if v.InConfig(key) {
		return true
	}
	_, ok := os.LookupEnv(EnvKey(key))
	return ok
}

// EnvKey returns the environment variable that overrides key.
func EnvKey(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// Validate checks every setting and reports all problems at once.
func (c *Config) Validate() error {
	var errs []error

	if err := c.RunConfig().Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Database.Path == "" {
		errs = append(errs, errors.New("database.path is required"))
	}
	if c.Database.MaxOpenConns < 0 {
		errs = append(errs, fmt.Errorf("database.max_open_conns must not be negative (got %d)", c.Database.MaxOpenConns))
	}
	if err := c.SeedOptions().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("database.seed: %w", err))
	}
	if c.Query.RootID <= 0 {
		errs = append(errs, fmt.Errorf("query.root_id must be positive (got %d)", c.Query.RootID))
	}

	modes := []string{IsolationReset, IsolationStatements, IsolationNone}
	if !slices.Contains(modes, c.Isolation.Mode) {
		errs = append(errs, fmt.Errorf("isolation.mode must be one of %v (got %q)", modes, c.Isolation.Mode))
	}
	if c.Isolation.Mode == IsolationStatements && len(c.Isolation.Statements) == 0 {
		errs = append(errs, errors.New("isolation.statements is required in statements mode"))
	}

	if _, err := render.ParseFormat(c.Report.Format); err != nil {
		errs = append(errs, fmt.Errorf("report.format: %w", err))
	}
	if c.Report.Precision < 0 || c.Report.Precision > 6 {
		errs = append(errs, fmt.Errorf("report.precision must be between 0 and 6 (got %d)", c.Report.Precision))
	}

	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	formats := []string{"text", "json", "logfmt"}
	if !slices.Contains(formats, c.Log.Format) {
		errs = append(errs, fmt.Errorf("log.format must be one of %v (got %q)", formats, c.Log.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", benchmark.ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// RunConfig returns the run shape.
func (c *Config) RunConfig() benchmark.RunConfig {
	return benchmark.RunConfig{
		Trials:       c.Trials,
		Executions:   c.Executions,
		TrialTimeout: c.TrialTimeout,
	}
}

// SeedOptions returns the org chart generator settings.
func (c *Config) SeedOptions() store.SeedOptions {
	return store.SeedOptions{
		Employees: c.Database.Seed.Employees,
		Span:      c.Database.Seed.Span,
		Seed:      c.Database.Seed.Seed,
	}
}

// RenderOptions returns the report settings. Format must already be valid.
func (c *Config) RenderOptions() render.Options {
	format, _ := render.ParseFormat(c.Report.Format)
	return render.Options{
		Format:    format,
		Precision: c.Report.Precision,
		NoColor:   c.Report.NoColor,
		Graph:     c.Report.Graph,
	}
}

// WriteTOML writes the configuration as TOML.
func (c *Config) WriteTOML(w io.Writer) error {
	return toml.NewEncoder(w).Encode(c)
}
