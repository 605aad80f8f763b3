package main

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/querybench/querybench/internal/config"
	"github.com/querybench/querybench/internal/logging"
)

var (
	// v collects defaults, the config file, the environment and bound flags.
	v = config.NewViper()

	cfg       *config.Config
	cfgFile   string
	cfgUsed   string
	logger    *log.Logger
	logCloser io.Closer
)

var rootCmd = &cobra.Command{
	Use:   "qb",
	Short: "Rank data-access strategies by query latency",
	Long: `qb runs the same logical query through several interchangeable
data-access strategies, isolates caches before every trial, and ranks the
strategies by their median trial latency.

Settings come from built-in defaults, an optional querybench.yaml or
querybench.toml in the working directory (or --config), QUERYBENCH_*
environment variables, and flags, in increasing order of precedence.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadConfig,
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if logCloser != nil {
			return logCloser.Close()
		}
		return nil
	},
}

func init() {
	rootCmd.AddGroup(
		&cobra.Group{ID: "bench", Title: "Benchmarking:"},
		&cobra.Group{ID: "setup", Title: "Setup:"},
	)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "Config file (default: ./querybench.{yaml,toml})")
	flags.String("db", config.DefaultConfig().Database.Path, "SQLite database path")
	flags.String("log-level", "info", "Log level: debug, info, warn, error")
	flags.String("log-format", "text", "Log format: text, json, logfmt")
	flags.String("log-file", "", "Write logs to a rotated file instead of stderr")
	flags.Int("root-id", config.DefaultConfig().Query.RootID, "Manager whose reports the query fetches")

	bindFlags(flags, map[string]string{
		"database.path": "db",
		"log.level":     "log-level",
		"log.format":    "log-format",
		"log.file":      "log-file",
		"query.root_id": "root-id",
	})
}

// bindFlags binds config keys to flags so that a flag set on the command
// line overrides the file and the environment.
func bindFlags(flags *pflag.FlagSet, keys map[string]string) {
	for key, name := range keys {
		if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
			panic(err)
		}
	}
}

func loadConfig(cmd *cobra.Command, args []string) error {
	loaded, used, err := config.Load(v, cfgFile)
	if err != nil {
		return err
	}
	cfg, cfgUsed = loaded, used

	logger, logCloser, err = logging.New(os.Stderr, logging.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		File:   cfg.Log.File,
	})
	if err != nil {
		return err
	}
	log.SetDefault(logger)

	if cfgUsed != "" {
		logger.Debug("loaded config", "file", cfgUsed)
	}
	return nil
}
