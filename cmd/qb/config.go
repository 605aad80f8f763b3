package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:     "config",
	Short:   "Inspect the effective configuration",
	GroupID: "setup",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration as TOML",
	Long: `Show prints the configuration after defaults, the config file, QUERYBENCH_*
environment variables and flags have been merged. The output is a valid
querybench.toml.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if cfgUsed != "" {
			fmt.Fprintf(out, "# loaded from %s\n", cfgUsed)
		} else {
			fmt.Fprintln(out, "# no config file, built-in defaults")
		}
		return cfg.WriteTOML(out)
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
}
