package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/querybench/querybench/internal/store"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Rebuild the sample org chart",
	Long: `Seed replaces every person and employee row with a generated org chart.
The same --employees, --span and --seed always produce the same hierarchy,
so runs seeded alike are comparable.

Employee 1 is the root of the hierarchy and employee 2 is always one of its
direct reports, which makes 2 a useful --root-id.

Examples:
  qb seed
  qb seed --employees 5000 --span 8 --seed 7
`,
	GroupID: "setup",
	RunE:    runSeed,
}

func init() {
	d := store.DefaultSeedOptions()
	flags := seedCmd.Flags()
	flags.Int("employees", d.Employees, "Employees to generate, including the root")
	flags.Int("span", d.Span, "Maximum direct reports per manager")
	flags.Int64("seed", d.Seed, "Random seed")

	bindFlags(flags, map[string]string{
		"database.seed.employees": "employees",
		"database.seed.span":      "span",
		"database.seed.seed":      "seed",
	})

	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	db, err := store.Open(cfg.Database.Path, store.Options{MaxOpenConns: cfg.Database.MaxOpenConns})
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.InitSchemaContext(ctx); err != nil {
		return err
	}

	opts := cfg.SeedOptions()
	logger.Info("seeding", "path", db.Path(), "employees", opts.Employees, "span", opts.Span, "seed", opts.Seed)

	stats, err := db.Seed(ctx, opts)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Seeded %s\n", db.Path())
	fmt.Fprintf(out, "  Persons:   %d\n", stats.Persons)
	fmt.Fprintf(out, "  Employees: %d\n", stats.Employees)
	fmt.Fprintf(out, "  Max level: %d\n", stats.MaxLevel)
	return nil
}
