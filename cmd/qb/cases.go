package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/querybench/querybench/internal/strategies"
)

var casesCmd = &cobra.Command{
	Use:   "cases",
	Short: "List the benchmark cases",
	Long: `Cases lists every data-access strategy in registration order.

With --verify each strategy runs once against the database and the number of
rows it returned is printed. All strategies should agree.`,
	GroupID: "bench",
	RunE:    runCases,
}

func init() {
	casesCmd.Flags().Bool("verify", false, "Run each case once and print its row count")
	rootCmd.AddCommand(casesCmd)
}

func runCases(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	verify, _ := cmd.Flags().GetBool("verify")
	if !verify {
		for _, name := range strategies.Names() {
			fmt.Fprintln(out, name)
		}
		return nil
	}

	ctx := cmd.Context()
	db, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	suite, err := openSuite(ctx, db)
	if err != nil {
		return err
	}
	defer suite.Close()

	counts := make(map[int]bool)
	fmt.Fprintf(out, "Rows for root %d:\n", suite.RootID())
	for _, name := range strategies.Names() {
		n, err := suite.Count(ctx, name)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		counts[n] = true
		fmt.Fprintf(out, "  %-24s %d\n", name, n)
	}

	if len(counts) > 1 {
		return fmt.Errorf("strategies disagree on the row count")
	}
	return nil
}
