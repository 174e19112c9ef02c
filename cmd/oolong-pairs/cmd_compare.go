package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oolongbench/oolong-pairs/internal/reporting"
)

func newCompareCommand() *cobra.Command {
	var dbPath string
	var confidence float64

	cmd := &cobra.Command{
		Use:   "compare <baseline-run-id> <candidate-run-id>",
		Short: "Compare two runs on their shared tasks",
		Long: `Compare two runs pairwise on the tasks both completed.

Reports the mean score delta with a bootstrap confidence interval and the
normalized gain of the candidate over the baseline.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openResultStore(dbPath)
			if err != nil {
				return err
			}
			defer store.Close() //nolint:errcheck

			baseID, candID := args[0], args[1]

			baseSummary, err := store.GetRunSummary(baseID)
			if err != nil {
				return fmt.Errorf("loading run %s: %w", baseID, err)
			}
			if baseSummary == nil {
				return fmt.Errorf("run %s not found", baseID)
			}
			candSummary, err := store.GetRunSummary(candID)
			if err != nil {
				return fmt.Errorf("loading run %s: %w", candID, err)
			}
			if candSummary == nil {
				return fmt.Errorf("run %s not found", candID)
			}

			baseResults, err := store.GetResults(baseID)
			if err != nil {
				return fmt.Errorf("loading results for %s: %w", baseID, err)
			}
			candResults, err := store.GetResults(candID)
			if err != nil {
				return fmt.Errorf("loading results for %s: %w", candID, err)
			}

			cmp := reporting.Compare(baseSummary, candSummary, baseResults, candResults, confidence)
			fmt.Print(reporting.FormatComparison(cmp))
			return nil
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "Path to the result database")
	cmd.Flags().Float64Var(&confidence, "confidence", 0.95, "Confidence level for the delta interval")

	return cmd
}
