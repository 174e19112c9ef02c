package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newListCommand() *cobra.Command {
	var dbPath string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent benchmark runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openResultStore(dbPath)
			if err != nil {
				return err
			}
			defer store.Close() //nolint:errcheck

			runs, err := store.ListRuns(limit)
			if err != nil {
				return fmt.Errorf("listing runs: %w", err)
			}
			if len(runs) == 0 {
				fmt.Println("No runs recorded.")
				return nil
			}

			fmt.Printf("%-10s %-20s %-12s %-12s %6s %7s %9s\n",
				"Run", "Timestamp", "Strategy", "Mode", "Tasks", "Failed", "Avg Score")
			fmt.Println("────────────────────────────────────────────────────────────────────────────────")
			for _, run := range runs {
				fmt.Printf("%-10s %-20s %-12s %-12s %6d %7d %9.4f\n",
					run.ID,
					run.Timestamp.Format("2006-01-02 15:04:05"),
					run.Strategy,
					run.Mode,
					run.TasksTotal,
					run.TasksFailed,
					run.AvgScore)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "Path to the result database")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs to list")

	return cmd
}
