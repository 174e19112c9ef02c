package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/oolongbench/oolong-pairs/internal/dataset"
)

func newStatsCommand() *cobra.Command {
	var filter string
	var minContext int
	var limit int

	cmd := &cobra.Command{
		Use:   "stats <dataset>",
		Short: "Summarize a task corpus",
		Long:  `Load a JSONL or CSV task corpus and print its shape: task counts, context length distribution, and task/answer type histograms.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tasks, err := dataset.LoadTasks(args[0], dataset.Filter{
				Dataset:          filter,
				MinContextLength: minContext,
				Limit:            limit,
			})
			if err != nil {
				return fmt.Errorf("loading tasks: %w", err)
			}

			stats := dataset.ComputeStats(tasks)

			fmt.Printf("Corpus: %s\n\n", args[0])
			fmt.Printf("Tasks:          %d\n", stats.Count)
			if stats.Count > 0 {
				fmt.Printf("Context length: min=%d  max=%d  avg=%.0f\n",
					stats.MinContextLength, stats.MaxContextLength, stats.AvgContextLength)

				fmt.Println("\nTask types:")
				printHistogram(stats.TaskTypes)
				fmt.Println("\nAnswer types:")
				printHistogram(stats.AnswerTypes)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&filter, "filter", "", "Only load tasks from this dataset")
	cmd.Flags().IntVar(&minContext, "min-context", -1, "Minimum context length in characters")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of tasks to load")

	return cmd
}

func printHistogram(counts map[string]int) {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("  %-20s %d\n", k, counts[k])
	}
}
