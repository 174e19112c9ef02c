package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oolongbench/oolong-pairs/internal/config"
	"github.com/oolongbench/oolong-pairs/internal/models"
	"github.com/oolongbench/oolong-pairs/internal/reporting"
	"github.com/oolongbench/oolong-pairs/internal/statistics"
	"github.com/oolongbench/oolong-pairs/internal/storage"
)

func newShowCommand() *cobra.Command {
	var dbPath string
	var showResults bool

	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show the summary for one run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openResultStore(dbPath)
			if err != nil {
				return err
			}
			defer store.Close() //nolint:errcheck

			runID := args[0]
			summary, err := store.GetRunSummary(runID)
			if err != nil {
				return fmt.Errorf("loading run %s: %w", runID, err)
			}
			if summary == nil {
				return fmt.Errorf("run %s not found", runID)
			}

			results, err := store.GetResults(runID)
			if err != nil {
				return fmt.Errorf("loading results for %s: %w", runID, err)
			}

			var scores []float64
			for _, res := range results {
				if !res.Failed() {
					scores = append(scores, res.Score)
				}
			}
			if len(scores) >= 2 {
				ci := statistics.BootstrapCI(scores, config.DefaultConfidenceLevel)
				summary.ScoreCI = &models.ScoreConfidenceInterval{
					Lower:           ci.Lower,
					Upper:           ci.Upper,
					Mean:            ci.Mean,
					ConfidenceLevel: ci.ConfidenceLevel,
				}
			}

			fmt.Print(reporting.FormatRunSummary(summary))

			if showResults {
				fmt.Println("\nPer-task results:")
				for _, res := range results {
					if res.Failed() {
						fmt.Printf("  ✗ %-24s FAILED: %s\n", res.TaskID, res.Error)
						continue
					}
					fmt.Printf("  ✓ %-24s score=%.4f  got=%q  want=%q\n",
						res.TaskID, res.Score, res.ActualAnswer, res.ExpectedAnswer)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "Path to the result database")
	cmd.Flags().BoolVar(&showResults, "results", false, "List per-task results")

	return cmd
}

// openResultStore opens the database at path, falling back to the configured
// default when path is empty.
func openResultStore(path string) (*storage.Store, error) {
	if path == "" {
		cfg, err := config.Load(".")
		if err != nil {
			return nil, err
		}
		path = cfg.Storage.DBPath
	}
	store, err := storage.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening result store: %w", err)
	}
	return store, nil
}
