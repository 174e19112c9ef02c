package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oolongbench/oolong-pairs/internal/reporting"
	"github.com/oolongbench/oolong-pairs/internal/storage"
)

func newExportCommand() *cobra.Command {
	var dbPath string
	var outputPath string
	var format string

	cmd := &cobra.Command{
		Use:   "export <run-id>",
		Short: "Export a run's results to a file",
		Long: `Export a run's results to a file.

Formats: json, jsonl, csv, junit. An output path ending in .gz is
gzip-compressed (except junit).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openResultStore(dbPath)
			if err != nil {
				return err
			}
			defer store.Close() //nolint:errcheck

			runID := args[0]
			if outputPath == "" {
				ext := format
				if format == "junit" {
					ext = "xml"
				}
				outputPath = fmt.Sprintf("%s.%s", runID, ext)
			}

			if format == "junit" {
				run, err := store.GetRun(runID)
				if err != nil {
					return fmt.Errorf("loading run %s: %w", runID, err)
				}
				if run == nil {
					return fmt.Errorf("run %s not found", runID)
				}
				results, err := store.GetResults(runID)
				if err != nil {
					return fmt.Errorf("loading results for %s: %w", runID, err)
				}
				if err := reporting.WriteJUnitXML(run, results, outputPath); err != nil {
					return err
				}
			} else {
				exportFormat, err := storage.ParseExportFormat(format)
				if err != nil {
					return err
				}
				if err := store.ExportResults(runID, outputPath, exportFormat); err != nil {
					return err
				}
			}

			fmt.Printf("Results exported to: %s\n", outputPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "Path to the result database")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output file path (default: <run-id>.<format>)")
	cmd.Flags().StringVar(&format, "format", "json", "Export format: json, jsonl, csv, junit")

	return cmd
}
