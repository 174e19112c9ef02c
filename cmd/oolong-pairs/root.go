package main

import (
	"log/slog"

	"github.com/spf13/cobra"
)

var version = "dev"

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "oolong-pairs",
		Short: "oolong-pairs - long-context benchmark harness",
		Long: `oolong-pairs runs long-context question answering benchmarks.

It drives oversized-context tasks through truncation or chunking strategies,
either directly against a model engine or through an interactive session
handoff, and stores scored results for comparison across runs.`,
		Version:      version,
		SilenceUsage: true,
	}

	debugLogging := cmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	cmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if *debugLogging {
			slog.SetLogLoggerLevel(slog.LevelDebug)
		}
	}

	// Add subcommands
	cmd.AddCommand(newRunCommand())
	cmd.AddCommand(newShowCommand())
	cmd.AddCommand(newCompareCommand())
	cmd.AddCommand(newListCommand())
	cmd.AddCommand(newExportCommand())
	cmd.AddCommand(newStatsCommand())
	cmd.AddCommand(newInitCommand())
	cmd.AddCommand(newHookCommand())
	cmd.AddCommand(newLogCommand())

	return cmd
}

func execute() error {
	rootCmd := newRootCommand()
	return rootCmd.Execute()
}
