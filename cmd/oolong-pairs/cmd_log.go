package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/oolongbench/oolong-pairs/internal/session"
)

func newLogCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "log",
		Short: "View and manage run event logs",
		Long: `View and manage run event logs.

Run logs are NDJSON files written during benchmark runs when --run-log is
enabled. They record the full lifecycle: run start, task execution, scores,
and completion.`,
	}

	cmd.AddCommand(newLogListCommand())
	cmd.AddCommand(newLogViewCommand())

	return cmd
}

func newLogListCommand() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded run logs",
		RunE: func(cmd *cobra.Command, args []string) error {
			absDir, err := filepath.Abs(dir)
			if err != nil {
				return err
			}

			files, err := session.ListLogs(absDir)
			if err != nil {
				return fmt.Errorf("listing run logs: %w", err)
			}

			if len(files) == 0 {
				fmt.Println("No run logs found.")
				return nil
			}

			fmt.Printf("%-44s %-8s %s\n", "File", "Events", "Modified")
			fmt.Println("─────────────────────────────────────────────────────────────────────")
			for _, f := range files {
				fmt.Printf("%-44s %-8d %s\n", f.Name, f.NumEvents, f.ModTime.Format("2006-01-02 15:04:05"))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", ".", "Directory to search for run logs")

	return cmd
}

func newLogViewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "view <run-log-file>",
		Short: "View a run timeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			events, err := session.ReadEvents(args[0])
			if err != nil {
				return fmt.Errorf("reading run log: %w", err)
			}

			session.RenderTimeline(os.Stdout, events)
			return nil
		},
	}

	return cmd
}
