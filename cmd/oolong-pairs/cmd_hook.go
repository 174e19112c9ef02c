package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oolongbench/oolong-pairs/internal/session"
	"github.com/oolongbench/oolong-pairs/internal/taskstate"
)

func newHookCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hook",
		Short: "Session lifecycle hooks for interactive mode",
		Long: `Session lifecycle hooks for interactive mode.

These subcommands run inside a model session, not by hand. The session-start
hook claims the pending task from the handoff directory and prints the task
injection; the stop hook reads the session transcript from stdin, scores the
answer, and completes the handoff record. The coordinator polling that
record persists the result.

The handoff directory comes from the OOLONG_STATE_DIR environment variable.`,
	}

	cmd.AddCommand(newHookSessionStartCommand())
	cmd.AddCommand(newHookStopCommand())

	return cmd
}

func newHookSessionStartCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "session-start",
		Aliases: []string{"start"},
		Short:   "Claim the pending task and print its injection",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := taskstate.NewStore(session.StateDir())
			if err != nil {
				return fmt.Errorf("opening task state store: %w", err)
			}

			injection, err := session.Inject(store)
			if err != nil {
				return err
			}
			if injection != "" {
				fmt.Fprint(cmd.OutOrStdout(), injection) //nolint:errcheck
			}
			return nil
		},
	}
}

func newHookStopCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Score the session transcript and complete the task",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := taskstate.NewStore(session.StateDir())
			if err != nil {
				return fmt.Errorf("opening task state store: %w", err)
			}

			return session.Finalize(store, cmd.InOrStdin())
		},
	}
}
