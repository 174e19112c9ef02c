package session

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"
)

// defaultSessionTimeout bounds a single interactive session. The session
// has to read a large context and reason over it, so this is generous.
const defaultSessionTimeout = 600 * time.Second

// Launcher starts interactive model sessions wired to the task handoff.
type Launcher struct {
	binary   string
	model    string
	stateDir string
	timeout  time.Duration
}

// LauncherArgs configures a session launcher.
type LauncherArgs struct {
	Model    string
	StateDir string
	Timeout  time.Duration
}

// NewLauncher creates a launcher for claude sessions.
func NewLauncher(args LauncherArgs) *Launcher {
	timeout := args.Timeout
	if timeout <= 0 {
		timeout = defaultSessionTimeout
	}
	return &Launcher{
		binary:   "claude",
		model:    args.Model,
		stateDir: args.StateDir,
		timeout:  timeout,
	}
}

// Launch runs one session to completion. The session's hooks read the
// pending task from the handoff directory, so the prompt is only a nudge.
func (l *Launcher) Launch(ctx context.Context, prompt string) error {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, l.binary,
		"--print",
		"--model", l.model,
		"--output-format", "json")
	cmd.Stdin = strings.NewReader(prompt)
	cmd.Env = append(os.Environ(), EnvStateDir+"="+l.stateDir)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	slog.Debug("launching session", "model", l.model, "state_dir", l.stateDir)

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("session timed out after %s: %w", l.timeout, ctx.Err())
		}
		return fmt.Errorf("session failed: %s: %w", strings.TrimSpace(stderr.String()), err)
	}
	return nil
}
