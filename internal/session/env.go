// Package session bridges the coordinator and the interactive model
// session. The launcher starts a session process with the handoff
// environment; the hook entry points run inside that session's lifecycle,
// claiming the published task on start and scoring the answer on stop.
package session

import "os"

const (
	// EnvStateDir points the session-side hooks at the task handoff
	// directory.
	EnvStateDir = "OOLONG_STATE_DIR"

	defaultStateDir = "/tmp/oolong-pairs"
)

// StateDir resolves the handoff directory from the environment.
func StateDir() string {
	if dir := os.Getenv(EnvStateDir); dir != "" {
		return dir
	}
	return defaultStateDir
}
