// Package engine abstracts the model backends used to answer benchmark
// prompts. The CLI engine shells out to the claude binary, the OpenAI
// engine talks to any OpenAI-compatible endpoint, and the mock engine
// serves canned answers for tests and offline runs.
package engine

import "context"

// Engine is the interface for executing benchmark prompts against a model.
type Engine interface {
	// Initialize sets up the engine
	Initialize(ctx context.Context) error

	// Invoke sends a prompt and returns the model's answer
	Invoke(ctx context.Context, req *InvokeRequest) (*InvokeResponse, error)

	// Shutdown cleans up resources
	Shutdown(ctx context.Context) error
}

// InvokeRequest represents a single model invocation.
type InvokeRequest struct {
	Prompt string
	// Model overrides the engine's default model when non-empty. Chunking
	// uses this to route per-chunk subcalls to a cheaper model.
	Model      string
	TimeoutSec int
}

// InvokeResponse represents the result of a model invocation.
type InvokeResponse struct {
	Text       string
	TokensUsed int
	ModelID    string
	DurationMs int64
}
