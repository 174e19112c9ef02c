package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

// MockEngine is a simple mock implementation for testing
type MockEngine struct {
	modelID string

	mu        sync.Mutex
	responses map[string]string
	respond   func(prompt string) string
	calls     []string
}

// NewMockEngine creates a new mock engine
func NewMockEngine(modelID string) *MockEngine {
	return &MockEngine{
		modelID:   modelID,
		responses: make(map[string]string),
	}
}

// RespondWith registers a canned answer for prompts containing the substring.
func (m *MockEngine) RespondWith(substring, answer string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[substring] = answer
}

// RespondFunc installs a function that computes answers from prompts.
// It takes precedence over RespondWith registrations.
func (m *MockEngine) RespondFunc(fn func(prompt string) string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.respond = fn
}

// Calls returns the prompts received so far.
func (m *MockEngine) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.calls))
	copy(out, m.calls)
	return out
}

func (m *MockEngine) Initialize(ctx context.Context) error {
	return nil
}

func (m *MockEngine) Invoke(ctx context.Context, req *InvokeRequest) (*InvokeResponse, error) {
	start := time.Now()

	m.mu.Lock()
	m.calls = append(m.calls, req.Prompt)
	respond := m.respond
	var canned string
	var found bool
	for substring, answer := range m.responses {
		if substring != "" && containsFold(req.Prompt, substring) {
			canned, found = answer, true
			break
		}
	}
	m.mu.Unlock()

	text := fmt.Sprintf("Mock response for prompt of %d chars", len(req.Prompt))
	switch {
	case respond != nil:
		text = respond(req.Prompt)
	case found:
		text = canned
	}

	return &InvokeResponse{
		Text:       text,
		TokensUsed: len(text) / 4,
		ModelID:    m.modelID,
		DurationMs: time.Since(start).Milliseconds(),
	}, nil
}

func (m *MockEngine) Shutdown(ctx context.Context) error {
	return nil
}
