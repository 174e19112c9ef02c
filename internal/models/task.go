package models

import (
	"fmt"
	"strings"
)

// AnswerType classifies the expected answer and selects the scoring rule.
type AnswerType string

const (
	AnswerNumeric    AnswerType = "NUMERIC"
	AnswerLabel      AnswerType = "LABEL"
	AnswerComparison AnswerType = "COMPARISON"
	AnswerDate       AnswerType = "DATE"
	// AnswerUnknown defers classification to auto-detection at scoring time.
	AnswerUnknown AnswerType = "UNKNOWN"
)

// ParseAnswerType maps a corpus answer_type string to an AnswerType.
// Unrecognized values fall back to AnswerLabel, matching how the corpus
// labels free-form answers.
func ParseAnswerType(s string) AnswerType {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "NUMERIC", "NUMERIC_ONE_CLASS":
		return AnswerNumeric
	case "LABEL":
		return AnswerLabel
	case "COMPARISON":
		return AnswerComparison
	case "DATE":
		return AnswerDate
	case "UNKNOWN", "":
		return AnswerUnknown
	default:
		return AnswerLabel
	}
}

// StrategyKind selects the content-shaping policy for a run.
type StrategyKind string

const (
	StrategyTruncation StrategyKind = "truncation"
	StrategyChunking   StrategyKind = "chunking"
)

// ParseStrategyKind converts a flag/spec value to a StrategyKind.
// An unknown name is a configuration error, fatal before any task executes.
func ParseStrategyKind(s string) (StrategyKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "truncation":
		return StrategyTruncation, nil
	case "chunking":
		return StrategyChunking, nil
	default:
		return "", fmt.Errorf("unknown strategy %q: must be truncation or chunking", s)
	}
}

// ExecutionMode selects how a strategy reaches the reasoning engine:
// a synchronous in-process call, or a handoff through the task state record
// to an externally-driven session.
type ExecutionMode string

const (
	ModeDirect      ExecutionMode = "direct"
	ModeInteractive ExecutionMode = "interactive"
)

// ParseExecutionMode converts a flag/spec value to an ExecutionMode.
func ParseExecutionMode(s string) (ExecutionMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "direct":
		return ModeDirect, nil
	case "interactive":
		return ModeInteractive, nil
	default:
		return "", fmt.Errorf("unknown execution mode %q: must be direct or interactive", s)
	}
}

// Task is one immutable unit of benchmark work. Tasks are created by the
// corpus loader and are read-only thereafter.
type Task struct {
	ID             string         `json:"id"`
	Dataset        string         `json:"dataset"`
	Context        string         `json:"context"`
	Question       string         `json:"question"`
	ExpectedAnswer string         `json:"expected_answer"`
	AnswerType     AnswerType     `json:"answer_type"`
	ContextLength  int            `json:"context_length"`
	TaskType       string         `json:"task_type,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// NewTask builds a Task and derives ContextLength from the context text.
func NewTask(id, dataset, contextText, question, expected string, answerType AnswerType) Task {
	return Task{
		ID:             id,
		Dataset:        dataset,
		Context:        contextText,
		Question:       question,
		ExpectedAnswer: expected,
		AnswerType:     answerType,
		ContextLength:  len(contextText),
	}
}
