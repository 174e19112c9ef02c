// Package taskstate implements the durable single-slot mailbox shared between
// the orchestrator and an out-of-process reasoning session.
//
// Exactly one record is live per state directory. The orchestrator owns the
// write of a pending record; ownership of the in_progress → terminal write
// passes to the session for the duration of one task. A per-task epoch and an
// advisory lock file make cross-run or stale-session writes fail loudly
// instead of silently corrupting the slot.
package taskstate

import (
	"github.com/oolongbench/oolong-pairs/internal/models"
)

// Status is the lifecycle state of a task record.
// Transitions: pending → in_progress → {completed | failed}.
// Terminal states are immutable.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether the status is completed or failed.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Record is the single mutable handoff entity. It carries everything the
// session needs to run one task, plus the fields the session writes back.
type Record struct {
	TaskID         string              `json:"task_id"`
	RunID          string              `json:"run_id"`
	Context        string              `json:"context"`
	Question       string              `json:"question"`
	ExpectedAnswer string              `json:"expected_answer"`
	AnswerType     models.AnswerType   `json:"answer_type"`
	Strategy       models.StrategyKind `json:"strategy"`
	Status         Status              `json:"status"`
	StartTime      float64             `json:"start_time"`

	// Epoch increases by one for every record written to the slot. A writer
	// must present the epoch it read; a mismatch means the slot has been
	// reassigned and the write is rejected.
	Epoch int64 `json:"epoch"`

	ActualAnswer string   `json:"actual_answer,omitempty"`
	Score        *float64 `json:"score,omitempty"`
	TokensUsed   int      `json:"tokens_used,omitempty"`
	Error        string   `json:"error,omitempty"`
}
