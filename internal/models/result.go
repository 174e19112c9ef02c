package models

import "time"

// Result records the outcome of driving one task through one strategy.
// Results are created once and appended to the result store; a failed task is
// shaped identically to a low-scoring success so downstream analysis always
// aggregates over a uniform format.
type Result struct {
	TaskID         string       `json:"task_id"`
	RunID          string       `json:"run_id"`
	Strategy       StrategyKind `json:"strategy"`
	ActualAnswer   string       `json:"actual_answer"`
	ExpectedAnswer string       `json:"expected_answer"`
	Score          float64      `json:"score"`
	LatencyMS      float64      `json:"latency_ms"`
	TokensUsed     int          `json:"tokens_used"`
	TaskType       string       `json:"task_type,omitempty"`
	Error          string       `json:"error,omitempty"`
}

// Failed reports whether this result records a task failure rather than an
// ordinary (possibly zero) score.
func (r Result) Failed() bool {
	return r.Error != ""
}

// BenchmarkRun is the mutable run-level record. The orchestrator creates it
// at run start, updates counters after each task, and finalizes aggregates at
// run end.
type BenchmarkRun struct {
	ID             string         `json:"id"`
	Timestamp      time.Time      `json:"timestamp"`
	Mode           ExecutionMode  `json:"mode"`
	Strategy       StrategyKind   `json:"strategy"`
	TasksTotal     int            `json:"tasks_total"`
	TasksCompleted int            `json:"tasks_completed"`
	TasksFailed    int            `json:"tasks_failed"`
	AvgScore       float64        `json:"avg_score"`
	TotalLatencyMS float64        `json:"total_latency_ms"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// RunSummary holds the derived statistics for one finished run.
type RunSummary struct {
	RunID          string                    `json:"run_id"`
	Strategy       StrategyKind              `json:"strategy"`
	Mode           ExecutionMode             `json:"mode"`
	TasksCompleted int                       `json:"tasks_completed"`
	TasksFailed    int                       `json:"tasks_failed"`
	AvgScore       float64                   `json:"avg_score"`
	MinScore       float64                   `json:"min_score"`
	MaxScore       float64                   `json:"max_score"`
	TotalLatencyMS float64                   `json:"total_latency_ms"`
	AvgLatencyMS   float64                   `json:"avg_latency_ms"`
	ByTaskType     map[string]TaskTypeStats  `json:"by_task_type,omitempty"`
	ScoreCI        *ScoreConfidenceInterval  `json:"score_ci,omitempty"`
}

// TaskTypeStats aggregates scores for one task type within a run.
type TaskTypeStats struct {
	Count    int     `json:"count"`
	AvgScore float64 `json:"avg_score"`
}

// ScoreConfidenceInterval is a bootstrap confidence interval over per-task
// scores, populated when a run has at least two scored tasks.
type ScoreConfidenceInterval struct {
	Lower           float64 `json:"lower"`
	Upper           float64 `json:"upper"`
	Mean            float64 `json:"mean"`
	ConfidenceLevel float64 `json:"confidence_level"`
}
