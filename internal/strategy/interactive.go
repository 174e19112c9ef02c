package strategy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/oolongbench/oolong-pairs/internal/models"
	"github.com/oolongbench/oolong-pairs/internal/taskstate"
)

// defaultInteractiveWait bounds how long the coordinator waits for the
// session side to finish a task after the session process returns.
const defaultInteractiveWait = 60 * time.Second

// executeInteractive runs a task through the file-based handoff: publish a
// pending record, launch a session whose hooks claim and finish it, then
// poll the record until it reaches a terminal state.
func executeInteractive(ctx context.Context, deps Deps, task *models.Task, runID string, kind models.StrategyKind, start time.Time) *models.Result {
	rec := &taskstate.Record{
		TaskID:         task.ID,
		RunID:          runID,
		Context:        task.Context,
		Question:       task.Question,
		ExpectedAnswer: task.ExpectedAnswer,
		AnswerType:     task.AnswerType,
		Strategy:       kind,
	}
	if err := deps.Store.Create(rec); err != nil {
		return finishResult(task, runID, kind, "", 0, start, fmt.Errorf("publish task record: %w", err))
	}
	defer func() {
		if err := deps.Store.Clear(); err != nil {
			slog.Warn("failed to clear task record", "task_id", task.ID, "error", err)
		}
	}()

	if err := deps.Launcher.Launch(ctx, "Begin benchmark task."); err != nil {
		// The session may still have finished the task before dying,
		// so keep polling for a terminal record regardless.
		slog.Warn("session launch failed", "task_id", task.ID, "error", err)
	}

	wait := deps.InteractiveWait
	if wait <= 0 {
		wait = defaultInteractiveWait
	}

	final, err := deps.Store.PollUntilTerminal(ctx, rec.Epoch, wait)
	if err != nil {
		if errors.Is(err, taskstate.ErrTimeout) {
			return timedOutResult(task, runID, kind, wait)
		}
		return finishResult(task, runID, kind, "", 0, start, fmt.Errorf("wait for task completion: %w", err))
	}

	if final.Status == taskstate.StatusFailed {
		// Failed results are recognized by a non-empty error field.
		msg := final.Error
		if msg == "" {
			msg = "session reported failure"
		}
		return finishResult(task, runID, kind, final.ActualAnswer, 0, start, errors.New(msg))
	}

	res := &models.Result{
		TaskID:         task.ID,
		RunID:          runID,
		Strategy:       kind,
		ActualAnswer:   final.ActualAnswer,
		ExpectedAnswer: task.ExpectedAnswer,
		LatencyMS:      float64(time.Since(start).Microseconds()) / 1000.0,
		TaskType:       task.TaskType,
		TokensUsed:     final.TokensUsed,
	}
	if final.Score != nil {
		res.Score = *final.Score
	}
	return res
}

// timedOutResult reports a task the session never finished. Latency is
// pinned to the wait bound rather than wall time so retried runs compare.
func timedOutResult(task *models.Task, runID string, kind models.StrategyKind, wait time.Duration) *models.Result {
	return &models.Result{
		TaskID:         task.ID,
		RunID:          runID,
		Strategy:       kind,
		ExpectedAnswer: task.ExpectedAnswer,
		TaskType:       task.TaskType,
		Score:          0.0,
		LatencyMS:      float64(wait.Milliseconds()),
		Error:          "Task timed out",
	}
}
