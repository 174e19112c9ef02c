// Package strategy implements the execution strategies that carry a task's
// oversized context into a bounded model call. Truncation trims the context
// to a character budget; chunking splits it, runs per-chunk subcalls and
// synthesizes a final answer. Each strategy runs either directly against an
// engine or interactively through the file-based task handoff.
package strategy

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/oolongbench/oolong-pairs/internal/engine"
	"github.com/oolongbench/oolong-pairs/internal/models"
	"github.com/oolongbench/oolong-pairs/internal/scoring"
	"github.com/oolongbench/oolong-pairs/internal/taskstate"
)

// SessionAdapter executes a single benchmark task and produces a result.
// Execution failures are not returned as errors: they land in the result's
// Error field with a zero score so a run can keep going.
type SessionAdapter interface {
	// Kind returns the strategy this adapter implements
	Kind() models.StrategyKind

	// Execute runs the task to completion and scores the answer
	Execute(ctx context.Context, task *models.Task, runID string) *models.Result
}

// SessionLauncher starts an interactive model session that picks up the
// pending record from the task state store.
type SessionLauncher interface {
	Launch(ctx context.Context, prompt string) error
}

// Deps carries the runtime collaborators shared by all adapters.
type Deps struct {
	Engine engine.Engine

	// Store and Launcher are only required for interactive execution.
	Store    *taskstate.Store
	Launcher SessionLauncher

	// InteractiveWait bounds how long to wait for the session side to
	// finish a task. Zero means the default of one minute.
	InteractiveWait time.Duration
}

// Create builds a session adapter from the strategy kind and its params.
func Create(kind models.StrategyKind, mode models.ExecutionMode, deps Deps, params map[string]any) (SessionAdapter, error) {
	if mode == models.ModeInteractive {
		if deps.Store == nil || deps.Launcher == nil {
			return nil, fmt.Errorf("interactive mode requires a task state store and a session launcher")
		}
	} else if deps.Engine == nil {
		return nil, fmt.Errorf("direct mode requires an engine")
	}

	switch kind {
	case models.StrategyTruncation:
		var v struct {
			MaxContextChars int    `mapstructure:"max_context_chars"`
			Model           string `mapstructure:"model"`
			TimeoutSec      int    `mapstructure:"timeout_sec"`
		}
		if err := mapstructure.Decode(params, &v); err != nil {
			return nil, fmt.Errorf("truncation params: %w", err)
		}
		return NewTruncationAdapter(TruncationArgs{
			Mode:            mode,
			Deps:            deps,
			MaxContextChars: v.MaxContextChars,
			Model:           v.Model,
			TimeoutSec:      v.TimeoutSec,
		}), nil

	case models.StrategyChunking:
		var v struct {
			Chunker      string `mapstructure:"chunker"`
			ChunkSize    int    `mapstructure:"chunk_size"`
			Model        string `mapstructure:"model"`
			SubcallModel string `mapstructure:"subcall_model"`
			Parallelism  int    `mapstructure:"parallelism"`
		}
		if err := mapstructure.Decode(params, &v); err != nil {
			return nil, fmt.Errorf("chunking params: %w", err)
		}
		return NewChunkingAdapter(ChunkingArgs{
			Mode:         mode,
			Deps:         deps,
			Chunker:      v.Chunker,
			ChunkSize:    v.ChunkSize,
			Model:        v.Model,
			SubcallModel: v.SubcallModel,
			Parallelism:  v.Parallelism,
		})

	default:
		return nil, fmt.Errorf("'%s' is not a valid strategy", kind)
	}
}

// finishResult scores the answer and assembles the result record. A non-nil
// execErr forces a zero score with the error message recorded.
func finishResult(task *models.Task, runID string, kind models.StrategyKind, answer string, tokens int, start time.Time, execErr error) *models.Result {
	res := &models.Result{
		TaskID:         task.ID,
		RunID:          runID,
		Strategy:       kind,
		ActualAnswer:   answer,
		ExpectedAnswer: task.ExpectedAnswer,
		LatencyMS:      float64(time.Since(start).Microseconds()) / 1000.0,
		TokensUsed:     tokens,
		TaskType:       task.TaskType,
	}
	if execErr != nil {
		res.Error = execErr.Error()
		res.Score = 0.0
		return res
	}
	res.Score = scoring.Score(task.ExpectedAnswer, answer, task.AnswerType)
	return res
}

func engineRequest(model, prompt string, timeoutSec int) *engine.InvokeRequest {
	return &engine.InvokeRequest{
		Prompt:     prompt,
		Model:      model,
		TimeoutSec: timeoutSec,
	}
}

// answerFromText prefers an explicit answer marker, falling back to the
// whole response when the model skipped the marker.
func answerFromText(text string) string {
	if marked := scoring.ExtractAnswer(text); marked != "" {
		return marked
	}
	return strings.TrimSpace(text)
}
