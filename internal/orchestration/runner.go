// Package orchestration drives a benchmark run: it walks the task list,
// hands each task to the strategy adapter, persists results, and publishes
// progress events for the CLI to render.
package orchestration

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/oolongbench/oolong-pairs/internal/cache"
	"github.com/oolongbench/oolong-pairs/internal/models"
	"github.com/oolongbench/oolong-pairs/internal/statistics"
	"github.com/oolongbench/oolong-pairs/internal/storage"
	"github.com/oolongbench/oolong-pairs/internal/strategy"
)

// ProgressListener receives progress updates
type ProgressListener func(event ProgressEvent)

// EventType represents the type of progress event
type EventType string

// EventType constants
const (
	EventRunStart     EventType = "run_start"
	EventRunComplete  EventType = "run_complete"
	EventRunStopped   EventType = "run_stopped"
	EventTaskStart    EventType = "task_start"
	EventTaskComplete EventType = "task_complete"
	EventTaskCached   EventType = "task_cached"
	EventTaskFailed   EventType = "task_failed"
)

// ProgressEvent represents a progress update
type ProgressEvent struct {
	EventType  EventType
	RunID      string
	TaskID     string
	TaskNum    int
	TotalTasks int
	Score      float64
	Error      string
	DurationMs int64
}

// Runner orchestrates one benchmark run over a task list.
type Runner struct {
	adapter strategy.SessionAdapter
	store   *storage.Store
	mode    models.ExecutionMode

	// Cache settings; nil cache disables result reuse.
	cache       *cache.Cache
	cacheModel  string
	cacheParams map[string]any

	confidenceLevel float64
	metadata        map[string]any

	progressMu sync.Mutex
	listeners  []ProgressListener
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithCache enables result caching. model and params must describe the
// adapter's configuration so cache keys change with it.
func WithCache(c *cache.Cache, model string, params map[string]any) RunnerOption {
	return func(r *Runner) {
		r.cache = c
		r.cacheModel = model
		r.cacheParams = params
	}
}

// WithConfidenceLevel sets the confidence level for the run's score
// interval. Zero keeps the default of 0.95.
func WithConfidenceLevel(level float64) RunnerOption {
	return func(r *Runner) {
		if level > 0 && level < 1 {
			r.confidenceLevel = level
		}
	}
}

// WithMetadata attaches free-form metadata to the run record.
func WithMetadata(md map[string]any) RunnerOption {
	return func(r *Runner) {
		r.metadata = md
	}
}

// NewRunner creates a runner for one strategy/mode combination.
func NewRunner(adapter strategy.SessionAdapter, store *storage.Store, mode models.ExecutionMode, opts ...RunnerOption) *Runner {
	r := &Runner{
		adapter:         adapter,
		store:           store,
		mode:            mode,
		confidenceLevel: 0.95,
		listeners:       []ProgressListener{},
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// OnProgress registers a progress listener
func (r *Runner) OnProgress(listener ProgressListener) {
	r.progressMu.Lock()
	defer r.progressMu.Unlock()
	r.listeners = append(r.listeners, listener)
}

func (r *Runner) notifyProgress(event ProgressEvent) {
	r.progressMu.Lock()
	listeners := make([]ProgressListener, len(r.listeners))
	copy(listeners, r.listeners)
	r.progressMu.Unlock()

	for _, listener := range listeners {
		listener(event)
	}
}

// NewRunID generates a short unique run identifier.
func NewRunID() string {
	return uuid.NewString()[:8]
}

// Run executes every task sequentially and returns the run ID. Individual
// task failures are recorded as zero-score results; Run only fails on
// storage errors or cancellation.
func (r *Runner) Run(ctx context.Context, tasks []models.Task) (string, error) {
	runID := NewRunID()
	startTime := time.Now()

	run := &models.BenchmarkRun{
		ID:         runID,
		Timestamp:  startTime,
		Mode:       r.mode,
		Strategy:   r.adapter.Kind(),
		TasksTotal: len(tasks),
		Metadata:   r.metadata,
	}
	if err := r.store.SaveRun(run); err != nil {
		return "", fmt.Errorf("creating run record: %w", err)
	}

	r.notifyProgress(ProgressEvent{
		EventType:  EventRunStart,
		RunID:      runID,
		TotalTasks: len(tasks),
	})

	for i := range tasks {
		task := &tasks[i]

		if err := ctx.Err(); err != nil {
			r.notifyProgress(ProgressEvent{
				EventType: EventRunStopped,
				RunID:     runID,
				TaskNum:   i,
			})
			// Persist what we have before bailing out.
			if statsErr := r.store.UpdateRunStats(runID); statsErr != nil {
				slog.Warn("failed to update stats for stopped run", "run_id", runID, "error", statsErr)
			}
			return runID, fmt.Errorf("run stopped: %w", err)
		}

		r.notifyProgress(ProgressEvent{
			EventType:  EventTaskStart,
			RunID:      runID,
			TaskID:     task.ID,
			TaskNum:    i + 1,
			TotalTasks: len(tasks),
		})

		res, cached := r.executeTask(ctx, task, runID)
		if err := r.store.SaveResult(res); err != nil {
			return runID, fmt.Errorf("saving result for task %s: %w", task.ID, err)
		}

		eventType := EventTaskComplete
		switch {
		case cached:
			eventType = EventTaskCached
		case res.Failed():
			eventType = EventTaskFailed
		}
		r.notifyProgress(ProgressEvent{
			EventType:  eventType,
			RunID:      runID,
			TaskID:     task.ID,
			TaskNum:    i + 1,
			TotalTasks: len(tasks),
			Score:      res.Score,
			Error:      res.Error,
			DurationMs: int64(res.LatencyMS),
		})
	}

	if err := r.store.UpdateRunStats(runID); err != nil {
		return runID, fmt.Errorf("finalizing run stats: %w", err)
	}

	r.notifyProgress(ProgressEvent{
		EventType:  EventRunComplete,
		RunID:      runID,
		TotalTasks: len(tasks),
		DurationMs: time.Since(startTime).Milliseconds(),
	})
	return runID, nil
}

// executeTask runs one task, consulting the cache first. The bool reports
// whether the result came from cache.
func (r *Runner) executeTask(ctx context.Context, task *models.Task, runID string) (*models.Result, bool) {
	var key string
	if r.cache != nil {
		k, err := cache.Key(task, r.adapter.Kind(), r.mode, r.cacheModel, r.cacheParams)
		if err != nil {
			slog.Warn("cache key failed, executing without cache", "task_id", task.ID, "error", err)
		} else {
			key = k
			if hit, ok := r.cache.Get(key); ok {
				res := *hit
				res.RunID = runID
				return &res, true
			}
		}
	}

	res := r.adapter.Execute(ctx, task, runID)

	if r.cache != nil && key != "" {
		if err := r.cache.Put(key, res); err != nil {
			slog.Warn("cache write failed", "task_id", task.ID, "error", err)
		}
	}
	return res, false
}

// Summary assembles the run summary, attaching a bootstrap confidence
// interval when enough tasks scored.
func (r *Runner) Summary(runID string) (*models.RunSummary, error) {
	summary, err := r.store.GetRunSummary(runID)
	if err != nil || summary == nil {
		return summary, err
	}

	results, err := r.store.GetResults(runID)
	if err != nil {
		return nil, err
	}
	var scores []float64
	for _, res := range results {
		if !res.Failed() {
			scores = append(scores, res.Score)
		}
	}
	if len(scores) >= 2 {
		ci := statistics.BootstrapCI(scores, r.confidenceLevel)
		summary.ScoreCI = &models.ScoreConfidenceInterval{
			Lower:           ci.Lower,
			Upper:           ci.Upper,
			Mean:            ci.Mean,
			ConfidenceLevel: ci.ConfidenceLevel,
		}
	}
	return summary, nil
}
