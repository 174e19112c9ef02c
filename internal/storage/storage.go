// Package storage persists benchmark runs and per-task results in SQLite.
package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/oolongbench/oolong-pairs/internal/models"
)

// DefaultDBPath is where results land when no path is configured.
const DefaultDBPath = "data/benchmark.db"

const schema = `
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    timestamp TEXT NOT NULL,
    mode TEXT NOT NULL,
    strategy TEXT NOT NULL,
    tasks_total INTEGER DEFAULT 0,
    tasks_completed INTEGER DEFAULT 0,
    tasks_failed INTEGER DEFAULT 0,
    avg_score REAL DEFAULT 0.0,
    total_latency_ms REAL DEFAULT 0.0,
    metadata TEXT DEFAULT '{}'
);

CREATE TABLE IF NOT EXISTS results (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id TEXT NOT NULL,
    task_id TEXT NOT NULL,
    strategy TEXT NOT NULL,
    actual_answer TEXT,
    expected_answer TEXT,
    score REAL NOT NULL,
    latency_ms REAL NOT NULL,
    tokens_used INTEGER DEFAULT 0,
    task_type TEXT DEFAULT '',
    error TEXT,
    FOREIGN KEY (run_id) REFERENCES runs(id)
);

CREATE INDEX IF NOT EXISTS idx_results_run_id ON results(run_id);
CREATE INDEX IF NOT EXISTS idx_results_task_id ON results(task_id);
`

// Store wraps the SQLite database holding runs and results.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (creating if needed) the results database at path.
func Open(path string) (*Store, error) {
	if path == "" {
		path = DefaultDBPath
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// SQLite tolerates a single writer; serialize access through one conn.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRun inserts or replaces a benchmark run record.
func (s *Store) SaveRun(run *models.BenchmarkRun) error {
	metadata, err := json.Marshal(run.Metadata)
	if err != nil {
		return fmt.Errorf("marshaling run metadata: %w", err)
	}
	if run.Metadata == nil {
		metadata = []byte("{}")
	}

	_, err = s.db.Exec(`
		INSERT OR REPLACE INTO runs
		(id, timestamp, mode, strategy, tasks_total, tasks_completed,
		 tasks_failed, avg_score, total_latency_ms, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.Timestamp.Format(time.RFC3339Nano),
		string(run.Mode),
		string(run.Strategy),
		run.TasksTotal,
		run.TasksCompleted,
		run.TasksFailed,
		run.AvgScore,
		run.TotalLatencyMS,
		string(metadata),
	)
	if err != nil {
		return fmt.Errorf("saving run %s: %w", run.ID, err)
	}
	return nil
}

// SaveResult appends a task result.
func (s *Store) SaveResult(res *models.Result) error {
	var errVal any
	if res.Error != "" {
		errVal = res.Error
	}

	_, err := s.db.Exec(`
		INSERT INTO results
		(run_id, task_id, strategy, actual_answer, expected_answer,
		 score, latency_ms, tokens_used, task_type, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		res.RunID,
		res.TaskID,
		string(res.Strategy),
		res.ActualAnswer,
		res.ExpectedAnswer,
		res.Score,
		res.LatencyMS,
		res.TokensUsed,
		res.TaskType,
		errVal,
	)
	if err != nil {
		return fmt.Errorf("saving result for task %s: %w", res.TaskID, err)
	}
	return nil
}

// GetRun looks a run up by ID. Missing runs return (nil, nil).
func (s *Store) GetRun(runID string) (*models.BenchmarkRun, error) {
	row := s.db.QueryRow(`SELECT id, timestamp, mode, strategy, tasks_total,
		tasks_completed, tasks_failed, avg_score, total_latency_ms, metadata
		FROM runs WHERE id = ?`, runID)

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading run %s: %w", runID, err)
	}
	return run, nil
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(limit int) ([]*models.BenchmarkRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(`SELECT id, timestamp, mode, strategy, tasks_total,
		tasks_completed, tasks_failed, avg_score, total_latency_ms, metadata
		FROM runs ORDER BY timestamp DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.BenchmarkRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetResults returns all results for a run in insertion order.
func (s *Store) GetResults(runID string) ([]*models.Result, error) {
	rows, err := s.db.Query(`SELECT run_id, task_id, strategy, actual_answer,
		expected_answer, score, latency_ms, tokens_used, task_type, error
		FROM results WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("loading results for run %s: %w", runID, err)
	}
	defer rows.Close()

	var results []*models.Result
	for rows.Next() {
		var res models.Result
		var actual, expected, taskType, errMsg sql.NullString
		if err := rows.Scan(
			&res.RunID,
			&res.TaskID,
			&res.Strategy,
			&actual,
			&expected,
			&res.Score,
			&res.LatencyMS,
			&res.TokensUsed,
			&taskType,
			&errMsg,
		); err != nil {
			return nil, fmt.Errorf("scanning result: %w", err)
		}
		res.ActualAnswer = actual.String
		res.ExpectedAnswer = expected.String
		res.TaskType = taskType.String
		res.Error = errMsg.String
		results = append(results, &res)
	}
	return results, rows.Err()
}

// UpdateRunStats recomputes the run's aggregate columns from its results.
func (s *Store) UpdateRunStats(runID string) error {
	_, err := s.db.Exec(`
		UPDATE runs SET
			tasks_total = (SELECT COUNT(*) FROM results WHERE run_id = ?),
			tasks_completed = (SELECT COUNT(*) FROM results WHERE run_id = ? AND error IS NULL),
			tasks_failed = (SELECT COUNT(*) FROM results WHERE run_id = ? AND error IS NOT NULL),
			avg_score = COALESCE((SELECT AVG(score) FROM results WHERE run_id = ? AND error IS NULL), 0.0),
			total_latency_ms = COALESCE((SELECT SUM(latency_ms) FROM results WHERE run_id = ?), 0.0)
		WHERE id = ?`,
		runID, runID, runID, runID, runID, runID)
	if err != nil {
		return fmt.Errorf("updating stats for run %s: %w", runID, err)
	}
	return nil
}

// GetRunSummary derives the summary statistics for a run. Missing runs
// return (nil, nil).
func (s *Store) GetRunSummary(runID string) (*models.RunSummary, error) {
	run, err := s.GetRun(runID)
	if err != nil || run == nil {
		return nil, err
	}

	results, err := s.GetResults(runID)
	if err != nil {
		return nil, err
	}

	summary := &models.RunSummary{
		RunID:    runID,
		Strategy: run.Strategy,
		Mode:     run.Mode,
	}
	if len(results) == 0 {
		return summary, nil
	}

	byType := make(map[string]models.TaskTypeStats)
	var scoreSum float64
	first := true
	for _, res := range results {
		summary.TotalLatencyMS += res.LatencyMS
		if res.Failed() {
			summary.TasksFailed++
			continue
		}
		summary.TasksCompleted++
		scoreSum += res.Score
		if first || res.Score < summary.MinScore {
			summary.MinScore = res.Score
		}
		if first || res.Score > summary.MaxScore {
			summary.MaxScore = res.Score
		}
		first = false

		if res.TaskType != "" {
			stats := byType[res.TaskType]
			stats.AvgScore = (stats.AvgScore*float64(stats.Count) + res.Score) / float64(stats.Count+1)
			stats.Count++
			byType[res.TaskType] = stats
		}
	}
	if summary.TasksCompleted > 0 {
		summary.AvgScore = scoreSum / float64(summary.TasksCompleted)
	}
	summary.AvgLatencyMS = summary.TotalLatencyMS / float64(len(results))
	if len(byType) > 0 {
		summary.ByTaskType = byType
	}
	return summary, nil
}

// scanner lets scanRun work for both QueryRow and Query rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*models.BenchmarkRun, error) {
	var run models.BenchmarkRun
	var timestamp, mode, strategy, metadata string
	if err := row.Scan(
		&run.ID,
		&timestamp,
		&mode,
		&strategy,
		&run.TasksTotal,
		&run.TasksCompleted,
		&run.TasksFailed,
		&run.AvgScore,
		&run.TotalLatencyMS,
		&metadata,
	); err != nil {
		return nil, err
	}

	ts, err := time.Parse(time.RFC3339Nano, timestamp)
	if err != nil {
		return nil, fmt.Errorf("parsing run timestamp %q: %w", timestamp, err)
	}
	run.Timestamp = ts
	run.Mode = models.ExecutionMode(mode)
	run.Strategy = models.StrategyKind(strategy)

	if metadata != "" && metadata != "{}" {
		if err := json.Unmarshal([]byte(metadata), &run.Metadata); err != nil {
			return nil, fmt.Errorf("parsing run metadata: %w", err)
		}
	}
	return &run, nil
}
