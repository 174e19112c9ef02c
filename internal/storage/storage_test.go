package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/oolongbench/oolong-pairs/internal/models"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "benchmark.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleRun(id string) *models.BenchmarkRun {
	return &models.BenchmarkRun{
		ID:        id,
		Timestamp: time.Now().UTC().Truncate(time.Millisecond),
		Mode:      models.ModeDirect,
		Strategy:  models.StrategyTruncation,
		Metadata:  map[string]any{"dataset": "trec_coarse"},
	}
}

func sampleResult(runID, taskID string, score float64, errMsg string) *models.Result {
	return &models.Result{
		TaskID:         taskID,
		RunID:          runID,
		Strategy:       models.StrategyTruncation,
		ActualAnswer:   "location",
		ExpectedAnswer: "location",
		Score:          score,
		LatencyMS:      120.5,
		TokensUsed:     42,
		TaskType:       "mode",
		Error:          errMsg,
	}
}

func TestSaveAndGetRun(t *testing.T) {
	s := newTestStore(t)
	run := sampleRun("run-1")
	require.NoError(t, s.SaveRun(run))

	got, err := s.GetRun("run-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, run.ID, got.ID)
	require.Equal(t, run.Mode, got.Mode)
	require.Equal(t, run.Strategy, got.Strategy)
	require.Equal(t, "trec_coarse", got.Metadata["dataset"])
	require.True(t, run.Timestamp.Equal(got.Timestamp))
}

func TestGetRunMissing(t *testing.T) {
	s := newTestStore(t)
	got, err := s.GetRun("nope")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestSaveAndGetResults(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.SaveRun(sampleRun("run-1")))

	require.NoError(t, s.SaveResult(sampleResult("run-1", "task-1", 1.0, "")))
	require.NoError(t, s.SaveResult(sampleResult("run-1", "task-2", 0.5, "")))
	require.NoError(t, s.SaveResult(sampleResult("run-1", "task-3", 0.0, "engine exploded")))

	results, err := s.GetResults("run-1")
	require.NoError(t, err)
	require.Len(t, results, 3)
	require.Equal(t, "task-1", results[0].TaskID)
	require.Equal(t, "mode", results[0].TaskType)
	require.Empty(t, results[0].Error)
	require.Equal(t, "engine exploded", results[2].Error)
	require.True(t, results[2].Failed())
}

func TestUpdateRunStats(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.SaveRun(sampleRun("run-1")))
	require.NoError(t, s.SaveResult(sampleResult("run-1", "task-1", 1.0, "")))
	require.NoError(t, s.SaveResult(sampleResult("run-1", "task-2", 0.5, "")))
	require.NoError(t, s.SaveResult(sampleResult("run-1", "task-3", 0.0, "boom")))

	require.NoError(t, s.UpdateRunStats("run-1"))

	run, err := s.GetRun("run-1")
	require.NoError(t, err)
	require.Equal(t, 3, run.TasksTotal)
	require.Equal(t, 2, run.TasksCompleted)
	require.Equal(t, 1, run.TasksFailed)
	require.InDelta(t, 0.75, run.AvgScore, 1e-9)
	require.InDelta(t, 361.5, run.TotalLatencyMS, 1e-9)
}

func TestGetRunSummary(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.SaveRun(sampleRun("run-1")))
	require.NoError(t, s.SaveResult(sampleResult("run-1", "task-1", 1.0, "")))
	require.NoError(t, s.SaveResult(sampleResult("run-1", "task-2", 0.25, "")))
	require.NoError(t, s.SaveResult(sampleResult("run-1", "task-3", 0.0, "boom")))

	summary, err := s.GetRunSummary("run-1")
	require.NoError(t, err)
	require.NotNil(t, summary)
	require.Equal(t, 2, summary.TasksCompleted)
	require.Equal(t, 1, summary.TasksFailed)
	require.InDelta(t, 0.625, summary.AvgScore, 1e-9)
	require.InDelta(t, 0.25, summary.MinScore, 1e-9)
	require.InDelta(t, 1.0, summary.MaxScore, 1e-9)
	require.Equal(t, 2, summary.ByTaskType["mode"].Count)

	// Failed results count toward latency but not score aggregates.
	require.InDelta(t, 361.5, summary.TotalLatencyMS, 1e-9)
}

func TestGetRunSummaryEmptyRun(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.SaveRun(sampleRun("run-1")))

	summary, err := s.GetRunSummary("run-1")
	require.NoError(t, err)
	require.NotNil(t, summary)
	require.Zero(t, summary.TasksCompleted)
	require.Zero(t, summary.AvgScore)
}

func TestListRuns(t *testing.T) {
	s := newTestStore(t)
	for i, id := range []string{"run-a", "run-b", "run-c"} {
		run := sampleRun(id)
		run.Timestamp = time.Now().UTC().Add(time.Duration(i) * time.Minute)
		require.NoError(t, s.SaveRun(run))
	}

	runs, err := s.ListRuns(2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	require.Equal(t, "run-c", runs[0].ID)
	require.Equal(t, "run-b", runs[1].ID)
}

func TestExportResults(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.SaveRun(sampleRun("run-1")))
	require.NoError(t, s.SaveResult(sampleResult("run-1", "task-1", 1.0, "")))
	require.NoError(t, s.SaveResult(sampleResult("run-1", "task-2", 0.5, "")))

	dir := t.TempDir()

	jsonPath := filepath.Join(dir, "out.json")
	require.NoError(t, s.ExportResults("run-1", jsonPath, FormatJSON))
	data, err := os.ReadFile(jsonPath)
	require.NoError(t, err)
	var decoded []models.Result
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Len(t, decoded, 2)

	jsonlPath := filepath.Join(dir, "out.jsonl")
	require.NoError(t, s.ExportResults("run-1", jsonlPath, FormatJSONL))
	data, err = os.ReadFile(jsonlPath)
	require.NoError(t, err)
	require.Len(t, strings.Split(strings.TrimSpace(string(data)), "\n"), 2)

	csvPath := filepath.Join(dir, "out.csv")
	require.NoError(t, s.ExportResults("run-1", csvPath, FormatCSV))
	data, err = os.ReadFile(csvPath)
	require.NoError(t, err)
	require.Contains(t, string(data), "task_id,run_id,strategy")
	require.Contains(t, string(data), "task-2")
}

func TestExportResultsGzip(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.SaveRun(sampleRun("run-1")))
	require.NoError(t, s.SaveResult(sampleResult("run-1", "task-1", 1.0, "")))

	path := filepath.Join(t.TempDir(), "out.jsonl.gz")
	require.NoError(t, s.ExportResults("run-1", path, FormatJSONL))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	gz, err := gzip.NewReader(f)
	require.NoError(t, err)
	defer gz.Close()

	var res models.Result
	require.NoError(t, json.NewDecoder(gz).Decode(&res))
	require.Equal(t, "task-1", res.TaskID)
}

func TestParseExportFormat(t *testing.T) {
	for _, valid := range []string{"json", "JSONL", " csv "} {
		_, err := ParseExportFormat(valid)
		require.NoError(t, err)
	}
	_, err := ParseExportFormat("parquet")
	require.Error(t, err)
}
