package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oolongbench/oolong-pairs/internal/models"
	"github.com/oolongbench/oolong-pairs/internal/storage"
)

func seedRun(t *testing.T, dbPath string) string {
	t.Helper()
	store, err := storage.Open(dbPath)
	require.NoError(t, err)
	defer store.Close()

	run := &models.BenchmarkRun{
		ID:        "seed1234",
		Timestamp: time.Now().UTC(),
		Mode:      models.ModeDirect,
		Strategy:  models.StrategyTruncation,
	}
	require.NoError(t, store.SaveRun(run))
	require.NoError(t, store.SaveResult(&models.Result{
		TaskID: "t1", RunID: run.ID, Strategy: run.Strategy,
		ActualAnswer: "LOC", ExpectedAnswer: "LOC", Score: 1.0, LatencyMS: 120,
	}))
	require.NoError(t, store.UpdateRunStats(run.ID))
	return run.ID
}

func TestExportCommandJSON(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "benchmark.db")
	runID := seedRun(t, dbPath)
	out := filepath.Join(dir, "results.json")

	cmd := newRootCommand()
	cmd.SetArgs([]string{"export", runID, "--db", dbPath, "--output", out})
	require.NoError(t, cmd.Execute())

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"task_id": "t1"`)
}

func TestExportCommandJUnit(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "benchmark.db")
	runID := seedRun(t, dbPath)
	out := filepath.Join(dir, "report.xml")

	cmd := newRootCommand()
	cmd.SetArgs([]string{"export", runID, "--db", dbPath, "--output", out, "--format", "junit"})
	require.NoError(t, cmd.Execute())

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "<testsuites")
	assert.Contains(t, string(data), `name="t1"`)
}

func TestExportCommandUnknownFormat(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "benchmark.db")
	runID := seedRun(t, dbPath)

	cmd := newRootCommand()
	cmd.SetArgs([]string{"export", runID, "--db", dbPath, "--format", "parquet"})
	require.Error(t, cmd.Execute())
}
