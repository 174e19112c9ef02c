package reporting

import (
	"encoding/xml"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/oolongbench/oolong-pairs/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInterpretScore(t *testing.T) {
	assert.Equal(t, "Excellent (>90%)", InterpretScore(0.95))
	assert.Equal(t, "Good (70-90%)", InterpretScore(0.75))
	assert.Equal(t, "Needs Work (50-70%)", InterpretScore(0.55))
	assert.Equal(t, "Poor (<50%)", InterpretScore(0.2))
}

func sampleSummary(runID string, avg float64) *models.RunSummary {
	return &models.RunSummary{
		RunID:          runID,
		Strategy:       models.StrategyTruncation,
		Mode:           models.ModeDirect,
		TasksCompleted: 3,
		TasksFailed:    1,
		AvgScore:       avg,
		MinScore:       0.25,
		MaxScore:       1.0,
		TotalLatencyMS: 4500,
		AvgLatencyMS:   1125,
		ByTaskType: map[string]models.TaskTypeStats{
			"mode":  {Count: 2, AvgScore: avg},
			"count": {Count: 1, AvgScore: 0.5},
		},
	}
}

func TestFormatRunSummary(t *testing.T) {
	summary := sampleSummary("abc123", 0.75)
	summary.ScoreCI = &models.ScoreConfidenceInterval{
		Lower: 0.4, Upper: 0.95, Mean: 0.75, ConfidenceLevel: 0.95,
	}

	out := FormatRunSummary(summary)

	assert.Contains(t, out, "Run abc123")
	assert.Contains(t, out, "truncation (direct)")
	assert.Contains(t, out, "3 completed, 1 failed")
	assert.Contains(t, out, "0.7500 avg")
	assert.Contains(t, out, "Good (70-90%)")
	assert.Contains(t, out, "95% CI")
	assert.Contains(t, out, "[0.4000, 0.9500]")

	// Task types render sorted.
	countIdx := strings.Index(out, "count")
	modeIdx := strings.Index(out, "mode ")
	require.Greater(t, countIdx, 0)
	assert.Less(t, countIdx, modeIdx)
}

func makeResults(runID string, scores map[string]float64) []*models.Result {
	results := make([]*models.Result, 0, len(scores))
	for taskID, score := range scores {
		results = append(results, &models.Result{
			TaskID:   taskID,
			RunID:    runID,
			Strategy: models.StrategyTruncation,
			Score:    score,
		})
	}
	return results
}

func TestCompare(t *testing.T) {
	base := sampleSummary("base", 0.5)
	cand := sampleSummary("cand", 0.8)

	baseResults := makeResults("base", map[string]float64{"t1": 0.4, "t2": 0.5, "t3": 0.6})
	candResults := makeResults("cand", map[string]float64{"t1": 0.7, "t2": 0.8, "t3": 0.9, "t4": 1.0})

	cmp := Compare(base, cand, baseResults, candResults, 0.95)

	assert.Equal(t, 3, cmp.SharedTasks, "t4 has no baseline pairing")
	assert.InDelta(t, 0.3, cmp.MeanDelta, 1e-9)
	assert.True(t, cmp.Significant)
	assert.InDelta(t, 0.6, cmp.NormalizedGain, 1e-9)

	out := FormatComparison(cmp)
	assert.Contains(t, out, "Baseline:   base")
	assert.Contains(t, out, "Candidate:  cand")
	assert.Contains(t, out, "improvement")
	assert.Contains(t, out, "statistically significant")
}

func TestCompareExcludesFailedTasks(t *testing.T) {
	base := sampleSummary("base", 0.5)
	cand := sampleSummary("cand", 0.5)

	baseResults := makeResults("base", map[string]float64{"t1": 0.5, "t2": 0.5})
	candResults := makeResults("cand", map[string]float64{"t1": 0.5, "t2": 0.5})
	candResults[1].Error = "timed out"

	cmp := Compare(base, cand, baseResults, candResults, 0.95)
	assert.Equal(t, 1, cmp.SharedTasks)
}

func TestCompareNoSharedTasks(t *testing.T) {
	base := sampleSummary("base", 0.5)
	cand := sampleSummary("cand", 0.8)

	cmp := Compare(base, cand, makeResults("base", map[string]float64{"t1": 0.5}),
		makeResults("cand", map[string]float64{"t9": 0.8}), 0.95)

	assert.Zero(t, cmp.SharedTasks)
	assert.False(t, cmp.Significant)
	assert.Contains(t, FormatComparison(cmp), "cannot be compared")
}

func TestConvertToJUnit(t *testing.T) {
	run := &models.BenchmarkRun{
		ID:        "run-1",
		Timestamp: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Strategy:  models.StrategyChunking,
		Mode:      models.ModeDirect,
		AvgScore:  0.5,
	}
	results := []*models.Result{
		{TaskID: "t1", Score: 1.0, LatencyMS: 1500},
		{TaskID: "t2", Score: 0.0, ActualAnswer: "41", ExpectedAnswer: "40", LatencyMS: 500},
		{TaskID: "t3", Error: "engine exited", LatencyMS: 200},
	}

	suites := ConvertToJUnit(run, results)

	assert.Equal(t, 3, suites.Tests)
	assert.Equal(t, 1, suites.Failures)
	assert.Equal(t, 1, suites.Errors)
	require.Len(t, suites.TestSuites, 1)

	suite := suites.TestSuites[0]
	assert.Equal(t, "run-1", suite.Name)
	assert.InDelta(t, 2.2, suite.Time, 1e-9)
	require.Len(t, suite.TestCases, 3)

	assert.Nil(t, suite.TestCases[0].Failure)
	require.NotNil(t, suite.TestCases[1].Failure)
	assert.Contains(t, suite.TestCases[1].Failure.Body, `expected "40", got "41"`)
	require.NotNil(t, suite.TestCases[2].Error)
	assert.Equal(t, "engine exited", suite.TestCases[2].Error.Message)
}

func TestWriteJUnitXML(t *testing.T) {
	run := &models.BenchmarkRun{
		ID:        "run-2",
		Timestamp: time.Now().UTC(),
		Strategy:  models.StrategyTruncation,
		Mode:      models.ModeInteractive,
	}
	results := []*models.Result{{TaskID: "t1", Score: 0.75, LatencyMS: 100}}

	path := filepath.Join(t.TempDir(), "report.xml")
	require.NoError(t, WriteJUnitXML(run, results, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var parsed JUnitTestSuites
	require.NoError(t, xml.Unmarshal(data, &parsed))
	assert.Equal(t, 1, parsed.Tests)
	assert.Zero(t, parsed.Failures)
}
