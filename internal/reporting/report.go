// Package reporting renders run summaries and run-to-run comparisons as
// plain text for the CLI.
package reporting

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/oolongbench/oolong-pairs/internal/models"
	"github.com/oolongbench/oolong-pairs/internal/statistics"
)

// InterpretScore returns a plain-language label for a numeric score (0-1).
func InterpretScore(score float64) string {
	pct := score * 100
	switch {
	case pct > 90:
		return "Excellent (>90%)"
	case pct >= 70:
		return "Good (70-90%)"
	case pct >= 50:
		return "Needs Work (50-70%)"
	default:
		return "Poor (<50%)"
	}
}

// FormatRunSummary produces a plain-text report for one benchmark run.
func FormatRunSummary(summary *models.RunSummary) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("=== Run %s ===\n\n", summary.RunID))
	b.WriteString(fmt.Sprintf("Strategy:   %s (%s)\n", summary.Strategy, summary.Mode))
	b.WriteString(fmt.Sprintf("Tasks:      %d completed, %d failed\n",
		summary.TasksCompleted, summary.TasksFailed))

	if summary.TasksCompleted > 0 {
		b.WriteString(fmt.Sprintf("Score:      %.4f avg (min %.4f, max %.4f) — %s\n",
			summary.AvgScore, summary.MinScore, summary.MaxScore, InterpretScore(summary.AvgScore)))
	}
	if summary.ScoreCI != nil {
		b.WriteString(fmt.Sprintf("%.0f%% CI:     [%.4f, %.4f]\n",
			summary.ScoreCI.ConfidenceLevel*100, summary.ScoreCI.Lower, summary.ScoreCI.Upper))
	}

	total := time.Duration(summary.TotalLatencyMS) * time.Millisecond
	b.WriteString(fmt.Sprintf("Latency:    %v total, %.0fms avg per task\n",
		total.Round(time.Millisecond), summary.AvgLatencyMS))

	if len(summary.ByTaskType) > 0 {
		b.WriteString("\nBy task type:\n")
		types := make([]string, 0, len(summary.ByTaskType))
		for name := range summary.ByTaskType {
			types = append(types, name)
		}
		sort.Strings(types)
		for _, name := range types {
			stats := summary.ByTaskType[name]
			b.WriteString(fmt.Sprintf("  %-20s %3d tasks  avg %.4f\n", name, stats.Count, stats.AvgScore))
		}
	}

	return b.String()
}

// Comparison holds the result of comparing a baseline run against a
// candidate run on their shared tasks.
type Comparison struct {
	Baseline       *models.RunSummary
	Candidate      *models.RunSummary
	SharedTasks    int
	MeanDelta      float64
	DeltaCI        statistics.ConfidenceInterval
	Significant    bool
	NormalizedGain float64
}

// Compare aligns two runs by task ID and bootstraps a confidence interval
// over the paired score deltas (candidate minus baseline). Failed tasks are
// excluded from the pairing.
func Compare(baseline, candidate *models.RunSummary, baseResults, candResults []*models.Result, confidenceLevel float64) *Comparison {
	deltas := statistics.PairedDeltas(scoresByTask(baseResults), scoresByTask(candResults))

	ci := statistics.BootstrapCI(deltas, confidenceLevel)
	return &Comparison{
		Baseline:       baseline,
		Candidate:      candidate,
		SharedTasks:    len(deltas),
		MeanDelta:      ci.Mean,
		DeltaCI:        ci,
		Significant:    len(deltas) >= 2 && statistics.IsSignificant(ci),
		NormalizedGain: statistics.NormalizedGain(baseline.AvgScore, candidate.AvgScore),
	}
}

func scoresByTask(results []*models.Result) map[string]float64 {
	scores := make(map[string]float64, len(results))
	for _, res := range results {
		if res.Failed() {
			continue
		}
		scores[res.TaskID] = res.Score
	}
	return scores
}

// FormatComparison renders a comparison as plain text.
func FormatComparison(cmp *Comparison) string {
	var b strings.Builder

	b.WriteString("=== Comparison ===\n\n")
	b.WriteString(fmt.Sprintf("Baseline:   %s  %s/%s  avg %.4f\n",
		cmp.Baseline.RunID, cmp.Baseline.Strategy, cmp.Baseline.Mode, cmp.Baseline.AvgScore))
	b.WriteString(fmt.Sprintf("Candidate:  %s  %s/%s  avg %.4f\n",
		cmp.Candidate.RunID, cmp.Candidate.Strategy, cmp.Candidate.Mode, cmp.Candidate.AvgScore))
	b.WriteString(fmt.Sprintf("Shared:     %d tasks\n\n", cmp.SharedTasks))

	if cmp.SharedTasks == 0 {
		b.WriteString("No shared tasks; runs cannot be compared pairwise.\n")
		return b.String()
	}

	direction := "improvement"
	if cmp.MeanDelta < 0 {
		direction = "regression"
	}
	b.WriteString(fmt.Sprintf("Mean delta: %+.4f (%s)\n", cmp.MeanDelta, direction))
	b.WriteString(fmt.Sprintf("%.0f%% CI:     [%+.4f, %+.4f]\n",
		cmp.DeltaCI.ConfidenceLevel*100, cmp.DeltaCI.Lower, cmp.DeltaCI.Upper))
	b.WriteString(fmt.Sprintf("Gain:       %.4f (normalized)\n", cmp.NormalizedGain))

	if cmp.Significant {
		b.WriteString("\nThe difference is statistically significant at this confidence level.\n")
	} else {
		b.WriteString("\nThe difference is not statistically significant at this confidence level.\n")
	}

	return b.String()
}
