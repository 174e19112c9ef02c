package strategy

import (
	"context"
	"fmt"
	"time"

	"github.com/oolongbench/oolong-pairs/internal/models"
)

const (
	// DefaultMaxContextChars is the character budget applied before a
	// context is handed to the model.
	DefaultMaxContextChars = 180_000

	truncationMarker = "\n\n[... content truncated ...]\n\n"
)

// TruncateContext trims context to maxChars, keeping the first 60% and the
// last 40% of the budget with a marker in between. Contexts at or under the
// budget pass through untouched.
func TruncateContext(context string, maxChars int) string {
	if maxChars <= 0 {
		maxChars = DefaultMaxContextChars
	}
	if len(context) <= maxChars {
		return context
	}

	firstPart := int(float64(maxChars) * 0.6)
	lastPart := maxChars - firstPart

	return context[:firstPart] + truncationMarker + context[len(context)-lastPart:]
}

// TruncationArgs configures a truncation adapter.
type TruncationArgs struct {
	Mode            models.ExecutionMode
	Deps            Deps
	MaxContextChars int
	Model           string
	TimeoutSec      int
}

// TruncationAdapter answers by trimming the context to a character budget
// and making a single model call.
type TruncationAdapter struct {
	mode     models.ExecutionMode
	deps     Deps
	maxChars int
	model    string
	timeout  int
}

// NewTruncationAdapter creates a truncation adapter.
func NewTruncationAdapter(args TruncationArgs) *TruncationAdapter {
	maxChars := args.MaxContextChars
	if maxChars <= 0 {
		maxChars = DefaultMaxContextChars
	}
	return &TruncationAdapter{
		mode:     args.Mode,
		deps:     args.Deps,
		maxChars: maxChars,
		model:    args.Model,
		timeout:  args.TimeoutSec,
	}
}

func (a *TruncationAdapter) Kind() models.StrategyKind {
	return models.StrategyTruncation
}

func (a *TruncationAdapter) buildPrompt(task *models.Task) string {
	truncated := TruncateContext(task.Context, a.maxChars)
	return fmt.Sprintf(`Analyze the following data and answer the question.

<context>
%s
</context>

Question: %s

Provide only the answer, nothing else. Be concise.`, truncated, task.Question)
}

func (a *TruncationAdapter) Execute(ctx context.Context, task *models.Task, runID string) *models.Result {
	start := time.Now()

	if a.mode == models.ModeInteractive {
		return executeInteractive(ctx, a.deps, task, runID, a.Kind(), start)
	}

	resp, err := a.deps.Engine.Invoke(ctx, engineRequest(a.model, a.buildPrompt(task), a.timeout))
	if err != nil {
		return finishResult(task, runID, a.Kind(), "", 0, start, err)
	}

	return finishResult(task, runID, a.Kind(), answerFromText(resp.Text), resp.TokensUsed, start, nil)
}
