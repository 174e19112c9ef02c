package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/oolongbench/oolong-pairs/internal/models"
	"github.com/oolongbench/oolong-pairs/internal/scoring"
	"github.com/oolongbench/oolong-pairs/internal/strategy"
	"github.com/oolongbench/oolong-pairs/internal/taskstate"
)

// Inject runs at session start. It claims the pending task from the store
// and returns the prompt to inject into the session. An empty string with
// no error means no benchmark task is queued, so the session proceeds
// untouched.
func Inject(store *taskstate.Store) (string, error) {
	rec, err := store.Read()
	if err != nil {
		if errors.Is(err, taskstate.ErrNoRecord) || errors.Is(err, taskstate.ErrMalformedRecord) {
			return "", nil
		}
		return "", err
	}
	if rec.Status != taskstate.StatusPending {
		return "", nil
	}

	rec, err = store.Begin()
	if err != nil {
		// Another session claimed it first.
		if errors.Is(err, taskstate.ErrInvalidTransition) {
			return "", nil
		}
		return "", err
	}

	if rec.Strategy == models.StrategyChunking {
		contextFile := filepath.Join(store.Dir(), fmt.Sprintf("context_%s.txt", rec.TaskID))
		if err := os.WriteFile(contextFile, []byte(rec.Context), 0o644); err != nil {
			return "", fmt.Errorf("writing context file: %w", err)
		}
		return chunkingInjection(rec.TaskID, contextFile, rec.Question), nil
	}
	return truncationInjection(rec.TaskID, rec.Context, rec.Question), nil
}

func chunkingInjection(taskID, contextFile, question string) string {
	return fmt.Sprintf(`<benchmark-task id="%s">
You are being evaluated on a long-context reasoning benchmark using the RLM pattern.

The context document is located at: %s

Use the rlm-rs plugin to process this large document:
1. Load the file: `+"`/rlm-load file=%s`"+`
2. Query it: `+"`/rlm-query query=%q`"+`

The plugin will chunk the document, run subcalls on relevant chunks, and synthesize an answer.

After getting the synthesized answer, output ONLY the final answer on a single line prefixed with "ANSWER: "
</benchmark-task>`, taskID, contextFile, contextFile, question)
}

func truncationInjection(taskID, contextText, question string) string {
	return fmt.Sprintf(`<benchmark-task id="%s">
You are being evaluated on a long-context reasoning benchmark.

<context>
%s
</context>

<question>
%s
</question>

Analyze the context above and answer the question.
Output ONLY the final answer on a single line prefixed with "ANSWER: "
</benchmark-task>`, taskID, strategy.TruncateContext(contextText, 0), question)
}

// sessionData is the session summary piped to the stop hook.
type sessionData struct {
	FinalSummary string              `json:"final_summary"`
	Transcript   []transcriptEntry   `json:"transcript"`
	Usage        struct {
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

type transcriptEntry struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
}

// text renders an entry's content, which the session emits either as a
// plain string or as a list of typed blocks.
func (e transcriptEntry) text() string {
	var s string
	if err := json.Unmarshal(e.Content, &s); err == nil {
		return s
	}
	var blocks []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	if err := json.Unmarshal(e.Content, &blocks); err == nil {
		for _, b := range blocks {
			if b.Type == "text" && b.Text != "" {
				return b.Text
			}
		}
	}
	return ""
}

// extractAnswer pulls the answer out of the session summary: the marked
// answer line wins, then the whole summary, then the last assistant message.
func extractAnswer(data *sessionData) string {
	if data.FinalSummary != "" {
		if marked := scoring.ExtractAnswer(data.FinalSummary); marked != "" {
			return marked
		}
		return strings.TrimSpace(data.FinalSummary)
	}

	for i := len(data.Transcript) - 1; i >= 0; i-- {
		if data.Transcript[i].Role != "assistant" {
			continue
		}
		text := data.Transcript[i].text()
		if text == "" {
			continue
		}
		if marked := scoring.ExtractAnswer(text); marked != "" {
			return marked
		}
		return strings.TrimSpace(text)
	}
	return ""
}

// Finalize runs at session stop. It scores the in-progress task against the
// session's answer and writes the terminal handoff record carrying the
// answer, score, and token usage. The coordinator polling that record is the
// sole writer of the results database, so a task yields exactly one Result
// row no matter how the session ended. Finalize is a no-op when no task is
// in progress.
func Finalize(store *taskstate.Store, input io.Reader) error {
	rec, err := store.Read()
	if err != nil {
		if errors.Is(err, taskstate.ErrNoRecord) || errors.Is(err, taskstate.ErrMalformedRecord) {
			return nil
		}
		return err
	}
	if rec.Status != taskstate.StatusInProgress {
		return nil
	}

	var data sessionData
	if input != nil {
		if err := json.NewDecoder(input).Decode(&data); err != nil && !errors.Is(err, io.EOF) {
			slog.Warn("unreadable session data, scoring empty answer", "error", err)
		}
	}

	actual := extractAnswer(&data)
	score := scoring.Score(rec.ExpectedAnswer, actual, rec.AnswerType)

	if err := store.Complete(rec.Epoch, actual, score, data.Usage.OutputTokens); err != nil {
		return fmt.Errorf("completing task %s: %w", rec.TaskID, err)
	}

	slog.Info("task finished", "task_id", rec.TaskID, "score", score)
	return nil
}
