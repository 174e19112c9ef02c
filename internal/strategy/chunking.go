package strategy

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/oolongbench/oolong-pairs/internal/models"
)

const (
	// DefaultChunkSize is the per-chunk character budget.
	DefaultChunkSize = 150_000

	defaultParallelism = 4

	// noAnswerText is reported when no chunk yielded relevant findings.
	noAnswerText = "Unable to determine from context"
)

// jsonObjectPattern pulls the first flat JSON object out of a subcall reply
// that may wrap it in prose.
var jsonObjectPattern = regexp.MustCompile(`\{[^}]+\}`)

// Chunker splits an oversized context into pieces small enough for a
// single subcall.
type Chunker interface {
	Chunk(ctx context.Context, text string) ([]string, error)
}

// NewChunker builds a chunker by name. The semantic and sentence chunkers
// shell out to the rlm-rs CLI; the fixed chunker splits in process and
// needs no external tooling.
func NewChunker(name string, chunkSize int) (Chunker, error) {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	switch name {
	case "", "semantic", "sentence":
		if name == "" {
			name = "semantic"
		}
		return &rlmChunker{chunker: name, chunkSize: chunkSize}, nil
	case "fixed":
		return &fixedChunker{chunkSize: chunkSize}, nil
	default:
		return nil, fmt.Errorf("'%s' is not a valid chunker", name)
	}
}

// fixedChunker splits at hard character boundaries.
type fixedChunker struct {
	chunkSize int
}

func (c *fixedChunker) Chunk(_ context.Context, text string) ([]string, error) {
	if text == "" {
		return nil, nil
	}
	var chunks []string
	for len(text) > c.chunkSize {
		chunks = append(chunks, text[:c.chunkSize])
		text = text[c.chunkSize:]
	}
	chunks = append(chunks, text)
	return chunks, nil
}

// rlmChunker delegates splitting to the rlm-rs CLI, which persists the
// document into a scratch database and writes chunk files back out.
type rlmChunker struct {
	chunker   string
	chunkSize int
}

func (c *rlmChunker) Chunk(ctx context.Context, text string) ([]string, error) {
	tmpDir, err := os.MkdirTemp("", "oolong-chunks-*")
	if err != nil {
		return nil, fmt.Errorf("create chunk workspace: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	contextFile := filepath.Join(tmpDir, "context.txt")
	if err := os.WriteFile(contextFile, []byte(text), 0o644); err != nil {
		return nil, fmt.Errorf("write context file: %w", err)
	}
	dbPath := filepath.Join(tmpDir, "rlm.db")

	steps := [][]string{
		{"rlm-rs", "init", "--db-path", dbPath},
		{"rlm-rs", "load", contextFile,
			"--name", "context",
			"--chunker", c.chunker,
			"--chunk-size", strconv.Itoa(c.chunkSize),
			"--db-path", dbPath},
		{"rlm-rs", "write-chunks", "context",
			"--out-dir", filepath.Join(tmpDir, "chunks"),
			"--db-path", dbPath},
	}
	if err := os.Mkdir(filepath.Join(tmpDir, "chunks"), 0o755); err != nil {
		return nil, fmt.Errorf("create chunks dir: %w", err)
	}
	for _, step := range steps {
		cmd := exec.CommandContext(ctx, step[0], step[1:]...)
		if out, err := cmd.CombinedOutput(); err != nil {
			return nil, fmt.Errorf("rlm-rs %s failed: %s: %w", step[1], string(out), err)
		}
	}

	files, err := filepath.Glob(filepath.Join(tmpDir, "chunks", "*.txt"))
	if err != nil {
		return nil, fmt.Errorf("list chunk files: %w", err)
	}
	sort.Strings(files)

	chunks := make([]string, 0, len(files))
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return nil, fmt.Errorf("read chunk %s: %w", f, err)
		}
		chunks = append(chunks, string(data))
	}
	return chunks, nil
}

// chunkFinding is the structured reply expected from a per-chunk subcall.
type chunkFinding struct {
	Relevant bool   `json:"relevant"`
	Findings string `json:"findings"`
}

// ChunkingArgs configures a chunking adapter.
type ChunkingArgs struct {
	Mode         models.ExecutionMode
	Deps         Deps
	Chunker      string
	ChunkSize    int
	Model        string
	SubcallModel string
	Parallelism  int
}

// ChunkingAdapter answers by splitting the context, extracting findings
// from each chunk with a cheap subcall model, then synthesizing a final
// answer from the findings.
type ChunkingAdapter struct {
	mode         models.ExecutionMode
	deps         Deps
	chunker      Chunker
	model        string
	subcallModel string
	parallelism  int
}

// NewChunkingAdapter creates a chunking adapter.
func NewChunkingAdapter(args ChunkingArgs) (*ChunkingAdapter, error) {
	chunker, err := NewChunker(args.Chunker, args.ChunkSize)
	if err != nil {
		return nil, err
	}
	parallelism := args.Parallelism
	if parallelism <= 0 {
		parallelism = defaultParallelism
	}
	return &ChunkingAdapter{
		mode:         args.Mode,
		deps:         args.Deps,
		chunker:      chunker,
		model:        args.Model,
		subcallModel: args.SubcallModel,
		parallelism:  parallelism,
	}, nil
}

func (a *ChunkingAdapter) Kind() models.StrategyKind {
	return models.StrategyChunking
}

func (a *ChunkingAdapter) Execute(ctx context.Context, task *models.Task, runID string) *models.Result {
	start := time.Now()

	if a.mode == models.ModeInteractive {
		return executeInteractive(ctx, a.deps, task, runID, a.Kind(), start)
	}

	chunks, err := a.chunker.Chunk(ctx, task.Context)
	if err != nil {
		return finishResult(task, runID, a.Kind(), "", 0, start, err)
	}
	slog.Debug("context chunked", "task_id", task.ID, "chunks", len(chunks))

	findings, tokens, err := a.processChunks(ctx, chunks, task.Question)
	if err != nil {
		return finishResult(task, runID, a.Kind(), "", tokens, start, err)
	}

	answer, synthTokens, err := a.synthesize(ctx, task.Question, findings)
	tokens += synthTokens
	if err != nil {
		return finishResult(task, runID, a.Kind(), "", tokens, start, err)
	}

	return finishResult(task, runID, a.Kind(), answer, tokens, start, nil)
}

// processChunks fans the chunks out to the subcall model, preserving chunk
// order in the collected findings.
func (a *ChunkingAdapter) processChunks(ctx context.Context, chunks []string, question string) ([]chunkFinding, int, error) {
	findings := make([]chunkFinding, len(chunks))
	tokens := make([]int, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.parallelism)

	for i, chunk := range chunks {
		g.Go(func() error {
			finding, used, err := a.processChunk(gctx, chunk, question)
			if err != nil {
				return err
			}
			findings[i] = finding
			tokens[i] = used
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	total := 0
	for _, n := range tokens {
		total += n
	}
	return findings, total, nil
}

func (a *ChunkingAdapter) processChunk(ctx context.Context, chunk, question string) (chunkFinding, int, error) {
	prompt := fmt.Sprintf(`Analyze this chunk and extract any information relevant to the question.

<chunk>
%s
</chunk>

Question: %s

Respond with JSON: {"relevant": true/false, "findings": "brief summary of relevant info or null"}`, chunk, question)

	resp, err := a.deps.Engine.Invoke(ctx, engineRequest(a.subcallModel, prompt, 60))
	if err != nil {
		return chunkFinding{}, 0, fmt.Errorf("chunk subcall: %w", err)
	}

	// A subcall that replies off-format counts as an irrelevant chunk.
	if match := jsonObjectPattern.FindString(resp.Text); match != "" {
		var finding chunkFinding
		if err := json.Unmarshal([]byte(match), &finding); err == nil {
			return finding, resp.TokensUsed, nil
		}
	}
	return chunkFinding{}, resp.TokensUsed, nil
}

func (a *ChunkingAdapter) synthesize(ctx context.Context, question string, findings []chunkFinding) (string, int, error) {
	var relevant []string
	for _, f := range findings {
		if f.Relevant && f.Findings != "" {
			relevant = append(relevant, f.Findings)
		}
	}
	if len(relevant) == 0 {
		return noAnswerText, 0, nil
	}

	findingsText := ""
	for _, f := range relevant {
		findingsText += "- " + f + "\n"
	}

	prompt := fmt.Sprintf(`Based on these findings from analyzing a large document, answer the question.

Findings:
%s
Question: %s

Provide only the answer, nothing else. Be concise.`, findingsText, question)

	resp, err := a.deps.Engine.Invoke(ctx, engineRequest(a.model, prompt, 120))
	if err != nil {
		return "", 0, fmt.Errorf("synthesis call: %w", err)
	}
	return answerFromText(resp.Text), resp.TokensUsed, nil
}
