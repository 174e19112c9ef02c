package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

const defaultInvokeTimeout = 300 * time.Second

// CLIEngine invokes the claude CLI in non-interactive print mode.
type CLIEngine struct {
	binary string
	model  string
}

// NewCLIEngine creates an engine that shells out to the claude binary.
func NewCLIEngine(model string) *CLIEngine {
	return &CLIEngine{
		binary: "claude",
		model:  model,
	}
}

func (e *CLIEngine) Initialize(ctx context.Context) error {
	if _, err := exec.LookPath(e.binary); err != nil {
		return fmt.Errorf("claude CLI not found in PATH: %w", err)
	}
	return nil
}

func (e *CLIEngine) Invoke(ctx context.Context, req *InvokeRequest) (*InvokeResponse, error) {
	model := req.Model
	if model == "" {
		model = e.model
	}

	timeout := defaultInvokeTimeout
	if req.TimeoutSec > 0 {
		timeout = time.Duration(req.TimeoutSec) * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()

	cmd := exec.CommandContext(ctx, e.binary,
		"--print",
		"--model", model,
		"--output-format", "json")
	cmd.Stdin = strings.NewReader(req.Prompt)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	slog.Debug("invoking claude CLI", "model", model, "prompt_chars", len(req.Prompt))

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("claude CLI timed out after %s: %w", timeout, ctx.Err())
		}
		return nil, fmt.Errorf("claude CLI failed: %s: %w", strings.TrimSpace(stderr.String()), err)
	}

	text, tokens := parsePrintOutput(stdout.Bytes())

	return &InvokeResponse{
		Text:       text,
		TokensUsed: tokens,
		ModelID:    model,
		DurationMs: time.Since(start).Milliseconds(),
	}, nil
}

func (e *CLIEngine) Shutdown(ctx context.Context) error {
	return nil
}

// printOutput is the JSON envelope emitted by claude --output-format json.
type printOutput struct {
	Result string `json:"result"`
	Usage  struct {
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// parsePrintOutput decodes the CLI's JSON envelope, falling back to the
// raw output when the CLI emits plain text.
func parsePrintOutput(raw []byte) (string, int) {
	var out printOutput
	if err := json.Unmarshal(raw, &out); err != nil {
		return strings.TrimSpace(string(raw)), 0
	}
	return strings.TrimSpace(out.Result), out.Usage.OutputTokens
}
