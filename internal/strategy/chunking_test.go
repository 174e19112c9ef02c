package strategy

import (
	"context"
	"strings"
	"testing"

	"github.com/oolongbench/oolong-pairs/internal/engine"
	"github.com/oolongbench/oolong-pairs/internal/models"
	"github.com/stretchr/testify/require"
)

func TestFixedChunker(t *testing.T) {
	chunker, err := NewChunker("fixed", 10)
	require.NoError(t, err)

	chunks, err := chunker.Chunk(context.Background(), strings.Repeat("a", 25))
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	require.Equal(t, strings.Repeat("a", 10), chunks[0])
	require.Equal(t, strings.Repeat("a", 5), chunks[2])

	chunks, err = chunker.Chunk(context.Background(), "")
	require.NoError(t, err)
	require.Empty(t, chunks)
}

func TestNewChunkerRejectsUnknown(t *testing.T) {
	_, err := NewChunker("quantum", 0)
	require.Error(t, err)
}

func TestChunkingAdapterDirect(t *testing.T) {
	mock := engine.NewMockEngine("mock-model")
	mock.RespondFunc(func(prompt string) string {
		switch {
		case strings.Contains(prompt, "Analyze this chunk"):
			if strings.Contains(prompt, "needle") {
				return `{"relevant": true, "findings": "the needle count is 42"}`
			}
			return `{"relevant": false, "findings": null}`
		case strings.Contains(prompt, "Based on these findings"):
			return "ANSWER: 42"
		default:
			return "unexpected prompt"
		}
	})

	adapter, err := NewChunkingAdapter(ChunkingArgs{
		Mode:      models.ModeDirect,
		Deps:      Deps{Engine: mock},
		Chunker:   "fixed",
		ChunkSize: 50,
	})
	require.NoError(t, err)

	task := models.NewTask(
		"task-1",
		"synthetic",
		strings.Repeat("hay ", 30)+"needle"+strings.Repeat(" hay", 30),
		"How many needles?",
		"42",
		models.AnswerNumeric,
	)

	res := adapter.Execute(context.Background(), &task, "run-1")
	require.Empty(t, res.Error)
	require.Equal(t, "42", res.ActualAnswer)
	require.Equal(t, 1.0, res.Score)

	// Several chunk subcalls plus one synthesis call.
	require.Greater(t, len(mock.Calls()), 2)
}

func TestChunkingAdapterNoRelevantFindings(t *testing.T) {
	mock := engine.NewMockEngine("mock-model")
	mock.RespondFunc(func(prompt string) string {
		if strings.Contains(prompt, "Analyze this chunk") {
			return `{"relevant": false, "findings": null}`
		}
		t.Error("synthesis must be skipped when nothing was relevant")
		return ""
	})

	adapter, err := NewChunkingAdapter(ChunkingArgs{
		Mode:      models.ModeDirect,
		Deps:      Deps{Engine: mock},
		Chunker:   "fixed",
		ChunkSize: 20,
	})
	require.NoError(t, err)

	task := models.NewTask("task-1", "synthetic", strings.Repeat("hay ", 20), "How many needles?", "42", models.AnswerNumeric)

	res := adapter.Execute(context.Background(), &task, "run-1")
	require.Empty(t, res.Error)
	require.Equal(t, "Unable to determine from context", res.ActualAnswer)
	require.Equal(t, 0.0, res.Score)
}

func TestChunkingAdapterMalformedSubcallReply(t *testing.T) {
	mock := engine.NewMockEngine("mock-model")
	mock.RespondFunc(func(prompt string) string {
		if strings.Contains(prompt, "Analyze this chunk") {
			return "I could not produce JSON, sorry."
		}
		return "ANSWER: whatever"
	})

	adapter, err := NewChunkingAdapter(ChunkingArgs{
		Mode:      models.ModeDirect,
		Deps:      Deps{Engine: mock},
		Chunker:   "fixed",
		ChunkSize: 20,
	})
	require.NoError(t, err)

	task := models.NewTask("task-1", "synthetic", strings.Repeat("hay ", 20), "How many needles?", "42", models.AnswerNumeric)

	// Off-format replies degrade to irrelevant chunks, not failures.
	res := adapter.Execute(context.Background(), &task, "run-1")
	require.Empty(t, res.Error)
	require.Equal(t, "Unable to determine from context", res.ActualAnswer)
}
