package session

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEvent(t *testing.T) {
	before := time.Now().UTC()
	ev := NewEvent(EventTaskStart, TaskStartData("t1", 1, 5))
	after := time.Now().UTC()

	assert.Equal(t, EventTaskStart, ev.Type)
	assert.Equal(t, "t1", ev.Data["task_id"])
	assert.Equal(t, 1, ev.Data["task_num"])
	assert.Equal(t, 5, ev.Data["total_tasks"])
	assert.False(t, ev.Timestamp.Before(before))
	assert.False(t, ev.Timestamp.After(after))
}

func TestEventJSON(t *testing.T) {
	ev := NewEvent(EventRunStart, RunStartData("abc123", "truncation", "direct", "test-model", 10))

	data, err := json.Marshal(ev)
	require.NoError(t, err)

	var decoded Event
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, EventRunStart, decoded.Type)
	assert.Equal(t, "abc123", decoded.Data["run_id"])
	assert.Equal(t, "truncation", decoded.Data["strategy"])
	assert.Equal(t, float64(10), decoded.Data["task_count"])
}

func TestJSONLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "test-run.jsonl")

	logger, err := NewJSONLogger(path)
	require.NoError(t, err)

	require.NoError(t, logger.Log(NewEvent(EventRunStart, RunStartData("r1", "chunking", "direct", "m", 2))))
	require.NoError(t, logger.Log(NewEvent(EventTaskComplete, TaskCompleteData("t1", 0.75, false, 1200))))
	require.NoError(t, logger.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)

	var first Event
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, EventRunStart, first.Type)
}

func TestNopLogger(t *testing.T) {
	var logger Logger = NopLogger{}
	assert.NoError(t, logger.Log(NewEvent(EventError, ErrorData("boom", nil))))
	assert.NoError(t, logger.Close())
}

func TestDefaultLogPath(t *testing.T) {
	path := DefaultLogPath("/logs", "abc123")
	assert.True(t, strings.HasPrefix(path, "/logs/"))
	assert.Contains(t, path, "abc123")
	assert.True(t, strings.HasSuffix(path, "-run.jsonl"))
}

func TestListLogs(t *testing.T) {
	dir := t.TempDir()

	writeLog := func(name string, events int) {
		logger, err := NewJSONLogger(filepath.Join(dir, name))
		require.NoError(t, err)
		for i := 0; i < events; i++ {
			require.NoError(t, logger.Log(NewEvent(EventTaskStart, nil)))
		}
		require.NoError(t, logger.Close())
	}

	writeLog("20260101T000000Z-aaa-run.jsonl", 3)
	writeLog("20260102T000000Z-bbb-run.jsonl", 1)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644))

	files, err := ListLogs(dir)
	require.NoError(t, err)
	require.Len(t, files, 2)

	names := []string{files[0].Name, files[1].Name}
	assert.Contains(t, names, "20260101T000000Z-aaa-run.jsonl")
	assert.Contains(t, names, "20260102T000000Z-bbb-run.jsonl")

	for _, f := range files {
		if f.Name == "20260101T000000Z-aaa-run.jsonl" {
			assert.Equal(t, 3, f.NumEvents)
		}
	}
}

func TestListLogsNoDir(t *testing.T) {
	_, err := ListLogs(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestReadEventsSkipsMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x-run.jsonl")
	content := `{"timestamp":"2026-01-01T00:00:00Z","type":"run_start","data":{"run_id":"r1"}}
not json at all
{"timestamp":"2026-01-01T00:00:05Z","type":"run_complete","data":{"completed":1}}
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	events, err := ReadEvents(path)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, EventRunStart, events[0].Type)
	assert.Equal(t, EventRunEnd, events[1].Type)
}

func TestRenderTimeline(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	events := []Event{
		{Timestamp: base, Type: EventRunStart, Data: RunStartData("r1", "truncation", "direct", "m", 2)},
		{Timestamp: base.Add(time.Second), Type: EventTaskStart, Data: TaskStartData("t1", 1, 2)},
		{Timestamp: base.Add(3 * time.Second), Type: EventTaskComplete, Data: TaskCompleteData("t1", 1.0, true, 2000)},
		{Timestamp: base.Add(4 * time.Second), Type: EventError, Data: ErrorData("engine exited", nil)},
		{Timestamp: base.Add(5 * time.Second), Type: EventRunEnd, Data: RunCompleteData(2, 1, 1, 0.5, 5000)},
	}

	var buf bytes.Buffer
	RenderTimeline(&buf, events)
	out := buf.String()

	assert.Contains(t, out, "RUN TIMELINE")
	assert.Contains(t, out, "Run r1 started")
	assert.Contains(t, out, "Task 1/2: t1")
	assert.Contains(t, out, "[cached]")
	assert.Contains(t, out, "Error: engine exited")
	assert.Contains(t, out, "Run complete")
}

func TestRenderTimelineEmpty(t *testing.T) {
	var buf bytes.Buffer
	RenderTimeline(&buf, nil)
	assert.Contains(t, buf.String(), "No events found.")
}
