// Package dataset loads benchmark tasks from local corpus exports, either
// JSONL or CSV, using the oolong-synth column layout.
package dataset

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/oolongbench/oolong-pairs/internal/models"
)

// DefaultMinContextLength filters out tasks whose context is too small to
// exercise the long-context strategies.
const DefaultMinContextLength = 100_000

// Filter narrows which corpus tasks load.
type Filter struct {
	// Dataset keeps only tasks whose dataset column matches. Empty keeps all.
	Dataset string
	// MinContextLength drops tasks with shorter contexts. Negative disables
	// the check; zero applies the default.
	MinContextLength int
	// Limit caps the number of loaded tasks. Zero means no cap.
	Limit int
}

func (f Filter) minContext() int {
	switch {
	case f.MinContextLength < 0:
		return 0
	case f.MinContextLength == 0:
		return DefaultMinContextLength
	default:
		return f.MinContextLength
	}
}

func (f Filter) match(task *models.Task) bool {
	if f.Dataset != "" && task.Dataset != f.Dataset {
		return false
	}
	return task.ContextLength >= f.minContext()
}

// LoadTasks loads tasks from a corpus file, dispatching on the extension:
// .jsonl streams line-delimited JSON, .csv uses the flat export layout.
func LoadTasks(path string, filter Filter) ([]models.Task, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jsonl":
		return LoadTasksJSONL(path, filter)
	case ".csv":
		return LoadTasksCSV(path, filter)
	default:
		return nil, fmt.Errorf("dataset: unsupported corpus format %q (want .jsonl or .csv)", filepath.Ext(path))
	}
}

// corpusRecord mirrors one row of the oolong-synth export.
type corpusRecord struct {
	ID              json.RawMessage `json:"id"`
	Dataset         string          `json:"dataset"`
	Context         string          `json:"context_window_text"`
	Question        string          `json:"question"`
	Answer          json.RawMessage `json:"answer"`
	AnswerType      string          `json:"answer_type"`
	Task            string          `json:"task"`
	TaskGroup       string          `json:"task_group"`
	NumLabels       int             `json:"num_labels"`
	ContextWindowID int             `json:"context_window_id"`
	InputSubset     string          `json:"input_subset"`
}

func (r corpusRecord) toTask(idx int) models.Task {
	id := rawToString(r.ID)
	if id == "" {
		id = strconv.Itoa(idx)
	}
	dataset := r.Dataset
	if dataset == "" {
		dataset = "unknown"
	}

	task := models.NewTask(id, dataset, r.Context, r.Question, cleanAnswer(rawToString(r.Answer)), models.ParseAnswerType(r.AnswerType))
	task.TaskType = r.Task
	task.Metadata = map[string]any{
		"task_group":        r.TaskGroup,
		"num_labels":        r.NumLabels,
		"context_window_id": r.ContextWindowID,
		"input_subset":      r.InputSubset,
	}
	return task
}

// rawToString renders a JSON scalar the way the corpus writes it, so both
// quoted and bare IDs and answers come through as text.
func rawToString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}

// cleanAnswer strips the list brackets some corpus answers carry.
func cleanAnswer(s string) string {
	return strings.Trim(strings.TrimSpace(s), "[]")
}

// LoadTasksJSONL streams tasks from a line-delimited JSON corpus export.
func LoadTasksJSONL(path string, filter Filter) ([]models.Task, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("dataset: open %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	var tasks []models.Task
	reader := bufio.NewReaderSize(f, 1<<20)
	dec := json.NewDecoder(reader)
	for line := 1; ; line++ {
		var rec corpusRecord
		if err := dec.Decode(&rec); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("dataset: parse %s record %d: %w", path, line, err)
		}

		task := rec.toTask(line - 1)
		if !filter.match(&task) {
			continue
		}
		tasks = append(tasks, task)
		if filter.Limit > 0 && len(tasks) >= filter.Limit {
			break
		}
	}
	return tasks, nil
}

// LoadTasksCSV loads tasks from a flat CSV corpus export.
func LoadTasksCSV(path string, filter Filter) ([]models.Task, error) {
	rows, err := LoadCSV(path)
	if err != nil {
		return nil, err
	}

	var tasks []models.Task
	for idx, row := range rows {
		rec := corpusRecord{
			Dataset:     row["dataset"],
			Context:     row["context_window_text"],
			Question:    row["question"],
			AnswerType:  row["answer_type"],
			Task:        row["task"],
			TaskGroup:   row["task_group"],
			InputSubset: row["input_subset"],
		}
		if v := row["id"]; v != "" {
			rec.ID = json.RawMessage(strconv.Quote(v))
		}
		if v := row["answer"]; v != "" {
			rec.Answer = json.RawMessage(strconv.Quote(v))
		}
		if v := row["num_labels"]; v != "" {
			rec.NumLabels, _ = strconv.Atoi(v)
		}
		if v := row["context_window_id"]; v != "" {
			rec.ContextWindowID, _ = strconv.Atoi(v)
		}

		task := rec.toTask(idx)
		if !filter.match(&task) {
			continue
		}
		tasks = append(tasks, task)
		if filter.Limit > 0 && len(tasks) >= filter.Limit {
			break
		}
	}
	return tasks, nil
}

// Stats summarizes the shape of a loaded corpus slice.
type Stats struct {
	Count            int            `json:"count"`
	MinContextLength int            `json:"min_context_length"`
	MaxContextLength int            `json:"max_context_length"`
	AvgContextLength float64        `json:"avg_context_length"`
	TaskTypes        map[string]int `json:"task_types"`
	AnswerTypes      map[string]int `json:"answer_types"`
}

// ComputeStats aggregates counts and context-length distribution.
func ComputeStats(tasks []models.Task) Stats {
	stats := Stats{
		Count:       len(tasks),
		TaskTypes:   make(map[string]int),
		AnswerTypes: make(map[string]int),
	}
	if len(tasks) == 0 {
		return stats
	}

	total := 0
	stats.MinContextLength = tasks[0].ContextLength
	for _, task := range tasks {
		total += task.ContextLength
		if task.ContextLength < stats.MinContextLength {
			stats.MinContextLength = task.ContextLength
		}
		if task.ContextLength > stats.MaxContextLength {
			stats.MaxContextLength = task.ContextLength
		}

		taskType := task.TaskType
		if taskType == "" {
			taskType = "unknown"
		}
		stats.TaskTypes[taskType]++
		stats.AnswerTypes[string(task.AnswerType)]++
	}
	stats.AvgContextLength = float64(total) / float64(len(tasks))
	return stats
}
