package session

import "time"

// EventType identifies the kind of run log event.
type EventType string

const (
	EventRunStart     EventType = "run_start"
	EventRunEnd       EventType = "run_complete"
	EventTaskStart    EventType = "task_start"
	EventTaskComplete EventType = "task_complete"
	EventError        EventType = "error"
)

// Event is a single timestamped entry in a run log.
type Event struct {
	Timestamp time.Time      `json:"timestamp"`
	Type      EventType      `json:"type"`
	Data      map[string]any `json:"data,omitempty"`
}

// NewEvent creates an event with the current timestamp.
func NewEvent(t EventType, data map[string]any) Event {
	return Event{
		Timestamp: time.Now().UTC(),
		Type:      t,
		Data:      data,
	}
}

// RunStartData returns event data for a run start.
func RunStartData(runID, strategy, mode, model string, taskCount int) map[string]any {
	return map[string]any{
		"run_id":     runID,
		"strategy":   strategy,
		"mode":       mode,
		"model":      model,
		"task_count": taskCount,
	}
}

// RunCompleteData returns event data for a run end.
func RunCompleteData(total, completed, failed int, avgScore float64, durationMs int64) map[string]any {
	return map[string]any{
		"total_tasks": total,
		"completed":   completed,
		"failed":      failed,
		"avg_score":   avgScore,
		"duration_ms": durationMs,
	}
}

// TaskStartData returns event data for a task start.
func TaskStartData(taskID string, taskNum, totalTasks int) map[string]any {
	return map[string]any{
		"task_id":     taskID,
		"task_num":    taskNum,
		"total_tasks": totalTasks,
	}
}

// TaskCompleteData returns event data for a task completion.
func TaskCompleteData(taskID string, score float64, cached bool, durationMs int64) map[string]any {
	return map[string]any{
		"task_id":     taskID,
		"score":       score,
		"cached":      cached,
		"duration_ms": durationMs,
	}
}

// ErrorData returns event data for an error.
func ErrorData(message string, details map[string]any) map[string]any {
	d := map[string]any{
		"message": message,
	}
	for k, v := range details {
		d[k] = v
	}
	return d
}
