// Package cache stores per-task results keyed by everything that determines
// them, so reruns with an unchanged task, strategy, and model skip the model
// call entirely.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/oolongbench/oolong-pairs/internal/models"
)

// Cache provides caching for task results
type Cache struct {
	dir string
	mu  sync.Mutex
}

// New creates a new cache instance with the specified directory.
// An empty directory disables caching.
func New(dir string) *Cache {
	return &Cache{dir: dir}
}

// Key generates a unique cache key for one task execution.
// The key is based on:
// - task identity and content (context, question, expected answer, answer type)
// - strategy kind and its params
// - execution mode and model
func Key(task *models.Task, kind models.StrategyKind, mode models.ExecutionMode, model string, params map[string]any) (string, error) {
	h := sha256.New()

	if err := writeString(h, task.ID); err != nil {
		return "", err
	}
	if err := writeString(h, task.Question); err != nil {
		return "", err
	}
	if err := writeString(h, task.ExpectedAnswer); err != nil {
		return "", err
	}
	if err := writeString(h, string(task.AnswerType)); err != nil {
		return "", err
	}

	// Hash the context rather than embedding it: contexts run to hundreds
	// of kilobytes and only identity matters here.
	contextSum := sha256.Sum256([]byte(task.Context))
	if _, err := h.Write(contextSum[:]); err != nil {
		return "", err
	}

	if err := writeString(h, string(kind)); err != nil {
		return "", err
	}
	if err := writeString(h, string(mode)); err != nil {
		return "", err
	}
	if err := writeString(h, model); err != nil {
		return "", err
	}

	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return "", fmt.Errorf("marshaling strategy params: %w", err)
	}
	if _, err := h.Write(paramsJSON); err != nil {
		return "", err
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// Get retrieves a cached result if it exists
func (c *Cache) Get(key string) (*models.Result, bool) {
	if c.dir == "" {
		return nil, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := os.ReadFile(c.cachePath(key))
	if err != nil {
		// Cache miss
		return nil, false
	}

	var res models.Result
	if err := json.Unmarshal(data, &res); err != nil {
		// Invalid cache entry, treat as miss
		return nil, false
	}

	return &res, true
}

// Put stores a result in the cache. Failed results are not cached, so a
// transient engine error doesn't poison later runs.
func (c *Cache) Put(key string, res *models.Result) error {
	if c.dir == "" || res.Failed() {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}

	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling result: %w", err)
	}

	if err := os.WriteFile(c.cachePath(key), data, 0644); err != nil {
		return fmt.Errorf("writing cache file: %w", err)
	}

	return nil
}

// Clear removes all cached results
func (c *Cache) Clear() error {
	if c.dir == "" {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := os.Stat(c.dir); os.IsNotExist(err) {
		return nil
	}

	// Safety check: only delete directories that look like a results cache
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return fmt.Errorf("reading cache directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			return fmt.Errorf("cache directory contains subdirectories - refusing to delete for safety")
		}
		if filepath.Ext(entry.Name()) != ".json" {
			return fmt.Errorf("cache directory contains non-cache files - refusing to delete for safety")
		}
	}

	return os.RemoveAll(c.dir)
}

// cachePath returns the file path for a cache key
func (c *Cache) cachePath(key string) string {
	return filepath.Join(c.dir, key+".json")
}

func writeString(w io.Writer, s string) error {
	// Write string with null byte delimiter to prevent hash collisions
	_, err := w.Write([]byte(s + "\x00"))
	return err
}
