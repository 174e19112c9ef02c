package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/oolongbench/oolong-pairs/internal/models"
)

// ExportFormat selects the serialization for exported results.
type ExportFormat string

const (
	FormatJSON  ExportFormat = "json"
	FormatJSONL ExportFormat = "jsonl"
	FormatCSV   ExportFormat = "csv"
)

// ParseExportFormat converts a flag value to an ExportFormat.
func ParseExportFormat(s string) (ExportFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return FormatJSON, nil
	case "jsonl":
		return FormatJSONL, nil
	case "csv":
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("'%s' is not a valid export format (json, jsonl, csv)", s)
	}
}

// ExportResults writes a run's results to outputPath in the given format.
// Paths ending in .gz are gzip-compressed transparently.
func (s *Store) ExportResults(runID, outputPath string, format ExportFormat) error {
	results, err := s.GetResults(runID)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(outputPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating export directory: %w", err)
		}
	}

	f, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("creating export file: %w", err)
	}
	defer f.Close()

	var w io.Writer = f
	var gz *gzip.Writer
	if strings.HasSuffix(outputPath, ".gz") {
		gz = gzip.NewWriter(f)
		w = gz
	}

	if err := writeResults(w, results, format); err != nil {
		return err
	}

	if gz != nil {
		if err := gz.Close(); err != nil {
			return fmt.Errorf("finalizing gzip export: %w", err)
		}
	}
	return f.Close()
}

func writeResults(w io.Writer, results []*models.Result, format ExportFormat) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(results)

	case FormatJSONL:
		enc := json.NewEncoder(w)
		for _, res := range results {
			if err := enc.Encode(res); err != nil {
				return fmt.Errorf("encoding result %s: %w", res.TaskID, err)
			}
		}
		return nil

	case FormatCSV:
		cw := csv.NewWriter(w)
		header := []string{"task_id", "run_id", "strategy", "actual_answer",
			"expected_answer", "score", "latency_ms", "tokens_used", "task_type", "error"}
		if err := cw.Write(header); err != nil {
			return err
		}
		for _, res := range results {
			row := []string{
				res.TaskID,
				res.RunID,
				string(res.Strategy),
				res.ActualAnswer,
				res.ExpectedAnswer,
				strconv.FormatFloat(res.Score, 'f', -1, 64),
				strconv.FormatFloat(res.LatencyMS, 'f', -1, 64),
				strconv.Itoa(res.TokensUsed),
				res.TaskType,
				res.Error,
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()

	default:
		return fmt.Errorf("'%s' is not a valid export format", format)
	}
}
