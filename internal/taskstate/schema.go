package taskstate

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// recordSchemaJSON is the shape a task state file must have before any of its
// contents are trusted. A file that fails validation is reported as malformed
// rather than half-parsed.
const recordSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["task_id", "run_id", "question", "expected_answer", "status", "epoch"],
  "properties": {
    "task_id": {"type": "string", "minLength": 1},
    "run_id": {"type": "string", "minLength": 1},
    "context": {"type": "string"},
    "question": {"type": "string"},
    "expected_answer": {"type": "string"},
    "answer_type": {"type": "string"},
    "strategy": {"type": "string"},
    "status": {"enum": ["pending", "in_progress", "completed", "failed"]},
    "start_time": {"type": "number"},
    "epoch": {"type": "integer", "minimum": 1},
    "actual_answer": {"type": "string"},
    "score": {"type": "number", "minimum": 0, "maximum": 1},
    "tokens_used": {"type": "integer", "minimum": 0},
    "error": {"type": "string"}
  }
}`

var recordSchema *jsonschema.Schema

func init() {
	recordSchema = mustCompileSchema(recordSchemaJSON, "task_state.schema.json")
}

func mustCompileSchema(raw, name string) *jsonschema.Schema {
	var schemaDoc any
	if err := json.Unmarshal([]byte(raw), &schemaDoc); err != nil {
		panic(fmt.Sprintf("failed to parse embedded %s: %v", name, err))
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, schemaDoc); err != nil {
		panic(fmt.Sprintf("failed to add %s resource: %v", name, err))
	}

	sch, err := compiler.Compile(name)
	if err != nil {
		panic(fmt.Sprintf("failed to compile %s: %v", name, err))
	}
	return sch
}

// validateRecordBytes checks raw file contents against the record schema.
func validateRecordBytes(data []byte) error {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("not valid JSON: %w", err)
	}
	if err := recordSchema.Validate(doc); err != nil {
		return fmt.Errorf("schema violation: %w", err)
	}
	return nil
}
