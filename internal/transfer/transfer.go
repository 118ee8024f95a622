// Package transfer reads and writes the JSON task file used by import and
// export. A file is a JSON array of task objects.
package transfer

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bytedance/sonic"
	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/raztodo/raztodo/internal/domain"
)

// elementSchema describes one importable task object. Unknown keys are allowed
// so exported files, which carry id and created_at, import unchanged.
const elementSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"required": ["title"],
	"properties": {
		"title":       {"type": "string"},
		"description": {"type": ["string", "null"]},
		"priority":    {"type": ["string", "null"]},
		"due_date":    {"type": ["string", "null"]},
		"project":     {"type": ["string", "null"]},
		"tags":        {"type": ["array", "null"], "items": {"type": "string"}},
		"done":        {"type": ["boolean", "integer", "null"]}
	}
}`

var taskSchema = jsonschema.MustCompileString("task.schema.json", elementSchema)

// Record is one task element of an import file.
type Record struct {
	// Index is the 1-based position of the element in the file.
	Index int
	// Err is set when the element failed schema validation; the other
	// fields are then empty.
	Err         error
	Title       string
	Description string
	Priority    string
	DueDate     *string
	Tags        []string
	Project     *string
	// Done is nil when the element has no "done" key.
	Done *bool
}

// Batch is the parsed content of an import file.
type Batch struct {
	Records []Record
	// Skipped counts elements that are not objects or have no title.
	Skipped int
}

// ReadFile parses an import file. File-level failures are returned as
// file_not_found, permission, invalid_format or file_operation errors;
// element-level problems are reported per record.
func ReadFile(path string) (*Batch, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, domain.NewFileNotFoundError(path)
		}
		if errors.Is(err, fs.ErrPermission) {
			return nil, domain.NewPermissionError(path, "read", err)
		}
		return nil, domain.NewFileOperationError(path, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return nil, domain.NewPermissionError(path, "read", err)
		}
		return nil, domain.NewFileOperationError(path, err)
	}

	var doc interface{}
	if err := sonic.Unmarshal(data, &doc); err != nil {
		return nil, domain.NewInvalidFormatError(path, firstLine(err.Error()), err)
	}

	items, ok := doc.([]interface{})
	if !ok {
		return nil, domain.NewInvalidFormatError(path, "Expected JSON array", nil)
	}

	batch := &Batch{}
	for i, item := range items {
		idx := i + 1
		obj, ok := item.(map[string]interface{})
		if !ok {
			batch.Skipped++
			continue
		}
		if _, ok := obj["title"]; !ok {
			batch.Skipped++
			continue
		}
		if err := taskSchema.Validate(obj); err != nil {
			field, msg := schemaViolation(err)
			batch.Records = append(batch.Records, Record{Index: idx, Err: domain.NewValidationError(field, msg)})
			continue
		}
		batch.Records = append(batch.Records, toRecord(idx, obj))
	}

	return batch, nil
}

func toRecord(idx int, obj map[string]interface{}) Record {
	rec := Record{Index: idx}
	rec.Title, _ = obj["title"].(string)
	rec.Description, _ = obj["description"].(string)
	rec.Priority, _ = obj["priority"].(string)
	if s, ok := obj["due_date"].(string); ok {
		rec.DueDate = &s
	}
	if s, ok := obj["project"].(string); ok {
		rec.Project = &s
	}
	if tags, ok := obj["tags"].([]interface{}); ok {
		rec.Tags = make([]string, 0, len(tags))
		for _, tag := range tags {
			if s, ok := tag.(string); ok {
				rec.Tags = append(rec.Tags, s)
			}
		}
	}
	if v, present := obj["done"]; present {
		done := false
		switch d := v.(type) {
		case bool:
			done = d
		case float64:
			done = d != 0
		}
		rec.Done = &done
	}
	return rec
}

// schemaViolation returns the field and message of the first leaf cause of a
// schema validation error.
func schemaViolation(err error) (string, string) {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return "task", err.Error()
	}
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	field := strings.TrimPrefix(ve.InstanceLocation, "/")
	if i := strings.IndexByte(field, '/'); i >= 0 {
		field = field[:i]
	}
	if field == "" {
		field = "task"
	}
	return field, ve.Message
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return s
}

// WriteFile writes tasks to path as an indented JSON array, creating parent
// directories as needed. An existing file that cannot be written is a
// permission error; every other failure is a file_operation error.
func WriteFile(path string, tasks []domain.Task) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return domain.NewFileOperationError(path, err)
	}

	if err := os.MkdirAll(filepath.Dir(abs), 0755); err != nil {
		return domain.NewFileOperationError(path, fmt.Errorf("cannot create directory %s: %w", filepath.Dir(abs), err))
	}

	_, statErr := os.Stat(abs)
	existed := statErr == nil

	f, err := os.OpenFile(abs, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		if existed && errors.Is(err, fs.ErrPermission) {
			return domain.NewPermissionError(path, "write to", err)
		}
		return domain.NewFileOperationError(path, err)
	}

	out := make([]domain.Task, len(tasks))
	for i, t := range tasks {
		if t.Tags == nil {
			t.Tags = []string{}
		}
		out[i] = t
	}

	enc := sonic.ConfigStd.NewEncoder(f)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		f.Close()
		return domain.NewFileOperationError(path, err)
	}

	if err := f.Close(); err != nil {
		return domain.NewFileOperationError(path, err)
	}
	return nil
}
