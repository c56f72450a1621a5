// Package schema validates task documents at the process boundary:
// export snapshots, the local fallback slot, and rows from the remote store.
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

// Kind names an embedded schema.
type Kind string

const (
	// Snapshot is the export document: {"version":1,"tasks":[...]}.
	Snapshot Kind = "snapshot"
	// TaskList is a bare array of tasks, as kept in the fallback slot.
	TaskList Kind = "task-list"
	// Row is a single record from the remote tasks table.
	Row Kind = "row"
)

const baseURL = "https://donezo.invalid/schema/"

const taskDef = `{
  "type": "object",
  "required": ["id", "title", "isCompleted", "createdAt"],
  "properties": {
    "id": {"type": "string", "minLength": 1},
    "title": {"type": "string", "pattern": "\\S"},
    "notes": {"type": ["string", "null"]},
    "priority": {"enum": ["High", "Medium", "Low", null]},
    "isCompleted": {"type": "boolean"},
    "createdAt": {"type": "string", "format": "date-time"}
  }
}`

var sources = map[Kind]string{
	Snapshot: `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["version", "tasks"],
  "properties": {
    "version": {"const": 1},
    "exportedAt": {"type": "string", "format": "date-time"},
    "tasks": {"type": "array", "items": {"$ref": "#/$defs/task"}}
  },
  "$defs": {"task": ` + taskDef + `}
}`,
	TaskList: `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "array",
  "items": {"$ref": "#/$defs/task"},
  "$defs": {"task": ` + taskDef + `}
}`,
	Row: `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["id", "title", "is_completed", "created_at"],
  "properties": {
    "id": {"type": "string", "minLength": 1},
    "user_id": {"type": ["string", "null"]},
    "title": {"type": "string", "pattern": "\\S"},
    "notes": {"type": ["string", "null"]},
    "priority": {"enum": ["High", "Medium", "Low", null]},
    "is_completed": {"type": "boolean"},
    "created_at": {"type": "string", "format": "date-time"},
    "updated_at": {"type": ["string", "null"]}
  }
}`,
}

var (
	compileOnce sync.Once
	compiled    map[Kind]*jsonschema.Schema
	compileErr  error
)

func load() (map[Kind]*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		c := jsonschema.NewCompiler()
		c.Draft = jsonschema.Draft2020
		c.AssertFormat = true
		for k, src := range sources {
			if err := c.AddResource(baseURL+string(k)+".json", strings.NewReader(src)); err != nil {
				compileErr = fmt.Errorf("add schema %s: %w", k, err)
				return
			}
		}
		out := make(map[Kind]*jsonschema.Schema, len(sources))
		for k := range sources {
			s, err := c.Compile(baseURL + string(k) + ".json")
			if err != nil {
				compileErr = fmt.Errorf("compile schema %s: %w", k, err)
				return
			}
			out[k] = s
		}
		compiled = out
	})
	return compiled, compileErr
}

// ValidationError points at the first offending location in a document.
type ValidationError struct {
	Kind    Kind
	Path    string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Path, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// ValidateJSON decodes raw JSON and validates it against the schema.
func ValidateJSON(kind Kind, data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc interface{}
	if err := dec.Decode(&doc); err != nil {
		return &ValidationError{Kind: kind, Message: "invalid JSON: " + err.Error()}
	}
	return Validate(kind, doc)
}

// Validate checks an already-decoded document (maps, slices, scalars).
func Validate(kind Kind, doc interface{}) error {
	schemas, err := load()
	if err != nil {
		return err
	}
	s, ok := schemas[kind]
	if !ok {
		return fmt.Errorf("unknown schema %q", kind)
	}
	if err := s.Validate(doc); err != nil {
		return mapSchemaError(kind, err)
	}
	return nil
}

func mapSchemaError(kind Kind, err error) error {
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return &ValidationError{Kind: kind, Message: err.Error()}
	}
	leaf := firstLeaf(ve)
	return &ValidationError{
		Kind:    kind,
		Path:    pointerToPath(leaf.InstanceLocation),
		Message: leaf.Message,
	}
}

// firstLeaf walks Causes depth-first to the first error without causes.
func firstLeaf(ve *jsonschema.ValidationError) *jsonschema.ValidationError {
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	return ve
}

// pointerToPath turns "/tasks/0/title" into "tasks[0].title".
func pointerToPath(ptr string) string {
	ptr = strings.TrimPrefix(ptr, "#")
	ptr = strings.TrimPrefix(ptr, "/")
	if ptr == "" {
		return ""
	}
	var b strings.Builder
	for i, part := range strings.Split(ptr, "/") {
		part = strings.ReplaceAll(strings.ReplaceAll(part, "~1", "/"), "~0", "~")
		if isIndex(part) {
			b.WriteString("[" + part + "]")
			continue
		}
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(part)
	}
	return b.String()
}

func isIndex(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
