package viewmodel

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Makepad-fr/donezo/internal/model"
	"github.com/Makepad-fr/donezo/internal/schema"
)

// SnapshotVersion is written into every export.
const SnapshotVersion = 1

// Document is the export format.
type Document struct {
	Version    int          `json:"version"`
	ExportedAt time.Time    `json:"exportedAt"`
	Tasks      []model.Task `json:"tasks"`
}

// Export serializes the canonical list with every field, in order.
func (vm *ViewModel) Export() ([]byte, error) {
	return EncodeSnapshot(vm.tasks, vm.now())
}

// Import decodes a snapshot and restores the tasks it holds.
func (vm *ViewModel) Import(data []byte) ([]*Op, error) {
	if vm.state != Ready {
		return nil, ErrNotReady
	}
	tasks, err := DecodeSnapshot(data)
	if err != nil {
		return nil, err
	}
	return vm.Restore(tasks), nil
}

func EncodeSnapshot(tasks []model.Task, at time.Time) ([]byte, error) {
	doc := Document{
		Version:    SnapshotVersion,
		ExportedAt: at.UTC().Truncate(time.Second),
		Tasks:      tasks,
	}
	if doc.Tasks == nil {
		doc.Tasks = []model.Task{}
	}
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}
	return append(b, '\n'), nil
}

// DecodeSnapshot accepts an export document or a bare task array (the
// format of the fallback slot). The input is schema-checked before use and
// duplicate ids are rejected.
func DecodeSnapshot(data []byte) ([]model.Task, error) {
	data = bytes.TrimSpace(data)
	var tasks []model.Task
	if bytes.HasPrefix(data, []byte("[")) {
		if err := schema.ValidateJSON(schema.TaskList, data); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(data, &tasks); err != nil {
			return nil, fmt.Errorf("parse task list: %w", err)
		}
	} else {
		if err := schema.ValidateJSON(schema.Snapshot, data); err != nil {
			return nil, err
		}
		var doc Document
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parse snapshot: %w", err)
		}
		tasks = doc.Tasks
	}
	seen := make(map[string]bool, len(tasks))
	for i, t := range tasks {
		if seen[t.ID] {
			return nil, fmt.Errorf("tasks[%d]: duplicate id %q", i, t.ID)
		}
		seen[t.ID] = true
		tasks[i] = normalize(t)
	}
	return tasks, nil
}
