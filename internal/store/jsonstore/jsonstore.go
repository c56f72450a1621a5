package jsonstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Makepad-fr/donezo/internal/model"
	"github.com/Makepad-fr/donezo/internal/schema"
)

// JSON-backed fallback storage: one human-readable file per key under Dir.
// Single writer assumed; the file is replaced atomically on every save.

const TasksKey = "tasks"

// Slot is a single keyed file, <Dir>/<Key>.json.
type Slot struct {
	Dir string
	Key string
}

// Tasks returns the slot holding the task list.
func Tasks(dir string) *Slot { return &Slot{Dir: dir, Key: TasksKey} }

func (s *Slot) Path() string {
	return filepath.Join(s.Dir, s.Key+".json")
}

// Exists reports whether the slot has ever been written.
func (s *Slot) Exists() bool {
	_, err := os.Stat(s.Path())
	return err == nil
}

// Load reads the task list. A missing slot is an empty list.
func (s *Slot) Load() ([]model.Task, error) {
	b, err := s.read()
	if err != nil || b == nil {
		return []model.Task{}, err
	}
	if err := schema.ValidateJSON(schema.TaskList, b); err != nil {
		return nil, fmt.Errorf("slot %s: %w", s.Key, err)
	}
	var tasks []model.Task
	if err := json.Unmarshal(b, &tasks); err != nil {
		return nil, fmt.Errorf("json unmarshal: %w", err)
	}
	return tasks, nil
}

// Save replaces the task list.
func (s *Slot) Save(tasks []model.Task) error {
	if tasks == nil {
		tasks = []model.Task{}
	}
	return s.write(tasks)
}

// read returns nil, nil when the slot does not exist.
func (s *Slot) read() ([]byte, error) {
	b, err := os.ReadFile(s.Path())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read file: %w", err)
	}
	return b, nil
}

func (s *Slot) write(v any) error {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("json marshal: %w", err)
	}
	b = append(b, '\n')

	tmp, err := os.CreateTemp(s.Dir, s.Key+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return fmt.Errorf("write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.Path()); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}
