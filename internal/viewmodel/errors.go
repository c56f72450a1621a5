package viewmodel

import (
	"errors"
	"fmt"
)

// ErrNotReady is returned by Import while the list is not loaded.
var ErrNotReady = errors.New("task list is not loaded")

// SyncError reports a remote write that failed. By the time the caller sees
// it the optimistic change has already been rolled back.
type SyncError struct {
	Op     OpKind
	TaskID string
	Err    error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("sync %s %s: %v", e.Op, e.TaskID, e.Err)
}

func (e *SyncError) Unwrap() error { return e.Err }

// LoadError is retained while the view model is in the Failed state.
type LoadError struct {
	Err error
}

func (e *LoadError) Error() string { return "load tasks: " + e.Err.Error() }

func (e *LoadError) Unwrap() error { return e.Err }
