package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Priority tags a task. The zero value means "unset".
type Priority string

const (
	PriorityNone   Priority = ""
	PriorityHigh   Priority = "High"
	PriorityMedium Priority = "Medium"
	PriorityLow    Priority = "Low"
)

// Priorities lists the settable priorities, highest first.
var Priorities = []Priority{PriorityHigh, PriorityMedium, PriorityLow}

// ParsePriority accepts any casing plus a few shorthands ("h", "med", ...).
// Empty input and "none" map to PriorityNone.
func ParsePriority(s string) (Priority, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none", "null":
		return PriorityNone, nil
	case "high", "h":
		return PriorityHigh, nil
	case "medium", "med", "m":
		return PriorityMedium, nil
	case "low", "l":
		return PriorityLow, nil
	}
	return PriorityNone, fmt.Errorf("unknown priority %q (want high|medium|low)", s)
}

// Next cycles None -> High -> Medium -> Low -> None.
func (p Priority) Next() Priority {
	switch p {
	case PriorityNone:
		return PriorityHigh
	case PriorityHigh:
		return PriorityMedium
	case PriorityMedium:
		return PriorityLow
	default:
		return PriorityNone
	}
}

func (p Priority) String() string {
	if p == PriorityNone {
		return "none"
	}
	return string(p)
}

// MarshalJSON writes an unset priority as null.
func (p Priority) MarshalJSON() ([]byte, error) {
	if p == PriorityNone {
		return []byte("null"), nil
	}
	return json.Marshal(string(p))
}

func (p *Priority) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*p = PriorityNone
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v, err := ParsePriority(s)
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// Task is the domain model for a todo entry.
type Task struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Notes       string    `json:"notes,omitempty"`
	Priority    Priority  `json:"priority"`
	IsCompleted bool      `json:"isCompleted"`
	CreatedAt   time.Time `json:"createdAt"`
}

// NormalizeTitle trims the title; ok is false when nothing is left.
func NormalizeTitle(title string) (string, bool) {
	t := strings.TrimSpace(title)
	return t, t != ""
}

// NormalizeNotes trims notes. Absent and empty notes are the same thing.
func NormalizeNotes(notes string) string { return strings.TrimSpace(notes) }

// Timestamp truncates to the precision the remote stores keep, in UTC.
func Timestamp(t time.Time) time.Time { return t.UTC().Truncate(time.Microsecond) }

// Patch is a partial update. Nil fields are left untouched.
type Patch struct {
	Title       *string
	Notes       *string
	Priority    *Priority
	IsCompleted *bool
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.Title == nil && p.Notes == nil && p.Priority == nil && p.IsCompleted == nil
}

// Apply returns t with the patch applied. ID and CreatedAt never change.
func (p Patch) Apply(t Task) Task {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Notes != nil {
		t.Notes = *p.Notes
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.IsCompleted != nil {
		t.IsCompleted = *p.IsCompleted
	}
	return t
}
