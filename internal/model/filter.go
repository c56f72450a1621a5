package model

import (
	"fmt"
	"strings"
)

// Filter selects a projection of the task list.
type Filter string

const (
	FilterAll       Filter = "all"
	FilterActive    Filter = "active"
	FilterCompleted Filter = "completed"
)

// Filters in tab order.
var Filters = []Filter{FilterAll, FilterActive, FilterCompleted}

func ParseFilter(s string) (Filter, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all":
		return FilterAll, nil
	case "active", "pending":
		return FilterActive, nil
	case "completed", "done":
		return FilterCompleted, nil
	}
	return FilterAll, fmt.Errorf("unknown filter %q (want all|active|completed)", s)
}

// Match reports whether t belongs to the projection.
func (f Filter) Match(t Task) bool {
	switch f {
	case FilterActive:
		return !t.IsCompleted
	case FilterCompleted:
		return t.IsCompleted
	default:
		return true
	}
}

// Label is the capitalized tab label.
func (f Filter) Label() string {
	s := string(f)
	if s == "" {
		return "All"
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
