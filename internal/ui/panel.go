package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/Makepad-fr/donezo/internal/model"
)

// ProgressBar renders a Unicode progress bar with percentage.
func ProgressBar(done, total, width int) string {
	if width < 5 {
		width = 5
	}
	filled := 0
	if total > 0 {
		filled = done * width / total
	}
	if filled > width {
		filled = width
	}
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	return fmt.Sprintf("%s %3d%%", bar, model.Percent(done, total))
}

// Header is the counters line shown above the list.
func (t Theme) Header(st model.Stats) string {
	return fmt.Sprintf("%s   %s %d  %s %d  %s %d",
		t.Title.Render("Tasks"),
		t.Success.Render(t.SymOK), st.Completed,
		t.Pending.Render(t.SymActive), st.Active,
		t.Accent.Render("Total"), st.Total,
	)
}

// PriorityLine lists active counts per priority, skipping zeros.
func (t Theme) PriorityLine(st model.Stats) string {
	var parts []string
	for _, p := range model.Priorities {
		if n := st.ByPriority[p]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s %d", t.Priority(p), n))
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return strings.Join(parts, "  ")
}

// Greeting by time of day.
func Greeting(now time.Time, name string) string {
	g := "Good evening"
	switch h := now.Hour(); {
	case h < 12:
		g = "Good morning"
	case h < 18:
		g = "Good afternoon"
	}
	if name == "" {
		return g
	}
	return g + ", " + name
}
