package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Makepad-fr/donezo/internal/model"
	"github.com/Makepad-fr/donezo/internal/ui"
)

// listItem adapts a task to bubbles/list.Item.
type listItem struct {
	task model.Task
}

func (i listItem) Title() string       { return i.task.Title }
func (i listItem) Description() string { return i.task.Notes }
func (i listItem) FilterValue() string { return i.task.Title }

// itemDelegate renders one task per line.
type itemDelegate struct {
	theme ui.Theme
}

func (d itemDelegate) Height() int                               { return 1 }
func (d itemDelegate) Spacing() int                              { return 0 }
func (d itemDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }
func (d itemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	it, ok := item.(listItem)
	if !ok {
		return
	}
	t := it.task
	text := t.Title
	if t.IsCompleted {
		text = d.theme.Done.Render(text)
	}
	parts := []string{d.theme.Box(t.IsCompleted), text}
	if tag := d.theme.Priority(t.Priority); tag != "" {
		parts = append(parts, tag)
	}
	if t.Notes != "" {
		notes := strings.ReplaceAll(t.Notes, "\n", " ")
		if avail := m.Width() - lipgloss.Width(strings.Join(parts, " ")) - 6; avail > 8 && len([]rune(notes)) > avail {
			notes = string([]rune(notes)[:avail-1]) + "…"
		}
		parts = append(parts, d.theme.Muted.Render(notes))
	}

	prefix := "  "
	if index == m.Index() {
		prefix = d.theme.Selected.Render(">") + " "
	}
	fmt.Fprint(w, prefix+strings.Join(parts, " "))
}
