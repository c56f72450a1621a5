package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Makepad-fr/donezo/internal/model"
)

// Mode is the color scheme.
type Mode string

const (
	Light Mode = "light"
	Dark  Mode = "dark"
)

func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case Light, Dark:
		return m, nil
	}
	return "", fmt.Errorf("unknown theme %q (want light|dark)", s)
}

// Toggle flips light and dark.
func (m Mode) Toggle() Mode {
	if m == Dark {
		return Light
	}
	return Dark
}

// Theme bundles styles + symbols. It is a value: callers hold the one
// they render with, there is no package-level current theme.
type Theme struct {
	Mode  Mode
	Plain bool

	Title, Muted, Accent, Success, Error, Pending lipgloss.Style
	Selected, Done, Help, Border, Tab, ActiveTab  lipgloss.Style
	High, Medium, Low                             lipgloss.Style

	BoxChecked, BoxUnchecked  string
	SymOK, SymFail, SymActive string
}

type palette struct {
	success, pending, accent, errorc, muted, border, high, medium, low string
}

var palettes = map[Mode]palette{
	Dark:  {success: "42", pending: "214", accent: "12", errorc: "9", muted: "245", border: "8", high: "203", medium: "214", low: "110"},
	Light: {success: "28", pending: "166", accent: "25", errorc: "160", muted: "242", border: "250", high: "160", medium: "130", low: "31"},
}

// NewTheme builds styles on r; a nil renderer uses lipgloss' default.
func NewTheme(r *lipgloss.Renderer, mode Mode) Theme {
	if r == nil {
		r = lipgloss.DefaultRenderer()
	}
	if mode != Light {
		mode = Dark
	}
	p := palettes[mode]
	fg := func(c string) lipgloss.Style { return r.NewStyle().Foreground(lipgloss.Color(c)) }
	return Theme{
		Mode:      mode,
		Title:     r.NewStyle().Bold(true),
		Muted:     fg(p.muted),
		Accent:    fg(p.accent),
		Success:   fg(p.success),
		Error:     fg(p.errorc).Bold(true),
		Pending:   fg(p.pending),
		Selected:  r.NewStyle().Bold(true).Reverse(true),
		Done:      fg(p.muted).Strikethrough(true),
		Help:      r.NewStyle().Faint(true),
		Border:    r.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color(p.border)).Padding(0, 1),
		Tab:       fg(p.muted).Padding(0, 1),
		ActiveTab: fg(p.accent).Bold(true).Underline(true).Padding(0, 1),
		High:      fg(p.high),
		Medium:    fg(p.medium),
		Low:       fg(p.low),

		BoxChecked:   "☑",
		BoxUnchecked: "☐",
		SymOK:        "✔",
		SymFail:      "✖",
		SymActive:    "•",
	}
}

// PlainTheme renders no escape codes and only ASCII symbols, for pipes
// and --plain.
func PlainTheme(mode Mode) Theme {
	s := lipgloss.NewStyle()
	return Theme{
		Mode: mode, Plain: true,
		Title: s, Muted: s, Accent: s, Success: s, Error: s, Pending: s,
		Selected: s, Done: s, Help: s, Tab: s, ActiveTab: s,
		High: s, Medium: s, Low: s,
		Border: s.Border(lipgloss.NormalBorder()).Padding(0, 1),

		BoxChecked:   "[x]",
		BoxUnchecked: "[ ]",
		SymOK:        "ok:",
		SymFail:      "error:",
		SymActive:    "-",
	}
}

// Priority renders a priority tag, "" when unset.
func (t Theme) Priority(p model.Priority) string {
	switch p {
	case model.PriorityHigh:
		return t.High.Render("High")
	case model.PriorityMedium:
		return t.Medium.Render("Medium")
	case model.PriorityLow:
		return t.Low.Render("Low")
	}
	return ""
}

// Box is the checkbox for a task.
func (t Theme) Box(done bool) string {
	if done {
		return t.Success.Render(t.BoxChecked)
	}
	return t.Muted.Render(t.BoxUnchecked)
}
