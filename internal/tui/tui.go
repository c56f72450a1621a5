// Package tui is the interactive task list.
package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/Makepad-fr/donezo/internal/auth"
	"github.com/Makepad-fr/donezo/internal/export"
	"github.com/Makepad-fr/donezo/internal/model"
	"github.com/Makepad-fr/donezo/internal/ui"
	"github.com/Makepad-fr/donezo/internal/viewmodel"
)

// Options wire the list to its collaborators. VM is required.
type Options struct {
	VM       *viewmodel.ViewModel
	Exporter *export.Exporter
	Prefs    *ui.Preferences
	// Rebind attaches the store for a new session and returns its load.
	Rebind    func(*auth.Session) *viewmodel.LoadOp
	UserName  string
	ExportDir string
	// SmartPrioritize suggests a priority for new tasks left unset.
	SmartPrioritize bool
	Logger          *log.Logger
	Now             func() time.Time
}

type mode int

const (
	browsing mode = iota
	adding
	editing
	confirmDelete
)

type (
	loadedMsg  struct{ res viewmodel.LoadResult }
	settledMsg struct{ res viewmodel.Result }
	sessionMsg struct{ session *auth.Session }
)

type Model struct {
	ctx  context.Context
	opts Options
	vm   *viewmodel.ViewModel
	log  *log.Logger

	theme  ui.Theme
	filter model.Filter
	list   list.Model
	mode   mode

	// add / edit form
	title    textinput.Model
	notes    textarea.Model
	priority model.Priority
	onNotes  bool
	editID   string
	formErr  string

	deleteID string

	status    string
	statusErr bool

	width, height int
}

var (
	addBind    = key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add"))
	editBind   = key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit"))
	toggleBind = key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "toggle"))
	deleteBind = key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete"))
	clearBind  = key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "clear done"))
	filterBind = key.NewBinding(key.WithKeys("1", "2", "3"), key.WithHelp("1/2/3", "filter"))
	themeBind  = key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "theme"))
	exportBind = key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "export"))
	reloadBind = key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload"))
)

// New builds the model. Call Init (or Run) to start loading.
func New(ctx context.Context, opts Options) Model {
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	start := ui.Light
	if opts.Prefs != nil {
		start = opts.Prefs.Mode()
	}
	theme := ui.NewTheme(nil, start)

	l := list.New(nil, itemDelegate{theme: theme}, 0, 0)
	l.SetShowTitle(false)
	l.SetShowHelp(true)
	l.SetShowPagination(true)
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.DisableQuitKeybindings()
	l.Styles.HelpStyle = theme.Help
	l.Styles.PaginationStyle = theme.Help
	l.SetStatusBarItemName("task", "tasks")
	extra := func() []key.Binding {
		return []key.Binding{toggleBind, addBind, editBind, deleteBind, filterBind}
	}
	l.AdditionalShortHelpKeys = extra
	l.AdditionalFullHelpKeys = func() []key.Binding {
		return append(extra(), clearBind, themeBind, exportBind, reloadBind)
	}

	ti := textinput.New()
	ti.Prompt = "> "
	ti.CharLimit = 200

	ta := textarea.New()
	ta.Placeholder = "Notes (optional)"
	ta.ShowLineNumbers = false
	ta.CharLimit = 2000
	ta.SetHeight(3)

	m := Model{
		ctx:    ctx,
		opts:   opts,
		vm:     opts.VM,
		log:    opts.Logger,
		theme:  theme,
		filter: model.FilterAll,
		list:   l,
		title:  ti,
		notes:  ta,
		width:  80,
		height: 24,
	}
	m.refresh()
	return m
}

func (m Model) Init() tea.Cmd {
	if m.vm.State() != viewmodel.Uninitialized {
		return nil
	}
	return m.loadCmd(m.vm.BeginLoad())
}

func (m Model) loadCmd(op *viewmodel.LoadOp) tea.Cmd {
	if op == nil {
		return nil
	}
	ctx := m.ctx
	return func() tea.Msg { return loadedMsg{op.Do(ctx)} }
}

// settle runs the remote half of each op off the event loop.
func (m Model) settle(ops ...*viewmodel.Op) tea.Cmd {
	var cmds []tea.Cmd
	ctx := m.ctx
	for _, op := range ops {
		if op == nil {
			continue
		}
		op := op
		cmds = append(cmds, func() tea.Msg { return settledMsg{op.Do(ctx)} })
	}
	return tea.Batch(cmds...)
}

// refresh rebuilds the visible rows from the view model, keeping the cursor.
func (m *Model) refresh() {
	tasks := m.vm.Filtered(m.filter)
	items := make([]list.Item, len(tasks))
	for i, t := range tasks {
		items[i] = listItem{task: t}
	}
	idx := m.list.Index()
	m.list.SetItems(items)
	if idx >= len(items) {
		idx = len(items) - 1
	}
	if idx >= 0 {
		m.list.Select(idx)
	}
}

func (m Model) selected() (model.Task, bool) {
	it, ok := m.list.SelectedItem().(listItem)
	if !ok {
		return model.Task{}, false
	}
	return it.task, true
}

func (m *Model) setStatus(msg string, isErr bool) {
	m.status, m.statusErr = msg, isErr
}

func (m *Model) setTheme(mode ui.Mode) {
	m.theme = ui.NewTheme(nil, mode)
	m.list.SetDelegate(itemDelegate{theme: m.theme})
	m.list.Styles.HelpStyle = m.theme.Help
	m.list.Styles.PaginationStyle = m.theme.Help
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		return m, nil

	case loadedMsg:
		if err := m.vm.FinishLoad(msg.res); err != nil {
			m.setStatus(err.Error()+"  (r to retry)", true)
		} else if m.vm.State() == viewmodel.Ready && m.statusErr {
			m.setStatus("", false)
		}
		m.refresh()
		return m, nil

	case settledMsg:
		if err := m.vm.Settle(msg.res); err != nil {
			var se *viewmodel.SyncError
			if errors.As(err, &se) {
				m.setStatus(fmt.Sprintf("could not %s task, change undone: %v", se.Op, se.Err), true)
			} else {
				m.setStatus(err.Error(), true)
			}
		}
		m.refresh()
		return m, nil

	case sessionMsg:
		if m.opts.Rebind == nil {
			return m, nil
		}
		op := m.opts.Rebind(msg.session)
		if msg.session == nil {
			m.opts.UserName = ""
		} else {
			m.opts.UserName = msg.session.User.Name()
		}
		m.refresh()
		return m, m.loadCmd(op)

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.vm.Close()
			return m, tea.Quit
		}
		switch m.mode {
		case adding, editing:
			return m.updateForm(msg)
		case confirmDelete:
			return m.updateConfirm(msg)
		}
		return m.updateBrowse(msg)
	}

	if m.mode == adding || m.mode == editing {
		return m.updateFormWidgets(msg)
	}
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// keys that need a loaded list.
var readyKeys = map[string]bool{
	" ": true, "enter": true, "a": true, "e": true, "d": true, "delete": true, "c": true, "x": true,
}

func (m Model) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if st := m.vm.State(); readyKeys[msg.String()] && st != viewmodel.Ready {
		if st == viewmodel.Failed {
			m.setStatus("tasks could not be loaded; press r to retry", true)
		} else {
			m.setStatus("tasks are still loading", false)
		}
		return m, nil
	}
	switch msg.String() {
	case "q", "esc":
		m.vm.Close()
		return m, tea.Quit

	case "1", "2", "3":
		m.filter = model.Filters[int(msg.String()[0]-'1')]
		m.list.Select(0)
		m.refresh()
		return m, nil

	case " ", "enter":
		t, ok := m.selected()
		if !ok {
			return m, nil
		}
		op := m.vm.Toggle(t.ID)
		m.refresh()
		return m, m.settle(op)

	case "a":
		return m.openForm(adding, model.Task{})

	case "e":
		t, ok := m.selected()
		if !ok {
			return m, nil
		}
		return m.openForm(editing, t)

	case "d", "delete":
		if t, ok := m.selected(); ok {
			m.deleteID = t.ID
			m.mode = confirmDelete
		}
		return m, nil

	case "c":
		ops := m.vm.ClearCompleted()
		if len(ops) == 0 {
			m.setStatus("nothing to clear", false)
			return m, nil
		}
		m.setStatus(fmt.Sprintf("cleared %d completed", len(ops)), false)
		m.refresh()
		return m, m.settle(ops...)

	case "t":
		if m.opts.Prefs == nil {
			m.setTheme(m.theme.Mode.Toggle())
			return m, nil
		}
		next, err := m.opts.Prefs.ToggleTheme()
		if err != nil {
			m.log.Error("save theme", "err", err)
			m.setStatus("theme not saved: "+err.Error(), true)
		}
		m.setTheme(next)
		return m, nil

	case "x":
		if m.opts.Exporter == nil {
			return m, nil
		}
		p, err := m.opts.Exporter.WriteFile(m.opts.ExportDir, export.JSON)
		if err != nil {
			m.setStatus("export: "+err.Error(), true)
			return m, nil
		}
		m.setStatus("exported to "+p, false)
		return m, nil

	case "r":
		m.setStatus("", false)
		return m, m.loadCmd(m.vm.BeginLoad())
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	id := m.deleteID
	m.deleteID = ""
	m.mode = browsing
	switch msg.String() {
	case "y", "Y":
		op := m.vm.Remove(id)
		m.refresh()
		return m, m.settle(op)
	}
	return m, nil
}

func (m Model) openForm(md mode, t model.Task) (tea.Model, tea.Cmd) {
	m.mode = md
	m.formErr = ""
	m.editID = t.ID
	m.priority = t.Priority
	m.onNotes = false
	m.title.SetValue(t.Title)
	m.title.CursorEnd()
	m.title.Placeholder = "Task title..."
	m.notes.SetValue(t.Notes)
	m.notes.Blur()
	m.resize()
	cmd := m.title.Focus()
	return m, cmd
}

func (m Model) closeForm() Model {
	m.mode = browsing
	m.editID = ""
	m.title.Blur()
	m.notes.Blur()
	m.title.SetValue("")
	m.notes.SetValue("")
	m.resize()
	return m
}

func (m Model) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		return m.closeForm(), nil
	case "tab", "shift+tab":
		m.onNotes = !m.onNotes
		var cmd tea.Cmd
		if m.onNotes {
			m.title.Blur()
			cmd = m.notes.Focus()
		} else {
			m.notes.Blur()
			cmd = m.title.Focus()
		}
		return m, cmd
	case "ctrl+p":
		m.priority = m.priority.Next()
		return m, nil
	case "ctrl+s":
		return m.submit()
	case "enter":
		if !m.onNotes {
			return m.submit()
		}
	}
	return m.updateFormWidgets(msg)
}

func (m Model) updateFormWidgets(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	if m.onNotes {
		m.notes, cmd = m.notes.Update(msg)
	} else {
		m.title, cmd = m.title.Update(msg)
	}
	return m, cmd
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	title, notes := m.title.Value(), m.notes.Value()
	if _, ok := model.NormalizeTitle(title); !ok {
		m.formErr = "Title cannot be empty"
		return m, nil
	}
	var op *viewmodel.Op
	if m.mode == adding {
		p := m.priority
		if p == model.PriorityNone && m.opts.SmartPrioritize {
			p = model.SuggestPriority(title)
		}
		op, _ = m.vm.Add(title, notes, p)
		if m.filter == model.FilterCompleted {
			m.filter = model.FilterAll
		}
		m.list.Select(0)
	} else {
		op = m.vm.Edit(m.editID, title, notes, m.priority)
	}
	m = m.closeForm()
	m.refresh()
	return m, m.settle(op)
}

// resize gives the list whatever the chrome leaves over.
func (m *Model) resize() {
	chrome := 8
	if m.mode == adding || m.mode == editing {
		chrome += 9
	}
	h := m.height - chrome
	if h < 3 {
		h = 3
	}
	w := m.width - 4
	if w < 20 {
		w = 20
	}
	m.list.SetSize(w, h)
	m.title.Width = w - 4
	m.notes.SetWidth(w - 2)
}

func (m Model) View() string {
	t := m.theme
	st := m.vm.Stats()

	var b strings.Builder
	b.WriteString(t.Title.Render(ui.Greeting(m.opts.Now(), m.opts.UserName)))
	b.WriteString("\n")
	b.WriteString(m.tabs())
	b.WriteString("\n")
	b.WriteString(t.Header(st) + "   " + t.Muted.Render(ui.ProgressBar(st.Completed, st.Total, 20)))
	if pl := t.PriorityLine(st); pl != "" {
		b.WriteString("\n" + t.Muted.Render("active: ") + pl)
	}
	b.WriteString("\n\n")

	switch m.vm.State() {
	case viewmodel.Uninitialized, viewmodel.Loading:
		b.WriteString(t.Muted.Render("Loading tasks..."))
	case viewmodel.Failed:
		b.WriteString(t.Error.Render("Could not load tasks.") + " " + t.Muted.Render("Press r to retry."))
	default:
		if len(m.list.Items()) == 0 {
			b.WriteString(t.Muted.Render(emptyText(m.filter)))
		} else {
			b.WriteString(m.list.View())
		}
	}

	switch m.mode {
	case adding, editing:
		b.WriteString("\n" + m.formView())
	case confirmDelete:
		if task, ok := m.vm.Find(m.deleteID); ok {
			b.WriteString("\n" + t.Error.Render("Delete ") + fmt.Sprintf("%q", task.Title) + t.Error.Render("?") + t.Muted.Render("  y/n"))
		}
	}
	if m.status != "" {
		style := t.Muted
		if m.statusErr {
			style = t.Error
		}
		b.WriteString("\n" + style.Render(m.status))
	}
	return t.Border.Render(b.String())
}

func (m Model) tabs() string {
	out := make([]string, len(model.Filters))
	for i, f := range model.Filters {
		label := fmt.Sprintf("%d %s", i+1, f.Label())
		if f == m.filter {
			out[i] = m.theme.ActiveTab.Render(label)
		} else {
			out[i] = m.theme.Tab.Render(label)
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, out...)
}

func (m Model) formView() string {
	t := m.theme
	head := "New task"
	if m.mode == editing {
		head = "Edit task"
	}
	if m.formErr != "" {
		head += "  " + t.Error.Render(m.formErr)
	}
	prio := t.Priority(m.priority)
	if prio == "" {
		prio = t.Muted.Render("none")
	}
	lines := []string{
		head,
		m.title.View(),
		m.notes.View(),
		t.Muted.Render("priority: ") + prio + t.Muted.Render("   ctrl+p cycle  tab notes  enter/ctrl+s save  esc cancel"),
	}
	return t.Border.Render(strings.Join(lines, "\n"))
}

func emptyText(f model.Filter) string {
	switch f {
	case model.FilterActive:
		return "Nothing left to do."
	case model.FilterCompleted:
		return "No completed tasks yet."
	}
	return "No tasks yet. Press a to add one."
}

// Run starts the program on the alt screen. subscribe, when set, is called
// with a function that forwards session changes into the event loop.
func Run(ctx context.Context, opts Options, subscribe func(func(*auth.Session))) error {
	p := tea.NewProgram(New(ctx, opts), tea.WithAltScreen(), tea.WithContext(ctx))
	if subscribe != nil {
		subscribe(func(s *auth.Session) { p.Send(sessionMsg{session: s}) })
	}
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
