package cli

import (
	"bufio"
	"flag"
	"fmt"
	"strings"

	"github.com/Makepad-fr/donezo/internal/model"
	"github.com/Makepad-fr/donezo/internal/tui"
	"github.com/Makepad-fr/donezo/internal/ui"
)

func (r *runner) list(args []string) int {
	fs := r.newFlags("ls")
	filterName := fs.String("filter", "all", "all|active|completed")
	plain := fs.Bool("plain", false, "print the list instead of opening it")
	if _, err := parse(fs, args); err != nil {
		return ExitUsage
	}
	filter, err := model.ParseFilter(*filterName)
	if err != nil {
		r.p.Fail(err.Error())
		return ExitUsage
	}

	if r.env.Interactive && !*plain {
		a := r.app
		err := r.env.RunTUI(r.ctx, tui.Options{
			VM:              a.VM,
			Exporter:        a.Exporter,
			Prefs:           a.Prefs,
			Rebind:          a.Rebind,
			UserName:        a.UserName(),
			ExportDir:       ".",
			SmartPrioritize: a.Config.Features.SmartPrioritize,
			Logger:          a.Log.WithPrefix("tui"),
		}, a.SetSessionHandler)
		if err != nil {
			r.p.Fail(err.Error())
			return ExitError
		}
		return ExitOK
	}

	if !r.load() {
		return ExitError
	}
	r.p.Panel(r.panel(filter))
	return ExitOK
}

// panel renders the counters and the rows matching f, numbered by their
// position in the full list.
func (r *runner) panel(f model.Filter) []string {
	t := r.p.Theme
	st := r.app.VM.Stats()
	lines := []string{
		t.Header(st),
		t.Muted.Render(ui.ProgressBar(st.Completed, st.Total, 28)),
		"",
	}
	shown := 0
	for i, task := range r.app.VM.Tasks() {
		if !f.Match(task) {
			continue
		}
		shown++
		title := task.Title
		if len([]rune(title)) > 80 {
			title = string([]rune(title)[:77]) + "..."
		}
		if task.IsCompleted {
			title = t.Done.Render(title)
		}
		parts := []string{t.Muted.Render(fmt.Sprintf("%2d.", i+1)), t.Box(task.IsCompleted), title}
		if tag := t.Priority(task.Priority); tag != "" {
			parts = append(parts, tag)
		}
		lines = append(lines, strings.Join(parts, " "))
		if task.Notes != "" {
			for _, n := range strings.Split(task.Notes, "\n") {
				lines = append(lines, "      "+t.Muted.Render(n))
			}
		}
	}
	if shown == 0 {
		lines = append(lines, t.Muted.Render("no tasks"))
	}
	lines = append(lines, "", t.Muted.Render("Tip: add with `donezo add \"Buy milk\"`"))
	return lines
}

func (r *runner) add(args []string) int {
	fs := r.newFlags("add")
	notes := fs.String("notes", "", "optional notes")
	prio := fs.String("priority", "", "high|medium|low")
	pos, err := parse(fs, args)
	if err != nil {
		return ExitUsage
	}
	if len(pos) == 0 {
		r.p.Fail("usage: donezo add [--notes n] [--priority p] <title...>")
		return ExitUsage
	}
	p, err := model.ParsePriority(*prio)
	if err != nil {
		r.p.Fail(err.Error())
		return ExitUsage
	}
	title := strings.Join(pos, " ")
	if p == model.PriorityNone && r.app.Config.Features.SmartPrioritize {
		p = model.SuggestPriority(title)
	}
	if !r.load() {
		return ExitError
	}
	op, ok := r.app.VM.Add(title, *notes, p)
	if !ok {
		r.p.Fail("add: empty title")
		return ExitUsage
	}
	if code := r.commit(op); code != ExitOK {
		return code
	}
	r.p.OK("added")
	return ExitOK
}

func (r *runner) toggle(args []string) int {
	if len(args) != 1 {
		r.p.Fail("usage: donezo done <index>")
		return ExitUsage
	}
	if !r.load() {
		return ExitError
	}
	id, code := r.index("done", args[0])
	if code != ExitOK {
		return code
	}
	op := r.app.VM.Toggle(id)
	if code := r.commit(op); code != ExitOK {
		return code
	}
	if op.Task.IsCompleted {
		r.p.OK("completed")
	} else {
		r.p.OK("reopened")
	}
	return ExitOK
}

func (r *runner) edit(args []string) int {
	fs := r.newFlags("edit")
	title := fs.String("title", "", "new title")
	notes := fs.String("notes", "", "new notes")
	prio := fs.String("priority", "", "high|medium|low|none")
	pos, err := parse(fs, args)
	if err != nil {
		return ExitUsage
	}
	if len(pos) != 1 {
		r.p.Fail("usage: donezo edit <index> [--title t] [--notes n] [--priority p]")
		return ExitUsage
	}
	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	if len(set) == 0 {
		r.p.Fail("edit: nothing to change")
		return ExitUsage
	}
	if !r.load() {
		return ExitError
	}
	id, code := r.index("edit", pos[0])
	if code != ExitOK {
		return code
	}

	cur, _ := r.app.VM.Find(id)
	next := cur
	if set["title"] {
		next.Title = *title
	}
	if set["notes"] {
		next.Notes = *notes
	}
	if set["priority"] {
		p, err := model.ParsePriority(*prio)
		if err != nil {
			r.p.Fail(err.Error())
			return ExitUsage
		}
		next.Priority = p
	}
	if _, ok := model.NormalizeTitle(next.Title); !ok {
		r.p.Fail("edit: empty title")
		return ExitUsage
	}
	op := r.app.VM.Edit(id, next.Title, next.Notes, next.Priority)
	if op == nil {
		r.p.OK("unchanged")
		return ExitOK
	}
	if code := r.commit(op); code != ExitOK {
		return code
	}
	r.p.OK("updated")
	return ExitOK
}

func (r *runner) remove(args []string) int {
	fs := r.newFlags("rm")
	yes := fs.Bool("yes", false, "do not ask for confirmation")
	pos, err := parse(fs, args)
	if err != nil {
		return ExitUsage
	}
	if len(pos) != 1 {
		r.p.Fail("usage: donezo rm [--yes] <index>")
		return ExitUsage
	}
	if !r.load() {
		return ExitError
	}
	id, code := r.index("rm", pos[0])
	if code != ExitOK {
		return code
	}
	if !*yes {
		task, _ := r.app.VM.Find(id)
		if !r.confirm(fmt.Sprintf("Delete %q? [y/N] ", task.Title)) {
			r.p.Hint("kept")
			return ExitOK
		}
	}
	if code := r.commit(r.app.VM.Remove(id)); code != ExitOK {
		return code
	}
	r.p.OK("removed")
	return ExitOK
}

// confirm asks on the output stream and reads one answer line.
func (r *runner) confirm(prompt string) bool {
	fmt.Fprint(r.env.Out, prompt)
	line, _ := bufio.NewReader(r.env.In).ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

func (r *runner) clear(args []string) int {
	if len(args) != 0 {
		r.p.Fail("usage: donezo clear")
		return ExitUsage
	}
	if !r.load() {
		return ExitError
	}
	ops := r.app.VM.ClearCompleted()
	if len(ops) == 0 {
		r.p.Hint("nothing to clear")
		return ExitOK
	}
	if code := r.commit(ops...); code != ExitOK {
		return code
	}
	r.p.OK(fmt.Sprintf("cleared %d completed", len(ops)))
	return ExitOK
}

func (r *runner) stats(args []string) int {
	if len(args) != 0 {
		r.p.Fail("usage: donezo stats")
		return ExitUsage
	}
	if !r.load() {
		return ExitError
	}
	t := r.p.Theme
	st := r.app.VM.Stats()
	lines := []string{
		t.Header(st),
		t.Muted.Render(ui.ProgressBar(st.Completed, st.Total, 28)),
	}
	if pl := t.PriorityLine(st); pl != "" {
		lines = append(lines, "active: "+pl)
	}
	r.p.Panel(lines)
	return ExitOK
}
