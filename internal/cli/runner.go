// Package cli routes subcommands to the view model and prints the results.
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/Makepad-fr/donezo/internal/app"
	"github.com/Makepad-fr/donezo/internal/auth"
	"github.com/Makepad-fr/donezo/internal/tui"
	"github.com/Makepad-fr/donezo/internal/ui"
	"github.com/Makepad-fr/donezo/internal/viewmodel"
)

// Exit codes.
const (
	ExitOK    = 0
	ExitError = 1
	ExitUsage = 2
)

// Env is what a command may touch besides the app.
type Env struct {
	Out io.Writer
	Err io.Writer
	In  io.Reader
	// Interactive is true when stdout is a terminal; ls then opens the list.
	Interactive bool
	// Plain disables colors.
	Plain bool
	// RunTUI defaults to tui.Run.
	RunTUI func(ctx context.Context, opts tui.Options, subscribe func(func(*auth.Session))) error
}

type runner struct {
	ctx context.Context
	app *app.App
	env Env
	p   *ui.Printer
}

// Run dispatches subcommands and returns an exit code (0 ok, 1 error, 2 usage).
func Run(ctx context.Context, a *app.App, args []string, env Env) int {
	if env.RunTUI == nil {
		env.RunTUI = tui.Run
	}
	if env.In == nil {
		env.In = strings.NewReader("")
	}
	r := &runner{ctx: ctx, app: a, env: env, p: ui.NewPrinter(env.Out, env.Err, a.Mode(), env.Plain)}

	if len(args) == 0 {
		PrintHelp(env.Out)
		return ExitUsage
	}
	cmd, rest := args[0], args[1:]

	switch cmd {
	case "help", "-h", "--help":
		PrintHelp(env.Out)
		return ExitOK
	case "ls", "list":
		return r.list(rest)
	case "add":
		return r.add(rest)
	case "done", "toggle":
		return r.toggle(rest)
	case "edit":
		return r.edit(rest)
	case "rm":
		return r.remove(rest)
	case "clear":
		return r.clear(rest)
	case "stats":
		return r.stats(rest)
	case "export":
		return r.export(rest)
	case "import":
		return r.importFile(rest)
	case "auth":
		return r.auth(rest)
	case "theme":
		return r.theme(rest)
	}

	r.p.Fail("unknown subcommand: " + cmd)
	fmt.Fprintln(env.Err)
	PrintHelp(env.Err)
	return ExitUsage
}

// WantsTUI reports whether args would open the interactive list, so the
// caller can keep logs off the terminal.
func WantsTUI(args []string, interactive bool) bool {
	if !interactive || len(args) == 0 {
		return false
	}
	if args[0] != "ls" && args[0] != "list" {
		return false
	}
	for _, a := range args[1:] {
		if a == "--plain" || a == "-plain" || strings.HasPrefix(a, "--plain=") {
			return false
		}
	}
	return true
}

func PrintHelp(w io.Writer) {
	fmt.Fprint(w, `donezo - tasks in your terminal

Usage:
  donezo [--config file] [--backend b] [--data-dir dir] [--log-level l] <subcommand> [args]

Subcommands:
  ls [--filter all|active|completed] [--plain]
                                  Open the task list (prints it when not a terminal)
  add [--notes n] [--priority p] <title...>
                                  Add a task (priority: high|medium|low)
  done <n>                        Toggle task n
  edit <n> [--title t] [--notes n] [--priority p]
                                  Change task n
  rm [--yes] <n>                  Delete task n
  clear                           Delete every completed task
  stats                           Show counters and progress
  export [--format json|csv|pdf] [--out dir|-]
                                  Write tasks-YYYY-MM-DD.<ext>
  import <file>                   Add tasks from a JSON export
  auth signin|signup|signout|status|whoami
                                  Manage the hosted session
  theme [light|dark|toggle]       Show or change the color theme

Indexes are 1-based over the full list, as printed by ` + "`donezo ls`" + `.

Examples:
  donezo add --priority high "Renew passport"
  donezo ls --filter active --plain
  donezo done 2
  donezo export --format csv
`)
}

// newFlags returns a subcommand flag set that reports to the error stream.
func (r *runner) newFlags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(r.env.Err)
	return fs
}

// parse allows flags before and after positional arguments.
func parse(fs *flag.FlagSet, args []string) ([]string, error) {
	var pos []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		rest := fs.Args()
		if len(rest) == 0 {
			return pos, nil
		}
		if i := len(args) - len(rest) - 1; i >= 0 && args[i] == "--" {
			return append(pos, rest...), nil
		}
		pos = append(pos, rest[0])
		args = rest[1:]
	}
}

// load fetches the list before a command looks at it.
func (r *runner) load() bool {
	if err := r.app.Load(r.ctx); err != nil {
		r.p.Fail(err.Error())
		return false
	}
	return true
}

// index resolves a 1-based argument over the full list to a task id.
func (r *runner) index(cmd, arg string) (string, int) {
	n, err := strconv.Atoi(arg)
	if err != nil {
		r.p.Fail(cmd + ": not a number: " + arg)
		return "", ExitUsage
	}
	tasks := r.app.VM.Tasks()
	if n < 1 || n > len(tasks) {
		r.p.Fail(fmt.Sprintf("index out of range: have %d, got %d", len(tasks), n))
		r.p.Hint("Hint: run `donezo ls` to see valid indexes")
		return "", ExitUsage
	}
	return tasks[n-1].ID, ExitOK
}

// commit runs every op in order and reports each failure.
func (r *runner) commit(ops ...*viewmodel.Op) int {
	failed := 0
	for _, op := range ops {
		err := r.app.VM.Commit(r.ctx, op)
		if err == nil {
			continue
		}
		failed++
		var se *viewmodel.SyncError
		if errors.As(err, &se) {
			r.p.Fail(fmt.Sprintf("could not %s task, change undone: %v", se.Op, se.Err))
		} else {
			r.p.Fail(err.Error())
		}
	}
	if failed > 0 {
		if len(ops) > 1 {
			r.p.Fail(fmt.Sprintf("%d of %d changes failed", failed, len(ops)))
		}
		return ExitError
	}
	if err := r.app.VM.PersistErr(); err != nil {
		r.p.Fail("save: " + err.Error())
		return ExitError
	}
	return ExitOK
}
