package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Makepad-fr/donezo/internal/app"
	"github.com/Makepad-fr/donezo/internal/auth"
	"github.com/Makepad-fr/donezo/internal/config"
	"github.com/Makepad-fr/donezo/internal/model"
	"github.com/Makepad-fr/donezo/internal/store/jsonstore"
	"github.com/Makepad-fr/donezo/internal/tui"
)

type result struct {
	code     int
	out, err string
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.DataDir = t.TempDir()
	cfg.SeedSamples = false
	return cfg
}

// invoke opens a fresh app per call, like separate processes would.
func invoke(t *testing.T, cfg *config.Config, env Env, args ...string) result {
	t.Helper()
	a, err := app.Open(context.Background(), cfg, nil, app.Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()
	var out, errb bytes.Buffer
	env.Out, env.Err = &out, &errb
	env.Plain = true
	code := Run(context.Background(), a, args, env)
	return result{code: code, out: out.String(), err: errb.String()}
}

func run(t *testing.T, cfg *config.Config, args ...string) result {
	t.Helper()
	return invoke(t, cfg, Env{}, args...)
}

func slotTasks(t *testing.T, cfg *config.Config) []model.Task {
	t.Helper()
	tasks, err := jsonstore.Tasks(cfg.DataDir).Load()
	if err != nil {
		t.Fatal(err)
	}
	return tasks
}

func TestAddListDoneRemove(t *testing.T) {
	cfg := testConfig(t)

	if r := run(t, cfg, "add", "--priority", "high", "Buy", "milk", "--notes", "2 litres"); r.code != ExitOK {
		t.Fatalf("add: %+v", r)
	}
	if r := run(t, cfg, "add", "Call mom"); r.code != ExitOK {
		t.Fatalf("add: %+v", r)
	}
	tasks := slotTasks(t, cfg)
	if len(tasks) != 2 || tasks[1].Title != "Buy milk" || tasks[1].Priority != model.PriorityHigh || tasks[1].Notes != "2 litres" {
		t.Fatalf("slot = %+v", tasks)
	}

	r := run(t, cfg, "ls")
	if r.code != ExitOK {
		t.Fatalf("ls: %+v", r)
	}
	for _, want := range []string{" 1. [ ] Call mom", " 2. [ ] Buy milk High", "2 litres", "Total 2"} {
		if !strings.Contains(r.out, want) {
			t.Errorf("ls output missing %q:\n%s", want, r.out)
		}
	}

	if r := run(t, cfg, "done", "2"); r.code != ExitOK || !strings.Contains(r.out, "completed") {
		t.Fatalf("done: %+v", r)
	}
	r = run(t, cfg, "ls", "--filter", "completed")
	if !strings.Contains(r.out, " 2. [x] Buy milk") || strings.Contains(r.out, "Call mom") {
		t.Errorf("completed view:\n%s", r.out)
	}

	if r := run(t, cfg, "rm", "--yes", "1"); r.code != ExitOK {
		t.Fatalf("rm: %+v", r)
	}
	if tasks := slotTasks(t, cfg); len(tasks) != 1 || tasks[0].Title != "Buy milk" {
		t.Errorf("after rm = %+v", tasks)
	}
}

func TestUsageErrors(t *testing.T) {
	cfg := testConfig(t)
	run(t, cfg, "add", "one")

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"no args", nil, "Usage:"},
		{"unknown", []string{"frobnicate"}, "unknown subcommand"},
		{"empty title", []string{"add", "   "}, "empty title"},
		{"bad priority", []string{"add", "--priority", "urgent", "x"}, "unknown priority"},
		{"not a number", []string{"done", "two"}, "not a number"},
		{"out of range", []string{"done", "5"}, "index out of range: have 1, got 5"},
		{"zero index", []string{"rm", "--yes", "0"}, "index out of range"},
		{"bad filter", []string{"ls", "--filter", "later"}, "unknown filter"},
		{"edit nothing", []string{"edit", "1"}, "nothing to change"},
		{"edit blank title", []string{"edit", "1", "--title", " "}, "empty title"},
		{"bad format", []string{"export", "--format", "xml"}, "unknown format"},
		{"bad theme", []string{"theme", "blue"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := run(t, cfg, tt.args...)
			if r.code != ExitUsage {
				t.Fatalf("code = %d, want %d (%+v)", r.code, ExitUsage, r)
			}
			if !strings.Contains(r.out+r.err, tt.want) {
				t.Errorf("output %q missing %q", r.out+r.err, tt.want)
			}
		})
	}
	if tasks := slotTasks(t, cfg); len(tasks) != 1 || tasks[0].Title != "one" {
		t.Errorf("usage errors changed the list: %+v", tasks)
	}
}

func TestEditFields(t *testing.T) {
	cfg := testConfig(t)
	run(t, cfg, "add", "--notes", "keep me", "draft")

	if r := run(t, cfg, "edit", "1", "--title", "final", "--priority", "low"); r.code != ExitOK {
		t.Fatalf("edit: %+v", r)
	}
	got := slotTasks(t, cfg)[0]
	if got.Title != "final" || got.Notes != "keep me" || got.Priority != model.PriorityLow {
		t.Errorf("after edit = %+v", got)
	}

	if r := run(t, cfg, "edit", "--notes", "", "1"); r.code != ExitOK {
		t.Fatalf("clear notes: %+v", r)
	}
	if got := slotTasks(t, cfg)[0]; got.Notes != "" {
		t.Errorf("notes = %q", got.Notes)
	}
	if r := run(t, cfg, "edit", "1", "--title", "final"); !strings.Contains(r.out, "unchanged") {
		t.Errorf("no-op edit: %+v", r)
	}
}

func TestRemoveAsks(t *testing.T) {
	cfg := testConfig(t)
	run(t, cfg, "add", "precious")

	r := invoke(t, cfg, Env{In: strings.NewReader("n\n")}, "rm", "1")
	if r.code != ExitOK || !strings.Contains(r.out, `Delete "precious"? [y/N]`) {
		t.Fatalf("rm: %+v", r)
	}
	if len(slotTasks(t, cfg)) != 1 {
		t.Fatal("answer n deleted the task")
	}
	r = invoke(t, cfg, Env{In: strings.NewReader("y\n")}, "rm", "1")
	if r.code != ExitOK || len(slotTasks(t, cfg)) != 0 {
		t.Fatalf("answer y: %+v", r)
	}
}

func TestClearAndStats(t *testing.T) {
	cfg := testConfig(t)
	run(t, cfg, "add", "--priority", "medium", "a")
	run(t, cfg, "add", "b")
	run(t, cfg, "add", "c")
	run(t, cfg, "done", "1")

	r := run(t, cfg, "stats")
	for _, want := range []string{"ok: 1", "Total 3", " 33%", "Medium 1"} {
		if !strings.Contains(r.out, want) {
			t.Errorf("stats missing %q:\n%s", want, r.out)
		}
	}

	if r := run(t, cfg, "clear"); r.code != ExitOK || !strings.Contains(r.out, "cleared 1 completed") {
		t.Fatalf("clear: %+v", r)
	}
	if r := run(t, cfg, "clear"); r.code != ExitOK || !strings.Contains(r.err, "nothing to clear") {
		t.Errorf("second clear: %+v", r)
	}
	if n := len(slotTasks(t, cfg)); n != 2 {
		t.Errorf("left %d tasks", n)
	}
}

func TestExportImport(t *testing.T) {
	src := testConfig(t)
	run(t, src, "add", "--notes", "n", "one")
	run(t, src, "add", "two")
	run(t, src, "done", "1")

	out := t.TempDir()
	r := run(t, src, "export", "--out", out)
	if r.code != ExitOK || !strings.Contains(r.out, "exported 2 tasks") {
		t.Fatalf("export: %+v", r)
	}
	files, _ := filepath.Glob(filepath.Join(out, "tasks-*.json"))
	if len(files) != 1 {
		t.Fatalf("export files = %v", files)
	}

	if r := run(t, src, "export", "--format", "csv", "--out", "-"); !strings.HasPrefix(r.out, "id,title,notes,priority,completed,created_at\n") {
		t.Errorf("csv to stdout:\n%s", r.out)
	}

	dst := testConfig(t)
	run(t, dst, "add", "already here")
	r = run(t, dst, "import", files[0])
	if r.code != ExitOK || !strings.Contains(r.out, "imported 2 tasks") {
		t.Fatalf("import: %+v", r)
	}
	tasks := slotTasks(t, dst)
	if len(tasks) != 3 || tasks[0].Title != "already here" || tasks[1].Title != "two" || !tasks[1].IsCompleted {
		t.Errorf("after import = %+v", tasks)
	}
	// the same file again adds nothing
	if r := run(t, dst, "import", files[0]); !strings.Contains(r.out, "imported 0 tasks") {
		t.Errorf("reimport: %+v", r)
	}

	bad := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(bad, []byte(`{"version":1,"tasks":[{"title":"x"}]}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if r := run(t, dst, "import", bad); r.code != ExitError {
		t.Errorf("bad import: %+v", r)
	}
}

func TestTheme(t *testing.T) {
	cfg := testConfig(t)
	if r := run(t, cfg, "theme"); strings.TrimSpace(r.out) != "light" {
		t.Fatalf("default theme = %q", r.out)
	}
	run(t, cfg, "theme", "toggle")
	if r := run(t, cfg, "theme"); strings.TrimSpace(r.out) != "dark" {
		t.Errorf("after toggle = %q", r.out)
	}
	run(t, cfg, "theme", "light")
	if r := run(t, cfg, "theme"); strings.TrimSpace(r.out) != "light" {
		t.Errorf("after set = %q", r.out)
	}
}

func TestAuthNeedsHostedBackend(t *testing.T) {
	cfg := testConfig(t)
	r := run(t, cfg, "auth", "status")
	if r.code != ExitError || !strings.Contains(r.err, "no accounts") {
		t.Errorf("auth on local: %+v", r)
	}
}

func TestInteractiveListOpensTUI(t *testing.T) {
	cfg := testConfig(t)
	cfg.Features.SmartPrioritize = true
	var got tui.Options
	called := false
	env := Env{
		Interactive: true,
		RunTUI: func(ctx context.Context, opts tui.Options, subscribe func(func(*auth.Session))) error {
			called, got = true, opts
			return nil
		},
	}
	if r := invoke(t, cfg, env, "ls"); r.code != ExitOK || !called {
		t.Fatalf("ls: %+v called=%v", r, called)
	}
	if got.VM == nil || got.Rebind == nil || !got.SmartPrioritize {
		t.Errorf("options = %+v", got)
	}

	called = false
	if r := invoke(t, cfg, env, "ls", "--plain"); r.code != ExitOK || called {
		t.Errorf("ls --plain opened the list")
	}
}

func TestWantsTUI(t *testing.T) {
	tests := []struct {
		args        []string
		interactive bool
		want        bool
	}{
		{[]string{"ls"}, true, true},
		{[]string{"ls", "--filter", "active"}, true, true},
		{[]string{"ls", "--plain"}, true, false},
		{[]string{"ls"}, false, false},
		{[]string{"add", "x"}, true, false},
		{nil, true, false},
	}
	for _, tt := range tests {
		if got := WantsTUI(tt.args, tt.interactive); got != tt.want {
			t.Errorf("WantsTUI(%v, %v) = %v", tt.args, tt.interactive, got)
		}
	}
}

func TestSmartPrioritizeOnAdd(t *testing.T) {
	cfg := testConfig(t)
	cfg.Features.SmartPrioritize = true
	run(t, cfg, "add", "review the deadline plan")
	run(t, cfg, "add", "--priority", "low", "urgent thing")
	tasks := slotTasks(t, cfg)
	if tasks[1].Priority != model.PriorityHigh || tasks[0].Priority != model.PriorityLow {
		t.Errorf("priorities = %q, %q", tasks[1].Priority, tasks[0].Priority)
	}
}
