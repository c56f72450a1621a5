package cli

import (
	"fmt"
	"os"

	"github.com/Makepad-fr/donezo/internal/export"
)

func (r *runner) export(args []string) int {
	fs := r.newFlags("export")
	format := fs.String("format", "json", "json|csv|pdf")
	out := fs.String("out", ".", "target directory, or - for stdout")
	if _, err := parse(fs, args); err != nil {
		return ExitUsage
	}
	f, err := export.ParseFormat(*format)
	if err != nil {
		r.p.Fail(err.Error())
		return ExitUsage
	}
	if !r.load() {
		return ExitError
	}

	if *out == "-" {
		b, err := r.app.Exporter.Export(f)
		if err != nil {
			r.p.Fail("export: " + err.Error())
			return ExitError
		}
		if _, err := r.env.Out.Write(b); err != nil {
			r.p.Fail("export: " + err.Error())
			return ExitError
		}
		return ExitOK
	}
	p, err := r.app.Exporter.WriteFile(*out, f)
	if err != nil {
		r.p.Fail("export: " + err.Error())
		return ExitError
	}
	r.p.OK(fmt.Sprintf("exported %d tasks to %s", r.app.VM.Len(), p))
	return ExitOK
}

func (r *runner) importFile(args []string) int {
	if len(args) != 1 {
		r.p.Fail("usage: donezo import <file>")
		return ExitUsage
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		r.p.Fail("import: " + err.Error())
		return ExitError
	}
	if !r.load() {
		return ExitError
	}
	ops, err := r.app.VM.Import(data)
	if err != nil {
		r.p.Fail("import: " + err.Error())
		return ExitError
	}
	if code := r.commit(ops...); code != ExitOK {
		return code
	}
	r.p.OK(fmt.Sprintf("imported %d tasks", len(ops)))
	return ExitOK
}
