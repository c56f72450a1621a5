package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Printer writes styled one-liners and panels to the CLI streams.
type Printer struct {
	Out   io.Writer
	Err   io.Writer
	Theme Theme
}

// NewPrinter picks a colored theme when out is a terminal and plain is
// false, the plain theme otherwise.
func NewPrinter(out, errw io.Writer, mode Mode, plain bool) *Printer {
	p := &Printer{Out: out, Err: errw}
	if plain || !isTTY(out) {
		p.Theme = PlainTheme(mode)
	} else {
		p.Theme = NewTheme(lipgloss.NewRenderer(out), mode)
	}
	return p
}

func isTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}

func (p *Printer) OK(msg string) {
	fmt.Fprintln(p.Out, p.Theme.Success.Render(p.Theme.SymOK+" "+msg))
}

func (p *Printer) Fail(msg string) {
	fmt.Fprintln(p.Err, p.Theme.Error.Render(p.Theme.SymFail+" "+msg))
}

// Hint is a muted follow-up line on the error stream.
func (p *Printer) Hint(msg string) {
	fmt.Fprintln(p.Err, p.Theme.Muted.Render(msg))
}

func (p *Printer) Println(a ...any) { fmt.Fprintln(p.Out, a...) }

func (p *Printer) Printf(format string, a ...any) { fmt.Fprintf(p.Out, format, a...) }

// Panel draws a framed box around lines.
func (p *Printer) Panel(lines []string) {
	fmt.Fprintln(p.Out, p.Theme.Border.Render(strings.Join(lines, "\n")))
}
