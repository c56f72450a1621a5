// Package export writes the task list to files: a JSON snapshot that can be
// imported again, and CSV / PDF reports that cannot.
package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/Makepad-fr/donezo/internal/model"
)

type Format string

const (
	JSON Format = "json"
	CSV  Format = "csv"
	PDF  Format = "pdf"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case JSON, CSV, PDF:
		return f, nil
	case "":
		return JSON, nil
	}
	return "", fmt.Errorf("unknown format %q (want json|csv|pdf)", s)
}

// FileName is tasks-YYYY-MM-DD.<ext>, dated in UTC.
func FileName(now time.Time, f Format) string {
	return "tasks-" + now.UTC().Format("2006-01-02") + "." + string(f)
}

// Source is what an export reads. *viewmodel.ViewModel satisfies it.
type Source interface {
	Export() ([]byte, error)
	Tasks() []model.Task
	Stats() model.Stats
}

type Exporter struct {
	src Source
	now func() time.Time
}

func NewExporter(src Source, now func() time.Time) *Exporter {
	if now == nil {
		now = time.Now
	}
	return &Exporter{src: src, now: now}
}

func (e *Exporter) Export(f Format) ([]byte, error) {
	switch f {
	case JSON:
		return e.src.Export()
	case CSV:
		return writeCSV(e.src.Tasks())
	case PDF:
		return writePDF(e.src.Tasks(), e.src.Stats(), e.now())
	}
	return nil, fmt.Errorf("unknown format %s", f)
}

// WriteFile exports into dir under FileName and returns the path.
func (e *Exporter) WriteFile(dir string, f Format) (string, error) {
	b, err := e.Export(f)
	if err != nil {
		return "", err
	}
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir: %w", err)
	}
	p := filepath.Join(dir, FileName(e.now(), f))
	if err := os.WriteFile(p, b, 0o644); err != nil {
		return "", fmt.Errorf("write export: %w", err)
	}
	return p, nil
}

var csvHeader = []string{"id", "title", "notes", "priority", "completed", "created_at"}

func writeCSV(tasks []model.Task) ([]byte, error) {
	var b bytes.Buffer
	w := csv.NewWriter(&b)
	_ = w.Write(csvHeader)
	for _, t := range tasks {
		prio := ""
		if t.Priority != model.PriorityNone {
			prio = string(t.Priority)
		}
		_ = w.Write([]string{
			t.ID, t.Title, t.Notes, prio,
			strconv.FormatBool(t.IsCompleted),
			t.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("csv: %w", err)
	}
	return b.Bytes(), nil
}

func writePDF(tasks []model.Task, st model.Stats, now time.Time) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle("Donezo tasks", true)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(0, 10, "Donezo tasks")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("%s  -  %d total, %d active, %d completed (%d%%)",
		now.UTC().Format("2006-01-02"), st.Total, st.Active, st.Completed, st.Percent))
	pdf.Ln(10)

	if len(tasks) == 0 {
		pdf.SetFont("Arial", "I", 10)
		pdf.Cell(0, 6, "No tasks.")
	}
	for _, t := range tasks {
		box := "[ ]"
		if t.IsCompleted {
			box = "[x]"
		}
		line := box + " " + t.Title
		if t.Priority != model.PriorityNone {
			line += "  (" + string(t.Priority) + ")"
		}
		pdf.SetFont("Arial", "", 11)
		if t.IsCompleted {
			pdf.SetTextColor(120, 120, 120)
		} else {
			pdf.SetTextColor(0, 0, 0)
		}
		pdf.MultiCell(0, 6, tr(line), "0", "L", false)
		if t.Notes != "" {
			pdf.SetFont("Arial", "I", 9)
			pdf.SetX(pdf.GetX() + 8)
			pdf.MultiCell(0, 5, tr(t.Notes), "0", "L", false)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("pdf: %w", err)
	}
	return buf.Bytes(), nil
}
