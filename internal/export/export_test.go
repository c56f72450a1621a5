package export

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Makepad-fr/donezo/internal/model"
)

type fakeSource struct{ tasks []model.Task }

func (f fakeSource) Export() ([]byte, error) { return []byte("{}\n"), nil }
func (f fakeSource) Tasks() []model.Task     { return f.tasks }
func (f fakeSource) Stats() model.Stats      { return model.Summarize(f.tasks) }

var at = time.Date(2025, 9, 1, 23, 30, 0, 0, time.UTC)

func sample() fakeSource {
	return fakeSource{tasks: []model.Task{
		{ID: "b", Title: "Write, report", Notes: "line \"quoted\"", Priority: model.PriorityHigh, CreatedAt: at},
		{ID: "a", Title: "Café ☕", IsCompleted: true, CreatedAt: at.Add(-time.Hour)},
	}}
}

func TestFileName(t *testing.T) {
	tests := []struct {
		f    Format
		want string
	}{
		{JSON, "tasks-2025-09-01.json"},
		{CSV, "tasks-2025-09-01.csv"},
		{PDF, "tasks-2025-09-01.pdf"},
	}
	for _, tt := range tests {
		if got := FileName(at, tt.f); got != tt.want {
			t.Errorf("FileName(%s) = %q, want %q", tt.f, got, tt.want)
		}
	}
	// the date is taken in UTC
	east := time.FixedZone("east", 3*3600)
	if got := FileName(at.In(east), JSON); got != "tasks-2025-09-01.json" {
		t.Errorf("FileName in +03:00 = %q", got)
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": JSON, "JSON": JSON, " csv": CSV, "pdf": PDF} {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseFormat("xlsx"); err == nil {
		t.Error("xlsx accepted")
	}
}

func TestCSV(t *testing.T) {
	b, err := NewExporter(sample(), nil).Export(CSV)
	if err != nil {
		t.Fatal(err)
	}
	recs, err := csv.NewReader(bytes.NewReader(b)).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 3 {
		t.Fatalf("records = %d", len(recs))
	}
	want := []string{"b", "Write, report", "line \"quoted\"", "High", "false", "2025-09-01T23:30:00Z"}
	for i := range want {
		if recs[1][i] != want[i] {
			t.Errorf("row 1 col %d = %q, want %q", i, recs[1][i], want[i])
		}
	}
	if recs[2][3] != "" || recs[2][4] != "true" {
		t.Errorf("row 2 = %v", recs[2])
	}
}

func TestPDF(t *testing.T) {
	for _, src := range []fakeSource{sample(), {}} {
		b, err := NewExporter(src, func() time.Time { return at }).Export(PDF)
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.HasPrefix(b, []byte("%PDF-")) {
			t.Errorf("not a pdf: %q", b[:min(len(b), 16)])
		}
	}
}

func TestWriteFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	p, err := NewExporter(sample(), func() time.Time { return at }).WriteFile(dir, JSON)
	if err != nil {
		t.Fatal(err)
	}
	if p != filepath.Join(dir, "tasks-2025-09-01.json") {
		t.Errorf("path = %q", p)
	}
	if b, _ := os.ReadFile(p); string(b) != "{}\n" {
		t.Errorf("content = %q", b)
	}
}
