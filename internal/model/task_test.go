package model

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParsePriority(t *testing.T) {
	tests := []struct {
		in      string
		want    Priority
		wantErr bool
	}{
		{"", PriorityNone, false},
		{"none", PriorityNone, false},
		{"High", PriorityHigh, false},
		{"h", PriorityHigh, false},
		{"MEDIUM", PriorityMedium, false},
		{"med", PriorityMedium, false},
		{" low ", PriorityLow, false},
		{"urgent", PriorityNone, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePriority(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParsePriority(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParsePriority(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestPriorityNextCycles(t *testing.T) {
	p := PriorityNone
	seen := []Priority{}
	for i := 0; i < 4; i++ {
		p = p.Next()
		seen = append(seen, p)
	}
	want := []Priority{PriorityHigh, PriorityMedium, PriorityLow, PriorityNone}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("step %d: got %q, want %q", i, seen[i], want[i])
		}
	}
}

func TestTaskJSON(t *testing.T) {
	created := time.Date(2025, 9, 1, 10, 30, 0, 123000, time.UTC)
	task := Task{ID: "a1", Title: "Buy milk", CreatedAt: created}

	b, err := json.Marshal(task)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"id":"a1","title":"Buy milk","priority":null,"isCompleted":false,"createdAt":"2025-09-01T10:30:00.000123Z"}`
	if string(b) != want {
		t.Fatalf("marshal:\n got %s\nwant %s", b, want)
	}

	var back Task
	if err := json.Unmarshal([]byte(`{"id":"a1","title":"Buy milk","notes":null,"priority":"Low","isCompleted":true,"createdAt":"2025-09-01T10:30:00Z"}`), &back); err != nil {
		t.Fatal(err)
	}
	if back.Notes != "" || back.Priority != PriorityLow || !back.IsCompleted {
		t.Errorf("unmarshal: got %+v", back)
	}
}

func TestNormalizeTitle(t *testing.T) {
	if got, ok := NormalizeTitle("  Buy milk \n"); !ok || got != "Buy milk" {
		t.Errorf("NormalizeTitle = %q, %v", got, ok)
	}
	for _, blank := range []string{"", "   ", "\t\n"} {
		if _, ok := NormalizeTitle(blank); ok {
			t.Errorf("NormalizeTitle(%q) accepted a blank title", blank)
		}
	}
}

func TestPatchApplyKeepsIdentity(t *testing.T) {
	created := time.Now()
	orig := Task{ID: "x", Title: "old", CreatedAt: created}
	title, done := "new", true
	got := Patch{Title: &title, IsCompleted: &done}.Apply(orig)
	if got.ID != "x" || !got.CreatedAt.Equal(created) {
		t.Fatalf("identity changed: %+v", got)
	}
	if got.Title != "new" || !got.IsCompleted {
		t.Errorf("patch not applied: %+v", got)
	}
	if !(Patch{}).IsEmpty() {
		t.Error("zero patch should be empty")
	}
}
