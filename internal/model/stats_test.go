package model

import "testing"

func TestPercent(t *testing.T) {
	tests := []struct {
		part, total, want int
	}{
		{0, 0, 0},
		{1, 2, 50},
		{1, 3, 33},
		{2, 3, 67},
		{1, 8, 13},
		{3, 8, 38},
		{1, 1, 100},
		{0, 5, 0},
	}
	for _, tt := range tests {
		if got := Percent(tt.part, tt.total); got != tt.want {
			t.Errorf("Percent(%d, %d) = %d, want %d", tt.part, tt.total, got, tt.want)
		}
	}
}

func TestSummarize(t *testing.T) {
	tasks := []Task{
		{ID: "1", Priority: PriorityHigh},
		{ID: "2", Priority: PriorityHigh, IsCompleted: true},
		{ID: "3", Priority: PriorityLow},
		{ID: "4"},
	}
	s := Summarize(tasks)
	if s.Total != 4 || s.Active != 3 || s.Completed != 1 || s.Percent != 25 {
		t.Fatalf("Summarize = %+v", s)
	}
	if s.ByPriority[PriorityHigh] != 1 || s.ByPriority[PriorityLow] != 1 || s.ByPriority[PriorityNone] != 1 {
		t.Errorf("ByPriority = %v", s.ByPriority)
	}
}

func TestFilterMatch(t *testing.T) {
	open, done := Task{}, Task{IsCompleted: true}
	if !FilterAll.Match(open) || !FilterAll.Match(done) {
		t.Error("all should match everything")
	}
	if !FilterActive.Match(open) || FilterActive.Match(done) {
		t.Error("active mismatch")
	}
	if FilterCompleted.Match(open) || !FilterCompleted.Match(done) {
		t.Error("completed mismatch")
	}
	if f, err := ParseFilter("Done"); err != nil || f != FilterCompleted {
		t.Errorf("ParseFilter(Done) = %q, %v", f, err)
	}
}

func TestSuggestPriority(t *testing.T) {
	tests := map[string]Priority{
		"URGENT: renew passport": PriorityHigh,
		"Schedule dentist":       PriorityMedium,
		"Buy groceries":          PriorityLow,
	}
	for title, want := range tests {
		if got := SuggestPriority(title); got != want {
			t.Errorf("SuggestPriority(%q) = %q, want %q", title, got, want)
		}
	}
}
