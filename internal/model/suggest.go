package model

import "strings"

var priorityKeywords = []struct {
	p     Priority
	words []string
}{
	{PriorityHigh, []string{"urgent", "important", "deadline", "asap", "critical", "emergency"}},
	{PriorityMedium, []string{"meeting", "call", "review", "plan", "schedule"}},
}

// SuggestPriority guesses a priority from keywords in the title.
// Anything without a high or medium keyword is Low.
func SuggestPriority(title string) Priority {
	t := strings.ToLower(title)
	for _, kw := range priorityKeywords {
		for _, w := range kw.words {
			if strings.Contains(t, w) {
				return kw.p
			}
		}
	}
	return PriorityLow
}
