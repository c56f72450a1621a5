package model

// Stats summarizes a task list.
type Stats struct {
	Total     int
	Active    int
	Completed int
	Percent   int
	// ByPriority counts active tasks only.
	ByPriority map[Priority]int
}

// Summarize computes Stats in one pass.
func Summarize(tasks []Task) Stats {
	s := Stats{Total: len(tasks), ByPriority: map[Priority]int{}}
	for _, t := range tasks {
		if t.IsCompleted {
			s.Completed++
			continue
		}
		s.Active++
		s.ByPriority[t.Priority]++
	}
	s.Percent = Percent(s.Completed, s.Total)
	return s
}

// Percent rounds part/total*100 to the nearest integer, halves away from
// zero. Returns 0 when total is 0.
func Percent(part, total int) int {
	if total <= 0 || part <= 0 {
		return 0
	}
	// round(100*part/total) == floor((200*part + total) / (2*total)) for positives
	return (200*part + total) / (2 * total)
}
