package jsonstore

import (
	"time"

	"github.com/google/uuid"

	"github.com/Makepad-fr/donezo/internal/model"
)

// Samples are written into a fresh slot so the first run is not empty.
func Samples(now time.Time) []model.Task {
	at := model.Timestamp(now)
	return []model.Task{
		{
			ID:        uuid.NewString(),
			Title:     "Review quarterly goals",
			Notes:     "Check progress on Q3 objectives and plan for Q4",
			Priority:  model.PriorityHigh,
			CreatedAt: at,
		},
		{
			ID:        uuid.NewString(),
			Title:     "Schedule dentist appointment",
			Priority:  model.PriorityMedium,
			CreatedAt: at,
		},
		{
			ID:        uuid.NewString(),
			Title:     "Buy groceries for the week",
			Notes:     "Milk, bread, fruits, vegetables",
			Priority:  model.PriorityLow,
			CreatedAt: at,
		},
	}
}

// SeedIfMissing writes Samples when the slot has never been written.
func (s *Slot) SeedIfMissing(now time.Time) (bool, error) {
	if s.Exists() {
		return false, nil
	}
	return true, s.Save(Samples(now))
}
