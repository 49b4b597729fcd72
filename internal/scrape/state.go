package scrape

import (
	"dinehall/internal/menu"
)

// State is a hall's position in the per-hall state machine.
type State string

const (
	StatePending    State = "pending"
	StateSelecting  State = "selecting"
	StateExtracting State = "extracting"
	StateDone       State = "done"
	StateFailed     State = "failed"
)

// HallResult is the outcome of processing one hall.
type HallResult struct {
	Hall        string
	State       State
	Attempts    int
	Meals       []menu.MealExtraction
	FailedMeals []string
	// FailedItems is the hall's failed-item set, reset for every hall.
	FailedItems []string
	Err         error
}

// Items returns the number of items extracted across the hall's meals.
func (r HallResult) Items() int {
	n := 0
	for _, meal := range r.Meals {
		n += meal.ItemCount()
	}
	return n
}
