package menu

import (
	"time"

	"dinehall/internal/store"
)

// DefaultStation names items that appear before any station header.
const DefaultStation = "General"

// ErrorNutrientKey holds the failure marker in Nutrients when the detail
// panel could not be read.
const ErrorNutrientKey = "error"

// FoodItem is one extracted menu row.
type FoodItem struct {
	Name        string
	Description string
	// Labels are sorted dietary tags derived from the row's icons.
	Labels      []string
	Ingredients []string
	Portion     string
	Nutrients   map[string]string
	// Error is set when the nutrition panel failed; Nutrients then carries
	// the same message under ErrorNutrientKey.
	Error string
}

// Failed reports whether the item's detail extraction failed.
func (f FoodItem) Failed() bool { return f.Error != "" }

// Station is a named serving area in DOM order.
type Station struct {
	Name  string
	Items []FoodItem
}

// MealExtraction is everything read for one hall and meal on a date.
type MealExtraction struct {
	Hall     string
	Meal     string
	Date     string
	Stations []Station
}

// ItemCount returns the number of items across all stations.
func (m MealExtraction) ItemCount() int {
	return countItems(m.Stations)
}

// Flatten converts an extraction into one persisted record per item, in
// station then row order.
func Flatten(m MealExtraction, runID string, scrapedAt time.Time) []store.FoodRecord {
	records := make([]store.FoodRecord, 0, m.ItemCount())
	for _, st := range m.Stations {
		for _, item := range st.Items {
			records = append(records, store.FoodRecord{
				Date:            m.Date,
				DiningHall:      m.Hall,
				MealName:        m.Meal,
				Station:         st.Name,
				Name:            item.Name,
				Description:     item.Description,
				Labels:          item.Labels,
				Ingredients:     item.Ingredients,
				Portion:         item.Portion,
				Nutrients:       item.Nutrients,
				ExtractionError: item.Error,
				RunID:           runID,
				ScrapedAt:       scrapedAt,
			})
		}
	}
	return records
}
