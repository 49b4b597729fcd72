package store

import (
	"strings"
	"time"

	"dinehall/internal/textutil"
)

// FoodRecord is one persisted food item: a single row per
// (date, dining hall, meal, station, name) observed in a scrape.
type FoodRecord struct {
	ID              int64
	Date            string
	DiningHall      string
	MealName        string
	Station         string
	Name            string
	Description     string
	Labels          []string
	Ingredients     []string
	Portion         string
	Nutrients       map[string]string
	ExtractionError string
	RunID           string
	ScrapedAt       time.Time
}

// Filter selects food records. Empty fields match everything; hall and meal
// compare through the stored hall_key and meal_key, so labels match under
// textutil.Fold.
type Filter struct {
	Date       string
	DiningHall string
	MealName   string
	Station    string
	Name       string
}

// Combination is a (dining hall, meal) pair with its record count for a date.
type Combination struct {
	DiningHall string
	MealName   string
	Count      int
}

// Distinct fields accepted by Store.Distinct.
const (
	FieldDate       = "date"
	FieldDiningHall = "dining_hall"
	FieldMealName   = "meal_name"
	FieldStation    = "station"
	FieldName       = "name"
)

var distinctColumns = map[string]struct{}{
	FieldDate:       {},
	FieldDiningHall: {},
	FieldMealName:   {},
	FieldStation:    {},
	FieldName:       {},
}

func (f Filter) where() (string, []any) {
	clauses := make([]string, 0, 5)
	args := make([]any, 0, 5)
	add := func(clause, value string) {
		if value = strings.TrimSpace(value); value != "" {
			clauses = append(clauses, clause)
			args = append(args, value)
		}
	}
	add("date = ?", f.Date)
	add("hall_key = ?", textutil.Fold(f.DiningHall))
	add("meal_key = ?", textutil.Fold(f.MealName))
	add("station = ?", f.Station)
	add("name = ?", f.Name)
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}
