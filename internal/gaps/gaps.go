// Package gaps diffs discovered (hall, meal) combinations against the
// records already stored for a date.
package gaps

import (
	"context"
	"fmt"

	"dinehall/internal/discovery"
	"dinehall/internal/store"
	"dinehall/internal/textutil"
)

// Combination is one (hall, meal) pair, spelled as discovered.
type Combination struct {
	Hall string
	Meal string
}

func (c Combination) String() string {
	return c.Hall + " / " + c.Meal
}

// CombinationSource lists the stored (hall, meal) pairs for a date.
type CombinationSource interface {
	Combinations(ctx context.Context, date string) ([]store.Combination, error)
}

// Existing is the stored hall -> meals set for one date. Keys are folded so
// lookups ignore case and surrounding whitespace.
type Existing struct {
	halls map[string]map[string]struct{}
	names []string
}

// NewExisting builds an Existing from stored pairs.
func NewExisting(pairs ...Combination) Existing {
	ex := Existing{halls: make(map[string]map[string]struct{})}
	for _, pair := range pairs {
		ex.Add(pair.Hall, pair.Meal)
	}
	return ex
}

// Add records that hall has stored data for meal.
func (e *Existing) Add(hall, meal string) {
	if e.halls == nil {
		e.halls = make(map[string]map[string]struct{})
	}
	key := textutil.Fold(hall)
	meals, ok := e.halls[key]
	if !ok {
		meals = make(map[string]struct{})
		e.halls[key] = meals
		e.names = append(e.names, textutil.Normalize(hall))
	}
	meals[textutil.Fold(meal)] = struct{}{}
}

// Has reports whether hall has stored data for meal.
func (e Existing) Has(hall, meal string) bool {
	meals, ok := e.halls[textutil.Fold(hall)]
	if !ok {
		return false
	}
	_, ok = meals[textutil.Fold(meal)]
	return ok
}

// HasHall reports whether hall has any stored data.
func (e Existing) HasHall(hall string) bool {
	_, ok := e.halls[textutil.Fold(hall)]
	return ok
}

// Halls returns the stored hall names in first-seen order.
func (e Existing) Halls() []string {
	return append([]string(nil), e.names...)
}

// ExistingCombinations loads the stored pairs for date.
func ExistingCombinations(ctx context.Context, source CombinationSource, date string) (Existing, error) {
	combos, err := source.Combinations(ctx, date)
	if err != nil {
		return Existing{}, fmt.Errorf("existing combinations for %s: %w", date, err)
	}
	ex := NewExisting()
	for _, combo := range combos {
		ex.Add(combo.DiningHall, combo.MealName)
	}
	return ex, nil
}

// FindMissing returns the discovered pairs absent from existing, in
// discovery order, without duplicates.
func FindMissing(catalog discovery.Catalog, existing Existing) []Combination {
	return collect(catalog, func(hall, meal string) bool {
		return !existing.Has(hall, meal)
	})
}

// ForceAll returns every discovered pair regardless of stored state.
func ForceAll(catalog discovery.Catalog) []Combination {
	return collect(catalog, func(string, string) bool { return true })
}

func collect(catalog discovery.Catalog, keep func(hall, meal string) bool) []Combination {
	seen := make(map[[2]string]struct{})
	var out []Combination
	for _, hm := range catalog {
		for _, meal := range hm.Meals {
			key := [2]string{textutil.Fold(hm.Hall), textutil.Fold(meal)}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			if keep(hm.Hall, meal) {
				out = append(out, Combination{Hall: hm.Hall, Meal: meal})
			}
		}
	}
	return out
}

// HallWork is the missing meals of one hall.
type HallWork struct {
	Hall  string
	Meals []string
}

// GroupByHall folds a missing list into per-hall work, keeping first
// appearance order for halls and meals.
func GroupByHall(missing []Combination) []HallWork {
	index := make(map[string]int)
	var out []HallWork
	for _, combo := range missing {
		key := textutil.Fold(combo.Hall)
		i, ok := index[key]
		if !ok {
			i = len(out)
			index[key] = i
			out = append(out, HallWork{Hall: combo.Hall})
		}
		out[i].Meals = append(out[i].Meals, combo.Meal)
	}
	return out
}

// HallsWithExisting counts catalog halls that already have stored data.
func HallsWithExisting(catalog discovery.Catalog, existing Existing) int {
	n := 0
	for _, hm := range catalog {
		if existing.HasHall(hm.Hall) {
			n++
		}
	}
	return n
}
