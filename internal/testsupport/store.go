package testsupport

import (
	"context"
	"testing"

	"dinehall/internal/config"
	"dinehall/internal/store"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// SeedFoods writes one placeholder record per (hall, meal) pair for date.
func SeedFoods(t testing.TB, st *store.Store, date string, combos map[string][]string) {
	t.Helper()

	var records []store.FoodRecord
	for hall, meals := range combos {
		for _, meal := range meals {
			records = append(records, store.FoodRecord{
				Date:       date,
				DiningHall: hall,
				MealName:   meal,
				Station:    "Seed",
				Name:       "Seeded " + meal,
			})
		}
	}
	if _, err := st.UpsertFoods(context.Background(), records); err != nil {
		t.Fatalf("seed foods: %v", err)
	}
}
