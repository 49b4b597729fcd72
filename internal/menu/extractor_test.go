package menu_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"dinehall/internal/browser"
	"dinehall/internal/config"
	"dinehall/internal/menu"
	"dinehall/internal/services"
	"dinehall/internal/testsupport"
)

func fixtureHall() testsupport.FakeHall {
	return testsupport.FakeHall{
		Name: "North Hall",
		Meals: []testsupport.FakeMeal{
			{Name: "Breakfast", Stations: []testsupport.FakeStation{
				{Name: "Griddle", Items: []testsupport.FakeItem{
					{Name: "Pancakes", Nutrients: [][2]string{{"Calories", "350"}}},
				}},
			}},
			{Name: "Lunch", Stations: []testsupport.FakeStation{
				{Name: "Soup", Items: []testsupport.FakeItem{
					{
						Name:        "O'Brien's Stew",
						Portion:     "8 oz",
						Icons:       []string{"High Protein"},
						Nutrients:   [][2]string{{"Calories", "250"}, {"Protein (g)", "18g"}},
						Ingredients: "Made with: beef, potatoes, carrots",
					},
					{Name: "Tomato Bisque", NoDetail: true},
				}},
				{Name: "Grill", Items: []testsupport.FakeItem{
					{Name: "Cheeseburger", Nutrients: [][2]string{{"Total Fat:", "22g"}}},
				}},
			}},
		},
	}
}

type extractorEnv struct {
	site    *testsupport.FakeSite
	session *testsupport.FakeSession
	ext     *menu.Extractor
	sleeps  []time.Duration
}

func newExtractorEnv(t *testing.T) *extractorEnv {
	t.Helper()
	return newExtractorEnvFor(t, fixtureHall())
}

func newExtractorEnvFor(t *testing.T, hall testsupport.FakeHall) *extractorEnv {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	cfg.Scrape.ItemDelayMinMS = 1500
	cfg.Scrape.ItemDelayMaxMS = 3000
	env := &extractorEnv{site: testsupport.NewFakeSite(hall)}
	env.session = env.site.NewSession()
	env.ext = menu.NewExtractor(cfg, menu.WithSleep(func(_ context.Context, d time.Duration) {
		env.sleeps = append(env.sleeps, d)
	}))
	return env
}

// openHall puts the session on the hall view the way discovery leaves it.
func (env *extractorEnv) openHall(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	sel := config.DefaultSelectors()
	if err := env.session.Navigate(ctx, testsupport.TestBaseURL); err != nil {
		t.Fatalf("navigate: %v", err)
	}
	if err := env.session.Click(ctx, browser.CSS(sel.HallToggle)); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if err := env.session.ClickNth(ctx, browser.CSS(sel.HallOptions), 0); err != nil {
		t.Fatalf("select hall: %v", err)
	}
}

func TestExtractMenuRecordsItemFailuresInline(t *testing.T) {
	env := newExtractorEnv(t)
	env.openHall(t)
	ctx := context.Background()

	if !env.ext.SelectMealTab(ctx, env.session, "  lunch ") {
		t.Fatal("expected lunch tab selected")
	}
	stations, failed, err := env.ext.ExtractMenu(ctx, env.session, "North Hall", "Lunch")
	if err != nil {
		t.Fatalf("ExtractMenu: %v", err)
	}

	if len(stations) != 2 || stations[0].Name != "Soup" || stations[1].Name != "Grill" {
		t.Fatalf("unexpected stations: %+v", stations)
	}
	stew := stations[0].Items[0]
	wantStew := menu.FoodItem{
		Name:        "O'Brien's Stew",
		Portion:     "8 oz",
		Labels:      []string{"high-protein"},
		Ingredients: []string{"beef", "potatoes", "carrots"},
		Nutrients:   map[string]string{"calories": "250", "protein": "18g"},
	}
	if diff := cmp.Diff(wantStew, stew); diff != "" {
		t.Fatalf("stew mismatch (-want +got):\n%s", diff)
	}

	bisque := stations[0].Items[1]
	if !bisque.Failed() || bisque.Nutrients[menu.ErrorNutrientKey] == "" {
		t.Fatalf("expected bisque error marker, got %+v", bisque)
	}
	if diff := cmp.Diff([]string{"Tomato Bisque"}, failed); diff != "" {
		t.Fatalf("failed items mismatch (-want +got):\n%s", diff)
	}
	if got := stations[1].Items[0].Nutrients["total_fat"]; got != "22g" {
		t.Fatalf("expected cheeseburger fat, got %q", got)
	}

	if len(env.sleeps) != 2 {
		t.Fatalf("expected a delay between each of 3 items, got %d", len(env.sleeps))
	}
	for _, d := range env.sleeps {
		if d < 1500*time.Millisecond || d > 3000*time.Millisecond {
			t.Fatalf("item delay %s outside 1.5s-3.0s", d)
		}
	}
}

func TestExtractMenuRetriesTransientTrigger(t *testing.T) {
	env := newExtractorEnv(t)
	env.openHall(t)
	env.site.Fail("item:Pancakes", testsupport.TimeoutError("click", "pancakes"))
	ctx := context.Background()

	if !env.ext.SelectMealTab(ctx, env.session, "Breakfast") {
		t.Fatal("expected breakfast tab selected")
	}
	stations, failed, err := env.ext.ExtractMenu(ctx, env.session, "North Hall", "Breakfast")
	if err != nil {
		t.Fatalf("ExtractMenu: %v", err)
	}
	if len(failed) != 0 {
		t.Fatalf("expected retry to recover, failed=%v", failed)
	}
	if got := stations[0].Items[0].Nutrients["calories"]; got != "350" {
		t.Fatalf("expected calories after retry, got %q", got)
	}
}

func TestExtractMenuExhaustedTriggerKeepsItem(t *testing.T) {
	env := newExtractorEnv(t)
	env.openHall(t)
	timeout := testsupport.TimeoutError("click", "pancakes")
	env.site.Fail("item:Pancakes", timeout, timeout)
	ctx := context.Background()

	if !env.ext.SelectMealTab(ctx, env.session, "Breakfast") {
		t.Fatal("expected breakfast tab selected")
	}
	stations, failed, err := env.ext.ExtractMenu(ctx, env.session, "North Hall", "Breakfast")
	if err != nil {
		t.Fatalf("ExtractMenu: %v", err)
	}
	if len(stations) != 1 || len(stations[0].Items) != 1 {
		t.Fatalf("expected the item kept, got %+v", stations)
	}
	if len(failed) != 1 || !stations[0].Items[0].Failed() {
		t.Fatalf("expected item failure marker, got %+v", stations[0].Items[0])
	}
}

func TestExtractMenuCrashEndsMeal(t *testing.T) {
	env := newExtractorEnv(t)
	env.openHall(t)
	env.site.Fail("item:O'Brien's Stew", testsupport.CrashError("click"))
	ctx := context.Background()

	if !env.ext.SelectMealTab(ctx, env.session, "Lunch") {
		t.Fatal("expected lunch tab selected")
	}
	_, _, err := env.ext.ExtractMenu(ctx, env.session, "North Hall", "Lunch")
	if !errors.Is(err, services.ErrCrash) {
		t.Fatalf("expected crash error, got %v", err)
	}
	if env.session.Alive(ctx) {
		t.Fatal("expected session dead after crash")
	}
}

func TestExtractMenuClosesPanelAfterFailedRead(t *testing.T) {
	cases := map[string]testsupport.FakeItem{
		"late panel":       {Name: "Chili", LatePanel: true, Nutrients: [][2]string{{"Calories", "300"}}},
		"unreadable panel": {Name: "Chili", UnreadablePanel: true},
	}
	for name, flaky := range cases {
		t.Run(name, func(t *testing.T) {
			env := newExtractorEnvFor(t, testsupport.FakeHall{Name: "North Hall", Meals: []testsupport.FakeMeal{
				{Name: "Dinner", Stations: []testsupport.FakeStation{
					{Name: "Hot Line", Items: []testsupport.FakeItem{
						flaky,
						{Name: "Rice Pilaf", Nutrients: [][2]string{{"Calories", "200"}}},
					}},
				}},
			}})
			env.openHall(t)
			ctx := context.Background()

			if !env.ext.SelectMealTab(ctx, env.session, "Dinner") {
				t.Fatal("expected dinner tab selected")
			}
			stations, failed, err := env.ext.ExtractMenu(ctx, env.session, "North Hall", "Dinner")
			if err != nil {
				t.Fatalf("ExtractMenu: %v", err)
			}
			if diff := cmp.Diff([]string{"Chili"}, failed); diff != "" {
				t.Fatalf("failed items mismatch (-want +got):\n%s", diff)
			}
			if got := stations[0].Items[1].Nutrients["calories"]; got != "200" {
				t.Fatalf("expected the next item readable after the panel closed, got %+v", stations[0].Items[1])
			}
		})
	}
}

func TestExtractMenuRepeatedNameOpensEachRow(t *testing.T) {
	soup := func(calories string) testsupport.FakeItem {
		return testsupport.FakeItem{Name: "Soup of the Day", Nutrients: [][2]string{{"Calories", calories}}}
	}
	env := newExtractorEnvFor(t, testsupport.FakeHall{Name: "North Hall", Meals: []testsupport.FakeMeal{
		{Name: "Lunch", Stations: []testsupport.FakeStation{
			{Name: "Soup", Items: []testsupport.FakeItem{soup("120")}},
			{Name: "Deli", Items: []testsupport.FakeItem{soup("310")}},
		}},
	}})
	env.openHall(t)
	ctx := context.Background()

	if !env.ext.SelectMealTab(ctx, env.session, "Lunch") {
		t.Fatal("expected lunch tab selected")
	}
	stations, failed, err := env.ext.ExtractMenu(ctx, env.session, "North Hall", "Lunch")
	if err != nil || len(failed) != 0 {
		t.Fatalf("ExtractMenu: err=%v failed=%v", err, failed)
	}
	got := []string{stations[0].Items[0].Nutrients["calories"], stations[1].Items[0].Nutrients["calories"]}
	if diff := cmp.Diff([]string{"120", "310"}, got); diff != "" {
		t.Fatalf("per-station nutrients mismatch (-want +got):\n%s", diff)
	}
}

func TestSelectMealTabMissing(t *testing.T) {
	env := newExtractorEnv(t)
	env.openHall(t)
	if env.ext.SelectMealTab(context.Background(), env.session, "Dinner") {
		t.Fatal("expected missing tab to report false")
	}
}

func TestFlattenTagsStations(t *testing.T) {
	item := func(name string) menu.FoodItem { return menu.FoodItem{Name: name} }
	extraction := menu.MealExtraction{
		Hall: "Hall A",
		Meal: "Lunch",
		Date: "2026-10-14",
		Stations: []menu.Station{
			{Name: "Grill", Items: []menu.FoodItem{item("a"), item("b"), item("c")}},
			{Name: "Deli", Items: []menu.FoodItem{item("d"), item("e")}},
		},
	}
	records := menu.Flatten(extraction, "run-1", time.Time{})
	if len(records) != 5 {
		t.Fatalf("expected 5 records, got %d", len(records))
	}
	wantStations := []string{"Grill", "Grill", "Grill", "Deli", "Deli"}
	for i, rec := range records {
		if rec.Station != wantStations[i] || rec.DiningHall != "Hall A" || rec.MealName != "Lunch" || rec.RunID != "run-1" {
			t.Fatalf("record %d mismatch: %+v", i, rec)
		}
	}
}
