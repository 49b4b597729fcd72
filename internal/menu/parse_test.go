package menu_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"dinehall/internal/config"
	"dinehall/internal/menu"
	"dinehall/internal/testsupport"
)

func TestParseMenuKeepsDOMOrder(t *testing.T) {
	html := testsupport.MenuHTML([]testsupport.FakeStation{
		{Name: "Grill", Items: []testsupport.FakeItem{
			{Name: "Cheeseburger", Description: "Beef patty", Portion: "1 each", Icons: []string{"High Protein"}},
			{Name: "Veggie Burger", Portion: "1 each", Icons: []string{"Vegan", "Vegetarian", "vegan"}},
		}},
		{Name: "Salad Bar", Items: []testsupport.FakeItem{
			{Name: "Garden Salad", Icons: []string{"Climate Friendly"}},
		}},
	})

	got, err := menu.ParseMenu(html, config.DefaultSelectors())
	if err != nil {
		t.Fatalf("ParseMenu: %v", err)
	}
	want := []menu.Station{
		{Name: "Grill", Items: []menu.FoodItem{
			{Name: "Cheeseburger", Description: "Beef patty", Portion: "1 each", Labels: []string{"high-protein"}},
			{Name: "Veggie Burger", Portion: "1 each", Labels: []string{"vegan", "vegetarian"}},
		}},
		{Name: "Salad Bar", Items: []menu.FoodItem{
			{Name: "Garden Salad", Labels: []string{"climate-friendly"}},
		}},
	}
	if diff := cmp.Diff(want, got, cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("stations mismatch (-want +got):\n%s", diff)
	}
}

func TestParseMenuItemsBeforeHeader(t *testing.T) {
	html := testsupport.MenuHTML([]testsupport.FakeStation{
		{Items: []testsupport.FakeItem{{Name: "Coffee"}}},
		{Name: "Deli", Items: []testsupport.FakeItem{{Name: "Turkey Club"}}},
	})
	got, err := menu.ParseMenu(html, config.DefaultSelectors())
	if err != nil {
		t.Fatalf("ParseMenu: %v", err)
	}
	if len(got) != 2 || got[0].Name != menu.DefaultStation || got[1].Name != "Deli" {
		t.Fatalf("unexpected stations: %+v", got)
	}
}

func TestParseMenuEmptyTable(t *testing.T) {
	got, err := menu.ParseMenu(`<table id="menu-items"></table>`, config.DefaultSelectors())
	if err != nil {
		t.Fatalf("ParseMenu: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no stations, got %+v", got)
	}
}

func TestParseDetail(t *testing.T) {
	html := testsupport.DetailHTML(testsupport.FakeItem{
		Name: "Cheeseburger",
		Nutrients: [][2]string{
			{"Calories", "540"},
			{"Saturated Fat (g):", "9g"},
			{"Saturated Fat + Trans Fat", "10g"},
			{"", "ignored"},
			{"Calories", "999"},
		},
		Ingredients: "Made with: beef, cheddar cheese (milk, salt), bun.",
	})
	nutrients, ingredients, err := menu.ParseDetail(html, config.DefaultSelectors())
	if err != nil {
		t.Fatalf("ParseDetail: %v", err)
	}
	wantNutrients := map[string]string{
		"calories":                "540",
		"saturated_fat":           "9g",
		"saturated_and_trans_fat": "10g",
	}
	if diff := cmp.Diff(wantNutrients, nutrients); diff != "" {
		t.Fatalf("nutrients mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"beef", "cheddar cheese (milk, salt)", "bun"}, ingredients); diff != "" {
		t.Fatalf("ingredients mismatch (-want +got):\n%s", diff)
	}
}

func TestNormalizeNutrientLabel(t *testing.T) {
	cases := map[string]string{
		"Saturated Fat (g):":          "saturated_fat",
		"Calories from Fat":           "calories_from_fat",
		"Saturated Fat + Trans Fat":   "saturated_and_trans_fat",
		"Saturated Fat and Trans Fat": "saturated_and_trans_fat",
		"  Total Carbohydrate (g) ":   "total_carbohydrates",
		"Sodium [mg]":                 "sodium",
		"Vitamin D":                   "vitamin_d",
		"(%DV)":                       "",
	}
	for in, want := range cases {
		if got := menu.NormalizeNutrientLabel(in); got != want {
			t.Fatalf("NormalizeNutrientLabel(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParseIngredients(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"Made with:", nil},
		{"MADE WITH: rice, beans", []string{"rice", "beans"}},
		{"Ingredients: flour (wheat, niacin); water.", []string{"flour (wheat, niacin)", "water"}},
		{"tomato, , basil", []string{"tomato", "basil"}},
	}
	for _, tc := range cases {
		got := menu.ParseIngredients(tc.in)
		if diff := cmp.Diff(tc.want, got); diff != "" {
			t.Fatalf("ParseIngredients(%q) mismatch (-want +got):\n%s", tc.in, diff)
		}
	}
}

func TestXPathLiteral(t *testing.T) {
	cases := map[string]string{
		"Pancakes":       "'Pancakes'",
		"O'Brien's Stew": `"O'Brien's Stew"`,
		`Say "cheese"`:   `'Say "cheese"'`,
		`Joe's "Best"`:   `concat('Joe', "'", 's "Best"')`,
	}
	for in, want := range cases {
		if got := menu.XPathLiteral(in); got != want {
			t.Fatalf("XPathLiteral(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestItemTriggerXPath(t *testing.T) {
	got := menu.ItemTriggerXPath("//a[normalize-space(.)=%s]", "O'Brien's Stew")
	want := `//a[normalize-space(.)="O'Brien's Stew"]`
	if got != want {
		t.Fatalf("ItemTriggerXPath = %s, want %s", got, want)
	}
}
