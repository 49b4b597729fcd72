package menu_test

import (
	"strings"
	"testing"

	"github.com/antchfx/htmlquery"

	"dinehall/internal/config"
	"dinehall/internal/menu"
	"dinehall/internal/testsupport"
)

func TestItemTriggerXPathSelectsExactlyTheNamedItem(t *testing.T) {
	names := []string{
		"Cheeseburger",
		"O'Brien's Stew",
		`The "Big" One`,
		`Mom's "Famous" Pie`,
		`'Quoted' & "Doubled"`,
	}
	items := make([]testsupport.FakeItem, 0, len(names)+1)
	for _, name := range names {
		items = append(items, testsupport.FakeItem{Name: name})
	}
	// A near miss shares a prefix with one of the names.
	items = append(items, testsupport.FakeItem{Name: "O'Brien's Stew Deluxe"})

	doc, err := htmlquery.Parse(strings.NewReader(testsupport.MenuHTML([]testsupport.FakeStation{
		{Name: "Kitchen", Items: items},
	})))
	if err != nil {
		t.Fatalf("parse menu markup: %v", err)
	}

	template := config.DefaultSelectors().ItemTriggerXPath
	for _, name := range names {
		expr := menu.ItemTriggerXPath(template, name)
		nodes, err := htmlquery.QueryAll(doc, expr)
		if err != nil {
			t.Fatalf("%q: compile %s: %v", name, expr, err)
		}
		if len(nodes) != 1 {
			t.Fatalf("%q: expected one match for %s, got %d", name, expr, len(nodes))
		}
		if got := htmlquery.InnerText(nodes[0]); got != name {
			t.Fatalf("%q: matched %q", name, got)
		}
	}
}

func TestItemTriggerXPathMatchesEveryRepeatedRow(t *testing.T) {
	doc, err := htmlquery.Parse(strings.NewReader(testsupport.MenuHTML([]testsupport.FakeStation{
		{Name: "Soup", Items: []testsupport.FakeItem{{Name: "Soup of the Day"}}},
		{Name: "Deli", Items: []testsupport.FakeItem{{Name: "Soup of the Day"}, {Name: "Turkey Club"}}},
	})))
	if err != nil {
		t.Fatalf("parse menu markup: %v", err)
	}
	expr := menu.ItemTriggerXPath(config.DefaultSelectors().ItemTriggerXPath, "Soup of the Day")
	nodes, err := htmlquery.QueryAll(doc, expr)
	if err != nil {
		t.Fatalf("compile %s: %v", expr, err)
	}
	if len(nodes) != 2 {
		t.Fatalf("expected both rows matched in document order, got %d", len(nodes))
	}
}
