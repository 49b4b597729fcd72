package menu

import (
	"fmt"
	"slices"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"dinehall/internal/config"
	"dinehall/internal/textutil"
)

// ParseMenu reads the menu container HTML into stations in DOM order.
// Nutrients are left empty; the Extractor fills them from the detail panel.
// Rows without an item name are skipped.
func ParseMenu(html string, sel config.Selectors) ([]Station, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse menu html: %w", err)
	}

	var stations []Station
	current := -1
	doc.Find(sel.StationRow + ", " + sel.ItemRow).Each(func(_ int, row *goquery.Selection) {
		if row.Is(sel.StationRow) {
			name := textutil.Normalize(row.Text())
			if name == "" {
				name = DefaultStation
			}
			stations = append(stations, Station{Name: name})
			current = len(stations) - 1
			return
		}
		item, ok := parseItemRow(row, sel)
		if !ok {
			return
		}
		if current < 0 {
			stations = append(stations, Station{Name: DefaultStation})
			current = len(stations) - 1
		}
		stations[current].Items = append(stations[current].Items, item)
	})
	return stations, nil
}

func parseItemRow(row *goquery.Selection, sel config.Selectors) (FoodItem, bool) {
	name := textutil.Normalize(row.Find(sel.ItemName).First().Text())
	if name == "" {
		return FoodItem{}, false
	}
	item := FoodItem{
		Name:        name,
		Description: textutil.Normalize(row.Find(sel.ItemDescription).First().Text()),
		Portion:     textutil.Normalize(row.Find(sel.ItemPortion).First().Text()),
	}
	row.Find(sel.ItemIcons).Each(func(_ int, icon *goquery.Selection) {
		label := icon.AttrOr("alt", "")
		if strings.TrimSpace(label) == "" {
			label = icon.AttrOr("title", "")
		}
		if tag := textutil.Slug(label); tag != "" {
			item.Labels = append(item.Labels, tag)
		}
	})
	slices.Sort(item.Labels)
	item.Labels = slices.Compact(item.Labels)
	return item, true
}

// ParseDetail reads nutrient pairs and the optional ingredients line from a
// nutrition panel. Rows without a label are skipped; a repeated label keeps
// its first value.
func ParseDetail(html string, sel config.Selectors) (map[string]string, []string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, nil, fmt.Errorf("parse detail html: %w", err)
	}

	nutrients := make(map[string]string)
	doc.Find(sel.NutrientRow).Each(func(_ int, row *goquery.Selection) {
		key := NormalizeNutrientLabel(row.Find(sel.NutrientLabel).First().Text())
		if key == "" {
			return
		}
		if _, seen := nutrients[key]; seen {
			return
		}
		nutrients[key] = textutil.Normalize(row.Find(sel.NutrientValue).First().Text())
	})

	ingredients := ParseIngredients(doc.Find(sel.Ingredients).First().Text())
	return nutrients, ingredients, nil
}
