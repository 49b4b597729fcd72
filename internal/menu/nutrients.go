package menu

import (
	"regexp"
	"strings"
	"unicode"
)

var parenthetical = regexp.MustCompile(`\([^)]*\)|\[[^\]]*\]`)

// nutrientRenames maps normalized labels onto the canonical key set.
var nutrientRenames = map[string]string{
	"saturated_fat_and_trans_fat": "saturated_and_trans_fat",
	"trans_fat_and_saturated_fat": "saturated_and_trans_fat",
	"sat_fat":                     "saturated_fat",
	"total_carbohydrate":          "total_carbohydrates",
	"carbohydrates":               "total_carbohydrates",
	"dietary_fibre":               "dietary_fiber",
	"fibre":                       "dietary_fiber",
	"sugar":                       "sugars",
	"total_sugar":                 "sugars",
	"energy":                      "calories",
}

// NormalizeNutrientLabel converts a panel label to its canonical key:
// parentheticals and trailing colons dropped, lowercased, "+" and "&" read
// as "and", every other run of non-alphanumerics collapsed to one
// underscore, then passed through the rename table.
//
//	"Saturated Fat (g):"        -> saturated_fat
//	"Saturated Fat + Trans Fat" -> saturated_and_trans_fat
func NormalizeNutrientLabel(label string) string {
	s := parenthetical.ReplaceAllString(label, " ")
	s = strings.ToLower(s)
	s = strings.NewReplacer("+", " and ", "&", " and ").Replace(s)

	var b strings.Builder
	pending := false
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pending && b.Len() > 0 {
				b.WriteByte('_')
			}
			pending = false
			b.WriteRune(r)
			continue
		}
		pending = true
	}
	key := b.String()
	if renamed, ok := nutrientRenames[key]; ok {
		return renamed
	}
	return key
}
