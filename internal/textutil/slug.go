package textutil

import (
	"strings"
	"unicode"
)

// Slug converts a label to a lowercase hyphenated token ("High Protein" ->
// "high-protein"). Letters and digits are kept; every other run becomes one
// hyphen. Returns "" when nothing survives.
func Slug(value string) string {
	var b strings.Builder
	gap := false
	for _, r := range Fold(value) {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			gap = true
			continue
		}
		if gap && b.Len() > 0 {
			b.WriteByte('-')
		}
		gap = false
		b.WriteRune(r)
	}
	return b.String()
}
