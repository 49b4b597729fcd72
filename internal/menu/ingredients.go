package menu

import (
	"strings"

	"dinehall/internal/textutil"
)

var ingredientPrefixes = []string{"made with:", "ingredients:"}

// ParseIngredients splits a "Made with: a, b (c, d), e." line into its
// top-level entries. Commas inside parentheses or brackets stay with their
// entry. Returns nil for a blank line.
func ParseIngredients(line string) []string {
	line = textutil.Normalize(line)
	lower := strings.ToLower(line)
	for _, prefix := range ingredientPrefixes {
		if strings.HasPrefix(lower, prefix) {
			line = strings.TrimSpace(line[len(prefix):])
			break
		}
	}
	line = strings.TrimSuffix(line, ".")
	if line == "" {
		return nil
	}

	var (
		out   []string
		depth int
		start int
	)
	flush := func(end int) {
		if part := strings.TrimSpace(line[start:end]); part != "" {
			out = append(out, part)
		}
	}
	for i, r := range line {
		switch r {
		case '(', '[':
			depth++
		case ')', ']':
			if depth > 0 {
				depth--
			}
		case ',', ';':
			if depth == 0 {
				flush(i)
				start = i + 1
			}
		}
	}
	flush(len(line))
	return out
}
