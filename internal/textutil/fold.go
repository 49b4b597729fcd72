package textutil

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Normalize trims s, collapses internal whitespace runs to one space, and
// applies NFC so visually identical labels compare equal.
func Normalize(s string) string {
	return norm.NFC.String(strings.Join(strings.Fields(s), " "))
}

// Fold returns the comparison key for a hall or meal label: normalized and
// Unicode case-folded.
func Fold(s string) string {
	return cases.Fold().String(Normalize(s))
}

// EqualFold reports whether two labels match under Fold.
func EqualFold(a, b string) bool {
	return Fold(a) == Fold(b)
}

// IndexFold returns the index of the first entry in labels matching target
// under Fold, or -1.
func IndexFold(labels []string, target string) int {
	key := Fold(target)
	for i, label := range labels {
		if Fold(label) == key {
			return i
		}
	}
	return -1
}

// UniqueFold returns labels with blanks and Fold-duplicates removed, keeping
// the first spelling seen and the original order.
func UniqueFold(labels []string) []string {
	seen := make(map[string]struct{}, len(labels))
	out := make([]string, 0, len(labels))
	for _, label := range labels {
		label = Normalize(label)
		if label == "" {
			continue
		}
		key := cases.Fold().String(label)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, label)
	}
	return out
}
