package textutil

import "github.com/antzucaro/matchr"

// Closest returns the candidate most similar to target by Jaro-Winkler
// distance over folded labels, with its score. An empty candidate list
// returns "", 0.
func Closest(target string, candidates []string) (string, float64) {
	key := Fold(target)
	best, bestScore := "", 0.0
	for _, candidate := range candidates {
		score := matchr.JaroWinkler(key, Fold(candidate), false)
		if score > bestScore {
			best, bestScore = candidate, score
		}
	}
	return best, bestScore
}
