package reconciliation

import "strings"

// DefaultSimilarityThreshold is the acceptance threshold for fuzzy name
// matches when no learned rule or exact substring applies.
const DefaultSimilarityThreshold = 0.6

// WordOverlapSimilarity scores two normalized names in [0,1] as
// |intersection| / max(|A|, |B|) over their word sets. The max denominator
// keeps a name that is a superset of the other scoring high, which Jaccard
// over the union would punish.
func WordOverlapSimilarity(a, b string) float64 {
	wordsA := wordSet(a)
	wordsB := wordSet(b)
	if len(wordsA) == 0 || len(wordsB) == 0 {
		return 0
	}

	intersection := 0
	for w := range wordsA {
		if _, ok := wordsB[w]; ok {
			intersection++
		}
	}

	denominator := len(wordsA)
	if len(wordsB) > denominator {
		denominator = len(wordsB)
	}
	return float64(intersection) / float64(denominator)
}

// NameSimilarity scores two normalized names. Full containment of one name
// in the other scores 1.0 outright ("companhia abc" pays as "abc"); only
// when neither contains the other does word overlap decide.
func NameSimilarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if strings.Contains(a, b) || strings.Contains(b, a) {
		return 1.0
	}
	return WordOverlapSimilarity(a, b)
}

// NameRecognizedIn reports whether a normalized entity name is recognizable
// inside a normalized description, either as a substring or by word overlap
// above the threshold.
func NameRecognizedIn(description, name string, threshold float64) bool {
	if name == "" || description == "" {
		return false
	}
	if strings.Contains(description, name) {
		return true
	}
	return WordOverlapSimilarity(description, name) >= threshold
}

func wordSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.Fields(s) {
		set[w] = struct{}{}
	}
	return set
}
