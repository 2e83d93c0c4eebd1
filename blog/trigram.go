package blog

import (
	"strings"
	"unicode"
)

// trigramSet extracts the set of trigrams of s the way pg_trgm does:
// lowercase, split on non-alphanumerics, pad every word with two leading
// spaces and one trailing space, take every 3-rune window.
func trigramSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	words := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		padded := []rune("  " + w + " ")
		for i := 0; i+3 <= len(padded); i++ {
			set[string(padded[i:i+3])] = struct{}{}
		}
	}
	return set
}

// TrigramSimilarity returns |A∩B| / |A∪B| over the trigram sets of a and b,
// a value in [0, 1]. It matches PostgreSQL's similarity(a, b).
func TrigramSimilarity(a, b string) float64 {
	ta, tb := trigramSet(a), trigramSet(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	shared := 0
	for t := range ta {
		if _, ok := tb[t]; ok {
			shared++
		}
	}
	return float64(shared) / float64(len(ta)+len(tb)-shared)
}
