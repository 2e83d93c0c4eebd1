package blog

import (
	"strings"
	"unicode"
)

// Field weights of the combined search document, as in ts_rank's A and B classes.
const (
	titleWeight = 1.0
	bodyWeight  = 0.4
)

func terms(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func termCounts(s string) map[string]int {
	counts := make(map[string]int)
	for _, t := range terms(s) {
		counts[t]++
	}
	return counts
}

// WeightedRank scores a title/body document against every term of query.
// All terms must occur (plain query semantics), otherwise the rank is 0.
// Title hits weigh more than body hits. There is no stemming, so this is a
// coarse stand-in for ts_rank used by MemStore.
func WeightedRank(title, body, query string) float64 {
	qs := terms(query)
	if len(qs) == 0 {
		return 0
	}
	tc, bc := termCounts(title), termCounts(body)
	var total float64
	for _, q := range qs {
		w := float64(tc[q])*titleWeight + float64(bc[q])*bodyWeight
		if w == 0 {
			return 0
		}
		total += w / (w + 1)
	}
	return total / float64(len(qs))
}
