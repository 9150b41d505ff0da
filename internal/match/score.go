// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package match

import "strings"

// Scorer compares two normalized titles and returns a similarity in [0, 1].
type Scorer func(query, candidate string) float64

// DefaultScore is the larger of the token-set overlap and the edit-distance
// ratio. Token overlap tolerates reordered words; the edit ratio tolerates
// typos and hyphenation differences inside words.
func DefaultScore(query, candidate string) float64 {
	a := TokenSetScore(query, candidate)
	b := EditRatio(query, candidate)
	if a > b {
		return a
	}
	return b
}

// TokenSetScore is the Jaccard index of the two word sets.
func TokenSetScore(query, candidate string) float64 {
	qs := wordSet(query)
	cs := wordSet(candidate)
	if len(qs) == 0 || len(cs) == 0 {
		return 0
	}
	inter := 0
	for w := range qs {
		if cs[w] {
			inter++
		}
	}
	union := len(qs) + len(cs) - inter
	return float64(inter) / float64(union)
}

// EditRatio is 1 - levenshtein(a, b) / max(len(a), len(b)), measured in runes.
func EditRatio(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	longest := len(ra)
	if len(rb) > longest {
		longest = len(rb)
	}
	if longest == 0 {
		return 0
	}
	return 1 - float64(levenshtein(ra, rb))/float64(longest)
}

func wordSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.Fields(s) {
		set[w] = true
	}
	return set
}

func levenshtein(a, b []rune) int {
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}
