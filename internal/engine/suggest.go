package engine

import (
	"strings"

	"github.com/agnivade/levenshtein"
)

// suggest returns the candidate closest to name by edit distance, or "" when
// nothing is close enough to be a plausible typo.
func suggest(name string, candidates []string) string {
	limit := len(name) / 3
	if limit < 2 {
		limit = 2
	}
	best := ""
	bestDist := limit + 1
	for _, c := range candidates {
		dist := levenshtein.ComputeDistance(strings.ToLower(name), strings.ToLower(c))
		if dist < bestDist {
			best = c
			bestDist = dist
		}
	}
	return best
}
