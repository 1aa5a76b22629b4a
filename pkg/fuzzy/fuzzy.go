// Package fuzzy provides the string-similarity scoring used for county
// matching during ingestion and column resolution in the query engine.
// "No confident match" is a first-class outcome: callers pass an explicit
// floor and get an ok=false result instead of a silently-wrong guess.
package fuzzy

import (
	"strings"

	"github.com/xrash/smetrics"
)

// Score returns a similarity in [0,1] between the two strings, ignoring
// case and surrounding whitespace.
func Score(a, b string) float64 {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a == b {
		return 1
	}
	if a == "" || b == "" {
		return 0
	}
	return smetrics.JaroWinkler(a, b, 0.7, 4)
}

// BestMatch returns the candidate with the highest similarity to target.
// ok is false when no candidate reaches the floor.
func BestMatch(target string, candidates []string, floor float64) (best string, score float64, ok bool) {
	for _, c := range candidates {
		if s := Score(target, c); s > score {
			best, score = c, s
		}
	}
	if score < floor {
		return "", score, false
	}
	return best, score, true
}
