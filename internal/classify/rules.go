package classify

import (
	"strings"
	"unicode"
)

// Rule maps one label to the phrases that select it. Tables are ordered; the
// first rule with any matching phrase wins unless the caller scores hits.
type Rule struct {
	Label    string
	Keywords []string
}

// normalize lowercases text, turns punctuation into spaces and pads the result
// so phrases match on word boundaries: " mine " never matches "minister".
func normalize(text string) string {
	var b strings.Builder
	b.Grow(len(text) + 2)
	b.WriteByte(' ')
	space := true
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			space = false
			continue
		}
		if !space {
			b.WriteByte(' ')
			space = true
		}
	}
	if !space {
		b.WriteByte(' ')
	}
	return b.String()
}

func contains(norm string, phrase string) bool {
	return strings.Contains(norm, " "+phrase+" ")
}

func hits(norm string, rule Rule) int {
	n := 0
	for _, kw := range rule.Keywords {
		if contains(norm, kw) {
			n++
		}
	}
	return n
}

// firstMatch returns the label of the first rule with at least one hit.
func firstMatch(rules []Rule, text string, fallback string) string {
	norm := normalize(text)
	for _, rule := range rules {
		for _, kw := range rule.Keywords {
			if contains(norm, kw) {
				return rule.Label
			}
		}
	}
	return fallback
}

// bestMatch returns the label with the most hits; ties keep table order and an
// all-zero score yields fallback.
func bestMatch(rules []Rule, text string, fallback string) string {
	norm := normalize(text)
	best, bestHits := fallback, 0
	for _, rule := range rules {
		if n := hits(norm, rule); n > bestHits {
			best, bestHits = rule.Label, n
		}
	}
	return best
}
