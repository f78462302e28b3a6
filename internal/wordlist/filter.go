package wordlist

import (
	"strings"

	"github.com/verte-zerg/morsetrain/internal/morse"
)

// FilterFunc returns true when a word should be kept.
type FilterFunc func(string) bool

// KeyableWord reports whether every rune of word has a Morse pattern.
func KeyableWord(word string) bool {
	if word == "" {
		return false
	}
	for _, r := range word {
		if !morse.Contains(r) {
			return false
		}
	}
	return true
}

// Filter keeps words accepted by keep, upper-cased and deduplicated in order.
func Filter(words []string, keep FilterFunc) []string {
	seen := make(map[string]struct{}, len(words))
	out := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.ToUpper(w)
		if _, ok := seen[w]; ok || !keep(w) {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	return out
}
