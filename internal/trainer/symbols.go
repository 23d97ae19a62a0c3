package trainer

import (
	"fmt"
	"slices"
	"unicode"

	"github.com/example/go-wordpiece/internal/vocab"
)

// NoSymbolLimit stands for an absent limit: every distinct character of the
// corpus is kept as a base symbol. Negative limits are rejected.
const NoSymbolLimit = 0

// ExtractSymbols derives the base alphabet of corpus. Whitespace only
// separates words and is never a symbol.
//
// With maxSymbols == NoSymbolLimit every distinct character is valid, in
// first-occurrence order. Otherwise only the maxSymbols most frequent
// characters are valid (ties go to the earlier character) and the rest are
// returned as invalid, in first-occurrence order. The word-boundary marker is
// always valid.
func ExtractSymbols(corpus string, maxSymbols int) (valid, invalid []string, err error) {
	if maxSymbols < 0 {
		return nil, nil, fmt.Errorf("%w: max symbols must not be negative, got %d", ErrInvalidConfig, maxSymbols)
	}

	order, counts := countSymbols(corpus)

	if maxSymbols == NoSymbolLimit || maxSymbols >= len(order) {
		valid = order
		invalid = []string{}
	} else {
		ranked := slices.Clone(order)
		slices.SortStableFunc(ranked, func(a, b string) int {
			return counts[b] - counts[a]
		})
		valid = ranked[:maxSymbols]

		keep := toSet(valid)
		invalid = make([]string, 0, len(order)-maxSymbols)
		for _, s := range order {
			if _, ok := keep[s]; !ok {
				invalid = append(invalid, s)
			}
		}
	}

	valid = withBoundary(valid)
	invalid = slices.DeleteFunc(invalid, func(s string) bool { return s == vocab.WordBoundary })

	return valid, invalid, nil
}

// invalidSymbols lists the corpus characters missing from valid, in
// first-occurrence order.
func invalidSymbols(corpus string, valid []string) []string {
	order, _ := countSymbols(corpus)
	known := toSet(valid)

	invalid := []string{}
	for _, s := range order {
		if _, ok := known[s]; !ok {
			invalid = append(invalid, s)
		}
	}
	return invalid
}

func countSymbols(corpus string) (order []string, counts map[string]int) {
	counts = make(map[string]int)
	for _, r := range corpus {
		if unicode.IsSpace(r) {
			continue
		}
		s := string(r)
		if _, seen := counts[s]; !seen {
			order = append(order, s)
		}
		counts[s]++
	}
	return order, counts
}

func withBoundary(symbols []string) []string {
	if slices.Contains(symbols, vocab.WordBoundary) {
		return symbols
	}
	return append(symbols, vocab.WordBoundary)
}

func toSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, s := range items {
		set[s] = struct{}{}
	}
	return set
}
