package text

import "strings"

// Words splits s on runs of Unicode whitespace. Leading and trailing
// whitespace produce no empty words.
func Words(s string) []string {
	return strings.Fields(s)
}

// CountWords returns the unique words of s with their occurrence counts.
// order lists each word once, in first-occurrence order, so callers that
// iterate it get reproducible results.
func CountWords(s string) (order []string, counts map[string]int) {
	counts = make(map[string]int)
	for _, w := range Words(s) {
		if _, seen := counts[w]; !seen {
			order = append(order, w)
		}
		counts[w]++
	}
	return order, counts
}
