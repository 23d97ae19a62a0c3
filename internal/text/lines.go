package text

import "strings"

// Lines splits s into lines for independent encoding.
// Line endings are normalized first; whitespace-only lines are dropped
// and surrounding whitespace is trimmed from each kept line.
func Lines(s string) []string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")

	var lines []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}
