// Package text holds the whitespace-level helpers shared by training and encoding.
package text

import (
	"errors"
	"strings"
)

// ErrEmptyText is returned when the input text is empty or whitespace-only.
var ErrEmptyText = errors.New("text is empty")

// Normalize unifies line endings to \n and trims surrounding whitespace.
// Its job is the emptiness gate in front of encoding: it returns ErrEmptyText
// for empty or whitespace-only input. Word content is left as it is, and
// encoding the result splits into the same words as encoding s.
func Normalize(s string) (string, error) {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")

	s = strings.TrimSpace(s)

	if s == "" {
		return "", ErrEmptyText
	}

	return s, nil
}
