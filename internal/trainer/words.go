package trainer

import (
	"strings"
	"unicode/utf8"

	"github.com/example/go-wordpiece/internal/text"
	"github.com/example/go-wordpiece/internal/vocab"
)

// Word is a distinct corpus word split into its current tokens.
type Word struct {
	Tokens []string
	Count  int
}

// IndexWords splits corpus on whitespace and returns each distinct word once,
// in first-occurrence order, with its occurrence count.
func IndexWords(corpus string) []Word {
	order, counts := text.CountWords(corpus)

	words := make([]Word, 0, len(order))
	for _, w := range order {
		words = append(words, Word{Tokens: SplitWord(w), Count: counts[w]})
	}
	return words
}

// SplitWord returns the word-boundary marker followed by one element per
// character of word. Each literal "<unk>" stays a single element.
func SplitWord(word string) []string {
	tokens := make([]string, 0, utf8.RuneCountInString(word)+1)
	tokens = append(tokens, vocab.WordBoundary)

	for word != "" {
		if strings.HasPrefix(word, vocab.Unk) {
			tokens = append(tokens, vocab.Unk)
			word = word[len(vocab.Unk):]
			continue
		}
		_, size := utf8.DecodeRuneInString(word)
		tokens = append(tokens, word[:size])
		word = word[size:]
	}
	return tokens
}

// SubstituteUnknown replaces every occurrence of an invalid symbol in s with "<unk>".
func SubstituteUnknown(s string, invalid []string) string {
	if len(invalid) == 0 {
		return s
	}
	bad := toSet(invalid)

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if _, ok := bad[string(r)]; ok {
			b.WriteString(vocab.Unk)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
