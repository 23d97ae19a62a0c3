// Package tokenizer segments text into vocabulary tokens and back.
//
// Each whitespace-separated word is prefixed with the word-boundary marker
// and split greedily: the longest vocabulary token that prefixes the rest
// of the word is taken, then the search restarts after it. A word with no
// matching prefix ends in "<unk>" and its remaining characters are dropped.
package tokenizer

import (
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"github.com/example/go-wordpiece/internal/metrics"
	"github.com/example/go-wordpiece/internal/progress"
	"github.com/example/go-wordpiece/internal/text"
	"github.com/example/go-wordpiece/internal/vocab"
)

// Tokenizer encodes and decodes text against a trained vocabulary. It is
// safe for concurrent use when its progress reporter is.
type Tokenizer struct {
	vocab      *vocab.Vocabulary
	substitute bool
	progress   progress.Reporter
	logger     *slog.Logger
}

// Option configures a Tokenizer.
type Option func(*Tokenizer)

// WithSubstituteUnknown controls whether characters outside the base alphabet
// are replaced with "<unk>" before segmentation. Enabled by default.
func WithSubstituteUnknown(enabled bool) Option {
	return func(t *Tokenizer) {
		t.substitute = enabled
	}
}

// WithProgress reports per-word progress of Encode.
func WithProgress(r progress.Reporter) Option {
	return func(t *Tokenizer) {
		if r != nil {
			t.progress = r
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(t *Tokenizer) {
		if l != nil {
			t.logger = l
		}
	}
}

// New returns a Tokenizer for v.
func New(v *vocab.Vocabulary, opts ...Option) *Tokenizer {
	t := &Tokenizer{
		vocab:      v,
		substitute: true,
		progress:   progress.Nop{},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Vocabulary returns the vocabulary the tokenizer encodes against.
func (t *Tokenizer) Vocabulary() *vocab.Vocabulary { return t.vocab }

// Encode returns the token indices of s.
func (t *Tokenizer) Encode(s string) ([]int, error) {
	ids, _, err := t.encode(s, t.progress)
	return ids, err
}

// EncodeTokens returns both the token indices and the token strings of s.
func (t *Tokenizer) EncodeTokens(s string) ([]int, []string, error) {
	return t.encode(s, t.progress)
}

// Tokenize returns the token strings of s.
func (t *Tokenizer) Tokenize(s string) []string {
	tokens, _ := t.tokenize(s, progress.Nop{})
	return tokens
}

// TokenizeWord segments a single word that already starts with the
// word-boundary marker.
func (t *Tokenizer) TokenizeWord(word string) []string {
	tokens, _ := t.segment(word)
	return tokens
}

func (t *Tokenizer) encode(s string, r progress.Reporter) ([]int, []string, error) {
	tokens, fallbacks := t.tokenize(s, r)

	ids := make([]int, len(tokens))
	for i, tok := range tokens {
		idx, ok := t.vocab.Index(tok)
		if !ok {
			return nil, nil, fmt.Errorf("%w: %q", vocab.ErrUnknownToken, tok)
		}
		ids[i] = idx
	}

	metrics.RecordEncode(len(ids), fallbacks)
	return ids, tokens, nil
}

func (t *Tokenizer) tokenize(s string, r progress.Reporter) (tokens []string, fallbacks int) {
	if t.substitute {
		s = t.substituteUnknown(s)
	}

	words := text.Words(s)
	r.Start(len(words))
	defer r.Finish()

	for _, w := range words {
		segs, fellBack := t.segment(vocab.WordBoundary + w)
		if fellBack {
			fallbacks++
			t.logger.Debug("no token matched, emitting <unk>", "word", w)
		}
		tokens = append(tokens, segs...)
		r.Advance(1)
	}
	return tokens, fallbacks
}

// segment splits word by greedy longest match. Candidates longer than the
// longest vocabulary token are never probed.
func (t *Tokenizer) segment(word string) (tokens []string, fellBack bool) {
	runes := []rune(word)
	longest := t.vocab.MaxTokenRunes()

	for start := 0; start < len(runes); {
		end := min(len(runes), start+longest)
		for end > start && !t.vocab.Contains(string(runes[start:end])) {
			end--
		}
		if end == start {
			return append(tokens, vocab.Unk), true
		}
		tokens = append(tokens, string(runes[start:end]))
		start = end
	}
	return tokens, false
}

func (t *Tokenizer) substituteUnknown(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsSpace(r) || t.vocab.IsValidSymbol(string(r)) {
			b.WriteRune(r)
			continue
		}
		b.WriteString(vocab.Unk)
	}
	return b.String()
}
