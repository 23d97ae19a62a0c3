// Package vocab defines the trained vocabulary shared by the trainer and the
// tokenizer: the ordered token list, its inverse index and the base alphabet.
//
// A Vocabulary is immutable once built and safe for concurrent readers.
package vocab

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"go.uber.org/multierr"
)

// Reserved control tokens and the word-boundary marker.
const (
	Pad  = "<pad>"
	CLS  = "<cls>"
	Sep  = "<sep>"
	Mask = "<mask>"
	Unk  = "<unk>"

	// WordBoundary prefixes every word; decoding turns it back into a space.
	WordBoundary = "_"
)

// reserved is the fixed prefix of every vocabulary: index 0 is <pad>, 4 is <unk>.
var reserved = [...]string{Pad, CLS, Sep, Mask, Unk}

var (
	// ErrIndexOutOfRange is returned when a token index has no token.
	ErrIndexOutOfRange = errors.New("token index out of range")
	// ErrUnknownToken is returned when a token string has no index.
	ErrUnknownToken = errors.New("token not in vocabulary")
	// ErrInvalidVocabulary wraps every artifact consistency failure.
	ErrInvalidVocabulary = errors.New("invalid vocabulary")
)

// Reserved returns the reserved tokens in index order.
func Reserved() []string {
	return append([]string(nil), reserved[:]...)
}

// NumReserved is the number of reserved tokens at the front of every vocabulary.
const NumReserved = len(reserved)

// IsReserved reports whether tok is one of the reserved control tokens.
func IsReserved(tok string) bool {
	for _, r := range reserved {
		if tok == r {
			return true
		}
	}
	return false
}

// Vocabulary maps tokens to indices and back. Index assignment is a pure
// function of token order.
type Vocabulary struct {
	tokens        []string
	index         map[string]int
	validSymbols  []string
	symbolSet     map[string]struct{}
	maxTokenRunes int
}

// New freezes a trained token list. The reserved tokens are placed at
// indices 0-4; any reserved token or repeated string found in tokens is
// dropped from its later position so indices stay unique.
func New(tokens, validSymbols []string) *Vocabulary {
	ordered := make([]string, 0, len(reserved)+len(tokens))
	ordered = append(ordered, reserved[:]...)

	seen := make(map[string]struct{}, cap(ordered))
	for _, r := range reserved {
		seen[r] = struct{}{}
	}
	for _, tok := range tokens {
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		ordered = append(ordered, tok)
	}

	index := make(map[string]int, len(ordered))
	for i, tok := range ordered {
		index[tok] = i
	}

	return build(ordered, index, validSymbols)
}

// FromArtifacts rebuilds a Vocabulary from its persisted form and checks that
// idx2token starts with the reserved tokens, holds no duplicates, and that
// token2idx is its exact inverse. All problems are reported together.
func FromArtifacts(idx2token []string, token2idx map[string]int, validSymbols []string) (*Vocabulary, error) {
	var errs error

	if len(idx2token) < len(reserved) {
		errs = multierr.Append(errs, fmt.Errorf("idx2token has %d entries, need at least %d reserved", len(idx2token), len(reserved)))
	} else {
		for i, r := range reserved {
			if idx2token[i] != r {
				errs = multierr.Append(errs, fmt.Errorf("idx2token[%d] = %q, want %q", i, idx2token[i], r))
			}
		}
	}

	firstAt := make(map[string]int, len(idx2token))
	for i, tok := range idx2token {
		if prev, dup := firstAt[tok]; dup {
			errs = multierr.Append(errs, fmt.Errorf("token %q appears at %d and %d", tok, prev, i))
			continue
		}
		firstAt[tok] = i
	}

	if len(token2idx) != len(idx2token) {
		errs = multierr.Append(errs, fmt.Errorf("token2idx has %d entries, idx2token has %d", len(token2idx), len(idx2token)))
	}
	for tok, idx := range token2idx {
		if idx < 0 || idx >= len(idx2token) {
			errs = multierr.Append(errs, fmt.Errorf("token2idx[%q] = %d is out of range", tok, idx))
			continue
		}
		if idx2token[idx] != tok {
			errs = multierr.Append(errs, fmt.Errorf("token2idx[%q] = %d but idx2token[%d] = %q", tok, idx, idx, idx2token[idx]))
		}
	}

	if errs != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidVocabulary, errs)
	}

	index := make(map[string]int, len(token2idx))
	for tok, idx := range token2idx {
		index[tok] = idx
	}

	return build(append([]string(nil), idx2token...), index, validSymbols), nil
}

func build(tokens []string, index map[string]int, validSymbols []string) *Vocabulary {
	v := &Vocabulary{
		tokens:       tokens,
		index:        index,
		validSymbols: append([]string(nil), validSymbols...),
		symbolSet:    make(map[string]struct{}, len(validSymbols)),
	}
	for _, s := range validSymbols {
		v.symbolSet[s] = struct{}{}
	}
	for _, tok := range tokens {
		if n := utf8.RuneCountInString(tok); n > v.maxTokenRunes {
			v.maxTokenRunes = n
		}
	}
	return v
}

// Len returns the number of tokens, reserved ones included.
func (v *Vocabulary) Len() int { return len(v.tokens) }

// Tokens returns a copy of the ordered token list (idx2token).
func (v *Vocabulary) Tokens() []string { return append([]string(nil), v.tokens...) }

// TokenToIndex returns a copy of the token→index map (token2idx).
func (v *Vocabulary) TokenToIndex() map[string]int {
	out := make(map[string]int, len(v.index))
	for tok, idx := range v.index {
		out[tok] = idx
	}
	return out
}

// ValidSymbols returns a copy of the base alphabet.
func (v *Vocabulary) ValidSymbols() []string { return append([]string(nil), v.validSymbols...) }

// Token returns the token at index i.
func (v *Vocabulary) Token(i int) (string, error) {
	if i < 0 || i >= len(v.tokens) {
		return "", fmt.Errorf("%w: %d (vocabulary has %d tokens)", ErrIndexOutOfRange, i, len(v.tokens))
	}
	return v.tokens[i], nil
}

// Index returns the index of tok.
func (v *Vocabulary) Index(tok string) (int, bool) {
	idx, ok := v.index[tok]
	return idx, ok
}

// Contains reports whether tok is a vocabulary member.
func (v *Vocabulary) Contains(tok string) bool {
	_, ok := v.index[tok]
	return ok
}

// IsValidSymbol reports whether the single-character string s belongs to the base alphabet.
func (v *Vocabulary) IsValidSymbol(s string) bool {
	_, ok := v.symbolSet[s]
	return ok
}

// MaxTokenRunes is the length in runes of the longest token.
func (v *Vocabulary) MaxTokenRunes() int { return v.maxTokenRunes }
