// Package trainer learns a subword vocabulary from a corpus.
//
// Training starts from the corpus alphabet and runs merge rounds. Each round
// scores adjacent token pairs by count(left,right) / (count(left) * count(right)),
// accepts the best-ranked pairs up to the first one that shares a token with
// an already accepted pair, and merges them everywhere. Rounds repeat until
// the vocabulary, reserved tokens included, reaches the requested size.
package trainer

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/example/go-wordpiece/internal/metrics"
	"github.com/example/go-wordpiece/internal/store"
	"github.com/example/go-wordpiece/internal/vocab"
)

// Options configures a training run.
type Options struct {
	// VocabSize is the target size of the final vocabulary, reserved tokens included.
	VocabSize int
	// ValidSymbols, when non-nil, replaces alphabet extraction. MaxSymbols is then ignored.
	ValidSymbols []string
	// MaxSymbols keeps only the most frequent characters; NoSymbolLimit keeps all.
	MaxSymbols int
	// KeepUnknown trains on characters outside the alphabet as-is. By default
	// they are replaced with "<unk>" before words are indexed, as tokenizer.New
	// does when encoding.
	KeepUnknown bool
	// Store receives the valid symbols and the final vocabulary. Nil skips persistence.
	Store store.Store
	Logger *slog.Logger
	// MaxRounds bounds the number of merge rounds; 0 means unbounded.
	MaxRounds int
}

// Result is the outcome of a training run.
type Result struct {
	Vocabulary *vocab.Vocabulary
	// Merges holds every accepted rule in acceptance order.
	Merges []MergeRule
	// RoundMerges holds the number of rules accepted in each round.
	RoundMerges    []int
	InvalidSymbols []string
}

// Rounds returns the number of merge rounds that ran.
func (r *Result) Rounds() int { return len(r.RoundMerges) }

// Train learns a vocabulary from corpus.
func Train(ctx context.Context, corpus string, opts Options) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if opts.VocabSize <= vocab.NumReserved {
		return nil, fmt.Errorf("%w: vocab size %d leaves no room beside %d reserved tokens", ErrInvalidConfig, opts.VocabSize, vocab.NumReserved)
	}
	if strings.TrimSpace(corpus) == "" {
		return nil, fmt.Errorf("%w: empty corpus", ErrInvalidConfig)
	}

	var valid, invalid []string
	if opts.ValidSymbols != nil {
		valid = withBoundary(slices.Clone(opts.ValidSymbols))
		invalid = invalidSymbols(corpus, valid)
	} else {
		var err error
		valid, invalid, err = ExtractSymbols(corpus, opts.MaxSymbols)
		if err != nil {
			return nil, err
		}
	}

	logger.Info("symbols extracted", "valid", len(valid), "invalid", len(invalid))

	if opts.Store != nil {
		if err := opts.Store.SaveValidSymbols(valid); err != nil {
			return nil, fmt.Errorf("save valid symbols: %w", err)
		}
	}

	if !opts.KeepUnknown {
		corpus = SubstituteUnknown(corpus, invalid)
	}
	words := IndexWords(corpus)

	tokens := newTokenList(valid)
	res := &Result{InvalidSymbols: invalid}

	for tokens.finalSize() < opts.VocabSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if opts.MaxRounds > 0 && res.Rounds() >= opts.MaxRounds {
			return nil, fmt.Errorf("%w: %d rounds reached %d of %d tokens", ErrTrainingStalled, res.Rounds(), tokens.finalSize(), opts.VocabSize)
		}

		accepted := selectMerges(rankBigrams(words))
		if len(accepted) == 0 {
			return nil, fmt.Errorf("%w: no bigrams left at %d of %d tokens", ErrTrainingStalled, tokens.finalSize(), opts.VocabSize)
		}

		for _, m := range accepted {
			tokens.add(m.Merged())
		}
		for i := range words {
			words[i].Tokens = applyMerges(words[i].Tokens, accepted)
		}

		res.Merges = append(res.Merges, accepted...)
		res.RoundMerges = append(res.RoundMerges, len(accepted))
		metrics.RecordTrainingRound(len(accepted))

		logger.Debug("merge round",
			"round", res.Rounds(),
			"merges", len(accepted),
			"vocab_size", tokens.finalSize(),
		)
	}

	res.Vocabulary = vocab.New(tokens.list, valid)

	if opts.Store != nil {
		if err := opts.Store.SaveVocabulary(res.Vocabulary); err != nil {
			return nil, fmt.Errorf("save vocabulary: %w", err)
		}
	}

	logger.Info("training finished",
		"rounds", res.Rounds(),
		"merges", len(res.Merges),
		"vocab_size", res.Vocabulary.Len(),
	)

	return res, nil
}

// tokenList is the growing, duplicate-free list of learned tokens.
type tokenList struct {
	list []string
	set  map[string]struct{}
}

func newTokenList(symbols []string) *tokenList {
	t := &tokenList{set: make(map[string]struct{}, len(symbols))}
	for _, s := range symbols {
		t.add(s)
	}
	return t
}

func (t *tokenList) add(tok string) {
	if _, ok := t.set[tok]; ok {
		return
	}
	t.set[tok] = struct{}{}
	t.list = append(t.list, tok)
}

// finalSize is the vocabulary length once the reserved tokens not learned
// along the way are added.
func (t *tokenList) finalSize() int {
	n := len(t.list)
	for _, r := range vocab.Reserved() {
		if _, ok := t.set[r]; !ok {
			n++
		}
	}
	return n
}
