package trainer

import (
	"cmp"
	"slices"
)

// Bigram is an ordered pair of adjacent tokens.
type Bigram struct {
	Left, Right string
}

// MergeRule is a bigram accepted during training.
type MergeRule struct {
	Left, Right string
}

// Merged returns the token the rule produces.
func (m MergeRule) Merged() string { return m.Left + m.Right }

type scoredBigram struct {
	Bigram
	score float64
}

// countNgrams counts tokens and adjacent token pairs over all words, each
// occurrence weighted by the word's corpus count. order lists bigrams as
// first seen.
func countNgrams(words []Word) (unigrams map[string]int, bigrams map[Bigram]int, order []Bigram) {
	unigrams = make(map[string]int)
	bigrams = make(map[Bigram]int)

	for _, w := range words {
		for i, tok := range w.Tokens {
			unigrams[tok] += w.Count
			if i == 0 {
				continue
			}
			b := Bigram{Left: w.Tokens[i-1], Right: tok}
			if _, seen := bigrams[b]; !seen {
				order = append(order, b)
			}
			bigrams[b] += w.Count
		}
	}
	return unigrams, bigrams, order
}

// rankBigrams scores every bigram as count(left,right) / (count(left) * count(right))
// and sorts by score, highest first. Equal scores keep first-seen order.
func rankBigrams(words []Word) []scoredBigram {
	unigrams, bigrams, order := countNgrams(words)

	ranked := make([]scoredBigram, 0, len(order))
	for _, b := range order {
		score := float64(bigrams[b]) / (float64(unigrams[b.Left]) * float64(unigrams[b.Right]))
		ranked = append(ranked, scoredBigram{Bigram: b, score: score})
	}

	slices.SortStableFunc(ranked, func(a, b scoredBigram) int {
		return cmp.Compare(b.score, a.score)
	})
	return ranked
}

// selectMerges walks ranked and accepts bigrams until it meets the first one
// sharing a token with an already accepted bigram. Nothing after that
// bigram is considered, even if it would not conflict.
func selectMerges(ranked []scoredBigram) []MergeRule {
	used := make(map[string]struct{})

	var rules []MergeRule
	for _, c := range ranked {
		_, leftUsed := used[c.Left]
		_, rightUsed := used[c.Right]
		if leftUsed || rightUsed {
			break
		}
		rules = append(rules, MergeRule{Left: c.Left, Right: c.Right})
		used[c.Left] = struct{}{}
		used[c.Right] = struct{}{}
	}
	return rules
}

// applyMerges rewrites tokens with each rule in turn. Every adjacent
// occurrence of a rule's pair is replaced, scanning left to right without
// overlap.
func applyMerges(tokens []string, rules []MergeRule) []string {
	for _, r := range rules {
		tokens = applyMerge(tokens, r)
	}
	return tokens
}

func applyMerge(tokens []string, r MergeRule) []string {
	out := make([]string, 0, len(tokens))
	for i := 0; i < len(tokens); {
		if i+1 < len(tokens) && tokens[i] == r.Left && tokens[i+1] == r.Right {
			out = append(out, r.Merged())
			i += 2
			continue
		}
		out = append(out, tokens[i])
		i++
	}
	return out
}
