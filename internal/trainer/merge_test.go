package trainer

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func ranked(pairs ...[2]string) []scoredBigram {
	out := make([]scoredBigram, 0, len(pairs))
	for i, p := range pairs {
		out = append(out, scoredBigram{Bigram: Bigram{Left: p[0], Right: p[1]}, score: float64(len(pairs) - i)})
	}
	return out
}

func TestMergeRule_Merged(t *testing.T) {
	if got := (MergeRule{Left: "_a", Right: "b"}).Merged(); got != "_ab" {
		t.Errorf("Merged() = %q; want %q", got, "_ab")
	}
}

func TestCountNgrams(t *testing.T) {
	words := []Word{
		{Tokens: []string{"_", "a", "a"}, Count: 2},
		{Tokens: []string{"_", "b", "a"}, Count: 1},
	}

	uni, bi, order := countNgrams(words)

	wantUni := map[string]int{"_": 3, "a": 5, "b": 1}
	if diff := cmp.Diff(wantUni, uni); diff != "" {
		t.Errorf("unigrams mismatch (-want +got):\n%s", diff)
	}

	wantBi := map[Bigram]int{
		{"_", "a"}: 2,
		{"a", "a"}: 2,
		{"_", "b"}: 1,
		{"b", "a"}: 1,
	}
	if diff := cmp.Diff(wantBi, bi); diff != "" {
		t.Errorf("bigrams mismatch (-want +got):\n%s", diff)
	}

	wantOrder := []Bigram{{"_", "a"}, {"a", "a"}, {"_", "b"}, {"b", "a"}}
	if diff := cmp.Diff(wantOrder, order); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestRankBigrams(t *testing.T) {
	// unigrams: _ 2, a 2, b 1, c 1
	// (_,a) 2/(2*2)=0.5  (_,b) ... not present
	// (a,b) 1/(2*1)=0.5  (a,c) 1/(2*1)=0.5
	words := []Word{
		{Tokens: []string{"_", "a", "b"}, Count: 1},
		{Tokens: []string{"_", "a", "c"}, Count: 1},
	}

	got := rankBigrams(words)
	want := []Bigram{{"_", "a"}, {"a", "b"}, {"a", "c"}}

	if len(got) != len(want) {
		t.Fatalf("got %d bigrams, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].Bigram != want[i] {
			t.Errorf("rank %d = %v; want %v (ties keep first-seen order)", i, got[i].Bigram, want[i])
		}
		if got[i].score != 0.5 {
			t.Errorf("rank %d score = %v; want 0.5", i, got[i].score)
		}
	}
}

func TestRankBigrams_HigherScoreFirst(t *testing.T) {
	// (x,y) appears only together: 3/(3*3). (_,x) 3/(6*3). (_,z) 3/(6*3).
	words := []Word{
		{Tokens: []string{"_", "x", "y"}, Count: 3},
		{Tokens: []string{"_", "z"}, Count: 3},
	}

	got := rankBigrams(words)
	if got[0].Bigram != (Bigram{"x", "y"}) {
		t.Errorf("top bigram = %v; want {x y}", got[0].Bigram)
	}
}

func TestSelectMerges(t *testing.T) {
	tests := []struct {
		name   string
		ranked []scoredBigram
		want   []MergeRule
	}{
		{
			name:   "empty",
			ranked: nil,
			want:   nil,
		},
		{
			name:   "independent bigrams all accepted",
			ranked: ranked([2]string{"a", "b"}, [2]string{"c", "d"}),
			want:   []MergeRule{{"a", "b"}, {"c", "d"}},
		},
		{
			name:   "stops at first conflict even if later ones are free",
			ranked: ranked([2]string{"x", "y"}, [2]string{"y", "z"}, [2]string{"p", "q"}),
			want:   []MergeRule{{"x", "y"}},
		},
		{
			name:   "conflict on right token",
			ranked: ranked([2]string{"x", "y"}, [2]string{"p", "q"}, [2]string{"q", "x"}, [2]string{"r", "s"}),
			want:   []MergeRule{{"x", "y"}, {"p", "q"}},
		},
		{
			name:   "self pair blocks its token",
			ranked: ranked([2]string{"a", "a"}, [2]string{"a", "b"}),
			want:   []MergeRule{{"a", "a"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, selectMerges(tt.ranked)); diff != "" {
				t.Errorf("selectMerges mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestApplyMerges(t *testing.T) {
	tests := []struct {
		name   string
		tokens []string
		rules  []MergeRule
		want   []string
	}{
		{
			name:   "every occurrence",
			tokens: []string{"_", "a", "b", "a", "b"},
			rules:  []MergeRule{{"a", "b"}},
			want:   []string{"_", "ab", "ab"},
		},
		{
			name:   "non-overlapping left to right",
			tokens: []string{"_", "a", "a", "a"},
			rules:  []MergeRule{{"a", "a"}},
			want:   []string{"_", "aa", "a"},
		},
		{
			name:   "token level, not substring level",
			tokens: []string{"_", "ab", "c"},
			rules:  []MergeRule{{"b", "c"}},
			want:   []string{"_", "ab", "c"},
		},
		{
			name:   "rules applied in order",
			tokens: []string{"_", "a", "b", "c"},
			rules:  []MergeRule{{"_", "a"}, {"b", "c"}},
			want:   []string{"_a", "bc"},
		},
		{
			name:   "no match leaves tokens",
			tokens: []string{"_", "x"},
			rules:  []MergeRule{{"a", "b"}},
			want:   []string{"_", "x"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, applyMerges(tt.tokens, tt.rules)); diff != "" {
				t.Errorf("applyMerges mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
