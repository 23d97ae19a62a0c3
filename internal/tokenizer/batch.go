package tokenizer

import (
	"runtime"

	"github.com/sourcegraph/conc/iter"

	"github.com/example/go-wordpiece/internal/progress"
)

// EncodeBatch encodes each text independently with up to workers goroutines
// and returns the results in input order. workers <= 0 uses GOMAXPROCS.
// Progress is reported per text.
func (t *Tokenizer) EncodeBatch(texts []string, workers int) ([][]int, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	t.progress.Start(len(texts))
	defer t.progress.Finish()

	mapper := iter.Mapper[string, []int]{MaxGoroutines: workers}
	return mapper.MapErr(texts, func(s *string) ([]int, error) {
		ids, _, err := t.encode(*s, progress.Nop{})
		t.progress.Advance(1)
		return ids, err
	})
}
