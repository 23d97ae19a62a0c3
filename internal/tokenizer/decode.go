package tokenizer

import (
	"fmt"
	"strings"

	"github.com/example/go-wordpiece/internal/metrics"
	"github.com/example/go-wordpiece/internal/vocab"
)

// Decode joins the tokens of ids and turns every word-boundary marker into a
// space. A text decoded from an encoding therefore starts with a space.
func (t *Tokenizer) Decode(ids []int) (string, error) {
	var b strings.Builder
	for pos, id := range ids {
		tok, err := t.vocab.Token(id)
		if err != nil {
			metrics.RecordDecodeError()
			return "", fmt.Errorf("decode position %d: %w", pos, err)
		}
		b.WriteString(tok)
	}
	return strings.ReplaceAll(b.String(), vocab.WordBoundary, " "), nil
}
