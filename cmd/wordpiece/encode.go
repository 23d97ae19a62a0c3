package main

import (
	"encoding/json"
	"io"

	"github.com/example/go-wordpiece/internal/text"
	"github.com/example/go-wordpiece/internal/tokenizer"
	"github.com/spf13/cobra"
)

func newEncodeCmd() *cobra.Command {
	var input string
	var lines bool
	var tokens bool

	cmd := &cobra.Command{
		Use:   "encode",
		Short: "Encode text into token ids",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			in, err := readText(input, cmd.InOrStdin())
			if err != nil {
				return err
			}

			tok, err := loadTokenizer(cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			out, err := encodeInput(tok, in, encodeMode{
				Lines:   lines,
				Tokens:  tokens,
				Workers: cfg.Tokenizer.Workers,
			})
			if err != nil {
				return err
			}
			return writeJSONLine(cmd.OutOrStdout(), out)
		},
	}

	cmd.Flags().StringVar(&input, "text", "", "Text to encode (if empty, read from stdin)")
	cmd.Flags().BoolVar(&lines, "lines", false, "Encode each input line independently")
	cmd.Flags().BoolVar(&tokens, "tokens", false, "Print token strings instead of ids")

	return cmd
}

type encodeMode struct {
	Lines   bool
	Tokens  bool
	Workers int
}

// encodeInput returns ids or token strings for in, one result per line in
// line mode.
func encodeInput(tok *tokenizer.Tokenizer, in string, mode encodeMode) (any, error) {
	if !mode.Lines {
		if mode.Tokens {
			return tok.Tokenize(in), nil
		}
		return tok.Encode(in)
	}

	ls := text.Lines(in)
	if mode.Tokens {
		out := make([][]string, len(ls))
		for i, line := range ls {
			out[i] = tok.Tokenize(line)
		}
		return out, nil
	}
	return tok.EncodeBatch(ls, mode.Workers)
}

func writeJSONLine(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
