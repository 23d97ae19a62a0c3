package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/example/go-wordpiece/internal/config"
	"github.com/example/go-wordpiece/internal/progress"
	"github.com/example/go-wordpiece/internal/store"
	"github.com/example/go-wordpiece/internal/text"
	"github.com/example/go-wordpiece/internal/tokenizer"
	"github.com/spf13/afero"
)

// readCorpus concatenates the named files, one per line, or reads stdin when
// no file is given.
func readCorpus(fs afero.Fs, paths []string, stdin io.Reader) (string, error) {
	if len(paths) == 0 {
		b, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(b), nil
	}

	parts := make([]string, 0, len(paths))
	for _, p := range paths {
		b, err := afero.ReadFile(fs, p)
		if err != nil {
			return "", fmt.Errorf("read corpus: %w", err)
		}
		parts = append(parts, string(b))
	}
	return strings.Join(parts, "\n"), nil
}

// readText returns the flag text, or stdin when the flag is empty.
func readText(flagText string, stdin io.Reader) (string, error) {
	input := flagText
	if strings.TrimSpace(input) == "" {
		b, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		input = string(b)
	}

	normalized, err := text.Normalize(input)
	if errors.Is(err, text.ErrEmptyText) {
		return "", errors.New("either provide --text or pipe text on stdin")
	}
	return normalized, err
}

// loadTokenizer reads the vocabulary from cfg.Paths.VocabDir. Progress lines
// go to progressOut when cfg.Tokenizer.Progress is set.
func loadTokenizer(cfg config.Config, progressOut io.Writer) (*tokenizer.Tokenizer, error) {
	st := store.NewOSDir(cfg.Paths.VocabDir)
	if !st.Exists() {
		return nil, fmt.Errorf("%w in %s; run wordpiece train first", store.ErrNotFound, cfg.Paths.VocabDir)
	}

	v, err := st.Load()
	if err != nil {
		return nil, err
	}

	opts := []tokenizer.Option{
		tokenizer.WithSubstituteUnknown(cfg.Tokenizer.SubstituteUnknown),
	}
	if cfg.Tokenizer.Progress {
		opts = append(opts, tokenizer.WithProgress(progress.NewWriter(progressOut, "words", progress.DefaultInterval)))
	}
	return tokenizer.New(v, opts...), nil
}
