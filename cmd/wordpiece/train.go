package main

import (
	"fmt"
	"io"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/example/go-wordpiece/internal/store"
	"github.com/example/go-wordpiece/internal/trainer"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

func newTrainCmd() *cobra.Command {
	var corpusFiles []string
	var vocabSize int
	var maxSymbols int
	var maxRounds int

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Learn a vocabulary from a corpus and write its artifacts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			if cmd.Flags().Changed("vocab-size") {
				cfg.Training.VocabSize = vocabSize
			}
			if cmd.Flags().Changed("max-symbols") {
				cfg.Training.MaxSymbols = maxSymbols
			}

			corpus, err := readCorpus(afero.NewOsFs(), corpusFiles, cmd.InOrStdin())
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			res, err := trainer.Train(ctx, corpus, trainer.Options{
				VocabSize:         cfg.Training.VocabSize,
				MaxSymbols:        cfg.Training.MaxSymbols,
				KeepUnknown:       !cfg.Tokenizer.SubstituteUnknown,
				Store:             store.NewOSDir(cfg.Paths.VocabDir),
				Logger:            slog.Default(),
				MaxRounds:         maxRounds,
			})
			if err != nil {
				return err
			}

			return writeTrainSummary(cmd.OutOrStdout(), res, cfg.Paths.VocabDir)
		},
	}

	cmd.Flags().StringSliceVar(&corpusFiles, "corpus", nil, "Corpus file(s); reads stdin when omitted")
	cmd.Flags().IntVar(&vocabSize, "vocab-size", 0, "Target vocabulary size (overrides training.vocab_size)")
	cmd.Flags().IntVar(&maxSymbols, "max-symbols", 0, "Keep only the N most frequent characters (overrides training.max_symbols)")
	cmd.Flags().IntVar(&maxRounds, "max-rounds", 0, "Abort after N merge rounds (0 = unbounded)")

	return cmd
}

func writeTrainSummary(w io.Writer, res *trainer.Result, dir string) error {
	_, err := fmt.Fprintf(w,
		"vocabulary: %d tokens, %d merges in %d rounds\ninvalid symbols: %d\nwritten to %s\n",
		res.Vocabulary.Len(), len(res.Merges), res.Rounds(), len(res.InvalidSymbols), dir,
	)
	return err
}
