package main

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/example/go-wordpiece/internal/bench"
	"github.com/example/go-wordpiece/internal/tokenizer"
	"github.com/spf13/cobra"
)

func newBenchCmd() *cobra.Command {
	var (
		input    string
		runs     int
		format   string
		minSpeed float64
	)

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Benchmark encode latency and throughput",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			if runs < 1 {
				return errors.New("--runs must be at least 1")
			}
			if format != "table" && format != "json" {
				return errors.New("--format must be 'table' or 'json'")
			}

			in, err := readText(input, cmd.InOrStdin())
			if err != nil {
				return err
			}

			// Progress output would dominate the timings.
			cfg.Tokenizer.Progress = false
			tok, err := loadTokenizer(cfg, io.Discard)
			if err != nil {
				return err
			}

			results, err := runBench(tok, in, runs)
			if err != nil {
				return err
			}

			durations := make([]time.Duration, len(results))
			for i, r := range results {
				durations[i] = r.Duration
			}
			stats := bench.ComputeStats(durations)

			switch format {
			case "json":
				bench.FormatJSON(results, stats, cmd.OutOrStdout())
			default:
				bench.FormatTable(results, stats, cmd.OutOrStdout())
			}

			return bench.CheckThroughputFloor(bench.MeanThroughput(results), minSpeed)
		},
	}

	cmd.Flags().StringVar(&input, "text", "", "Text to encode on each run (if empty, read from stdin)")
	cmd.Flags().IntVar(&runs, "runs", 5, "Number of encode runs")
	cmd.Flags().StringVar(&format, "format", "table", "Output format: table|json")
	cmd.Flags().Float64Var(&minSpeed, "min-tokens-per-sec", 0, "Exit non-zero if mean throughput falls below this value (0 = disabled)")

	return cmd
}

func runBench(tok *tokenizer.Tokenizer, in string, runs int) ([]bench.RunResult, error) {
	results := make([]bench.RunResult, 0, runs)

	for i := range runs {
		start := time.Now()
		ids, err := tok.Encode(in)
		if err != nil {
			return nil, fmt.Errorf("run %d failed: %w", i+1, err)
		}
		dur := time.Since(start)

		results = append(results, bench.RunResult{
			Index:        i,
			Cold:         i == 0,
			Duration:     dur,
			Tokens:       len(ids),
			TokensPerSec: bench.CalcThroughput(len(ids), dur),
		})
	}

	return results, nil
}
