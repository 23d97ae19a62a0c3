package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/example/go-wordpiece/internal/doctor"
	"github.com/example/go-wordpiece/internal/server"
	"github.com/spf13/cobra"
)

func newDoctorCmd() *cobra.Command {
	var serverAddr string

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check the vocabulary artifacts and, optionally, a running server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			dcfg := doctor.Config{VocabDir: cfg.Paths.VocabDir}
			if serverAddr != "" {
				dcfg.ServerHealth = func() error { return server.ProbeHTTP(serverAddr) }
			}

			return runDoctor(dcfg, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().StringVar(&serverAddr, "server", "", "Also probe the health endpoint at this address")

	return cmd
}

func runDoctor(dcfg doctor.Config, stdout, stderr io.Writer) error {
	result := doctor.Run(dcfg, stdout)
	if result.Failed() {
		for _, f := range result.Failures() {
			_, _ = fmt.Fprintf(stderr, "FAIL: %s\n", f)
		}
		return errors.New("doctor checks failed")
	}

	_, _ = fmt.Fprintln(stdout, "doctor checks passed")
	return nil
}
