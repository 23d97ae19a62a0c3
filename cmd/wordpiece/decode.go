package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"
)

func newDecodeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decode [ids...]",
		Short: "Decode token ids back into text",
		Long:  "Decode token ids given as arguments, or a JSON array of ids read from stdin.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			ids, err := parseIDs(args, cmd.InOrStdin())
			if err != nil {
				return err
			}

			tok, err := loadTokenizer(cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			out, err := tok.Decode(ids)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), out)
			return err
		},
	}

	return cmd
}

func parseIDs(args []string, stdin io.Reader) ([]int, error) {
	if len(args) == 0 {
		var ids []int
		if err := json.NewDecoder(stdin).Decode(&ids); err != nil {
			return nil, fmt.Errorf("read ids from stdin: %w", err)
		}
		return ids, nil
	}

	ids := make([]int, len(args))
	for i, a := range args {
		n, err := strconv.Atoi(a)
		if err != nil {
			return nil, fmt.Errorf("invalid id %q: %w", a, err)
		}
		ids[i] = n
	}
	return ids, nil
}
