package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/shlex"
	"github.com/spf13/cobra"
)

func newReplayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "replay '<replay command>'",
		Short: "Run a replay command printed at the end of an interactive run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tokens, err := replayArgs(args[0])
			if err != nil {
				return err
			}
			root := newRootCmd()
			root.SetArgs(tokens)
			root.SetIn(cmd.InOrStdin())
			root.SetOut(cmd.OutOrStdout())
			root.SetErr(cmd.ErrOrStderr())
			return root.ExecuteContext(cmd.Context())
		},
	}
}

// replayArgs splits a replay command into root command arguments, dropping
// the leading program name.
func replayArgs(command string) ([]string, error) {
	tokens, err := shlex.Split(command)
	if err != nil {
		return nil, fmt.Errorf("parse replay command: %w", err)
	}
	if len(tokens) > 0 && !strings.HasPrefix(tokens[0], "-") {
		tokens = tokens[1:]
	}
	if len(tokens) > 0 && !strings.HasPrefix(tokens[0], "-") {
		return nil, fmt.Errorf("replay command cannot run subcommand %q", tokens[0])
	}
	for _, t := range tokens {
		if t == "-o" || t == "--operation" || strings.HasPrefix(t, "--operation=") {
			return tokens, nil
		}
	}
	return nil, errors.New("replay command has no -o operation")
}
