package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gyaneshwarpardhi/omtree/internal/config"
	"github.com/gyaneshwarpardhi/omtree/internal/model"
	"github.com/gyaneshwarpardhi/omtree/internal/prompt"
	"github.com/gyaneshwarpardhi/omtree/internal/tui"
)

func newValidateCmd(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Load the documents and report every validation error",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			a, err := newApp(*f, prompt.NewLine(cmd.InOrStdin(), out), out)
			var verrs config.ValidationErrors
			if errors.As(err, &verrs) {
				for _, e := range verrs {
					fmt.Fprintln(out, tui.Outcome(false, e.Error()))
				}
				return fmt.Errorf("%d validation errors", len(verrs))
			}
			if err != nil {
				return err
			}

			ops := 0
			_ = a.bundle.Tree.Walk(func(*model.Operation, int) error {
				ops++
				return nil
			})
			fmt.Fprintln(out, tui.Outcome(true, fmt.Sprintf("%s is valid: %d operations, %d functions, %d APIs",
				a.bundle.TreePath, ops, len(a.registry.Functions()), len(a.registry.APIs()))))
			return nil
		},
	}
}
