package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/gyaneshwarpardhi/omtree/internal/engine"
	"github.com/gyaneshwarpardhi/omtree/internal/logging"
	"github.com/gyaneshwarpardhi/omtree/internal/model"
	"github.com/gyaneshwarpardhi/omtree/internal/navigator"
	"github.com/gyaneshwarpardhi/omtree/internal/tui"
)

func newRootCmd() *cobra.Command {
	var f flags

	rootCmd := &cobra.Command{
		Use:   programName + " [name=value ...]",
		Short: "Run operation trees as interactive menus or one-shot commands",
		Long: "Without -o, shows the operation tree as a menu. With -o, runs that " +
			"operation non-interactively using name=value arguments for its parameters.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			logging.Setup(logging.Options{Level: f.logLevel, JSON: f.logJSON, Output: cmd.ErrOrStderr()})
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := parseParameters(args)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			p := tui.PrompterFor(os.Stdin, out)
			a, err := newApp(f, p, out)
			if err != nil {
				return err
			}

			if f.operation != "" {
				nav := navigator.New(a.loader.Tree, runnerFunc(func(ctx context.Context, op *model.Operation) *engine.RunResult {
					return a.run(ctx, op, model.ModeNonInteractive, params)
				}), p, out)
				res, err := nav.RunByID(cmd.Context(), f.operation)
				if err != nil {
					return err
				}
				if !res.Success() {
					return errOperationFailed
				}
				return nil
			}

			if len(params) > 0 {
				slog.Warn("name=value arguments are ignored without -o", "count", len(params))
			}
			if f.watch {
				stop, err := a.loader.Watch()
				if err != nil {
					slog.Warn("tree watcher unavailable (hot-reload disabled)", "error", err)
				} else {
					defer stop()
				}
			}
			nav := navigator.New(a.loader.Tree, runnerFunc(func(ctx context.Context, op *model.Operation) *engine.RunResult {
				return a.run(ctx, op, model.ModeInteractive, nil)
			}), p, out)
			return nav.Menu(cmd.Context())
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&f.customPath, "custom-path", "c", "", "Directory with api_definitions/, operation_menus/ and .env")
	pf.StringVarP(&f.treePath, "tree-path", "t", "", "Operation tree document (overrides the one under --custom-path)")
	pf.StringVarP(&f.mockPath, "mock-responses", "m", "", "Mock response document; API requests are answered from it")
	pf.BoolVarP(&f.skipLooping, "skip-looping", "s", false, "Run every loop block once without asking to repeat")
	pf.StringVarP(&f.logLevel, "log-level", "l", "info", "Log level (debug, info, warn, error)")
	pf.BoolVar(&f.logJSON, "log-json", false, "Log in JSON format")
	pf.BoolVar(&f.watch, "watch", false, "Reload the tree when its file changes")
	rootCmd.Flags().StringVarP(&f.operation, "operation", "o", "", "Run this operation non-interactively and exit")

	rootCmd.AddCommand(newValidateCmd(&f), newReplayCmd(), newServeCmd(&f))
	return rootCmd
}
