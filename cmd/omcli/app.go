package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/gyaneshwarpardhi/omtree/internal/action"
	"github.com/gyaneshwarpardhi/omtree/internal/action/packs/common"
	"github.com/gyaneshwarpardhi/omtree/internal/action/packs/files"
	"github.com/gyaneshwarpardhi/omtree/internal/action/packs/jsonpack"
	"github.com/gyaneshwarpardhi/omtree/internal/action/packs/shell"
	"github.com/gyaneshwarpardhi/omtree/internal/config"
	"github.com/gyaneshwarpardhi/omtree/internal/dispatch"
	"github.com/gyaneshwarpardhi/omtree/internal/engine"
	"github.com/gyaneshwarpardhi/omtree/internal/model"
	"github.com/gyaneshwarpardhi/omtree/internal/param"
	"github.com/gyaneshwarpardhi/omtree/internal/prompt"
)

const programName = "omcli"

// errOperationFailed marks a non-interactive run whose result was a failure.
// The outcome has already been printed.
var errOperationFailed = errors.New("operation failed")

// flags are the document and behavior flags shared by every command.
type flags struct {
	customPath  string
	treePath    string
	mockPath    string
	operation   string
	skipLooping bool
	logLevel    string
	logJSON     bool
	watch       bool
}

// app is one loaded and validated session.
type app struct {
	flags    flags
	loader   *config.Loader
	bundle   *config.Bundle
	registry *action.Registry
	prompter prompt.Prompter
	out      io.Writer
}

func newApp(f flags, p prompt.Prompter, out io.Writer) (*app, error) {
	a := &app{flags: f, prompter: p, out: out, registry: action.NewRegistry()}

	for _, pack := range []action.Pack{common.New(out, p), jsonpack.New(out), files.New(out), shell.New(out)} {
		if err := a.registry.Register(pack); err != nil {
			return nil, fmt.Errorf("register pack %s: %w", pack.Name(), err)
		}
	}

	loader, bundle, err := config.Load(config.Options{
		CustomPath: f.customPath,
		TreePath:   f.treePath,
		MockPath:   f.mockPath,
		Check:      a.validate,
	})
	if err != nil {
		return nil, err
	}
	for _, def := range bundle.APIs {
		if err := a.registry.RegisterAPI(def); err != nil {
			return nil, fmt.Errorf("api definition %s: %w", def.ID, err)
		}
	}
	if err := a.validate(bundle.Tree); err != nil {
		return nil, err
	}
	a.loader, a.bundle = loader, bundle
	slog.Debug("session loaded",
		"tree", bundle.TreePath,
		"functions", len(a.registry.Functions()),
		"apis", len(a.registry.APIs()),
		"mock", bundle.Mocks != nil)
	return a, nil
}

func (a *app) validate(tree *model.Tree) error {
	return config.Validate(tree, a.registry)
}

// run executes op against the current tree's variables. Each run gets its own
// resolver so argument maps never leak between runs.
func (a *app) run(ctx context.Context, op *model.Operation, mode model.Mode, args map[string]string) *engine.RunResult {
	resolver := &param.Resolver{
		Mode:      mode,
		Args:      args,
		Variables: a.loader.Tree().CustomVariables,
		Prompter:  a.prompter,
	}
	var opts []dispatch.Option
	if a.bundle.Mocks != nil {
		opts = append(opts, dispatch.WithMocks(dispatch.Mocks(a.bundle.Mocks)))
	}
	d := dispatch.New(a.registry, resolver, opts...)
	interp := engine.New(d, a.prompter, engine.Options{
		SkipLooping:   a.flags.skipLooping,
		CommandPrefix: a.replayPrefix(),
	})
	return interp.Run(ctx, op)
}

// replayPrefix repeats the document flags the session was started with.
func (a *app) replayPrefix() string {
	parts := []string{programName}
	if a.flags.customPath != "" {
		parts = append(parts, "-c", engine.Quote(a.flags.customPath))
	}
	if a.flags.treePath != "" {
		parts = append(parts, "-t", engine.Quote(a.flags.treePath))
	}
	if a.flags.mockPath != "" {
		parts = append(parts, "-m", engine.Quote(a.flags.mockPath))
	}
	if a.flags.skipLooping {
		parts = append(parts, "--skip-looping")
	}
	return strings.Join(parts, " ")
}

// runnerFunc adapts a function to navigator.Runner.
type runnerFunc func(ctx context.Context, op *model.Operation) *engine.RunResult

func (f runnerFunc) Run(ctx context.Context, op *model.Operation) *engine.RunResult { return f(ctx, op) }

// parseParameters turns name=value arguments into a map. Later values win.
func parseParameters(args []string) (map[string]string, error) {
	params := make(map[string]string, len(args))
	for _, arg := range args {
		name, value, ok := strings.Cut(arg, "=")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("invalid parameter %q, expected name=value", arg)
		}
		params[strings.TrimSpace(name)] = value
	}
	return params, nil
}
