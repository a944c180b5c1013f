// Package shell runs local commands as actions.
package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"

	"github.com/google/shlex"

	"github.com/gyaneshwarpardhi/omtree/internal/action"
	"github.com/gyaneshwarpardhi/omtree/internal/model"
)

// Pack is the "shell" action pack.
type Pack struct {
	out io.Writer
}

// New creates the pack; command output goes to out.
func New(out io.Writer) *Pack { return &Pack{out: out} }

func (p *Pack) Name() string { return "shell" }

func (p *Pack) Handlers() []action.Handler {
	return []action.Handler{{
		Name: "perform_bash_command", Func: p.performCommand,
		Parameters: map[string]action.ParameterDefinition{
			"command":      action.In(model.TypeString),
			"use_shell":    action.In(model.TypeBoolean),
			"use_check":    action.In(model.TypeBoolean),
			"print_output": action.In(model.TypeBoolean),
		},
	}}
}

func flag(rc *model.RunContext, name string, idx int, def bool) bool {
	v, ok := rc.Value(name, idx)
	if !ok || v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// performCommand runs command directly, split into words like a POSIX shell
// would, or through sh -c with use_shell. With use_check (the default) a
// non-zero exit fails the action.
func (p *Pack) performCommand(ctx context.Context, _ *model.Result, rc *model.RunContext, idx int) *model.Result {
	command, _ := rc.Value("command", idx)
	if command == "" {
		return model.Failedf("an unexpected error occurred while executing the command: no command found")
	}
	useShell := flag(rc, "use_shell", idx, false)
	useCheck := flag(rc, "use_check", idx, true)
	printOutput := flag(rc, "print_output", idx, false)

	var cmd *exec.Cmd
	if useShell {
		cmd = exec.CommandContext(ctx, "sh", "-c", command)
	} else {
		args, err := shlex.Split(command)
		if err != nil {
			return model.Failedf("an unexpected error occurred while executing the command: %w", err)
		}
		if len(args) == 0 {
			return model.Failedf("an unexpected error occurred while executing the command: no command found")
		}
		cmd = exec.CommandContext(ctx, args[0], args[1:]...)
	}

	var stdout, stderr bytes.Buffer
	if printOutput {
		cmd.Stdout, cmd.Stderr = &stdout, &stderr
	} else {
		cmd.Stdout, cmd.Stderr = p.out, p.out
	}
	err := cmd.Run()
	if printOutput {
		fmt.Fprintf(p.out, "stdout: %s\n", stdout.String())
		fmt.Fprintf(p.out, "stderr: %s\n", stderr.String())
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
	case errors.As(err, &exitErr) && !useCheck:
	case errors.As(err, &exitErr):
		return model.Failedf("failed to execute the command: %w", err)
	default:
		return model.Failedf("an unexpected error occurred while executing the command: %w", err)
	}
	return model.Succeeded("Executed the command: " + command)
}
