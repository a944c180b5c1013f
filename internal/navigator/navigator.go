// Package navigator walks the operation menu and hands leaf operations to the
// interpreter.
package navigator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/gyaneshwarpardhi/omtree/internal/engine"
	"github.com/gyaneshwarpardhi/omtree/internal/model"
	"github.com/gyaneshwarpardhi/omtree/internal/prompt"
	"github.com/gyaneshwarpardhi/omtree/internal/tui"
)

// ErrOperationNotFound is returned when no operation has the requested id.
var ErrOperationNotFound = errors.New("operation not found")

const (
	backChoice = "\x00back"
	exitChoice = "\x00exit"
)

// Runner executes one operation.
type Runner interface {
	Run(ctx context.Context, op *model.Operation) *engine.RunResult
}

// TreeFunc returns the current tree snapshot. It is called once per menu
// step so a reloaded tree shows up on the next step.
type TreeFunc func() *model.Tree

// Navigator presents the tree as nested menus.
type Navigator struct {
	tree     TreeFunc
	runner   Runner
	prompter prompt.Prompter
	out      io.Writer
}

// New creates a Navigator.
func New(tree TreeFunc, r Runner, p prompt.Prompter, out io.Writer) *Navigator {
	return &Navigator{tree: tree, runner: r, prompter: p, out: out}
}

// Menu shows the root menu and keeps running selected operations until the
// user exits. Aborting a menu prompt exits too.
func (n *Navigator) Menu(ctx context.Context) error {
	var path []string
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		tree := n.tree()
		ops, title, ok := level(tree, path)
		if !ok {
			slog.Warn("menu no longer exists after reload, returning to the root", "path", strings.Join(path, "/"))
			path = nil
			continue
		}

		choice, err := n.prompter.Select(ctx, tui.Title(title), options(ops, len(path) > 0))
		if errors.Is(err, prompt.ErrAborted) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("menu: %w", err)
		}

		switch choice {
		case exitChoice:
			return nil
		case backChoice:
			path = path[:len(path)-1]
			continue
		}

		op := find(ops, choice)
		if op == nil {
			continue
		}
		if op.IsSubmenu() {
			path = append(path, op.OperationID)
			continue
		}
		if help := Help(op); help != "" {
			fmt.Fprintln(n.out, tui.Help(help))
		}
		res := n.runner.Run(ctx, op)
		n.report(res, true)
	}
}

// RunByID runs one operation without a menu. The result is also printed.
func (n *Navigator) RunByID(ctx context.Context, id string) (*engine.RunResult, error) {
	op, ok := n.tree().Find(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrOperationNotFound, id)
	}
	if op.IsSubmenu() {
		return nil, fmt.Errorf("operation %s is a submenu and cannot be run", id)
	}
	res := n.runner.Run(ctx, op)
	n.report(res, false)
	return res, nil
}

func (n *Navigator) report(res *engine.RunResult, replay bool) {
	switch {
	case res.State == engine.StateAborted:
		msg := "operation aborted"
		if res.Last != nil && res.Last.Message != "" {
			msg = res.Last.Message
		}
		fmt.Fprintln(n.out, tui.Outcome(false, msg))
		return
	case res.Last != nil && res.Last.Message != "":
		fmt.Fprintln(n.out, tui.Outcome(res.Last.Success, res.Last.Message))
	}
	if replay && res.Command != "" {
		fmt.Fprintln(n.out, tui.Replay(res.Command))
	}
}

// level resolves the operations shown at path, a list of submenu ids from
// the root.
func level(tree *model.Tree, path []string) ([]*model.Operation, string, bool) {
	ops := tree.Operations
	title := tree.Name
	if title == "" {
		title = "Operations"
	}
	for _, id := range path {
		op := find(ops, id)
		if op == nil || !op.IsSubmenu() {
			return nil, "", false
		}
		ops = op.Children
		title = op.MenuTitle
	}
	return ops, title, true
}

func options(ops []*model.Operation, nested bool) []prompt.Option {
	opts := make([]prompt.Option, 0, len(ops)+2)
	for _, op := range ops {
		label := op.MenuTitle
		if label == "" {
			label = op.OperationID
		}
		if op.IsSubmenu() {
			label += " >"
		}
		opts = append(opts, prompt.Option{Label: label, Value: op.OperationID})
	}
	if nested {
		opts = append(opts, prompt.Option{Label: "Back", Value: backChoice})
	}
	return append(opts, prompt.Option{Label: "Exit", Value: exitChoice})
}

func find(ops []*model.Operation, id string) *model.Operation {
	for _, op := range ops {
		if op.OperationID == id {
			return op
		}
	}
	return nil
}

// Help describes an operation: its help text followed by the parameters each
// action may ask for.
func Help(op *model.Operation) string {
	var b strings.Builder
	if op.HelpText != "" {
		b.WriteString(op.HelpText)
		b.WriteByte('\n')
	}
	for i, a := range op.Actions {
		if a.IsLoopMarker() {
			continue
		}
		var lines []string
		for _, p := range a.Parameters {
			if p.IsOutput() || p.PresetValue != nil {
				continue
			}
			line := fmt.Sprintf("    %s [%s]", p.Name, p.Type)
			var flags []string
			if p.CommandParameter {
				flags = append(flags, "command parameter")
			}
			if p.NonStick {
				flags = append(flags, "non-stick")
			}
			if len(flags) > 0 {
				line += " (" + strings.Join(flags, ", ") + ")"
			}
			lines = append(lines, line)
		}
		if len(lines) == 0 {
			continue
		}
		fmt.Fprintf(&b, "  %d. %s\n", i+1, a.Name)
		b.WriteString(strings.Join(lines, "\n"))
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}
