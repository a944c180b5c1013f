// Package param binds values to declared parameters.
package param

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gyaneshwarpardhi/omtree/internal/model"
	"github.com/gyaneshwarpardhi/omtree/internal/prompt"
)

// OperationIDParameter is seeded into every run context.
const OperationIDParameter = "operation_id"

// ResolutionError reports a parameter that could not be bound.
type ResolutionError struct {
	Parameter string
	Reason    string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("parameter %s: %s", e.Parameter, e.Reason)
}

// Resolver binds parameter values with a fixed precedence:
// outputs are left unbound, then preset values, then earlier run-context
// values, then command-line arguments (non-interactive) or a prompt
// (interactive).
type Resolver struct {
	Mode model.Mode
	// Args holds name=value pairs from the command line.
	Args map[string]string
	// Variables holds the tree's custom variables for {{{var}}} tokens.
	Variables map[string]string
	Prompter  prompt.Prompter
}

// Resolve returns a copy of p carrying its bound value. The copy keeps p's
// action index. repeat marks a loop-repeat pass, which re-asks non_stick
// parameters instead of reusing their earlier value.
func (r *Resolver) Resolve(ctx context.Context, p *model.Parameter, rc *model.RunContext, repeat bool) (*model.Parameter, error) {
	out := p.Clone()

	if p.IsOutput() {
		out.Value = nil
		return out, nil
	}

	placeholders := FromContext(rc)

	if p.PresetValue != nil {
		v := ExpandTreeVariables(*p.PresetValue, FromMap(r.Variables))
		v = ExpandDouble(v, placeholders)
		out.SetValue(v)
		slog.Debug("parameter uses preset value", "parameter", p.Name, "value", v)
		return r.checked(out)
	}

	if prior, ok := rc.Lookup(p.InputName()); ok && (!repeat || !p.NonStick) {
		out.SetValue(prior.Text())
		if prior.CommandParameter {
			out.CommandParameter = true
		}
		slog.Debug("parameter reused from run context", "parameter", p.Name, "input_name", p.InputName())
		return r.checked(out)
	}
	if repeat && p.NonStick {
		slog.Debug("non-stick parameter is asked again", "parameter", p.Name)
	}

	var def *string
	if p.DefaultValue != nil {
		d := ExpandDouble(*p.DefaultValue, placeholders)
		def = &d
	}

	if r.Mode == model.ModeNonInteractive {
		return r.fromArgs(out, def)
	}
	return r.fromPrompt(ctx, out, def, ExpandDouble(p.CustomText, placeholders))
}

func (r *Resolver) fromArgs(out *model.Parameter, def *string) (*model.Parameter, error) {
	if v, ok := r.Args[out.Name]; ok {
		out.SetValue(v)
		return r.checked(out)
	}
	if def != nil {
		out.SetValue(*def)
		return r.checked(out)
	}
	if out.Type == model.TypeBoolean {
		out.SetValue("false")
		return out, nil
	}
	return nil, &ResolutionError{
		Parameter: out.Name,
		Reason:    fmt.Sprintf("a value of type %s is required and no default is declared", out.Type),
	}
}

func (r *Resolver) fromPrompt(ctx context.Context, out *model.Parameter, def *string, customText string) (*model.Parameter, error) {
	if r.Prompter == nil {
		return nil, &ResolutionError{Parameter: out.Name, Reason: "no prompter available to ask for a value"}
	}
	title := customText
	if title == "" {
		title = "Please enter " + out.Name
	}
	q := prompt.Prompt{
		Title: fmt.Sprintf("%s [%s]", title, out.Type),
		Validate: func(s string) error {
			_, err := model.Convert(s, out.Type)
			return err
		},
	}
	if def != nil {
		q.Default = *def
	}
	v, err := r.Prompter.Input(ctx, q)
	if err != nil {
		if errors.Is(err, prompt.ErrAborted) {
			return nil, err
		}
		return nil, &ResolutionError{Parameter: out.Name, Reason: err.Error()}
	}
	out.SetValue(v)
	return r.checked(out)
}

func (r *Resolver) checked(p *model.Parameter) (*model.Parameter, error) {
	if _, err := p.Typed(); err != nil {
		return nil, err
	}
	return p, nil
}

// ResolveAll resolves every parameter of an action in declaration order and
// puts each into rc as soon as it is bound, so later parameters can reference
// earlier ones through {{name}} placeholders.
func (r *Resolver) ResolveAll(ctx context.Context, params []*model.Parameter, rc *model.RunContext, actionIndex int, repeat bool) ([]*model.Parameter, error) {
	out := make([]*model.Parameter, 0, len(params))
	for _, p := range params {
		if p.Name == OperationIDParameter {
			continue
		}
		bound, err := r.Resolve(ctx, p, rc, repeat)
		if err != nil {
			return nil, err
		}
		bound.ActionIndex = actionIndex
		rc.Put(bound)
		out = append(out, bound)
	}
	return out, nil
}
