// Package common provides general-purpose actions: printing values and
// lists, asking questions, choosing list items and simple text manipulation.
package common

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/gyaneshwarpardhi/omtree/internal/action"
	"github.com/gyaneshwarpardhi/omtree/internal/model"
	"github.com/gyaneshwarpardhi/omtree/internal/prompt"
	"github.com/gyaneshwarpardhi/omtree/internal/tui"
)

// Pack is the "common" action pack.
type Pack struct {
	out      io.Writer
	prompter prompt.Prompter
}

// New creates the pack. Printed values go to out; questions go through p.
func New(out io.Writer, p prompt.Prompter) *Pack {
	return &Pack{out: out, prompter: p}
}

func (p *Pack) Name() string { return "common" }

func (p *Pack) Handlers() []action.Handler {
	return []action.Handler{
		{Name: "print_response", Func: p.printResponse, Parameters: map[string]action.ParameterDefinition{}},
		{
			Name: "print_parameter", Func: p.printParameter,
			Parameters: map[string]action.ParameterDefinition{"parameter_value": action.In(model.TypeString)},
		},
		{Name: "prompt_for_parameters", Func: promptForParameters, Parameters: map[string]action.ParameterDefinition{}},
		{
			Name: "prompt_for_yes_no", Func: p.promptForYesNo,
			Parameters: map[string]action.ParameterDefinition{
				"question":            action.In(model.TypeString),
				"user_response_value": action.Out(model.TypeBoolean),
			},
		},
		{
			Name: "replace_text", Func: replaceText,
			Parameters: map[string]action.ParameterDefinition{
				"text":          action.In(model.TypeString),
				"search_text":   action.In(model.TypeString),
				"replace_text":  action.In(model.TypeString),
				"replaced_text": action.Out(model.TypeString),
			},
		},
		{
			Name: "list_array_with_indexes", Func: p.listArrayWithIndexes,
			Parameters: map[string]action.ParameterDefinition{
				"item_list":             action.In(model.TypeString),
				"item_limit":            action.In(model.TypeInteger),
				"list_node_fields":      action.In(model.TypeString),
				"show_loop_alternative": action.In(model.TypeBoolean),
				"loop_alternative_text": action.In(model.TypeString),
			},
		},
		{
			Name: "prompt_user_to_choose_indexed_item", Func: chooseIndexedItem,
			Parameters: map[string]action.ParameterDefinition{
				"item_list":             action.In(model.TypeString),
				"item_number":           action.In(model.TypeInteger),
				"item_node_value":       action.In(model.TypeString),
				"show_loop_alternative": action.In(model.TypeBoolean),
				"chosen_item_value":     action.Out(model.TypeString),
			},
		},
		{
			Name: "print_simple_json_list", Func: p.printSimpleJSONList,
			Parameters: map[string]action.ParameterDefinition{
				"json_list":        action.In(model.TypeString),
				"list_node_fields": action.In(model.TypeString),
				"list_limit":       action.In(model.TypeInteger),
				"list_text":        action.In(model.TypeString),
			},
		},
	}
}

func (p *Pack) printResponse(_ context.Context, last *model.Result, _ *model.RunContext, _ int) *model.Result {
	if last == nil || last.Data == nil {
		return model.Failedf("an unexpected error occurred while printing the response: no response object provided")
	}
	switch d := last.Data.(type) {
	case string:
		if d == "" {
			fmt.Fprintln(p.out, tui.Info("The response contained no text"))
		} else {
			fmt.Fprintln(p.out, tui.Info(d))
		}
	default:
		b, err := json.MarshalIndent(d, "", "  ")
		if err != nil {
			return model.Failedf("an unexpected error occurred while printing the response: %v", err)
		}
		fmt.Fprintln(p.out, string(b))
	}
	return model.Succeeded("")
}

func (p *Pack) printParameter(_ context.Context, _ *model.Result, rc *model.RunContext, idx int) *model.Result {
	v, ok := rc.Value("parameter_value", idx)
	if !ok || v == "" {
		return model.Failedf("an unexpected error occurred while printing the parameter: found no parameter value to print")
	}
	var buf bytes.Buffer
	if json.Valid([]byte(v)) && json.Indent(&buf, []byte(v), "", "  ") == nil {
		fmt.Fprintln(p.out, buf.String())
	} else {
		fmt.Fprintln(p.out, tui.Info(v))
	}
	return model.Succeeded("")
}

// promptForParameters does nothing itself; its declared parameters are
// resolved (and prompted for) before it runs.
func promptForParameters(context.Context, *model.Result, *model.RunContext, int) *model.Result {
	return model.Succeeded("Parameters collected")
}

func (p *Pack) promptForYesNo(ctx context.Context, _ *model.Result, rc *model.RunContext, idx int) *model.Result {
	question, ok := rc.Value("question", idx)
	if !ok || question == "" {
		return model.Failedf("an error occurred while prompting the user with a yes/no question: no question found")
	}
	if p.prompter == nil {
		return model.Failedf("an error occurred while prompting the user with a yes/no question: no prompter available")
	}
	yes, err := p.prompter.Confirm(ctx, question)
	if err != nil {
		if errors.Is(err, prompt.ErrAborted) {
			return model.Failed(err)
		}
		return model.Failedf("an unexpected error occurred while prompting the user with a yes/no question: %w", err)
	}
	out := rc.Output("user_response_value", strconv.FormatBool(yes), idx)
	out.Type = model.TypeBoolean
	out.NonStick = true
	return model.Succeeded("User answered the question", out)
}

func replaceText(_ context.Context, _ *model.Result, rc *model.RunContext, idx int) *model.Result {
	text, okText := rc.Value("text", idx)
	search, okSearch := rc.Value("search_text", idx)
	replacement, okReplace := rc.Value("replace_text", idx)
	if !okText || !okSearch || !okReplace {
		return model.Failedf("an unexpected error occurred while replacing text: either found no text, search text or replace text")
	}
	replaced := strings.ReplaceAll(text, search, replacement)
	return model.Succeeded("", rc.Output("replaced_text", replaced, idx))
}
