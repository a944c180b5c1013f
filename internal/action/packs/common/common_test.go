package common

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyaneshwarpardhi/omtree/internal/action"
	"github.com/gyaneshwarpardhi/omtree/internal/model"
	"github.com/gyaneshwarpardhi/omtree/internal/prompt"
)

func handler(t *testing.T, p *Pack, name string) action.HandlerFunc {
	t.Helper()
	reg := action.NewRegistry()
	require.NoError(t, reg.Register(p))
	h, err := reg.ResolveFunction(name)
	require.NoError(t, err)
	return h.Func
}

func TestReplaceText(t *testing.T) {
	rc := model.NewRunContext()
	rc.Put(model.NewParameter("text", "hello world", 2))
	rc.Put(model.NewParameter("search_text", "world", 2))
	rc.Put(model.NewParameter("replace_text", "there", 2))
	out := &model.Parameter{Name: "greeting", OverrideParameterName: "replaced_text", OverrideOutputParameterName: true, ActionIndex: 2}
	rc.Put(out)

	res := handler(t, New(io.Discard, nil), "replace_text")(context.Background(), nil, rc, 2)

	require.True(t, res.Success, res.Message)
	require.Len(t, res.Parameters, 1)
	assert.Equal(t, "greeting", res.Parameters[0].Name)
	assert.Equal(t, "hello there", res.Parameters[0].Text())
}

func TestReplaceTextMissingInput(t *testing.T) {
	res := replaceText(context.Background(), nil, model.NewRunContext(), 0)
	assert.False(t, res.Success)
}

func TestPromptForYesNo(t *testing.T) {
	rc := model.NewRunContext()
	rc.Put(model.NewParameter("question", "Continue?", 0))
	p := New(io.Discard, prompt.NewLine(strings.NewReader("y\n"), io.Discard))

	res := handler(t, p, "prompt_for_yes_no")(context.Background(), nil, rc, 0)

	require.True(t, res.Success, res.Message)
	require.Len(t, res.Parameters, 1)
	got := res.Parameters[0]
	assert.Equal(t, "user_response_value", got.Name)
	assert.Equal(t, "true", got.Text())
	assert.Equal(t, model.TypeBoolean, got.Type)
	assert.True(t, got.NonStick)
}

func TestPromptForYesNoAborted(t *testing.T) {
	rc := model.NewRunContext()
	rc.Put(model.NewParameter("question", "Continue?", 0))
	p := New(io.Discard, prompt.NewLine(strings.NewReader(""), io.Discard))

	res := p.promptForYesNo(context.Background(), nil, rc, 0)
	assert.False(t, res.Success)
	assert.ErrorIs(t, res.Err, prompt.ErrAborted)
}

func TestPrintParameterAndResponse(t *testing.T) {
	var out strings.Builder
	p := New(&out, nil)
	rc := model.NewRunContext()
	rc.Put(model.NewParameter("parameter_value", `{"a":1}`, 0))

	res := p.printParameter(context.Background(), nil, rc, 0)
	require.True(t, res.Success)
	assert.Contains(t, out.String(), "\"a\": 1")

	out.Reset()
	res = p.printResponse(context.Background(), &model.Result{Data: map[string]any{"k": "v"}}, rc, 1)
	require.True(t, res.Success)
	assert.Contains(t, out.String(), "\"k\": \"v\"")

	res = p.printResponse(context.Background(), &model.Result{}, rc, 1)
	assert.False(t, res.Success)
}
