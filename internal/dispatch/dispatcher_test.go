package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyaneshwarpardhi/omtree/internal/action"
	"github.com/gyaneshwarpardhi/omtree/internal/model"
	"github.com/gyaneshwarpardhi/omtree/internal/param"
)

type testPack []action.Handler

func (p testPack) Name() string               { return "test" }
func (p testPack) Handlers() []action.Handler { return p }

func str(s string) *string { return &s }

func newRegistry(t *testing.T, baseURL string, handlers ...action.Handler) *action.Registry {
	t.Helper()
	reg := action.NewRegistry()
	require.NoError(t, reg.Register(testPack(handlers)))
	require.NoError(t, reg.RegisterAPI(&action.APIDefinition{
		Name:            "Items",
		ID:              "items",
		Description:     "item service",
		RequestTimeout:  5,
		CustomVariables: map[string]string{"BASE_URL": baseURL},
		Endpoints: []*action.APIEndpoint{
			{
				Name:              "get",
				RequestType:       "GET",
				URL:               "{{BASE_URL}}/items/{item_id}",
				Headers:           map[string]string{"X-Env": "{env}"},
				Params:            map[string]string{"verbose": "{verbose}"},
				ResponseVariables: map[string]string{"item_name": "name", "tags": "tags.label"},
			},
			{
				Name:              "create",
				RequestType:       "post",
				URL:               "{{BASE_URL}}/items",
				Data:              map[string]any{"name": "{name}", "labels": []any{"{label}"}},
				ResponseVariables: map[string]string{"id": "."},
			},
			{Name: "delete", RequestType: "DELETE", URL: "{{BASE_URL}}/items/{id}"},
		},
	}))
	return reg
}

func nonInteractive(args map[string]string) *param.Resolver {
	return &param.Resolver{Mode: model.ModeNonInteractive, Args: args}
}

func TestFunctionCall(t *testing.T) {
	var seen string
	echo := action.Handler{
		Name:       "echo",
		Parameters: map[string]action.ParameterDefinition{"text": action.In(model.TypeString), "echoed": action.Out(model.TypeString)},
		Func: func(_ context.Context, _ *model.Result, rc *model.RunContext, idx int) *model.Result {
			seen, _ = rc.Value("text", idx)
			return model.Succeeded("echoed", rc.Output("echoed", seen, idx))
		},
	}
	d := New(newRegistry(t, "http://unused", echo), nonInteractive(map[string]string{"greeting": "hi"}))
	rc := model.NewRunContext()
	a := &model.Action{Name: "echo", Type: model.ActionFunctionCall, Parameters: []*model.Parameter{
		{Name: "greeting", OverrideParameterName: "text"},
		{Name: "reply", OverrideParameterName: "echoed", OverrideOutputParameterName: true},
	}}

	res := d.Execute(context.Background(), a, 3, rc, nil, false)

	require.True(t, res.Success, res.Message)
	assert.Equal(t, "hi", seen)
	require.Len(t, res.Parameters, 1)
	assert.Equal(t, "reply", res.Parameters[0].Name, "output renamed to the tree-facing name")
	assert.Equal(t, 3, res.Parameters[0].ActionIndex)
}

func TestFunctionCallFailures(t *testing.T) {
	panicky := action.Handler{
		Name: "panicky", Parameters: map[string]action.ParameterDefinition{},
		Func: func(context.Context, *model.Result, *model.RunContext, int) *model.Result { panic("boom") },
	}
	silent := action.Handler{
		Name: "silent", Parameters: map[string]action.ParameterDefinition{},
		Func: func(context.Context, *model.Result, *model.RunContext, int) *model.Result { return nil },
	}
	typed := action.Handler{
		Name: "typed", Parameters: map[string]action.ParameterDefinition{"p1": action.In(model.TypeInteger)},
		Func: func(context.Context, *model.Result, *model.RunContext, int) *model.Result { return model.Succeeded("") },
	}
	d := New(newRegistry(t, "http://unused", panicky, silent, typed), nonInteractive(nil))

	cases := []struct {
		name   string
		action *model.Action
		check  func(t *testing.T, err error)
	}{
		{
			name:   "panic is recovered",
			action: &model.Action{Name: "panicky"},
			check: func(t *testing.T, err error) {
				var de *DispatchError
				assert.True(t, errors.As(err, &de))
			},
		},
		{
			name:   "nil result",
			action: &model.Action{Name: "silent"},
			check: func(t *testing.T, err error) {
				var de *DispatchError
				assert.True(t, errors.As(err, &de))
			},
		},
		{
			name:   "unknown handler",
			action: &model.Action{Name: "missing"},
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, action.ErrNotFound)
			},
		},
		{
			name: "type conversion",
			action: &model.Action{Name: "typed", Parameters: []*model.Parameter{
				{Name: "count", OverrideParameterName: "p1", Type: model.TypeInteger, PresetValue: str("abc")},
			}},
			check: func(t *testing.T, err error) {
				var ce *model.ConversionError
				assert.True(t, errors.As(err, &ce))
			},
		},
		{
			name:   "unresolvable parameter",
			action: &model.Action{Name: "typed", Parameters: []*model.Parameter{{Name: "p1", Type: model.TypeInteger}}},
			check: func(t *testing.T, err error) {
				var re *param.ResolutionError
				assert.True(t, errors.As(err, &re))
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := d.Execute(context.Background(), tc.action, 0, model.NewRunContext(), nil, false)
			require.NotNil(t, res)
			assert.False(t, res.Success)
			assert.NotEmpty(t, res.Message)
			tc.check(t, res.Err)
		})
	}
}

func TestLoopMarkersAreNoops(t *testing.T) {
	d := New(action.NewRegistry(), nonInteractive(nil))
	for _, typ := range []model.ActionType{model.ActionLoopStart, model.ActionLoopEnd} {
		res := d.Execute(context.Background(), &model.Action{Name: "L", Type: typ}, 0, model.NewRunContext(), nil, false)
		assert.True(t, res.Success)
		assert.Empty(t, res.Parameters)
	}
}

func TestAPIRequestLive(t *testing.T) {
	var got *http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"name":"widget","tags":[{"label":"a"},{"label":"b"}]}`)
	}))
	defer srv.Close()

	d := New(newRegistry(t, srv.URL), nonInteractive(map[string]string{"item": "7", "env": "prod", "verbose": "true"}))
	rc := model.NewRunContext()
	a := &model.Action{Name: "items.get", Type: model.ActionAPIRequest, Parameters: []*model.Parameter{
		{Name: "item", APIParameterName: "item_id"},
		{Name: "env"},
		{Name: "verbose", Type: model.TypeBoolean},
	}}

	res := d.Execute(context.Background(), a, 0, rc, nil, false)

	require.True(t, res.Success, res.Message)
	require.NotNil(t, got)
	assert.Equal(t, "/items/7", got.URL.Path)
	assert.Equal(t, "prod", got.Header.Get("X-Env"))
	assert.Equal(t, "true", got.URL.Query().Get("verbose"))

	values := map[string]string{}
	for _, p := range res.Parameters {
		values[p.Name] = p.Text()
	}
	want := map[string]string{"item_name": "widget", "tags": `["a","b"]`}
	if diff := cmp.Diff(want, values); diff != "" {
		t.Errorf("outputs mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, map[string]any{"name": "widget", "tags": []any{map[string]any{"label": "a"}, map[string]any{"label": "b"}}}, res.Data)
}

func TestAPIRequestBodyAndEmptyResponse(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			_ = json.NewDecoder(r.Body).Decode(&body)
			_, _ = io.WriteString(w, `{"id":"42"}`)
		case http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)
		}
	}))
	defer srv.Close()

	d := New(newRegistry(t, srv.URL), nonInteractive(map[string]string{"name": "w", "label": "x"}))
	rc := model.NewRunContext()

	res := d.Execute(context.Background(), &model.Action{Name: "items.create", Type: model.ActionAPIRequest, Parameters: []*model.Parameter{
		{Name: "name"}, {Name: "label"},
	}}, 0, rc, nil, false)
	require.True(t, res.Success, res.Message)
	assert.Equal(t, map[string]any{"name": "w", "labels": []any{"x"}}, body)
	require.Len(t, res.Parameters, 1)
	assert.Equal(t, "42", res.Parameters[0].Text())

	rc.Merge(res.Parameters)
	res = d.Execute(context.Background(), &model.Action{Name: "items.delete", Type: model.ActionAPIRequest}, 1, rc, nil, false)
	require.True(t, res.Success, res.Message)
	require.Len(t, res.Parameters, 1)
	assert.Equal(t, "api_result", res.Parameters[0].Name)
	assert.Equal(t, "The items.delete API call succeeded", res.Parameters[0].Text())
}

func TestAPIRequestHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, "no such item")
	}))
	defer srv.Close()

	d := New(newRegistry(t, srv.URL), nonInteractive(map[string]string{"item_id": "1", "env": "x", "verbose": "false"}))
	res := d.Execute(context.Background(), &model.Action{Name: "items.get", Type: model.ActionAPIRequest, Parameters: []*model.Parameter{
		{Name: "item_id"}, {Name: "env"}, {Name: "verbose"},
	}}, 0, model.NewRunContext(), nil, false)

	assert.False(t, res.Success)
	assert.Equal(t, "404 | no such item", res.Message)
	var te *TransportError
	require.True(t, errors.As(res.Err, &te))
	assert.Equal(t, http.StatusNotFound, te.StatusCode)
	assert.Empty(t, res.Parameters)
}

func TestAPIRequestTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	d := New(newRegistry(t, srv.URL), nonInteractive(map[string]string{"item_id": "1", "env": "x", "verbose": "false"}))
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	res := d.Execute(ctx, &model.Action{Name: "items.get", Type: model.ActionAPIRequest, Parameters: []*model.Parameter{
		{Name: "item_id"}, {Name: "env"}, {Name: "verbose"},
	}}, 0, model.NewRunContext(), nil, false)

	assert.False(t, res.Success)
	var te *TransportError
	require.True(t, errors.As(res.Err, &te))
	assert.True(t, te.Timeout)
}

func TestAPIRequestMocked(t *testing.T) {
	reg := newRegistry(t, "https://api.example.com")
	mocks := Mocks{
		"https://api.example.com/items": map[string]any{"id": "42"},
		"https://api.example.com/items/9": `{"name":"{item_id}-mock","tags":[]}`,
	}
	d := New(reg, nonInteractive(map[string]string{"name": "n", "label": "l", "item_id": "9", "env": "e", "verbose": "true"}), WithMocks(mocks))
	rc := model.NewRunContext()

	res := d.Execute(context.Background(), &model.Action{Name: "items.create", Type: model.ActionAPIRequest, Parameters: []*model.Parameter{
		{Name: "name"}, {Name: "label"},
	}}, 0, rc, nil, false)
	require.True(t, res.Success)
	rc.Merge(res.Parameters)
	id, ok := rc.Lookup("id")
	require.True(t, ok)
	assert.Equal(t, "42", id.Text())

	res = d.Execute(context.Background(), &model.Action{Name: "items.get", Type: model.ActionAPIRequest, Parameters: []*model.Parameter{
		{Name: "item_id"}, {Name: "env"}, {Name: "verbose"},
	}}, 1, rc, nil, false)
	require.True(t, res.Success)
	assert.Equal(t, "9-mock", res.Parameters[0].Text())

	res = d.Execute(context.Background(), &model.Action{Name: "items.delete", Type: model.ActionAPIRequest}, 2, rc, nil, false)
	require.True(t, res.Success)
	assert.Equal(t, map[string]any{"message": "No predefined response found."}, res.Data)
}

func TestExtractOutputs(t *testing.T) {
	body := []byte(`{"a":{"b":1},"list":[{"x":"p"},{"x":"q"}],"flag":true}`)
	rc := model.NewRunContext()
	cases := []struct {
		path string
		want string
		ok   bool
	}{
		{path: "a.b", want: "1", ok: true},
		{path: "a", want: `{"b":1}`, ok: true},
		{path: "list.x", want: `["p","q"]`, ok: true},
		{path: "list.1.x", want: "q", ok: true},
		{path: "flag", want: "true", ok: true},
		{path: ".", want: string(body), ok: true},
		{path: "missing.key", ok: false},
	}
	for _, tc := range cases {
		t.Run(tc.path, func(t *testing.T) {
			out := extractOutputs(body, map[string]string{"v": tc.path}, rc, 0)
			if !tc.ok {
				assert.Empty(t, out)
				return
			}
			require.Len(t, out, 1)
			assert.Equal(t, tc.want, out[0].Text())
			assert.Equal(t, model.TypeString, out[0].Type)
		})
	}

	out := extractOutputs([]byte("plain text"), map[string]string{"all": ".", "field": "x"}, rc, 0)
	require.Len(t, out, 1)
	assert.Equal(t, "plain text", out[0].Text())
}

func TestExtractWholeBodyUnwrapsOnlyScalars(t *testing.T) {
	rc := model.NewRunContext()
	cases := []struct {
		name string
		body string
		want string
	}{
		{name: "scalar field", body: `{"id":"42"}`, want: "42"},
		{name: "number field", body: `{"id":42}`, want: "42"},
		{name: "list field", body: `{"id":[1,2]}`, want: `{"id":[1,2]}`},
		{name: "object field", body: `{"id":{"v":1}}`, want: `{"id":{"v":1}}`},
		{name: "other field", body: `{"key":"42"}`, want: `{"key":"42"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out := extractOutputs([]byte(tc.body), map[string]string{"id": "."}, rc, 0)
			require.Len(t, out, 1)
			assert.Equal(t, tc.want, out[0].Text())
		})
	}

	body := `{"items":[{"n":1},{"n":2}]}`
	out := extractOutputs([]byte(body), map[string]string{"items": "."}, rc, 0)
	require.Len(t, out, 1)
	assert.Equal(t, body, out[0].Text())
}

func TestBuildRequestLeavesForeignDepthTokens(t *testing.T) {
	def := &action.APIDefinition{CustomVariables: map[string]string{"BASE_URL": "http://h"}}
	ep := &action.APIEndpoint{
		RequestType: "POST",
		URL:         "{{BASE_URL}}/{{{TENANT}}}/{{REGION}}/items/{id}",
		Headers:     map[string]string{"X-Trace": "{{TRACE}}"},
		Data:        map[string]any{"note": "{{{TENANT}}}", "id": "{id}"},
	}
	values := param.FromMap(map[string]string{"id": "7", "TENANT": "t", "REGION": "r", "TRACE": "x"})

	req := buildRequest(def, ep, values)

	assert.Equal(t, "http://h/{{{TENANT}}}/{{REGION}}/items/7", req.URL)
	assert.Equal(t, "{{TRACE}}", req.Headers["X-Trace"])
	assert.Equal(t, map[string]any{"note": "{{{TENANT}}}", "id": "7"}, req.Body)
}
