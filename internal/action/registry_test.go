package action

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyaneshwarpardhi/omtree/internal/model"
)

type pack struct {
	name     string
	handlers []Handler
}

func (p pack) Name() string        { return p.name }
func (p pack) Handlers() []Handler { return p.handlers }

func noop(context.Context, *model.Result, *model.RunContext, int) *model.Result {
	return model.Succeeded("")
}

func validAPI() *APIDefinition {
	return &APIDefinition{
		Name:            "Users",
		ID:              "users",
		Description:     "user service",
		RequestTimeout:  10,
		CustomVariables: map[string]string{"BASE_URL": "https://example.com"},
		Endpoints: []*APIEndpoint{
			{Name: "list", RequestType: "get", URL: "{{BASE_URL}}/users"},
		},
	}
}

func TestRegister(t *testing.T) {
	cases := []struct {
		name    string
		packs   []Pack
		wantErr string
	}{
		{
			name:  "ok",
			packs: []Pack{pack{name: "p", handlers: []Handler{{Name: "a", Func: noop, Parameters: map[string]ParameterDefinition{}}}}},
		},
		{
			name:    "missing parameter declaration",
			packs:   []Pack{pack{name: "p", handlers: []Handler{{Name: "a", Func: noop}}}},
			wantErr: "does not declare its parameters",
		},
		{
			name:    "missing function",
			packs:   []Pack{pack{name: "p", handlers: []Handler{{Name: "a", Parameters: map[string]ParameterDefinition{}}}}},
			wantErr: "has no function",
		},
		{
			name: "duplicate within pack",
			packs: []Pack{pack{name: "p", handlers: []Handler{
				{Name: "a", Func: noop, Parameters: map[string]ParameterDefinition{}},
				{Name: "a", Func: noop, Parameters: map[string]ParameterDefinition{}},
			}}},
			wantErr: "duplicate handler",
		},
		{
			name: "duplicate across packs",
			packs: []Pack{
				pack{name: "p", handlers: []Handler{{Name: "a", Func: noop, Parameters: map[string]ParameterDefinition{}}}},
				pack{name: "q", handlers: []Handler{{Name: "a", Func: noop, Parameters: map[string]ParameterDefinition{}}}},
			},
			wantErr: `already registered by pack "p"`,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := NewRegistry()
			var err error
			for _, p := range tc.packs {
				if err = r.Register(p); err != nil {
					break
				}
			}
			if tc.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestRegisterRejectsWholePack(t *testing.T) {
	r := NewRegistry()
	err := r.Register(pack{name: "p", handlers: []Handler{
		{Name: "good", Func: noop, Parameters: map[string]ParameterDefinition{}},
		{Name: "bad", Func: noop},
	}})
	require.Error(t, err)
	_, err = r.ResolveFunction("good")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolve(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(pack{name: "p", handlers: []Handler{
		{Name: "a", Func: noop, Parameters: map[string]ParameterDefinition{"x": In(model.TypeInteger)}},
	}}))
	require.NoError(t, r.RegisterAPI(validAPI()))

	h, err := r.ResolveFunction("a")
	require.NoError(t, err)
	assert.Equal(t, model.TypeInteger, h.Parameters["x"].Type)

	def, ep, err := r.ResolveEndpoint("users", "list")
	require.NoError(t, err)
	assert.Equal(t, "users", def.ID)
	assert.Equal(t, "GET", ep.RequestType, "request type normalized")

	_, _, err = r.ResolveEndpoint("users", "nope")
	assert.ErrorIs(t, err, ErrNotFound)
	_, _, err = r.ResolveEndpoint("nope", "list")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Equal(t, []string{"a"}, r.Functions())
	assert.Equal(t, []string{"users"}, r.APIs())
}

func TestAPIDefinitionValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(d *APIDefinition)
		wantErr string
	}{
		{name: "valid", mutate: func(*APIDefinition) {}},
		{name: "missing id", mutate: func(d *APIDefinition) { d.ID = "" }, wantErr: "ID is required"},
		{name: "missing description", mutate: func(d *APIDefinition) { d.Description = "" }, wantErr: "Description is required"},
		{name: "zero timeout", mutate: func(d *APIDefinition) { d.RequestTimeout = 0 }, wantErr: "RequestTimeout must be greater than 0"},
		{name: "missing base url", mutate: func(d *APIDefinition) { d.CustomVariables = map[string]string{} }, wantErr: "must define BASE_URL"},
		{name: "bad method", mutate: func(d *APIDefinition) { d.Endpoints[0].RequestType = "TRACE" }, wantErr: "RequestType must be one of"},
		{name: "missing url", mutate: func(d *APIDefinition) { d.Endpoints[0].URL = "" }, wantErr: "Endpoints[0].URL is required"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := validAPI()
			tc.mutate(d)
			err := d.Validate()
			if tc.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestRegisterAPIDuplicate(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.RegisterAPI(validAPI()))
	assert.Error(t, r.RegisterAPI(validAPI()))
}
