package config

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/gyaneshwarpardhi/omtree/internal/action"
	"github.com/gyaneshwarpardhi/omtree/internal/model"
)

type testPack []action.Handler

func (p testPack) Name() string               { return "test" }
func (p testPack) Handlers() []action.Handler { return p }

func testRegistry(t *testing.T) *action.Registry {
	t.Helper()
	noop := func(context.Context, *model.Result, *model.RunContext, int) *model.Result { return model.Succeeded("") }
	reg := action.NewRegistry()
	require.NoError(t, reg.Register(testPack{
		{Name: "print_parameter", Func: noop, Parameters: map[string]action.ParameterDefinition{"parameter_value": action.In(model.TypeString)}},
		{Name: "add", Func: noop, Parameters: map[string]action.ParameterDefinition{
			"count": action.In(model.TypeInteger),
			"sum":   action.Out(model.TypeInteger),
		}},
	}))
	require.NoError(t, reg.RegisterAPI(&action.APIDefinition{
		Name: "Users", ID: "users", Description: "users", RequestTimeout: 10,
		CustomVariables: map[string]string{"BASE_URL": "http://x"},
		Endpoints: []*action.APIEndpoint{{
			Name: "create", RequestType: "POST", URL: "{{BASE_URL}}/users",
			Headers:           map[string]string{"X-Team": "{team}"},
			Data:              map[string]any{"user": map[string]any{"name": "{username}"}},
			ResponseVariables: map[string]string{"user_id": "id"},
		}},
	}))
	return reg
}

func parseTree(t *testing.T, doc string) *model.Tree {
	t.Helper()
	var tree model.Tree
	require.NoError(t, yaml.Unmarshal([]byte(doc), &tree))
	return &tree
}

func TestValidateAcceptsGoodTree(t *testing.T) {
	tree := parseTree(t, `
operations:
  - operation_id: users
    menu_title: Users
    children:
      - operation_id: create
        menu_title: Create
        actions:
          - name: loop
            type: LOOP_START
            loop_number: 1
          - name: users.create
            type: API_REQUEST
            parameters:
              - name: login
                api_parameter_name: username
              - name: team
              - name: user_id
                type: AUTO
          - name: print_parameter
            type: FUNCTION_CALL
            parameters:
              - name: user_id
                override_parameter_name: parameter_value
            skip_if_conditions:
              - conditions:
                  - parameter_name: user_id
                    jsonpath: $
                    regex: "\\d+"
          - name: loop
            type: LOOP_END
            loop_number: 1
      - operation_id: add
        menu_title: Add
        actions:
          - name: add
            type: FUNCTION_CALL
            parameters:
              - name: count
                type: INTEGER
                preset_value: "abc"
              - name: total
                override_parameter_name: sum
                type: AUTO
              - name: note
                custom_parameter: true
`)
	assert.NoError(t, Validate(tree, testRegistry(t)))
}

func TestValidateReportsEveryProblem(t *testing.T) {
	tree := parseTree(t, `
operations:
  - operation_id: dup
    menu_title: First
  - operation_id: dup
    menu_title: Second
  - operation_id: broken
    menu_title: Broken
    actions:
      - name: missing_handler
        type: FUNCTION_CALL
      - name: users.delete
        type: API_REQUEST
      - name: add
        type: FUNCTION_CALL
        parameters:
          - name: count
            type: BOOLEAN
          - name: extra
      - name: users.create
        type: API_REQUEST
        parameters:
          - name: age
          - name: created_at
            type: AUTO
      - name: print_parameter
        type: FUNCTION_CALL
        parameters:
          - name: parameter_value
        skip_if_conditions:
          - conditions:
              - jsonpath: $
                regex: "("
      - name: loop
        type: LOOP_END
        loop_number: 1
`)
	err := Validate(tree, testRegistry(t))
	var verrs ValidationErrors
	require.True(t, errors.As(err, &verrs))

	kinds := make(map[ErrorKind]int)
	for _, e := range verrs {
		kinds[e.Kind]++
	}
	assert.Equal(t, map[ErrorKind]int{
		KindDuplicateID:      1,
		KindUnresolvedAction: 2,
		KindTypeMismatch:     1,
		KindUndeclaredParam:  3,
		KindInvalidCondition: 2,
		KindLoopStructure:    1,
	}, kinds)

	msg := err.Error()
	assert.True(t, strings.HasPrefix(msg, "validation errors:\n  - "))
	assert.Contains(t, msg, "operation broken action 2 (add) parameter count: declared BOOLEAN but handler add expects INTEGER")
	assert.Contains(t, msg, "endpoint users.create has no {age} placeholder")
	assert.Contains(t, msg, "endpoint users.create has no response variable created_at")
}

func TestValidateEmptyTree(t *testing.T) {
	err := Validate(&model.Tree{}, action.NewRegistry())
	assert.ErrorContains(t, err, "tree has no operations")
}

func TestValidateAcceptsAPIResultOutput(t *testing.T) {
	tree := parseTree(t, `
operations:
  - operation_id: create
    menu_title: Create
    actions:
      - name: users.create
        type: API_REQUEST
        parameters:
          - name: username
          - name: team
          - name: api_result
            type: AUTO
      - name: users.create
        type: API_REQUEST
        parameters:
          - name: username
          - name: team
          - name: outcome
            override_parameter_name: api_result
            type: AUTO
`)
	assert.NoError(t, Validate(tree, testRegistry(t)))
}
