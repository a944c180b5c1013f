package model

import (
	"fmt"
	"strings"
)

// Tree is the root of an operation menu document.
type Tree struct {
	Name            string            `yaml:"name" json:"name"`
	Description     string            `yaml:"description" json:"description"`
	CustomVariables map[string]string `yaml:"custom_variables" json:"custom_variables,omitempty"`
	Operations      []*Operation      `yaml:"operations" json:"operations"`
}

// Operation is one menu node: a submenu when it has children, otherwise a
// runnable sequence of actions.
type Operation struct {
	OperationID string       `yaml:"operation_id" json:"operation_id"`
	MenuTitle   string       `yaml:"menu_title" json:"menu_title"`
	HelpText    string       `yaml:"help_text" json:"help_text,omitempty"`
	Children    []*Operation `yaml:"children" json:"children,omitempty"`
	Actions     []*Action    `yaml:"actions" json:"actions,omitempty"`
}

// IsSubmenu reports whether the operation only groups children. Its actions,
// if any, are never executed.
func (o *Operation) IsSubmenu() bool { return len(o.Children) > 0 }

// Find locates an operation by id anywhere in the tree (depth-first).
func (t *Tree) Find(id string) (*Operation, bool) {
	return findOperation(t.Operations, id)
}

func findOperation(ops []*Operation, id string) (*Operation, bool) {
	for _, op := range ops {
		if op.OperationID == id {
			return op, true
		}
		if found, ok := findOperation(op.Children, id); ok {
			return found, true
		}
	}
	return nil, false
}

// Walk visits every operation depth-first, parents before children.
// Returning an error stops the walk.
func (t *Tree) Walk(fn func(op *Operation, depth int) error) error {
	return walk(t.Operations, 0, fn)
}

func walk(ops []*Operation, depth int, fn func(*Operation, int) error) error {
	for _, op := range ops {
		if err := fn(op, depth); err != nil {
			return err
		}
		if err := walk(op.Children, depth+1, fn); err != nil {
			return err
		}
	}
	return nil
}

// ActionType discriminates local calls, remote calls and loop markers.
type ActionType int

const (
	ActionFunctionCall ActionType = iota
	ActionAPIRequest
	ActionLoopStart
	ActionLoopEnd
)

var actionTypeNames = map[ActionType]string{
	ActionFunctionCall: "FUNCTION_CALL",
	ActionAPIRequest:   "API_REQUEST",
	ActionLoopStart:    "LOOP_START",
	ActionLoopEnd:      "LOOP_END",
}

func (t ActionType) String() string {
	if s, ok := actionTypeNames[t]; ok {
		return s
	}
	return fmt.Sprintf("ActionType(%d)", int(t))
}

func (t ActionType) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

func (t *ActionType) UnmarshalText(b []byte) error {
	for at, name := range actionTypeNames {
		if strings.EqualFold(name, string(b)) {
			*t = at
			return nil
		}
	}
	return fmt.Errorf("unknown action type %q", string(b))
}

// Action is one executable step of an operation.
type Action struct {
	Name                   string            `yaml:"name" json:"name"`
	Type                   ActionType        `yaml:"type" json:"type"`
	LoopNumber             int               `yaml:"loop_number,omitempty" json:"loop_number,omitempty"`
	CustomLoopRepeatPrompt string            `yaml:"custom_loop_repeat_prompt,omitempty" json:"custom_loop_repeat_prompt,omitempty"`
	FailureTermination     *bool             `yaml:"failure_termination,omitempty" json:"failure_termination,omitempty"`
	Parameters             []*Parameter      `yaml:"parameters" json:"parameters,omitempty"`
	SkipIfConditions       []*ConditionGroup `yaml:"skip_if_conditions" json:"skip_if_conditions,omitempty"`
}

// TerminatesOnFailure reports whether a failed result stops the operation.
// Unset means true.
func (a *Action) TerminatesOnFailure() bool {
	return a.FailureTermination == nil || *a.FailureTermination
}

// IsLoopMarker reports whether the action is a LOOP_START or LOOP_END.
func (a *Action) IsLoopMarker() bool {
	return a.Type == ActionLoopStart || a.Type == ActionLoopEnd
}

// SplitEndpoint splits an API_REQUEST name into its api id and endpoint name.
func (a *Action) SplitEndpoint() (apiID, endpoint string, err error) {
	apiID, endpoint, ok := strings.Cut(a.Name, ".")
	if !ok || apiID == "" || endpoint == "" {
		return "", "", fmt.Errorf("api request name %q must have the form <api_id>.<endpoint_name>", a.Name)
	}
	return apiID, endpoint, nil
}

// GroupOperator combines the conditions of a group.
type GroupOperator int

const (
	OperatorAND GroupOperator = iota
	OperatorOR
)

func (o GroupOperator) String() string {
	if o == OperatorOR {
		return "OR"
	}
	return "AND"
}

func (o GroupOperator) MarshalText() ([]byte, error) { return []byte(o.String()), nil }

func (o *GroupOperator) UnmarshalText(b []byte) error {
	switch strings.ToUpper(string(b)) {
	case "", "AND":
		*o = OperatorAND
	case "OR":
		*o = OperatorOR
	default:
		return fmt.Errorf("unknown condition group operator %q", string(b))
	}
	return nil
}

// ConditionGroup is a set of conditions combined with one operator.
type ConditionGroup struct {
	Operator   GroupOperator `yaml:"operator,omitempty" json:"operator"`
	Conditions []*Condition  `yaml:"conditions" json:"conditions"`
}

// Condition matches the value at JSONPath inside a run-context parameter
// against Regex.
type Condition struct {
	ParameterName      string `yaml:"parameter_name" json:"parameter_name"`
	JSONPath           string `yaml:"jsonpath" json:"jsonpath"`
	Regex              string `yaml:"regex" json:"regex"`
	SkipIfPathNotFound *bool  `yaml:"skip_if_path_not_found,omitempty" json:"skip_if_path_not_found,omitempty"`
}
