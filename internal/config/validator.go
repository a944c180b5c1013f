package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/gyaneshwarpardhi/omtree/internal/action"
	"github.com/gyaneshwarpardhi/omtree/internal/condition"
	"github.com/gyaneshwarpardhi/omtree/internal/dispatch"
	"github.com/gyaneshwarpardhi/omtree/internal/engine"
	"github.com/gyaneshwarpardhi/omtree/internal/model"
	"github.com/gyaneshwarpardhi/omtree/internal/param"
)

// ErrorKind classifies a validation failure.
type ErrorKind string

const (
	KindMissingField     ErrorKind = "missing_field"
	KindDuplicateID      ErrorKind = "duplicate_id"
	KindUnresolvedAction ErrorKind = "unresolved_action"
	KindTypeMismatch     ErrorKind = "type_mismatch"
	KindUndeclaredParam  ErrorKind = "undeclared_parameter"
	KindLoopStructure    ErrorKind = "loop_structure"
	KindInvalidCondition ErrorKind = "invalid_condition"
)

// ValidationError is one problem found in the tree. ActionIndex is -1 for
// operation-level problems.
type ValidationError struct {
	Kind        ErrorKind
	OperationID string
	ActionIndex int
	Action      string
	Parameter   string
	Msg         string
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "operation %s", e.OperationID)
	if e.ActionIndex >= 0 {
		fmt.Fprintf(&b, " action %d (%s)", e.ActionIndex, e.Action)
	}
	if e.Parameter != "" {
		fmt.Fprintf(&b, " parameter %s", e.Parameter)
	}
	b.WriteString(": ")
	b.WriteString(e.Msg)
	return b.String()
}

// ValidationErrors collects every problem found in one pass.
type ValidationErrors []*ValidationError

func (es ValidationErrors) Error() string {
	msgs := make([]string, len(es))
	for i, e := range es {
		msgs[i] = e.Error()
	}
	return "validation errors:\n  - " + strings.Join(msgs, "\n  - ")
}

// Validate checks the tree against the registry before anything runs:
//   - operation ids are present and unique
//   - every FUNCTION_CALL and API_REQUEST name resolves
//   - declared parameter types agree with the handler's definitions
//   - parameters are declared by the handler or endpoint, or flagged custom_parameter
//   - loop markers are balanced and properly nested
//   - skip conditions name a parameter and carry a valid regex
//
// It returns ValidationErrors or nil.
func Validate(tree *model.Tree, reg *action.Registry) error {
	v := &treeValidator{reg: reg, ids: make(map[string]string)}
	if len(tree.Operations) == 0 {
		v.add(&ValidationError{Kind: KindMissingField, ActionIndex: -1, Msg: "tree has no operations"})
	}
	_ = tree.Walk(func(op *model.Operation, depth int) error {
		v.operation(op)
		return nil
	})
	if len(v.errs) > 0 {
		return v.errs
	}
	return nil
}

type treeValidator struct {
	reg  *action.Registry
	ids  map[string]string // id -> menu title
	errs ValidationErrors
}

func (v *treeValidator) add(e *ValidationError) { v.errs = append(v.errs, e) }

func (v *treeValidator) operation(op *model.Operation) {
	opErr := func(kind ErrorKind, format string, args ...any) {
		v.add(&ValidationError{Kind: kind, OperationID: op.OperationID, ActionIndex: -1, Msg: fmt.Sprintf(format, args...)})
	}
	if op.OperationID == "" {
		opErr(KindMissingField, "operation_id is required (menu %q)", op.MenuTitle)
	} else if prev, ok := v.ids[op.OperationID]; ok {
		opErr(KindDuplicateID, "duplicate operation_id (first seen at menu %q, again at %q)", prev, op.MenuTitle)
	} else {
		v.ids[op.OperationID] = op.MenuTitle
	}

	if op.IsSubmenu() {
		if len(op.Actions) > 0 {
			slog.Warn("operation has both children and actions, its actions are never run", "operation_id", op.OperationID)
		}
		return
	}
	if _, err := engine.MatchLoops(op.Actions); err != nil {
		opErr(KindLoopStructure, "%v", err)
	}
	for i, a := range op.Actions {
		v.action(op, i, a)
	}
}

func (v *treeValidator) action(op *model.Operation, idx int, a *model.Action) {
	fail := func(kind ErrorKind, p string, format string, args ...any) {
		v.add(&ValidationError{
			Kind: kind, OperationID: op.OperationID, ActionIndex: idx, Action: a.Name, Parameter: p,
			Msg: fmt.Sprintf(format, args...),
		})
	}

	for gi, g := range a.SkipIfConditions {
		for ci, c := range g.Conditions {
			if c.ParameterName == "" {
				fail(KindInvalidCondition, "", "skip condition %d.%d: parameter_name is required", gi, ci)
			}
			if err := condition.CheckRegex(c.Regex); err != nil {
				fail(KindInvalidCondition, c.ParameterName, "skip condition %d.%d: %v", gi, ci, err)
			}
		}
	}

	switch a.Type {
	case model.ActionFunctionCall:
		h, err := v.reg.ResolveFunction(a.Name)
		if err != nil {
			fail(KindUnresolvedAction, "", "%v", err)
			return
		}
		for _, p := range a.Parameters {
			if p.Name == param.OperationIDParameter {
				continue
			}
			def, ok := h.Parameters[p.HandlerName()]
			if !ok {
				if !p.CustomParameter {
					fail(KindUndeclaredParam, p.Name, "handler %s declares no parameter %s", a.Name, p.HandlerName())
				}
				continue
			}
			if p.Type != model.TypeAuto && def.Type != model.TypeAuto && p.Type != def.Type {
				fail(KindTypeMismatch, p.Name, "declared %s but handler %s expects %s", p.Type, a.Name, def.Type)
			}
		}
	case model.ActionAPIRequest:
		apiID, endpoint, err := a.SplitEndpoint()
		if err != nil {
			fail(KindUnresolvedAction, "", "%v", err)
			return
		}
		_, ep, err := v.reg.ResolveEndpoint(apiID, endpoint)
		if err != nil {
			fail(KindUnresolvedAction, "", "%v", err)
			return
		}
		keys := endpointKeys(ep)
		for _, p := range a.Parameters {
			if p.Name == param.OperationIDParameter || p.CustomParameter {
				continue
			}
			if p.IsOutput() {
				if p.HandlerName() == dispatch.APIResultParameter {
					continue
				}
				if _, ok := ep.ResponseVariables[p.HandlerName()]; !ok {
					fail(KindUndeclaredParam, p.Name, "endpoint %s has no response variable %s", a.Name, p.HandlerName())
				}
				continue
			}
			key := p.APIParameterName
			if key == "" {
				key = p.HandlerName()
			}
			if !keys[key] {
				fail(KindUndeclaredParam, p.Name, "endpoint %s has no {%s} placeholder", a.Name, key)
			}
		}
	case model.ActionLoopStart, model.ActionLoopEnd:
		if len(a.Parameters) > 0 {
			fail(KindLoopStructure, "", "loop markers take no parameters")
		}
	}
}

// endpointKeys lists the {key} placeholders an endpoint template uses.
func endpointKeys(ep *action.APIEndpoint) map[string]bool {
	keys := make(map[string]bool)
	add := func(s string) {
		for _, k := range param.SingleKeys(s) {
			keys[k] = true
		}
	}
	add(ep.URL)
	for _, h := range ep.Headers {
		add(h)
	}
	for _, q := range ep.Params {
		add(q)
	}
	var walk func(any)
	walk = func(d any) {
		switch t := d.(type) {
		case string:
			add(t)
		case map[string]any:
			for _, e := range t {
				walk(e)
			}
		case []any:
			for _, e := range t {
				walk(e)
			}
		}
	}
	walk(ep.Data)
	return keys
}
