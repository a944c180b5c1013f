// Package condition decides whether an action is skipped.
package condition

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/gyaneshwarpardhi/omtree/internal/model"
)

// LastResultParameter names the pseudo-parameter that reads the previous
// action's result data when the run context has no entry of that name.
const LastResultParameter = "last_result"

// ShouldSkip reports whether action must be skipped. Groups are OR'd: any
// group evaluating true skips the action. The decision depends only on rc
// and last.
func ShouldSkip(action *model.Action, rc *model.RunContext, last *model.Result) (bool, error) {
	for i, g := range action.SkipIfConditions {
		ok, err := EvaluateGroup(g, rc, last)
		if err != nil {
			return false, fmt.Errorf("action %s: skip condition group %d: %w", action.Name, i, err)
		}
		if ok {
			slog.Debug("skip condition group matched", "action", action.Name, "group", i)
			return true, nil
		}
	}
	return false, nil
}

// EvaluateGroup combines the group's conditions with its operator. An empty
// AND group is true, an empty OR group is false.
func EvaluateGroup(g *model.ConditionGroup, rc *model.RunContext, last *model.Result) (bool, error) {
	switch g.Operator {
	case model.OperatorAND:
		for _, c := range g.Conditions {
			ok, err := Evaluate(c, rc, last)
			if err != nil || !ok {
				return false, err // short-circuit
			}
		}
		return true, nil
	case model.OperatorOR:
		for _, c := range g.Conditions {
			ok, err := Evaluate(c, rc, last)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil // short-circuit
			}
		}
		return false, nil
	default:
		return false, fmt.Errorf("unknown group operator %v", g.Operator)
	}
}

// Evaluate tests one condition: the values found at the condition's path in
// the named parameter must fully match its regex (any one of them, when the
// path fans out). A path that finds nothing yields skip_if_path_not_found,
// with null meaning false.
func Evaluate(c *model.Condition, rc *model.RunContext, last *model.Result) (bool, error) {
	re, err := compile(c.Regex)
	if err != nil {
		return false, err
	}

	doc, found := document(c.ParameterName, rc, last)
	var values []string
	if found {
		values = extract(doc, c.JSONPath)
	}
	if len(values) == 0 {
		result := c.SkipIfPathNotFound != nil && *c.SkipIfPathNotFound
		slog.Debug("condition path not found",
			"parameter", c.ParameterName, "jsonpath", c.JSONPath, "result", result)
		return result, nil
	}

	for _, v := range values {
		if re.MatchString(v) {
			slog.Debug("condition matched",
				"parameter", c.ParameterName, "jsonpath", c.JSONPath, "regex", c.Regex, "value", v)
			return true, nil
		}
	}
	return false, nil
}

func document(name string, rc *model.RunContext, last *model.Result) (string, bool) {
	if p, ok := rc.Lookup(name); ok {
		return p.Text(), true
	}
	if name != LastResultParameter || last == nil || last.Data == nil {
		return "", false
	}
	switch d := last.Data.(type) {
	case string:
		return d, true
	case []byte:
		return string(d), true
	}
	b, err := json.Marshal(last.Data)
	if err != nil {
		slog.Debug("last result data is not serializable", "error", err)
		return "", false
	}
	return string(b), true
}
