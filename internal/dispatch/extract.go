package dispatch

import (
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/gyaneshwarpardhi/omtree/internal/model"
)

// extractOutputs applies response_variables to a response body. Paths are
// dotted keys; "." or "" selects the whole body, and a key applied to an
// array fans out over its elements. Missing paths are logged and skipped.
func extractOutputs(body []byte, variables map[string]string, rc *model.RunContext, actionIndex int) []*model.Parameter {
	if len(variables) == 0 {
		return nil
	}
	names := make([]string, 0, len(variables))
	for name := range variables {
		names = append(names, name)
	}
	sort.Strings(names)

	valid := gjson.ValidBytes(body)
	var root gjson.Result
	if valid {
		root = gjson.ParseBytes(body)
	}

	var out []*model.Parameter
	for _, name := range names {
		path := variables[name]
		var (
			value string
			found bool
		)
		switch {
		case isWholeBody(path) && !valid:
			value, found = string(body), true
		case valid:
			var r gjson.Result
			r, found = lookupPath(root, path)
			if found && isWholeBody(path) {
				r = unwrapEnvelope(r, name)
			}
			value = text(r)
		}
		if !found {
			slog.Error("failed to extract response variable", "variable", name, "path", path)
			continue
		}
		out = append(out, rc.Output(name, value, actionIndex))
	}
	return out
}

func isWholeBody(path string) bool {
	p := strings.TrimSpace(path)
	return p == "" || p == "."
}

func lookupPath(root gjson.Result, path string) (gjson.Result, bool) {
	if isWholeBody(path) {
		return root, root.Exists()
	}
	cur := root
	for _, seg := range strings.Split(strings.Trim(path, "."), ".") {
		if cur.IsArray() && !isIndex(seg) {
			cur = cur.Get("#." + seg)
		} else {
			cur = cur.Get(seg)
		}
		if !cur.Exists() {
			return gjson.Result{}, false
		}
	}
	return cur, true
}

// unwrapEnvelope returns the single field of a one-field object when that
// field is named like the output variable and holds a scalar, so {"id":"42"}
// extracted whole into id yields 42. Objects and lists are never unwrapped.
func unwrapEnvelope(r gjson.Result, name string) gjson.Result {
	if !r.IsObject() {
		return r
	}
	m := r.Map()
	if v, ok := m[name]; ok && len(m) == 1 && !v.IsObject() && !v.IsArray() {
		return v
	}
	return r
}

func isIndex(seg string) bool {
	_, err := strconv.Atoi(seg)
	return err == nil
}

func text(r gjson.Result) string {
	if r.Type == gjson.String {
		return r.String()
	}
	return r.Raw
}
