package param

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/gyaneshwarpardhi/omtree/internal/model"
)

// braceToken matches a run of opening braces, a name and a run of closing
// braces. The opening run decides the token's depth: {{{var}}} is a tree
// variable, {{name}} a context placeholder and {key} an API value. A token
// is only ever replaced by the pass for its own depth.
var (
	braceToken = regexp.MustCompile(`(\{+)(\s*[\w.-]+\s*)(\}+)`)
	singleName = regexp.MustCompile(`^\w+$`)
)

// token splits a braceToken match; ok is false unless it is a well-formed
// token of the given depth. Closing braces beyond depth are returned as rest.
func token(m []string, depth int) (name, rest string, ok bool) {
	opening, inner, closing := m[1], m[2], m[3]
	if len(opening) != depth || len(closing) < depth {
		return "", "", false
	}
	if depth == 1 && !singleName.MatchString(inner) {
		return "", "", false
	}
	return strings.TrimSpace(inner), closing[depth:], true
}

// Lookup resolves a template token; ok=false leaves the token verbatim.
type Lookup func(name string) (string, bool)

// FromMap adapts a map to a Lookup.
func FromMap(m map[string]string) Lookup {
	return func(name string) (string, bool) {
		v, ok := m[name]
		return v, ok
	}
}

// FromContext looks tokens up in the run context, most recent entry first.
func FromContext(rc *model.RunContext) Lookup {
	return func(name string) (string, bool) {
		p, ok := rc.Lookup(name)
		if !ok {
			return "", false
		}
		return p.Text(), true
	}
}

func expand(depth int, s string, lookup Lookup) string {
	if lookup == nil {
		return s
	}
	return braceToken.ReplaceAllStringFunc(s, func(tok string) string {
		name, rest, ok := token(braceToken.FindStringSubmatch(tok), depth)
		if !ok {
			return tok
		}
		if v, found := lookup(name); found {
			return v + rest
		}
		slog.Debug("template token left unresolved", "token", tok)
		return tok
	})
}

// ExpandTreeVariables replaces {{{var}}} tokens.
func ExpandTreeVariables(s string, lookup Lookup) string { return expand(3, s, lookup) }

// ExpandDouble replaces {{name}} tokens.
func ExpandDouble(s string, lookup Lookup) string { return expand(2, s, lookup) }

// ExpandSingle replaces {name} tokens.
func ExpandSingle(s string, lookup Lookup) string { return expand(1, s, lookup) }

// SingleKeys lists the {name} tokens of s in order of appearance.
func SingleKeys(s string) []string {
	var keys []string
	for _, m := range braceToken.FindAllStringSubmatch(s, -1) {
		if name, _, ok := token(m, 1); ok {
			keys = append(keys, name)
		}
	}
	return keys
}
