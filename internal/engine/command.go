package engine

import (
	"strings"

	"github.com/gyaneshwarpardhi/omtree/internal/model"
	"github.com/gyaneshwarpardhi/omtree/internal/param"
)

// ReplayCommand renders the non-interactive invocation equivalent to a
// completed run: the prefix, the operation selector and every parameter
// flagged command_parameter as name=value. Each name appears once, at its
// first position, with its most recent value. STRING values are quoted.
func ReplayCommand(prefix, operationID string, rc *model.RunContext) string {
	var b strings.Builder
	if prefix != "" {
		b.WriteString(prefix)
		b.WriteByte(' ')
	}
	b.WriteString("-o ")
	b.WriteString(Quote(operationID))

	var order []string
	latest := make(map[string]*model.Parameter)
	for _, p := range rc.Parameters() {
		if !p.CommandParameter || !p.HasValue() || p.Name == param.OperationIDParameter {
			continue
		}
		if _, seen := latest[p.Name]; !seen {
			order = append(order, p.Name)
		}
		latest[p.Name] = p
	}
	for _, name := range order {
		p := latest[name]
		b.WriteByte(' ')
		b.WriteString(p.Name)
		b.WriteByte('=')
		if p.Type == model.TypeString {
			b.WriteString(Quote(p.Text()))
		} else {
			b.WriteString(p.Text())
		}
	}
	return b.String()
}

// Quote wraps s in double quotes, escaping backslashes and quotes so that a
// POSIX-style splitter returns s unchanged.
func Quote(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	return `"` + r.Replace(s) + `"`
}
