package model

// RunContext is the working memory of one operation invocation: an ordered
// list of parameters, unique by (name, action index), looked up by name with
// the most recent entry winning.
//
// A RunContext is owned by a single interpreter run and is not safe for
// concurrent use.
type RunContext struct {
	params []*Parameter
}

// NewRunContext creates an empty context.
func NewRunContext() *RunContext {
	return &RunContext{}
}

// Put appends p. An existing entry with the same name and action index is
// removed first so that p becomes the most recent.
func (c *RunContext) Put(p *Parameter) {
	for i, existing := range c.params {
		if existing.Name == p.Name && existing.ActionIndex == p.ActionIndex {
			c.params = append(c.params[:i], c.params[i+1:]...)
			break
		}
	}
	c.params = append(c.params, p)
}

// Merge puts every parameter in order.
func (c *RunContext) Merge(ps []*Parameter) {
	for _, p := range ps {
		if p != nil {
			c.Put(p)
		}
	}
}

// Lookup returns the most recent entry named name that carries a value.
func (c *RunContext) Lookup(name string) (*Parameter, bool) {
	for i := len(c.params) - 1; i >= 0; i-- {
		p := c.params[i]
		if p.Name == name && p.HasValue() {
			return p, true
		}
	}
	return nil, false
}

// BoundName maps a handler-facing parameter name to the tree-facing name the
// action at actionIndex declared for it via override_parameter_name. Without
// an override the handler name is returned unchanged.
func (c *RunContext) BoundName(handlerName string, actionIndex int) string {
	for i := len(c.params) - 1; i >= 0; i-- {
		p := c.params[i]
		if p.ActionIndex == actionIndex && p.OverrideParameterName == handlerName {
			return p.Name
		}
	}
	return handlerName
}

// Value reads a handler-facing parameter for the action at actionIndex.
func (c *RunContext) Value(handlerName string, actionIndex int) (string, bool) {
	p, ok := c.Lookup(c.BoundName(handlerName, actionIndex))
	if !ok {
		return "", false
	}
	return p.Text(), true
}

// Output builds a STRING output parameter for a handler-facing name, renamed
// to the tree-facing name when the action overrides it.
func (c *RunContext) Output(handlerName, value string, actionIndex int) *Parameter {
	return NewParameter(c.BoundName(handlerName, actionIndex), value, actionIndex)
}

// Parameters returns the entries in insertion order.
func (c *RunContext) Parameters() []*Parameter {
	out := make([]*Parameter, len(c.params))
	copy(out, c.params)
	return out
}

// Len returns the number of entries.
func (c *RunContext) Len() int { return len(c.params) }
