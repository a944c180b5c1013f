// Package dispatch executes one action against a local handler or a remote
// endpoint.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-resty/resty/v2"

	"github.com/gyaneshwarpardhi/omtree/internal/action"
	"github.com/gyaneshwarpardhi/omtree/internal/model"
	"github.com/gyaneshwarpardhi/omtree/internal/param"
)

// Dispatcher turns actions into handler invocations or HTTP requests.
type Dispatcher struct {
	registry *action.Registry
	resolver *param.Resolver
	client   *resty.Client
	mocks    Mocks
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithClient replaces the default HTTP client.
func WithClient(c *resty.Client) Option {
	return func(d *Dispatcher) { d.client = c }
}

// WithMocks answers API requests from canned responses instead of the
// network.
func WithMocks(m Mocks) Option {
	return func(d *Dispatcher) { d.mocks = m }
}

// New creates a Dispatcher.
func New(registry *action.Registry, resolver *param.Resolver, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		registry: registry,
		resolver: resolver,
		client:   resty.New().SetHeader("Accept", "application/json"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Resolver returns the parameter resolver used for every action.
func (d *Dispatcher) Resolver() *param.Resolver { return d.resolver }

// Execute runs one action. It never panics and never returns nil: every
// failure becomes a failed result carrying a typed error. Loop markers are
// no-ops.
func (d *Dispatcher) Execute(ctx context.Context, a *model.Action, actionIndex int, rc *model.RunContext, last *model.Result, repeat bool) *model.Result {
	switch a.Type {
	case model.ActionLoopStart, model.ActionLoopEnd:
		return model.Succeeded("")
	case model.ActionFunctionCall:
		return d.call(ctx, a, actionIndex, rc, last, repeat)
	case model.ActionAPIRequest:
		return d.request(ctx, a, actionIndex, rc, repeat)
	default:
		return model.Failed(&DispatchError{Action: a.Name, Err: fmt.Errorf("unsupported action type %v", a.Type)})
	}
}

func (d *Dispatcher) call(ctx context.Context, a *model.Action, actionIndex int, rc *model.RunContext, last *model.Result, repeat bool) *model.Result {
	h, err := d.registry.ResolveFunction(a.Name)
	if err != nil {
		return model.Failed(&DispatchError{Action: a.Name, Err: err})
	}
	if _, err := d.resolver.ResolveAll(ctx, a.Parameters, rc, actionIndex, repeat); err != nil {
		return model.Failed(err)
	}
	slog.Debug("invoking handler", "action", a.Name, "action_index", actionIndex)
	return invoke(ctx, a.Name, h.Func, last, rc, actionIndex)
}

func invoke(ctx context.Context, name string, fn action.HandlerFunc, last *model.Result, rc *model.RunContext, actionIndex int) (res *model.Result) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("handler panicked", "action", name, "panic", r)
			res = model.Failed(&DispatchError{Action: name, Err: fmt.Errorf("handler panicked: %v", r)})
		}
	}()
	res = fn(ctx, last, rc, actionIndex)
	if res == nil {
		return model.Failed(&DispatchError{Action: name, Err: errors.New("handler returned no result")})
	}
	return res
}
