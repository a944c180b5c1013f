package action

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrNotFound is returned when a function or endpoint is not registered.
var ErrNotFound = errors.New("not found")

// Registry indexes local handlers by name and API definitions by id.
// It is safe for concurrent reads; registration happens at startup.
type Registry struct {
	mu        sync.RWMutex
	functions map[string]Handler
	origins   map[string]string
	apis      map[string]*APIDefinition
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		functions: make(map[string]Handler),
		origins:   make(map[string]string),
		apis:      make(map[string]*APIDefinition),
	}
}

// Register indexes every handler of pack. The whole pack is rejected when a
// handler has no name, no function, no parameter declaration or a name that
// is already registered.
func (r *Registry) Register(pack Pack) error {
	handlers := pack.Handlers()
	seen := make(map[string]bool, len(handlers))
	for _, h := range handlers {
		switch {
		case h.Name == "":
			return fmt.Errorf("action pack %q: handler without a name", pack.Name())
		case h.Func == nil:
			return fmt.Errorf("action pack %q: handler %q has no function", pack.Name(), h.Name)
		case h.Parameters == nil:
			return fmt.Errorf("action pack %q: handler %q does not declare its parameters", pack.Name(), h.Name)
		case seen[h.Name]:
			return fmt.Errorf("action pack %q: duplicate handler %q", pack.Name(), h.Name)
		}
		seen[h.Name] = true
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, h := range handlers {
		if _, exists := r.functions[h.Name]; exists {
			return fmt.Errorf("action pack %q: handler %q already registered by pack %q", pack.Name(), h.Name, r.origins[h.Name])
		}
	}
	for _, h := range handlers {
		r.functions[h.Name] = h
		r.origins[h.Name] = pack.Name()
	}
	return nil
}

// RegisterAPI validates and indexes an API definition.
func (r *Registry) RegisterAPI(def *APIDefinition) error {
	if err := def.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.apis[def.ID]; exists {
		return fmt.Errorf("api definition %q already registered", def.ID)
	}
	r.apis[def.ID] = def
	return nil
}

// ResolveFunction returns the handler registered under name.
func (r *Registry) ResolveFunction(name string) (Handler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.functions[name]
	if !ok {
		return Handler{}, fmt.Errorf("function %q: %w", name, ErrNotFound)
	}
	return h, nil
}

// ResolveEndpoint returns the API definition and endpoint for apiID and
// endpoint name.
func (r *Registry) ResolveEndpoint(apiID, endpoint string) (*APIDefinition, *APIEndpoint, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.apis[apiID]
	if !ok {
		return nil, nil, fmt.Errorf("api %q: %w", apiID, ErrNotFound)
	}
	ep, ok := def.Endpoint(endpoint)
	if !ok {
		return nil, nil, fmt.Errorf("endpoint %q of api %q: %w", endpoint, apiID, ErrNotFound)
	}
	return def, ep, nil
}

// Functions returns all registered handler names, sorted.
func (r *Registry) Functions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.functions))
	for k := range r.functions {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// APIs returns all registered API ids, sorted.
func (r *Registry) APIs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.apis))
	for k := range r.apis {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
