// File path: internal/source/registry.go
package source

import (
	"fmt"
	"strings"
)

// Registry holds the providers configured at startup. It is constructed once
// and passed by reference to the orchestrator and builder; there is no
// process-wide discovery cache. Registration order is significant: reference
// resolution asks providers in the order they were registered.
type Registry struct {
	order     []string
	providers map[string]Provider
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

// Register adds a provider under its own name. Registering a second provider
// with the same name is a configuration mistake and fails.
func (r *Registry) Register(p Provider) error {
	if p == nil {
		return fmt.Errorf("nil provider")
	}
	name := strings.ToLower(strings.TrimSpace(p.Name()))
	if name == "" {
		return fmt.Errorf("provider name required")
	}
	if _, exists := r.providers[name]; exists {
		return fmt.Errorf("provider %q already registered", name)
	}
	r.providers[name] = p
	r.order = append(r.order, name)
	return nil
}

// Provider returns the provider registered under name, or nil.
func (r *Registry) Provider(name string) Provider {
	if r == nil {
		return nil
	}
	return r.providers[strings.ToLower(strings.TrimSpace(name))]
}

// Names lists registered provider names in registration order.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Providers lists registered providers in registration order.
func (r *Registry) Providers() []Provider {
	if r == nil {
		return nil
	}
	out := make([]Provider, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.providers[name])
	}
	return out
}

// Resolvers returns the providers that declare support for the given
// reference type, in registration order.
func (r *Registry) Resolvers(refType string) []Provider {
	if r == nil {
		return nil
	}
	var out []Provider
	for _, name := range r.order {
		p := r.providers[name]
		for _, supported := range p.SupportedReferenceTypes() {
			if strings.EqualFold(supported, refType) {
				out = append(out, p)
				break
			}
		}
	}
	return out
}
